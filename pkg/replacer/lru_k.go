// Package replacer implements the LRU-K frame replacement policy used by
// the buffer pool to choose eviction victims.
package replacer

import (
	"fmt"
	"sync"
)

// FrameID identifies a slot in the buffer pool's frame array.
type FrameID int

// node is the per-frame access history record. History holds up to K
// timestamps, newest at index 0.
type node struct {
	history    []uint64
	k          int
	evictable  bool
}

// LRUK tracks per-frame access history and picks eviction victims by
// backward k-distance: frames with fewer than K recorded accesses are
// preferred for eviction (infinite backward distance), tie-broken by the
// oldest timestamp in their history; among frames with k accesses, the
// one whose k-th-most-recent access is oldest wins. All operations are
// serialised by a single mutex and never touch disk.
type LRUK struct {
	mu        sync.Mutex
	nodes     map[FrameID]*node
	k         int
	size      int
	timestamp uint64
}

// New creates a replacer sized for numFrames frames with history depth k.
func New(numFrames int, k int) *LRUK {
	return &LRUK{
		nodes: make(map[FrameID]*node, numFrames),
		k:     k,
	}
}

// RecordAccess logs an access to frame f at the current logical clock,
// creating the node on first access. Histories beyond K entries drop the
// oldest.
func (r *LRUK) RecordAccess(f FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timestamp++
	n, ok := r.nodes[f]
	if !ok {
		n = &node{k: r.k}
		r.nodes[f] = n
	}
	n.history = append([]uint64{r.timestamp}, n.history...)
	if len(n.history) > r.k {
		n.history = n.history[:r.k]
	}
}

// SetEvictable toggles whether a frame participates in eviction. It is a
// hard error to call this for a frame that has never been recorded.
func (r *LRUK) SetEvictable(f FrameID, evictable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[f]
	if !ok {
		return fmt.Errorf("replacer: unknown frame %d", f)
	}
	if n.evictable == evictable {
		return nil
	}
	n.evictable = evictable
	if evictable {
		r.size++
	} else {
		r.size--
	}
	return nil
}

// Remove drops a frame's history. Only legal for an evictable frame; a
// no-op if the frame is unknown.
func (r *LRUK) Remove(f FrameID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[f]
	if !ok {
		return nil
	}
	if !n.evictable {
		return fmt.Errorf("replacer: cannot remove non-evictable frame %d", f)
	}
	delete(r.nodes, f)
	r.size--
	return nil
}

// Evict selects and removes a victim frame per the LRU-K policy,
// returning ok=false if no frame is currently evictable.
func (r *LRUK) Evict() (f FrameID, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		haveInf     bool
		bestInfTS   uint64
		bestInf     FrameID
		haveFinite  bool
		bestFinTS   uint64
		bestFin     FrameID
	)

	for id, n := range r.nodes {
		if !n.evictable {
			continue
		}
		oldest := n.history[len(n.history)-1]
		if len(n.history) < n.k {
			if !haveInf || oldest < bestInfTS {
				haveInf = true
				bestInfTS = oldest
				bestInf = id
			}
			continue
		}
		if !haveFinite || oldest < bestFinTS {
			haveFinite = true
			bestFinTS = oldest
			bestFin = id
		}
	}

	if haveInf {
		f = bestInf
	} else if haveFinite {
		f = bestFin
	} else {
		return 0, false
	}

	delete(r.nodes, f)
	r.size--
	return f, true
}

// Size returns the number of currently evictable frames.
func (r *LRUK) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
