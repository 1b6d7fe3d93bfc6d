package replacer

import "testing"

func TestLRUKEvictsInfiniteDistanceFramesFirst(t *testing.T) {
	r := New(5, 2)

	// Frames 1,2,3 get a single access each; frame 4 gets two, which
	// gives it a finite backward k-distance. Frames with fewer than k
	// accesses must be preferred for eviction over frame 4.
	r.RecordAccess(1)
	r.RecordAccess(2)
	r.RecordAccess(3)
	r.RecordAccess(4)
	r.RecordAccess(4)

	for _, f := range []FrameID{1, 2, 3, 4} {
		if err := r.SetEvictable(f, true); err != nil {
			t.Fatalf("SetEvictable(%d): %v", f, err)
		}
	}

	if got := r.Size(); got != 4 {
		t.Fatalf("expected size 4, got %d", got)
	}

	victim, ok := r.Evict()
	if !ok {
		t.Fatal("expected an evictable frame")
	}
	if victim == 4 {
		t.Fatalf("expected an infinite-distance frame evicted before frame 4, got %d", victim)
	}
}

func TestLRUKTieBreaksInfiniteDistanceByOldestAccess(t *testing.T) {
	r := New(5, 2)

	r.RecordAccess(1)
	r.RecordAccess(2)

	if err := r.SetEvictable(1, true); err != nil {
		t.Fatalf("SetEvictable(1): %v", err)
	}
	if err := r.SetEvictable(2, true); err != nil {
		t.Fatalf("SetEvictable(2): %v", err)
	}

	victim, ok := r.Evict()
	if !ok {
		t.Fatal("expected an evictable frame")
	}
	if victim != 1 {
		t.Fatalf("expected frame 1 (oldest single access), got %d", victim)
	}
}

func TestLRUKPrefersOldestKthAccessAmongFiniteFrames(t *testing.T) {
	r := New(5, 2)

	// Frame 1's two accesses are both older than frame 2's two accesses,
	// so frame 1's k-th-most-recent access is the oldest overall.
	r.RecordAccess(1)
	r.RecordAccess(1)
	r.RecordAccess(2)
	r.RecordAccess(2)

	if err := r.SetEvictable(1, true); err != nil {
		t.Fatalf("SetEvictable(1): %v", err)
	}
	if err := r.SetEvictable(2, true); err != nil {
		t.Fatalf("SetEvictable(2): %v", err)
	}

	victim, ok := r.Evict()
	if !ok {
		t.Fatal("expected an evictable frame")
	}
	if victim != 1 {
		t.Fatalf("expected frame 1 evicted first, got %d", victim)
	}
}

func TestLRUKSkipsNonEvictableFrames(t *testing.T) {
	r := New(5, 2)

	r.RecordAccess(1)
	r.RecordAccess(2)
	if err := r.SetEvictable(1, true); err != nil {
		t.Fatalf("SetEvictable(1): %v", err)
	}
	// Frame 2 stays pinned (non-evictable).

	victim, ok := r.Evict()
	if !ok {
		t.Fatal("expected an evictable frame")
	}
	if victim != 1 {
		t.Fatalf("expected frame 1 (the only evictable frame), got %d", victim)
	}

	if _, ok := r.Evict(); ok {
		t.Fatal("expected no evictable frames remaining")
	}
}

func TestLRUKSetEvictableUnknownFrameFails(t *testing.T) {
	r := New(5, 2)
	if err := r.SetEvictable(99, true); err == nil {
		t.Fatal("expected an error for an unrecorded frame")
	}
}

func TestLRUKRemoveRequiresEvictable(t *testing.T) {
	r := New(5, 2)
	r.RecordAccess(1)
	if err := r.Remove(1); err == nil {
		t.Fatal("expected an error removing a non-evictable frame")
	}
	if err := r.SetEvictable(1, true); err != nil {
		t.Fatalf("SetEvictable(1): %v", err)
	}
	if err := r.Remove(1); err != nil {
		t.Fatalf("Remove(1): %v", err)
	}
	if got := r.Size(); got != 0 {
		t.Fatalf("expected size 0 after remove, got %d", got)
	}
}

func TestLRUKEvictEmptyReplacerReportsFalse(t *testing.T) {
	r := New(5, 2)
	if _, ok := r.Evict(); ok {
		t.Fatal("expected no victim from an empty replacer")
	}
}
