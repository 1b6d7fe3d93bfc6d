package storage

import "fmt"

// DiskRequest is a single read or write request dispatched to the
// scheduler's one worker. Completion is signalled by sending exactly one
// value on Done.
type DiskRequest struct {
	IsWrite bool
	Page    *Page  // for writes: the page to persist; for reads: the page id is read from PageID
	PageID  PageID // target page id (used for reads)
	Done    chan bool
}

// DiskScheduler serialises all page I/O onto a single background worker
// so callers never race the disk manager directly. Requests are served
// strictly FIFO; there is no reordering or coalescing, matching spec
// §4.1's Disk Scheduler.
type DiskScheduler struct {
	disk     *DiskManager
	requests chan *DiskRequest
	done     chan struct{}
}

// NewDiskScheduler starts the worker goroutine and returns a handle to
// it. queueDepth bounds the number of in-flight requests.
func NewDiskScheduler(disk *DiskManager, queueDepth int) *DiskScheduler {
	if queueDepth <= 0 {
		queueDepth = 32
	}
	s := &DiskScheduler{
		disk:     disk,
		requests: make(chan *DiskRequest, queueDepth),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *DiskScheduler) run() {
	defer close(s.done)
	for req := range s.requests {
		if req == nil {
			// Sentinel: drain stops here.
			return
		}
		if req.IsWrite {
			if err := s.disk.WritePage(req.Page); err != nil {
				// Disk errors are fatal to the process; out of scope
				// to recover from one here.
				panic(fmt.Sprintf("storage: fatal disk write error: %v", err))
			}
			req.Done <- true
			continue
		}
		page, err := s.disk.ReadPage(req.PageID)
		if err != nil {
			panic(fmt.Sprintf("storage: fatal disk read error: %v", err))
		}
		*req.Page = *page
		req.Done <- true
	}
}

// ScheduleRead enqueues a read of pageID into dst and blocks until the
// worker completes it.
func (s *DiskScheduler) ScheduleRead(pageID PageID, dst *Page) {
	done := make(chan bool, 1)
	s.requests <- &DiskRequest{IsWrite: false, PageID: pageID, Page: dst, Done: done}
	<-done
}

// ScheduleWrite enqueues a write of p and blocks until the worker
// completes it.
func (s *DiskScheduler) ScheduleWrite(p *Page) {
	done := make(chan bool, 1)
	s.requests <- &DiskRequest{IsWrite: true, Page: p, Done: done}
	<-done
}

// Shutdown enqueues the sentinel and waits for the worker to drain and
// exit.
func (s *DiskScheduler) Shutdown() {
	s.requests <- nil
	<-s.done
}
