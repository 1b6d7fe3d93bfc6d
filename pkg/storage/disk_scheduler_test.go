package storage

import (
	"path/filepath"
	"testing"
)

func TestDiskSchedulerWriteThenReadRoundTrips(t *testing.T) {
	dm, err := NewDiskManager(filepath.Join(t.TempDir(), "sched.db"), DefaultDiskManagerConfig())
	if err != nil {
		t.Fatalf("NewDiskManager: %v", err)
	}
	t.Cleanup(func() { _ = dm.Close() })

	sched := NewDiskScheduler(dm, 4)
	t.Cleanup(sched.Shutdown)

	id, err := dm.AllocatePage()
	if err != nil {
		t.Fatalf("AllocatePage: %v", err)
	}
	p := NewPage(id, PageTypeTable)
	copy(p.Data, []byte("scheduled write"))
	sched.ScheduleWrite(p)

	dst := NewPage(id, PageTypeTable)
	sched.ScheduleRead(id, dst)

	want := "scheduled write"
	if string(dst.Data[:len(want)]) != want {
		t.Fatalf("expected %q, got %q", want, dst.Data[:len(want)])
	}
}

func TestDiskSchedulerServesManyRequestsFIFO(t *testing.T) {
	dm, err := NewDiskManager(filepath.Join(t.TempDir(), "sched2.db"), DefaultDiskManagerConfig())
	if err != nil {
		t.Fatalf("NewDiskManager: %v", err)
	}
	t.Cleanup(func() { _ = dm.Close() })

	sched := NewDiskScheduler(dm, 8)
	t.Cleanup(sched.Shutdown)

	const n = 16
	ids := make([]PageID, n)
	for i := 0; i < n; i++ {
		id, err := dm.AllocatePage()
		if err != nil {
			t.Fatalf("AllocatePage: %v", err)
		}
		ids[i] = id
		p := NewPage(id, PageTypeTable)
		p.Data[0] = byte(i)
		sched.ScheduleWrite(p)
	}

	for i, id := range ids {
		dst := NewPage(id, PageTypeTable)
		sched.ScheduleRead(id, dst)
		if dst.Data[0] != byte(i) {
			t.Fatalf("page %d: expected marker %d, got %d", id, i, dst.Data[0])
		}
	}
}
