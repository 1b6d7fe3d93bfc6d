package optimizer

import (
	"github.com/relcore-db/relcore/pkg/catalog"
	"github.com/relcore-db/relcore/pkg/exec"
	"github.com/relcore-db/relcore/pkg/heap"
)

// limitExecutor caps its child's output at n rows. It only appears in
// a built tree when a Limit node survives without a Sort beneath it to
// fold into; RewriteSortLimitAsTopN removes the common Sort+Limit
// pairing before Build ever sees it.
type limitExecutor struct {
	child exec.Executor
	n     int
	count int
}

func (l *limitExecutor) Init() error { l.count = 0; return l.child.Init() }

func (l *limitExecutor) Next() (catalog.Tuple, heap.RID, bool, error) {
	if l.count >= l.n {
		return catalog.Tuple{}, heap.RID{}, false, nil
	}
	tup, rid, ok, err := l.child.Next()
	if err != nil || !ok {
		return catalog.Tuple{}, heap.RID{}, false, err
	}
	l.count++
	return tup, rid, true, nil
}
