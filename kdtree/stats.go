package kdtree

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Stats accumulates build and query counters for a Tree. All fields are
// updated with atomic operations so a Stats can be read (via Snapshot)
// while queries are not running concurrently with it, consistent with the
// package's single-traversal-at-a-time contract.
type Stats struct {
	nodes         int64
	maxDepth      int64
	tests         int64
	objTests      int64
	surfaceTests  int64
	oneChildNodes int64
}

func (s *Stats) addNodes(n int)    { atomic.AddInt64(&s.nodes, int64(n)) }
func (s *Stats) addTest()          { atomic.AddInt64(&s.tests, 1) }
func (s *Stats) addObjTest()       { atomic.AddInt64(&s.objTests, 1) }
func (s *Stats) addSurfaceTest()   { atomic.AddInt64(&s.surfaceTests, 1) }
func (s *Stats) addOneChild(n int) { atomic.AddInt64(&s.oneChildNodes, int64(n)) }

// recordDepth bumps maxDepth to d if d is larger, racing safely against
// concurrent callers via a compare-and-swap retry loop.
func (s *Stats) recordDepth(d int) {
	for {
		cur := atomic.LoadInt64(&s.maxDepth)
		if int64(d) <= cur || atomic.CompareAndSwapInt64(&s.maxDepth, cur, int64(d)) {
			return
		}
	}
}

// Snapshot is a point-in-time, non-atomic copy of Stats suitable for
// printing or comparing in tests.
type Snapshot struct {
	Nodes         int64
	MaxDepth      int64
	Tests         int64
	ObjTests      int64
	SurfaceTests  int64
	OneChildNodes int64
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Nodes:         atomic.LoadInt64(&s.nodes),
		MaxDepth:      atomic.LoadInt64(&s.maxDepth),
		Tests:         atomic.LoadInt64(&s.tests),
		ObjTests:      atomic.LoadInt64(&s.objTests),
		SurfaceTests:  atomic.LoadInt64(&s.surfaceTests),
		OneChildNodes: atomic.LoadInt64(&s.oneChildNodes),
	}
}

// Save writes a human-readable report of the snapshot to w, in the same
// shape the algorithm this package implements has always written to
// stats.txt, but to an arbitrary writer instead of a hardcoded path.
func (s Snapshot) Save(w io.Writer, numPolygons, numTriangles int) error {
	avg := float64(0)
	if s.Tests > 0 {
		avg = float64(s.SurfaceTests) / float64(s.Tests)
	}
	_, err := fmt.Fprintf(w,
		"Polygons:  %d\nTriangles:  %d\nTree Nodes:  %d\nTree Depth:  %d\nIntersection Tests:  %d\nObject Tests:  %d\nSurface Tests:  %d\nAverage:  %v\nOne child:  %d\n",
		numPolygons, numTriangles, s.Nodes, s.MaxDepth, s.Tests, s.ObjTests, s.SurfaceTests, avg, s.OneChildNodes)
	return err
}
