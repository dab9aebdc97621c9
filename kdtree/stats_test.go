package kdtree

import (
	"strings"
	"testing"

	"github.com/rayforge/kdtree/primitive"
	"github.com/rayforge/kdtree/vecmath"
)

func TestStatsAccumulateDuringBuildAndQuery(t *testing.T) {
	tree := NewTree(nil)
	tree.Initialize()
	addAxisTriangle(tree, vecmath.Vec{0, 0, 1},
		vecmath.Vec{0, 0, 0}, vecmath.Vec{1, 0, 0}, vecmath.Vec{0, 1, 0})
	tree.LoadingComplete()

	before := tree.Stats()
	if before.Nodes != 1 {
		t.Fatalf("Nodes before any query = %d, want 1 (root only, too few members to split)", before.Nodes)
	}

	ray := vecmath.Ray{Origin: vecmath.Vec{0.25, 0.25, 1}, Direction: vecmath.Vec{0, 0, -1}}
	tree.Intersect(ray, 10, primitive.Handle{})

	after := tree.Stats()
	if after.Tests != before.Tests+1 {
		t.Errorf("Tests = %d, want %d", after.Tests, before.Tests+1)
	}
	if after.ObjTests == 0 {
		t.Error("ObjTests = 0, want at least one object plane test for a hit ray")
	}
}

func TestSnapshotSaveWritesReport(t *testing.T) {
	tree := NewTree(nil)
	tree.Initialize()
	addAxisTriangle(tree, vecmath.Vec{0, 0, 1},
		vecmath.Vec{0, 0, 0}, vecmath.Vec{1, 0, 0}, vecmath.Vec{0, 1, 0})
	tree.LoadingComplete()

	var buf strings.Builder
	if err := tree.SaveStats(&buf); err != nil {
		t.Fatalf("SaveStats() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Polygons:", "Triangles:", "Tree Nodes:", "Tree Depth:", "Intersection Tests:", "Object Tests:", "Surface Tests:", "Average:", "One child:"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q; got:\n%s", want, out)
		}
	}
}
