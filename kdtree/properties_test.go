package kdtree

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/rayforge/kdtree/bbox"
	"github.com/rayforge/kdtree/primitive"
	"github.com/rayforge/kdtree/vecmath"
)

// randomTriangleSoup draws a small, reproducible set of axis-flat triangles
// from a rapid generator: enough to exercise actual splitting without
// pushing case counts (and thus build time) too high per rapid.Check draw.
func randomTriangleSoup(t *rapid.T) []vecmath.Vec {
	n := rapid.IntRange(4, 40).Draw(t, "triangleCount")
	coord := rapid.Float64Range(-50, 50)
	verts := make([]vecmath.Vec, 0, n*3)
	for i := 0; i < n; i++ {
		x := coord.Draw(t, "x")
		y := coord.Draw(t, "y")
		z := coord.Draw(t, "z")
		verts = append(verts,
			vecmath.Vec{x, y, z},
			vecmath.Vec{x + 1, y, z},
			vecmath.Vec{x, y + 1, z},
		)
	}
	return verts
}

func buildFromVerts(verts []vecmath.Vec) *Tree {
	tree := NewTree(nil)
	tree.Initialize()
	for i := 0; i+2 < len(verts); i += 3 {
		addAxisTriangle(tree, vecmath.Vec{0, 0, 1}, verts[i], verts[i+1], verts[i+2])
	}
	tree.LoadingComplete()
	return tree
}

// TestBuildIsDeterministic checks that feeding the same primitive sequence
// and params through two separate trees produces structurally identical
// trees: same node count, same max depth, same per-leaf member counts in
// traversal order.
func TestBuildIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		verts := randomTriangleSoup(t)
		if len(verts) == 0 {
			return
		}

		a := buildFromVerts(verts)
		b := buildFromVerts(verts)

		sa, sb := a.Stats(), b.Stats()
		if sa.Nodes != sb.Nodes || sa.MaxDepth != sb.MaxDepth {
			t.Fatalf("non-deterministic build: (%d,%d) vs (%d,%d)", sa.Nodes, sa.MaxDepth, sb.Nodes, sb.MaxDepth)
		}

		leafSizesA := leafMemberCounts(a.root)
		leafSizesB := leafMemberCounts(b.root)
		if len(leafSizesA) != len(leafSizesB) {
			t.Fatalf("leaf count differs: %d vs %d", len(leafSizesA), len(leafSizesB))
		}
		for i := range leafSizesA {
			if leafSizesA[i] != leafSizesB[i] {
				t.Fatalf("leaf %d member count differs: %d vs %d", i, leafSizesA[i], leafSizesB[i])
			}
		}
	})
}

func leafMemberCounts(n *node) []int {
	if n == nil {
		return nil
	}
	if n.isLeaf() {
		return []int{len(n.members)}
	}
	return append(leafMemberCounts(n.left), leafMemberCounts(n.right)...)
}

// TestNodeBoundsAreContainedInParent checks that every node's box is
// contained in its parent's, and that every leaf member's clipped box
// actually intersects the leaf's own box.
func TestNodeBoundsAreContainedInParent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		verts := randomTriangleSoup(t)
		if len(verts) == 0 {
			return
		}
		tree := buildFromVerts(verts)
		checkNodeBounds(t, tree.root)
	})
}

func checkNodeBounds(t *rapid.T, n *node) {
	if n == nil {
		return
	}
	if n.isLeaf() {
		for i, m := range n.members {
			clipped := m.bbox
			clipped.IntersectWith(n.bbox)
			if clipped.IsEmpty() {
				t.Fatalf("leaf member %d bbox %v does not intersect leaf bbox %v", i, m.bbox, n.bbox)
			}
		}
		return
	}
	if n.left != nil && !boxContains(n.bbox, n.left.bbox) {
		t.Fatalf("left child bbox %v not contained in parent bbox %v", n.left.bbox, n.bbox)
	}
	if n.right != nil && !boxContains(n.bbox, n.right.bbox) {
		t.Fatalf("right child bbox %v not contained in parent bbox %v", n.right.bbox, n.bbox)
	}
	checkNodeBounds(t, n.left)
	checkNodeBounds(t, n.right)
}

func boxContains(outer, inner bbox.Box) bool {
	for axis := vecmath.AxisX; axis <= vecmath.AxisZ; axis++ {
		if inner.Min[axis] < outer.Min[axis]-1e-9 || inner.Max[axis] > outer.Max[axis]+1e-9 {
			return false
		}
	}
	return true
}

// TestIntersectEvaluatesEachPrimitiveAtMostOnce fires a single ray at a
// built tree and confirms that, even though a primitive straddling a split
// plane is referenced from more than one leaf, the mark-based memoization
// keeps its actual ComputeT cost (the Stats ObjTests counter)
// from exceeding the number of distinct primitives in the tree.
func TestIntersectEvaluatesEachPrimitiveAtMostOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		verts := randomTriangleSoup(t)
		if len(verts) == 0 {
			return
		}
		tree := buildFromVerts(verts)
		distinct := distinctHandles(tree.root)

		ox := rapid.Float64Range(-100, 100).Draw(t, "ox")
		oy := rapid.Float64Range(-100, 100).Draw(t, "oy")
		oz := rapid.Float64Range(-100, 100).Draw(t, "oz")
		dx := rapid.Float64Range(-1, 1).Draw(t, "dx")
		dy := rapid.Float64Range(-1, 1).Draw(t, "dy")
		dz := rapid.Float64Range(-1, 1).Draw(t, "dz")
		dir := vecmath.Vec{dx, dy, dz}
		if dir.Len() == 0 {
			return
		}
		dir = dir.Normalize()

		before := tree.Stats()
		ray := vecmath.Ray{Origin: vecmath.Vec{ox, oy, oz}, Direction: dir}
		tree.Intersect(ray, 1000, primitive.Handle{})
		after := tree.Stats()

		if got := after.ObjTests - before.ObjTests; got > int64(len(distinct)) {
			t.Fatalf("ObjTests grew by %d for a single ray, want at most %d (one per distinct primitive)", got, len(distinct))
		}
	})
}

func distinctHandles(n *node) map[primitive.Handle]struct{} {
	out := map[primitive.Handle]struct{}{}
	collectHandles(n, out)
	return out
}

func collectHandles(n *node, out map[primitive.Handle]struct{}) {
	if n == nil {
		return
	}
	if n.isLeaf() {
		for _, m := range n.members {
			out[m.handle] = struct{}{}
		}
		return
	}
	collectHandles(n.left, out)
	collectHandles(n.right, out)
}
