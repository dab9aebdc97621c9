package kdtree

import (
	"math"
	"testing"

	"github.com/rayforge/kdtree/primitive"
	"github.com/rayforge/kdtree/vecmath"
)

func addAxisTriangle(t *Tree, normal vecmath.Vec, verts ...vecmath.Vec) {
	t.TriangleBegin()
	t.Normal(normal)
	for _, v := range verts {
		t.Vertex(v)
	}
	t.TriangleEnd()
}

// Scenario 1: single axis-aligned triangle, straight-down ray hits it.
func TestIntersectSingleTriangle(t *testing.T) {
	tree := NewTree(nil)
	tree.Initialize()
	addAxisTriangle(tree, vecmath.Vec{0, 0, 1},
		vecmath.Vec{0, 0, 0}, vecmath.Vec{1, 0, 0}, vecmath.Vec{0, 1, 0})
	tree.LoadingComplete()

	ray := vecmath.Ray{Origin: vecmath.Vec{0.25, 0.25, 1}, Direction: vecmath.Vec{0, 0, -1}}
	hit, dist, point, ok := tree.Intersect(ray, 10, primitive.Handle{})
	if !ok {
		t.Fatal("expected a hit")
	}
	if math.Abs(dist-1) > 1e-9 {
		t.Errorf("dist = %v, want 1", dist)
	}
	want := vecmath.Vec{0.25, 0.25, 0}
	if point.Sub(want).Len() > 1e-9 {
		t.Errorf("point = %v, want %v", point, want)
	}

	info, err := tree.IntersectInfo(ray, hit, dist)
	if err != nil {
		t.Fatalf("IntersectInfo() error = %v", err)
	}
	if info.Normal != (vecmath.Vec{0, 0, 1}) {
		t.Errorf("Normal = %v, want (0,0,1)", info.Normal)
	}
}

// Scenario 2: the same ray, with the hit triangle passed as ignore, misses.
func TestIntersectIgnoreExcludesHandle(t *testing.T) {
	tree := NewTree(nil)
	tree.Initialize()
	addAxisTriangle(tree, vecmath.Vec{0, 0, 1},
		vecmath.Vec{0, 0, 0}, vecmath.Vec{1, 0, 0}, vecmath.Vec{0, 1, 0})
	tree.LoadingComplete()

	ray := vecmath.Ray{Origin: vecmath.Vec{0.25, 0.25, 1}, Direction: vecmath.Vec{0, 0, -1}}
	hit, _, _, ok := tree.Intersect(ray, 10, primitive.Handle{})
	if !ok {
		t.Fatal("expected a first hit to establish the handle to ignore")
	}

	_, _, _, ok = tree.Intersect(ray, 10, hit)
	if ok {
		t.Fatal("expected a miss once the only triangle along the ray is ignored")
	}
}

// Scenario 3: two parallel triangles; nearest (higher z) wins.
func TestIntersectNearestOfTwoParallel(t *testing.T) {
	tree := NewTree(nil)
	tree.Initialize()
	addAxisTriangle(tree, vecmath.Vec{0, 0, 1},
		vecmath.Vec{-5, -5, 0}, vecmath.Vec{5, -5, 0}, vecmath.Vec{5, 5, 0})
	addAxisTriangle(tree, vecmath.Vec{0, 0, 1},
		vecmath.Vec{-5, -5, 1}, vecmath.Vec{5, -5, 1}, vecmath.Vec{5, 5, 1})
	tree.LoadingComplete()

	ray := vecmath.Ray{Origin: vecmath.Vec{0.25, 0.25, 5}, Direction: vecmath.Vec{0, 0, -1}}
	_, dist, _, ok := tree.Intersect(ray, 100, primitive.Handle{})
	if !ok {
		t.Fatal("expected a hit")
	}
	if math.Abs(dist-4) > 1e-9 {
		t.Errorf("dist = %v, want 4 (the z=1 triangle)", dist)
	}
}

// Scenario 4: a ray with a zero direction component against a unit cube
// made of 12 triangles, hitting the +x face.
func TestIntersectZeroDirectionComponent(t *testing.T) {
	tree := NewTree(nil)
	tree.Initialize()
	addUnitCube(tree)
	tree.LoadingComplete()

	ray := vecmath.Ray{Origin: vecmath.Vec{0.5, 0.5, 0}, Direction: vecmath.Vec{1, 0, 0}}
	_, dist, point, ok := tree.Intersect(ray, 10, primitive.Handle{})
	if !ok {
		t.Fatal("expected a hit on the +x face")
	}
	if math.Abs(dist-0.5) > 1e-9 {
		t.Errorf("dist = %v, want 0.5", dist)
	}
	if math.Abs(point[0]-1) > 1e-9 {
		t.Errorf("point.x = %v, want 1 (the +x face)", point[0])
	}
}

// addUnitCube streams a unit cube [0,1]^3 in as 12 triangles (2 per face).
func addUnitCube(t *Tree) {
	type face struct {
		normal           vecmath.Vec
		a, b, c, d       vecmath.Vec
	}
	faces := []face{
		{vecmath.Vec{1, 0, 0}, vecmath.Vec{1, 0, 0}, vecmath.Vec{1, 1, 0}, vecmath.Vec{1, 1, 1}, vecmath.Vec{1, 0, 1}},
		{vecmath.Vec{-1, 0, 0}, vecmath.Vec{0, 0, 1}, vecmath.Vec{0, 1, 1}, vecmath.Vec{0, 1, 0}, vecmath.Vec{0, 0, 0}},
		{vecmath.Vec{0, 1, 0}, vecmath.Vec{0, 1, 0}, vecmath.Vec{0, 1, 1}, vecmath.Vec{1, 1, 1}, vecmath.Vec{1, 1, 0}},
		{vecmath.Vec{0, -1, 0}, vecmath.Vec{0, 0, 1}, vecmath.Vec{0, 0, 0}, vecmath.Vec{1, 0, 0}, vecmath.Vec{1, 0, 1}},
		{vecmath.Vec{0, 0, 1}, vecmath.Vec{0, 0, 1}, vecmath.Vec{1, 0, 1}, vecmath.Vec{1, 1, 1}, vecmath.Vec{0, 1, 1}},
		{vecmath.Vec{0, 0, -1}, vecmath.Vec{0, 1, 0}, vecmath.Vec{1, 1, 0}, vecmath.Vec{1, 0, 0}, vecmath.Vec{0, 0, 0}},
	}
	for _, f := range faces {
		addAxisTriangle(t, f.normal, f.a, f.b, f.c)
		addAxisTriangle(t, f.normal, f.a, f.c, f.d)
	}
}

// Scenario 5: a non-planar quad loaded via PolygonBegin/PolygonEnd is
// converted into a triangle fan and still reports a hit.
func TestPolygonEndRewritesNonPlanarQuadToFan(t *testing.T) {
	tree := NewTree(nil)
	tree.Initialize()

	tree.PolygonBegin()
	tree.Normal(vecmath.Vec{0, 0, 1})
	tree.Vertex(vecmath.Vec{0, 0, 0})
	tree.Vertex(vecmath.Vec{1, 0, 0})
	tree.Vertex(vecmath.Vec{1, 1, 0.2})
	tree.Vertex(vecmath.Vec{0, 1, 0})
	tree.PolygonEnd()

	if len(tree.polygons) != 0 {
		t.Fatalf("len(polygons) = %d, want 0 (non-planar quad should be rewritten to triangles)", len(tree.polygons))
	}
	if len(tree.triangles) != 2 {
		t.Fatalf("len(triangles) = %d, want 2 (fan of 2 triangles)", len(tree.triangles))
	}

	tree.LoadingComplete()

	ray := vecmath.Ray{Origin: vecmath.Vec{0.25, 0.75, 5}, Direction: vecmath.Vec{0, 0, -1}}
	_, dist, _, ok := tree.Intersect(ray, 100, primitive.Handle{})
	if !ok {
		t.Fatal("expected a hit on the rewritten fan")
	}
	if math.Abs(dist-5) > 0.25 {
		t.Errorf("dist = %v, want close to 5 (the quad sits near z=0, with one corner raised to z=0.2)", dist)
	}
}

// Scenario: a planar 3-corner polygon is rewritten into a single triangle.
func TestPolygonEndRewritesTriangleCorner(t *testing.T) {
	tree := NewTree(nil)
	tree.Initialize()

	tree.PolygonBegin()
	tree.Normal(vecmath.Vec{0, 0, 1})
	tree.Vertex(vecmath.Vec{0, 0, 0})
	tree.Vertex(vecmath.Vec{1, 0, 0})
	tree.Vertex(vecmath.Vec{0, 1, 0})
	tree.PolygonEnd()

	if len(tree.polygons) != 0 {
		t.Fatalf("len(polygons) = %d, want 0 (3-corner polygon should become a Triangle)", len(tree.polygons))
	}
	if len(tree.triangles) != 1 {
		t.Fatalf("len(triangles) = %d, want 1", len(tree.triangles))
	}
}

// Scenario 6: many stacked planar triangles trigger a SAH split, and the
// nearest (highest z) one is still reported correctly.
func TestIntersectManyStackedTriangles(t *testing.T) {
	tree := NewTree(nil)
	tree.Initialize()
	const n = 50
	for i := 0; i < n; i++ {
		z := float64(i) * 0.1
		addAxisTriangle(tree, vecmath.Vec{0, 0, 1},
			vecmath.Vec{-1, -1, z}, vecmath.Vec{1, -1, z}, vecmath.Vec{1, 1, z})
	}
	tree.LoadingComplete()

	ray := vecmath.Ray{Origin: vecmath.Vec{0, 0, 100}, Direction: vecmath.Vec{0, 0, -1}}
	_, dist, _, ok := tree.Intersect(ray, 1000, primitive.Handle{})
	if !ok {
		t.Fatal("expected a hit")
	}
	wantZ := float64(n-1) * 0.1
	if math.Abs((100-dist)-wantZ) > 1e-6 {
		t.Errorf("hit z = %v, want %v (the highest stacked triangle)", 100-dist, wantZ)
	}

	st := tree.Stats()
	if st.Nodes <= 1 {
		t.Errorf("Nodes = %d, want the tree to have actually split", st.Nodes)
	}
}

func TestIntersectBeforeLoadingCompletePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Intersect before LoadingComplete to panic")
		}
	}()
	tree := NewTree(nil)
	tree.Intersect(vecmath.Ray{}, 1, primitive.Handle{})
}

func TestLoadingCompleteWithNoGeometryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected LoadingComplete with no geometry to panic")
		}
	}()
	tree := NewTree(nil)
	tree.Initialize()
	tree.LoadingComplete()
}

func TestSceneBoundingBoxCoversAllGeometry(t *testing.T) {
	tree := NewTree(nil)
	tree.Initialize()
	addUnitCube(tree)
	tree.LoadingComplete()

	box := tree.SceneBoundingBox()
	if box.Min != (vecmath.Vec{0, 0, 0}) || box.Max != (vecmath.Vec{1, 1, 1}) {
		t.Fatalf("SceneBoundingBox() = %v, want [0,0,0]-[1,1,1]", box)
	}
}
