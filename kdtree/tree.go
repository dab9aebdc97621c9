// Package kdtree implements a kd-tree acceleration structure for ray/geometry
// intersection queries over a static scene of triangles and polygons, built
// with the surface area heuristic (SAH).
//
// Usage mirrors the C/C++ intersection libraries this package's algorithm is
// descended from:
//
//  1. Call NewTree to get an empty Tree.
//  2. Stream geometry in: for each primitive, call PolygonBegin or
//     TriangleBegin, then Vertex/Normal/TexVertex/Material/Texture as
//     needed, then PolygonEnd or TriangleEnd.
//  3. Call LoadingComplete once all geometry has been streamed in.
//  4. Call Intersect to find the nearest hit along a ray, and IntersectInfo
//     to recover shading data for a hit returned by Intersect.
//
// A Tree is not safe for concurrent use: Intersect mutates per-primitive
// scratch state (see package primitive) to memoize plane and surface tests
// within a single query, and that memoization is not synchronized.
package kdtree

import (
	"io"

	"github.com/rayforge/kdtree/bbox"
	"github.com/rayforge/kdtree/internal/profiling"
	"github.com/rayforge/kdtree/primitive"
	"github.com/rayforge/kdtree/vecmath"
)

// loadState tracks what, if anything, is currently being streamed in.
type loadState int

const (
	loadNone loadState = iota
	loadPolygon
	loadTriangle
)

// Tree is a kd-tree over a static set of triangles and polygons.
type Tree struct {
	params *Params
	stats  Stats

	state   loadState
	curPoly *primitive.Polygon
	curTri  *primitive.Triangle

	polygons  []*primitive.Polygon
	triangles []*primitive.Triangle

	sceneBB bbox.Box
	root    *node

	built bool
	mark  uint64
}

// NewTree returns an empty Tree configured with params. If params is nil,
// NewParams's defaults are used.
func NewTree(params *Params) *Tree {
	if params == nil {
		params = NewParams()
	}
	return &Tree{params: params, mark: 1}
}

// Params returns the Tree's build parameter set.
func (t *Tree) Params() *Params { return t.params }

// Stats returns a snapshot of the Tree's build and query counters.
func (t *Tree) Stats() Snapshot { return t.stats.Snapshot() }

// SaveStats writes a human-readable stats report, in the classic
// Polygons/Triangles/Tree Nodes/... shape, to w.
func (t *Tree) SaveStats(w io.Writer) error {
	return t.stats.Snapshot().Save(w, len(t.polygons), len(t.triangles))
}

// Initialize discards any loaded geometry and any built tree, returning
// the Tree to its construction-time state.
func (t *Tree) Initialize() {
	t.state = loadNone
	t.curPoly = nil
	t.curTri = nil
	t.polygons = nil
	t.triangles = nil
	t.sceneBB = bbox.Box{}
	t.root = nil
	t.built = false
	t.mark = 1
	t.stats = Stats{}
}

// PolygonBegin starts streaming in a new polygon.
func (t *Tree) PolygonBegin() {
	t.curPoly = &primitive.Polygon{}
	t.state = loadPolygon
}

// TriangleBegin starts streaming in a new triangle.
func (t *Tree) TriangleBegin() {
	t.curTri = &primitive.Triangle{}
	t.state = loadTriangle
}

// Vertex adds a vertex to the primitive currently being streamed in. It
// panics if called outside a Begin/End pair, since that indicates a
// programming error in the caller's loading sequence.
func (t *Tree) Vertex(v vecmath.Vec) {
	switch t.state {
	case loadPolygon:
		t.curPoly.AddVertex(v)
	case loadTriangle:
		t.curTri.AddVertex(v)
	default:
		panic("kdtree: Vertex called with no polygon or triangle being loaded")
	}
}

// Normal adds a normal to the primitive currently being streamed in.
func (t *Tree) Normal(n vecmath.Vec) {
	switch t.state {
	case loadPolygon:
		t.curPoly.AddNormal(n)
	case loadTriangle:
		t.curTri.AddNormal(n)
	default:
		panic("kdtree: Normal called with no polygon or triangle being loaded")
	}
}

// TexVertex adds a texture coordinate to the primitive currently being
// streamed in.
func (t *Tree) TexVertex(tc vecmath.Vec) {
	switch t.state {
	case loadPolygon:
		t.curPoly.AddTexVertex(tc)
	case loadTriangle:
		t.curTri.AddTexVertex(tc)
	default:
		panic("kdtree: TexVertex called with no polygon or triangle being loaded")
	}
}

// Material sets the material for the primitive currently being streamed
// in.
func (t *Tree) Material(m primitive.Material) {
	switch t.state {
	case loadPolygon:
		t.curPoly.SetMaterial(m)
	case loadTriangle:
		t.curTri.SetMaterial(m)
	default:
		panic("kdtree: Material called with no polygon or triangle being loaded")
	}
}

// Texture sets the texture for the primitive currently being streamed in.
func (t *Tree) Texture(tex primitive.Texture) {
	switch t.state {
	case loadPolygon:
		t.curPoly.SetTexture(tex)
	case loadTriangle:
		t.curTri.SetTexture(tex)
	default:
		panic("kdtree: Texture called with no polygon or triangle being loaded")
	}
}

// TriangleEnd finishes the triangle currently being streamed in. An
// invalid triangle (degenerate, or missing a normal) is silently dropped:
// bad input data is common enough in streamed scene geometry that failing
// the whole load would be disproportionate.
func (t *Tree) TriangleEnd() {
	if t.state != loadTriangle {
		return
	}
	t.state = loadNone
	tri := t.curTri
	t.curTri = nil
	if !tri.Finalize() {
		return
	}
	t.triangles = append(t.triangles, tri)
}

// PolygonEnd finishes the polygon currently being streamed in. An invalid
// polygon is silently dropped, for the same reason as in TriangleEnd.
//
// A successfully finalized polygon with exactly 3 corners is rewritten
// into a single Triangle, and one with more than 3 corners that turns out
// not to be planar is rewritten into a triangle fan anchored at its first
// vertex. Both rewrites recurse through TriangleBegin/Vertex/.../TriangleEnd
// rather than constructing a Triangle directly, so the rewritten geometry
// goes through the exact same validation a directly-streamed triangle does.
func (t *Tree) PolygonEnd() {
	if t.state != loadPolygon {
		return
	}
	t.state = loadNone
	poly := t.curPoly
	t.curPoly = nil
	if !poly.Finalize() {
		return
	}

	switch {
	case poly.CoreVertexCount() == 3:
		t.rewriteTriangle(poly, 0, 1, 2)
		return
	case poly.CoreVertexCount() > 3:
		const planarityTolerance = 0.01
		for i := 0; i < poly.CoreVertexCount(); i++ {
			r := poly.PlanarityResidual(i)
			if r < -planarityTolerance || r > planarityTolerance {
				t.rewriteFan(poly)
				return
			}
		}
	}

	t.polygons = append(t.polygons, poly)
}

// rewriteTriangle streams a, b, c (indices into poly's core vertex data)
// back in as a standalone Triangle. Only the first corner emits the
// polygon's shared normal when it has just one rather than one per
// vertex: Triangle.Finalize fills in the other two from it, matching how
// a flat-shaded polygon's single normal propagates to its split triangles.
func (t *Tree) rewriteTriangle(poly *primitive.Polygon, a, b, c int) {
	t.TriangleBegin()
	t.Material(poly.Material())
	t.Texture(poly.Texture())
	t.addPolygonCorner(poly, a, true)
	t.addPolygonCorner(poly, b, false)
	t.addPolygonCorner(poly, c, false)
	t.TriangleEnd()
}

// rewriteFan rewrites a non-planar polygon into a fan of triangles
// anchored at its first corner.
func (t *Tree) rewriteFan(poly *primitive.Polygon) {
	for c := 2; c < poly.CoreVertexCount(); c++ {
		t.rewriteTriangle(poly, 0, c-1, c)
	}
}

// addPolygonCorner streams corner i of poly into the triangle currently
// being loaded. first marks the triangle's first corner, the only one
// that carries a shared (non-per-vertex) normal forward.
func (t *Tree) addPolygonCorner(poly *primitive.Polygon, i int, first bool) {
	if tc, ok := poly.CoreTexCoord(i); ok {
		t.TexVertex(tc)
	}
	if n, ok := poly.CoreNormal(i); ok {
		t.Normal(n)
	} else if first {
		if n, ok := poly.SharedNormal(); ok {
			t.Normal(n)
		}
	}
	t.Vertex(poly.CoreVertex(i))
}

// LoadingComplete finalizes the scene: it computes the overall scene
// bounding box and builds the kd-tree. It must be called exactly once,
// after all geometry has been streamed in, before Intersect is used.
func (t *Tree) LoadingComplete() {
	defer profiling.Track("kdtree.Tree.LoadingComplete")()

	if len(t.polygons)+len(t.triangles) == 0 {
		panic("kdtree: LoadingComplete called with no geometry loaded")
	}

	t.determineExtents()
	t.build()
	t.built = true
}

func (t *Tree) determineExtents() {
	first := true
	include := func(v vecmath.Vec) {
		if first {
			t.sceneBB = bbox.FromPoint(v)
			first = false
			return
		}
		t.sceneBB.Include(v)
	}

	for _, p := range t.polygons {
		for i := 0; i < p.CoreVertexCount(); i++ {
			include(p.CoreVertex(i))
		}
	}
	for _, tr := range t.triangles {
		include(tr.Vertex(0))
		include(tr.Vertex(1))
		include(tr.Vertex(2))
	}
}

func (t *Tree) build() {
	defer profiling.Track("kdtree.Tree.build")()

	t.root = &node{bbox: t.sceneBB, depth: 0}
	t.stats.addNodes(1)
	t.stats.recordDepth(1)

	for _, p := range t.polygons {
		t.root.add(primitive.PolygonHandle(p))
	}
	for _, tr := range t.triangles {
		t.root.add(primitive.TriangleHandle(tr))
	}

	t.root.subdivide(t.params.snapshot(), &t.stats)

	t.tallyOneChildNodes(t.root)
}

// tallyOneChildNodes walks the built tree purely for statistics: it counts
// interior nodes that ended up with only one non-empty child, which is a
// sign the split points chosen were not well matched to the geometry.
func (t *Tree) tallyOneChildNodes(n *node) {
	if n == nil || n.isLeaf() {
		return
	}
	if n.left == nil || n.right == nil {
		t.stats.addOneChild(1)
	}
	t.tallyOneChildNodes(n.left)
	t.tallyOneChildNodes(n.right)
}
