// Package primitive implements the two concrete geometric primitives the
// intersection core supports: Triangle and Polygon. Both satisfy the
// Primitive interface, which the kd-tree build and traversal code uses
// without caring which concrete type it holds.
package primitive

import (
	"github.com/rayforge/kdtree/bbox"
	"github.com/rayforge/kdtree/vecmath"
)

// tiny guards the plane-parallel test in ComputeT: |n.D| <= tiny is
// treated as "ray parallel to the primitive's plane".
const tiny = 1e-10

// minCrossLength is the minimum acceptable length of the face-normal
// cross product; below this the primitive is considered degenerate
// (colinear edges) and finalization fails.
const minCrossLength = 1e-9

// Material and Texture are opaque handles the core stores and returns
// unchanged. The core never allocates, frees, or inspects them.
type Material = any
type Texture = any

// Kind discriminates the concrete primitive type behind a Handle.
type Kind int

const (
	KindTriangle Kind = iota
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindTriangle:
		return "Triangle"
	case KindPolygon:
		return "Polygon"
	default:
		return "Unknown"
	}
}

// Primitive is the common surface Triangle and Polygon both implement.
// It is not exported as a constraint on external types: the kd-tree only
// ever stores the two concrete types declared in this package, addressed
// through a Handle.
type Primitive interface {
	BoundingBox() bbox.Box
	ComputeT(ray vecmath.TraversalRay) float64
	SurfaceTest(point vecmath.Vec) bool
	Interpolate(point vecmath.Vec) (Info, error)
	material() Material
	texture() Texture

	// markScratch exposes the per-query visited/tested marks and cached t
	// used by the kd-tree traversal's at-most-once memoization (see
	// kdtree.Tree.Intersect). It is unexported because only this package's
	// Handle and the kdtree package (which imports it for the traversal
	// loop) need to reach into it.
	markScratch() *queryScratch
}

// queryScratch holds the per-primitive, per-query mutable bookkeeping the
// traversal loop uses to guarantee each primitive is plane-tested and
// surface-tested at most once per query. It is intentionally plain mutable
// state rather than a query-local side table: the package's Non-goal is
// concurrent traversal over a shared tree, so the extra indirection a
// side table would need buys nothing.
type queryScratch struct {
	visitedMark uint64
	testedMark  uint64
	cachedT     float64
}

// Info is the shading information returned for a point known to lie on a
// primitive's surface.
type Info struct {
	Normal   vecmath.Vec
	TexCoord vecmath.Vec
	Material Material
	Texture  Texture
}

// Handle is an opaque, comparable identity for a primitive returned from a
// nearest-hit query and accepted as the "ignore" argument on a later
// query. Two handles compare equal with == iff they refer to the same
// primitive.
type Handle struct {
	kind Kind
	tri  *Triangle
	poly *Polygon
}

// Kind reports whether the handle refers to a Triangle or a Polygon.
func (h Handle) Kind() Kind { return h.kind }

// IsZero reports whether the handle refers to no primitive at all (the
// zero value of Handle).
func (h Handle) IsZero() bool { return h.tri == nil && h.poly == nil }

// TriangleHandle wraps a finalized Triangle in a Handle. Callers outside
// this package (the kd-tree builder) use this to store a primitive without
// needing to know the unexported Primitive interface.
func TriangleHandle(t *Triangle) Handle { return Handle{kind: KindTriangle, tri: t} }

// PolygonHandle wraps a finalized Polygon in a Handle.
func PolygonHandle(p *Polygon) Handle { return Handle{kind: KindPolygon, poly: p} }

func (h Handle) resolve() Primitive {
	if h.tri != nil {
		return h.tri
	}
	if h.poly != nil {
		return h.poly
	}
	return nil
}

// ComputeT computes the plane-intersection t value for the primitive
// behind the handle, or -1 if h is the zero handle.
func (h Handle) ComputeT(ray vecmath.TraversalRay) float64 {
	p := h.resolve()
	if p == nil {
		return -1
	}
	return p.ComputeT(ray)
}

// SurfaceTest runs the interior test for the primitive behind the handle.
func (h Handle) SurfaceTest(point vecmath.Vec) bool {
	p := h.resolve()
	if p == nil {
		return false
	}
	return p.SurfaceTest(point)
}

// Interpolate recovers shading attributes at point, which must lie on the
// primitive's surface.
func (h Handle) Interpolate(point vecmath.Vec) (Info, error) {
	p := h.resolve()
	if p == nil {
		return Info{}, nil
	}
	return p.Interpolate(point)
}

// BoundingBox returns the primitive's bounding box.
func (h Handle) BoundingBox() bbox.Box {
	p := h.resolve()
	if p == nil {
		return bbox.Box{}
	}
	return p.BoundingBox()
}

// WasVisited reports whether the primitive's plane was already tested for
// the given query mark.
func (h Handle) WasVisited(mark uint64) bool {
	p := h.resolve()
	return p != nil && p.markScratch().visitedMark == mark
}

// MarkVisited records that the primitive's plane was tested for mark and
// caches t for later reuse within the same query.
func (h Handle) MarkVisited(mark uint64, t float64) {
	if p := h.resolve(); p != nil {
		s := p.markScratch()
		s.visitedMark = mark
		s.cachedT = t
	}
}

// CachedT returns the t value cached by the most recent MarkVisited call.
func (h Handle) CachedT() float64 {
	p := h.resolve()
	if p == nil {
		return -1
	}
	return p.markScratch().cachedT
}

// WasTested reports whether the primitive's surface test already ran (or
// was short-circuited) for the given query mark.
func (h Handle) WasTested(mark uint64) bool {
	p := h.resolve()
	return p != nil && p.markScratch().testedMark == mark
}

// MarkTested records that no further plane or surface testing is needed
// for the primitive during this query.
func (h Handle) MarkTested(mark uint64) {
	if p := h.resolve(); p != nil {
		p.markScratch().testedMark = mark
	}
}

// Material returns the primitive's opaque material handle.
func (h Handle) Material() Material {
	p := h.resolve()
	if p == nil {
		return nil
	}
	return p.material()
}

// Texture returns the primitive's opaque texture handle.
func (h Handle) Texture() Texture {
	p := h.resolve()
	if p == nil {
		return nil
	}
	return p.texture()
}
