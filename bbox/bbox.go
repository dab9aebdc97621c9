// Package bbox implements the axis-aligned bounding box used to clip the
// scene and to bound kd-tree nodes and primitives.
package bbox

import "github.com/rayforge/kdtree/vecmath"

// Box is an axis-aligned bounding box. The zero value is the canonical
// empty box: Min == Max == (0,0,0).
type Box struct {
	Min vecmath.Vec
	Max vecmath.Vec
}

// FromPoint returns a degenerate box containing exactly one point.
func FromPoint(p vecmath.Vec) Box {
	return Box{Min: p, Max: p}
}

// IsEmpty reports whether the box is empty: some axis is inverted
// (Min > Max), or no axis has Min < Max (which covers a single point and
// the canonical zero box). A box that is flat on one or two axes, such as
// the box of an axis-aligned triangle, is not empty, so planar members
// survive being clipped to a kd-tree node.
func (b Box) IsEmpty() bool {
	if b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2] {
		return true
	}
	return b.Min[0] >= b.Max[0] && b.Min[1] >= b.Max[1] && b.Min[2] >= b.Max[2]
}

// Include extends the box to also cover p.
func (b *Box) Include(p vecmath.Vec) {
	for d := 0; d < 3; d++ {
		if p[d] < b.Min[d] {
			b.Min[d] = p[d]
		}
		if p[d] > b.Max[d] {
			b.Max[d] = p[d]
		}
	}
}

// IncludeBox extends the box to also cover other.
func (b *Box) IncludeBox(other Box) {
	b.Include(other.Min)
	b.Include(other.Max)
}

// IntersectWith replaces b with the intersection of b and other. When the
// intersection is empty (see IsEmpty) the result is canonicalized to the
// empty box (Min == Max == origin), matching the "magic value" empty
// representation the spec keeps deliberately instead of an Option[Box].
func (b *Box) IntersectWith(other Box) {
	for d := 0; d < 3; d++ {
		if other.Min[d] > b.Min[d] {
			b.Min[d] = other.Min[d]
		}
		if other.Max[d] < b.Max[d] {
			b.Max[d] = other.Max[d]
		}
	}
	if b.IsEmpty() {
		b.Min = vecmath.Vec{}
		b.Max = vecmath.Vec{}
	}
}

// Intersect returns the intersection of a and b without mutating either.
func Intersect(a, b Box) Box {
	out := a
	out.IntersectWith(b)
	return out
}

// Extent returns the per-axis size of the box.
func (b Box) Extent() vecmath.Vec {
	return b.Max.Sub(b.Min)
}

// SurfaceArea returns the SAH half-surface-area proxy for the box's
// extent: wh + wd + hd. It is only ever used in relative cost comparisons,
// so the missing factor of 2 does not matter.
func (b Box) SurfaceArea() float64 {
	return surfaceArea(b.Extent())
}

func surfaceArea(e vecmath.Vec) float64 {
	return e[0]*e[1] + e[0]*e[2] + e[1]*e[2]
}

// SurfaceAreaOfExtent exposes the same half-surface-area proxy for an
// extent vector that was not necessarily derived from a Box, which the
// SAH split-cost evaluation needs while sweeping a single axis.
func SurfaceAreaOfExtent(e vecmath.Vec) float64 {
	return surfaceArea(e)
}

// IntersectTest reports whether the ray, restricted to parameters
// [t0, t1], intersects the box. This is the classical Smits slab method
// using the ray's precomputed inverse direction; it behaves correctly
// even when a direction component is exactly zero, because division by
// zero follows IEEE-754 and produces +/-Inf, which makes the
// corresponding slab interval degenerate to (-Inf, Inf) or empty as
// appropriate.
//
// The kd-tree traversal in this module does NOT call IntersectTest: it
// computes its own tNear/tFar directly from the scene box and split
// planes (see kdtree.Tree.Intersect), exactly as in the source
// implementation, where the equivalent per-node slab test exists but is
// commented out of the hot traversal path. IntersectTest is kept (and
// tested) because it's part of the documented bounding-box contract and
// a useful standalone tool, not because traversal depends on it.
func (b Box) IntersectTest(ray vecmath.TraversalRay, t0, t1 float64) bool {
	var tmin, tmax float64
	if ray.InvDirection[0] < 0 {
		tmin = (b.Max[0] - ray.Origin[0]) * ray.InvDirection[0]
		tmax = (b.Min[0] - ray.Origin[0]) * ray.InvDirection[0]
	} else {
		tmin = (b.Min[0] - ray.Origin[0]) * ray.InvDirection[0]
		tmax = (b.Max[0] - ray.Origin[0]) * ray.InvDirection[0]
	}

	var tymin, tymax float64
	if ray.InvDirection[1] < 0 {
		tymin = (b.Max[1] - ray.Origin[1]) * ray.InvDirection[1]
		tymax = (b.Min[1] - ray.Origin[1]) * ray.InvDirection[1]
	} else {
		tymin = (b.Min[1] - ray.Origin[1]) * ray.InvDirection[1]
		tymax = (b.Max[1] - ray.Origin[1]) * ray.InvDirection[1]
	}

	if tmin > tymax || tymin > tmax {
		return false
	}
	if tymin > tmin {
		tmin = tymin
	}
	if tymax < tmax {
		tmax = tymax
	}

	var tzmin, tzmax float64
	if ray.InvDirection[2] < 0 {
		tzmin = (b.Max[2] - ray.Origin[2]) * ray.InvDirection[2]
		tzmax = (b.Min[2] - ray.Origin[2]) * ray.InvDirection[2]
	} else {
		tzmin = (b.Min[2] - ray.Origin[2]) * ray.InvDirection[2]
		tzmax = (b.Max[2] - ray.Origin[2]) * ray.InvDirection[2]
	}

	if tmin > tzmax || tzmin > tmax {
		return false
	}
	if tzmin > tmin {
		tmin = tzmin
	}
	if tzmax < tmax {
		tmax = tzmax
	}

	return tmin < t1 && tmax > t0
}
