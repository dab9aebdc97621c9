// Package vecmath provides the double-precision vector and ray types used
// by the kd-tree build and traversal pipelines.
//
// The teacher's renderer works in single precision (github.com/go-gl/mathgl/mgl32)
// because it feeds a GPU pipeline. The intersection core needs the extra
// precision of mgl64.Vec3 to keep SAH split coordinates and barycentric
// interpolation stable over large scenes, so this package wraps the
// companion package from the same module.
package vecmath

import "github.com/go-gl/mathgl/mgl64"

// Vec is a 3D double-precision vector. Components are indexed 0, 1, 2.
type Vec = mgl64.Vec3

// Axis names the three component indices, for readability at call sites
// that pick a split dimension or a sweep axis.
type Axis int

const (
	AxisX Axis = 0
	AxisY Axis = 1
	AxisZ Axis = 2
)

// Ray is a 3D ray with an origin and a direction.
type Ray struct {
	Origin    Vec
	Direction Vec
}

// PointAt returns the point on the ray at parameter t.
func (r Ray) PointAt(t float64) Vec {
	return r.Origin.Add(r.Direction.Mul(t))
}

// TraversalRay is the traversal-internal form of a ray: it precomputes the
// componentwise inverse of the direction for the bounding-box slab test and
// the kd-tree split-plane arithmetic. Direction components may be exactly
// zero; the resulting inverse is +Inf or -Inf per IEEE-754, and both the
// slab test and the split-plane code rely on that behavior instead of
// special-casing it.
type TraversalRay struct {
	Origin       Vec
	Direction    Vec
	InvDirection Vec
}

// NewTraversalRay prepares a ray for kd-tree traversal.
func NewTraversalRay(r Ray) TraversalRay {
	return TraversalRay{
		Origin:    r.Origin,
		Direction: r.Direction,
		InvDirection: Vec{
			1 / r.Direction[0],
			1 / r.Direction[1],
			1 / r.Direction[2],
		},
	}
}

// PointAt returns the point on the ray at parameter t.
func (r TraversalRay) PointAt(t float64) Vec {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Ray strips the traversal bookkeeping back down to a plain Ray.
func (r TraversalRay) Ray() Ray {
	return Ray{Origin: r.Origin, Direction: r.Direction}
}
