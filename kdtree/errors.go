package kdtree

import "github.com/rayforge/kdtree/primitive"

// FatalInterpolationError is returned by Tree.IntersectInfo when a hit
// polygon's interpolation cannot locate two bracketing edges. This should
// never happen for a convex polygon that passed validation during
// loading; it exists as a typed, recoverable replacement for the
// unconditional abort the algorithm this package implements used to raise
// on the same condition.
type FatalInterpolationError = primitive.FatalInterpolationError
