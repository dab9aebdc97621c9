package kdtree

import (
	"github.com/rayforge/kdtree/internal/profiling"
	"github.com/rayforge/kdtree/primitive"
	"github.com/rayforge/kdtree/vecmath"
)

// tiny guards the near/far clip against round-off that would otherwise
// miss a valid intersection sitting exactly on the scene box boundary.
const tiny = 1e-10

// stackItem is one pending subtree in the traversal stack: a node plus
// the [tNear, tFar] range of the ray still to be considered within it.
type stackItem struct {
	n     *node
	tNear float64
	tFar  float64
}

// Intersect finds the nearest primitive hit by ray within [0, maxT],
// other than ignore (which may be the zero Handle to ignore nothing). It
// reports the hit primitive, the distance along the ray, and the world
// space intersection point.
//
// It panics if LoadingComplete has not been called: querying an
// unfinished tree is a programming error, not a recoverable input
// condition.
func (t *Tree) Intersect(ray vecmath.Ray, maxT float64, ignore primitive.Handle) (hit primitive.Handle, dist float64, point vecmath.Vec, ok bool) {
	if !t.built {
		panic("kdtree: Intersect called before LoadingComplete")
	}
	defer profiling.Track("kdtree.Tree.Intersect")()

	t.stats.addTest()
	t.mark++
	mark := t.mark

	tr := vecmath.NewTraversalRay(ray)

	tNear := tiny
	tFar := maxT

	sceneBB := t.root.bbox
	for d := vecmath.AxisX; d <= vecmath.AxisZ; d++ {
		rFm := tr.Origin[d] + tNear*tr.Direction[d]
		rTo := tr.Origin[d] + tFar*tr.Direction[d]

		switch {
		case rTo < rFm:
			if rFm > sceneBB.Max[d] {
				tNear = (sceneBB.Max[d] - tr.Origin[d]) / tr.Direction[d]
			}
			if rTo < sceneBB.Min[d] {
				tFar = (sceneBB.Min[d] - tr.Origin[d]) / tr.Direction[d]
			}
		case rFm < rTo:
			if rFm < sceneBB.Min[d] {
				tNear = (sceneBB.Min[d] - tr.Origin[d]) / tr.Direction[d]
			}
			if rTo > sceneBB.Max[d] {
				tFar = (sceneBB.Max[d] - tr.Origin[d]) / tr.Direction[d]
			}
		default:
			if rFm < sceneBB.Min[d] || rFm > sceneBB.Max[d] {
				return primitive.Handle{}, 0, vecmath.Vec{}, false
			}
		}

		if tNear > tFar {
			return primitive.Handle{}, 0, vecmath.Vec{}, false
		}
	}

	tNear -= tiny
	tFar += tiny
	if tFar > maxT {
		tFar = maxT
	}

	nearestT := tFar
	var nearestP primitive.Handle

	var stack []stackItem
	pop := false
	cur := t.root
	curNear := tNear
	curFar := tFar

	for {
		if pop {
			if len(stack) == 0 {
				break
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cur, curNear, curFar = top.n, top.tNear, top.tFar
		}

		pop = true
		if curNear >= nearestT {
			continue
		}

		if cur.isLeaf() {
			for i := range cur.members {
				h := cur.members[i].handle

				if h.WasTested(mark) {
					continue
				}
				if h == ignore {
					h.MarkTested(mark)
					continue
				}

				var hitT float64
				if h.WasVisited(mark) {
					hitT = h.CachedT()
					if hitT >= nearestT {
						continue
					}
				} else {
					t.stats.addObjTest()
					hitT = h.ComputeT(tr)
					h.MarkVisited(mark, hitT)
					if hitT < tNear || hitT >= nearestT {
						h.MarkTested(mark)
						continue
					}
				}

				if hitT > curFar {
					continue
				}

				h.MarkTested(mark)

				p := tr.PointAt(hitT)
				t.stats.addSurfaceTest()
				if !h.SurfaceTest(p) {
					continue
				}

				nearestT = hitT
				nearestP = h
			}
			continue
		}

		dim := cur.splitDim
		splitPoint := cur.splitPoint

		rFm := tr.Origin[dim] + tr.Direction[dim]*curNear
		rTo := tr.Origin[dim] + tr.Direction[dim]*curFar

		left := cur.left
		right := cur.right

		switch {
		case left == nil:
			switch {
			case rFm < splitPoint && rTo < splitPoint:
				continue
			case (rFm > splitPoint && rTo > splitPoint) || rFm == rTo:
				cur, pop = right, false
			default:
				tAtSplit := (splitPoint - tr.Origin[dim]) / tr.Direction[dim]
				if rFm < rTo {
					curNear = tAtSplit
				} else {
					curFar = tAtSplit
				}
				cur, pop = right, false
			}

		case right == nil:
			switch {
			case (rFm < splitPoint && rTo < splitPoint) || rFm == rTo:
				cur, pop = left, false
			case rFm > splitPoint && rTo > splitPoint:
				continue
			default:
				tAtSplit := (splitPoint - tr.Origin[dim]) / tr.Direction[dim]
				if rFm < rTo {
					curFar = tAtSplit
				} else {
					curNear = tAtSplit
				}
				cur, pop = left, false
			}

		default:
			switch {
			case rFm < splitPoint && rTo < splitPoint:
				cur, pop = left, false
			case rFm > splitPoint && rTo > splitPoint:
				cur, pop = right, false
			case rFm == rTo:
				stack = append(stack, stackItem{left, curNear, curFar})
				cur, pop = right, false
			default:
				tAtSplit := (splitPoint - tr.Origin[dim]) / tr.Direction[dim]
				if rFm < rTo {
					if tAtSplit < nearestT {
						stack = append(stack, stackItem{right, tAtSplit, curFar})
					}
					curFar = tAtSplit
					cur, pop = left, false
				} else {
					if tAtSplit < nearestT {
						stack = append(stack, stackItem{left, tAtSplit, curFar})
					}
					curFar = tAtSplit
					cur, pop = right, false
				}
			}
		}
	}

	if nearestP.IsZero() {
		return primitive.Handle{}, 0, vecmath.Vec{}, false
	}
	return nearestP, nearestT, tr.PointAt(nearestT), true
}

// IntersectInfo recovers shading information for a hit returned by
// Intersect: the surface normal, texture coordinate, material, and
// texture at the intersection point. It returns a *FatalInterpolationError
// if hit is a Polygon whose interpolation cannot locate two bracketing
// edges, which should not happen for any polygon that passed loading.
func (t *Tree) IntersectInfo(ray vecmath.Ray, hit primitive.Handle, dist float64) (primitive.Info, error) {
	point := ray.PointAt(dist)
	return hit.Interpolate(point)
}
