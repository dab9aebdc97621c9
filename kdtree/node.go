package kdtree

import (
	"sort"

	"github.com/rayforge/kdtree/bbox"
	"github.com/rayforge/kdtree/primitive"
	"github.com/rayforge/kdtree/vecmath"
)

// member is one primitive assigned to a node, with its bounding box
// clipped to the node's subdivision so far.
type member struct {
	handle primitive.Handle
	bbox   bbox.Box
}

// node is one node of the kd-tree. A node with left == nil && right == nil
// is a leaf and holds members directly; an interior node holds no members
// and instead has a split dimension and point.
type node struct {
	members []member
	bbox    bbox.Box
	depth   int

	left  *node
	right *node

	splitDim   vecmath.Axis
	splitPoint float64
}

func (n *node) isLeaf() bool { return n.left == nil && n.right == nil }

func (n *node) add(h primitive.Handle) {
	n.members = append(n.members, member{handle: h, bbox: h.BoundingBox()})
}

// splitKind classifies a member's contribution to the per-axis sweep used
// to evaluate SAH split costs.
type splitKind int

const (
	splitBegin splitKind = iota
	splitEnd
	splitPlanar
)

// splitItem is one event in the per-axis sweep: a member either begins,
// ends, or (for a member with zero extent on this axis) lies entirely in
// the plane at value.
type splitItem struct {
	m     *member
	kind  splitKind
	value float64
}

// areaCompute is the SAH half-surface-area proxy, wh + wd + hd, applied to
// an extent vector that may have a negative or zero component while a
// sweep is mid-stride (bbox.SurfaceAreaOfExtent assumes a well-formed
// extent; this is the same formula under a local name for symmetry with
// the sweep loop below).
func areaCompute(e vecmath.Vec) float64 {
	return bbox.SurfaceAreaOfExtent(e)
}

// subdivide recursively splits n using the surface area heuristic,
// trying all three axes at every node and keeping the best cost found,
// including the option of not splitting at all.
func (n *node) subdivide(params paramsSnapshot, stats *Stats) {
	numMembers := len(n.members)
	if n.depth >= params.maxDepth || numMembers <= params.minLeaf {
		return
	}

	intersectionCost := params.intersectionCost
	traverseCost := params.traverseCost

	extent := n.bbox.Extent()
	costNoSplit := intersectionCost * float64(numMembers) * areaCompute(extent)

	bestCost := costNoSplit
	bestIsSplit := false
	var bestIsLeft bool
	var bestSplitPoint float64
	var bestDim vecmath.Axis

	for dim := vecmath.AxisX; dim <= vecmath.AxisZ; dim++ {
		items := make([]splitItem, 0, numMembers*2)

		for i := range n.members {
			m := &n.members[i]
			v1 := m.bbox.Min[dim]
			v2 := m.bbox.Max[dim]
			if v1 == v2 {
				items = append(items, splitItem{m: m, kind: splitPlanar, value: v1})
			} else {
				items = append(items, splitItem{m: m, kind: splitBegin, value: v1})
				items = append(items, splitItem{m: m, kind: splitEnd, value: v2})
			}
		}

		sort.Slice(items, func(i, j int) bool { return items[i].value < items[j].value })

		tL := 0
		tR := numMembers

		bFm := n.bbox.Min[dim]
		bTo := n.bbox.Max[dim]

		lsize := extent
		rsize := extent

		for i := 0; i < len(items); {
			splitPoint := items[i].value
			pl, pr, tP := 0, 0, 0

			for i < len(items) && items[i].value == splitPoint {
				switch items[i].kind {
				case splitBegin:
					pr++
				case splitEnd:
					pl++
				case splitPlanar:
					tP++
				}
				i++
			}

			tR -= pl
			tR -= tP
			tL += pr

			lsize[dim] = splitPoint - bFm
			rsize[dim] = bTo - splitPoint

			lA := areaCompute(lsize)
			rA := areaCompute(rsize)

			costL := traverseCost + intersectionCost*(lA*float64(tL+tP)+rA*float64(tR))
			costR := traverseCost + intersectionCost*(lA*float64(tL)+rA*float64(tR+tP))

			isLeftCost := costL < costR
			cost := costR
			if isLeftCost {
				cost = costL
			}

			if cost < bestCost {
				bestCost = cost
				bestIsSplit = true
				bestIsLeft = isLeftCost
				bestSplitPoint = splitPoint
				bestDim = dim
			}

			tL += tP
		}
	}

	if !bestIsSplit {
		return
	}

	n.splitDim = bestDim
	n.splitPoint = bestSplitPoint

	left := &node{depth: n.depth + 1, bbox: n.bbox}
	right := &node{depth: n.depth + 1, bbox: n.bbox}
	left.bbox.Max[bestDim] = bestSplitPoint
	right.bbox.Min[bestDim] = bestSplitPoint

	stats.recordDepth(n.depth + 2)

	for i := range n.members {
		m := n.members[i]

		lMember := m
		lMember.bbox.IntersectWith(left.bbox)
		lEmpty := lMember.bbox.IsEmpty()

		rMember := m
		rMember.bbox.IntersectWith(right.bbox)
		rEmpty := rMember.bbox.IsEmpty()

		switch {
		case m.bbox.Max[bestDim] == bestSplitPoint && m.bbox.Min[bestDim] == bestSplitPoint:
			// Planar member exactly at the split: send it to whichever side
			// the cost evaluation decided was cheaper.
			if bestIsLeft {
				if !lEmpty {
					left.members = append(left.members, lMember)
				}
			} else if !rEmpty {
				right.members = append(right.members, rMember)
			}
		case m.bbox.Max[bestDim] <= bestSplitPoint:
			if !lEmpty {
				left.members = append(left.members, lMember)
			}
		case m.bbox.Min[bestDim] >= bestSplitPoint:
			if !rEmpty {
				right.members = append(right.members, rMember)
			}
		default:
			if !lEmpty {
				left.members = append(left.members, lMember)
			}
			if !rEmpty {
				right.members = append(right.members, rMember)
			}
		}
	}

	n.members = nil

	newNodes := 2
	if len(left.members) == 0 {
		left = nil
		newNodes--
	}
	if len(right.members) == 0 {
		right = nil
		newNodes--
	}
	stats.addNodes(newNodes)

	n.left = left
	n.right = right

	if n.left != nil {
		n.left.subdivide(params, stats)
	}
	if n.right != nil {
		n.right.subdivide(params, stats)
	}
}
