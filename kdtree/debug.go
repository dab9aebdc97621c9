package kdtree

import "github.com/rayforge/kdtree/bbox"

// NodeInfo describes one node of a built Tree for diagnostic tooling
// (see cmd/kdsvg): callers outside this package cannot reach the
// unexported node type directly, so Nodes is the supported way to walk
// the tree's shape.
type NodeInfo struct {
	Box        bbox.Box
	Depth      int
	Leaf       bool
	NumMembers int
}

// Nodes returns every node in the built tree, in pre-order (a node before
// its children). It panics if the tree has not been built yet.
func (t *Tree) Nodes() []NodeInfo {
	if !t.built {
		panic("kdtree: Nodes called before LoadingComplete")
	}
	var out []NodeInfo
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		out = append(out, NodeInfo{
			Box:        n.bbox,
			Depth:      n.depth,
			Leaf:       n.isLeaf(),
			NumMembers: len(n.members),
		})
		walk(n.left)
		walk(n.right)
	}
	walk(t.root)
	return out
}

// SceneBoundingBox returns the overall scene bounding box computed during
// LoadingComplete.
func (t *Tree) SceneBoundingBox() bbox.Box { return t.sceneBB }
