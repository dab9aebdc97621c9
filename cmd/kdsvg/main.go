// Command kdsvg renders an SVG cross-section of a built kd-tree: every
// node's bounding box, projected onto the XY plane and colored by depth,
// plus the scene bounding box. It's a debugging aid for tuning Params
// against a particular scene, not a renderer.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	svg "github.com/ajstarks/svgo"

	"github.com/rayforge/kdtree/bbox"
	"github.com/rayforge/kdtree/kdtree"
	"github.com/rayforge/kdtree/vecmath"
)

func main() {
	out := flag.String("o", "kdtree.svg", "output SVG path")
	width := flag.Int("width", 900, "canvas width in pixels")
	height := flag.Int("height", 900, "canvas height in pixels")
	maxDepth := flag.Int("max-depth", 0, "if > 0, only draw nodes at or above this depth")
	flag.Parse()

	tree := buildDemoScene()

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("kdsvg: %v", err)
	}
	defer f.Close()

	render(f, tree, *width, *height, *maxDepth)
	fmt.Println("wrote", *out)
}

// buildDemoScene streams in a small scene (an octahedron built from
// triangles plus one free-standing quad) so the tool produces a
// non-trivial cross-section out of the box.
func buildDemoScene() *kdtree.Tree {
	t := kdtree.NewTree(kdtree.NewParams())
	t.Initialize()

	octahedronVerts := [6]vecmath.Vec{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
	}
	faces := [8][3]int{
		{0, 2, 4}, {2, 1, 4}, {1, 3, 4}, {3, 0, 4},
		{0, 5, 2}, {2, 5, 1}, {1, 5, 3}, {3, 5, 0},
	}
	for _, face := range faces {
		a, b, c := octahedronVerts[face[0]], octahedronVerts[face[1]], octahedronVerts[face[2]]
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()

		t.TriangleBegin()
		t.Normal(n)
		t.Vertex(a)
		t.Vertex(b)
		t.Vertex(c)
		t.TriangleEnd()
	}

	t.PolygonBegin()
	t.Normal(vecmath.Vec{0, 0, 1})
	t.Vertex(vecmath.Vec{-3, -3, 2})
	t.Vertex(vecmath.Vec{3, -3, 2})
	t.Vertex(vecmath.Vec{3, 3, 2})
	t.Vertex(vecmath.Vec{-3, 3, 2})
	t.PolygonEnd()

	t.LoadingComplete()
	return t
}

func render(w *os.File, t *kdtree.Tree, width, height, maxDepth int) {
	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:#ffffff")

	project := newProjector(t.SceneBoundingBox(), width, height)

	depthColors := []string{"#222222", "#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd", "#8c564b"}

	for _, n := range t.Nodes() {
		if maxDepth > 0 && n.Depth > maxDepth {
			continue
		}
		x0, y0 := project(n.Box.Min[0], n.Box.Min[1])
		x1, y1 := project(n.Box.Max[0], n.Box.Max[1])
		color := depthColors[n.Depth%len(depthColors)]
		style := fmt.Sprintf("fill:none;stroke:%s;stroke-width:1", color)
		if n.Leaf {
			style = fmt.Sprintf("fill:%s;fill-opacity:0.05;stroke:%s;stroke-width:1.5", color, color)
		}
		canvas.Rect(minInt(x0, x1), minInt(y0, y1), absInt(x1-x0), absInt(y1-y0), style)
	}

	canvas.End()
}

// newProjector returns a function mapping a scene-space (x, y) point into
// canvas pixel space, fitting the scene's XY extent into the canvas with
// a margin and flipping Y so larger Y draws nearer the top of the image.
func newProjector(scene bbox.Box, width, height int) func(x, y float64) (int, int) {
	const margin = 40.0

	extent := scene.Extent()
	ex, ey := extent[0], extent[1]
	if ex <= 0 {
		ex = 1
	}
	if ey <= 0 {
		ey = 1
	}

	scale := (float64(width) - 2*margin) / ex
	if s := (float64(height) - 2*margin) / ey; s < scale {
		scale = s
	}

	minX, minY := scene.Min[0], scene.Min[1]

	return func(x, y float64) (int, int) {
		px := margin + (x-minX)*scale
		py := float64(height) - (margin + (y-minY)*scale)
		return int(px), int(py)
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
