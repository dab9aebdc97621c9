// Command kdbench loads a YAML scene description, builds a kd-tree from
// it, and fires a batch of pseudo-random rays at the scene to report
// build and query timings alongside the tree's own traversal statistics.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rayforge/kdtree/internal/profiling"
	"github.com/rayforge/kdtree/kdtree"
	"github.com/rayforge/kdtree/primitive"
	"github.com/rayforge/kdtree/vecmath"
)

// scene is the YAML document shape a bench file is expected to follow.
type scene struct {
	Params    sceneParams   `yaml:"params"`
	Triangles []scenePrim   `yaml:"triangles"`
	Polygons  []scenePrim   `yaml:"polygons"`
	Rays      sceneRayBatch `yaml:"rays"`
}

type sceneParams struct {
	IntersectionCost *float64 `yaml:"intersection_cost"`
	TraverseCost     *float64 `yaml:"traverse_cost"`
	MaxDepth         *int     `yaml:"max_depth"`
	MinLeaf          *int     `yaml:"min_leaf"`
}

type scenePrim struct {
	Vertices [][3]float64 `yaml:"vertices"`
	Normal   *[3]float64  `yaml:"normal"`
	Material string       `yaml:"material"`
}

type sceneRayBatch struct {
	Count int     `yaml:"count"`
	Seed  int64   `yaml:"seed"`
	MaxT  float64 `yaml:"max_t"`
}

func main() {
	path := flag.String("scene", "", "path to a YAML scene file (required)")
	flag.Parse()

	if *path == "" {
		log.Fatal("kdbench: -scene is required")
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("kdbench: %v", err)
	}

	var s scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		log.Fatalf("kdbench: parsing %s: %v", *path, err)
	}

	tree := buildTree(s)

	numRays := s.Rays.Count
	if numRays <= 0 {
		numRays = 10000
	}
	maxT := s.Rays.MaxT
	if maxT <= 0 {
		maxT = 1000
	}
	rng := rand.New(rand.NewSource(s.Rays.Seed))

	hits := fireRays(tree, rng, numRays, maxT)

	fmt.Printf("rays fired: %d, hits: %d (%.1f%%)\n", numRays, hits, 100*float64(hits)/float64(numRays))
	fmt.Println(profiling.TopN(10))

	st := tree.Stats()
	fmt.Printf("nodes=%d maxDepth=%d tests=%d objTests=%d surfaceTests=%d oneChildNodes=%d\n",
		st.Nodes, st.MaxDepth, st.Tests, st.ObjTests, st.SurfaceTests, st.OneChildNodes)
}

func buildTree(s scene) *kdtree.Tree {
	params := kdtree.NewParams()
	if s.Params.IntersectionCost != nil {
		params.SetIntersectionCost(*s.Params.IntersectionCost)
	}
	if s.Params.TraverseCost != nil {
		params.SetTraverseCost(*s.Params.TraverseCost)
	}
	if s.Params.MaxDepth != nil {
		params.SetMaxDepth(*s.Params.MaxDepth)
	}
	if s.Params.MinLeaf != nil {
		params.SetMinLeaf(*s.Params.MinLeaf)
	}

	t := kdtree.NewTree(params)
	t.Initialize()

	for _, p := range s.Triangles {
		loadTriangle(t, p)
	}
	for _, p := range s.Polygons {
		loadPolygon(t, p)
	}

	t.LoadingComplete()
	return t
}

func loadTriangle(t *kdtree.Tree, p scenePrim) {
	if len(p.Vertices) != 3 {
		log.Printf("kdbench: skipping triangle with %d vertices, want 3", len(p.Vertices))
		return
	}
	t.TriangleBegin()
	t.Material(p.Material)
	if p.Normal != nil {
		t.Normal(toVec(*p.Normal))
	}
	for _, v := range p.Vertices {
		t.Vertex(toVec(v))
	}
	t.TriangleEnd()
}

func loadPolygon(t *kdtree.Tree, p scenePrim) {
	if len(p.Vertices) < 3 {
		log.Printf("kdbench: skipping polygon with %d vertices, want >= 3", len(p.Vertices))
		return
	}
	t.PolygonBegin()
	t.Material(p.Material)
	if p.Normal != nil {
		t.Normal(toVec(*p.Normal))
	}
	for _, v := range p.Vertices {
		t.Vertex(toVec(v))
	}
	t.PolygonEnd()
}

func toVec(a [3]float64) vecmath.Vec { return vecmath.Vec{a[0], a[1], a[2]} }

// fireRays shoots numRays random rays from random points on a sphere
// enclosing the scene toward its center, a cheap way to exercise the tree
// without needing a real camera model.
func fireRays(t *kdtree.Tree, rng *rand.Rand, numRays int, maxT float64) int {
	defer profiling.Track("kdbench.fireRays")()

	scene := t.SceneBoundingBox()
	center := scene.Min.Add(scene.Max).Mul(0.5)
	radius := scene.Extent().Len()
	if radius <= 0 {
		radius = 1
	}

	hits := 0
	for i := 0; i < numRays; i++ {
		origin := randomPointOnSphere(rng, center, radius*2)
		dir := center.Sub(origin).Normalize()
		_, _, _, ok := t.Intersect(vecmath.Ray{Origin: origin, Direction: dir}, maxT, primitive.Handle{})
		if ok {
			hits++
		}
	}
	return hits
}

func randomPointOnSphere(rng *rand.Rand, center vecmath.Vec, radius float64) vecmath.Vec {
	theta := rng.Float64() * 2 * math.Pi
	phi := rng.Float64() * math.Pi
	return vecmath.Vec{
		center[0] + radius*math.Sin(phi)*math.Cos(theta),
		center[1] + radius*math.Sin(phi)*math.Sin(theta),
		center[2] + radius*math.Cos(phi),
	}
}
