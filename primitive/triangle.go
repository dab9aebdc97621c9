package primitive

import (
	"math"

	"github.com/rayforge/kdtree/bbox"
	"github.com/rayforge/kdtree/vecmath"
)

// Triangle is a flat or Gouraud-shaded triangle with up to 3 independent
// vertex normals and texture coordinates.
type Triangle struct {
	vertices [3]vecmath.Vec
	normals  [3]vecmath.Vec
	texcoord [3]vecmath.Vec

	numVertices int
	numNormals  int
	numTexcoord int

	normal vecmath.Vec // unit face normal, valid after finalize
	d      float64     // plane constant: normal.P + d = 0

	mat Material
	tex Texture

	bbox bbox.Box

	scratch queryScratch
}

// AddVertex appends a vertex position. Calls beyond the third are ignored,
// matching the streaming-insertion contract: the caller is expected to add
// exactly 3 before calling TriangleEnd.
func (t *Triangle) AddVertex(v vecmath.Vec) {
	if t.numVertices < 3 {
		t.vertices[t.numVertices] = v
		t.numVertices++
	}
}

// AddNormal appends a vertex normal. Calls beyond the third are ignored.
func (t *Triangle) AddNormal(n vecmath.Vec) {
	if t.numNormals < 3 {
		t.normals[t.numNormals] = n
		t.numNormals++
	}
}

// AddTexVertex appends a texture coordinate. Calls beyond the third are
// ignored.
func (t *Triangle) AddTexVertex(tc vecmath.Vec) {
	if t.numTexcoord < 3 {
		t.texcoord[t.numTexcoord] = tc
		t.numTexcoord++
	}
}

// SetMaterial assigns the opaque material handle.
func (t *Triangle) SetMaterial(m Material) { t.mat = m }

// SetTexture assigns the opaque texture handle.
func (t *Triangle) SetTexture(tex Texture) { t.tex = tex }

func (t *Triangle) material() Material          { return t.mat }
func (t *Triangle) texture() Texture            { return t.tex }
func (t *Triangle) markScratch() *queryScratch   { return &t.scratch }

// Vertex returns the i'th vertex position (0, 1, or 2).
func (t *Triangle) Vertex(i int) vecmath.Vec { return t.vertices[i] }

// Finalize validates the triangle and computes its derived data (face
// plane, filled normals/texcoords, bounding box). It reports false if the
// triangle is invalid; the caller must discard a failed primitive rather
// than insert it into the tree.
//
// Step 4 (the positive texcoord shift) alters absolute uv values the
// caller supplied whenever any component is negative. This is preserved
// behavior-exact from the source this module is grounded on; the
// motivation (probably wrap-mode-without-negative-indices support) is not
// recorded anywhere retrievable, so it is kept rather than guessed at.
func (t *Triangle) Finalize() bool {
	if t.numVertices != 3 {
		return false
	}
	if t.numNormals == 0 {
		return false
	}
	for t.numNormals < 3 {
		t.normals[t.numNormals] = t.normals[0]
		t.numNormals++
	}

	ab := t.vertices[1].Sub(t.vertices[0])
	ac := t.vertices[2].Sub(t.vertices[0])
	cross := ab.Cross(ac)
	length := cross.Len()
	if length < minCrossLength {
		return false
	}
	t.normal = cross.Mul(1 / length)
	t.d = -t.vertices[0].Dot(t.normal)

	if t.numTexcoord == 0 {
		t.texcoord = [3]vecmath.Vec{}
		t.numTexcoord = 3
	} else {
		for t.numTexcoord < 3 {
			t.texcoord[t.numTexcoord] = t.texcoord[t.numTexcoord-1]
			t.numTexcoord++
		}
	}

	min := 0.0
	for _, tc := range t.texcoord {
		if tc[0] < min {
			min = tc[0]
		}
		if tc[1] < min {
			min = tc[1]
		}
	}
	if min < 0 {
		add := float64(int(-min) + 1)
		for i := range t.texcoord {
			t.texcoord[i][0] += add
			t.texcoord[i][1] += add
		}
	}

	box := bbox.FromPoint(t.vertices[0])
	box.Include(t.vertices[1])
	box.Include(t.vertices[2])
	t.bbox = box

	return true
}

// BoundingBox returns the triangle's tight bounding box.
func (t *Triangle) BoundingBox() bbox.Box { return t.bbox }

// ComputeT returns the ray-plane intersection parameter, or -1 if the ray
// is (near) parallel to the triangle's plane.
func (t *Triangle) ComputeT(ray vecmath.TraversalRay) float64 {
	bottom := t.normal.Dot(ray.Direction)
	if bottom >= -tiny && bottom <= tiny {
		return -1
	}
	return -(t.normal.Dot(ray.Origin) + t.d) / bottom
}

// SurfaceTest reports whether point, known to lie on the triangle's plane,
// is inside the triangle.
func (t *Triangle) SurfaceTest(point vecmath.Vec) bool {
	b := t.barycentric(point)
	return b[0] >= 0 && b[1] >= 0 && b[2] >= 0
}

// barycentric projects onto the axis plane orthogonal to the face normal's
// largest component and solves for (b0, b1, b2). A degenerate projection
// (det == 0) returns the zero vector, which then fails SurfaceTest.
func (t *Triangle) barycentric(p vecmath.Vec) vecmath.Vec {
	p1, p2, p3 := t.vertices[0], t.vertices[1], t.vertices[2]

	x, y := 0, 1
	nx, ny, nz := math.Abs(t.normal[0]), math.Abs(t.normal[1]), math.Abs(t.normal[2])
	if nx >= ny && nx >= nz {
		x, y = 1, 2
	} else if ny >= nz {
		x, y = 0, 2
	}

	det := (p1[x]-p3[x])*(p2[y]-p3[y]) - (p2[x]-p3[x])*(p1[y]-p3[y])
	if det == 0 {
		return vecmath.Vec{}
	}

	b0 := ((p2[y]-p3[y])*(p[x]-p3[x]) - (p2[x]-p3[x])*(p[y]-p3[y])) / det
	b1 := (-(p1[y]-p3[y])*(p[x]-p3[x]) + (p1[x]-p3[x])*(p[y]-p3[y])) / det
	b2 := 1 - b0 - b1
	return vecmath.Vec{b0, b1, b2}
}

// Interpolate recovers the normal and texture coordinate at point via
// barycentric weighting. It never fails for a Triangle.
func (t *Triangle) Interpolate(point vecmath.Vec) (Info, error) {
	b := t.barycentric(point)
	normal := t.normals[0].Mul(b[0]).Add(t.normals[1].Mul(b[1])).Add(t.normals[2].Mul(b[2]))
	if l := normal.Len(); l > 0 {
		normal = normal.Mul(1 / l)
	}
	texcoord := t.texcoord[0].Mul(b[0]).Add(t.texcoord[1].Mul(b[1])).Add(t.texcoord[2].Mul(b[2]))
	return Info{Normal: normal, TexCoord: texcoord, Material: t.mat, Texture: t.tex}, nil
}
