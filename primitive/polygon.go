package primitive

import (
	"fmt"
	"math"

	"github.com/rayforge/kdtree/bbox"
	"github.com/rayforge/kdtree/vecmath"
)

// Polygon is a convex, planar primitive with 3 or more vertices, streamed
// in via AddVertex/AddNormal/AddTexVertex and validated by Finalize.
//
// After a successful Finalize the vertex (and, when per-vertex, normal and
// texcoord) slices have one extra trailing entry duplicating the first, so
// that code can walk them as a list of (vertices[i], vertices[i+1]) edges
// without wrapping.
type Polygon struct {
	vertices []vecmath.Vec
	normals  []vecmath.Vec
	texcoord []vecmath.Vec
	enormals []vecmath.Vec // inward edge normals, one per edge

	normal vecmath.Vec
	d      float64

	coreCount int // vertex count after dedup, before the closing duplicate

	mat Material
	tex Texture

	bbox bbox.Box

	scratch queryScratch
}

// AddVertex appends a vertex position.
func (p *Polygon) AddVertex(v vecmath.Vec) { p.vertices = append(p.vertices, v) }

// AddNormal appends a vertex normal.
func (p *Polygon) AddNormal(n vecmath.Vec) { p.normals = append(p.normals, n) }

// AddTexVertex appends a texture coordinate.
func (p *Polygon) AddTexVertex(t vecmath.Vec) { p.texcoord = append(p.texcoord, t) }

// SetMaterial assigns the opaque material handle.
func (p *Polygon) SetMaterial(m Material) { p.mat = m }

// SetTexture assigns the opaque texture handle.
func (p *Polygon) SetTexture(t Texture) { p.tex = t }

func (p *Polygon) material() Material        { return p.mat }
func (p *Polygon) texture() Texture          { return p.tex }
func (p *Polygon) markScratch() *queryScratch { return &p.scratch }

// NumVertices returns the current vertex count (pre- or post-Finalize).
func (p *Polygon) NumVertices() int { return len(p.vertices) }

// Vertex returns the i'th vertex.
func (p *Polygon) Vertex(i int) vecmath.Vec { return p.vertices[i] }

// Vertices exposes the (post-Finalize, wrap-duplicated) vertex slice for
// the PolygonEnd triangle/fan rewrite in package kdtree.
func (p *Polygon) Vertices() []vecmath.Vec { return p.vertices }

// Normals exposes the per-vertex normal slice (length 0 or 1 before
// Finalize is meaningless to callers outside this package; after a
// successful Finalize it is length 1 or len(Vertices())).
func (p *Polygon) Normals() []vecmath.Vec { return p.normals }

// TexCoords exposes the per-vertex texture coordinate slice.
func (p *Polygon) TexCoords() []vecmath.Vec { return p.texcoord }

// Normal returns the polygon's unit face normal (valid after Finalize).
func (p *Polygon) Normal() vecmath.Vec { return p.normal }

// Material returns the polygon's opaque material handle.
func (p *Polygon) Material() Material { return p.mat }

// Texture returns the polygon's opaque texture handle.
func (p *Polygon) Texture() Texture { return p.tex }

// CoreVertexCount returns the vertex count after dedup but before the
// closing duplicate Finalize appends, i.e. the number of distinct corners
// the caller actually streamed in.
func (p *Polygon) CoreVertexCount() int { return p.coreCount }

// CoreVertex returns the i'th distinct corner (0 <= i < CoreVertexCount).
func (p *Polygon) CoreVertex(i int) vecmath.Vec { return p.vertices[i] }

// CoreNormal returns the normal for the i'th distinct corner. ok is false
// when the polygon carries a single shared normal rather than one per
// vertex; SharedNormal returns that normal.
func (p *Polygon) CoreNormal(i int) (n vecmath.Vec, ok bool) {
	if len(p.normals) <= 1 {
		return vecmath.Vec{}, false
	}
	return p.normals[i], true
}

// SharedNormal returns the polygon's single shared normal when it carries
// exactly one (rather than one per vertex).
func (p *Polygon) SharedNormal() (n vecmath.Vec, ok bool) {
	if len(p.normals) != 1 {
		return vecmath.Vec{}, false
	}
	return p.normals[0], true
}

// CoreTexCoord returns the texture coordinate for the i'th distinct
// corner. ok is false when the polygon carries no per-vertex texture
// coordinates at all.
func (p *Polygon) CoreTexCoord(i int) (t vecmath.Vec, ok bool) {
	if len(p.texcoord) == 0 {
		return vecmath.Vec{}, false
	}
	return p.texcoord[i], true
}

// PlanarityResidual returns normal.P + d for the i'th distinct corner: for
// a planar polygon this is ~0 for every corner.
func (p *Polygon) PlanarityResidual(i int) float64 {
	return p.normal.Dot(p.vertices[i]) + p.d
}

// D returns the polygon's plane constant d, where normal.P + d = 0 for any
// point P on the plane.
func (p *Polygon) D() float64 { return p.d }

// Finalize validates the polygon and computes its derived data. It
// reports false if the polygon is invalid; the caller must discard a
// failed primitive rather than insert it into the tree.
func (p *Polygon) Finalize() bool {
	if len(p.vertices) < 3 {
		return false
	}

	p.removeCoincidentVertices()
	if len(p.vertices) < 3 {
		return false
	}

	if !(len(p.normals) == 1 || len(p.normals) == len(p.vertices)) {
		return false
	}
	if (p.tex != nil || len(p.texcoord) > 0) && len(p.texcoord) != len(p.vertices) {
		return false
	}

	a, b, c := p.vertices[0], p.vertices[1], p.vertices[2]
	cross := c.Sub(b).Cross(a.Sub(b))
	length := cross.Len()
	if length < minCrossLength {
		return false
	}
	p.normal = cross.Mul(1 / length)
	p.d = -a.Dot(p.normal)

	p.coreCount = len(p.vertices)

	n := len(p.vertices)
	p.enormals = make([]vecmath.Vec, n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		edge := p.vertices[j].Sub(p.vertices[i])
		en := p.normal.Cross(edge)
		if l := en.Len(); l > 0 {
			en = en.Mul(1 / l)
		}
		p.enormals[i] = en
	}

	p.vertices = append(p.vertices, p.vertices[0])
	if len(p.normals) > 1 {
		p.normals = append(p.normals, p.normals[0])
	}
	if len(p.texcoord) > 0 {
		p.texcoord = append(p.texcoord, p.texcoord[0])
	}

	box := bbox.FromPoint(p.vertices[0])
	for _, v := range p.vertices[1:] {
		box.Include(v)
	}
	p.bbox = box

	return true
}

// removeCoincidentVertices drops consecutive duplicate vertices (including
// the wrap-around last->first pair), restarting the scan after each
// removal, and drops the matching normal/texcoord slot when per-vertex
// arrays are in use.
func (p *Polygon) removeCoincidentVertices() {
	for {
		removed := false
		last := p.vertices[len(p.vertices)-1]
		for i := 0; i < len(p.vertices); i++ {
			if p.vertices[i] != last {
				last = p.vertices[i]
				continue
			}
			p.vertices = append(p.vertices[:i], p.vertices[i+1:]...)
			if len(p.normals) > 1 && i < len(p.normals) {
				p.normals = append(p.normals[:i], p.normals[i+1:]...)
			}
			if len(p.texcoord) > 1 && i < len(p.texcoord) {
				p.texcoord = append(p.texcoord[:i], p.texcoord[i+1:]...)
			}
			removed = true
			break
		}
		if !removed || len(p.vertices) <= 1 {
			return
		}
	}
}

// BoundingBox returns the polygon's tight bounding box.
func (p *Polygon) BoundingBox() bbox.Box { return p.bbox }

// ComputeT returns the ray-plane intersection parameter, or -1 if the ray
// is (near) parallel to the polygon's plane.
func (p *Polygon) ComputeT(ray vecmath.TraversalRay) float64 {
	bottom := p.normal.Dot(ray.Direction)
	if bottom >= -tiny && bottom <= tiny {
		return -1
	}
	return -(p.normal.Dot(ray.Origin) + p.d) / bottom
}

// SurfaceTest reports whether point, known to lie on the polygon's plane,
// is inside the (convex) polygon: interior iff every inward edge normal
// has a non-negative dot product with the vector from its edge origin to
// point.
func (p *Polygon) SurfaceTest(point vecmath.Vec) bool {
	for i, en := range p.enormals {
		if en.Dot(point.Sub(p.vertices[i])) < 0 {
			return false
		}
	}
	return true
}

// FatalInterpolationError is returned by Polygon.Interpolate when fewer
// than two bracketing edges can be found for the sweep axis. This should
// never happen for a convex polygon that passed Finalize; it is the typed
// equivalent of the unrecoverable condition the source flags with `throw 1`.
type FatalInterpolationError struct {
	Axis vecmath.Axis
}

func (e *FatalInterpolationError) Error() string {
	return fmt.Sprintf("primitive: polygon interpolation found no bracketing edge on axis %d", e.Axis)
}

// Interpolate recovers the normal and texture coordinate at point by
// projecting onto the axis plane orthogonal to the polygon's dominant
// normal component, finding the two edges whose projected range brackets
// point along the sweep axis, and bilinearly weighting the four
// bracketing vertices.
func (p *Polygon) Interpolate(point vecmath.Vec) (Info, error) {
	axis := p.dominantAxis()

	sweep, cross := sweepAxes(axis)

	a, b, ok := bracketEdge(p.vertices, sweep, point[sweep], 0)
	if !ok {
		return Info{}, &FatalInterpolationError{Axis: sweep}
	}
	c, d, ok := bracketEdge(p.vertices, sweep, point[sweep], b)
	if !ok {
		return Info{}, &FatalInterpolationError{Axis: sweep}
	}

	f := (point[sweep] - p.vertices[a][sweep]) / (p.vertices[b][sweep] - p.vertices[a][sweep])
	g := (point[sweep] - p.vertices[c][sweep]) / (p.vertices[d][sweep] - p.vertices[c][sweep])

	lz := p.vertices[a][cross] + f*(p.vertices[b][cross]-p.vertices[a][cross])
	rz := p.vertices[c][cross] + g*(p.vertices[d][cross]-p.vertices[c][cross])

	var h float64
	if rz != lz {
		h = (point[cross] - lz) / (rz - lz)
	}

	am := 1 - f - h + f*h
	bm := f - f*h
	cm := h - g*h
	dm := g * h

	var normal vecmath.Vec
	if len(p.normals) == 1 {
		normal = p.normals[0]
	} else {
		normal = p.normals[a].Mul(am).Add(p.normals[b].Mul(bm)).Add(p.normals[c].Mul(cm)).Add(p.normals[d].Mul(dm))
		if l := normal.Len(); l > 0 {
			normal = normal.Mul(1 / l)
		}
	}

	var texcoord vecmath.Vec
	if len(p.texcoord) > 0 {
		texcoord = p.texcoord[a].Mul(am).Add(p.texcoord[b].Mul(bm)).Add(p.texcoord[c].Mul(cm)).Add(p.texcoord[d].Mul(dm))
	}

	return Info{Normal: normal, TexCoord: texcoord, Material: p.mat, Texture: p.tex}, nil
}

// dominantAxis returns the axis of the polygon's face normal with the
// largest absolute component: projecting onto the plane orthogonal to it
// maximizes the projected polygon area and gives the best numeric
// resolution for the bracketing search below.
func (p *Polygon) dominantAxis() vecmath.Axis {
	nx, ny, nz := math.Abs(p.normal[0]), math.Abs(p.normal[1]), math.Abs(p.normal[2])
	if nx > ny {
		if nx > nz {
			return vecmath.AxisX
		}
		return vecmath.AxisZ
	}
	if ny > nz {
		return vecmath.AxisY
	}
	return vecmath.AxisZ
}

// sweepAxes returns, for a dominant axis, the in-plane axis swept to find
// bracketing edges and the remaining axis used for the cross-edge
// parameter h. This mirrors the source's three hand-written X/Y/Z cases.
func sweepAxes(dominant vecmath.Axis) (sweep, cross vecmath.Axis) {
	switch dominant {
	case vecmath.AxisX:
		return vecmath.AxisY, vecmath.AxisZ
	case vecmath.AxisY:
		return vecmath.AxisX, vecmath.AxisZ
	default:
		return vecmath.AxisX, vecmath.AxisY
	}
}

// bracketEdge scans vertices (a cyclic, wrap-duplicated list) starting at
// index "from" for the first edge (i, i+1) whose projected range along
// sweep brackets value, i.e. one endpoint is >= value and the other is
// < value. It returns the two endpoint indices and false if no such edge
// is found before the list ends.
func bracketEdge(vertices []vecmath.Vec, sweep vecmath.Axis, value float64, from int) (lo, hi int, ok bool) {
	cnt := len(vertices)
	for i, j := from, from+1; j < cnt; i, j = i+1, j+1 {
		vi, vj := vertices[i][sweep], vertices[j][sweep]
		if (vi >= value && vj < value) || (vj >= value && vi < value) {
			return i, j, true
		}
	}
	return 0, 0, false
}
