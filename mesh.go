package meshpaint

import (
	"encoding/binary"
	"math"
)

// VertexStride is the size of one encoded Vertex in bytes:
// position (2 x float32), uv (2 x float32), color (uint32).
const VertexStride = 5 * 4

// Pos2 is a 2D position in logical points (or normalized uv).
type Pos2 struct {
	X, Y float32
}

// Rect is an axis-aligned rectangle in logical points.
// Min is inclusive, Max exclusive.
type Rect struct {
	Min, Max Pos2
}

// RectFromMinSize returns the rectangle at origin with the given size.
func RectFromMinSize(origin Pos2, w, h float32) Rect {
	return Rect{Min: origin, Max: Pos2{origin.X + w, origin.Y + h}}
}

// Width returns Max.X - Min.X.
func (r Rect) Width() float32 { return r.Max.X - r.Min.X }

// Height returns Max.Y - Min.Y.
func (r Rect) Height() float32 { return r.Max.Y - r.Min.Y }

// Vertex is one tessellated vertex.
type Vertex struct {
	Pos   Pos2
	UV    Pos2
	Color Color32
}

// Mesh is an indexed triangle list sampling a single texture.
type Mesh struct {
	Indices   []uint32
	Vertices  []Vertex
	TextureID TextureID
}

// IsValid reports whether every index refers to an existing vertex and the
// index count is a whole number of triangles.
func (m *Mesh) IsValid() bool {
	if len(m.Indices)%3 != 0 {
		return false
	}
	n := uint32(len(m.Vertices)) //nolint:gosec // vertex count fits uint32
	for _, i := range m.Indices {
		if i >= n {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the mesh has nothing to draw.
func (m *Mesh) IsEmpty() bool {
	return len(m.Indices) == 0
}

// AddRectWithUV appends a quad covering r with texture coordinates uv.
func (m *Mesh) AddRectWithUV(r, uv Rect, c Color32) {
	base := uint32(len(m.Vertices)) //nolint:gosec // vertex count fits uint32
	m.Vertices = append(m.Vertices,
		Vertex{Pos: r.Min, UV: uv.Min, Color: c},
		Vertex{Pos: Pos2{r.Max.X, r.Min.Y}, UV: Pos2{uv.Max.X, uv.Min.Y}, Color: c},
		Vertex{Pos: Pos2{r.Min.X, r.Max.Y}, UV: Pos2{uv.Min.X, uv.Max.Y}, Color: c},
		Vertex{Pos: r.Max, UV: uv.Max, Color: c},
	)
	m.Indices = append(m.Indices, base, base+1, base+2, base+2, base+1, base+3)
}

// VertexBytes encodes the vertices in the GPU vertex layout.
func (m *Mesh) VertexBytes() []byte {
	buf := make([]byte, len(m.Vertices)*VertexStride)
	for i, v := range m.Vertices {
		off := i * VertexStride
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v.Pos.X))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(v.Pos.Y))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(v.UV.X))
		binary.LittleEndian.PutUint32(buf[off+12:], math.Float32bits(v.UV.Y))
		binary.LittleEndian.PutUint32(buf[off+16:], v.Color.Packed())
	}
	return buf
}

// IndexBytes encodes the indices as little-endian uint32.
func (m *Mesh) IndexBytes() []byte {
	buf := make([]byte, len(m.Indices)*4)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

// ClippedMesh is a mesh with the rectangle, in logical points, outside of
// which it must not be drawn.
type ClippedMesh struct {
	ClipRect Rect
	Mesh     Mesh
}

// FrameOutput is what the toolkit hands the painter for one frame.
type FrameOutput struct {
	// Meshes are drawn in order, back to front.
	Meshes []ClippedMesh

	// Textures is applied around the draw: Set before, Free after.
	Textures TexturesDelta

	// PixelsPerPoint converts clip rectangles to physical pixels.
	// Zero means 1.
	PixelsPerPoint float32
}
