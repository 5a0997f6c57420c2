package extrude

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-extrude/pkg/math"
)

// Mesh validation errors.
var (
	ErrTriangleCount = errors.New("triangle index count is not a multiple of 3")
	ErrUVCount       = errors.New("uv count does not match vertex count")
	ErrIndexRange    = errors.New("triangle index out of range")
	ErrFaceLayout    = errors.New("buffers do not hold whole quads")
)

// Mesh holds the three parallel output buffers. Vertices live in the
// normalized [0,1]x[0,1]x[0,Depth] box and UVs map into the full source image.
type Mesh struct {
	Vertices  []math.Vec3
	Triangles []uint32
	UVs       []math.Vec2

	// Depth is the border depth used for back and side faces.
	Depth float32
}

// FaceCount returns the number of quads in the mesh.
func (m *Mesh) FaceCount() int {
	return len(m.Vertices) / 4
}

// Empty reports whether the mesh has no faces.
func (m *Mesh) Empty() bool {
	return len(m.Vertices) == 0
}

// Validate checks the buffer invariants.
func (m *Mesh) Validate() error {
	if len(m.Triangles)%3 != 0 {
		return fmt.Errorf("%w: %d indices", ErrTriangleCount, len(m.Triangles))
	}
	if len(m.UVs) != len(m.Vertices) {
		return fmt.Errorf("%w: %d uvs, %d vertices", ErrUVCount, len(m.UVs), len(m.Vertices))
	}
	if len(m.Vertices)%4 != 0 || len(m.Triangles) != len(m.Vertices)/4*6 {
		return fmt.Errorf("%w: %d vertices, %d indices", ErrFaceLayout, len(m.Vertices), len(m.Triangles))
	}
	n := uint32(len(m.Vertices))
	for i, idx := range m.Triangles {
		if idx >= n {
			return fmt.Errorf("%w: index %d at %d, %d vertices", ErrIndexRange, idx, i, n)
		}
	}
	return nil
}

// Normals returns one flat normal per vertex. Each quad takes the normal of
// its first triangle, which is also the normal of the second.
func (m *Mesh) Normals() []math.Vec3 {
	normals := make([]math.Vec3, len(m.Vertices))
	for t := 0; t+2 < len(m.Triangles); t += 6 {
		a, b, c := m.Triangles[t], m.Triangles[t+1], m.Triangles[t+2]
		if int(a) >= len(m.Vertices) || int(b) >= len(m.Vertices) || int(c) >= len(m.Vertices) {
			continue
		}
		v0, v1, v2 := m.Vertices[a], m.Vertices[b], m.Vertices[c]
		n := v1.Sub(v0).Cross(v2.Sub(v0)).Normalize()

		base := int(a) - int(a)%4
		for i := base; i < base+4 && i < len(normals); i++ {
			normals[i] = n
		}
	}
	return normals
}

// Bounds returns the axis-aligned box around all vertices. An empty mesh
// yields zero vectors.
func (m *Mesh) Bounds() (lo, hi math.Vec3) {
	if len(m.Vertices) == 0 {
		return math.Vec3{}, math.Vec3{}
	}
	lo, hi = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		lo = lo.Min(v)
		hi = hi.Max(v)
	}
	return lo, hi
}
