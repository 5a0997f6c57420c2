// Package extrude turns the opaque pixels of a sprite region into a 3D mesh.
//
// Every pixel whose alpha is above the threshold becomes a unit quad facing
// -Z. With borders enabled the quad is extruded to a back face at the border
// depth, and side quads are added on every edge that touches a transparent or
// out-of-range neighbor. Faces never share vertices.
package extrude

import "github.com/Faultbox/midgard-extrude/pkg/math"

// PixelSource gives read access to the alpha channel of a source image.
type PixelSource interface {
	// Alpha returns the alpha in [0,1] at absolute image coordinates.
	Alpha(x, y int) float32
	// Size returns the full image dimensions, used for UV mapping.
	Size() (width, height int)
}

// Region is the sprite rectangle inside the source image.
type Region struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether the region contains no pixels.
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// inRange reports whether local pixel coordinates lie inside the region.
func (r Region) inRange(x, y int) bool {
	return x >= 0 && x < r.Width && y >= 0 && y < r.Height
}

// Options controls mesh generation.
type Options struct {
	// Threshold is the alpha cutoff. Pixels with alpha <= Threshold are empty,
	// both for the main scan and for neighbor exposure tests.
	Threshold float32
	// Border enables the back face and the side faces.
	Border bool
	// AutoDepth derives the border depth from the region size, ignoring Depth.
	AutoDepth bool
	// Depth is the manual border depth.
	Depth float32
}

// DefaultOptions returns the stock settings.
func DefaultOptions() Options {
	return Options{
		Threshold: 0.1,
		Border:    true,
		AutoDepth: true,
		Depth:     0.1,
	}
}

// AutoDepth returns 1/max(width, height), keeping the extrusion in the same
// normalized units as the vertex coordinates.
func AutoDepth(region Region) float32 {
	if region.Empty() {
		return 0
	}
	return 1 / float32(max(region.Width, region.Height))
}

// ResolveDepth returns the border depth Generate will use.
func ResolveDepth(region Region, opts Options) float32 {
	if opts.AutoDepth {
		return AutoDepth(region)
	}
	return opts.Depth
}

// Stats summarizes one generation pass.
type Stats struct {
	Pixels int
	Opaque int
	Faces  [faceKinds]int
}

// FaceCount returns the total number of faces emitted.
func (s Stats) FaceCount() int {
	n := 0
	for _, c := range s.Faces {
		n += c
	}
	return n
}

// Generate builds the mesh for region of src.
func Generate(src PixelSource, region Region, opts Options) *Mesh {
	mesh, _ := GenerateWithStats(src, region, opts)
	return mesh
}

// GenerateWithStats is Generate plus per-face counters.
func GenerateWithStats(src PixelSource, region Region, opts Options) (*Mesh, Stats) {
	var stats Stats
	depth := ResolveDepth(region, opts)
	if region.Empty() {
		return &Mesh{Depth: depth}, stats
	}

	imgW, imgH := src.Size()
	b := &builder{
		src:    src,
		region: region,
		opts:   opts,
		depth:  depth,
		w:      float32(region.Width),
		h:      float32(region.Height),
		imgW:   float32(imgW),
		imgH:   float32(imgH),
		stats:  &stats,
	}
	b.reserve(b.countOpaque())

	for x := 0; x < region.Width; x++ {
		for y := 0; y < region.Height; y++ {
			stats.Pixels++
			if !b.opaque(x, y) {
				continue
			}
			stats.Opaque++

			b.emit(FaceFront, x, y)
			if !opts.Border {
				continue
			}
			b.emit(FaceBack, x, y)
			if b.exposed(x+1, y) {
				b.emit(FaceRight, x, y)
			}
			if b.exposed(x-1, y) {
				b.emit(FaceLeft, x, y)
			}
			if b.exposed(x, y+1) {
				b.emit(FaceTop, x, y)
			}
			if b.exposed(x, y-1) {
				b.emit(FaceBottom, x, y)
			}
		}
	}

	return &Mesh{
		Vertices:  b.vertices,
		Triangles: b.triangles,
		UVs:       b.uvs,
		Depth:     depth,
	}, stats
}

// builder carries the per-call state of one Generate run.
type builder struct {
	src    PixelSource
	region Region
	opts   Options
	depth  float32

	w, h       float32
	imgW, imgH float32

	vertices  []math.Vec3
	triangles []uint32
	uvs       []math.Vec2
	next      uint32
	stats     *Stats
}

// opaque reports whether the local pixel is solid. Callers range-check first.
func (b *builder) opaque(x, y int) bool {
	return b.src.Alpha(b.region.X+x, b.region.Y+y) > b.opts.Threshold
}

// exposed reports whether a neighbor leaves the adjacent edge visible.
func (b *builder) exposed(x, y int) bool {
	if !b.region.inRange(x, y) {
		return true
	}
	return !b.opaque(x, y)
}

// countOpaque is a sizing pass; it does not affect the output.
func (b *builder) countOpaque() int {
	n := 0
	for x := 0; x < b.region.Width; x++ {
		for y := 0; y < b.region.Height; y++ {
			if b.opaque(x, y) {
				n++
			}
		}
	}
	return n
}

func (b *builder) reserve(opaque int) {
	faces := opaque
	if b.opts.Border {
		// front + back + a typical two exposed sides
		faces = opaque * 4
	}
	b.vertices = make([]math.Vec3, 0, faces*4)
	b.uvs = make([]math.Vec2, 0, faces*4)
	b.triangles = make([]uint32, 0, faces*6)
}
