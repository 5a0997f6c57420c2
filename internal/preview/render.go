// Package preview renders extruded meshes to images without a GPU.
package preview

import (
	"image"
	"image/color"
	stdmath "math"

	"github.com/Faultbox/midgard-extrude/pkg/extrude"
	"github.com/Faultbox/midgard-extrude/pkg/math"
)

// Options controls the preview camera and output size.
type Options struct {
	Size        int     // output width and height
	Supersample int     // render scale before downsampling, 1 disables
	Yaw         float64 // radians around Y
	Pitch       float64 // radians around X
	Background  color.NRGBA
}

// DefaultOptions returns a 256px three-quarter view on a transparent background.
func DefaultOptions() Options {
	return Options{
		Size:        256,
		Supersample: 2,
		Yaw:         0.6,
		Pitch:       0.35,
	}
}

const (
	ambient  = 0.35
	diffuse  = 0.65
	fitScale = 0.9
	minAlpha = 8
)

// lightDir points from the surface toward the light, on the viewer's side.
var lightDir = math.Vec3{X: -0.3, Y: 0.5, Z: -1}.Normalize()

// Render draws mesh textured with tex. The view looks down +Z with Y up, so
// an unrotated sprite appears as it does in tex.
func Render(mesh *extrude.Mesh, tex *image.NRGBA, opts Options) *image.NRGBA {
	if opts.Size <= 0 {
		opts.Size = DefaultOptions().Size
	}
	ss := max(opts.Supersample, 1)
	size := opts.Size * ss

	fb := newFrameBuffer(size, opts.Background)
	if mesh != nil && !mesh.Empty() && tex != nil {
		fb.drawMesh(mesh, tex, opts)
	}

	img := fb.image()
	if ss > 1 {
		img = Downsample(img, opts.Size)
	}
	return img
}

// frameBuffer holds color and depth for a square target.
type frameBuffer struct {
	size  int
	color []uint8
	depth []float32 // smaller is nearer
}

func newFrameBuffer(size int, bg color.NRGBA) *frameBuffer {
	n := size * size
	fb := &frameBuffer{
		size:  size,
		color: make([]uint8, n*4),
		depth: make([]float32, n),
	}
	for i := 0; i < n; i++ {
		fb.color[i*4] = bg.R
		fb.color[i*4+1] = bg.G
		fb.color[i*4+2] = bg.B
		fb.color[i*4+3] = bg.A
		fb.depth[i] = float32(stdmath.Inf(1))
	}
	return fb
}

func (fb *frameBuffer) image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    fb.color,
		Stride: fb.size * 4,
		Rect:   image.Rect(0, 0, fb.size, fb.size),
	}
}

// drawMesh projects the mesh orthographically, fitted to the frame.
func (fb *frameBuffer) drawMesh(mesh *extrude.Mesh, tex *image.NRGBA, opts Options) {
	lo, hi := mesh.Bounds()
	center := lo.Add(hi).Scale(0.5)
	view := math.RotateX(float32(opts.Pitch)).
		Mul(math.RotateY(float32(opts.Yaw))).
		Mul(math.Translate(-center.X, -center.Y, -center.Z))

	projected := make([]math.Vec3, len(mesh.Vertices))
	var extent float32
	for i, v := range mesh.Vertices {
		p := view.TransformVec3(v)
		projected[i] = p
		extent = max(extent, abs32(p.X), abs32(p.Y))
	}
	if extent == 0 {
		return
	}

	// World units to pixels; screen y grows downward.
	half := float32(fb.size) / 2
	scale := half * fitScale / extent
	for i, p := range projected {
		projected[i] = math.Vec3{X: half + p.X*scale, Y: half - p.Y*scale, Z: p.Z}
	}

	normals := mesh.Normals()
	for t := 0; t+2 < len(mesh.Triangles); t += 3 {
		a, b, c := mesh.Triangles[t], mesh.Triangles[t+1], mesh.Triangles[t+2]
		n := view.TransformDirection(normals[a])
		// Faces pointing away from the camera are hidden by closed geometry.
		if n.Z > 1e-4 {
			continue
		}
		shade := float32(ambient + diffuse*max(0, float64(n.Dot(lightDir))))
		fb.triangle(
			[3]math.Vec3{projected[a], projected[b], projected[c]},
			[3]math.Vec2{mesh.UVs[a], mesh.UVs[b], mesh.UVs[c]},
			tex, shade,
		)
	}
}

// triangle rasterizes one screen-space triangle with a barycentric scan.
func (fb *frameBuffer) triangle(p [3]math.Vec3, uv [3]math.Vec2, tex *image.NRGBA, shade float32) {
	minX := max(int(floor(min(p[0].X, p[1].X, p[2].X))), 0)
	maxX := min(int(ceil(max(p[0].X, p[1].X, p[2].X))), fb.size-1)
	minY := max(int(floor(min(p[0].Y, p[1].Y, p[2].Y))), 0)
	maxY := min(int(ceil(max(p[0].Y, p[1].Y, p[2].Y))), fb.size-1)
	if minX > maxX || minY > maxY {
		return
	}

	det := (p[1].Y-p[2].Y)*(p[0].X-p[2].X) + (p[2].X-p[1].X)*(p[0].Y-p[2].Y)
	if abs32(det) < 1e-8 {
		return
	}
	inv := 1 / det

	for sy := minY; sy <= maxY; sy++ {
		fy := float32(sy) + 0.5
		for sx := minX; sx <= maxX; sx++ {
			fx := float32(sx) + 0.5
			w0 := ((p[1].Y-p[2].Y)*(fx-p[2].X) + (p[2].X-p[1].X)*(fy-p[2].Y)) * inv
			w1 := ((p[2].Y-p[0].Y)*(fx-p[2].X) + (p[0].X-p[2].X)*(fy-p[2].Y)) * inv
			w2 := 1 - w0 - w1
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}

			i := sy*fb.size + sx
			z := w0*p[0].Z + w1*p[1].Z + w2*p[2].Z
			if z >= fb.depth[i] {
				continue
			}

			u := w0*uv[0].X + w1*uv[1].X + w2*uv[2].X
			v := w0*uv[0].Y + w1*uv[1].Y + w2*uv[2].Y
			c := sample(tex, u, v)
			if c.A < minAlpha {
				continue
			}

			fb.depth[i] = z
			o := i * 4
			fb.color[o] = clamp8(float32(c.R) * shade)
			fb.color[o+1] = clamp8(float32(c.G) * shade)
			fb.color[o+2] = clamp8(float32(c.B) * shade)
			fb.color[o+3] = c.A
		}
	}
}

// sample returns the nearest texel. v runs bottom-up.
func sample(tex *image.NRGBA, u, v float32) color.NRGBA {
	w, h := tex.Rect.Dx(), tex.Rect.Dy()
	x := min(max(int(floor(u*float32(w))), 0), w-1)
	y := min(max(int(floor((1-v)*float32(h))), 0), h-1)
	return tex.NRGBAAt(tex.Rect.Min.X+x, tex.Rect.Min.Y+y)
}

func floor(f float32) float32 { return float32(stdmath.Floor(float64(f))) }
func ceil(f float32) float32  { return float32(stdmath.Ceil(float64(f))) }

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

func clamp8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
