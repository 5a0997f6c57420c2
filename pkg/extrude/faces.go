package extrude

import "github.com/Faultbox/midgard-extrude/pkg/math"

// Face identifies which side of a pixel-cube a quad belongs to.
type Face int

const (
	FaceFront Face = iota
	FaceBack
	FaceRight
	FaceLeft
	FaceTop
	FaceBottom

	faceKinds = 6
)

var faceNames = [faceKinds]string{"front", "back", "right", "left", "top", "bottom"}

// String returns the lowercase face name.
func (f Face) String() string {
	if f < 0 || int(f) >= faceKinds {
		return "unknown"
	}
	return faceNames[f]
}

// Faces lists every face kind in emission order.
func Faces() []Face {
	return []Face{FaceFront, FaceBack, FaceRight, FaceLeft, FaceTop, FaceBottom}
}

// corner is a quad vertex in pixel-local units: x and y are 0 or 1 pixel
// offsets, back selects z = depth instead of z = 0.
type corner struct {
	x, y int
	back bool
}

// faceCorners holds the four corners of each face in vertex order.
var faceCorners = [faceKinds][4]corner{
	FaceFront:  {{0, 0, false}, {1, 0, false}, {0, 1, false}, {1, 1, false}},
	FaceBack:   {{0, 0, true}, {1, 0, true}, {0, 1, true}, {1, 1, true}},
	FaceRight:  {{1, 0, false}, {1, 1, false}, {1, 0, true}, {1, 1, true}},
	FaceLeft:   {{0, 0, false}, {0, 1, false}, {0, 0, true}, {0, 1, true}},
	FaceTop:    {{0, 1, false}, {1, 1, false}, {0, 1, true}, {1, 1, true}},
	FaceBottom: {{0, 0, false}, {1, 0, false}, {0, 0, true}, {1, 0, true}},
}

// Quad index orders. windingA faces -Z for the front quad, windingB is its
// mirror. Side faces pick whichever makes the normal point away from the pixel.
var (
	windingA = [6]uint32{0, 2, 1, 2, 3, 1}
	windingB = [6]uint32{0, 1, 2, 2, 1, 3}
)

var faceWinding = [faceKinds]*[6]uint32{
	FaceFront:  &windingA,
	FaceBack:   &windingB,
	FaceRight:  &windingB,
	FaceLeft:   &windingA,
	FaceTop:    &windingA,
	FaceBottom: &windingB,
}

// outward is the expected unit normal of each face kind.
var outward = [faceKinds]math.Vec3{
	FaceFront:  {X: 0, Y: 0, Z: -1},
	FaceBack:   {X: 0, Y: 0, Z: 1},
	FaceRight:  {X: 1, Y: 0, Z: 0},
	FaceLeft:   {X: -1, Y: 0, Z: 0},
	FaceTop:    {X: 0, Y: 1, Z: 0},
	FaceBottom: {X: 0, Y: -1, Z: 0},
}

// Normal returns the outward unit normal of the face kind.
func (f Face) Normal() math.Vec3 {
	if f < 0 || int(f) >= faceKinds {
		return math.Vec3{}
	}
	return outward[f]
}

// emit appends one quad for pixel (x, y).
func (b *builder) emit(f Face, x, y int) {
	corners := &faceCorners[f]
	for _, c := range corners {
		z := float32(0)
		if c.back {
			z = b.depth
		}
		b.vertices = append(b.vertices, math.Vec3{
			X: float32(x+c.x) / b.w,
			Y: float32(y+c.y) / b.h,
			Z: z,
		})
	}

	// The UV corners are those of the front face whatever the face kind, so
	// sides and back reuse the pixel's own texel.
	for _, c := range faceCorners[FaceFront] {
		b.uvs = append(b.uvs, math.Vec2{
			X: float32(b.region.X+x+c.x) / b.imgW,
			Y: float32(b.region.Y+y+c.y) / b.imgH,
		})
	}

	for _, i := range faceWinding[f] {
		b.triangles = append(b.triangles, b.next+i)
	}
	b.next += 4
	b.stats.Faces[f]++
}
