package viewer

import (
	gomath "math"

	"github.com/Faultbox/midgard-extrude/pkg/math"
)

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	Center math.Vec3

	Distance float32
	Pitch    float32 // radians, positive looks down
	Yaw      float32 // radians, 0 looks down -Z

	MinDistance float32
	MaxDistance float32
	MaxPitch    float32

	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbitCamera creates a camera sized for meshes in the unit box.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Center:          math.Vec3{X: 0.5, Y: 0.5},
		Distance:        2,
		Pitch:           0.35,
		Yaw:             0.6,
		MinDistance:     0.2,
		MaxDistance:     20,
		MaxPitch:        1.5,
		DragSensitivity: 0.01,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	cp := float32(gomath.Cos(float64(c.Pitch)))
	offset := math.Vec3{
		X: c.Distance * cp * float32(gomath.Sin(float64(c.Yaw))),
		Y: c.Distance * float32(gomath.Sin(float64(c.Pitch))),
		Z: c.Distance * cp * float32(gomath.Cos(float64(c.Yaw))),
	}
	return c.Center.Add(offset)
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// HandleDrag rotates the camera by a mouse drag delta in pixels.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch += deltaY * c.DragSensitivity
	c.Pitch = min(max(c.Pitch, -c.MaxPitch), c.MaxPitch)
}

// HandleZoom changes the distance by a scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = min(max(c.Distance, c.MinDistance), c.MaxDistance)
}

// FitToBounds centers the camera on a box and backs off far enough to see it.
func (c *OrbitCamera) FitToBounds(lo, hi math.Vec3) {
	c.Center = lo.Add(hi).Scale(0.5)
	size := hi.Sub(lo).Length()
	c.Distance = min(max(size*1.5, c.MinDistance), c.MaxDistance)
}
