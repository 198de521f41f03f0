package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCameraDefaults(t *testing.T) {
	c := NewCamera(mgl32.Vec3{0, 0, 2})
	assert.Equal(t, float32(45), c.FOV)
	assert.Equal(t, float32(0.1), c.Near)
	assert.Equal(t, float32(100), c.Far)
}

func TestCameraViewIsInverseOfPlacement(t *testing.T) {
	c := NewCamera(mgl32.Vec3{1, 2, 3})
	// the camera origin ends up at the eye space origin
	p := c.View().Mul4x1(mgl32.Vec4{1, 2, 3, 1})
	assert.True(t, p.Vec3().ApproxEqualThreshold(mgl32.Vec3{}, 1e-5), "got %v", p)

	// a point in front of an unrotated camera has negative eye z
	p = c.View().Mul4x1(mgl32.Vec4{1, 2, 0, 1})
	assert.InDelta(t, -3.0, float64(p.Z()), 1e-5)
}

func TestCameraProjectionFlipsY(t *testing.T) {
	c := NewCamera(mgl32.Vec3{})
	c.SetExtent(1280, 720)
	proj := c.Projection()
	ref := mgl32.Perspective(mgl32.DegToRad(45), 1280.0/720.0, 0.1, 100)
	assert.InDelta(t, float64(-ref[5]), float64(proj[5]), 1e-6)
	assert.InDelta(t, float64(ref[0]), float64(proj[0]), 1e-6)

	// near plane lands on depth 0, far plane on depth 1
	near := proj.Mul4x1(mgl32.Vec4{0, 0, -0.1, 1})
	far := proj.Mul4x1(mgl32.Vec4{0, 0, -100, 1})
	assert.InDelta(t, 0.0, float64(near.Z()/near.W()), 1e-5)
	assert.InDelta(t, 1.0, float64(far.Z()/far.W()), 1e-5)
}

func TestCameraZeroExtentKeepsAspect(t *testing.T) {
	c := NewCamera(mgl32.Vec3{})
	c.SetExtent(800, 400)
	c.SetExtent(0, 0)
	assert.Equal(t, float32(2), c.Aspect)
}

func TestCameraVelocityMovesAlongForward(t *testing.T) {
	c := NewCamera(mgl32.Vec3{})
	c.MoveSpeed = 2
	c.Velocity = mgl32.Vec3{0, 0, -1}
	c.Update(0.5)
	// W sets z velocity to -1 which moves toward -z for an unrotated camera
	assert.True(t, c.Position.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-5), "got %v", c.Position)

	c.Velocity = mgl32.Vec3{1, 0, 0}
	c.Update(1)
	assert.True(t, c.Position.ApproxEqualThreshold(mgl32.Vec3{2, 0, -1}, 1e-5), "got %v", c.Position)
}

func TestCameraPitchClamped(t *testing.T) {
	c := NewCamera(mgl32.Vec3{})
	c.PanTilt(0, -200)
	assert.Equal(t, PitchLimit, c.PitchYaw.X())
	c.PanTilt(30, 0)
	assert.Equal(t, float32(-30), c.PitchYaw.Y())
}

func TestCameraBasisIsOrthonormal(t *testing.T) {
	c := NewCamera(mgl32.Vec3{})
	c.SetPitchYaw(20, 35)
	f, r, u := c.Forward(), c.Right(), c.Up()
	assert.InDelta(t, 1.0, float64(f.Len()), 1e-5)
	assert.InDelta(t, 1.0, float64(r.Len()), 1e-5)
	assert.InDelta(t, 1.0, float64(u.Len()), 1e-5)
	assert.InDelta(t, 0.0, float64(f.Dot(r)), 1e-5)
	assert.InDelta(t, 0.0, float64(r.Dot(u)), 1e-5)
}

func TestCameraSlewAndRaise(t *testing.T) {
	c := NewCamera(mgl32.Vec3{})
	c.Slew(mgl32.Vec3{1, 0, 1})
	assert.True(t, c.Position.ApproxEqualThreshold(mgl32.Vec3{1, 0, -1}, 1e-5), "got %v", c.Position)
	c.Raise(2)
	assert.InDelta(t, 2.0, float64(c.Position.Y()), 1e-5)
}
