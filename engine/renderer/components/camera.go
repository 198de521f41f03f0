package components

import (
	stdmath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/ember/engine/math"
)

/**
 * @brief A free flying perspective camera. Pitch and yaw are in degrees,
 * velocity is expressed in camera space (x = right, z = backward) and
 * applied on Update.
 */
type Camera struct {
	Position mgl32.Vec3
	Velocity mgl32.Vec3
	/** @brief x = pitch, y = yaw, both in degrees. */
	PitchYaw mgl32.Vec2

	FOV       float32
	Near      float32
	Far       float32
	Aspect    float32
	MoveSpeed float32
	RotSpeed  float32

	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty    bool
	viewMatrix mgl32.Mat4
	projMatrix mgl32.Mat4
}

/** @brief Pitch is kept inside +/- this many degrees. */
const PitchLimit float32 = 89.0

func NewCamera(position mgl32.Vec3) *Camera {
	c := &Camera{}
	c.Reset()
	c.Position = position
	return c
}

func (c *Camera) Reset() {
	c.Position = mgl32.Vec3{}
	c.Velocity = mgl32.Vec3{}
	c.PitchYaw = mgl32.Vec2{}
	c.FOV = 45.0
	c.Near = 0.1
	c.Far = 100.0
	c.Aspect = 1.0
	c.MoveSpeed = 1.0
	c.RotSpeed = 1.0
	c.IsDirty = true
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) SetPitchYaw(pitch, yaw float32) {
	c.PitchYaw = mgl32.Vec2{math.Clamp(pitch, -PitchLimit, PitchLimit), yaw}
	c.IsDirty = true
}

// SetExtent updates the aspect ratio. A zero height leaves it untouched.
func (c *Camera) SetExtent(width, height uint32) {
	if height == 0 || width == 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}

// Update integrates velocity over dt seconds and rebuilds the matrices.
func (c *Camera) Update(dt float32) {
	if c.Velocity.Len() > 0 {
		c.Position = c.Position.Add(c.Forward().Mul(c.Velocity.Z() * c.MoveSpeed * dt))
		c.Position = c.Position.Add(c.Right().Mul(c.Velocity.X() * c.MoveSpeed * dt))
		c.IsDirty = true
	}
	c.updateView()
	c.projMatrix = c.buildProjection()
}

func (c *Camera) updateView() {
	if !c.IsDirty {
		return
	}
	translation := mgl32.Translate3D(c.Position.X(), c.Position.Y(), c.Position.Z())
	c.viewMatrix = translation.Mul4(c.RotationMatrix()).Inv()
	c.IsDirty = false
}

// buildProjection is a right handed perspective with depth mapped to [0, 1].
func (c *Camera) buildProjection() mgl32.Mat4 {
	f := float32(1.0 / stdmath.Tan(float64(mgl32.DegToRad(c.FOV))/2.0))
	proj := mgl32.Mat4{}
	proj[0] = f / c.Aspect
	proj[5] = f
	proj[10] = c.Far / (c.Near - c.Far)
	proj[11] = -1
	proj[14] = c.Near * c.Far / (c.Near - c.Far)
	// clip space y points down in Vulkan
	proj[5] *= -1
	return proj
}

func (c *Camera) View() mgl32.Mat4 {
	c.updateView()
	return c.viewMatrix
}

func (c *Camera) Projection() mgl32.Mat4 {
	return c.buildProjection()
}

// RotationMatrix is yaw about +y applied after pitch about +x.
func (c *Camera) RotationMatrix() mgl32.Mat4 {
	pitch := mgl32.QuatRotate(mgl32.DegToRad(c.PitchYaw.X()), mgl32.Vec3{1, 0, 0})
	yaw := mgl32.QuatRotate(mgl32.DegToRad(c.PitchYaw.Y()), mgl32.Vec3{0, 1, 0})
	return yaw.Mat4().Mul4(pitch.Mat4())
}

// Forward points out of the back of the camera, the direction +z velocity moves in.
func (c *Camera) Forward() mgl32.Vec3 {
	pitch := float64(mgl32.DegToRad(c.PitchYaw.X()))
	yaw := float64(mgl32.DegToRad(c.PitchYaw.Y()))
	return mgl32.Vec3{
		float32(stdmath.Sin(yaw) * stdmath.Cos(pitch)),
		float32(-stdmath.Sin(pitch)),
		float32(stdmath.Cos(yaw) * stdmath.Cos(pitch)),
	}
}

func (c *Camera) Right() mgl32.Vec3 {
	yaw := float64(mgl32.DegToRad(c.PitchYaw.Y()))
	return mgl32.Vec3{float32(stdmath.Cos(yaw)), 0, float32(-stdmath.Sin(yaw))}
}

func (c *Camera) Up() mgl32.Vec3 {
	pitch := float64(mgl32.DegToRad(c.PitchYaw.X()))
	yaw := float64(mgl32.DegToRad(c.PitchYaw.Y()))
	return mgl32.Vec3{
		float32(stdmath.Sin(yaw) * stdmath.Sin(pitch)),
		float32(stdmath.Cos(pitch)),
		float32(stdmath.Cos(yaw) * stdmath.Sin(pitch)),
	}
}

// PanTilt turns the camera, pan around y and tilt around x, in degrees.
func (c *Camera) PanTilt(pan, tilt float32) {
	c.SetPitchYaw(c.PitchYaw.X()-tilt, c.PitchYaw.Y()-pan)
}

// Slew moves in the camera plane: v.x along right, v.z along the view direction.
func (c *Camera) Slew(v mgl32.Vec3) {
	c.Position = c.Position.Add(c.Forward().Mul(-v.Z())).Add(c.Right().Mul(v.X()))
	c.IsDirty = true
}

func (c *Camera) Raise(f float32) {
	c.Position = c.Position.Add(c.Up().Mul(f))
	c.IsDirty = true
}

// ProcessMouse turns the camera by a cursor delta in pixels.
func (c *Camera) ProcessMouse(dx, dy float64) {
	c.PanTilt(float32(dx)/200.0*c.RotSpeed, float32(dy)/200.0*c.RotSpeed)
}
