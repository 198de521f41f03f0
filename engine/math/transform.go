package math

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a position, an euler rotation in degrees (pitch, yaw, roll
// about x, y, z) and a scale. The local matrix is cached until a setter
// marks it dirty.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3
	Parent   *Transform

	local   mgl32.Mat4
	isDirty bool
}

func TransformCreate() *Transform {
	return TransformFromPositionRotationScale(mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
}

func TransformFromPosition(position mgl32.Vec3) *Transform {
	return TransformFromPositionRotationScale(position, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
}

func TransformFromPositionRotationScale(position, rotation, scale mgl32.Vec3) *Transform {
	t := &Transform{}
	t.SetPositionRotationScale(position, rotation, scale)
	return t
}

func (t *Transform) SetPosition(position mgl32.Vec3) {
	t.Position = position
	t.isDirty = true
}

func (t *Transform) Translate(translation mgl32.Vec3) {
	t.Position = t.Position.Add(translation)
	t.isDirty = true
}

func (t *Transform) SetRotation(rotation mgl32.Vec3) {
	t.Rotation = rotation
	t.isDirty = true
}

// Rotate adds the given euler angles, in degrees.
func (t *Transform) Rotate(rotation mgl32.Vec3) {
	t.Rotation = t.Rotation.Add(rotation)
	t.Rotation[1] = WrapDegrees(t.Rotation[1])
	t.isDirty = true
}

func (t *Transform) SetScale(scale mgl32.Vec3) {
	t.Scale = scale
	t.isDirty = true
}

func (t *Transform) SetPositionRotationScale(position, rotation, scale mgl32.Vec3) {
	t.Position = position
	t.Rotation = rotation
	t.Scale = scale
	t.isDirty = true
}

// YawPitchRoll builds Ry(yaw) * Rx(pitch) * Rz(roll), angles in radians.
func YawPitchRoll(yaw, pitch, roll float32) mgl32.Mat4 {
	return mgl32.HomogRotate3DY(yaw).Mul4(mgl32.HomogRotate3DX(pitch)).Mul4(mgl32.HomogRotate3DZ(roll))
}

// GetLocal returns translate * yawPitchRoll * scale.
func (t *Transform) GetLocal() mgl32.Mat4 {
	if t == nil {
		return mgl32.Ident4()
	}
	if t.isDirty || t.local == (mgl32.Mat4{}) {
		rot := YawPitchRoll(
			mgl32.DegToRad(t.Rotation[1]),
			mgl32.DegToRad(t.Rotation[0]),
			mgl32.DegToRad(t.Rotation[2]),
		)
		t.local = mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2]).
			Mul4(rot).
			Mul4(mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2]))
		t.isDirty = false
	}
	return t.local
}

func (t *Transform) GetWorld() mgl32.Mat4 {
	if t == nil {
		return mgl32.Ident4()
	}
	l := t.GetLocal()
	if t.Parent != nil {
		return t.Parent.GetWorld().Mul4(l)
	}
	return l
}
