package snowscene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// TransformComponent is an entity's world transform.
type TransformComponent struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// LocalTransformComponent is the transform relative to the Parent entity.
type LocalTransformComponent struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

type Parent struct {
	Entity EntityId
}

func IdentityTransform() TransformComponent {
	return TransformComponent{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix composes translation * rotation * scale.
func (tr TransformComponent) Matrix() mgl32.Mat4 {
	rot := tr.Rotation
	if rot.Len() == 0 {
		rot = mgl32.QuatIdent()
	}
	return mgl32.Translate3D(tr.Position.X(), tr.Position.Y(), tr.Position.Z()).
		Mul4(rot.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(tr.Scale.X(), tr.Scale.Y(), tr.Scale.Z()))
}

// EulerRotation builds the rotation three.js-style Euler angles (XYZ order) describe.
func EulerRotation(x, y, z float32) mgl32.Quat {
	return mgl32.AnglesToQuat(x, y, z, mgl32.XYZ)
}
