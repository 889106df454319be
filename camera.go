package snowscene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CameraComponent is a perspective camera looking from Position at LookAt.
type CameraComponent struct {
	Position mgl32.Vec3
	LookAt   mgl32.Vec3
	Up       mgl32.Vec3
	Fov      float32 // vertical, degrees
	Aspect   float32
	Near     float32
	Far      float32
}

func (cam *CameraComponent) ViewMatrix() mgl32.Mat4 {
	up := cam.Up
	if up.Len() == 0 {
		up = mgl32.Vec3{0, 1, 0}
	}
	return mgl32.LookAtV(cam.Position, cam.LookAt, up)
}

func (cam *CameraComponent) ProjectionMatrix() mgl32.Mat4 {
	aspect := cam.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	return mgl32.Perspective(mgl32.DegToRad(cam.Fov), aspect, cam.Near, cam.Far)
}

// SetViewport updates the aspect ratio for a viewport of width x height pixels.
// Degenerate sizes (minimised windows) leave the camera untouched.
func (cam *CameraComponent) SetViewport(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	cam.Aspect = float32(width) / float32(height)
	return true
}
