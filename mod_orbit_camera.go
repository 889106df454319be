package snowscene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// polarEpsilon keeps the camera off the poles, where the view basis degenerates.
const polarEpsilon = 1e-4

// zoomStep is the distance factor of one scroll notch at ZoomSpeed 1.
const zoomStep = 0.95

type OrbitCameraModule struct{}

func (m OrbitCameraModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(OrbitCameraInputSystem).
			InStage(Update).
			RunAlways(),
	)
	app.UseSystem(
		System(OrbitCameraControlSystem).
			InStage(Update).
			RunAlways(),
	)
}

// OrbitControlsComponent orbits a CameraComponent around Target. Left drag
// rotates, right drag pans, the wheel zooms.
type OrbitControlsComponent struct {
	Target       mgl32.Vec3
	EnableRotate bool
	EnablePan    bool
	EnableZoom   bool
	RotateSpeed  float32
	PanSpeed     float32
	ZoomSpeed    float32
	MinDistance  float32
	// MaxDistance 0 means unlimited.
	MaxDistance float32

	// Pending input in pixels and wheel notches, consumed by the control system.
	Rotate mgl32.Vec2
	Pan    mgl32.Vec2
	Zoom   float32
}

// NewOrbitControls builds controls from config looking at target.
func NewOrbitControls(cfg ControlsConfig, target mgl32.Vec3) OrbitControlsComponent {
	return OrbitControlsComponent{
		Target:       target,
		EnableRotate: cfg.EnableRotate,
		EnablePan:    cfg.EnablePan,
		EnableZoom:   cfg.EnableZoom,
		RotateSpeed:  cfg.RotateSpeed,
		PanSpeed:     cfg.PanSpeed,
		ZoomSpeed:    cfg.ZoomSpeed,
		MinDistance:  cfg.MinDistance,
		MaxDistance:  cfg.MaxDistance,
	}
}

func OrbitCameraInputSystem(input *Input, cmd *Commands) {
	MakeQuery1[OrbitControlsComponent](cmd).Map(func(eid EntityId, orbit *OrbitControlsComponent) bool {
		delta := mgl32.Vec2{float32(input.MouseDeltaX), float32(input.MouseDeltaY)}
		orbit.Rotate, orbit.Pan = mgl32.Vec2{}, mgl32.Vec2{}
		if input.Pressed[MouseButtonLeft] {
			orbit.Rotate = delta
		} else if input.Pressed[MouseButtonRight] || input.Pressed[MouseButtonMiddle] {
			orbit.Pan = delta
		}
		orbit.Zoom = float32(input.ScrollY)
		return true
	})
}

func OrbitCameraControlSystem(cmd *Commands) {
	height := viewportHeight(cmd)
	MakeQuery2[CameraComponent, OrbitControlsComponent](cmd).Map(func(eid EntityId, cam *CameraComponent, orbit *OrbitControlsComponent) bool {
		if orbit.EnableRotate && orbit.Rotate != (mgl32.Vec2{}) {
			// a drag across the full viewport height is one full turn
			turn := 2 * math32.Pi * orbit.RotateSpeed / float32(height)
			orbit.Orbit(cam, orbit.Rotate.X()*turn, orbit.Rotate.Y()*turn)
		}
		if orbit.EnablePan && orbit.Pan != (mgl32.Vec2{}) {
			orbit.PanBy(cam, orbit.Pan.X(), orbit.Pan.Y(), height)
		}
		if orbit.EnableZoom && orbit.Zoom != 0 {
			orbit.Dolly(cam, math32.Pow(zoomStep, orbit.ZoomSpeed*orbit.Zoom))
		}
		orbit.Rotate, orbit.Pan, orbit.Zoom = mgl32.Vec2{}, mgl32.Vec2{}, 0
		return true
	})
}

func viewportHeight(cmd *Commands) int {
	if rs, ok := Resource[RenderState](cmd.app); ok && rs.Height > 0 {
		return rs.Height
	}
	if ws, ok := Resource[WindowState](cmd.app); ok {
		if _, h := ws.Size(); h > 0 {
			return h
		}
	}
	return 720
}

// Spherical returns the camera offset from Target as radius, azimuth around
// +Y measured from +Z, and polar angle from +Y.
func (orbit *OrbitControlsComponent) Spherical(cam *CameraComponent) (radius, theta, phi float32) {
	offset := cam.Position.Sub(orbit.Target)
	radius = offset.Len()
	if radius == 0 {
		return 0, 0, 0
	}
	theta = math32.Atan2(offset.X(), offset.Z())
	phi = math32.Acos(mgl32.Clamp(offset.Y()/radius, -1, 1))
	return radius, theta, phi
}

func (orbit *OrbitControlsComponent) place(cam *CameraComponent, radius, theta, phi float32) {
	phi = mgl32.Clamp(phi, polarEpsilon, math32.Pi-polarEpsilon)
	radius = math32.Max(radius, orbit.MinDistance)
	if orbit.MaxDistance > 0 {
		radius = math32.Min(radius, orbit.MaxDistance)
	}
	sinPhi := math32.Sin(phi)
	offset := mgl32.Vec3{
		radius * sinPhi * math32.Sin(theta),
		radius * math32.Cos(phi),
		radius * sinPhi * math32.Cos(theta),
	}
	cam.Position = orbit.Target.Add(offset)
	cam.LookAt = orbit.Target
	cam.Up = mgl32.Vec3{0, 1, 0}
}

// Orbit turns the camera left by dTheta and up by dPhi radians. The polar
// angle stays strictly inside (0, pi).
func (orbit *OrbitControlsComponent) Orbit(cam *CameraComponent, dTheta, dPhi float32) {
	radius, theta, phi := orbit.Spherical(cam)
	orbit.place(cam, radius, theta-dTheta, phi-dPhi)
}

// Dolly multiplies the target distance by scale, within the distance limits.
func (orbit *OrbitControlsComponent) Dolly(cam *CameraComponent, scale float32) {
	radius, theta, phi := orbit.Spherical(cam)
	orbit.place(cam, radius*scale, theta, phi)
}

// PanBy moves camera and target together so the point under the cursor
// follows a drag of (dx, dy) pixels.
func (orbit *OrbitControlsComponent) PanBy(cam *CameraComponent, dx, dy float32, viewportHeight int) {
	if viewportHeight <= 0 {
		return
	}
	offset := cam.Position.Sub(orbit.Target)
	forward := offset.Mul(-1)
	if forward.Len() == 0 {
		return
	}
	forward = forward.Normalize()
	right := forward.Cross(mgl32.Vec3{0, 1, 0})
	if right.Len() == 0 {
		return
	}
	right = right.Normalize()
	up := right.Cross(forward)

	// world units per pixel at the target distance
	scale := 2 * offset.Len() * math32.Tan(mgl32.DegToRad(cam.Fov)/2) / float32(viewportHeight) * orbit.PanSpeed
	move := right.Mul(-dx * scale).Add(up.Mul(dy * scale))
	orbit.Target = orbit.Target.Add(move)
	cam.Position = cam.Position.Add(move)
	cam.LookAt = orbit.Target
}
