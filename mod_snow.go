package snowscene

import (
	"math/rand"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

// SnowBuffer is the particle geometry every snow system draws.
type SnowBuffer struct {
	Positions []mgl32.Vec3
}

// NewSnowBuffer scatters count points uniformly in [-halfExtent, halfExtent)^3.
func NewSnowBuffer(count int, halfExtent float32, rng *rand.Rand) *SnowBuffer {
	if count < 0 {
		count = 0
	}
	buf := &SnowBuffer{Positions: make([]mgl32.Vec3, count)}
	coord := func() float32 { return rng.Float32()*2*halfExtent - halfExtent }
	for i := range buf.Positions {
		buf.Positions[i] = mgl32.Vec3{coord(), coord(), coord()}
	}
	return buf
}

// Fall moves every particle down by step. A particle that ends below floor
// restarts at ceiling; one that was already below floor is put back to ceiling
// before stepping, so y stays within [floor, ceiling] as long as step <= ceiling-floor.
func (b *SnowBuffer) Fall(step, floor, ceiling float32) {
	for i := range b.Positions {
		y := b.Positions[i][1]
		if y < floor {
			y = ceiling
		}
		y -= step
		if y < floor {
			y = ceiling
		}
		b.Positions[i][1] = y
	}
}

// Hue maps baseHue+elapsed (degrees) into [0, 1). Negative input wraps around.
func Hue(baseHue, elapsed float32) float32 {
	deg := math32.Mod(baseHue+elapsed, 360)
	if deg < 0 {
		deg += 360
	}
	h := deg / 360
	if h >= 1 || math32.IsNaN(h) {
		return 0
	}
	return h
}

// SpinRate is the y rotation speed of snow system index relative to the hue clock.
// The first four turn one way, the rest the other, each a little faster.
func SpinRate(index int) float32 {
	if index < 4 {
		return float32(index + 1)
	}
	return -float32(index + 1)
}

// SnowMaterial is a hue-cycling point-sprite material.
type SnowMaterial struct {
	BaseHSL [3]float32
	Sprite  string
	Texture AssetId
	Size    float32

	Hue   float32
	Color [3]float32
}

// Cycle sets the hue from the clock and recomputes Color. Saturation and
// lightness stay at their base values.
func (m *SnowMaterial) Cycle(clock float32) {
	m.Hue = Hue(m.BaseHSL[0], clock)
	m.Color = hslToRGB(m.Hue, m.BaseHSL[1], m.BaseHSL[2])
}

func hslToRGB(h, s, l float32) [3]float32 {
	c := colorful.Hsl(float64(h)*360, float64(s), float64(l)).Clamped()
	return [3]float32{float32(c.R), float32(c.G), float32(c.B)}
}

// SnowSystemComponent marks one of the snow point clouds. Rotation is the
// Euler rotation picked at spawn; its y is replaced by the spin every frame.
type SnowSystemComponent struct {
	Index    int
	Rotation mgl32.Vec3
	Material SnowMaterial
}

// SnowState is the snow resource: the shared buffer and the fall/hue parameters.
type SnowState struct {
	Buffer   *SnowBuffer
	FallStep float32
	Floor    float32
	Ceiling  float32
	HueRate  float32

	// Clock is the hue/spin clock of the last update.
	Clock float32
}

type SnowModule struct {
	Config SnowConfig
	// Rand seeds the particle scatter and spawn rotations. Nil uses Config.Seed.
	Rand *rand.Rand
}

// snowSeed keeps an explicit seed and draws one from now when it is zero.
func snowSeed(seed int64, now func() time.Time) int64 {
	if seed != 0 {
		return seed
	}
	return now().UnixNano()
}

func (mod SnowModule) Install(app *App, cmd *Commands) {
	rng := mod.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(snowSeed(mod.Config.Seed, time.Now)))
	}

	state := &SnowState{
		Buffer:   NewSnowBuffer(mod.Config.Count, mod.Config.HalfExtent, rng),
		FallStep: mod.Config.FallStep,
		Floor:    -mod.Config.HalfExtent,
		Ceiling:  mod.Config.HalfExtent,
		HueRate:  mod.Config.HueRate,
	}
	cmd.AddResources(state)

	for i, mc := range mod.Config.Materials {
		material := SnowMaterial{
			BaseHSL: mc.HSL,
			Sprite:  mc.Sprite,
			Size:    mc.Size,
		}
		material.Cycle(0)
		rot := mgl32.Vec3{rng.Float32() * 6, rng.Float32() * 6, rng.Float32() * 6}
		tr := IdentityTransform()
		tr.Rotation = EulerRotation(rot.X(), rot.Y(), rot.Z())
		cmd.AddEntity(
			&SnowSystemComponent{Index: i, Rotation: rot, Material: material},
			&tr,
		)
	}
	app.Logger().Debugf("snow: %d particles shared by %d systems", len(state.Buffer.Positions), len(mod.Config.Materials))

	app.UseSystem(
		System(snowSystem).
			InStage(Update).
			RunAlways(),
	)
}

// snowSystem advances the shared buffer once, then recolours and spins each system.
func snowSystem(state *SnowState, t *Time, cmd *Commands) {
	state.Buffer.Fall(state.FallStep, state.Floor, state.Ceiling)
	state.Clock = float32(t.Seconds()) * state.HueRate

	MakeQuery2[SnowSystemComponent, TransformComponent](cmd).Map(func(eid EntityId, snow *SnowSystemComponent, tr *TransformComponent) bool {
		snow.Material.Cycle(state.Clock)
		tr.Rotation = EulerRotation(snow.Rotation.X(), state.Clock*SpinRate(snow.Index), snow.Rotation.Z())
		return true
	})
}
