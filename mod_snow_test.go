package snowscene

import (
	"math/rand"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnowBuffer_Bounds(t *testing.T) {
	buf := NewSnowBuffer(5000, 1000, rand.New(rand.NewSource(1)))

	require.Len(t, buf.Positions, 5000)
	for i, p := range buf.Positions {
		for axis := 0; axis < 3; axis++ {
			if p[axis] < -1000 || p[axis] >= 1000 {
				t.Fatalf("particle %d axis %d out of range: %v", i, axis, p[axis])
			}
		}
	}
	assert.Empty(t, NewSnowBuffer(-3, 1000, rand.New(rand.NewSource(1))).Positions)
}

func TestSnowBuffer_FallWrap(t *testing.T) {
	cases := []struct {
		name string
		y    float32
		want float32
	}{
		{"in range", 0, -0.1},
		{"just above floor", -999.95, 1000},
		{"exactly at floor", -1000, 1000},
		{"below floor", -1000.05, 999.9},
		{"at ceiling", 1000, 999.9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := &SnowBuffer{Positions: []mgl32.Vec3{{1, tc.y, 2}}}

			buf.Fall(0.1, -1000, 1000)

			assert.InDelta(t, tc.want, buf.Positions[0][1], 1e-3)
			assert.Equal(t, float32(1), buf.Positions[0][0])
			assert.Equal(t, float32(2), buf.Positions[0][2])
		})
	}
}

func TestSnowBuffer_StaysInRange(t *testing.T) {
	buf := NewSnowBuffer(500, 1000, rand.New(rand.NewSource(7)))
	for frame := 0; frame < 25000; frame++ {
		buf.Fall(0.1, -1000, 1000)
	}
	for i, p := range buf.Positions {
		if p.Y() < -1000 || p.Y() > 1000 {
			t.Fatalf("particle %d escaped: y=%v", i, p.Y())
		}
	}
}

func TestHue(t *testing.T) {
	assert.InDelta(t, 0.5, Hue(100, 80), 1e-6)
	assert.InDelta(t, 0.5, Hue(1, 539), 1e-6)
	assert.InDelta(t, 0.0, Hue(0, 360), 1e-6)

	for _, elapsed := range []float32{0, 0.001, 359.999, 360, 1e6, 3.4e38, -1, -720.5, -3.4e38} {
		h := Hue(0.95, elapsed)
		assert.GreaterOrEqual(t, h, float32(0), "elapsed %v", elapsed)
		assert.Less(t, h, float32(1), "elapsed %v", elapsed)
	}
}

func TestSpinRate(t *testing.T) {
	assert.Equal(t, []float32{1, 2, 3, 4, -5}, []float32{SpinRate(0), SpinRate(1), SpinRate(2), SpinRate(3), SpinRate(4)})
}

func TestSnowMaterial_CycleKeepsSaturationAndLightness(t *testing.T) {
	m := SnowMaterial{BaseHSL: [3]float32{0.8, 0, 0.5}}
	m.Cycle(123.4)

	assert.InDelta(t, Hue(0.8, 123.4), m.Hue, 1e-6)
	// zero saturation is grey whatever the hue
	for _, c := range m.Color {
		assert.InDelta(t, 0.5, c, 1e-6)
	}
}

func TestSnowMaterial_RedAtZeroHue(t *testing.T) {
	m := SnowMaterial{BaseHSL: [3]float32{0, 1, 0.5}}
	m.Cycle(0)

	assert.InDelta(t, 1, m.Color[0], 1e-6)
	assert.InDelta(t, 0, m.Color[1], 1e-6)
	assert.InDelta(t, 0, m.Color[2], 1e-6)
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newSnowApp(t *testing.T, clock *fakeClock) *App {
	t.Helper()
	return NewAppBuilder().
		UseModule(
			TimeModule{Now: clock.Now},
			SnowModule{Config: ClassicPreset().Snow, Rand: rand.New(rand.NewSource(42))},
		).
		Build()
}

func TestSnowModule_OneFrame(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	app := newSnowApp(t, clock)
	cmd := app.Commands()

	state, ok := Resource[SnowState](app)
	require.True(t, ok)
	require.Len(t, state.Buffer.Positions, 5000)
	before := make([]float32, len(state.Buffer.Positions))
	for i, p := range state.Buffer.Positions {
		before[i] = p.Y()
	}

	app.Step()

	assert.Equal(t, 5, MakeQuery1[SnowSystemComponent](cmd).Count())
	for i, p := range state.Buffer.Positions {
		if before[i]-0.1 < -1000 {
			assert.Equal(t, float32(1000), p.Y(), "particle %d should wrap", i)
			continue
		}
		// five systems share the buffer; it still moves by exactly one step per frame
		assert.Equal(t, before[i]-0.1, p.Y(), "particle %d", i)
	}
}

func TestSnowModule_HueFollowsClock(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	app := newSnowApp(t, clock)
	cmd := app.Commands()
	app.Step()

	// 200 seconds at the default rate is a clock of 10
	clock.now = clock.now.Add(200 * time.Second)
	app.Step()

	state, _ := Resource[SnowState](app)
	assert.InDelta(t, 10, state.Clock, 1e-4)

	seen := map[int]bool{}
	MakeQuery2[SnowSystemComponent, TransformComponent](cmd).Map(func(_ EntityId, snow *SnowSystemComponent, tr *TransformComponent) bool {
		seen[snow.Index] = true
		assert.InDelta(t, Hue(snow.Material.BaseHSL[0], 10), snow.Material.Hue, 1e-5)
		want := EulerRotation(snow.Rotation.X(), 10*SpinRate(snow.Index), snow.Rotation.Z())
		assert.True(t, want.ApproxEqualThreshold(tr.Rotation, 1e-4), "system %d rotation", snow.Index)
		return true
	})
	assert.Len(t, seen, 5)
}

func TestSnowModule_SpawnRotationRange(t *testing.T) {
	app := newSnowApp(t, &fakeClock{now: time.Unix(0, 0)})
	cmd := app.Commands()
	app.FlushCommands()

	MakeQuery1[SnowSystemComponent](cmd).Map(func(_ EntityId, snow *SnowSystemComponent) bool {
		for axis := 0; axis < 3; axis++ {
			assert.GreaterOrEqual(t, snow.Rotation[axis], float32(0))
			assert.Less(t, snow.Rotation[axis], float32(6))
		}
		return true
	})
}

func TestSnowSeed(t *testing.T) {
	now := func() time.Time { return time.Unix(0, 42) }

	assert.Equal(t, int64(7), snowSeed(7, now))
	assert.Equal(t, int64(-3), snowSeed(-3, now))
	assert.Equal(t, int64(42), snowSeed(0, now))
}

func TestSnowModule_ExplicitSeedRepeats(t *testing.T) {
	scatter := func(seed int64) []mgl32.Vec3 {
		app := NewAppBuilder().
			UseModule(SnowModule{Config: SnowConfig{Count: 50, HalfExtent: 10, Seed: seed}}).
			Build()
		state, ok := Resource[SnowState](app)
		require.True(t, ok)
		return state.Buffer.Positions
	}

	assert.Equal(t, scatter(9), scatter(9))
	assert.NotEqual(t, scatter(9), scatter(10))
}
