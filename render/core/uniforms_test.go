package core

import (
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestUniformLayouts(t *testing.T) {
	assert.Equal(t, uintptr(32), unsafe.Sizeof(Vertex{}))
	assert.Equal(t, uintptr(304), unsafe.Sizeof(Globals{}))
	assert.Equal(t, uintptr(96), unsafe.Sizeof(DrawUniform{}))
	assert.Equal(t, uintptr(160), unsafe.Sizeof(SpriteUniform{}))
}

func TestAlignUniform(t *testing.T) {
	assert.Equal(t, uint64(0), AlignUniform(0))
	assert.Equal(t, uint64(256), AlignUniform(1))
	assert.Equal(t, uint64(256), AlignUniform(256))
	assert.Equal(t, uint64(512), AlignUniform(304))
}

func TestNewGlobals(t *testing.T) {
	f := &Frame{
		View:       mgl32.Ident4(),
		Projection: mgl32.Ident4(),
		CameraPos:  mgl32.Vec3{-10, 5, 0},
		Ambient:    [3]float32{1, 1, 1},
	}
	for i := 0; i < MaxLights+2; i++ {
		f.Lights = append(f.Lights, PointLight{Position: mgl32.Vec3{0, float32(i), 0}, Intensity: 5, Range: 10, Decay: 2})
	}

	g := NewGlobals(f)

	assert.Equal(t, float32(MaxLights), g.Counts[0])
	assert.Equal(t, [4]float32{-10, 5, 0, 1}, g.CameraPos)
	assert.Equal(t, [4]float32{5, 10, 2, 0}, g.Lights[1].Params)
	assert.Equal(t, float32(3), g.Lights[3].Position[1])
}

func TestNewDrawUniformFlags(t *testing.T) {
	u := NewDrawUniform(MeshDraw{Roughness: 0.4, Unlit: true}, false)
	assert.Equal(t, [4]float32{0.4, 1, 0, 0}, u.Params)

	u = NewDrawUniform(MeshDraw{}, true)
	assert.Equal(t, [4]float32{0, 0, 1, 0}, u.Params)
}

func TestSpriteClipOffset_PixelSize(t *testing.T) {
	// A size-20 sprite 500 units away on a 720px tall viewport spans 20*360/500 pixels.
	const w, h = 1280, 720
	const depth = 500
	off := SpriteClipOffset(mgl32.Vec2{1, 1}, 20, w, h)

	pxY := off.Y() / depth * h
	pxX := off.X() / depth * w
	assert.InDelta(t, 14.4, pxY, 1e-3)
	assert.InDelta(t, pxY, pxX, 1e-3, "sprites stay square")
}

func TestFrameReset(t *testing.T) {
	f := &Frame{Meshes: make([]MeshDraw, 3, 8), Sprites: make([]SpriteDraw, 2), Lights: make([]PointLight, 1), Ambient: [3]float32{1, 1, 1}}
	f.Reset()

	assert.Empty(t, f.Meshes)
	assert.Equal(t, 8, cap(f.Meshes))
	assert.Empty(t, f.Sprites)
	assert.Empty(t, f.Lights)
	assert.Equal(t, [3]float32{}, f.Ambient)
}
