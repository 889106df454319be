package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// UniformAlign is the dynamic uniform offset alignment every adapter supports.
const UniformAlign = 256

type LightUniform struct {
	Position [4]float32
	Color    [4]float32
	// Params holds intensity, range, decay.
	Params [4]float32
}

// Globals matches the WGSL Globals struct of mesh.wgsl.
type Globals struct {
	ViewProj  mgl32.Mat4
	CameraPos [4]float32
	Ambient   [4]float32
	// Counts.x is the number of active lights.
	Counts [4]float32
	Lights [MaxLights]LightUniform
}

// DrawUniform is the per-mesh uniform block.
type DrawUniform struct {
	Model     mgl32.Mat4
	BaseColor [4]float32
	// Params holds roughness, unlit flag, textured flag.
	Params [4]float32
}

// SpriteUniform is the per-sprite-cloud uniform block.
type SpriteUniform struct {
	ViewProj mgl32.Mat4
	Model    mgl32.Mat4
	Color    [4]float32
	// Params holds size, viewport width, viewport height.
	Params [4]float32
}

// NewGlobals packs the camera and lights. Lights beyond MaxLights are dropped.
func NewGlobals(f *Frame) Globals {
	g := Globals{
		ViewProj:  f.Projection.Mul4(f.View),
		CameraPos: [4]float32{f.CameraPos.X(), f.CameraPos.Y(), f.CameraPos.Z(), 1},
		Ambient:   [4]float32{f.Ambient[0], f.Ambient[1], f.Ambient[2], 1},
	}
	n := min(len(f.Lights), MaxLights)
	g.Counts[0] = float32(n)
	for i := 0; i < n; i++ {
		l := f.Lights[i]
		g.Lights[i] = LightUniform{
			Position: [4]float32{l.Position.X(), l.Position.Y(), l.Position.Z(), 1},
			Color:    [4]float32{l.Color[0], l.Color[1], l.Color[2], 1},
			Params:   [4]float32{l.Intensity, l.Range, l.Decay, 0},
		}
	}
	return g
}

func NewDrawUniform(d MeshDraw, textured bool) DrawUniform {
	u := DrawUniform{
		Model:     d.Model,
		BaseColor: d.BaseColor,
		Params:    [4]float32{d.Roughness, 0, 0, 0},
	}
	if d.Unlit {
		u.Params[1] = 1
	}
	if textured {
		u.Params[2] = 1
	}
	return u
}

func NewSpriteUniform(f *Frame, s SpriteDraw) SpriteUniform {
	return SpriteUniform{
		ViewProj: f.Projection.Mul4(f.View),
		Model:    s.Model,
		Color:    [4]float32{s.Color[0], s.Color[1], s.Color[2], 1},
		Params:   [4]float32{s.Size, float32(f.Width), float32(f.Height), 0},
	}
}

// AlignUniform rounds size up to UniformAlign.
func AlignUniform(size uint64) uint64 {
	return (size + UniformAlign - 1) / UniformAlign * UniformAlign
}

// SpriteClipOffset is the clip-space offset of a sprite corner, matching
// sprite.wgsl. At depth w the sprite covers size*height/(2w) pixels.
func SpriteClipOffset(corner mgl32.Vec2, size float32, width, height int) mgl32.Vec2 {
	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = float32(height) / float32(width)
	}
	return mgl32.Vec2{corner.X() * size * 0.5 * aspect, corner.Y() * size * 0.5}
}
