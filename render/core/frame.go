package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// MaxLights is the number of point lights the mesh shader evaluates.
const MaxLights = 4

// Vertex matches the WGSL mesh VertexInput: position, normal, uv.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

type Cull uint8

const (
	CullBack Cull = iota
	CullFront
	CullNone
)

type PointLight struct {
	Position  mgl32.Vec3
	Color     [3]float32
	Intensity float32
	// Range 0 means the light never cuts off.
	Range float32
	Decay float32
}

// MeshDraw is one textured, lit (or unlit) indexed mesh.
type MeshDraw struct {
	Mesh      string
	Model     mgl32.Mat4
	BaseColor [4]float32
	Texture   string
	Roughness float32
	Unlit     bool
	Cull      Cull
}

// SpriteDraw is a cloud of camera-facing additive sprites. Draws sharing a
// Key share one instance buffer.
type SpriteDraw struct {
	Key       string
	Positions []mgl32.Vec3
	Model     mgl32.Mat4
	Color     [3]float32
	Size      float32
	Texture   string
}

// Frame is everything the renderer needs for one image.
type Frame struct {
	Width, Height int
	View          mgl32.Mat4
	Projection    mgl32.Mat4
	CameraPos     mgl32.Vec3
	ClearColor    [4]float64
	Ambient       [3]float32
	Lights        []PointLight
	Meshes        []MeshDraw
	Sprites       []SpriteDraw
}

// Reset empties the draw lists and keeps their capacity.
func (f *Frame) Reset() {
	f.Lights = f.Lights[:0]
	f.Meshes = f.Meshes[:0]
	f.Sprites = f.Sprites[:0]
	f.Ambient = [3]float32{}
}

// Assets resolves the ids a Frame refers to.
type Assets interface {
	MeshData(id string) (vertices []Vertex, indices []uint32, ok bool)
	TextureData(id string) (texels []byte, width, height uint32, ok bool)
}
