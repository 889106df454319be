package snowscene

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// BoxFaces builds the six faces of an axis-aligned cube with outward normals,
// in +X, -X, +Y, -Y, +Z, -Z order. Each face is a separate mesh so it can carry
// its own material.
func BoxFaces(size float32) [6]PrimitiveData {
	h := size / 2
	type face struct{ normal, u, v mgl32.Vec3 }
	faces := [6]face{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}

	var out [6]PrimitiveData
	for i, f := range faces {
		center := f.normal.Mul(h)
		corner := func(su, sv, tu, tv float32) MeshVertex {
			p := center.Add(f.u.Mul(su * h)).Add(f.v.Mul(sv * h))
			return MeshVertex{Position: p, Normal: f.normal, UV: [2]float32{tu, tv}}
		}
		out[i] = PrimitiveData{
			Vertices: []MeshVertex{
				corner(-1, 1, 0, 0),
				corner(1, 1, 1, 0),
				corner(-1, -1, 0, 1),
				corner(1, -1, 1, 1),
			},
			Indices:  []uint32{0, 2, 1, 2, 3, 1},
			Material: -1,
		}
	}
	return out
}

// PlaneMesh is a width x height grid in the XY plane facing +Z, split into
// segments x segments quads. v runs top to bottom like image rows.
func PlaneMesh(width, height float32, segments int) PrimitiveData {
	if segments < 1 {
		segments = 1
	}
	stride := segments + 1
	prim := PrimitiveData{
		Vertices: make([]MeshVertex, 0, stride*stride),
		Indices:  make([]uint32, 0, segments*segments*6),
		Material: -1,
	}
	for iy := 0; iy <= segments; iy++ {
		v := float32(iy) / float32(segments)
		for ix := 0; ix <= segments; ix++ {
			u := float32(ix) / float32(segments)
			prim.Vertices = append(prim.Vertices, MeshVertex{
				Position: [3]float32{(u - 0.5) * width, (0.5 - v) * height, 0},
				Normal:   [3]float32{0, 0, 1},
				UV:       [2]float32{u, v},
			})
		}
	}
	for iy := 0; iy < segments; iy++ {
		for ix := 0; ix < segments; ix++ {
			a := uint32(iy*stride + ix)
			b := uint32((iy+1)*stride + ix)
			c := b + 1
			d := a + 1
			prim.Indices = append(prim.Indices, a, b, d, b, c, d)
		}
	}
	return prim
}

// GroundMaps are the decoded snow maps the ground is baked from.
type GroundMaps struct {
	Albedo           *image.RGBA
	AmbientOcclusion *image.RGBA
	Displacement     *image.RGBA
	Normal           *image.RGBA
	Roughness        *image.RGBA
}

// BakedGround is a ground mesh with its surface maps folded into geometry,
// one colour texture and a scalar roughness.
type BakedGround struct {
	Mesh      PrimitiveData
	Color     *image.RGBA
	Roughness float32
}

// BakeGround displaces the plane along its normal by the displacement map
// times scale, takes vertex normals from the tangent-space normal map,
// multiplies albedo by ambient occlusion and averages the roughness map.
func BakeGround(plane PrimitiveData, maps GroundMaps, displacementScale float32) (BakedGround, error) {
	if maps.Albedo == nil || maps.AmbientOcclusion == nil || maps.Displacement == nil || maps.Normal == nil || maps.Roughness == nil {
		return BakedGround{}, fmt.Errorf("bake ground: %w: missing map", ErrUnsupportedAsset)
	}

	baked := BakedGround{
		Mesh: PrimitiveData{
			Vertices: make([]MeshVertex, len(plane.Vertices)),
			Indices:  plane.Indices,
			Material: plane.Material,
		},
	}
	for i, vtx := range plane.Vertices {
		u, v := vtx.UV[0], vtx.UV[1]
		n := mgl32.Vec3(vtx.Normal)

		d := float32(sampleRGBA(maps.Displacement, u, v)[0]) / 255
		vtx.Position = mgl32.Vec3(vtx.Position).Add(n.Mul(d * displacementScale))

		nm := sampleRGBA(maps.Normal, u, v)
		tangent := mgl32.Vec3{
			float32(nm[0])/255*2 - 1,
			float32(nm[1])/255*2 - 1,
			float32(nm[2])/255*2 - 1,
		}
		if tangent.Len() > 0 {
			vtx.Normal = tangent.Normalize()
		}
		baked.Mesh.Vertices[i] = vtx
	}

	b := maps.Albedo.Rect
	ao := ResizeRGBA(maps.AmbientOcclusion, b.Dx(), b.Dy())
	baked.Color = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			si := maps.Albedo.PixOffset(b.Min.X+x, b.Min.Y+y)
			ai := ao.PixOffset(x, y)
			di := baked.Color.PixOffset(x, y)
			occ := uint32(ao.Pix[ai])
			for c := 0; c < 3; c++ {
				baked.Color.Pix[di+c] = uint8(uint32(maps.Albedo.Pix[si+c]) * occ / 255)
			}
			baked.Color.Pix[di+3] = maps.Albedo.Pix[si+3]
		}
	}

	baked.Roughness = meanRed(maps.Roughness)
	return baked, nil
}

func meanRed(img *image.RGBA) float32 {
	b := img.Rect
	if b.Empty() {
		return 1
	}
	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum += uint64(img.Pix[img.PixOffset(x, y)])
		}
	}
	return float32(sum) / float32(b.Dx()*b.Dy()) / 255
}

// CreatePrimitive registers a generated primitive as a mesh asset.
func (server *AssetServer) CreatePrimitive(prim PrimitiveData) AssetId {
	return server.CreateMesh(prim.Vertices, prim.Indices)
}
