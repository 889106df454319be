package snowscene

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

var ErrNoMeshes = errors.New("model has no drawable meshes")

// ModelData is a decoded glTF document, not yet registered with an AssetServer.
type ModelData struct {
	Source    string
	Meshes    [][]PrimitiveData
	Images    []*image.RGBA
	Materials []MaterialData
	Nodes     []NodeData
	Roots     []int
}

type PrimitiveData struct {
	Vertices []MeshVertex
	Indices  []uint32
	Material int
}

type MaterialData struct {
	Name        string
	BaseColor   [4]float32
	Image       int
	Roughness   float32
	DoubleSided bool
}

type NodeData struct {
	Name      string
	Transform LocalTransformComponent
	Mesh      int
	Children  []int
}

// ReadGLTF loads a .gltf or .glb file with its buffers and images. Only
// triangle primitives are kept. Images that fail to decode are left nil and
// their materials fall back to the base colour.
func ReadGLTF(path string) (*ModelData, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model %s: %w", path, err)
	}

	data := &ModelData{Source: path}
	drawable := 0
	for _, mesh := range doc.Meshes {
		var prims []PrimitiveData
		for _, p := range mesh.Primitives {
			if p.Mode != gltf.PrimitiveTriangles {
				continue
			}
			prim, err := readPrimitive(doc, p)
			if err != nil {
				return nil, fmt.Errorf("model %s mesh %q: %w", path, mesh.Name, err)
			}
			prims = append(prims, prim)
		}
		drawable += len(prims)
		data.Meshes = append(data.Meshes, prims)
	}
	if drawable == 0 {
		return nil, fmt.Errorf("model %s: %w", path, ErrNoMeshes)
	}

	data.Images = make([]*image.RGBA, len(doc.Images))
	for i, img := range doc.Images {
		decoded, err := readImage(doc, img, filepath.Dir(path))
		if err == nil {
			data.Images[i] = decoded
		}
	}

	for _, m := range doc.Materials {
		data.Materials = append(data.Materials, readMaterial(doc, m))
	}

	for _, n := range doc.Nodes {
		node := NodeData{
			Name:      n.Name,
			Transform: nodeTransform(n),
			Mesh:      -1,
			Children:  n.Children,
		}
		if n.Mesh != nil {
			node.Mesh = *n.Mesh
		}
		data.Nodes = append(data.Nodes, node)
	}
	data.Roots = sceneRoots(doc)
	return data, nil
}

func readPrimitive(doc *gltf.Document, p *gltf.Primitive) (PrimitiveData, error) {
	prim := PrimitiveData{Material: -1}
	if p.Material != nil {
		prim.Material = *p.Material
	}

	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return prim, errors.New("primitive without POSITION")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return prim, fmt.Errorf("read positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return prim, fmt.Errorf("read normals: %w", err)
		}
	}
	var uvs [][2]float32
	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return prim, fmt.Errorf("read uvs: %w", err)
		}
	}

	if p.Indices != nil {
		if prim.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil); err != nil {
			return prim, fmt.Errorf("read indices: %w", err)
		}
	} else {
		prim.Indices = make([]uint32, len(positions))
		for i := range prim.Indices {
			prim.Indices[i] = uint32(i)
		}
	}

	prim.Vertices = make([]MeshVertex, len(positions))
	for i, pos := range positions {
		prim.Vertices[i].Position = pos
		if i < len(normals) {
			prim.Vertices[i].Normal = normals[i]
		}
		if i < len(uvs) {
			prim.Vertices[i].UV = uvs[i]
		}
	}
	if len(normals) == 0 {
		computeNormals(prim.Vertices, prim.Indices)
	}
	return prim, nil
}

func readImage(doc *gltf.Document, img *gltf.Image, dir string) (*image.RGBA, error) {
	var raw []byte
	var err error
	switch {
	case img.BufferView != nil:
		raw, err = modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
	case img.IsEmbeddedResource():
		raw, err = img.MarshalData()
	case img.URI != "":
		raw, err = os.ReadFile(filepath.Join(dir, img.URI))
	default:
		err = errors.New("image without data")
	}
	if err != nil {
		return nil, err
	}
	return DecodeTexture(raw)
}

func readMaterial(doc *gltf.Document, m *gltf.Material) MaterialData {
	md := MaterialData{
		Name:        m.Name,
		BaseColor:   [4]float32{1, 1, 1, 1},
		Image:       -1,
		Roughness:   1,
		DoubleSided: m.DoubleSided,
	}
	pbr := m.PBRMetallicRoughness
	if pbr == nil {
		return md
	}
	c := pbr.BaseColorFactorOrDefault()
	md.BaseColor = [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}
	md.Roughness = float32(pbr.RoughnessFactorOrDefault())
	if ti := pbr.BaseColorTexture; ti != nil && ti.Index < len(doc.Textures) {
		if src := doc.Textures[ti.Index].Source; src != nil {
			md.Image = *src
		}
	}
	return md
}

func nodeTransform(n *gltf.Node) LocalTransformComponent {
	if n.Matrix != gltf.DefaultMatrix && n.Matrix != [16]float64{} {
		var m mgl32.Mat4
		for i, v := range n.Matrix {
			m[i] = float32(v)
		}
		return decomposeMatrix(m)
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	return LocalTransformComponent{
		Position: mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])},
		Rotation: mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}},
		Scale:    mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])},
	}
}

// decomposeMatrix splits a column-major TRS matrix. Shear is lost.
func decomposeMatrix(m mgl32.Mat4) LocalTransformComponent {
	scale := mgl32.Vec3{m.Col(0).Vec3().Len(), m.Col(1).Vec3().Len(), m.Col(2).Vec3().Len()}
	rot := mgl32.Ident3()
	for c := 0; c < 3; c++ {
		if scale[c] == 0 {
			continue
		}
		col := m.Col(c).Vec3().Mul(1 / scale[c])
		rot.SetCol(c, col)
	}
	return LocalTransformComponent{
		Position: m.Col(3).Vec3(),
		Rotation: mgl32.Mat4ToQuat(rot.Mat4()).Normalize(),
		Scale:    scale,
	}
}

func sceneRoots(doc *gltf.Document) []int {
	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		return doc.Scenes[*doc.Scene].Nodes
	}
	if len(doc.Scenes) > 0 {
		return doc.Scenes[0].Nodes
	}
	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}

// computeNormals writes area-weighted vertex normals.
func computeNormals(vertices []MeshVertex, indices []uint32) {
	acc := make([]mgl32.Vec3, len(vertices))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		if int(a) >= len(vertices) || int(b) >= len(vertices) || int(c) >= len(vertices) {
			continue
		}
		pa := mgl32.Vec3(vertices[a].Position)
		n := mgl32.Vec3(vertices[b].Position).Sub(pa).Cross(mgl32.Vec3(vertices[c].Position).Sub(pa))
		acc[a] = acc[a].Add(n)
		acc[b] = acc[b].Add(n)
		acc[c] = acc[c].Add(n)
	}
	for i := range vertices {
		n := acc[i]
		if n.Len() > 0 {
			n = n.Normalize()
		} else {
			n = mgl32.Vec3{0, 1, 0}
		}
		vertices[i].Normal = n
	}
}
