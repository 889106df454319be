package snowscene

import (
	"fmt"
	"image"
	"sync"

	"github.com/gekko3d/snowscene/render/core"
	"github.com/google/uuid"
)

type AssetId string

type TextureFormat uint32

const (
	TextureFormatRGBA8Unorm TextureFormat = 0x00000012
)

// Side selects which faces of a mesh are drawn.
type Side uint8

const (
	SideFront Side = iota
	SideBack
	SideDouble
)

// MeshVertex is the vertex layout the mesh pipeline consumes.
type MeshVertex = core.Vertex

type MeshAsset struct {
	Version  uint
	Vertices []MeshVertex
	Indices  []uint32
}

type TextureAsset struct {
	Version uint
	Texels  []uint8
	Width   uint32
	Height  uint32
	Format  TextureFormat
	Source  string
}

// Image views the texels as an RGBA image without copying.
func (tex TextureAsset) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    tex.Texels,
		Stride: int(tex.Width) * 4,
		Rect:   image.Rect(0, 0, int(tex.Width), int(tex.Height)),
	}
}

type MaterialAsset struct {
	Version   uint
	BaseColor [4]float32
	// Texture is multiplied with BaseColor. Empty means untextured.
	Texture   AssetId
	Roughness float32
	Unlit     bool
	Side      Side
}

type ModelPrimitive struct {
	Mesh     AssetId
	Material AssetId
}

type ModelNode struct {
	Name       string
	Transform  LocalTransformComponent
	Primitives []ModelPrimitive
	Children   []int
}

// ModelAsset is a node tree whose primitives point at mesh and material assets.
type ModelAsset struct {
	Source string
	Nodes  []ModelNode
	Roots  []int
}

// TextureResult is the outcome of an async texture load. Exactly one of Id and Err is set.
type TextureResult struct {
	Path string
	Id   AssetId
	Err  error
}

func (r TextureResult) OK() bool { return r.Err == nil }

// ModelResult is the outcome of an async model load. Exactly one of Id and Err is set.
type ModelResult struct {
	Path string
	Id   AssetId
	Err  error
}

func (r ModelResult) OK() bool { return r.Err == nil }

type completion func(cmd *Commands)

// AssetServer owns every loaded asset. Loads run on goroutines; their completions
// are queued and handed to callbacks from the PreUpdate stage, so callbacks may
// freely spawn entities.
type AssetServer struct {
	mu        sync.RWMutex
	meshes    map[AssetId]MeshAsset
	textures  map[AssetId]TextureAsset
	materials map[AssetId]MaterialAsset
	models    map[AssetId]ModelAsset

	queueMu  sync.Mutex
	queue    []completion
	inflight sync.WaitGroup
}

func NewAssetServer() *AssetServer {
	return &AssetServer{
		meshes:    make(map[AssetId]MeshAsset),
		textures:  make(map[AssetId]TextureAsset),
		materials: make(map[AssetId]MaterialAsset),
		models:    make(map[AssetId]ModelAsset),
	}
}

type AssetServerModule struct{}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	app.addResources(NewAssetServer())
	app.UseSystem(
		System(assetCompletionSystem).
			InStage(PreUpdate).
			RunAlways(),
	)
}

func assetCompletionSystem(server *AssetServer, cmd *Commands) {
	server.Drain(cmd)
}

func (server *AssetServer) CreateMesh(vertices []MeshVertex, indices []uint32) AssetId {
	id := makeAssetId()
	server.mu.Lock()
	server.meshes[id] = MeshAsset{Vertices: vertices, Indices: indices}
	server.mu.Unlock()
	return id
}

func (server *AssetServer) CreateTexture(texels []uint8, texWidth uint32, texHeight uint32, format TextureFormat) AssetId {
	id := makeAssetId()
	server.mu.Lock()
	server.textures[id] = TextureAsset{
		Texels: texels,
		Width:  texWidth,
		Height: texHeight,
		Format: format,
	}
	server.mu.Unlock()
	return id
}

func (server *AssetServer) createTextureFromImage(img *image.RGBA, source string) AssetId {
	b := img.Bounds()
	id := server.CreateTexture(img.Pix, uint32(b.Dx()), uint32(b.Dy()), TextureFormatRGBA8Unorm)
	server.mu.Lock()
	tex := server.textures[id]
	tex.Source = source
	server.textures[id] = tex
	server.mu.Unlock()
	return id
}

func (server *AssetServer) CreateMaterial(material MaterialAsset) AssetId {
	id := makeAssetId()
	server.mu.Lock()
	server.materials[id] = material
	server.mu.Unlock()
	return id
}

func (server *AssetServer) Mesh(id AssetId) (MeshAsset, bool) {
	server.mu.RLock()
	defer server.mu.RUnlock()
	m, ok := server.meshes[id]
	return m, ok
}

func (server *AssetServer) Texture(id AssetId) (TextureAsset, bool) {
	server.mu.RLock()
	defer server.mu.RUnlock()
	t, ok := server.textures[id]
	return t, ok
}

func (server *AssetServer) Material(id AssetId) (MaterialAsset, bool) {
	server.mu.RLock()
	defer server.mu.RUnlock()
	m, ok := server.materials[id]
	return m, ok
}

func (server *AssetServer) Model(id AssetId) (ModelAsset, bool) {
	server.mu.RLock()
	defer server.mu.RUnlock()
	m, ok := server.models[id]
	return m, ok
}

// MeshData and TextureData let a renderer pull geometry and texels by id.
func (server *AssetServer) MeshData(id string) ([]core.Vertex, []uint32, bool) {
	m, ok := server.Mesh(AssetId(id))
	return m.Vertices, m.Indices, ok
}

func (server *AssetServer) TextureData(id string) ([]byte, uint32, uint32, bool) {
	t, ok := server.Texture(AssetId(id))
	return t.Texels, t.Width, t.Height, ok
}

// LoadTexture decodes path synchronously.
func (server *AssetServer) LoadTexture(path string) (AssetId, error) {
	img, err := DecodeTextureFile(path)
	if err != nil {
		return "", err
	}
	return server.createTextureFromImage(img, path), nil
}

// LoadTextureAsync decodes path on a goroutine. done runs on the frame loop.
func (server *AssetServer) LoadTextureAsync(path string, done func(cmd *Commands, res TextureResult)) {
	server.inflight.Add(1)
	go func() {
		defer server.inflight.Done()
		img, err := DecodeTextureFile(path)
		server.enqueue(func(cmd *Commands) {
			res := TextureResult{Path: path, Err: err}
			if err == nil {
				res.Id = server.createTextureFromImage(img, path)
			}
			done(cmd, res)
		})
	}()
}

// LoadModel reads a glTF/GLB file synchronously.
func (server *AssetServer) LoadModel(path string) (AssetId, error) {
	data, err := ReadGLTF(path)
	if err != nil {
		return "", err
	}
	return server.addModel(data), nil
}

// LoadModelAsync reads a glTF/GLB file on a goroutine. done runs on the frame loop.
func (server *AssetServer) LoadModelAsync(path string, done func(cmd *Commands, res ModelResult)) {
	server.inflight.Add(1)
	go func() {
		defer server.inflight.Done()
		data, err := ReadGLTF(path)
		server.enqueue(func(cmd *Commands) {
			res := ModelResult{Path: path, Err: err}
			if err == nil {
				res.Id = server.addModel(data)
			}
			done(cmd, res)
		})
	}()
}

func (server *AssetServer) enqueue(c completion) {
	server.queueMu.Lock()
	server.queue = append(server.queue, c)
	server.queueMu.Unlock()
}

// Wait blocks until every started load has queued its completion.
func (server *AssetServer) Wait() {
	server.inflight.Wait()
}

// Drain runs the queued completions in arrival order and returns how many ran.
func (server *AssetServer) Drain(cmd *Commands) int {
	server.queueMu.Lock()
	queue := server.queue
	server.queue = nil
	server.queueMu.Unlock()

	for _, c := range queue {
		c(cmd)
	}
	return len(queue)
}

func (server *AssetServer) addModel(data *ModelData) AssetId {
	images := make([]AssetId, len(data.Images))
	for i, img := range data.Images {
		if img != nil {
			images[i] = server.createTextureFromImage(img, fmt.Sprintf("%s#image%d", data.Source, i))
		}
	}

	materials := make([]AssetId, len(data.Materials))
	for i, m := range data.Materials {
		asset := MaterialAsset{
			BaseColor: m.BaseColor,
			Roughness: m.Roughness,
			Side:      SideFront,
		}
		if m.DoubleSided {
			asset.Side = SideDouble
		}
		if m.Image >= 0 && m.Image < len(images) {
			asset.Texture = images[m.Image]
		}
		materials[i] = server.CreateMaterial(asset)
	}
	var fallback AssetId
	defaultMaterial := func() AssetId {
		if fallback == "" {
			fallback = server.CreateMaterial(MaterialAsset{BaseColor: [4]float32{1, 1, 1, 1}, Roughness: 1})
		}
		return fallback
	}

	meshes := make([][]ModelPrimitive, len(data.Meshes))
	for i, prims := range data.Meshes {
		for _, p := range prims {
			var material AssetId
			if p.Material >= 0 && p.Material < len(materials) {
				material = materials[p.Material]
			} else {
				material = defaultMaterial()
			}
			meshes[i] = append(meshes[i], ModelPrimitive{
				Mesh:     server.CreateMesh(p.Vertices, p.Indices),
				Material: material,
			})
		}
	}

	model := ModelAsset{Source: data.Source, Roots: data.Roots}
	for _, n := range data.Nodes {
		node := ModelNode{Name: n.Name, Transform: n.Transform, Children: n.Children}
		if n.Mesh >= 0 && n.Mesh < len(meshes) {
			node.Primitives = meshes[n.Mesh]
		}
		model.Nodes = append(model.Nodes, node)
	}

	id := makeAssetId()
	server.mu.Lock()
	server.models[id] = model
	server.mu.Unlock()
	return id
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}
