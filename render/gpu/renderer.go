package gpu

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/snowscene/render/core"
	"github.com/gekko3d/snowscene/render/shaders"
)

const depthFormat = wgpu.TextureFormatDepth24Plus

type gpuMesh struct {
	vertices   *wgpu.Buffer
	indices    *wgpu.Buffer
	indexCount uint32
}

type gpuTexture struct {
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	bindGroup *wgpu.BindGroup
}

// uniformRing is a dynamic-offset uniform buffer that grows to fit a frame.
type uniformRing struct {
	label     string
	blockSize uint64
	stride    uint64
	capacity  int
	buffer    *wgpu.Buffer
	bindGroup *wgpu.BindGroup
	staging   []byte
}

// Renderer draws core.Frames into a GLFW window surface.
type Renderer struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface
	config   *wgpu.SurfaceConfiguration

	globalsLayout *wgpu.BindGroupLayout
	drawLayout    *wgpu.BindGroupLayout
	textureLayout *wgpu.BindGroupLayout

	meshPipelines  [3]*wgpu.RenderPipeline
	spritePipeline *wgpu.RenderPipeline

	globals   *wgpu.Buffer
	globalsBG *wgpu.BindGroup
	draws     *uniformRing
	sprites   *uniformRing
	sampler   *wgpu.Sampler
	white     *gpuTexture

	depth     *wgpu.Texture
	depthView *wgpu.TextureView

	meshes    map[string]*gpuMesh
	textures  map[string]*gpuTexture
	instances map[string]*wgpu.Buffer
}

// New creates a device for win and builds the mesh and sprite pipelines.
func New(win *glfw.Window, width, height int) (*Renderer, error) {
	r := &Renderer{
		meshes:    make(map[string]*gpuMesh),
		textures:  make(map[string]*gpuTexture),
		instances: make(map[string]*wgpu.Buffer),
	}

	r.instance = wgpu.CreateInstance(nil)
	r.surface = r.instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win))

	adapter, err := r.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: r.surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		r.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	r.adapter = adapter

	r.device, err = adapter.RequestDevice(nil)
	if err != nil {
		r.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	r.queue = r.device.GetQueue()

	caps := r.surface.GetCapabilities(adapter)
	r.config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(max(width, 1)),
		Height:      uint32(max(height, 1)),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	r.surface.Configure(adapter, r.device, r.config)

	if err := r.init(); err != nil {
		r.Release()
		return nil, err
	}
	return r, nil
}

func (r *Renderer) init() error {
	var err error
	if err = r.createLayouts(); err != nil {
		return err
	}
	if err = r.createMeshPipelines(); err != nil {
		return err
	}
	if err = r.createSpritePipeline(); err != nil {
		return err
	}

	r.globals, err = r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Globals",
		Size:  uint64(unsafe.Sizeof(core.Globals{})),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create globals buffer: %w", err)
	}
	r.globalsBG, err = r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "GlobalsBG",
		Layout: r.globalsLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.globals, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("create globals bind group: %w", err)
	}

	r.draws = &uniformRing{label: "Draws", blockSize: uint64(unsafe.Sizeof(core.DrawUniform{}))}
	r.sprites = &uniformRing{label: "Sprites", blockSize: uint64(unsafe.Sizeof(core.SpriteUniform{}))}

	r.sampler, err = r.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}

	r.white, err = r.uploadTexture("white", []byte{255, 255, 255, 255}, 1, 1)
	if err != nil {
		return err
	}
	return r.createDepth()
}

func (r *Renderer) createLayouts() error {
	var err error
	r.globalsLayout, err = r.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "GlobalsBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uint64(unsafe.Sizeof(core.Globals{})),
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create globals layout: %w", err)
	}

	// Shared by the per-mesh and per-sprite-cloud blocks; both are bound with a dynamic offset.
	r.drawLayout, err = r.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "DrawBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create draw layout: %w", err)
	}

	r.textureLayout, err = r.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "TextureBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create texture layout: %w", err)
	}
	return nil
}

func (r *Renderer) createMeshPipelines() error {
	module, err := r.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "MeshShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.MeshWGSL},
	})
	if err != nil {
		return fmt.Errorf("compile mesh shader: %w", err)
	}
	defer module.Release()

	layout, err := r.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "MeshPipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.globalsLayout, r.drawLayout, r.textureLayout},
	})
	if err != nil {
		return fmt.Errorf("create mesh pipeline layout: %w", err)
	}
	defer layout.Release()

	culls := [3]wgpu.CullMode{
		core.CullBack:  wgpu.CullModeBack,
		core.CullFront: wgpu.CullModeFront,
		core.CullNone:  wgpu.CullModeNone,
	}
	for i, cull := range culls {
		r.meshPipelines[i], err = r.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label:  fmt.Sprintf("MeshPipeline%d", i),
			Layout: layout,
			Vertex: wgpu.VertexState{
				Module:     module,
				EntryPoint: "vs_main",
				Buffers: []wgpu.VertexBufferLayout{
					{
						ArrayStride: uint64(unsafe.Sizeof(core.Vertex{})),
						StepMode:    wgpu.VertexStepModeVertex,
						Attributes: []wgpu.VertexAttribute{
							{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
							{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
							{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
						},
					},
				},
			},
			Fragment: &wgpu.FragmentState{
				Module:     module,
				EntryPoint: "fs_main",
				Targets: []wgpu.ColorTargetState{
					{
						Format:    r.config.Format,
						WriteMask: wgpu.ColorWriteMaskAll,
					},
				},
			},
			Primitive: wgpu.PrimitiveState{
				Topology:  wgpu.PrimitiveTopologyTriangleList,
				FrontFace: wgpu.FrontFaceCCW,
				CullMode:  cull,
			},
			DepthStencil: &wgpu.DepthStencilState{
				Format:            depthFormat,
				DepthWriteEnabled: true,
				DepthCompare:      wgpu.CompareFunctionLess,
				StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
				StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			},
			Multisample: wgpu.MultisampleState{
				Count: 1,
				Mask:  0xFFFFFFFF,
			},
		})
		if err != nil {
			return fmt.Errorf("create mesh pipeline: %w", err)
		}
	}
	return nil
}

func (r *Renderer) createSpritePipeline() error {
	module, err := r.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "SpriteShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.SpriteWGSL},
	})
	if err != nil {
		return fmt.Errorf("compile sprite shader: %w", err)
	}
	defer module.Release()

	layout, err := r.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "SpritePipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.drawLayout, r.textureLayout},
	})
	if err != nil {
		return fmt.Errorf("create sprite pipeline layout: %w", err)
	}
	defer layout.Release()

	additive := wgpu.BlendComponent{
		Operation: wgpu.BlendOperationAdd,
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOne,
	}
	r.spritePipeline, err = r.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "SpritePipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: 12,
					StepMode:    wgpu.VertexStepModeInstance,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    r.config.Format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend:     &wgpu.BlendState{Color: additive, Alpha: additive},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		// Snow ignores depth and never occludes.
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: false,
			DepthCompare:      wgpu.CompareFunctionAlways,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create sprite pipeline: %w", err)
	}
	return nil
}

func (r *Renderer) createDepth() error {
	if r.depthView != nil {
		r.depthView.Release()
		r.depthView = nil
	}
	if r.depth != nil {
		r.depth.Release()
		r.depth = nil
	}
	var err error
	r.depth, err = r.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth",
		Size: wgpu.Extent3D{
			Width:              r.config.Width,
			Height:             r.config.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}
	r.depthView, err = r.depth.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create depth view: %w", err)
	}
	return nil
}

// Resize reconfigures the surface. Zero sizes are ignored.
func (r *Renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.config.Width = uint32(width)
	r.config.Height = uint32(height)
	r.surface.Configure(r.adapter, r.device, r.config)
	if err := r.createDepth(); err != nil {
		fmt.Printf("ERROR: resize depth: %v\n", err)
	}
}

func (r *Renderer) mesh(id string, assets core.Assets) (*gpuMesh, error) {
	if m, ok := r.meshes[id]; ok {
		return m, nil
	}
	vertices, indices, ok := assets.MeshData(id)
	if !ok || len(vertices) == 0 || len(indices) == 0 {
		return nil, nil
	}
	vb, err := r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Vertex Buffer " + id,
		Contents: wgpu.ToBytes(vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, fmt.Errorf("upload mesh %s: %w", id, err)
	}
	ib, err := r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Index Buffer " + id,
		Contents: wgpu.ToBytes(indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		vb.Release()
		return nil, fmt.Errorf("upload mesh %s: %w", id, err)
	}
	m := &gpuMesh{vertices: vb, indices: ib, indexCount: uint32(len(indices))}
	r.meshes[id] = m
	return m, nil
}

// texture returns the uploaded texture for id, or nil when the id is empty or
// not loaded yet.
func (r *Renderer) texture(id string, assets core.Assets) (*gpuTexture, error) {
	if id == "" {
		return nil, nil
	}
	if t, ok := r.textures[id]; ok {
		return t, nil
	}
	texels, w, h, ok := assets.TextureData(id)
	if !ok || w == 0 || h == 0 {
		return nil, nil
	}
	t, err := r.uploadTexture(id, texels, w, h)
	if err != nil {
		return nil, err
	}
	r.textures[id] = t
	return t, nil
}

func (r *Renderer) uploadTexture(label string, texels []byte, width, height uint32) (*gpuTexture, error) {
	extent := wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}
	texture, err := r.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          extent,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %s: %w", label, err)
	}
	err = r.queue.WriteTexture(
		texture.AsImageCopy(),
		texels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  width * 4,
			RowsPerImage: height,
		},
		&extent,
	)
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("write texture %s: %w", label, err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("create texture view %s: %w", label, err)
	}
	bg, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label,
		Layout: r.textureLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view, Size: wgpu.WholeSize},
			{Binding: 1, Sampler: r.sampler, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		view.Release()
		texture.Release()
		return nil, fmt.Errorf("bind texture %s: %w", label, err)
	}
	return &gpuTexture{texture: texture, view: view, bindGroup: bg}, nil
}

// reserve grows the ring so it holds n blocks.
func (r *Renderer) reserve(ring *uniformRing, n int) error {
	ring.stride = core.AlignUniform(ring.blockSize)
	if n <= ring.capacity && ring.buffer != nil {
		return nil
	}
	capacity := max(n, ring.capacity*2, 16)
	if ring.bindGroup != nil {
		ring.bindGroup.Release()
	}
	if ring.buffer != nil {
		ring.buffer.Release()
	}
	var err error
	ring.buffer, err = r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: ring.label,
		Size:  ring.stride * uint64(capacity),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("grow %s: %w", ring.label, err)
	}
	ring.bindGroup, err = r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  ring.label,
		Layout: r.drawLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: ring.buffer, Size: ring.blockSize},
		},
	})
	if err != nil {
		return fmt.Errorf("bind %s: %w", ring.label, err)
	}
	ring.capacity = capacity
	ring.staging = make([]byte, ring.stride*uint64(capacity))
	return nil
}

func writeBlock[T any](ring *uniformRing, index int, block T) uint32 {
	offset := ring.stride * uint64(index)
	copy(ring.staging[offset:], wgpu.ToBytes([]T{block}))
	return uint32(offset)
}

func (r *Renderer) flush(ring *uniformRing, n int) {
	if n == 0 {
		return
	}
	r.queue.WriteBuffer(ring.buffer, 0, ring.staging[:ring.stride*uint64(n)])
}

func (r *Renderer) instanceBuffer(key string, size uint64) (*wgpu.Buffer, error) {
	if buf, ok := r.instances[key]; ok && buf.GetSize() >= size {
		return buf, nil
	} else if ok {
		buf.Release()
	}
	buf, err := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Sprites " + key,
		Size:  size,
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create sprite buffer %s: %w", key, err)
	}
	r.instances[key] = buf
	return buf, nil
}

type meshCall struct {
	mesh    *gpuMesh
	texture *gpuTexture
	offset  uint32
	cull    core.Cull
}

type spriteCall struct {
	instances *wgpu.Buffer
	count     uint32
	texture   *gpuTexture
	offset    uint32
}

// Render uploads whatever the frame references that is not on the GPU yet,
// then draws meshes followed by sprite clouds. Ids the assets cannot resolve
// yet are skipped.
func (r *Renderer) Render(f *core.Frame, assets core.Assets) error {
	r.queue.WriteBuffer(r.globals, 0, wgpu.ToBytes([]core.Globals{core.NewGlobals(f)}))

	if err := r.reserve(r.draws, len(f.Meshes)); err != nil {
		return err
	}
	meshCalls := make([]meshCall, 0, len(f.Meshes))
	for _, d := range f.Meshes {
		m, err := r.mesh(d.Mesh, assets)
		if err != nil {
			return err
		}
		if m == nil {
			continue
		}
		tex, err := r.texture(d.Texture, assets)
		if err != nil {
			return err
		}
		textured := tex != nil
		if !textured {
			tex = r.white
		}
		offset := writeBlock(r.draws, len(meshCalls), core.NewDrawUniform(d, textured))
		meshCalls = append(meshCalls, meshCall{mesh: m, texture: tex, offset: offset, cull: d.Cull})
	}
	r.flush(r.draws, len(meshCalls))

	if err := r.reserve(r.sprites, len(f.Sprites)); err != nil {
		return err
	}
	uploaded := make(map[string]*wgpu.Buffer)
	spriteCalls := make([]spriteCall, 0, len(f.Sprites))
	for _, s := range f.Sprites {
		if len(s.Positions) == 0 {
			continue
		}
		buf, ok := uploaded[s.Key]
		if !ok {
			data := wgpu.ToBytes(s.Positions)
			var err error
			if buf, err = r.instanceBuffer(s.Key, uint64(len(data))); err != nil {
				return err
			}
			r.queue.WriteBuffer(buf, 0, data)
			uploaded[s.Key] = buf
		}
		tex, err := r.texture(s.Texture, assets)
		if err != nil {
			return err
		}
		if tex == nil {
			tex = r.white
		}
		offset := writeBlock(r.sprites, len(spriteCalls), core.NewSpriteUniform(f, s))
		spriteCalls = append(spriteCalls, spriteCall{instances: buf, count: uint32(len(s.Positions)), texture: tex, offset: offset})
	}
	r.flush(r.sprites, len(spriteCalls))

	next, err := r.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	defer next.Release()
	view, err := next.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create surface view: %w", err)
	}
	defer view.Release()

	encoder, err := r.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}
	defer encoder.Release()

	c := f.ClearColor
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: c[0], G: c[1], B: c[2], A: c[3]},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})

	pass.SetBindGroup(0, r.globalsBG, nil)
	for _, call := range meshCalls {
		pass.SetPipeline(r.meshPipelines[call.cull])
		pass.SetBindGroup(1, r.draws.bindGroup, []uint32{call.offset})
		pass.SetBindGroup(2, call.texture.bindGroup, nil)
		pass.SetVertexBuffer(0, call.mesh.vertices, 0, call.mesh.vertices.GetSize())
		pass.SetIndexBuffer(call.mesh.indices, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(call.mesh.indexCount, 1, 0, 0, 0)
	}

	if len(spriteCalls) > 0 {
		pass.SetPipeline(r.spritePipeline)
		for _, call := range spriteCalls {
			pass.SetBindGroup(0, r.sprites.bindGroup, []uint32{call.offset})
			pass.SetBindGroup(1, call.texture.bindGroup, nil)
			pass.SetVertexBuffer(0, call.instances, 0, uint64(call.count)*12)
			pass.Draw(6, call.count, 0, 0)
		}
	}

	if err := pass.End(); err != nil {
		return fmt.Errorf("end render pass: %w", err)
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	defer cmd.Release()
	r.queue.Submit(cmd)
	r.surface.Present()
	return nil
}

// Release frees every GPU object. The renderer is unusable afterwards.
func (r *Renderer) Release() {
	for id, m := range r.meshes {
		m.vertices.Release()
		m.indices.Release()
		delete(r.meshes, id)
	}
	for id, t := range r.textures {
		t.release()
		delete(r.textures, id)
	}
	for key, buf := range r.instances {
		buf.Release()
		delete(r.instances, key)
	}
	if r.white != nil {
		r.white.release()
		r.white = nil
	}
	for _, ring := range []*uniformRing{r.draws, r.sprites} {
		if ring == nil {
			continue
		}
		if ring.bindGroup != nil {
			ring.bindGroup.Release()
		}
		if ring.buffer != nil {
			ring.buffer.Release()
		}
	}
	r.draws, r.sprites = nil, nil

	if r.depthView != nil {
		r.depthView.Release()
		r.depthView = nil
	}
	if r.depth != nil {
		r.depth.Release()
		r.depth = nil
	}
	if r.sampler != nil {
		r.sampler.Release()
		r.sampler = nil
	}
	if r.globalsBG != nil {
		r.globalsBG.Release()
		r.globalsBG = nil
	}
	if r.globals != nil {
		r.globals.Release()
		r.globals = nil
	}
	if r.spritePipeline != nil {
		r.spritePipeline.Release()
		r.spritePipeline = nil
	}
	for i, p := range r.meshPipelines {
		if p != nil {
			p.Release()
			r.meshPipelines[i] = nil
		}
	}
	for _, l := range []**wgpu.BindGroupLayout{&r.textureLayout, &r.drawLayout, &r.globalsLayout} {
		if *l != nil {
			(*l).Release()
			*l = nil
		}
	}
	if r.device != nil {
		r.device.Release()
		r.device = nil
	}
	if r.adapter != nil {
		r.adapter.Release()
		r.adapter = nil
	}
	if r.surface != nil {
		r.surface.Release()
		r.surface = nil
	}
	if r.instance != nil {
		r.instance.Release()
		r.instance = nil
	}
}

func (t *gpuTexture) release() {
	t.bindGroup.Release()
	t.view.Release()
	t.texture.Release()
}
