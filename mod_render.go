package snowscene

import (
	"errors"
	"fmt"

	"github.com/gekko3d/snowscene/render/core"
	"github.com/gekko3d/snowscene/render/gpu"
)

var ErrNoWindow = errors.New("renderer needs a window")

// Renderer turns a frame description into pixels.
type Renderer interface {
	Resize(width, height int)
	Render(frame *core.Frame, assets core.Assets) error
	Release()
}

// MeshRendererComponent draws a mesh asset with a material asset at the
// entity's TransformComponent.
type MeshRendererComponent struct {
	Mesh     AssetId
	Material AssetId
}

// RenderState is the render resource. Frame is rebuilt every PreRender.
type RenderState struct {
	Renderer Renderer
	Frame    core.Frame
	Width    int
	Height   int
	// Frames counts successful Render calls.
	Frames uint64
}

// RenderModule builds a core.Frame from the scene each frame and hands it to a
// Renderer. Only one RenderModule may be installed per App.
type RenderModule struct {
	// Renderer overrides the GPU renderer. Width and Height are then the
	// initial viewport.
	Renderer      Renderer
	Width, Height int
	ClearColor    [4]float64
}

func (mod RenderModule) Install(app *App, cmd *Commands) {
	if _, ok := Resource[RenderState](app); ok {
		app.Logger().Errorf("render module installed twice")
		panic("render module installed twice")
	}

	state := &RenderState{Renderer: mod.Renderer, Width: mod.Width, Height: mod.Height}
	if state.Renderer == nil {
		ws, ok := Resource[WindowState](app)
		if !ok || ws.window == nil {
			cmd.Fail(ErrNoWindow)
			return
		}
		w, h := ws.window.GetFramebufferSize()
		r, err := gpu.New(ws.window, w, h)
		if err != nil {
			cmd.Fail(fmt.Errorf("create renderer: %w", err))
			return
		}
		state.Renderer = r
		state.Width, state.Height = w, h
	}
	state.Frame.ClearColor = mod.ClearColor
	app.addResources(state)
	app.Logger().Infof("renderer ready (%dx%d)", state.Width, state.Height)

	app.UseSystem(
		System(viewportSystem).
			InStage(PreRender).
			RunAlways(),
	)
	app.UseSystem(
		System(framePrepareSystem).
			InStage(PreRender).
			RunAlways(),
	)
	app.UseSystem(
		System(renderSystem).
			InStage(Render).
			RunAlways(),
	)
	app.UseSystem(
		System(renderReleaseSystem).
			InStage(PostRender).
			RunAlways(),
	)
}

// viewportSystem applies a pending window resize.
func viewportSystem(state *RenderState, cmd *Commands) {
	ws, ok := Resource[WindowState](cmd.app)
	if !ok {
		return
	}
	if w, h, resized := ws.TakeResize(); resized {
		HandleResize(cmd, state, w, h)
	}
}

// HandleResize points every camera at the new aspect ratio and resizes the
// renderer. Zero sizes (minimised windows) are ignored.
func HandleResize(cmd *Commands, state *RenderState, width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	MakeQuery1[CameraComponent](cmd).Map(func(_ EntityId, cam *CameraComponent) bool {
		cam.SetViewport(width, height)
		return true
	})
	state.Width, state.Height = width, height
	state.Renderer.Resize(width, height)
	cmd.Logger().Debugf("viewport %dx%d", width, height)
	return true
}

func framePrepareSystem(state *RenderState, server *AssetServer, cmd *Commands) {
	BuildFrame(cmd, &state.Frame, server)
	state.Frame.Width, state.Frame.Height = state.Width, state.Height
}

// BuildFrame fills frame from the first camera, the lights, every mesh
// renderer and every snow system.
func BuildFrame(cmd *Commands, frame *core.Frame, server *AssetServer) {
	frame.Reset()

	MakeQuery1[CameraComponent](cmd).Map(func(_ EntityId, cam *CameraComponent) bool {
		frame.View = cam.ViewMatrix()
		frame.Projection = cam.ProjectionMatrix()
		frame.CameraPos = cam.Position
		return false
	})

	MakeQuery2[LightComponent, TransformComponent](cmd).Map(func(_ EntityId, light *LightComponent, tr *TransformComponent) bool {
		switch light.Type {
		case LightTypeAmbient:
			for i := range frame.Ambient {
				frame.Ambient[i] += light.Color[i] * light.Intensity
			}
		case LightTypePoint:
			frame.Lights = append(frame.Lights, core.PointLight{
				Position:  tr.Position,
				Color:     light.Color,
				Intensity: light.Intensity,
				Range:     light.Range,
				Decay:     light.Decay,
			})
		}
		return true
	})

	MakeQuery2[MeshRendererComponent, TransformComponent](cmd).Map(func(_ EntityId, mr *MeshRendererComponent, tr *TransformComponent) bool {
		material, ok := server.Material(mr.Material)
		if !ok {
			material = MaterialAsset{BaseColor: [4]float32{1, 1, 1, 1}, Roughness: 1}
		}
		frame.Meshes = append(frame.Meshes, core.MeshDraw{
			Mesh:      string(mr.Mesh),
			Model:     tr.Matrix(),
			BaseColor: material.BaseColor,
			Texture:   string(material.Texture),
			Roughness: material.Roughness,
			Unlit:     material.Unlit,
			Cull:      cullFor(material.Side),
		})
		return true
	})

	snow, ok := Resource[SnowState](cmd.app)
	if !ok {
		return
	}
	MakeQuery2[SnowSystemComponent, TransformComponent](cmd).Map(func(_ EntityId, s *SnowSystemComponent, tr *TransformComponent) bool {
		frame.Sprites = append(frame.Sprites, core.SpriteDraw{
			Key:       "snow",
			Positions: snow.Buffer.Positions,
			Model:     tr.Matrix(),
			Color:     s.Material.Color,
			Size:      s.Material.Size,
			Texture:   string(s.Material.Texture),
		})
		return true
	})
}

func cullFor(side Side) core.Cull {
	switch side {
	case SideBack:
		return core.CullFront
	case SideDouble:
		return core.CullNone
	default:
		return core.CullBack
	}
}

func renderSystem(state *RenderState, server *AssetServer, cmd *Commands) {
	if state.Width <= 0 || state.Height <= 0 {
		return
	}
	if err := state.Renderer.Render(&state.Frame, server); err != nil {
		cmd.Fail(fmt.Errorf("render frame: %w", err))
		return
	}
	state.Frames++
}

// renderReleaseSystem frees the renderer on the last frame.
func renderReleaseSystem(state *RenderState, cmd *Commands) {
	if cmd.app.done {
		state.Renderer.Release()
	}
}
