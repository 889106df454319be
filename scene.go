package snowscene

import (
	"errors"
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// SceneState tracks what the spawner has put into the world so far. Objects
// that depend on async loads show up once their loads resolve.
type SceneState struct {
	Camera      EntityId
	SkyboxFaces int
	Ground      EntityId
	HasGround   bool
	Tree        EntityId
	HasTree     bool
	// Pending counts loads whose completion has not run yet.
	Pending int
	// Failures lists every load that failed, in completion order.
	Failures []error
}

// SceneModule spawns the whole snow scene from a SceneConfig: camera with orbit
// controls, lights, skybox, ground, tree and the snow systems. Window,
// renderer and music are installed separately so the scene also runs headless.
type SceneModule struct {
	Config SceneConfig
}

func (mod SceneModule) Install(app *App, cmd *Commands) {
	cfg := mod.Config
	if _, ok := Resource[AssetServer](app); !ok {
		AssetServerModule{}.Install(app, cmd)
	}
	if _, ok := Resource[Input](app); !ok {
		InputModule{}.Install(app, cmd)
	}
	if _, ok := Resource[Time](app); !ok {
		TimeModule{}.Install(app, cmd)
	}
	if _, ok := Resource[hierarchySettings](app); !ok {
		HierarchyModule{}.Install(app, cmd)
	}
	OrbitCameraModule{}.Install(app, cmd)
	SnowModule{Config: cfg.Snow}.Install(app, cmd)

	server, _ := Resource[AssetServer](app)
	state := &SceneState{}
	app.addResources(state)

	s := &spawner{cfg: cfg, server: server, state: state}
	s.camera(cmd)
	s.lights(cmd)
	s.skybox()
	s.ground()
	s.tree()
	s.snowSprites()
	app.Logger().Infof("scene %q: %d loads in flight", cfg.Name, state.Pending)
}

type spawner struct {
	cfg    SceneConfig
	server *AssetServer
	state  *SceneState
}

// failed applies the error policy to a load failure.
func (s *spawner) failed(cmd *Commands, what string, err error) {
	err = fmt.Errorf("%s: %w", what, err)
	s.state.Failures = append(s.state.Failures, err)
	if s.cfg.ErrorPolicy == ErrorPolicyFail {
		cmd.Fail(err)
		return
	}
	cmd.Logger().Warnf("skipping %v", err)
}

func (s *spawner) camera(cmd *Commands) {
	c := s.cfg.Camera
	cam := CameraComponent{
		Position: c.Position,
		LookAt:   c.Target,
		Up:       mgl32.Vec3{0, 1, 0},
		Fov:      c.Fov,
		Near:     c.Near,
		Far:      c.Far,
	}
	cam.SetViewport(s.cfg.Window.Width, s.cfg.Window.Height)
	orbit := NewOrbitControls(s.cfg.Controls, c.Target)
	s.state.Camera = cmd.AddEntity(&cam, &orbit)
}

func (s *spawner) lights(cmd *Commands) {
	l := s.cfg.Lights
	ambient := IdentityTransform()
	cmd.AddEntity(&LightComponent{
		Type:      LightTypeAmbient,
		Color:     HexColor(l.AmbientColor),
		Intensity: l.AmbientIntensity,
	}, &ambient)

	for _, p := range l.Points {
		tr := IdentityTransform()
		tr.Position = p.Position
		cmd.AddEntity(&LightComponent{
			Type:      LightTypePoint,
			Color:     HexColor(p.Color),
			Intensity: p.Intensity,
			Range:     p.Distance,
			Decay:     p.Decay,
		}, &tr)
	}
}

// skybox puts one unlit inward-facing quad per cube face. A face whose texture
// fails to load is left out.
func (s *spawner) skybox() {
	faces := BoxFaces(s.cfg.Skybox.Size)
	for i, path := range s.cfg.Skybox.Faces {
		face := faces[i]
		s.state.Pending++
		s.server.LoadTextureAsync(s.cfg.Resolve(path), func(cmd *Commands, res TextureResult) {
			s.state.Pending--
			if !res.OK() {
				s.failed(cmd, "skybox face "+path, res.Err)
				return
			}
			material := s.server.CreateMaterial(MaterialAsset{
				BaseColor: [4]float32{1, 1, 1, 1},
				Texture:   res.Id,
				Roughness: 1,
				Unlit:     true,
				Side:      SideBack,
			})
			tr := IdentityTransform()
			cmd.AddEntity(&MeshRendererComponent{Mesh: s.server.CreatePrimitive(face), Material: material}, &tr)
			s.state.SkyboxFaces++
		})
	}
}

// ground waits for all five maps, bakes them into one mesh and lays it flat.
// Any failed map leaves the ground out.
func (s *spawner) ground() {
	g := s.cfg.Ground
	paths := []string{g.Albedo, g.AmbientOcclusion, g.Displacement, g.Normal, g.Roughness}
	results := make([]TextureResult, 0, len(paths))

	for _, path := range paths {
		s.state.Pending++
		s.server.LoadTextureAsync(s.cfg.Resolve(path), func(cmd *Commands, res TextureResult) {
			s.state.Pending--
			results = append(results, res)
			if len(results) == len(paths) {
				s.spawnGround(cmd, results)
			}
		})
	}
}

func (s *spawner) spawnGround(cmd *Commands, results []TextureResult) {
	var errs []error
	byPath := make(map[string]*TextureResult, len(results))
	for i := range results {
		if !results[i].OK() {
			errs = append(errs, results[i].Err)
		}
		byPath[results[i].Path] = &results[i]
	}
	if len(errs) > 0 {
		s.failed(cmd, "ground", errors.Join(errs...))
		return
	}

	g := s.cfg.Ground
	maps := GroundMaps{}
	for _, m := range []struct {
		path string
		dst  **image.RGBA
	}{
		{g.Albedo, &maps.Albedo},
		{g.AmbientOcclusion, &maps.AmbientOcclusion},
		{g.Displacement, &maps.Displacement},
		{g.Normal, &maps.Normal},
		{g.Roughness, &maps.Roughness},
	} {
		if res := byPath[s.cfg.Resolve(m.path)]; res != nil {
			if tex, ok := s.server.Texture(res.Id); ok {
				*m.dst = tex.Image()
			}
		}
	}

	baked, err := BakeGround(PlaneMesh(g.Width, g.Depth, g.Segments), maps, g.DisplacementScale)
	if err != nil {
		s.failed(cmd, "ground", err)
		return
	}
	texture := s.server.createTextureFromImage(baked.Color, "ground")
	material := s.server.CreateMaterial(MaterialAsset{
		BaseColor: [4]float32{1, 1, 1, 1},
		Texture:   texture,
		Roughness: baked.Roughness,
		Side:      SideFront,
	})

	tr := IdentityTransform()
	tr.Position = mgl32.Vec3{0, g.Elevation, 0}
	tr.Rotation = EulerRotation(-mgl32.DegToRad(90), 0, 0)
	s.state.Ground = cmd.AddEntity(&MeshRendererComponent{Mesh: s.server.CreatePrimitive(baked.Mesh), Material: material}, &tr)
	s.state.HasGround = true
	cmd.Logger().Debugf("ground baked: %d vertices, roughness %.2f", len(baked.Mesh.Vertices), baked.Roughness)
}

func (s *spawner) tree() {
	m := s.cfg.Model
	if m.Path == "" {
		return
	}
	s.state.Pending++
	s.server.LoadModelAsync(s.cfg.Resolve(m.Path), func(cmd *Commands, res ModelResult) {
		s.state.Pending--
		if !res.OK() {
			s.failed(cmd, "tree", res.Err)
			return
		}
		root := LocalTransformComponent{
			Position: m.Position,
			Rotation: mgl32.QuatIdent(),
			Scale:    m.Scale,
		}
		eid, ok := SpawnModel(cmd, s.server, res.Id, root, m.DoubleSided)
		if !ok {
			s.failed(cmd, "tree", fmt.Errorf("model %s vanished", res.Id))
			return
		}
		s.state.Tree = eid
		s.state.HasTree = true
	})
}

// SpawnModel instantiates a loaded model under a root entity placed at root.
// Every node becomes an entity parented to its glTF parent; each primitive is
// a child entity carrying a MeshRendererComponent. doubleSided forces every
// material to render both faces.
func SpawnModel(cmd *Commands, server *AssetServer, id AssetId, root LocalTransformComponent, doubleSided bool) (EntityId, bool) {
	model, ok := server.Model(id)
	if !ok {
		return 0, false
	}
	rootWorld := TransformComponent(root)
	rootEid := cmd.AddEntity(&rootWorld)

	sided := map[AssetId]AssetId{}
	material := func(mid AssetId) AssetId {
		if !doubleSided {
			return mid
		}
		if v, ok := sided[mid]; ok {
			return v
		}
		mat, _ := server.Material(mid)
		mat.Side = SideDouble
		sided[mid] = server.CreateMaterial(mat)
		return sided[mid]
	}

	var spawn func(node int, parent EntityId)
	spawn = func(node int, parent EntityId) {
		if node < 0 || node >= len(model.Nodes) {
			return
		}
		n := model.Nodes[node]
		local := n.Transform
		eid := cmd.AddEntity(&local, &Parent{Entity: parent}, &TransformComponent{})
		for _, p := range n.Primitives {
			identity := LocalTransformComponent(IdentityTransform())
			cmd.AddEntity(
				&identity,
				&Parent{Entity: eid},
				&TransformComponent{},
				&MeshRendererComponent{Mesh: p.Mesh, Material: material(p.Material)},
			)
		}
		for _, c := range n.Children {
			spawn(c, eid)
		}
	}
	for _, r := range model.Roots {
		spawn(r, rootEid)
	}
	return rootEid, true
}

// snowSprites textures each snow system once its sprite arrives. A missing
// sprite leaves that system untextured.
func (s *spawner) snowSprites() {
	for i, mc := range s.cfg.Snow.Materials {
		if mc.Sprite == "" {
			continue
		}
		index := i
		s.state.Pending++
		s.server.LoadTextureAsync(s.cfg.Resolve(mc.Sprite), func(cmd *Commands, res TextureResult) {
			s.state.Pending--
			if !res.OK() {
				s.failed(cmd, fmt.Sprintf("snow sprite %d", index), res.Err)
				return
			}
			MakeQuery1[SnowSystemComponent](cmd).Map(func(_ EntityId, snow *SnowSystemComponent) bool {
				if snow.Index != index {
					return true
				}
				snow.Material.Texture = res.Id
				return false
			})
		})
	}
}
