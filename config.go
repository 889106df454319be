package snowscene

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownPreset = errors.New("unknown preset")
	ErrConfigFormat  = errors.New("unsupported config format")
)

// ErrorPolicy decides what an asset-load failure does to the scene.
type ErrorPolicy string

const (
	// ErrorPolicySkip logs the failure and skips the object that needed the asset.
	ErrorPolicySkip ErrorPolicy = "skip"
	// ErrorPolicyFail logs the failure and stops the app.
	ErrorPolicyFail ErrorPolicy = "fail"
)

type WindowConfig struct {
	Width  int    `toml:"width" yaml:"width" json:"width"`
	Height int    `toml:"height" yaml:"height" json:"height"`
	Title  string `toml:"title" yaml:"title" json:"title"`
}

type CameraConfig struct {
	Position [3]float32 `toml:"position" yaml:"position" json:"position"`
	Target   [3]float32 `toml:"target" yaml:"target" json:"target"`
	Fov      float32    `toml:"fov" yaml:"fov" json:"fov"`
	Near     float32    `toml:"near" yaml:"near" json:"near"`
	Far      float32    `toml:"far" yaml:"far" json:"far"`
}

type ControlsConfig struct {
	EnableZoom   bool    `toml:"enable_zoom" yaml:"enable_zoom" json:"enable_zoom"`
	EnablePan    bool    `toml:"enable_pan" yaml:"enable_pan" json:"enable_pan"`
	EnableRotate bool    `toml:"enable_rotate" yaml:"enable_rotate" json:"enable_rotate"`
	RotateSpeed  float32 `toml:"rotate_speed" yaml:"rotate_speed" json:"rotate_speed"`
	ZoomSpeed    float32 `toml:"zoom_speed" yaml:"zoom_speed" json:"zoom_speed"`
	PanSpeed     float32 `toml:"pan_speed" yaml:"pan_speed" json:"pan_speed"`
	MinDistance  float32 `toml:"min_distance" yaml:"min_distance" json:"min_distance"`
	MaxDistance  float32 `toml:"max_distance" yaml:"max_distance" json:"max_distance"`
}

// SkyboxConfig lists the cube face textures in +X, -X, +Y, -Y, +Z, -Z order.
type SkyboxConfig struct {
	Size  float32   `toml:"size" yaml:"size" json:"size"`
	Faces [6]string `toml:"faces" yaml:"faces" json:"faces"`
}

type GroundConfig struct {
	Width             float32 `toml:"width" yaml:"width" json:"width"`
	Depth             float32 `toml:"depth" yaml:"depth" json:"depth"`
	Segments          int     `toml:"segments" yaml:"segments" json:"segments"`
	Elevation         float32 `toml:"elevation" yaml:"elevation" json:"elevation"`
	DisplacementScale float32 `toml:"displacement_scale" yaml:"displacement_scale" json:"displacement_scale"`
	Albedo            string  `toml:"albedo" yaml:"albedo" json:"albedo"`
	AmbientOcclusion  string  `toml:"ambient_occlusion" yaml:"ambient_occlusion" json:"ambient_occlusion"`
	Displacement      string  `toml:"displacement" yaml:"displacement" json:"displacement"`
	Normal            string  `toml:"normal" yaml:"normal" json:"normal"`
	Roughness         string  `toml:"roughness" yaml:"roughness" json:"roughness"`
}

type ModelConfig struct {
	Path        string     `toml:"path" yaml:"path" json:"path"`
	Scale       [3]float32 `toml:"scale" yaml:"scale" json:"scale"`
	Position    [3]float32 `toml:"position" yaml:"position" json:"position"`
	DoubleSided bool       `toml:"double_sided" yaml:"double_sided" json:"double_sided"`
}

type SnowMaterialConfig struct {
	HSL    [3]float32 `toml:"hsl" yaml:"hsl" json:"hsl"`
	Sprite string     `toml:"sprite" yaml:"sprite" json:"sprite"`
	Size   float32    `toml:"size" yaml:"size" json:"size"`
}

type SnowConfig struct {
	Count      int     `toml:"count" yaml:"count" json:"count"`
	HalfExtent float32 `toml:"half_extent" yaml:"half_extent" json:"half_extent"`
	FallStep   float32 `toml:"fall_step" yaml:"fall_step" json:"fall_step"`
	// HueRate converts seconds since start into the hue/spin clock.
	HueRate float32 `toml:"hue_rate" yaml:"hue_rate" json:"hue_rate"`
	// Seed fixes the particle scatter. 0 seeds from the clock.
	Seed      int64                `toml:"seed" yaml:"seed" json:"seed"`
	Materials []SnowMaterialConfig `toml:"materials" yaml:"materials" json:"materials"`
}

type PointLightConfig struct {
	Color     uint32     `toml:"color" yaml:"color" json:"color"`
	Intensity float32    `toml:"intensity" yaml:"intensity" json:"intensity"`
	Distance  float32    `toml:"distance" yaml:"distance" json:"distance"`
	Decay     float32    `toml:"decay" yaml:"decay" json:"decay"`
	Position  [3]float32 `toml:"position" yaml:"position" json:"position"`
}

type LightsConfig struct {
	AmbientColor     uint32             `toml:"ambient_color" yaml:"ambient_color" json:"ambient_color"`
	AmbientIntensity float32            `toml:"ambient_intensity" yaml:"ambient_intensity" json:"ambient_intensity"`
	Points           []PointLightConfig `toml:"points" yaml:"points" json:"points"`
}

type MusicConfig struct {
	Enabled  bool    `toml:"enabled" yaml:"enabled" json:"enabled"`
	Path     string  `toml:"path" yaml:"path" json:"path"`
	Volume   float64 `toml:"volume" yaml:"volume" json:"volume"`
	Autoplay bool    `toml:"autoplay" yaml:"autoplay" json:"autoplay"`
}

// SceneConfig is everything that differs between scene variants.
type SceneConfig struct {
	Name        string         `toml:"name" yaml:"name" json:"name"`
	AssetDir    string         `toml:"asset_dir" yaml:"asset_dir" json:"asset_dir"`
	ErrorPolicy ErrorPolicy    `toml:"error_policy" yaml:"error_policy" json:"error_policy"`
	Window      WindowConfig   `toml:"window" yaml:"window" json:"window"`
	Camera      CameraConfig   `toml:"camera" yaml:"camera" json:"camera"`
	Controls    ControlsConfig `toml:"controls" yaml:"controls" json:"controls"`
	Skybox      SkyboxConfig   `toml:"skybox" yaml:"skybox" json:"skybox"`
	Ground      GroundConfig   `toml:"ground" yaml:"ground" json:"ground"`
	Model       ModelConfig    `toml:"model" yaml:"model" json:"model"`
	Snow        SnowConfig     `toml:"snow" yaml:"snow" json:"snow"`
	Lights      LightsConfig   `toml:"lights" yaml:"lights" json:"lights"`
	Music       MusicConfig    `toml:"music" yaml:"music" json:"music"`
}

const DefaultPreset = "classic"

// ClassicPreset is the scene as it ships: tree under textures/, half scale, resting on the ground.
func ClassicPreset() SceneConfig {
	return SceneConfig{
		Name:        "classic",
		ErrorPolicy: ErrorPolicySkip,
		Window:      WindowConfig{Width: 1280, Height: 720, Title: "Snow Scene"},
		Camera: CameraConfig{
			Position: [3]float32{-10, 5, 0},
			Fov:      75,
			Near:     0.1,
			Far:      1000,
		},
		Controls: ControlsConfig{
			EnableZoom:   true,
			EnablePan:    true,
			EnableRotate: true,
			RotateSpeed:  1,
			ZoomSpeed:    1,
			PanSpeed:     1,
			MinDistance:  0,
			MaxDistance:  0,
		},
		Skybox: SkyboxConfig{
			Size: 20,
			Faces: [6]string{
				"textures/Right.png", "textures/Left.png", "textures/Top.png",
				"textures/Front.png", "textures/Back.png", "textures/Bottom.png",
			},
		},
		Ground: GroundConfig{
			Width:             20,
			Depth:             20,
			Segments:          64,
			Elevation:         -0.75,
			DisplacementScale: 0.1,
			Albedo:            "textures/Snow_Albedo.jpg",
			AmbientOcclusion:  "textures/Snow_AmbientOcclusion.jpg",
			Displacement:      "textures/Snow_Displacement.jpg",
			Normal:            "textures/Snow_Normal.jpg",
			Roughness:         "textures/Snow_Roughness.jpg",
		},
		Model: ModelConfig{
			Path:        "textures/christmas_tree_2.glb",
			Scale:       [3]float32{0.5, 0.5, 0.5},
			Position:    [3]float32{0, -0.75, 0},
			DoubleSided: true,
		},
		Snow: SnowConfig{
			Count:      5000,
			HalfExtent: 1000,
			FallStep:   0.1,
			HueRate:    0.05,
			Materials: []SnowMaterialConfig{
				{HSL: [3]float32{1.0, 0.2, 0.5}, Sprite: "textures/snowflake2.png", Size: 20},
				{HSL: [3]float32{0.95, 0.2, 0.5}, Sprite: "textures/snowflake3.png", Size: 15},
				{HSL: [3]float32{0.9, 0.2, 0.5}, Sprite: "textures/snowflake1.png", Size: 10},
				{HSL: [3]float32{0.85, 0.2, 0.5}, Sprite: "textures/snowflake5.png", Size: 8},
				{HSL: [3]float32{0.8, 0.2, 0.5}, Sprite: "textures/snowflake4.png", Size: 5},
			},
		},
		Lights: LightsConfig{
			AmbientColor:     0xFFFFFF,
			AmbientIntensity: 1,
			Points: []PointLightConfig{
				{Color: 0xFFFFFF, Intensity: 5, Distance: 10, Decay: 2, Position: [3]float32{0, 15, 0}},
				{Color: 0xFFFFFF, Intensity: 5, Distance: 10, Decay: 1, Position: [3]float32{0, 10, 0}},
				{Color: 0xFFFFFF, Intensity: 1, Distance: 1, Decay: 1, Position: [3]float32{0, 2, 0}},
			},
		},
		Music: MusicConfig{
			Enabled: true,
			Path:    "music/background.mp3",
			Volume:  0.5,
		},
	}
}

// TextureDirPreset is the variant that keeps the tree under texture/ at full scale.
func TextureDirPreset() SceneConfig {
	cfg := ClassicPreset()
	cfg.Name = "texture-dir"
	cfg.Model.Path = "texture/christmas_tree_2.glb"
	cfg.Model.Scale = [3]float32{1, 1, 1}
	cfg.Model.Position = [3]float32{0, -1, 0}
	cfg.Ground.DisplacementScale = 0.2
	return cfg
}

// ClosePreset frames the tree tightly on a smaller ground patch.
func ClosePreset() SceneConfig {
	cfg := ClassicPreset()
	cfg.Name = "close"
	cfg.Camera.Position = [3]float32{-5, 2.5, 0}
	cfg.Ground.Width = 10
	cfg.Ground.Depth = 10
	cfg.Model.Scale = [3]float32{0.3, 0.3, 0.3}
	cfg.Model.Position = [3]float32{0, -0.5, 0}
	return cfg
}

var presets = map[string]func() SceneConfig{
	"classic":     ClassicPreset,
	"texture-dir": TextureDirPreset,
	"close":       ClosePreset,
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Preset(name string) (SceneConfig, error) {
	if name == "" {
		name = DefaultPreset
	}
	p, ok := presets[name]
	if !ok {
		return SceneConfig{}, fmt.Errorf("%w %q (known: %s)", ErrUnknownPreset, name, strings.Join(PresetNames(), ", "))
	}
	return p(), nil
}

// LoadSceneConfig starts from the named preset and overlays the file, if any.
// Relative asset paths resolve against the file's directory unless asset_dir is set.
func LoadSceneConfig(preset string, path string) (SceneConfig, error) {
	cfg, err := Preset(preset)
	if err != nil {
		return cfg, err
	}
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := decodeConfig(filepath.Ext(path), data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	if cfg.AssetDir == "" {
		cfg.AssetDir = filepath.Dir(path)
	}
	return cfg, cfg.Validate()
}

func decodeConfig(ext string, data []byte, cfg *SceneConfig) error {
	var decode func([]byte, any) error
	switch strings.ToLower(ext) {
	case ".toml":
		decode = toml.Unmarshal
	case ".yaml", ".yml":
		decode = yaml.Unmarshal
	case ".json":
		decode = json.Unmarshal
	default:
		return fmt.Errorf("%w %q", ErrConfigFormat, ext)
	}

	// A list in the file replaces the preset's list. Decoders differ on
	// whether they merge into existing elements, so start from nil.
	points, materials := cfg.Lights.Points, cfg.Snow.Materials
	cfg.Lights.Points, cfg.Snow.Materials = nil, nil
	err := decode(data, cfg)
	if cfg.Lights.Points == nil {
		cfg.Lights.Points = points
	}
	if cfg.Snow.Materials == nil {
		cfg.Snow.Materials = materials
	}
	return err
}

// EncodeSceneConfig renders cfg as toml, yaml or json.
func EncodeSceneConfig(cfg SceneConfig, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "toml":
		return toml.Marshal(cfg)
	case "yaml", "yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), enc.Close()
	case "json":
		return json.MarshalIndent(cfg, "", "  ")
	}
	return nil, fmt.Errorf("%w %q", ErrConfigFormat, format)
}

func (cfg SceneConfig) Validate() error {
	var errs []error
	if !slices.Contains([]ErrorPolicy{ErrorPolicySkip, ErrorPolicyFail}, cfg.ErrorPolicy) {
		errs = append(errs, fmt.Errorf("error_policy must be %q or %q, got %q", ErrorPolicySkip, ErrorPolicyFail, cfg.ErrorPolicy))
	}
	if cfg.Snow.Count < 0 {
		errs = append(errs, fmt.Errorf("snow.count must not be negative, got %d", cfg.Snow.Count))
	}
	if cfg.Snow.HalfExtent <= 0 {
		errs = append(errs, fmt.Errorf("snow.half_extent must be positive, got %v", cfg.Snow.HalfExtent))
	}
	if cfg.Snow.FallStep < 0 {
		errs = append(errs, fmt.Errorf("snow.fall_step must not be negative, got %v", cfg.Snow.FallStep))
	}
	if cfg.Camera.Near <= 0 || cfg.Camera.Far <= cfg.Camera.Near {
		errs = append(errs, fmt.Errorf("camera needs 0 < near < far, got near=%v far=%v", cfg.Camera.Near, cfg.Camera.Far))
	}
	if cfg.Ground.Segments < 1 {
		errs = append(errs, fmt.Errorf("ground.segments must be at least 1, got %d", cfg.Ground.Segments))
	}
	if cfg.Music.Volume < 0 || cfg.Music.Volume > 1 {
		errs = append(errs, fmt.Errorf("music.volume must be within [0,1], got %v", cfg.Music.Volume))
	}
	return errors.Join(errs...)
}

// Resolve maps a configured asset path onto AssetDir.
func (cfg SceneConfig) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || cfg.AssetDir == "" {
		return path
	}
	return filepath.Join(cfg.AssetDir, path)
}
