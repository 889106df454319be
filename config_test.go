package snowscene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresets_Differ(t *testing.T) {
	classic, err := Preset("")
	require.NoError(t, err)
	textureDir, err := Preset("texture-dir")
	require.NoError(t, err)
	closeUp, err := Preset("close")
	require.NoError(t, err)

	assert.Equal(t, "classic", classic.Name)
	assert.Equal(t, "textures/christmas_tree_2.glb", classic.Model.Path)
	assert.Equal(t, "texture/christmas_tree_2.glb", textureDir.Model.Path)
	assert.Equal(t, [3]float32{0.5, 0.5, 0.5}, classic.Model.Scale)
	assert.Equal(t, [3]float32{1, 1, 1}, textureDir.Model.Scale)
	assert.Equal(t, ErrorPolicySkip, classic.ErrorPolicy)
	assert.Equal(t, ErrorPolicySkip, textureDir.ErrorPolicy)
	assert.Equal(t, [3]float32{-5, 2.5, 0}, closeUp.Camera.Position)
	assert.Equal(t, float32(10), closeUp.Ground.Width)

	for _, name := range PresetNames() {
		cfg, err := Preset(name)
		require.NoError(t, err)
		assert.NoError(t, cfg.Validate(), name)
		assert.Equal(t, ErrorPolicySkip, cfg.ErrorPolicy, name)
	}
}

func TestPreset_Unknown(t *testing.T) {
	_, err := Preset("winter")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestClassicPreset_SceneConstants(t *testing.T) {
	cfg := ClassicPreset()

	assert.Equal(t, [3]float32{-10, 5, 0}, cfg.Camera.Position)
	assert.Equal(t, float32(75), cfg.Camera.Fov)
	assert.Equal(t, 5000, cfg.Snow.Count)
	assert.Equal(t, float32(1000), cfg.Snow.HalfExtent)
	assert.Equal(t, float32(0.1), cfg.Snow.FallStep)
	require.Len(t, cfg.Snow.Materials, 5)
	assert.Equal(t, float32(20), cfg.Snow.Materials[0].Size)
	assert.Equal(t, float32(5), cfg.Snow.Materials[4].Size)
	require.Len(t, cfg.Lights.Points, 3)
	assert.Equal(t, float32(2), cfg.Lights.Points[0].Decay)
	assert.Equal(t, float32(20), cfg.Skybox.Size)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSceneConfig_Overlays(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"scene.toml": "error_policy = \"fail\"\n[camera]\nposition = [1.0, 2.0, 3.0]\n[snow]\ncount = 10\n",
		"scene.yaml": "error_policy: fail\ncamera:\n  position: [1, 2, 3]\nsnow:\n  count: 10\n",
		"scene.json": `{"error_policy": "fail", "camera": {"position": [1, 2, 3]}, "snow": {"count": 10}}`,
	}
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, dir, name, content)

			cfg, err := LoadSceneConfig("classic", path)
			require.NoError(t, err)

			assert.Equal(t, ErrorPolicyFail, cfg.ErrorPolicy)
			assert.Equal(t, [3]float32{1, 2, 3}, cfg.Camera.Position)
			assert.Equal(t, 10, cfg.Snow.Count)
			// untouched fields keep the preset values
			assert.Equal(t, float32(75), cfg.Camera.Fov)
			assert.Equal(t, float32(1000), cfg.Snow.HalfExtent)
			assert.Equal(t, dir, cfg.AssetDir)
		})
	}
}

func TestLoadSceneConfig_ListOverlaysReplace(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"lists.toml": "[[lights.points]]\ncolor = 255\nintensity = 1.0\n\n[[snow.materials]]\nhsl = [0.1, 0.2, 0.3]\nsize = 4.0\n",
		"lists.yaml": "lights:\n  points:\n    - color: 255\n      intensity: 1\nsnow:\n  materials:\n    - hsl: [0.1, 0.2, 0.3]\n      size: 4\n",
		"lists.json": `{"lights": {"points": [{"color": 255, "intensity": 1}]}, "snow": {"materials": [{"hsl": [0.1, 0.2, 0.3], "size": 4}]}}`,
	}
	want := PointLightConfig{Color: 255, Intensity: 1}
	wantMaterial := SnowMaterialConfig{HSL: [3]float32{0.1, 0.2, 0.3}, Size: 4}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			cfg, err := LoadSceneConfig("classic", writeFile(t, dir, name, content))
			require.NoError(t, err)

			assert.Equal(t, []PointLightConfig{want}, cfg.Lights.Points)
			assert.Equal(t, []SnowMaterialConfig{wantMaterial}, cfg.Snow.Materials)
			assert.Equal(t, float32(1), cfg.Lights.AmbientIntensity)
		})
	}

	t.Run("json without lists keeps the preset lists", func(t *testing.T) {
		cfg, err := LoadSceneConfig("classic", writeFile(t, dir, "scalars.json", `{"snow": {"count": 3}}`))
		require.NoError(t, err)
		assert.Equal(t, ClassicPreset().Lights.Points, cfg.Lights.Points)
		assert.Equal(t, ClassicPreset().Snow.Materials, cfg.Snow.Materials)
	})
}

func TestLoadSceneConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSceneConfig("classic", writeFile(t, dir, "scene.ini", "x=1"))
	assert.ErrorIs(t, err, ErrConfigFormat)

	_, err = LoadSceneConfig("classic", filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadSceneConfig("classic", writeFile(t, dir, "bad.yaml", "error_policy: maybe\n"))
	assert.ErrorContains(t, err, "error_policy")
}

func TestSceneConfig_Validate(t *testing.T) {
	cfg := ClassicPreset()
	cfg.Camera.Near = 0
	cfg.Music.Volume = 2
	cfg.Ground.Segments = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "camera")
	assert.ErrorContains(t, err, "music.volume")
	assert.ErrorContains(t, err, "ground.segments")
}

func TestEncodeSceneConfig_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	want := ClosePreset()
	want.AssetDir = dir

	for _, format := range []string{"toml", "yaml", "json"} {
		data, err := EncodeSceneConfig(want, format)
		require.NoError(t, err, format)
		path := writeFile(t, dir, "out."+format, string(data))

		got, err := LoadSceneConfig("texture-dir", path)
		require.NoError(t, err, format)
		assert.Equal(t, want, got, format)
	}

	_, err := EncodeSceneConfig(want, "xml")
	assert.ErrorIs(t, err, ErrConfigFormat)
}

func TestSceneConfig_Resolve(t *testing.T) {
	cfg := SceneConfig{AssetDir: "/srv/scene"}

	assert.Equal(t, filepath.Join("/srv/scene", "textures/Top.png"), cfg.Resolve("textures/Top.png"))
	assert.Equal(t, "/abs/tree.glb", cfg.Resolve("/abs/tree.glb"))
	assert.Equal(t, "", cfg.Resolve(""))
	assert.Equal(t, "rel.png", SceneConfig{}.Resolve("rel.png"))
}
