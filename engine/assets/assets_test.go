package assets

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	core.SetLogOutput(io.Discard)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestAssetManager(t *testing.T, dir string) *AssetManager {
	t.Helper()
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	t.Cleanup(func() {
		_ = am.Shutdown()
	})
	return am
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, metadata.ResourceTypeMaterial, determineAssetType("assets/materials/brick.material.toml"))
	assert.Equal(t, metadata.ResourceTypeConfig, determineAssetType("engine.config.toml"))
	assert.Equal(t, metadata.ResourceTypeText, determineAssetType("notes/readme.md"))
	assert.Equal(t, metadata.ResourceTypeNone, determineAssetType("textures/brick.png"))
	assert.Equal(t, metadata.ResourceTypeNone, determineAssetType("brick.toml"))
}

func TestAssetManagerIndexesDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "materials", "brick.material.toml"), `type = "lambert"`)
	writeFile(t, filepath.Join(dir, "materials", "nested", "glass.material.toml"), `transmission = 1.0`)
	writeFile(t, filepath.Join(dir, "engine.config.toml"), `name = "indexed"`)
	writeFile(t, filepath.Join(dir, "textures", "brick.png"), "not indexed")

	am := newTestAssetManager(t, dir)
	assert.Equal(t, 3, am.Count())

	_, ok := am.Lookup("glass", metadata.ResourceTypeMaterial)
	assert.True(t, ok)
	_, ok = am.Lookup("materials/brick.material.toml", metadata.ResourceTypeMaterial)
	assert.True(t, ok)
	_, ok = am.Lookup("brick", metadata.ResourceTypeConfig)
	assert.False(t, ok)

	res, err := am.LoadAsset("engine", metadata.ResourceTypeConfig, nil)
	require.NoError(t, err)
	assert.Equal(t, "indexed", res.Data.(*core.EngineConfig).Name)

	_, err = am.LoadAsset("missing", metadata.ResourceTypeMaterial, nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestAssetManagerLoadMaterial(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "brick.material.toml"), `
type = "lambert"
color = [0.5, 0.5, 0.5]

[maps]
map = "brick_diffuse"
`)
	am := newTestAssetManager(t, dir)
	diffuse := metadata.NewTexture("brick_diffuse", 1, 1, 4, []uint8{255, 0, 0, 255})
	am.SetTextureResolver(func(name string) *metadata.Texture {
		if name == diffuse.Name {
			return diffuse
		}
		return nil
	})

	m, err := am.LoadMaterial("brick")
	require.NoError(t, err)
	assert.Equal(t, "brick", m.Name)
	assert.Equal(t, metadata.MATERIAL_TYPE_LAMBERT, m.Type)
	assert.InDelta(t, 0.5, m.Color.X, 1e-6)
	require.NotNil(t, m.Maps[metadata.MAP_SLOT_MAP])
	assert.Same(t, diffuse, m.Maps[metadata.MAP_SLOT_MAP].Texture)

	again, err := am.LoadMaterial("brick")
	require.NoError(t, err)
	assert.Same(t, m, again)

	_, err = am.LoadMaterial("missing")
	assert.Error(t, err)
}

func TestAssetManagerHotReloadsMaterials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brick.material.toml")
	writeFile(t, path, `color = [0.5, 0.5, 0.5]`)
	am := newTestAssetManager(t, dir)

	m, err := am.LoadMaterial("brick")
	require.NoError(t, err)
	id, version := m.ID, m.Version

	var reloaded []*metadata.Material
	listener := &reloaded
	core.EventRegister(core.EVENT_CODE_MATERIAL_RELOADED, listener, func(sender, l interface{}, context core.EventContext) bool {
		if sender == am {
			reloaded = append(reloaded, context.Data.(*metadata.Material))
		}
		return false
	})
	t.Cleanup(func() {
		core.EventUnregister(core.EVENT_CODE_MATERIAL_RELOADED, listener)
	})

	// reloads land when the render goroutine drains the queue
	writeFile(t, path, `color = [0.25, 0.5, 0.5]
roughness = 0.3`)
	require.Eventually(t, func() bool {
		am.ApplyPending()
		return m.Color.X == 0.25
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, id, m.ID)
	assert.Greater(t, m.Version, version)
	assert.InDelta(t, 0.3, m.Roughness, 1e-6)
	require.NotEmpty(t, reloaded)
	assert.Same(t, m, reloaded[len(reloaded)-1])
}

func TestAssetManagerKeepsMaterialOnBrokenReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brick.material.toml")
	writeFile(t, path, `color = [0.5, 0.5, 0.5]`)
	am := newTestAssetManager(t, dir)
	m, err := am.LoadMaterial("brick")
	require.NoError(t, err)

	// broken first, then a valid marker moved in whole, so the test knows both were seen
	writeFile(t, path, `color = "red"`)
	staged := filepath.Join(t.TempDir(), "marker.material.toml")
	writeFile(t, staged, `color = [1.0, 1.0, 1.0]`)
	require.NoError(t, os.Rename(staged, filepath.Join(dir, "marker.material.toml")))
	marker, err := waitForMaterial(t, am, "marker")
	require.NoError(t, err)
	require.NotNil(t, marker)

	am.ApplyPending()
	assert.InDelta(t, 0.5, m.Color.X, 1e-6)
}

func waitForMaterial(t *testing.T, am *AssetManager, name string) (*metadata.Material, error) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, ok := am.Lookup(name, metadata.ResourceTypeMaterial)
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	return am.LoadMaterial(name)
}

func TestAssetManagerShutdown(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(t.TempDir()))
	require.NoError(t, am.Shutdown())
	require.NoError(t, am.Shutdown())
	assert.Zero(t, am.ApplyPending())
}

func TestAssetManagerInitializeRequiresDirectory(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = am.Shutdown()
	})
	file := filepath.Join(t.TempDir(), "file.txt")
	writeFile(t, file, "x")
	assert.ErrorIs(t, am.Initialize(file), core.ErrInvalidConfig)
	assert.Error(t, am.Initialize(filepath.Join(t.TempDir(), "missing")))
}
