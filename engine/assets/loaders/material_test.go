package loaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMaterial(t *testing.T) {
	cfg, err := ParseMaterial([]byte(`
name = "brick"
type = "phong"
color = [0.5, 0.25, 1.0]
shininess = 12.0
side = "double"

[maps]
map = "brick_diffuse"
normalMap = "brick_normal"

[map_channels]
normalMap = 1

[defines]
USE_WEATHERING = "1"
`))
	require.NoError(t, err)
	assert.Equal(t, "brick", cfg.Name)
	assert.Equal(t, "phong", cfg.Type)
	assert.Equal(t, [3]float32{0.5, 0.25, 1}, cfg.Color)
	assert.Equal(t, "brick_normal", cfg.Maps["normalMap"])
	assert.Equal(t, 1, cfg.MapChannels["normalMap"])
	assert.Equal(t, "1", cfg.Defines["USE_WEATHERING"])

	m, err := metadata.NewMaterialFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, metadata.MATERIAL_TYPE_PHONG, m.Type)
	assert.Equal(t, metadata.SIDE_DOUBLE, m.Side)
	require.NotNil(t, m.Maps[metadata.MAP_SLOT_NORMAL])
	assert.Equal(t, uint8(1), m.Maps[metadata.MAP_SLOT_NORMAL].Channel)
}

func TestParseMaterialRejectsInvalidDefinitions(t *testing.T) {
	for name, source := range map[string]string{
		"empty":               "  \n",
		"unknown key":         `colour = [1.0, 1.0, 1.0]`,
		"unknown type":        `type = "velvet"`,
		"colour range":        `color = [2.0, 0.0, 0.0]`,
		"opacity range":       `opacity = 1.5`,
		"unknown map slot":    "[maps]\nsparkle = \"x\"",
		"unassigned channel":  "[map_channels]\nnormal = 1",
		"shader without name": `type = "shader"`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseMaterial([]byte(source))
			assert.ErrorIs(t, err, core.ErrInvalidConfig)
		})
	}
}

func TestMaterialLoaderNamesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glass"+MATERIAL_EXTENSION)
	require.NoError(t, os.WriteFile(path, []byte(`transmission = 1.0`), 0o644))

	res, err := (&MaterialLoader{}).Load(path, metadata.ResourceTypeMaterial, nil)
	require.NoError(t, err)
	assert.Equal(t, "glass", res.Name)
	assert.Equal(t, metadata.ResourceTypeMaterial, res.Type)
	assert.Equal(t, float32(1), res.Data.(*metadata.MaterialConfig).Transmission)
}
