package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigOverridesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
name = "demo"
target_fps = 30

[renderer]
max_lights = 4
tone_mapping = "agx"
clear_color = [0.1, 0.2, 0.3, 1.0]
`))
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Name)
	assert.Equal(t, uint32(30), cfg.TargetFPS)
	assert.Equal(t, uint32(4), cfg.Renderer.MaxLights)
	assert.Equal(t, "agx", cfg.Renderer.ToneMapping)
	assert.Equal(t, [4]float32{0.1, 0.2, 0.3, 1}, cfg.Renderer.ClearColor)

	// untouched keys keep their defaults
	defaults := DefaultConfig()
	assert.Equal(t, defaults.Width, cfg.Width)
	assert.Equal(t, defaults.Renderer.Backend, cfg.Renderer.Backend)
	assert.Equal(t, defaults.Renderer.MaxTextureUnits, cfg.Renderer.MaxTextureUnits)
}

func TestParseConfigRejectsInvalidValues(t *testing.T) {
	for name, source := range map[string]string{
		"log level":       `log_level = "loud"`,
		"texture units":   "[renderer]\nmax_texture_units = 0",
		"shadow map type": "[renderer]\nshadow_map_type = \"raytraced\"",
		"tone mapping":    "[renderer]\ntone_mapping = \"filmic\"",
		"color space":     "[renderer]\noutput_color_space = \"p3\"",
		"precision":       "[renderer]\nprecision = \"ultra\"",
		"scale":           "[renderer]\ntransmission_resolution_scale = 0.0",
		"history":         "[renderer]\ndiagnostic_history = -1",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(source))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := ParseConfig([]byte("name = "))
	assert.Error(t, err)
}

func TestConfigMarshalRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Renderer.ShadowMapType = "vsm"
	data, err := cfg.Marshal()
	require.NoError(t, err)

	decoded, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, decoded)
}

func TestLoadConfigExpandsHome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")
	require.NoError(t, os.WriteFile(path, []byte(`assets_dir = "~/prism-assets"`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	home, err := homedir.Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "prism-assets"), cfg.AssetsDir)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, level)

	level, err = ParseLogLevel("")
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, level)

	_, err = ParseLogLevel("trace")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
