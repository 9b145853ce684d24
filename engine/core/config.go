package core

import (
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
)

// EngineConfig is the top level configuration, usually read from prism.toml.
type EngineConfig struct {
	Name      string         `toml:"name"`
	LogLevel  string         `toml:"log_level"`
	Width     uint32         `toml:"width"`
	Height    uint32         `toml:"height"`
	TargetFPS uint32         `toml:"target_fps"`
	AssetsDir string         `toml:"assets_dir"`
	Renderer  RendererConfig `toml:"renderer"`
}

// RendererConfig holds the knobs of the frame pipeline. Enumerations are kept
// as strings here and resolved by the renderer system.
type RendererConfig struct {
	Backend                     string     `toml:"backend"`
	SortObjects                 bool       `toml:"sort_objects"`
	MaxTextureUnits             uint32     `toml:"max_texture_units"`
	MaxLights                   uint32     `toml:"max_lights"`
	MaxShadowLights             uint32     `toml:"max_shadow_lights"`
	ShadowMapEnabled            bool       `toml:"shadow_map_enabled"`
	ShadowMapType               string     `toml:"shadow_map_type"`
	ToneMapping                 string     `toml:"tone_mapping"`
	OutputColorSpace            string     `toml:"output_color_space"`
	Precision                   string     `toml:"precision"`
	ClearColor                  [4]float32 `toml:"clear_color"`
	TransmissionResolutionScale float32    `toml:"transmission_resolution_scale"`
	DiagnosticHistory           int        `toml:"diagnostic_history"`
}

func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		Name:      "Prism",
		LogLevel:  string(InfoLevel),
		Width:     1280,
		Height:    720,
		TargetFPS: 60,
		AssetsDir: "assets",
		Renderer: RendererConfig{
			Backend:                     "headless",
			SortObjects:                 true,
			MaxTextureUnits:             16,
			MaxLights:                   16,
			MaxShadowLights:             4,
			ShadowMapEnabled:            true,
			ShadowMapType:               "pcf",
			ToneMapping:                 "none",
			OutputColorSpace:            "srgb",
			Precision:                   "highp",
			ClearColor:                  [4]float32{0, 0, 0, 1},
			TransmissionResolutionScale: 1,
			DiagnosticHistory:           64,
		},
	}
}

// ParseConfig decodes a TOML document on top of the defaults, so a file only
// needs to carry the keys it overrides.
func ParseConfig(data []byte) (*EngineConfig, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode engine config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads a configuration file. A leading ~ in the path, or in the
// assets_dir it names, expands to the user's home directory.
func LoadConfig(path string) (*EngineConfig, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.AssetsDir, err = homedir.Expand(cfg.AssetsDir); err != nil {
		return nil, fmt.Errorf("%s: assets_dir: %w", path, err)
	}
	return cfg, nil
}

// Marshal encodes the configuration back to TOML.
func (c *EngineConfig) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

func (c *EngineConfig) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Renderer.MaxTextureUnits == 0 {
		return fmt.Errorf("renderer.max_texture_units must be > 0: %w", ErrInvalidConfig)
	}
	if c.Renderer.TransmissionResolutionScale <= 0 {
		return fmt.Errorf("renderer.transmission_resolution_scale must be > 0: %w", ErrInvalidConfig)
	}
	switch c.Renderer.ShadowMapType {
	case "basic", "pcf", "pcf_soft", "vsm":
	default:
		return fmt.Errorf("renderer.shadow_map_type '%s' is not supported: %w", c.Renderer.ShadowMapType, ErrInvalidConfig)
	}
	switch c.Renderer.ToneMapping {
	case "none", "linear", "reinhard", "cineon", "aces_filmic", "agx", "neutral", "custom":
	default:
		return fmt.Errorf("renderer.tone_mapping '%s' is not supported: %w", c.Renderer.ToneMapping, ErrInvalidConfig)
	}
	switch c.Renderer.OutputColorSpace {
	case "srgb", "linear":
	default:
		return fmt.Errorf("renderer.output_color_space '%s' is not supported: %w", c.Renderer.OutputColorSpace, ErrInvalidConfig)
	}
	switch c.Renderer.Precision {
	case "highp", "mediump", "lowp":
	default:
		return fmt.Errorf("renderer.precision '%s' is not supported: %w", c.Renderer.Precision, ErrInvalidConfig)
	}
	if c.Renderer.DiagnosticHistory < 0 {
		return fmt.Errorf("renderer.diagnostic_history must be >= 0: %w", ErrInvalidConfig)
	}
	return nil
}
