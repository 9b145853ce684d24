package engine

import (
	"github.com/spaghettifunk/prism/engine/core"
)

type ApplicationConfig struct {
	// Path of the TOML configuration file. Empty uses Config, or the defaults.
	ConfigPath string
	// The configuration used when ConfigPath is empty.
	Config *core.EngineConfig
	// Stops Run after this many frames, zero runs until stopped.
	FrameLimit uint64
	// Overrides the configured log level when set.
	LogLevel core.LogLevel
}

// Load resolves the engine configuration of the application.
func (ac *ApplicationConfig) Load() (*core.EngineConfig, error) {
	var cfg *core.EngineConfig
	switch {
	case ac.ConfigPath != "":
		loaded, err := core.LoadConfig(ac.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case ac.Config != nil:
		if err := ac.Config.Validate(); err != nil {
			return nil, err
		}
		cfg = ac.Config
	default:
		cfg = core.DefaultConfig()
	}
	if ac.LogLevel != "" {
		cfg.LogLevel = string(ac.LogLevel)
	}
	return cfg, nil
}
