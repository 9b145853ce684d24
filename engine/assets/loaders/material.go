package loaders

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// MATERIAL_EXTENSION is the suffix of material definition files.
const MATERIAL_EXTENSION string = ".material.toml"

type MaterialLoader struct{}

func (ml *MaterialLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mCfg, err := ParseMaterial(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if mCfg.Name == "" {
		mCfg.Name = strings.TrimSuffix(filepath.Base(path), MATERIAL_EXTENSION)
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeMaterial,
		Name:     mCfg.Name,
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     mCfg,
	}, nil
}

/**
 * @brief Decodes and validates a material definition. Unknown keys are errors.
 */
func ParseMaterial(data []byte) (*metadata.MaterialConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty material definition: %w", core.ErrInvalidConfig)
	}
	materialConfig := &metadata.MaterialConfig{}
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(materialConfig); err != nil {
		return nil, fmt.Errorf("failed to decode material: %w: %w", err, core.ErrInvalidConfig)
	}
	if err := validateMaterial(materialConfig); err != nil {
		return nil, err
	}
	return materialConfig, nil
}

func validateMaterial(material *metadata.MaterialConfig) error {
	if material.Type != "" {
		if _, err := metadata.ParseMaterialType(material.Type); err != nil {
			return err
		}
	}
	if strings.EqualFold(material.Type, "shader") && material.ShaderName == "" {
		return fmt.Errorf("shader materials require a shader name: %w", core.ErrInvalidConfig)
	}

	// colours are linear [0, 1]
	if !isValidColour(material.Color) {
		return fmt.Errorf("color values must be between 0.0 and 1.0: %w", core.ErrInvalidConfig)
	}
	if !inRange(material.Opacity) || !inRange(material.Transmission) || !inRange(material.AlphaTest) {
		return fmt.Errorf("opacity, transmission and alpha_test must be between 0.0 and 1.0: %w", core.ErrInvalidConfig)
	}
	if material.Shininess < 0 {
		return fmt.Errorf("shininess must be a non-negative value: %w", core.ErrInvalidConfig)
	}

	for slot, texture := range material.Maps {
		if _, err := metadata.ParseMapSlot(slot); err != nil {
			return err
		}
		if texture == "" {
			return fmt.Errorf("map '%s' has no texture name: %w", slot, core.ErrInvalidConfig)
		}
	}
	for slot, channel := range material.MapChannels {
		if _, ok := material.Maps[slot]; !ok {
			return fmt.Errorf("map_channels references unassigned map '%s': %w", slot, core.ErrInvalidConfig)
		}
		if channel < 0 || channel > 3 {
			return fmt.Errorf("map '%s' uses uv channel %d, expected 0..3: %w", slot, channel, core.ErrInvalidConfig)
		}
	}
	return nil
}

func isValidColour(c [3]float32) bool {
	return inRange(c[0]) && inRange(c[1]) && inRange(c[2])
}

// Check if a float32 value is within [0.0, 1.0]
func inRange(value float32) bool {
	return value >= 0.0 && value <= 1.0
}

func (ml *MaterialLoader) Unload(*metadata.Resource) error {
	return nil
}
