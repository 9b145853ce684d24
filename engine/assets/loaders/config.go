package loaders

import (
	"os"
	"path/filepath"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type ConfigLoader struct{}

func (cl *ConfigLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	cfg, err := core.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeConfig,
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(info.Size()),
		Data:     cfg,
	}, nil
}

func (cl *ConfigLoader) Unload(*metadata.Resource) error {
	return nil
}
