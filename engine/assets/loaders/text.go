package loaders

import (
	"os"
	"path/filepath"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type TextLoader struct{}

func (tl *TextLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeText,
		Name:     filepath.Base(path),
		FullPath: path,
		DataSize: uint64(len(data)),
		Data:     string(data),
	}, nil
}

func (tl *TextLoader) Unload(*metadata.Resource) error {
	return nil
}
