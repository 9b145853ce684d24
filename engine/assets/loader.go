package assets

import "github.com/spaghettifunk/prism/engine/renderer/metadata"

type Loader interface {
	Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) // `interface{}` here allows loaders to take per type parameters
	Unload(*metadata.Resource) error
}
