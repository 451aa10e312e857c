package loaders

import (
	"github.com/spaghettifunk/autorig/engine/config"
	"github.com/spaghettifunk/autorig/engine/resources"
)

type ConfigLoader struct{}

// Load reads a rig configuration. The resource Data is a *config.Config.
func (cl *ConfigLoader) Load(path string, assetType resources.ResourceType, params interface{}) (*resources.Resource, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return &resources.Resource{
		Type:     resources.ResourceTypeConfig,
		Name:     "config",
		FullPath: path,
		Data:     cfg,
	}, nil
}

func (cl *ConfigLoader) Unload(res *resources.Resource) error {
	res.Data = nil
	return nil
}
