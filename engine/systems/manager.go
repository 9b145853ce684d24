package systems

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

/**
 * @brief Owns the engine systems, starts them in dependency order and shuts
 * them down in reverse.
 */
type SystemManager struct {
	CameraSystem   *CameraSystem
	RendererSystem *RendererSystem

	name   string
	width  uint32
	height uint32
}

func NewSystemManager(config *core.EngineConfig, backend renderer.RendererBackend) (*SystemManager, error) {
	if config == nil {
		err := fmt.Errorf("func NewSystemManager - config cannot be nil: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	cs, err := NewCameraSystem(&CameraSystemConfig{
		MaxCameraCount: 100,
		Aspect:         float32(config.Width) / float32(config.Height),
	})
	if err != nil {
		return nil, err
	}
	rs, err := NewRendererSystem(&config.Renderer, backend)
	if err != nil {
		return nil, err
	}
	return &SystemManager{
		CameraSystem:   cs,
		RendererSystem: rs,
		name:           config.Name,
		width:          config.Width,
		height:         config.Height,
	}, nil
}

func (sm *SystemManager) Initialize() error {
	return sm.RendererSystem.Initialize(sm.name, sm.width, sm.height)
}

/** @brief Renders graph from camera, nil uses the default camera. */
func (sm *SystemManager) DrawFrame(graph *scene.Graph, camera *components.Camera) error {
	if camera == nil {
		camera = sm.CameraSystem.GetDefault()
	}
	return sm.RendererSystem.RenderFrame(graph, camera)
}

/** @brief Reads back the default framebuffer. */
func (sm *SystemManager) ReadPixels(ctx context.Context, rect metadata.Rect) ([]uint8, error) {
	return sm.RendererSystem.ReadPixels(ctx, nil, rect)
}

func (sm *SystemManager) OnResize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	sm.width = width
	sm.height = height
	sm.CameraSystem.SetAspect(float32(width) / float32(height))
	return nil
}

func (sm *SystemManager) Shutdown() error {
	if err := sm.RendererSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.CameraSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
