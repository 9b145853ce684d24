package renderer

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/headless"
)

type RendererType uint8

const (
	/** @brief The in-memory recording backend. */
	Headless RendererType = iota
	Vulkan
	OpenGL
	WebGPU
)

func (rt RendererType) String() string {
	switch rt {
	case Headless:
		return "headless"
	case Vulkan:
		return "vulkan"
	case OpenGL:
		return "opengl"
	case WebGPU:
		return "webgpu"
	}
	return fmt.Sprintf("renderer_type(%d)", uint8(rt))
}

func ParseRendererType(name string) (RendererType, error) {
	for _, rt := range []RendererType{Headless, Vulkan, OpenGL, WebGPU} {
		if rt.String() == name {
			return rt, nil
		}
	}
	return Headless, fmt.Errorf("unknown renderer backend '%s': %w", name, core.ErrInvalidConfig)
}

/**
 * @brief Creates the backend for the requested API. Only the headless backend
 * ships with the engine, other APIs plug in by implementing RendererBackend.
 */
func NewBackend(rendererType RendererType) (RendererBackend, error) {
	switch rendererType {
	case Headless:
		return headless.New(), nil
	}
	err := fmt.Errorf("func NewBackend - %s backend is not built in: %w", rendererType, core.ErrInvalidConfig)
	core.LogError(err.Error())
	return nil, err
}
