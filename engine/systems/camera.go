package systems

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/components"
)

type cameraLookup struct {
	camera         *components.Camera
	referenceCount uint32
}

/** @brief Named, reference counted cameras plus a default one. */
type CameraSystem struct {
	Config *CameraSystemConfig
	Lookup map[string]*cameraLookup
	// A default, non-registered camera that always exists as a fallback.
	DefaultCamera *components.Camera
}

/** @brief The camera system configuration. */
type CameraSystemConfig struct {
	/** @brief The maximum number of named cameras, the default one excluded. */
	MaxCameraCount uint16
	/** @brief Vertical field of view of new cameras, in radians. */
	FOV    float32
	Aspect float32
	Near   float32
	Far    float32
}

/**
 * @brief Initializes the camera system and its default camera.
 *
 * @param config The configuration for this system.
 * @return The system, or an error if the configuration is invalid.
 */
func NewCameraSystem(config *CameraSystemConfig) (*CameraSystem, error) {
	if config == nil || config.MaxCameraCount == 0 {
		err := fmt.Errorf("func NewCameraSystem - config.MaxCameraCount must be > 0: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	if config.FOV <= 0 {
		config.FOV = math.DegToRad(45)
	}
	if config.Aspect <= 0 {
		config.Aspect = 16.0 / 9.0
	}
	if config.Near <= 0 {
		config.Near = 0.1
	}
	if config.Far <= config.Near {
		config.Far = 1000
	}
	cs := &CameraSystem{
		Config: config,
		Lookup: make(map[string]*cameraLookup, config.MaxCameraCount),
	}
	cs.DefaultCamera = cs.newCamera(components.DEFAULT_CAMERA_NAME)
	return cs, nil
}

func (cs *CameraSystem) newCamera(name string) *components.Camera {
	c := components.NewPerspectiveCamera(cs.Config.FOV, cs.Config.Aspect, cs.Config.Near, cs.Config.Far)
	c.Name = name
	return c
}

/**
 * @brief Shuts down the camera system.
 */
func (cs *CameraSystem) Shutdown() error {
	cs.Lookup = make(map[string]*cameraLookup)
	return nil
}

/**
 * @brief Acquires a camera by name.
 * If one is not found, a new one is created and retuned.
 * Internal reference counter is incremented.
 *
 * @param name The name of the camera to acquire.
 * @return The camera, or an error if no more cameras can be created.
 */
func (cs *CameraSystem) Acquire(name string) (*components.Camera, error) {
	if name == components.DEFAULT_CAMERA_NAME {
		return cs.DefaultCamera, nil
	}
	lookup, ok := cs.Lookup[name]
	if !ok {
		if len(cs.Lookup) >= int(cs.Config.MaxCameraCount) {
			err := fmt.Errorf("func Acquire - cannot create camera '%s', %d cameras exist: %w", name, len(cs.Lookup), core.ErrResourceLimit)
			core.LogError(err.Error())
			return nil, err
		}
		core.LogDebug("Creating new camera named '%s'...", name)
		lookup = &cameraLookup{camera: cs.newCamera(name)}
		cs.Lookup[name] = lookup
	}
	lookup.referenceCount++
	return lookup.camera, nil
}

/**
 * @brief Releases a camera with the given name. Internal reference
 * counter is decremented. If this reaches 0, the camera is forgotten.
 *
 * @param name The name of the camera to release.
 */
func (cs *CameraSystem) Release(name string) {
	if name == components.DEFAULT_CAMERA_NAME {
		core.LogDebug("Cannot release default camera. Nothing was done.")
		return
	}
	lookup, ok := cs.Lookup[name]
	if !ok {
		core.LogWarn("camera '%s' is not registered. Nothing was done.", name)
		return
	}
	lookup.referenceCount--
	if lookup.referenceCount == 0 {
		delete(cs.Lookup, name)
	}
}

/**
 * @brief Updates the aspect ratio of every camera, called on resize.
 */
func (cs *CameraSystem) SetAspect(aspect float32) {
	cs.Config.Aspect = aspect
	cs.DefaultCamera.SetAspect(aspect)
	for _, lookup := range cs.Lookup {
		if lookup.camera.Projection == components.PROJECTION_PERSPECTIVE {
			lookup.camera.SetAspect(aspect)
		}
	}
}

/**
 * @brief Gets the default camera.
 */
func (cs *CameraSystem) GetDefault() *components.Camera {
	return cs.DefaultCamera
}
