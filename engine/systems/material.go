package systems

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type MaterialSystemConfig struct {
	/** @brief The maximum number of materials that can be registered by name. */
	MaxMaterialCount uint32
}

type materialProgram struct {
	handle        ProgramHandle
	params        ProgramParameters
	version       uint32
	lightsVersion uint64
}

type materialState struct {
	material *metadata.Material
	programs map[SceneFeatures]*materialProgram
}

/**
 * @brief Tracks which program every material currently draws with. The program
 * parameters are only re-derived when the material version or the light counts
 * changed, so a steady scene resolves its programs without hashing anything.
 */
type MaterialSystem struct {
	Config          *MaterialSystemConfig
	DefaultMaterial *metadata.Material

	programs   *ProgramCache
	registered map[string]*metadata.Material
	states     map[uint32]*materialState

	// called once a program is destroyed because its last material let go
	onProgramRetired func(h ProgramHandle)
}

func NewMaterialSystem(config *MaterialSystemConfig, programs *ProgramCache) (*MaterialSystem, error) {
	if config == nil || config.MaxMaterialCount == 0 {
		err := fmt.Errorf("func NewMaterialSystem - config.MaxMaterialCount must be > 0: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	if programs == nil {
		err := fmt.Errorf("func NewMaterialSystem - program cache cannot be nil: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	ms := &MaterialSystem{
		Config:          config,
		DefaultMaterial: metadata.NewMaterial(metadata.DefaultMaterialName, metadata.MATERIAL_TYPE_BASIC),
		programs:        programs,
		registered:      make(map[string]*metadata.Material),
		states:          make(map[uint32]*materialState),
	}
	ms.registered[ms.DefaultMaterial.Name] = ms.DefaultMaterial
	return ms, nil
}

/** @brief Makes a material available by name, replacing any previous one. */
func (ms *MaterialSystem) Register(material *metadata.Material) error {
	if material == nil {
		return fmt.Errorf("func Register - material cannot be nil: %w", core.ErrInvalidConfig)
	}
	if _, ok := ms.registered[material.Name]; !ok && uint32(len(ms.registered)) >= ms.Config.MaxMaterialCount {
		return fmt.Errorf("cannot register material '%s', %d materials already registered: %w", material.Name, len(ms.registered), core.ErrResourceLimit)
	}
	ms.registered[material.Name] = material
	return nil
}

/** @brief A registered material by name, nil if unknown. */
func (ms *MaterialSystem) Get(name string) *metadata.Material {
	return ms.registered[name]
}

/** @brief The default material, drawn when nothing else is available. */
func (ms *MaterialSystem) GetDefault() *metadata.Material {
	return ms.DefaultMaterial
}

/**
 * @brief Resolves the program material draws with under lights and features.
 * A changed material or light setup acquires the new program before the old one
 * is released, so configurations that hash the same never recompile.
 */
func (ms *MaterialSystem) GetProgram(material *metadata.Material, lights *LightsState, features SceneFeatures) (ProgramHandle, *ProgramEntry, error) {
	if material == nil {
		return InvalidProgram, nil, fmt.Errorf("func GetProgram - material cannot be nil: %w", core.ErrInvalidConfig)
	}
	if material.Disposed {
		return InvalidProgram, nil, fmt.Errorf("material '%s': %w", material.Name, core.ErrDisposed)
	}
	var lightsVersion uint64
	if lights != nil {
		lightsVersion = lights.Version
	}

	state, ok := ms.states[material.ID]
	if !ok {
		state = &materialState{material: material, programs: make(map[SceneFeatures]*materialProgram)}
		ms.states[material.ID] = state
	}

	mp := state.programs[features]
	if mp != nil && mp.version == material.Version && mp.lightsVersion == lightsVersion {
		if entry, err := ms.programs.Get(mp.handle); err == nil {
			return mp.handle, entry, nil
		}
		// invalidated by a context loss, the handle holds no usage anymore
		delete(state.programs, features)
		mp = nil
	}

	params := BuildProgramParameters(material, lights, features)
	if mp != nil && mp.params == params {
		mp.version = material.Version
		mp.lightsVersion = lightsVersion
		entry, err := ms.programs.Get(mp.handle)
		return mp.handle, entry, err
	}

	handle := ms.programs.Acquire(params)
	if mp != nil {
		ms.release(mp.handle)
	} else {
		mp = &materialProgram{}
		state.programs[features] = mp
	}
	mp.handle = handle
	mp.params = params
	mp.version = material.Version
	mp.lightsVersion = lightsVersion

	entry, err := ms.programs.Get(handle)
	return handle, entry, err
}

func (ms *MaterialSystem) release(h ProgramHandle) {
	if err := ms.programs.ReleaseProgram(h); err != nil {
		core.LogDebug("releasing %s: %s", h, err)
		return
	}
	if !ms.programs.Valid(h) && ms.onProgramRetired != nil {
		ms.onProgramRetired(h)
	}
}

/** @brief The programs currently held for a material. */
func (ms *MaterialSystem) Programs(material *metadata.Material) []ProgramHandle {
	state, ok := ms.states[material.ID]
	if !ok {
		return nil
	}
	out := make([]ProgramHandle, 0, len(state.programs))
	for _, mp := range state.programs {
		out = append(out, mp.handle)
	}
	return out
}

/**
 * @brief Releases every program held for a disposed material.
 */
func (ms *MaterialSystem) Dispose(material *metadata.Material) {
	state, ok := ms.states[material.ID]
	if !ok {
		return
	}
	for _, mp := range state.programs {
		ms.release(mp.handle)
	}
	delete(ms.states, material.ID)
	if registered, ok := ms.registered[material.Name]; ok && registered == material && material != ms.DefaultMaterial {
		delete(ms.registered, material.Name)
	}
}

/** @brief The number of materials with programs. */
func (ms *MaterialSystem) Count() int {
	return len(ms.states)
}

/** @brief Forgets every program without releasing, the cache was invalidated. */
func (ms *MaterialSystem) Reset() {
	ms.states = make(map[uint32]*materialState)
}

func (ms *MaterialSystem) Shutdown() error {
	for _, state := range ms.states {
		for _, mp := range state.programs {
			ms.release(mp.handle)
		}
	}
	ms.Reset()
	return nil
}
