package systems

import (
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type cachedUniform struct {
	slot     metadata.ShaderUniform
	value    metadata.UniformValue
	uploaded bool
}

/**
 * @brief Remembers the last value uploaded to every uniform of one compiled
 * program and skips uploads of equal values.
 */
type UniformCache struct {
	backend renderer.RendererBackend
	program metadata.ProgramID
	slots   []cachedUniform
	byName  map[string]int
	stamp   uint64

	Uploads uint64
	Skips   uint64
}

func NewUniformCache(backend renderer.RendererBackend, program metadata.ProgramID, uniforms []metadata.ShaderUniform) *UniformCache {
	uc := &UniformCache{
		backend: backend,
		program: program,
		slots:   make([]cachedUniform, len(uniforms)),
		byName:  make(map[string]int, len(uniforms)),
	}
	for i, u := range uniforms {
		uc.slots[i].slot = u
		uc.byName[u.Name] = i
	}
	return uc
}

/** @brief The reflected slot of a uniform, nil when the program lacks it. */
func (uc *UniformCache) Slot(name string) *metadata.ShaderUniform {
	if i, ok := uc.byName[name]; ok {
		return &uc.slots[i].slot
	}
	return nil
}

func (uc *UniformCache) Has(name string) bool {
	_, ok := uc.byName[name]
	return ok
}

/**
 * @brief Uploads value to slot unless it equals the cached value. Returns true
 * when a backend call was issued.
 */
func (uc *UniformCache) Upload(slot *metadata.ShaderUniform, value metadata.UniformValue) bool {
	if slot == nil {
		return false
	}
	i, ok := uc.byName[slot.Name]
	if !ok {
		return false
	}
	cached := &uc.slots[i]
	if cached.uploaded && cached.value.Equal(value) {
		uc.Skips++
		return false
	}
	uc.backend.UniformUpload(uc.program, cached.slot.Location, value)
	cached.value.CopyFrom(value)
	cached.uploaded = true
	uc.Uploads++
	return true
}

/** @brief Upload by uniform name, a no-op for uniforms the program does not declare. */
func (uc *UniformCache) UploadByName(name string, value metadata.UniformValue) bool {
	i, ok := uc.byName[name]
	if !ok {
		return false
	}
	return uc.Upload(&uc.slots[i].slot, value)
}

/**
 * @brief Marks the program as prepared for the pass identified by stamp.
 * Returns true the first time a stamp is seen, which is when per-frame
 * uniforms must be refreshed.
 */
func (uc *UniformCache) BeginPass(stamp uint64) bool {
	if uc.stamp == stamp {
		return false
	}
	uc.stamp = stamp
	return true
}

/** @brief Forgets every cached value so the next uploads go through. */
func (uc *UniformCache) Reset() {
	for i := range uc.slots {
		uc.slots[i].uploaded = false
	}
	uc.stamp = 0
}
