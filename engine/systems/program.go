package systems

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief Names a program cache entry. The generation detects handles that
 * outlived their entry (released or invalidated by a context loss).
 */
type ProgramHandle struct {
	index      uint32
	generation uint32
}

var InvalidProgram = ProgramHandle{}

func (h ProgramHandle) IsValid() bool {
	return h.generation != 0
}

func (h ProgramHandle) String() string {
	return fmt.Sprintf("program(%d:%d)", h.index, h.generation)
}

/**
 * @brief A compiled program shared by every draw with the same parameters.
 */
type ProgramEntry struct {
	Parameters ProgramParameters
	/** @brief The printable hash of Parameters. */
	CacheKey string
	/** @brief Unique debug label handed to the backend. */
	Label      string
	Program    metadata.ProgramID
	State      metadata.ShaderState
	Attributes []metadata.ShaderAttribute
	Uniforms   *UniformCache
	/** @brief The number of holders, the program is destroyed when it drops to zero. */
	UsageCount int

	generation uint32
	alive      bool
}

/** @brief Whether draws with this entry must be skipped. */
func (pe *ProgramEntry) IsStandIn() bool {
	return pe.State != metadata.SHADER_STATE_INITIALIZED
}

type ProgramCacheConfig struct {
	/** @brief Soft limit, exceeding it raises a resource limit diagnostic. */
	MaxProgramCount uint32
}

/**
 * @brief Resolves program parameters to shared compiled programs and reference
 * counts them. Failed compilations are cached as stand-ins that draw nothing so
 * a broken configuration is reported once, not every frame.
 */
type ProgramCache struct {
	config  *ProgramCacheConfig
	backend renderer.RendererBackend

	entries []*ProgramEntry
	free    []uint32
	lookup  map[ProgramParameters]uint32

	onDiagnostic func(severity metadata.DiagnosticSeverity, code metadata.DiagnosticCode, err error, format string, args ...interface{})

	/** @brief Successful and failed compilations since creation. */
	Compilations uint64
	Hits         uint64
}

func NewProgramCache(config *ProgramCacheConfig, backend renderer.RendererBackend) (*ProgramCache, error) {
	if config == nil || config.MaxProgramCount == 0 {
		err := fmt.Errorf("func NewProgramCache - config.MaxProgramCount must be > 0: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	if backend == nil {
		err := fmt.Errorf("func NewProgramCache - backend cannot be nil: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	return &ProgramCache{
		config:  config,
		backend: backend,
		lookup:  make(map[ProgramParameters]uint32),
	}, nil
}

/**
 * @brief Acquires the program a material needs under the given lights and scene features.
 */
func (pc *ProgramCache) AcquireProgram(material *metadata.Material, lights *LightsState, features SceneFeatures) (ProgramHandle, error) {
	if material == nil {
		return InvalidProgram, fmt.Errorf("func AcquireProgram - material cannot be nil: %w", core.ErrInvalidConfig)
	}
	if material.Disposed {
		return InvalidProgram, fmt.Errorf("material '%s': %w", material.Name, core.ErrDisposed)
	}
	return pc.Acquire(BuildProgramParameters(material, lights, features)), nil
}

/**
 * @brief Returns the entry for params, compiling it on a miss. Every call
 * increments the usage count and must be balanced by a ReleaseProgram.
 */
func (pc *ProgramCache) Acquire(params ProgramParameters) ProgramHandle {
	if index, ok := pc.lookup[params]; ok {
		entry := pc.entries[index]
		entry.UsageCount++
		pc.Hits++
		return ProgramHandle{index: index, generation: entry.generation}
	}

	index := pc.allocate()
	entry := pc.entries[index]
	entry.Parameters = params
	entry.CacheKey = params.CacheKey()
	entry.UsageCount = 1
	entry.alive = true
	pc.compile(entry)
	pc.lookup[params] = index

	if uint32(pc.Count()) > pc.config.MaxProgramCount {
		pc.diagnostic(metadata.DIAGNOSTIC_SEVERITY_WARNING, metadata.DIAGNOSTIC_CODE_RESOURCE_LIMIT, core.ErrResourceLimit,
			"%d live programs exceed the configured maximum of %d", pc.Count(), pc.config.MaxProgramCount)
	}
	return ProgramHandle{index: index, generation: entry.generation}
}

func (pc *ProgramCache) allocate() uint32 {
	if n := len(pc.free); n > 0 {
		index := pc.free[n-1]
		pc.free = pc.free[:n-1]
		pc.entries[index].generation++
		return index
	}
	pc.entries = append(pc.entries, &ProgramEntry{generation: 1})
	return uint32(len(pc.entries) - 1)
}

func (pc *ProgramCache) compile(entry *ProgramEntry) {
	source := entry.Parameters.Source()
	source.Label = fmt.Sprintf("%s_%s", source.Label, uuid.NewString())
	entry.Label = source.Label
	pc.Compilations++

	program, err := pc.backend.ProgramCreate(source)
	if err != nil {
		entry.Program = 0
		entry.State = metadata.SHADER_STATE_FAILED
		entry.Attributes = nil
		entry.Uniforms = NewUniformCache(pc.backend, 0, nil)
		if !errors.Is(err, core.ErrContextLost) {
			pc.diagnostic(metadata.DIAGNOSTIC_SEVERITY_ERROR, metadata.DIAGNOSTIC_CODE_COMPILATION, err,
				"program %s (%s) failed to build, drawing nothing in its place", entry.CacheKey, source.Name)
		}
		return
	}
	entry.Program = program
	entry.State = metadata.SHADER_STATE_INITIALIZED
	entry.Attributes = pc.backend.ProgramAttributes(program)
	entry.Uniforms = NewUniformCache(pc.backend, program, pc.backend.ProgramUniforms(program))
	core.LogDebug("Program %s compiled for '%s'.", entry.CacheKey, source.Name)
}

/** @brief Resolves a handle, failing for released or invalidated entries. */
func (pc *ProgramCache) Get(h ProgramHandle) (*ProgramEntry, error) {
	if !h.IsValid() || int(h.index) >= len(pc.entries) {
		return nil, fmt.Errorf("%s: %w", h, core.ErrInvalidHandle)
	}
	entry := pc.entries[h.index]
	if !entry.alive || entry.generation != h.generation {
		return nil, fmt.Errorf("%s: %w", h, core.ErrStaleHandle)
	}
	return entry, nil
}

/** @brief Whether the handle still names a live entry. */
func (pc *ProgramCache) Valid(h ProgramHandle) bool {
	_, err := pc.Get(h)
	return err == nil
}

/**
 * @brief Drops one usage of the entry and destroys the program once nobody uses it.
 */
func (pc *ProgramCache) ReleaseProgram(h ProgramHandle) error {
	entry, err := pc.Get(h)
	if err != nil {
		return err
	}
	entry.UsageCount--
	if entry.UsageCount > 0 {
		return nil
	}
	if entry.Program != 0 {
		pc.backend.ProgramDestroy(entry.Program)
	}
	pc.retire(h.index, entry)
	return nil
}

func (pc *ProgramCache) retire(index uint32, entry *ProgramEntry) {
	delete(pc.lookup, entry.Parameters)
	entry.alive = false
	entry.Program = 0
	entry.UsageCount = 0
	entry.Uniforms = nil
	entry.Attributes = nil
	entry.generation++
	pc.free = append(pc.free, index)
}

/** @brief The handle of an already compiled configuration, without acquiring it. */
func (pc *ProgramCache) Lookup(params ProgramParameters) (ProgramHandle, bool) {
	index, ok := pc.lookup[params]
	if !ok {
		return InvalidProgram, false
	}
	return ProgramHandle{index: index, generation: pc.entries[index].generation}, true
}

/** @brief The number of live entries, stand-ins included. */
func (pc *ProgramCache) Count() int {
	return len(pc.lookup)
}

/** @brief The live entries in slot order. */
func (pc *ProgramCache) Entries() []*ProgramEntry {
	out := make([]*ProgramEntry, 0, len(pc.lookup))
	for _, entry := range pc.entries {
		if entry.alive {
			out = append(out, entry)
		}
	}
	return out
}

/**
 * @brief Forgets every entry without touching the backend, whose objects are
 * already gone after a context loss. Outstanding handles become stale.
 */
func (pc *ProgramCache) Invalidate() {
	for index, entry := range pc.entries {
		if entry.alive {
			pc.retire(uint32(index), entry)
		}
	}
	core.LogDebug("Program cache invalidated.")
}

/** @brief Destroys every program regardless of its usage count. */
func (pc *ProgramCache) Shutdown() error {
	for index, entry := range pc.entries {
		if !entry.alive {
			continue
		}
		if entry.Program != 0 {
			pc.backend.ProgramDestroy(entry.Program)
		}
		pc.retire(uint32(index), entry)
	}
	return nil
}

func (pc *ProgramCache) diagnostic(severity metadata.DiagnosticSeverity, code metadata.DiagnosticCode, err error, format string, args ...interface{}) {
	if pc.onDiagnostic != nil {
		pc.onDiagnostic(severity, code, err, format, args...)
		return
	}
	if severity == metadata.DIAGNOSTIC_SEVERITY_ERROR {
		core.LogError(format, args...)
	} else {
		core.LogWarn(format, args...)
	}
}
