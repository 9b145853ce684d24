package systems

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type GeometrySystemConfig struct {
	/** @brief Soft limit on geometries with GPU buffers, exceeding it raises a diagnostic. */
	MaxGeometryCount uint32
}

type gpuBuffer struct {
	id      metadata.BufferID
	version uint32
}

type geometryReference struct {
	geometry *metadata.Geometry
	version  uint32
	/** @brief Last frame the geometry was made current. */
	frame uint64
}

/**
 * @brief Keeps the GPU buffers of geometries in sync with their attribute data.
 * Buffers are keyed by the attribute they mirror, so an attribute swapped for a
 * new one gets a new buffer and a changed Version triggers a re-upload.
 */
type GeometrySystem struct {
	config  *GeometrySystemConfig
	backend renderer.RendererBackend

	geometries map[uint32]*geometryReference
	attributes map[*metadata.BufferAttribute]*gpuBuffer
	indices    map[*metadata.IndexBuffer]*gpuBuffer
	/** @brief The attributes and index buffers each geometry uploaded. */
	owned map[uint32][]interface{}

	onDiagnostic func(severity metadata.DiagnosticSeverity, code metadata.DiagnosticCode, err error, format string, args ...interface{})

	Uploads uint64
}

/**
 * @brief Initializes the geometry system.
 *
 * @param config The configuration for this system.
 * @param backend The backend buffers are created on.
 * @return The system, or an error if the configuration is invalid.
 */
func NewGeometrySystem(config *GeometrySystemConfig, backend renderer.RendererBackend) (*GeometrySystem, error) {
	if config == nil || config.MaxGeometryCount == 0 {
		err := fmt.Errorf("func NewGeometrySystem - config.MaxGeometryCount must be > 0: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	if backend == nil {
		err := fmt.Errorf("func NewGeometrySystem - backend cannot be nil: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	return &GeometrySystem{
		config:     config,
		backend:    backend,
		geometries: make(map[uint32]*geometryReference),
		attributes: make(map[*metadata.BufferAttribute]*gpuBuffer),
		indices:    make(map[*metadata.IndexBuffer]*gpuBuffer),
		owned:      make(map[uint32][]interface{}),
	}, nil
}

/**
 * @brief Makes sure every attribute, morph attribute and the index buffer of the
 * geometry has an up to date GPU buffer. Cheap when nothing changed.
 *
 * @param geometry The geometry to update.
 * @param frame The current frame number, repeated calls within a frame are skipped.
 */
func (gs *GeometrySystem) Update(geometry *metadata.Geometry, frame uint64) error {
	if geometry == nil || geometry.Disposed {
		return fmt.Errorf("func Update - geometry is missing or disposed: %w", core.ErrDisposed)
	}
	ref, ok := gs.geometries[geometry.ID]
	if !ok {
		ref = &geometryReference{geometry: geometry}
		gs.geometries[geometry.ID] = ref
		if uint32(len(gs.geometries)) > gs.config.MaxGeometryCount {
			gs.diagnostic(metadata.DIAGNOSTIC_SEVERITY_WARNING, metadata.DIAGNOSTIC_CODE_RESOURCE_LIMIT, core.ErrResourceLimit,
				"%d geometries hold GPU buffers, more than the configured %d", len(gs.geometries), gs.config.MaxGeometryCount)
		}
	} else if ref.frame == frame && frame != 0 {
		return nil
	}
	ref.frame = frame

	for _, attribute := range geometry.Attributes {
		if err := gs.updateAttribute(geometry, attribute); err != nil {
			return err
		}
	}
	for _, targets := range geometry.MorphAttributes {
		for _, attribute := range targets {
			if err := gs.updateAttribute(geometry, attribute); err != nil {
				return err
			}
		}
	}
	if geometry.Index != nil {
		if err := gs.updateIndex(geometry, geometry.Index); err != nil {
			return err
		}
	}
	ref.version = geometry.Version
	return nil
}

func (gs *GeometrySystem) updateAttribute(geometry *metadata.Geometry, attribute *metadata.BufferAttribute) error {
	if attribute == nil {
		return nil
	}
	buf, ok := gs.attributes[attribute]
	if !ok {
		id, err := gs.backend.BufferCreate(metadata.RENDERBUFFER_TYPE_VERTEX, attribute.Data)
		if err != nil {
			return fmt.Errorf("geometry '%s': %w", geometry.Name, err)
		}
		gs.attributes[attribute] = &gpuBuffer{id: id, version: attribute.Version}
		gs.owned[geometry.ID] = append(gs.owned[geometry.ID], attribute)
		gs.Uploads++
		return nil
	}
	if buf.version != attribute.Version {
		if err := gs.backend.BufferUpdate(buf.id, attribute.Data); err != nil {
			return fmt.Errorf("geometry '%s': %w", geometry.Name, err)
		}
		buf.version = attribute.Version
		gs.Uploads++
	}
	return nil
}

func (gs *GeometrySystem) updateIndex(geometry *metadata.Geometry, index *metadata.IndexBuffer) error {
	buf, ok := gs.indices[index]
	if !ok {
		id, err := gs.backend.BufferCreate(metadata.RENDERBUFFER_TYPE_INDEX, index.Data)
		if err != nil {
			return fmt.Errorf("geometry '%s' index: %w", geometry.Name, err)
		}
		gs.indices[index] = &gpuBuffer{id: id, version: index.Version}
		gs.owned[geometry.ID] = append(gs.owned[geometry.ID], index)
		gs.Uploads++
		return nil
	}
	if buf.version != index.Version {
		if err := gs.backend.BufferUpdate(buf.id, index.Data); err != nil {
			return fmt.Errorf("geometry '%s' index: %w", geometry.Name, err)
		}
		buf.version = index.Version
		gs.Uploads++
	}
	return nil
}

/** @brief The GPU buffer mirroring an attribute, zero when it was never uploaded. */
func (gs *GeometrySystem) Buffer(attribute *metadata.BufferAttribute) metadata.BufferID {
	if buf, ok := gs.attributes[attribute]; ok {
		return buf.id
	}
	return 0
}

/** @brief The GPU buffer mirroring an index buffer, zero when it was never uploaded. */
func (gs *GeometrySystem) IndexBuffer(index *metadata.IndexBuffer) metadata.BufferID {
	if index == nil {
		return 0
	}
	if buf, ok := gs.indices[index]; ok {
		return buf.id
	}
	return 0
}

/** @brief The number of geometries holding GPU buffers. */
func (gs *GeometrySystem) Count() int {
	return len(gs.geometries)
}

/**
 * @brief Destroys every GPU buffer of a geometry.
 *
 * @param geometry The geometry to release.
 */
func (gs *GeometrySystem) Release(geometry *metadata.Geometry) {
	if geometry == nil {
		return
	}
	for _, owned := range gs.owned[geometry.ID] {
		switch o := owned.(type) {
		case *metadata.BufferAttribute:
			if buf, ok := gs.attributes[o]; ok {
				gs.backend.BufferDestroy(buf.id)
				delete(gs.attributes, o)
			}
		case *metadata.IndexBuffer:
			if buf, ok := gs.indices[o]; ok {
				gs.backend.BufferDestroy(buf.id)
				delete(gs.indices, o)
			}
		}
	}
	delete(gs.owned, geometry.ID)
	delete(gs.geometries, geometry.ID)
}

/** @brief Forgets every buffer without backend calls, used after a context loss. */
func (gs *GeometrySystem) Reset() {
	gs.geometries = make(map[uint32]*geometryReference)
	gs.attributes = make(map[*metadata.BufferAttribute]*gpuBuffer)
	gs.indices = make(map[*metadata.IndexBuffer]*gpuBuffer)
	gs.owned = make(map[uint32][]interface{})
}

func (gs *GeometrySystem) Shutdown() error {
	for _, ref := range gs.geometries {
		gs.Release(ref.geometry)
	}
	gs.Reset()
	return nil
}

func (gs *GeometrySystem) diagnostic(severity metadata.DiagnosticSeverity, code metadata.DiagnosticCode, err error, format string, args ...interface{}) {
	if gs.onDiagnostic != nil {
		gs.onDiagnostic(severity, code, err, format, args...)
		return
	}
	core.LogWarn(format, args...)
}
