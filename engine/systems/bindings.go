package systems

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type bindingKey struct {
	drawable uint32
	program  ProgramHandle
}

type boundAttribute struct {
	location uint32
	source   *metadata.BufferAttribute
	buffer   metadata.BufferID
	size     uint8
}

/**
 * @brief The attribute wiring of one (drawable, program) pair. With vertex
 * arrays it owns a VAO, otherwise it only records what the shared default
 * state must look like.
 */
type bindingState struct {
	vao        metadata.VertexArrayID
	geometry   *metadata.Geometry
	version    uint32
	attributes []boundAttribute
	index      *metadata.IndexBuffer
	indexID    metadata.BufferID
}

/**
 * @brief Caches vertex attribute bindings so that drawing the same geometry
 * with the same program again issues no attribute calls.
 */
type BindingStateCache struct {
	backend    renderer.RendererBackend
	geometries *GeometrySystem
	useVAO     bool

	states map[bindingKey]*bindingState
	// the VAO currently bound, zero for the default state
	currentVAO metadata.VertexArrayID
	// contents of the default attribute state when VAOs are unavailable
	current      []boundAttribute
	currentIndex metadata.BufferID
	scratch      []boundAttribute

	/** @brief The number of times attribute wiring was (re)issued to the backend. */
	BindingChanges uint64
}

func NewBindingStateCache(backend renderer.RendererBackend, geometries *GeometrySystem) *BindingStateCache {
	bc := &BindingStateCache{
		backend:    backend,
		geometries: geometries,
		useVAO:     backend.Capabilities().VertexArrays,
		states:     make(map[bindingKey]*bindingState),
	}
	if !bc.useVAO {
		core.LogInfo("Vertex array objects unavailable, attribute state is tracked on the default state.")
	}
	return bc
}

/**
 * @brief Makes the attributes of geometry current for program. The geometry
 * must have been updated by the geometry system this frame.
 *
 * @return True when backend calls were needed.
 */
func (bc *BindingStateCache) Setup(drawableID uint32, handle ProgramHandle, program *ProgramEntry, geometry *metadata.Geometry) bool {
	key := bindingKey{drawable: drawableID, program: handle}
	state, ok := bc.states[key]
	if !ok {
		state = &bindingState{}
		bc.states[key] = state
	}

	desired := bc.resolve(program, geometry)
	indexID := bc.geometries.IndexBuffer(geometry.Index)
	unchanged := ok && state.geometry == geometry && state.version == geometry.Version &&
		state.index == geometry.Index && state.indexID == indexID && sameAttributes(state.attributes, desired)

	if bc.useVAO {
		if unchanged && state.vao != 0 {
			if bc.currentVAO != state.vao {
				bc.backend.VertexArrayBind(state.vao)
				bc.currentVAO = state.vao
				return true
			}
			return false
		}
		if state.vao == 0 {
			state.vao = bc.backend.VertexArrayCreate()
		}
		bc.backend.VertexArrayBind(state.vao)
		bc.currentVAO = state.vao
		bc.apply(state.attributes, desired)
		if state.indexID != indexID || !ok {
			bc.backend.IndexBufferBind(indexID)
		}
		bc.remember(state, geometry, desired, indexID)
		bc.BindingChanges++
		return true
	}

	if unchanged && sameAttributes(bc.current, desired) && bc.currentIndex == indexID {
		return false
	}
	bc.apply(bc.current, desired)
	bc.current = append(bc.current[:0], desired...)
	if bc.currentIndex != indexID {
		bc.backend.IndexBufferBind(indexID)
		bc.currentIndex = indexID
	}
	bc.remember(state, geometry, desired, indexID)
	bc.BindingChanges++
	return true
}

func (bc *BindingStateCache) remember(state *bindingState, geometry *metadata.Geometry, desired []boundAttribute, indexID metadata.BufferID) {
	state.geometry = geometry
	state.version = geometry.Version
	state.attributes = append(state.attributes[:0], desired...)
	state.index = geometry.Index
	state.indexID = indexID
}

/** @brief Issues the pointer and disable calls turning previous into desired. */
func (bc *BindingStateCache) apply(previous, desired []boundAttribute) {
	for _, d := range desired {
		if p, ok := findLocation(previous, d.location); ok && p == d {
			continue
		}
		bc.backend.VertexAttribPointer(d.location, d.buffer, d.size, d.source.Normalized, 0, 0)
	}
	for _, p := range previous {
		if _, ok := findLocation(desired, p.location); !ok {
			bc.backend.VertexAttribDisable(p.location)
		}
	}
}

func (bc *BindingStateCache) resolve(program *ProgramEntry, geometry *metadata.Geometry) []boundAttribute {
	bc.scratch = bc.scratch[:0]
	for _, attr := range program.Attributes {
		source := lookupAttribute(geometry, attr.Name)
		if source == nil {
			continue
		}
		buffer := bc.geometries.Buffer(source)
		if buffer == 0 {
			continue
		}
		bc.scratch = append(bc.scratch, boundAttribute{
			location: attr.Location,
			source:   source,
			buffer:   buffer,
			size:     uint8(source.ItemSize),
		})
	}
	return bc.scratch
}

/**
 * @brief Finds the geometry data behind a program attribute name, following
 * the morph target naming for displaced attributes.
 */
func lookupAttribute(geometry *metadata.Geometry, name string) *metadata.BufferAttribute {
	if a, ok := geometry.Attributes[name]; ok {
		return a
	}
	if !strings.HasPrefix(name, "morph") {
		return nil
	}
	rest := strings.TrimPrefix(name, "morph")
	cut := strings.IndexFunc(rest, unicode.IsDigit)
	if cut <= 0 {
		return nil
	}
	index, err := strconv.Atoi(rest[cut:])
	if err != nil {
		return nil
	}
	attribute := rest[:cut]
	if attribute == "Target" {
		attribute = metadata.ATTRIBUTE_POSITION
	} else {
		attribute = strings.ToLower(attribute[:1]) + attribute[1:]
	}
	targets := geometry.MorphAttributes[attribute]
	if index >= len(targets) {
		return nil
	}
	return targets[index]
}

func findLocation(list []boundAttribute, location uint32) (boundAttribute, bool) {
	for _, a := range list {
		if a.location == location {
			return a, true
		}
	}
	return boundAttribute{}, false
}

func sameAttributes(a, b []boundAttribute) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (bc *BindingStateCache) release(key bindingKey, state *bindingState) {
	if state.vao != 0 {
		if bc.currentVAO == state.vao {
			bc.backend.VertexArrayBind(0)
			bc.currentVAO = 0
		}
		bc.backend.VertexArrayDestroy(state.vao)
	}
	delete(bc.states, key)
}

/** @brief Drops the states of a drawable removed from the scene. */
func (bc *BindingStateCache) ReleaseByDrawable(drawableID uint32) {
	for key, state := range bc.states {
		if key.drawable == drawableID {
			bc.release(key, state)
		}
	}
}

/** @brief Drops the states wiring a disposed geometry. */
func (bc *BindingStateCache) ReleaseByGeometry(geometry *metadata.Geometry) {
	for key, state := range bc.states {
		if state.geometry == geometry {
			bc.release(key, state)
		}
	}
}

/** @brief Drops the states of a released program. */
func (bc *BindingStateCache) ReleaseByProgram(handle ProgramHandle) {
	for key, state := range bc.states {
		if key.program == handle {
			bc.release(key, state)
		}
	}
}

/** @brief The number of cached states. */
func (bc *BindingStateCache) Count() int {
	return len(bc.states)
}

/** @brief Forgets every state without backend calls, used after a context loss. */
func (bc *BindingStateCache) Reset() {
	bc.states = make(map[bindingKey]*bindingState)
	bc.currentVAO = 0
	bc.current = bc.current[:0]
	bc.currentIndex = 0
}

func (bc *BindingStateCache) Shutdown() error {
	for key, state := range bc.states {
		bc.release(key, state)
	}
	bc.Reset()
	return nil
}
