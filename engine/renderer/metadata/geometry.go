package metadata

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
)

/** @brief Well-known attribute semantic names. */
const (
	ATTRIBUTE_POSITION    string = "position"
	ATTRIBUTE_NORMAL      string = "normal"
	ATTRIBUTE_UV          string = "uv"
	ATTRIBUTE_UV1         string = "uv1"
	ATTRIBUTE_UV2         string = "uv2"
	ATTRIBUTE_UV3         string = "uv3"
	ATTRIBUTE_COLOR       string = "color"
	ATTRIBUTE_TANGENT     string = "tangent"
	ATTRIBUTE_SKIN_INDEX  string = "skinIndex"
	ATTRIBUTE_SKIN_WEIGHT string = "skinWeight"
)

/**
 * @brief A typed, versioned array of per-vertex data.
 */
type BufferAttribute struct {
	/** @brief The packed element data. */
	Data []float32
	/** @brief The number of components per vertex (1 to 4). */
	ItemSize int
	/** @brief Whether integer data should be normalized when read by the program. */
	Normalized bool
	/** @brief Incremented every time Data changes, drives GPU re-upload. */
	Version uint32
}

func NewBufferAttribute(data []float32, itemSize int) *BufferAttribute {
	return &BufferAttribute{
		Data:     data,
		ItemSize: itemSize,
	}
}

/** @brief The number of vertices stored in the attribute. */
func (ba *BufferAttribute) Count() int {
	if ba.ItemSize <= 0 {
		return 0
	}
	return len(ba.Data) / ba.ItemSize
}

/** @brief Flags the data as modified. */
func (ba *BufferAttribute) NeedsUpdate() {
	ba.Version++
}

/**
 * @brief An optional index buffer.
 */
type IndexBuffer struct {
	/** @brief The identifier of the index buffer, used to detect a swapped buffer. */
	ID      uint32
	Data    []uint32
	Version uint32
}

func NewIndexBuffer(data []uint32) *IndexBuffer {
	return &IndexBuffer{
		ID:   core.IdentifierAquireNewID(),
		Data: data,
	}
}

func (ib *IndexBuffer) NeedsUpdate() {
	ib.Version++
}

/**
 * @brief A contiguous range of vertices (or indices) drawn with a single material.
 */
type GeometryGroup struct {
	Start uint32
	Count uint32
	/** @brief The index into the drawable's material list. */
	MaterialIndex int
}

/**
 * @brief Restricts drawing to a sub range. A negative Count draws to the end.
 */
type DrawRange struct {
	Start uint32
	Count int64
}

/**
 * @brief Represents actual geometry in the world.
 * Holds attribute buffers keyed by semantic name, an optional index buffer,
 * a draw range and a partition into material groups.
 */
type Geometry struct {
	/** @brief The geometry identifier. */
	ID uint32
	/** @brief The geometry name. */
	Name string
	/** @brief Attribute buffers keyed by semantic name. */
	Attributes map[string]*BufferAttribute
	/** @brief Morph target buffers keyed by the attribute they displace. */
	MorphAttributes map[string][]*BufferAttribute
	/** @brief The optional index buffer. */
	Index *IndexBuffer
	DrawRange DrawRange
	/** @brief Groups bound to material indices. Empty when a single material covers everything. */
	Groups []GeometryGroup
	/** @brief Incremented whenever the attribute set or index buffer is replaced. */
	Version uint32
	/** @brief Incremented every time the bounding volumes are recomputed. */
	BoundsVersion uint32
	/** @brief Set once the geometry has been disposed. */
	Disposed bool

	boundingSphere   math.Sphere
	boundingBox      math.Extents3D
	boundsValid      bool
	boundsPosVersion uint32
	boundsPosData    *BufferAttribute
}

func NewGeometry(name string) *Geometry {
	return &Geometry{
		ID:              core.IdentifierAquireNewID(),
		Name:            name,
		Attributes:      make(map[string]*BufferAttribute),
		MorphAttributes: make(map[string][]*BufferAttribute),
		DrawRange:       DrawRange{Start: 0, Count: -1},
	}
}

func (g *Geometry) SetAttribute(name string, attribute *BufferAttribute) *Geometry {
	g.Attributes[name] = attribute
	g.Version++
	if name == ATTRIBUTE_POSITION {
		g.boundsValid = false
	}
	return g
}

func (g *Geometry) GetAttribute(name string) *BufferAttribute {
	return g.Attributes[name]
}

func (g *Geometry) HasAttribute(name string) bool {
	_, ok := g.Attributes[name]
	return ok
}

func (g *Geometry) DeleteAttribute(name string) *Geometry {
	if _, ok := g.Attributes[name]; ok {
		delete(g.Attributes, name)
		g.Version++
		if name == ATTRIBUTE_POSITION {
			g.boundsValid = false
		}
	}
	return g
}

func (g *Geometry) SetMorphAttribute(name string, targets []*BufferAttribute) *Geometry {
	if len(targets) == 0 {
		delete(g.MorphAttributes, name)
	} else {
		g.MorphAttributes[name] = targets
	}
	g.Version++
	return g
}

/** @brief The largest morph target count over all morphed attributes. */
func (g *Geometry) MorphTargetCount() int {
	count := 0
	for _, targets := range g.MorphAttributes {
		count = max(count, len(targets))
	}
	return count
}

func (g *Geometry) SetIndex(indices []uint32) *Geometry {
	if indices == nil {
		g.Index = nil
	} else {
		g.Index = NewIndexBuffer(indices)
	}
	g.Version++
	return g
}

func (g *Geometry) AddGroup(start, count uint32, materialIndex int) {
	g.Groups = append(g.Groups, GeometryGroup{Start: start, Count: count, MaterialIndex: materialIndex})
}

func (g *Geometry) ClearGroups() {
	g.Groups = g.Groups[:0]
}

func (g *Geometry) SetDrawRange(start uint32, count int64) {
	g.DrawRange = DrawRange{Start: start, Count: count}
}

/**
 * @brief The number of elements (indices, or vertices when not indexed) the geometry holds.
 */
func (g *Geometry) ElementCount() uint32 {
	if g.Index != nil {
		return uint32(len(g.Index.Data))
	}
	if pos := g.Attributes[ATTRIBUTE_POSITION]; pos != nil {
		return uint32(pos.Count())
	}
	return 0
}

/**
 * @brief Resolves the element range to draw for a group (nil for the whole geometry),
 * clipped by the draw range.
 */
func (g *Geometry) DrawSpan(group *GeometryGroup) (start, count uint32) {
	total := g.ElementCount()

	rangeStart := g.DrawRange.Start
	rangeEnd := total
	if g.DrawRange.Count >= 0 {
		rangeEnd = min(total, rangeStart+uint32(g.DrawRange.Count))
	}

	if group != nil {
		rangeStart = max(rangeStart, group.Start)
		rangeEnd = min(rangeEnd, group.Start+group.Count)
	}
	if rangeEnd <= rangeStart {
		return rangeStart, 0
	}
	return rangeStart, rangeEnd - rangeStart
}

func (g *Geometry) boundsStale() bool {
	pos := g.Attributes[ATTRIBUTE_POSITION]
	return !g.boundsValid || pos != g.boundsPosData || (pos != nil && pos.Version != g.boundsPosVersion)
}

/**
 * @brief Returns the local space bounding sphere, computing it if the position
 * data changed since the last computation.
 */
func (g *Geometry) BoundingSphere() math.Sphere {
	if g.boundsStale() {
		g.ComputeBoundingVolumes()
	}
	return g.boundingSphere
}

/**
 * @brief Returns the local space bounding box, computing it if needed.
 */
func (g *Geometry) BoundingBox() math.Extents3D {
	if g.boundsStale() {
		g.ComputeBoundingVolumes()
	}
	return g.boundingBox
}

/**
 * @brief Recomputes the bounding sphere and box from the position attribute.
 * Geometry without positions gets empty volumes.
 */
func (g *Geometry) ComputeBoundingVolumes() {
	pos := g.Attributes[ATTRIBUTE_POSITION]
	if pos == nil || pos.ItemSize < 3 {
		g.boundingSphere = math.NewSphereEmpty()
		g.boundingBox = math.NewExtents3DEmpty()
		g.boundsPosVersion = 0
	} else {
		g.boundingBox = math.NewExtents3DFromPoints(pos.Data, pos.ItemSize)
		g.boundingSphere = math.NewSphereFromPoints(pos.Data, pos.ItemSize)
		g.boundsPosVersion = pos.Version
	}
	g.boundsPosData = pos
	g.boundsValid = true
	g.BoundsVersion++
}

/**
 * @brief Generates smooth vertex normals from the positions and index buffer.
 */
func (g *Geometry) ComputeVertexNormals() {
	pos := g.Attributes[ATTRIBUTE_POSITION]
	if pos == nil || pos.ItemSize != 3 {
		core.LogWarn("geometry '%s' has no xyz positions, normals not generated", g.Name)
		return
	}
	var indices []uint32
	if g.Index != nil {
		indices = g.Index.Data
	}
	normals := math.GeometryGenerateNormals(pos.Data, indices)
	if existing := g.Attributes[ATTRIBUTE_NORMAL]; existing != nil && existing.ItemSize == 3 {
		existing.Data = normals
		existing.NeedsUpdate()
		return
	}
	g.SetAttribute(ATTRIBUTE_NORMAL, NewBufferAttribute(normals, 3))
}

/**
 * @brief Marks the geometry disposed and notifies the renderers so they can free
 * GPU buffers and binding states tied to it.
 */
func (g *Geometry) Dispose() {
	if g.Disposed {
		return
	}
	g.Disposed = true
	core.EventFire(core.EVENT_CODE_GEOMETRY_DISPOSED, g, core.EventContext{Data: g})
}
