package systems

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

/** @brief The pass a render item is drawn in. */
type RenderBucket int

const (
	RENDER_BUCKET_OPAQUE RenderBucket = iota
	/** @brief Materials sampling the opaque backdrop rendered in a pre-pass. */
	RENDER_BUCKET_TRANSMISSIVE
	RENDER_BUCKET_TRANSPARENT
)

func (rb RenderBucket) String() string {
	switch rb {
	case RENDER_BUCKET_OPAQUE:
		return "opaque"
	case RENDER_BUCKET_TRANSMISSIVE:
		return "transmissive"
	case RENDER_BUCKET_TRANSPARENT:
		return "transparent"
	}
	return fmt.Sprintf("render_bucket(%d)", int(rb))
}

/**
 * @brief One (drawable, material, group) triple queued for a single draw call.
 * Items are owned by the list pool and only valid until the next Init.
 */
type RenderItem struct {
	/** @brief Position in traversal order, the last resort sort key. */
	ID         uint32
	DrawableID uint32
	Node       *scene.Node
	Drawable   *scene.Drawable
	Geometry   *metadata.Geometry
	Material   *metadata.Material
	/** @brief The geometry group drawn, nil draws the whole draw range. */
	Group       *metadata.GeometryGroup
	RenderOrder int32
	/** @brief Distance in front of the camera along its view axis. */
	Z      float32
	Bucket RenderBucket
}

/** @brief A light collected during traversal together with its world matrix. */
type LightEntry struct {
	Light *metadata.Light
	Node  *scene.Node
	World math.Mat4
}

/** @brief The world position of the light. */
func (le *LightEntry) Position() math.Vec3 {
	return le.World.Position()
}

/**
 * @brief The normalized direction the light travels, from its position to its target.
 */
func (le *LightEntry) Direction() math.Vec3 {
	dir := le.Light.Target.Sub(le.Position())
	if dir.LengthSquared() == 0 {
		return math.NewVec3(0, -1, 0)
	}
	return dir.Normalized()
}

/**
 * @brief The per camera output of the builder. The buckets and the pool are
 * cleared, not reallocated, at the start of every build.
 */
type RenderList struct {
	Opaque       []*RenderItem
	Transmissive []*RenderItem
	Transparent  []*RenderItem
	Lights       []LightEntry
	/** @brief Drawables rejected by the frustum test during the last build. */
	Culled int
	/** @brief Drawables that produced at least one item during the last build. */
	Visible int

	pool   *containers.Pool[RenderItem]
	nextID uint32
}

func NewRenderList() *RenderList {
	return &RenderList{
		pool: containers.NewPool[RenderItem](256),
	}
}

/** @brief Empties the list keeping every allocation for reuse. */
func (rl *RenderList) Init() {
	rl.Opaque = rl.Opaque[:0]
	rl.Transmissive = rl.Transmissive[:0]
	rl.Transparent = rl.Transparent[:0]
	for i := range rl.Lights {
		rl.Lights[i] = LightEntry{}
	}
	rl.Lights = rl.Lights[:0]
	rl.Culled = 0
	rl.Visible = 0
	rl.pool.Reset()
	rl.nextID = 0
}

/** @brief Takes an item from the pool, assigns it the next id and files it in its bucket. */
func (rl *RenderList) Push(n *scene.Node, material *metadata.Material, group *metadata.GeometryGroup, renderOrder int32, z float32) *RenderItem {
	item := rl.pool.Get()
	item.ID = rl.nextID
	rl.nextID++
	item.Node = n
	item.Drawable = n.Drawable
	item.DrawableID = n.Drawable.ID
	item.Geometry = n.Drawable.Geometry
	item.Material = material
	item.Group = group
	item.RenderOrder = renderOrder
	item.Z = z
	item.Bucket = BucketOf(material)

	switch item.Bucket {
	case RENDER_BUCKET_TRANSMISSIVE:
		rl.Transmissive = append(rl.Transmissive, item)
	case RENDER_BUCKET_TRANSPARENT:
		rl.Transparent = append(rl.Transparent, item)
	default:
		rl.Opaque = append(rl.Opaque, item)
	}
	return item
}

/** @brief The number of items across all buckets. */
func (rl *RenderList) Len() int {
	return len(rl.Opaque) + len(rl.Transmissive) + len(rl.Transparent)
}

/** @brief The pooled items currently allocated, stable across frames once warm. */
func (rl *RenderList) PoolSize() int {
	return rl.pool.Allocated()
}

/**
 * @brief Picks the bucket of a material. Transmission wins over blending since
 * it needs the backdrop pre-pass, fully opaque unblended materials are opaque
 * and everything else is transparent.
 */
func BucketOf(material *metadata.Material) RenderBucket {
	if material.Transmission > 0 {
		return RENDER_BUCKET_TRANSMISSIVE
	}
	if material.IsOpaque() {
		return RENDER_BUCKET_OPAQUE
	}
	return RENDER_BUCKET_TRANSPARENT
}

/**
 * @brief Swaps the material an item is drawn with, used by depth only passes.
 * Returning nil drops the item.
 */
type FnMaterialOverride func(d *scene.Drawable, material *metadata.Material) *metadata.Material

/**
 * @brief Walks the scene graph and fills render lists.
 */
type RenderListBuilder struct {
	culling      *CullingSystem
	onDiagnostic func(code metadata.DiagnosticCode, err error, format string, args ...interface{})

	/** @brief Only drawables with CastShadow set are emitted, lights are skipped. */
	ShadowCastersOnly bool
	/** @brief Optional substitution applied to every emitted material. */
	MaterialOverride FnMaterialOverride
}

func NewRenderListBuilder(culling *CullingSystem) *RenderListBuilder {
	return &RenderListBuilder{culling: culling}
}

/**
 * @brief Builds the render list of graph as seen from camera. World matrices
 * must be current. The list is initialized first.
 */
func (b *RenderListBuilder) Build(graph *scene.Graph, camera *components.Camera, list *RenderList) error {
	if graph == nil || camera == nil {
		return fmt.Errorf("func Build - graph and camera are required: %w", core.ErrInvalidConfig)
	}
	list.Init()
	b.culling.SetCamera(camera)
	view := camera.GetView()
	b.visit(graph, graph.RootNode(), camera, &view, 0, list)
	list.Culled = int(b.culling.Culled)
	return nil
}

func (b *RenderListBuilder) visit(graph *scene.Graph, n *scene.Node, camera *components.Camera, view *math.Mat4, inheritedOrder int32, list *RenderList) {
	if !n.Visible {
		return
	}
	order := inheritedOrder
	if explicit, ok := n.RenderOrder(); ok {
		order = explicit
	}

	if n.Layers&camera.Layers != 0 {
		if n.Light != nil && !b.ShadowCastersOnly {
			list.Lights = append(list.Lights, LightEntry{Light: n.Light, Node: n, World: n.CachedWorld()})
		}
		if n.Drawable != nil && (!b.ShadowCastersOnly || n.Drawable.CastShadow) {
			b.pushDrawable(n, view, order, list)
		}
	}

	graph.EachChild(n, func(child *scene.Node) {
		b.visit(graph, child, camera, view, order, list)
	})
}

func (b *RenderListBuilder) pushDrawable(n *scene.Node, view *math.Mat4, order int32, list *RenderList) {
	d := n.Drawable
	geometry := d.Geometry
	if geometry == nil || geometry.Disposed {
		b.diagnostic(metadata.DIAGNOSTIC_CODE_CONFIGURATION, core.ErrDisposed, "drawable %d (%s) references a missing or disposed geometry", d.ID, n.Name)
		return
	}
	if !b.culling.DrawableVisible(n) {
		return
	}

	depthPoint := d.DepthPoint(n.CachedWorld(), n.WorldVersion())
	z := -depthPoint.Transform(*view).Z

	emitted := false
	if len(geometry.Groups) > 0 && len(d.Materials) > 1 {
		for i := range geometry.Groups {
			group := &geometry.Groups[i]
			material := d.Material(group.MaterialIndex)
			if material == nil {
				b.diagnostic(metadata.DIAGNOSTIC_CODE_CONFIGURATION, core.ErrInvalidConfig,
					"drawable %d (%s) group %d uses material index %d of %d", d.ID, n.Name, i, group.MaterialIndex, len(d.Materials))
				continue
			}
			if b.push(n, material, group, order, z, list) {
				emitted = true
			}
		}
	} else {
		material := d.Material(0)
		if material == nil {
			b.diagnostic(metadata.DIAGNOSTIC_CODE_CONFIGURATION, core.ErrInvalidConfig, "drawable %d (%s) has no material", d.ID, n.Name)
			return
		}
		emitted = b.push(n, material, nil, order, z, list)
	}
	if emitted {
		list.Visible++
	}
}

func (b *RenderListBuilder) push(n *scene.Node, material *metadata.Material, group *metadata.GeometryGroup, order int32, z float32, list *RenderList) bool {
	if material.Disposed {
		b.diagnostic(metadata.DIAGNOSTIC_CODE_CONFIGURATION, core.ErrDisposed, "drawable %d (%s) references disposed material '%s'", n.Drawable.ID, n.Name, material.Name)
		return false
	}
	if !material.Visible {
		return false
	}
	if b.MaterialOverride != nil {
		material = b.MaterialOverride(n.Drawable, material)
		if material == nil {
			return false
		}
	}
	list.Push(n, material, group, order, z)
	return true
}

func (b *RenderListBuilder) diagnostic(code metadata.DiagnosticCode, err error, format string, args ...interface{}) {
	if b.onDiagnostic != nil {
		b.onDiagnostic(code, err, format, args...)
		return
	}
	core.LogWarn(format, args...)
}
