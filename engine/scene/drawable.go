package scene

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief Geometry plus the materials drawing it. With several materials the
 * geometry groups pick the material by index.
 */
type Drawable struct {
	/** @brief Unique for the lifetime of the process, keys the binding caches. */
	ID        uint32
	Geometry  *metadata.Geometry
	Materials []*metadata.Material
	Mode      metadata.DrawMode
	/** @brief When false the drawable skips frustum tests and is always considered visible. */
	FrustumCulled bool
	CastShadow    bool
	ReceiveShadow bool
	/** @brief Local space point used for depth sorting instead of the bounds center. */
	DepthReference *math.Vec3
	/** @brief Weights of the geometry morph targets. */
	MorphInfluences []float32
	/**
	 * @brief Skinning palette, one matrix per bone. Only used when the geometry
	 * carries skinIndex and skinWeight attributes.
	 */
	BoneMatrices []math.Mat4

	worldSphere         math.Sphere
	worldBox            math.Extents3D
	cachedGeometry      *metadata.Geometry
	cachedBoundsVersion uint32
	cachedWorldVersion  uint64
	boundsValid         bool
	boundsComputations  uint64
}

func NewDrawable(geometry *metadata.Geometry, materials ...*metadata.Material) *Drawable {
	return &Drawable{
		ID:            core.IdentifierAquireNewID(),
		Geometry:      geometry,
		Materials:     materials,
		Mode:          metadata.DRAW_MODE_TRIANGLES,
		FrustumCulled: true,
	}
}

/** @brief The material at index, nil when out of range. */
func (d *Drawable) Material(index int) *metadata.Material {
	if index < 0 || index >= len(d.Materials) {
		return nil
	}
	return d.Materials[index]
}

func (d *Drawable) refreshBounds(world math.Mat4, worldVersion uint64) {
	g := d.Geometry
	if g == nil {
		d.worldSphere = math.NewSphereEmpty()
		d.worldBox = math.NewExtents3DEmpty()
		d.boundsValid = false
		return
	}
	// Reading the geometry bounds recomputes them first if the positions changed.
	localSphere := g.BoundingSphere()
	localBox := g.BoundingBox()
	if d.boundsValid && d.cachedGeometry == g && d.cachedBoundsVersion == g.BoundsVersion && d.cachedWorldVersion == worldVersion {
		return
	}
	d.worldSphere = localSphere.ApplyMat4(world)
	d.worldBox = localBox.ApplyMat4(world)
	d.cachedGeometry = g
	d.cachedBoundsVersion = g.BoundsVersion
	d.cachedWorldVersion = worldVersion
	d.boundsValid = true
	d.boundsComputations++
}

/**
 * @brief The world space bounding sphere, recomputed only when the geometry
 * bounds or the owning node's world matrix changed.
 */
func (d *Drawable) WorldBoundingSphere(world math.Mat4, worldVersion uint64) math.Sphere {
	d.refreshBounds(world, worldVersion)
	return d.worldSphere
}

func (d *Drawable) WorldBoundingBox(world math.Mat4, worldVersion uint64) math.Extents3D {
	d.refreshBounds(world, worldVersion)
	return d.worldBox
}

/** @brief How many times the world bounds were recomputed. */
func (d *Drawable) BoundsComputations() uint64 {
	return d.boundsComputations
}

/**
 * @brief The world space point the drawable is depth sorted by.
 */
func (d *Drawable) DepthPoint(world math.Mat4, worldVersion uint64) math.Vec3 {
	if d.DepthReference != nil {
		return d.DepthReference.Transform(world)
	}
	s := d.WorldBoundingSphere(world, worldVersion)
	if s.IsEmpty() {
		return world.Position()
	}
	return s.Center
}
