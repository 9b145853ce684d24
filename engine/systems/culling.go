package systems

import (
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/scene"
)

/**
 * @brief Reports whether a world space bounding sphere is at least partially
 * inside the frustum. An empty sphere cannot be proven outside and is visible.
 */
func IsVisible(volume math.Sphere, frustum *math.Frustum) bool {
	if volume.IsEmpty() {
		return true
	}
	return frustum.IntersectsSphere(volume)
}

/** @brief The box counterpart of IsVisible. */
func IsBoxVisible(volume math.Extents3D, frustum *math.Frustum) bool {
	if volume.IsEmpty() {
		return true
	}
	return frustum.IntersectsBox(volume)
}

/**
 * @brief Tests drawables against the frustum of the active camera and counts
 * the outcome. The sphere test runs first, the tighter box test only confirms
 * spheres that straddle a plane.
 */
type CullingSystem struct {
	frustum math.Frustum
	Tested  uint32
	Culled  uint32
}

func NewCullingSystem() *CullingSystem {
	return &CullingSystem{}
}

/** @brief Derives the frustum planes from the camera and resets the counters. */
func (cs *CullingSystem) SetCamera(camera *components.Camera) {
	cs.SetFrustum(camera.Frustum())
}

func (cs *CullingSystem) SetFrustum(frustum math.Frustum) {
	cs.frustum = frustum
	cs.Tested = 0
	cs.Culled = 0
}

func (cs *CullingSystem) Frustum() *math.Frustum {
	return &cs.frustum
}

/**
 * @brief Whether the drawable owned by node n can be seen. Drawables that opted
 * out of culling are always visible.
 */
func (cs *CullingSystem) DrawableVisible(n *scene.Node) bool {
	d := n.Drawable
	if d == nil {
		return false
	}
	if !d.FrustumCulled {
		return true
	}
	cs.Tested++
	world := n.CachedWorld()
	version := n.WorldVersion()
	if !IsVisible(d.WorldBoundingSphere(world, version), &cs.frustum) ||
		!IsBoxVisible(d.WorldBoundingBox(world, version), &cs.frustum) {
		cs.Culled++
		return false
	}
	return true
}
