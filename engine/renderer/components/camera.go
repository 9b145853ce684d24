package components

import (
	"github.com/spaghettifunk/prism/engine/math"
)

type ProjectionType int

const (
	PROJECTION_PERSPECTIVE ProjectionType = iota
	PROJECTION_ORTHOGRAPHIC
)

/**
 * @brief Represents a camera that can be used for
 * a variety of things, especially rendering. A camera is either
 * free standing (posed through its own transform) or attached to a
 * scene node, in which case the scene graph feeds it the node's world
 * matrix every time transforms are revalidated.
 */
type Camera struct {
	Name       string
	Projection ProjectionType

	/** @brief Vertical field of view in radians, perspective only. */
	FOV    float32
	Aspect float32
	Near   float32
	Far    float32
	/** @brief Orthographic volume, in view space units. */
	Left, Right, Top, Bottom float32
	Zoom                     float32

	/** @brief Bitmask of the scene layers this camera renders. */
	Layers uint32

	/** @brief The pose of a free standing camera. */
	Transform math.Transform

	worldMatrix      math.Mat4
	viewMatrix       math.Mat4
	projectionMatrix math.Mat4
	projectionDirty  bool
	/** @brief Set while a scene node owns the camera pose. */
	attached bool
	/** @brief Incremented whenever the view or projection changes. */
	version uint64
}

/** @brief The name of the default camera. */
const DEFAULT_CAMERA_NAME string = "default"

/** @brief Renders every layer. */
const ALL_LAYERS uint32 = 0xFFFFFFFF

func newCamera(projection ProjectionType) *Camera {
	c := &Camera{
		Name:             DEFAULT_CAMERA_NAME,
		Projection:       projection,
		Zoom:             1,
		Layers:           ALL_LAYERS,
		Transform:        math.TransformCreate(),
		worldMatrix:      math.NewMat4Identity(),
		viewMatrix:       math.NewMat4Identity(),
		projectionMatrix: math.NewMat4Identity(),
		projectionDirty:  true,
	}
	return c
}

/**
 * @brief Creates a perspective camera.
 * @param fovRadians The vertical field of view in radians.
 */
func NewPerspectiveCamera(fovRadians, aspect, near, far float32) *Camera {
	c := newCamera(PROJECTION_PERSPECTIVE)
	c.FOV = fovRadians
	c.Aspect = aspect
	c.Near = near
	c.Far = far
	return c
}

func NewOrthographicCamera(left, right, top, bottom, near, far float32) *Camera {
	c := newCamera(PROJECTION_ORTHOGRAPHIC)
	c.Left, c.Right, c.Top, c.Bottom = left, right, top, bottom
	c.Near = near
	c.Far = far
	return c
}

/** @brief Flags the projection parameters as changed. */
func (c *Camera) UpdateProjectionMatrix() {
	c.projectionDirty = true
}

func (c *Camera) SetAspect(aspect float32) {
	if c.Aspect != aspect {
		c.Aspect = aspect
		c.projectionDirty = true
	}
}

func (c *Camera) SetOrthographic(left, right, top, bottom, near, far float32) {
	c.Left, c.Right, c.Top, c.Bottom = left, right, top, bottom
	c.Near, c.Far = near, far
	c.projectionDirty = true
}

func (c *Camera) GetProjection() math.Mat4 {
	if c.projectionDirty {
		zoom := c.Zoom
		if zoom <= 0 {
			zoom = 1
		}
		switch c.Projection {
		case PROJECTION_ORTHOGRAPHIC:
			cx := (c.Left + c.Right) * 0.5
			cy := (c.Top + c.Bottom) * 0.5
			hw := (c.Right - c.Left) * 0.5 / zoom
			hh := (c.Top - c.Bottom) * 0.5 / zoom
			c.projectionMatrix = math.NewMat4Orthographic(cx-hw, cx+hw, cy-hh, cy+hh, c.Near, c.Far)
		default:
			aspect := c.Aspect
			if aspect <= 0 {
				aspect = 1
			}
			c.projectionMatrix = math.NewMat4Perspective(c.FOV/zoom, aspect, c.Near, c.Far)
		}
		c.projectionDirty = false
		c.version++
	}
	return c.projectionMatrix
}

/**
 * @brief Sets the camera pose from a scene node. Called by the scene graph for
 * node-attached cameras.
 */
func (c *Camera) SetWorldMatrix(world math.Mat4) {
	c.attached = true
	if c.worldMatrix.Equals(world) {
		return
	}
	c.worldMatrix = world
	c.viewMatrix = world.Inverse()
	c.version++
}

/** @brief Returns the camera to free standing mode. */
func (c *Camera) Detach() {
	c.attached = false
	c.Transform.IsDirty = true
}

func (c *Camera) refresh() {
	if c.attached {
		return
	}
	if local, rebuilt := c.Transform.GetLocal(); rebuilt {
		c.worldMatrix = local
		c.viewMatrix = local.Inverse()
		c.version++
	}
}

func (c *Camera) GetWorld() math.Mat4 {
	c.refresh()
	return c.worldMatrix
}

func (c *Camera) GetView() math.Mat4 {
	c.refresh()
	return c.viewMatrix
}

/** @brief projection * view. */
func (c *Camera) GetProjectionView() math.Mat4 {
	proj := c.GetProjection()
	return proj.Mul(c.GetView())
}

func (c *Camera) Frustum() math.Frustum {
	return math.NewFrustumFromMatrix(c.GetProjectionView())
}

/** @brief Changes every time the camera matrices change. */
func (c *Camera) Version() uint64 {
	c.refresh()
	c.GetProjection()
	return c.version
}

func (c *Camera) GetPosition() math.Vec3 {
	return c.GetWorld().Position()
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Transform.SetPosition(position)
}

/**
 * @brief Points a free standing camera at target.
 */
func (c *Camera) LookAt(target, up math.Vec3) {
	m := math.NewMat4LookAt(c.Transform.Position, target, up)
	_, rotation, _ := m.Decompose()
	c.Transform.SetRotation(rotation)
}

func (c *Camera) Forward() math.Vec3 {
	return c.GetWorld().Forward()
}

/** @brief The camera's +X axis in world space. */
func (c *Camera) RightVector() math.Vec3 {
	return c.GetWorld().Right()
}

func (c *Camera) MoveForward(amount float32) {
	c.Transform.Translate(c.Forward().MulScalar(amount))
}

func (c *Camera) MoveRight(amount float32) {
	c.Transform.Translate(c.RightVector().MulScalar(amount))
}

func (c *Camera) MoveUp(amount float32) {
	c.Transform.Translate(math.NewVec3Up().MulScalar(amount))
}

func (c *Camera) Yaw(amount float32) {
	c.Transform.SetRotation(math.NewQuatFromAxisAngle(math.NewVec3Up(), amount, false).Mul(c.Transform.Rotation))
}

func (c *Camera) Pitch(amount float32) {
	c.Transform.Rotate(math.NewQuatFromAxisAngle(math.NewVec3(1, 0, 0), amount, false))
}

/** @brief Depth of a world space point in front of the camera, positive values are visible. */
func (c *Camera) ViewDepth(point math.Vec3) float32 {
	return -point.Transform(c.GetView()).Z
}
