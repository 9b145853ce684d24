package scene

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief Addresses a node slot in a graph. The generation detects handles
 * that outlived the node they pointed to.
 */
type NodeHandle struct {
	index      uint32
	generation uint32
}

/** @brief The zero handle, never valid. */
var InvalidNode = NodeHandle{}

func (h NodeHandle) IsValid() bool {
	return h.generation != 0
}

/** @brief The arena slot, stable for the lifetime of the node. */
func (h NodeHandle) Index() uint32 {
	return h.index
}

func (h NodeHandle) String() string {
	return fmt.Sprintf("node(%d:%d)", h.index, h.generation)
}

/** @brief The default layer every node is created in. */
const DEFAULT_LAYER uint32 = 0x1

/**
 * @brief A node of the scene graph. Its local pose lives in Transform, the
 * world matrix is owned by the graph and revalidated on demand. A node can
 * carry a drawable, a light and a camera at the same time.
 */
type Node struct {
	Name string
	/** @brief The local pose. Use the setters so the change is noticed. */
	Transform math.Transform
	/** @brief Invisible nodes hide their whole subtree. */
	Visible bool
	/** @brief Bitmask matched against the camera layers. */
	Layers uint32

	Drawable *Drawable
	Light    *metadata.Light
	Camera   *components.Camera
	UserData interface{}

	handle         NodeHandle
	world          math.Mat4
	worldDirty     bool
	worldVersion   uint64
	parent         NodeHandle
	children       []NodeHandle
	renderOrder    int32
	hasRenderOrder bool
}

func (n *Node) Handle() NodeHandle {
	return n.handle
}

func (n *Node) Parent() NodeHandle {
	return n.parent
}

/** @brief A copy of the child handles in insertion order. */
func (n *Node) Children() []NodeHandle {
	out := make([]NodeHandle, len(n.children))
	copy(out, n.children)
	return out
}

func (n *Node) SetPosition(position math.Vec3) {
	n.Transform.SetPosition(position)
}

func (n *Node) Translate(translation math.Vec3) {
	n.Transform.Translate(translation)
}

func (n *Node) SetRotation(rotation math.Quaternion) {
	n.Transform.SetRotation(rotation)
}

func (n *Node) Rotate(rotation math.Quaternion) {
	n.Transform.Rotate(rotation)
}

func (n *Node) SetScale(scale math.Vec3) {
	n.Transform.SetScale(scale)
}

/** @brief True when the local pose changed since the world matrix was computed. */
func (n *Node) IsDirty() bool {
	return n.Transform.IsDirty || n.worldDirty
}

/**
 * @brief Forces an explicit draw priority for this node and the subtree below it
 * (unless a descendant sets its own).
 */
func (n *Node) SetRenderOrder(order int32) {
	n.renderOrder = order
	n.hasRenderOrder = true
}

func (n *Node) ClearRenderOrder() {
	n.renderOrder = 0
	n.hasRenderOrder = false
}

/** @brief The explicit render order and whether one is set. */
func (n *Node) RenderOrder() (int32, bool) {
	return n.renderOrder, n.hasRenderOrder
}

/**
 * @brief The last computed world matrix. It can be stale, Graph.WorldMatrix
 * revalidates first.
 */
func (n *Node) CachedWorld() math.Mat4 {
	return n.world
}

/** @brief Incremented every time the world matrix is recomputed. */
func (n *Node) WorldVersion() uint64 {
	return n.worldVersion
}
