package scene

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
)

/** @brief The name of the root node. */
const ROOT_NODE_NAME string = "root"

type slot struct {
	node       *Node
	generation uint32
	alive      bool
}

/**
 * @brief The scene graph: an arena of nodes addressed by handles. Parent and
 * children are stored as handles so reparenting never leaves a dangling
 * reference, and handles to removed nodes are detected by their generation.
 */
type Graph struct {
	slots []slot
	free  []uint32
	root  NodeHandle
	count int
}

func NewGraph() *Graph {
	g := &Graph{}
	g.root = g.allocate(ROOT_NODE_NAME)
	return g
}

func (g *Graph) Root() NodeHandle {
	return g.root
}

/** @brief The number of live nodes, the root included. */
func (g *Graph) NodeCount() int {
	return g.count
}

func (g *Graph) allocate(name string) NodeHandle {
	var index uint32
	if n := len(g.free); n > 0 {
		index = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		index = uint32(len(g.slots))
		g.slots = append(g.slots, slot{})
	}
	s := &g.slots[index]
	s.generation++
	s.alive = true
	h := NodeHandle{index: index, generation: s.generation}

	node := s.node
	if node == nil {
		node = &Node{}
		s.node = node
	}
	children := node.children[:0]
	*node = Node{
		Name:       name,
		Transform:  math.TransformCreate(),
		Visible:    true,
		Layers:     DEFAULT_LAYER,
		handle:     h,
		world:      math.NewMat4Identity(),
		worldDirty: true,
		parent:     InvalidNode,
		children:   children,
	}
	g.count++
	return h
}

/**
 * @brief Returns the node behind a handle, or ErrStaleHandle when the node was
 * removed (or the handle never existed).
 */
func (g *Graph) Node(h NodeHandle) (*Node, error) {
	if !h.IsValid() || int(h.index) >= len(g.slots) {
		return nil, fmt.Errorf("%s: %w", h, core.ErrInvalidHandle)
	}
	s := &g.slots[h.index]
	if !s.alive || s.generation != h.generation {
		return nil, fmt.Errorf("%s: %w", h, core.ErrStaleHandle)
	}
	return s.node, nil
}

/** @brief Whether the handle still points at a live node. */
func (g *Graph) Contains(h NodeHandle) bool {
	_, err := g.Node(h)
	return err == nil
}

/**
 * @brief Creates a node under parent. An invalid parent handle means the root.
 */
func (g *Graph) CreateNode(name string, parent NodeHandle) (NodeHandle, error) {
	if !parent.IsValid() {
		parent = g.root
	}
	p, err := g.Node(parent)
	if err != nil {
		return InvalidNode, err
	}
	h := g.allocate(name)
	n := g.slots[h.index].node
	n.parent = parent
	p.children = append(p.children, h)
	return h, nil
}

/** @brief Creates a node carrying a drawable. */
func (g *Graph) CreateDrawable(name string, parent NodeHandle, drawable *Drawable) (NodeHandle, error) {
	h, err := g.CreateNode(name, parent)
	if err != nil {
		return InvalidNode, err
	}
	g.slots[h.index].node.Drawable = drawable
	return h, nil
}

/**
 * @brief Recomputes the local matrix when dirty and the world matrix when the
 * local matrix or an ancestor changed (or force is set). Once a node is
 * recomputed all its descendants are forced.
 */
func (g *Graph) UpdateWorldMatrix(h NodeHandle, force bool) error {
	n, err := g.Node(h)
	if err != nil {
		return err
	}
	g.updateWorld(n, force)
	return nil
}

/** @brief Revalidates the whole graph from the root. */
func (g *Graph) UpdateWorldMatrices() {
	g.updateWorld(g.slots[g.root.index].node, false)
}

func (g *Graph) updateWorld(n *Node, force bool) {
	if g.recompute(n, force) {
		force = true
	}
	for _, ch := range n.children {
		g.updateWorld(g.slots[ch.index].node, force)
	}
}

// recompute brings n up to date assuming its parent is, returning true when
// the world matrix changed.
func (g *Graph) recompute(n *Node, force bool) bool {
	if _, rebuilt := n.Transform.GetLocal(); rebuilt {
		n.worldDirty = true
	}
	if !n.worldDirty && !force {
		return false
	}
	if n.parent.IsValid() {
		parent := g.slots[n.parent.index].node
		n.world = parent.world.Mul(n.Transform.Local)
	} else {
		n.world = n.Transform.Local
	}
	n.worldDirty = false
	n.worldVersion++
	if n.Camera != nil {
		n.Camera.SetWorldMatrix(n.world)
	}
	return true
}

/**
 * @brief Returns the current world matrix of a node, revalidating the chain
 * from the root down to it first. Descendants off the chain are flagged so the
 * next full update refreshes them.
 */
func (g *Graph) WorldMatrix(h NodeHandle) (math.Mat4, error) {
	n, err := g.Node(h)
	if err != nil {
		return math.Mat4{}, err
	}

	var chainBuf [32]*Node
	chain := chainBuf[:0]
	for cur := n; ; {
		chain = append(chain, cur)
		if !cur.parent.IsValid() {
			break
		}
		cur = g.slots[cur.parent.index].node
	}

	force := false
	for i := len(chain) - 1; i >= 0; i-- {
		cur := chain[i]
		if g.recompute(cur, force) {
			force = true
			for _, ch := range cur.children {
				g.slots[ch.index].node.worldDirty = true
			}
		}
	}
	return n.world, nil
}

/** @brief The world position of a node after revalidation. */
func (g *Graph) WorldPosition(h NodeHandle) (math.Vec3, error) {
	m, err := g.WorldMatrix(h)
	if err != nil {
		return math.Vec3{}, err
	}
	return m.Position(), nil
}

// isAncestor reports whether a is b or one of b's ancestors.
func (g *Graph) isAncestor(a, b NodeHandle) bool {
	for cur := b; cur.IsValid(); cur = g.slots[cur.index].node.parent {
		if cur == a {
			return true
		}
	}
	return false
}

func (g *Graph) unlink(n *Node) {
	if !n.parent.IsValid() {
		return
	}
	p := g.slots[n.parent.index].node
	for i, ch := range p.children {
		if ch == n.handle {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = InvalidNode
}

func (g *Graph) checkReparent(child, parent NodeHandle) (*Node, *Node, error) {
	c, err := g.Node(child)
	if err != nil {
		return nil, nil, err
	}
	if !parent.IsValid() {
		parent = g.root
	}
	p, err := g.Node(parent)
	if err != nil {
		return nil, nil, err
	}
	if child == g.root {
		return nil, nil, fmt.Errorf("the root node cannot be reparented: %w", core.ErrCycle)
	}
	if g.isAncestor(child, parent) {
		return nil, nil, fmt.Errorf("%s is an ancestor of %s: %w", child, parent, core.ErrCycle)
	}
	return c, p, nil
}

/**
 * @brief Moves child under parent keeping its world space pose. The new local
 * pose is inverse(parent.world) * child.world decomposed into position,
 * rotation and scale, which is exact only without shear.
 */
func (g *Graph) Attach(child, parent NodeHandle) error {
	c, p, err := g.checkReparent(child, parent)
	if err != nil {
		return err
	}
	childWorld, _ := g.WorldMatrix(child)
	parentWorld, _ := g.WorldMatrix(p.handle)

	g.unlink(c)
	c.parent = p.handle
	p.children = append(p.children, c.handle)

	c.Transform.SetFromMatrix(parentWorld.Inverse().Mul(childWorld))
	c.worldDirty = true
	g.updateWorld(c, true)
	return nil
}

/**
 * @brief Moves child under parent keeping its local pose, so its world pose
 * follows the new parent.
 */
func (g *Graph) Add(child, parent NodeHandle) error {
	c, p, err := g.checkReparent(child, parent)
	if err != nil {
		return err
	}
	g.unlink(c)
	c.parent = p.handle
	p.children = append(p.children, c.handle)
	c.worldDirty = true
	return nil
}

/** @brief Moves a node directly under the root keeping its world pose. */
func (g *Graph) Detach(h NodeHandle) error {
	return g.Attach(h, g.root)
}

/**
 * @brief Destroys a node and its whole subtree. Handles to any of them become
 * stale. Removed drawables and lights are announced with EVENT_CODE_DRAWABLE_REMOVED
 * and EVENT_CODE_LIGHT_REMOVED.
 */
func (g *Graph) Remove(h NodeHandle) error {
	n, err := g.Node(h)
	if err != nil {
		return err
	}
	if h == g.root {
		return fmt.Errorf("the root node cannot be removed: %w", core.ErrInvalidHandle)
	}
	g.unlink(n)
	g.release(n)
	return nil
}

func (g *Graph) release(n *Node) {
	for _, ch := range n.children {
		g.release(g.slots[ch.index].node)
	}
	if n.Drawable != nil {
		core.EventFire(core.EVENT_CODE_DRAWABLE_REMOVED, g, core.EventContext{Data: n.Drawable.ID})
	}
	if n.Light != nil {
		core.EventFire(core.EVENT_CODE_LIGHT_REMOVED, g, core.EventContext{Data: n.Light})
	}
	if n.Camera != nil {
		n.Camera.Detach()
	}
	s := &g.slots[n.handle.index]
	s.alive = false
	n.children = n.children[:0]
	n.Drawable = nil
	n.Light = nil
	n.Camera = nil
	n.UserData = nil
	g.free = append(g.free, n.handle.index)
	g.count--
}

/**
 * @brief Visits the subtree under h in pre-order. Returning false from fn skips
 * the children of the visited node.
 */
func (g *Graph) Traverse(h NodeHandle, fn func(n *Node) bool) error {
	n, err := g.Node(h)
	if err != nil {
		return err
	}
	g.traverse(n, fn)
	return nil
}

func (g *Graph) traverse(n *Node, fn func(n *Node) bool) {
	if !fn(n) {
		return
	}
	for _, ch := range n.children {
		g.traverse(g.slots[ch.index].node, fn)
	}
}

/** @brief The first node with the given name in pre-order. */
func (g *Graph) FindByName(name string) (NodeHandle, bool) {
	found := InvalidNode
	g.traverse(g.slots[g.root.index].node, func(n *Node) bool {
		if found.IsValid() {
			return false
		}
		if n.Name == name {
			found = n.handle
			return false
		}
		return true
	})
	return found, found.IsValid()
}

/**
 * @brief Rotates a node so its -Z axis points at a world space target.
 */
func (g *Graph) LookAt(h NodeHandle, target, up math.Vec3) error {
	world, err := g.WorldMatrix(h)
	if err != nil {
		return err
	}
	n := g.slots[h.index].node
	desired := math.NewMat4LookAt(world.Position(), target, up)
	if n.parent.IsValid() {
		parentWorld := g.slots[n.parent.index].node.world
		desired = parentWorld.Inverse().Mul(desired)
	}
	_, rotation, _ := desired.Decompose()
	n.SetRotation(rotation)
	return nil
}

/** @brief The root node itself, always valid. */
func (g *Graph) RootNode() *Node {
	return g.slots[g.root.index].node
}

/** @brief Calls fn for every direct child of n in insertion order. */
func (g *Graph) EachChild(n *Node, fn func(child *Node)) {
	for _, ch := range n.children {
		fn(g.slots[ch.index].node)
	}
}
