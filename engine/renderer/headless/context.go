package headless

import "github.com/spaghettifunk/prism/engine/renderer/metadata"

type headlessProgram struct {
	source     *metadata.ProgramSource
	attributes []metadata.ShaderAttribute
	uniforms   []metadata.ShaderUniform
	/** @brief Last uploaded value per location, the backend view of uniform state. */
	values map[int32]metadata.UniformValue
}

type headlessBuffer struct {
	bufferType metadata.RenderBufferType
	size       int
}

type headlessAttribBinding struct {
	buffer     metadata.BufferID
	size       uint8
	normalized bool
	stride     uint32
	offset     uint32
}

type headlessVertexArray struct {
	attributes map[uint32]headlessAttribBinding
	index      metadata.BufferID
}

type headlessTexture struct {
	width, height uint32
	version       uint32
}

type headlessTarget struct {
	width, height uint32
	texture       metadata.TextureID
	pixels        []uint8
}

/**
 * @brief All objects living on the simulated GPU. Dropped wholesale when the
 * context is lost.
 */
type HeadlessContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	nextID uint32

	programs     map[metadata.ProgramID]*headlessProgram
	buffers      map[metadata.BufferID]*headlessBuffer
	vertexArrays map[metadata.VertexArrayID]*headlessVertexArray
	textures     map[metadata.TextureID]*headlessTexture
	targets      map[metadata.RenderTargetID]*headlessTarget

	/** @brief Vertex array zero, used when no object is bound. */
	defaultVertexArray *headlessVertexArray
	/** @brief Pixels of the default framebuffer. */
	framebuffer []uint8

	boundProgram     metadata.ProgramID
	boundVertexArray metadata.VertexArrayID
	boundTarget      metadata.RenderTargetID
	boundTextures    map[uint32]metadata.TextureID
	viewport         metadata.Rect
}

func newHeadlessContext(width, height uint32) *HeadlessContext {
	c := &HeadlessContext{
		FramebufferWidth:  width,
		FramebufferHeight: height,
	}
	c.reset()
	return c
}

func (c *HeadlessContext) reset() {
	c.programs = make(map[metadata.ProgramID]*headlessProgram)
	c.buffers = make(map[metadata.BufferID]*headlessBuffer)
	c.vertexArrays = make(map[metadata.VertexArrayID]*headlessVertexArray)
	c.textures = make(map[metadata.TextureID]*headlessTexture)
	c.targets = make(map[metadata.RenderTargetID]*headlessTarget)
	c.defaultVertexArray = &headlessVertexArray{attributes: make(map[uint32]headlessAttribBinding)}
	c.framebuffer = make([]uint8, int(c.FramebufferWidth)*int(c.FramebufferHeight)*4)
	c.boundProgram = 0
	c.boundVertexArray = 0
	c.boundTarget = 0
	c.boundTextures = make(map[uint32]metadata.TextureID)
}

// Object names are never reused, even across context loss.
func (c *HeadlessContext) newName() uint32 {
	c.nextID++
	return c.nextID
}

func (c *HeadlessContext) currentVertexArray() *headlessVertexArray {
	if vao, ok := c.vertexArrays[c.boundVertexArray]; ok {
		return vao
	}
	return c.defaultVertexArray
}

func (c *HeadlessContext) currentPixels() ([]uint8, uint32, uint32) {
	if t, ok := c.targets[c.boundTarget]; ok {
		return t.pixels, t.width, t.height
	}
	return c.framebuffer, c.FramebufferWidth, c.FramebufferHeight
}
