package renderer

import (
	"context"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief The boundary between the frame pipeline and a graphics API. Calls are
 * fire and forget: they return once the command is recorded. ReadPixels is the
 * only call that may wait on the GPU.
 */
type RendererBackend interface {
	Initialize(config *metadata.RendererBackendConfig) error
	Shutdown() error
	Resized(width, height uint32) error
	BeginFrame(deltaTime float64) error
	EndFrame(deltaTime float64) error
	Capabilities() metadata.Capabilities
	/** @brief Reports whether the GPU context is currently gone. */
	IsContextLost() bool

	SetViewport(rect metadata.Rect)
	Clear(flags metadata.ClearFlag, colour [4]float32)

	ProgramCreate(source *metadata.ProgramSource) (metadata.ProgramID, error)
	ProgramDestroy(program metadata.ProgramID)
	ProgramUse(program metadata.ProgramID)
	/** @brief The active attributes of a linked program. */
	ProgramAttributes(program metadata.ProgramID) []metadata.ShaderAttribute
	/** @brief The active uniforms of a linked program. */
	ProgramUniforms(program metadata.ProgramID) []metadata.ShaderUniform

	/** @brief Creates a buffer from []float32 (vertex) or []uint32 (index) data. */
	BufferCreate(bufferType metadata.RenderBufferType, data interface{}) (metadata.BufferID, error)
	BufferUpdate(buffer metadata.BufferID, data interface{}) error
	BufferDestroy(buffer metadata.BufferID)

	VertexArrayCreate() metadata.VertexArrayID
	/** @brief Binds a vertex array, zero binds the default attribute state. */
	VertexArrayBind(vao metadata.VertexArrayID)
	VertexArrayDestroy(vao metadata.VertexArrayID)
	VertexAttribPointer(location uint32, buffer metadata.BufferID, size uint8, normalized bool, stride, offset uint32)
	VertexAttribDisable(location uint32)
	IndexBufferBind(buffer metadata.BufferID)

	UniformUpload(program metadata.ProgramID, location int32, value metadata.UniformValue)

	/** @brief Creates the texture on first call and re-uploads the data afterwards. */
	TextureUpload(texture *metadata.Texture, existing metadata.TextureID) (metadata.TextureID, error)
	TextureBind(unit uint32, texture metadata.TextureID)
	TextureDestroy(texture metadata.TextureID)

	RenderTargetCreate(target *metadata.RenderTarget) (metadata.RenderTargetID, error)
	RenderTargetDestroy(target metadata.RenderTargetID)
	/** @brief Binds a render target, zero binds the default framebuffer. */
	RenderTargetBind(target metadata.RenderTargetID)
	/** @brief The texture backing the colour (or depth) attachment of a target. */
	RenderTargetTexture(target metadata.RenderTargetID) metadata.TextureID

	Draw(call metadata.DrawCall)

	/**
	 * @brief Reads back RGBA8 pixels once the GPU has finished the commands
	 * recorded so far. Blocks until the fence signals or ctx is done.
	 */
	ReadPixels(ctx context.Context, target metadata.RenderTargetID, rect metadata.Rect) ([]uint8, error)
}
