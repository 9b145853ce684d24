package metadata

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/core"
)

type RendererBackendConfig struct {
	/** @brief The name of the application */
	ApplicationName string
	Width           uint32
	Height          uint32
}

type RendererDebugViewMode uint32

const (
	RENDERER_VIEW_MODE_DEFAULT  RendererDebugViewMode = 0
	RENDERER_VIEW_MODE_LIGHTING RendererDebugViewMode = 1
	RENDERER_VIEW_MODE_NORMALS  RendererDebugViewMode = 2
)

/** @brief Backend side object names. Zero never names a live object. */
type (
	ProgramID      uint32
	BufferID       uint32
	VertexArrayID  uint32
	TextureID      uint32
	RenderTargetID uint32
)

/** @brief What a buffer is bound as. */
type RenderBufferType int

const (
	/** @brief Buffer is use is unknown. Default, but usually invalid. */
	RENDERBUFFER_TYPE_UNKNOWN RenderBufferType = iota
	/** @brief Buffer is used for vertex data. */
	RENDERBUFFER_TYPE_VERTEX
	/** @brief Buffer is used for index data. */
	RENDERBUFFER_TYPE_INDEX
)

/** @brief Primitive topology of a draw call. */
type DrawMode int

const (
	DRAW_MODE_TRIANGLES DrawMode = iota
	DRAW_MODE_LINES
	DRAW_MODE_POINTS
)

/**
 * @brief The types of clearing to be done on a target.
 * Can be combined together for multiple clearing functions.
 */
type ClearFlag uint32

const (
	/** @brief No clearing should be done. */
	CLEAR_NONE_FLAG ClearFlag = 0x0
	/** @brief Clear the colour buffer. */
	CLEAR_COLOUR_BUFFER_FLAG ClearFlag = 0x1
	/** @brief Clear the depth buffer. */
	CLEAR_DEPTH_BUFFER_FLAG ClearFlag = 0x2
	/** @brief Clear the stencil buffer. */
	CLEAR_STENCIL_BUFFER_FLAG ClearFlag = 0x4
	CLEAR_ALL_FLAG            ClearFlag = CLEAR_COLOUR_BUFFER_FLAG | CLEAR_DEPTH_BUFFER_FLAG | CLEAR_STENCIL_BUFFER_FLAG
)

/** @brief A pixel rectangle, origin bottom left. */
type Rect struct {
	X, Y          int32
	Width, Height int32
}

/**
 * @brief Describes a draw call: the element range of the bound buffers to rasterize.
 */
type DrawCall struct {
	Mode    DrawMode
	Start   uint32
	Count   uint32
	Indexed bool
	/** @brief The pipeline state of the material being drawn. */
	Side       Side
	Blending   Blending
	DepthTest  bool
	DepthWrite bool
}

type RenderTargetAttachmentType uint32

const (
	RENDER_TARGET_ATTACHMENT_TYPE_COLOUR  RenderTargetAttachmentType = 0x1
	RENDER_TARGET_ATTACHMENT_TYPE_DEPTH   RenderTargetAttachmentType = 0x2
	RENDER_TARGET_ATTACHMENT_TYPE_STENCIL RenderTargetAttachmentType = 0x4
)

/** @brief Represents a render target, which is used for rendering to a texture. */
type RenderTarget struct {
	ID   uint32
	Name string
	/** @brief The attachments the target carries. */
	Attachments RenderTargetAttachmentType
	Width       uint32
	Height      uint32
	/** @brief The colour attachment, sampled by later passes. */
	Texture *Texture
	/** @brief The backend object, zero while not created. */
	InternalID RenderTargetID
	/** @brief Set when Width/Height changed and the backend object must be recreated. */
	NeedsResize bool
	Disposed    bool
}

/**
 * @brief Creates the frontend description of a render target. The backend
 * object is created lazily the first time the target is bound.
 */
func NewRenderTarget(purpose string, width, height uint32, attachments RenderTargetAttachmentType) *RenderTarget {
	name := fmt.Sprintf("%s_%s", purpose, uuid.New().String())
	rt := &RenderTarget{
		ID:          core.IdentifierAquireNewID(),
		Name:        name,
		Attachments: attachments,
		Width:       width,
		Height:      height,
	}
	if attachments&RENDER_TARGET_ATTACHMENT_TYPE_COLOUR != 0 {
		rt.Texture = NewTexture(name+"_colour", width, height, 4, nil)
		rt.Texture.Flags |= TextureFlagBits(TextureFlagIsWriteable)
	} else if attachments&RENDER_TARGET_ATTACHMENT_TYPE_DEPTH != 0 {
		rt.Texture = NewTexture(name+"_depth", width, height, 1, nil)
		rt.Texture.Flags |= TextureFlagBits(TextureFlagIsWriteable | TextureFlagIsDepth)
	}
	return rt
}

/** @brief Records a new size. GPU storage is reallocated on next use. */
func (rt *RenderTarget) SetSize(width, height uint32) {
	if rt.Width == width && rt.Height == height {
		return
	}
	rt.Width = width
	rt.Height = height
	rt.NeedsResize = true
	if rt.Texture != nil {
		rt.Texture.Width = width
		rt.Texture.Height = height
		rt.Texture.NeedsUpdate()
	}
}

/** @brief Limits and optional features of a backend. */
type Capabilities struct {
	MaxTextureUnits     uint32
	MaxVertexAttributes uint32
	/** @brief Whether vertex array objects are available. */
	VertexArrays   bool
	MaxTextureSize uint32
}
