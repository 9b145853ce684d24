package metadata

import "github.com/spaghettifunk/prism/engine/core"

const (
	/** @brief The default texture name. */
	DEFAULT_TEXTURE_NAME string = "default"
)

type TextureFlag int

const (
	/** @brief Indicates if the texture has transparency. */
	TextureFlagHasTransparency TextureFlag = 0x1
	/** @brief Indicates if the texture can be written (rendered) to. */
	TextureFlagIsWriteable TextureFlag = 0x2
	/** @brief Indicates the texture stores depth values. */
	TextureFlagIsDepth TextureFlag = 0x4
)

/** @brief Holds bit flags for textures.. */
type TextureFlagBits uint8

/**
 * @brief Represents various types of textures.
 */
type TextureType int

const (
	/** @brief A standard two-dimensional texture. */
	TextureType2d TextureType = iota
	/** @brief A cube texture, used for cubemaps. */
	TextureTypeCube
)

/** @brief The colour space texel data is encoded in. */
type ColorSpace int

const (
	COLOR_SPACE_LINEAR ColorSpace = iota
	COLOR_SPACE_SRGB
)

/**
 * @brief Represents a texture.
 */
type Texture struct {
	/** @brief The unique texture identifier. */
	ID uint32
	/** @brief The texture type. */
	TextureType TextureType
	/** @brief The texture Width. */
	Width uint32
	/** @brief The texture Height. */
	Height uint32
	/** @brief The number of channels in the texture. */
	ChannelCount uint8
	/** @brief Holds various Flags for this texture. */
	Flags TextureFlagBits
	/** @brief Incremented every time the data is changed, drives the GPU re-upload. */
	Version uint32
	/** @brief The texture Name. */
	Name string
	/** @brief The raw texture data (pixels). Nil for render target attachments. */
	Data       []uint8
	ColorSpace ColorSpace
	Disposed   bool
}

func NewTexture(name string, width, height uint32, channels uint8, data []uint8) *Texture {
	return &Texture{
		ID:           core.IdentifierAquireNewID(),
		Name:         name,
		Width:        width,
		Height:       height,
		ChannelCount: channels,
		Data:         data,
		Version:      1,
	}
}

func (t *Texture) NeedsUpdate() {
	t.Version++
}

func (t *Texture) HasFlag(flag TextureFlag) bool {
	return t.Flags&TextureFlagBits(flag) != 0
}

func (t *Texture) Dispose() {
	if t.Disposed {
		return
	}
	t.Disposed = true
	core.EventFire(core.EVENT_CODE_TEXTURE_DISPOSED, t, core.EventContext{Data: t})
}

/** @brief Represents supported texture filtering modes. */
type TextureFilter int

const (
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest TextureFilter = 0x0
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear TextureFilter = 0x1
)

type TextureRepeat int

const (
	TextureRepeatRepeat         TextureRepeat = 0x1
	TextureRepeatMirroredRepeat TextureRepeat = 0x2
	TextureRepeatClampToEdge    TextureRepeat = 0x3
	TextureRepeatClampToBorder  TextureRepeat = 0x4
)

/**
 * @brief A structure which maps a texture, use and
 * other properties.
 */
type TextureMap struct {
	/** @brief A pointer to a Texture. */
	Texture *Texture
	/** @brief The UV channel the map samples with. */
	Channel uint8
	/** @brief Texture filtering mode for minification. */
	FilterMinify TextureFilter
	/** @brief Texture filtering mode for magnification. */
	FilterMagnify TextureFilter
	/** @brief The repeat mode on the U axis (or X, or S) */
	RepeatU TextureRepeat
	/** @brief The repeat mode on the V axis (or Y, or T) */
	RepeatV TextureRepeat
}

func NewTextureMap(texture *Texture, channel uint8) *TextureMap {
	return &TextureMap{
		Texture:       texture,
		Channel:       channel,
		FilterMinify:  TextureFilterModeLinear,
		FilterMagnify: TextureFilterModeLinear,
		RepeatU:       TextureRepeatRepeat,
		RepeatV:       TextureRepeatRepeat,
	}
}

/**
 * @brief Creates the fallback texture bound to samplers whose texture has no data,
 * a 16x16 blue/white checkerboard generated in code to avoid asset dependencies.
 */
func NewDefaultTexture() *Texture {
	const texDimension = uint32(16)
	const channels = uint32(4)
	pixels := make([]uint8, texDimension*texDimension*channels)
	for i := range pixels {
		pixels[i] = 255
	}

	for row := uint32(0); row < texDimension; row++ {
		for col := uint32(0); col < texDimension; col++ {
			index := (row * texDimension) + col
			indexBpp := index * channels
			if (row%2 != 0) == (col%2 != 0) {
				pixels[indexBpp+0] = 0
				pixels[indexBpp+1] = 0
			}
		}
	}

	t := NewTexture(DEFAULT_TEXTURE_NAME, texDimension, texDimension, uint8(channels), pixels)
	t.TextureType = TextureType2d
	return t
}
