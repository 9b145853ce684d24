package metadata

import (
	"fmt"
	"strings"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

/** @brief The shading model of a material. Each one selects a different program template. */
type MaterialType int

const (
	MATERIAL_TYPE_BASIC MaterialType = iota
	MATERIAL_TYPE_LAMBERT
	MATERIAL_TYPE_PHONG
	MATERIAL_TYPE_STANDARD
	MATERIAL_TYPE_PHYSICAL
	MATERIAL_TYPE_TOON
	MATERIAL_TYPE_NORMAL
	MATERIAL_TYPE_DEPTH
	MATERIAL_TYPE_DISTANCE
	MATERIAL_TYPE_SHADOW
	/** @brief A user supplied program identified by the material's ShaderName. */
	MATERIAL_TYPE_SHADER
)

var materialTypeNames = map[MaterialType]string{
	MATERIAL_TYPE_BASIC:    "basic",
	MATERIAL_TYPE_LAMBERT:  "lambert",
	MATERIAL_TYPE_PHONG:    "phong",
	MATERIAL_TYPE_STANDARD: "standard",
	MATERIAL_TYPE_PHYSICAL: "physical",
	MATERIAL_TYPE_TOON:     "toon",
	MATERIAL_TYPE_NORMAL:   "normal",
	MATERIAL_TYPE_DEPTH:    "depth",
	MATERIAL_TYPE_DISTANCE: "distance",
	MATERIAL_TYPE_SHADOW:   "shadow",
	MATERIAL_TYPE_SHADER:   "shader",
}

func (mt MaterialType) String() string {
	if name, ok := materialTypeNames[mt]; ok {
		return name
	}
	return fmt.Sprintf("material_type(%d)", int(mt))
}

func ParseMaterialType(name string) (MaterialType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for mt, n := range materialTypeNames {
		if n == name {
			return mt, nil
		}
	}
	return MATERIAL_TYPE_BASIC, fmt.Errorf("unknown material type '%s': %w", name, core.ErrInvalidConfig)
}

/** @brief Determines face culling mode during rendering. */
type Side int

const (
	/** @brief Only front faces are drawn. */
	SIDE_FRONT Side = iota
	/** @brief Only back faces are drawn. */
	SIDE_BACK
	/** @brief Both faces are drawn. */
	SIDE_DOUBLE
)

/** @brief How fragments are combined with the target. */
type Blending int

const (
	BLENDING_NONE Blending = iota
	BLENDING_NORMAL
	BLENDING_ADDITIVE
	BLENDING_SUBTRACTIVE
	BLENDING_MULTIPLY
	BLENDING_CUSTOM
)

/** @brief Texture slots a material can populate. */
type MapSlot int

const (
	MAP_SLOT_MAP MapSlot = iota
	MAP_SLOT_ALPHA
	MAP_SLOT_NORMAL
	MAP_SLOT_BUMP
	MAP_SLOT_DISPLACEMENT
	MAP_SLOT_EMISSIVE
	MAP_SLOT_METALNESS
	MAP_SLOT_ROUGHNESS
	MAP_SLOT_AO
	MAP_SLOT_LIGHT
	MAP_SLOT_ENV
	MAP_SLOT_SPECULAR
	MAP_SLOT_CLEARCOAT
	MAP_SLOT_CLEARCOAT_NORMAL
	MAP_SLOT_TRANSMISSION
	MAP_SLOT_THICKNESS
	MAP_SLOT_SHEEN
	MAP_SLOT_IRIDESCENCE
	MAP_SLOT_ANISOTROPY
	MAP_SLOT_MATCAP
	MAP_SLOT_GRADIENT
	/** @brief The number of map slots, not a slot itself. */
	MAP_SLOT_COUNT
)

var mapSlotNames = [MAP_SLOT_COUNT]string{
	"map", "alphaMap", "normalMap", "bumpMap", "displacementMap", "emissiveMap",
	"metalnessMap", "roughnessMap", "aoMap", "lightMap", "envMap", "specularMap",
	"clearcoatMap", "clearcoatNormalMap", "transmissionMap", "thicknessMap", "sheenMap",
	"iridescenceMap", "anisotropyMap", "matcap", "gradientMap",
}

/** @brief The sampler uniform name of the slot. */
func (ms MapSlot) String() string {
	if ms < 0 || ms >= MAP_SLOT_COUNT {
		return fmt.Sprintf("map_slot(%d)", int(ms))
	}
	return mapSlotNames[ms]
}

func ParseMapSlot(name string) (MapSlot, error) {
	for i, n := range mapSlotNames {
		if strings.EqualFold(n, name) {
			return MapSlot(i), nil
		}
	}
	return MAP_SLOT_COUNT, fmt.Errorf("unknown map slot '%s': %w", name, core.ErrInvalidConfig)
}

/**
 * @brief Material configuration typically loaded from
 * a file or created in code to load a material from.
 */
type MaterialConfig struct {
	/** @brief The name of the material. */
	Name string `toml:"name"`
	/** @brief The material type. */
	Type string `toml:"type"`
	/** @brief The program name for shader materials. */
	ShaderName   string     `toml:"shader"`
	Color        [3]float32 `toml:"color"`
	Emissive     [3]float32 `toml:"emissive"`
	Opacity      float32    `toml:"opacity"`
	Transparent  bool       `toml:"transparent"`
	Transmission float32    `toml:"transmission"`
	Roughness    float32    `toml:"roughness"`
	Metalness    float32    `toml:"metalness"`
	Shininess    float32    `toml:"shininess"`
	Side         string     `toml:"side"`
	Blending     string     `toml:"blending"`
	AlphaTest    float32    `toml:"alpha_test"`
	FlatShading  bool       `toml:"flat_shading"`
	VertexColors bool       `toml:"vertex_colors"`
	Wireframe    bool       `toml:"wireframe"`
	Fog          *bool      `toml:"fog"`
	ToneMapped   *bool      `toml:"tone_mapped"`
	/** @brief Map slot name to texture name. */
	Maps map[string]string `toml:"maps"`
	/** @brief Map slot name to UV channel. */
	MapChannels map[string]int    `toml:"map_channels"`
	Defines     map[string]string `toml:"defines"`
	CacheKey    string            `toml:"cache_key"`
}

/**
 * @brief A material, which represents various properties
 * of a surface in the world such as texture, colour,
 * bumpiness, shininess and more.
 */
type Material struct {
	/** @brief The material id. */
	ID uint32
	/** @brief The material name. */
	Name string
	Type MaterialType
	/** @brief The program name for MATERIAL_TYPE_SHADER materials. */
	ShaderName string

	Blending    Blending
	Transparent bool
	Opacity     float32
	/** @brief A transmission above zero samples the opaque backdrop, rendered in a pre-pass. */
	Transmission float32
	Side         Side
	/** @brief Side override used when rendering into shadow maps, nil follows Side. */
	ShadowSide *Side

	/** @brief Base colour, not part of the program identity. */
	Color       math.Vec3
	Emissive    math.Vec3
	Roughness   float32
	Metalness   float32
	Shininess   float32
	Clearcoat   float32
	Sheen       float32
	Iridescence float32
	Dispersion  float32
	Anisotropy  float32

	Maps [MAP_SLOT_COUNT]*TextureMap

	FlatShading        bool
	VertexColors       bool
	VertexTangents     bool
	Wireframe          bool
	AlphaTest          float32
	AlphaHash          bool
	AlphaToCoverage    bool
	PremultipliedAlpha bool
	Dithering          bool
	DepthTest          bool
	DepthWrite         bool
	Fog                bool
	ToneMapped         bool
	Visible            bool

	ClippingPlanes   []math.Plane
	ClipIntersection bool
	ClipShadows      bool

	/** @brief Preprocessor style defines added to the program. */
	Defines map[string]string
	/** @brief Extra uniforms uploaded per draw, keyed by uniform name. */
	Uniforms map[string]UniformValue
	/** @brief Caller supplied fragment appended to the program cache key. */
	CustomProgramCacheKey string

	/** @brief Incremented every time a program affecting property changes. */
	Version uint32
	/** @brief Set once the material has been disposed. */
	Disposed bool
}

func NewMaterial(name string, materialType MaterialType) *Material {
	return &Material{
		ID:         core.IdentifierAquireNewID(),
		Name:       name,
		Type:       materialType,
		Blending:   BLENDING_NORMAL,
		Opacity:    1.0,
		Side:       SIDE_FRONT,
		Color:      math.NewVec3One(),
		Roughness:  1.0,
		Shininess:  30.0,
		DepthTest:  true,
		DepthWrite: true,
		Fog:        true,
		ToneMapped: true,
		Visible:    true,
		Defines:    make(map[string]string),
		Uniforms:   make(map[string]UniformValue),
	}
}

/**
 * @brief Builds a material from its configuration. Unknown enum names are errors.
 */
func NewMaterialFromConfig(config *MaterialConfig, textures func(name string) *Texture) (*Material, error) {
	mt := MATERIAL_TYPE_STANDARD
	if config.Type != "" {
		parsed, err := ParseMaterialType(config.Type)
		if err != nil {
			return nil, err
		}
		mt = parsed
	}
	m := NewMaterial(config.Name, mt)
	if err := m.ApplyConfig(config, textures); err != nil {
		return nil, err
	}
	return m, nil
}

/**
 * @brief Overwrites the material properties from a configuration and bumps its version.
 * The identity (ID) of the material is kept so caches keyed by it stay valid.
 */
func (m *Material) ApplyConfig(config *MaterialConfig, textures func(name string) *Texture) error {
	if config.Type != "" {
		mt, err := ParseMaterialType(config.Type)
		if err != nil {
			return err
		}
		m.Type = mt
	}
	side, err := parseSide(config.Side)
	if err != nil {
		return err
	}
	blending, err := parseBlending(config.Blending)
	if err != nil {
		return err
	}

	m.ShaderName = config.ShaderName
	m.Color = math.NewVec3(config.Color[0], config.Color[1], config.Color[2])
	m.Emissive = math.NewVec3(config.Emissive[0], config.Emissive[1], config.Emissive[2])
	m.Opacity = config.Opacity
	if m.Opacity == 0 && !config.Transparent {
		m.Opacity = 1.0
	}
	m.Transparent = config.Transparent
	m.Transmission = config.Transmission
	m.Roughness = config.Roughness
	m.Metalness = config.Metalness
	if config.Shininess > 0 {
		m.Shininess = config.Shininess
	}
	m.Side = side
	m.Blending = blending
	m.AlphaTest = config.AlphaTest
	m.FlatShading = config.FlatShading
	m.VertexColors = config.VertexColors
	m.Wireframe = config.Wireframe
	if config.Fog != nil {
		m.Fog = *config.Fog
	}
	if config.ToneMapped != nil {
		m.ToneMapped = *config.ToneMapped
	}
	m.CustomProgramCacheKey = config.CacheKey

	m.Defines = make(map[string]string, len(config.Defines))
	for k, v := range config.Defines {
		m.Defines[k] = v
	}

	m.Maps = [MAP_SLOT_COUNT]*TextureMap{}
	for slotName, textureName := range config.Maps {
		slot, err := ParseMapSlot(slotName)
		if err != nil {
			return err
		}
		var tex *Texture
		if textures != nil {
			tex = textures(textureName)
		}
		if tex == nil {
			tex = NewTexture(textureName, 0, 0, 4, nil)
		}
		m.SetMap(slot, tex, uint8(config.MapChannels[slotName]))
	}

	m.NeedsUpdate()
	return nil
}

func parseSide(name string) (Side, error) {
	switch strings.ToLower(name) {
	case "", "front":
		return SIDE_FRONT, nil
	case "back":
		return SIDE_BACK, nil
	case "double":
		return SIDE_DOUBLE, nil
	}
	return SIDE_FRONT, fmt.Errorf("unknown side '%s': %w", name, core.ErrInvalidConfig)
}

func parseBlending(name string) (Blending, error) {
	switch strings.ToLower(name) {
	case "", "normal":
		return BLENDING_NORMAL, nil
	case "none":
		return BLENDING_NONE, nil
	case "additive":
		return BLENDING_ADDITIVE, nil
	case "subtractive":
		return BLENDING_SUBTRACTIVE, nil
	case "multiply":
		return BLENDING_MULTIPLY, nil
	case "custom":
		return BLENDING_CUSTOM, nil
	}
	return BLENDING_NORMAL, fmt.Errorf("unknown blending '%s': %w", name, core.ErrInvalidConfig)
}

/**
 * @brief Assigns a texture to a slot sampling the given UV channel. A nil
 * texture clears the slot.
 */
func (m *Material) SetMap(slot MapSlot, texture *Texture, channel uint8) {
	if slot < 0 || slot >= MAP_SLOT_COUNT {
		return
	}
	if texture == nil {
		m.Maps[slot] = nil
	} else {
		m.Maps[slot] = NewTextureMap(texture, channel)
	}
	m.NeedsUpdate()
}

func (m *Material) GetMap(slot MapSlot) *TextureMap {
	if slot < 0 || slot >= MAP_SLOT_COUNT {
		return nil
	}
	return m.Maps[slot]
}

/**
 * @brief Flags a change to a property that affects the compiled program.
 * Colour, opacity and other plain uniform values do not need it.
 */
func (m *Material) NeedsUpdate() {
	m.Version++
}

/** @brief Whether the material can only be drawn in the opaque pass. */
func (m *Material) IsOpaque() bool {
	return !m.Transparent && m.Opacity >= 1.0 && m.Transmission <= 0
}

/** @brief The side rasterized when drawing into a shadow map. */
func (m *Material) EffectiveShadowSide() Side {
	if m.ShadowSide != nil {
		return *m.ShadowSide
	}
	switch m.Side {
	case SIDE_FRONT:
		return SIDE_BACK
	case SIDE_BACK:
		return SIDE_FRONT
	}
	return SIDE_DOUBLE
}

func (m *Material) Dispose() {
	if m.Disposed {
		return
	}
	m.Disposed = true
	core.EventFire(core.EVENT_CODE_MATERIAL_DISPOSED, m, core.EventContext{Data: m})
}
