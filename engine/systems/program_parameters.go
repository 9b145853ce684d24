package systems

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

/** @brief Shadow map filtering technique. */
type ShadowMapType uint8

const (
	SHADOW_MAP_TYPE_BASIC ShadowMapType = iota
	SHADOW_MAP_TYPE_PCF
	SHADOW_MAP_TYPE_PCF_SOFT
	/** @brief Variance shadow maps, blurred after rendering. */
	SHADOW_MAP_TYPE_VSM
)

var shadowMapTypeNames = []string{"basic", "pcf", "pcf_soft", "vsm"}

func (smt ShadowMapType) String() string {
	if int(smt) < len(shadowMapTypeNames) {
		return shadowMapTypeNames[smt]
	}
	return fmt.Sprintf("shadow_map_type(%d)", int(smt))
}

func ParseShadowMapType(name string) (ShadowMapType, error) {
	for i, n := range shadowMapTypeNames {
		if n == name {
			return ShadowMapType(i), nil
		}
	}
	return SHADOW_MAP_TYPE_PCF, fmt.Errorf("unknown shadow map type '%s': %w", name, core.ErrInvalidConfig)
}

/** @brief The curve mapping HDR output to the display range. */
type ToneMapping uint8

const (
	TONE_MAPPING_NONE ToneMapping = iota
	TONE_MAPPING_LINEAR
	TONE_MAPPING_REINHARD
	TONE_MAPPING_CINEON
	TONE_MAPPING_ACES_FILMIC
	TONE_MAPPING_AGX
	TONE_MAPPING_NEUTRAL
	TONE_MAPPING_CUSTOM
)

var toneMappingNames = []string{"none", "linear", "reinhard", "cineon", "aces_filmic", "agx", "neutral", "custom"}

func (tm ToneMapping) String() string {
	if int(tm) < len(toneMappingNames) {
		return toneMappingNames[tm]
	}
	return fmt.Sprintf("tone_mapping(%d)", int(tm))
}

func ParseToneMapping(name string) (ToneMapping, error) {
	for i, n := range toneMappingNames {
		if n == name {
			return ToneMapping(i), nil
		}
	}
	return TONE_MAPPING_NONE, fmt.Errorf("unknown tone mapping '%s': %w", name, core.ErrInvalidConfig)
}

/** @brief Float precision requested from the program. */
type Precision uint8

const (
	PRECISION_HIGHP Precision = iota
	PRECISION_MEDIUMP
	PRECISION_LOWP
)

var precisionNames = []string{"highp", "mediump", "lowp"}

func (p Precision) String() string {
	if int(p) < len(precisionNames) {
		return precisionNames[p]
	}
	return fmt.Sprintf("precision(%d)", int(p))
}

func ParsePrecision(name string) (Precision, error) {
	for i, n := range precisionNames {
		if n == name {
			return Precision(i), nil
		}
	}
	return PRECISION_HIGHP, fmt.Errorf("unknown precision '%s': %w", name, core.ErrInvalidConfig)
}

/** @brief The fog model of the scene. */
type FogType uint8

const (
	FOG_NONE FogType = iota
	FOG_LINEAR
	FOG_EXP2
)

func ParseColorSpace(name string) (metadata.ColorSpace, error) {
	switch name {
	case "srgb":
		return metadata.COLOR_SPACE_SRGB, nil
	case "linear":
		return metadata.COLOR_SPACE_LINEAR, nil
	}
	return metadata.COLOR_SPACE_SRGB, fmt.Errorf("unknown color space '%s': %w", name, core.ErrInvalidConfig)
}

/**
 * @brief Renderer and per object state that changes the emitted program, beside
 * the material and the lights.
 */
type SceneFeatures struct {
	ShadowMapEnabled  bool
	ShadowMapType     ShadowMapType
	ToneMapping       ToneMapping
	OutputColorSpace  metadata.ColorSpace
	Precision         Precision
	Fog               FogType
	NumClippingPlanes uint8
	/** @brief Rendering into an offscreen target writes linear, untonemapped colour. */
	RenderingToTarget bool

	MorphTargets      bool
	MorphNormals      bool
	MorphTargetsCount uint16
	Skinning          bool
	BoneCount         uint16
	VertexColors      bool
	VertexTangents    bool
}

/**
 * @brief Every input that changes the emitted program, in a fixed layout. The
 * struct is comparable and is the program cache key itself, so two
 * configurations share a program exactly when all fields match.
 */
type ProgramParameters struct {
	MaterialType metadata.MaterialType
	ShaderName   string
	CustomKey    string
	/** @brief Material defines sorted by name, each name and value length prefixed. */
	Defines string
	/** @brief Custom uniform names and types sorted by name, length prefixed like Defines. */
	CustomUniforms string

	Precision   Precision
	MapMask     uint32
	MapChannels [metadata.MAP_SLOT_COUNT]uint8
	MapSRGBMask uint32

	VertexColors       bool
	VertexTangents     bool
	FlatShading        bool
	Transmission       bool
	AlphaTest          bool
	AlphaHash          bool
	AlphaToCoverage    bool
	PremultipliedAlpha bool
	Dithering          bool
	DoubleSided        bool
	FlipSided          bool

	Fog              FogType
	ToneMapping      ToneMapping
	OutputColorSpace metadata.ColorSpace

	NumDirLights         uint8
	NumPointLights       uint8
	NumSpotLights        uint8
	NumHemiLights        uint8
	NumRectAreaLights    uint8
	NumDirLightShadows   uint8
	NumPointLightShadows uint8
	NumSpotLightShadows  uint8
	ShadowMapEnabled     bool
	ShadowMapType        ShadowMapType

	NumClippingPlanes   uint8
	NumClipIntersection uint8

	MorphTargets      bool
	MorphNormals      bool
	MorphTargetsCount uint16

	Skinning  bool
	BoneCount uint16
}

/** @brief Whether the material type reacts to scene lights. */
func IsLitMaterial(mt metadata.MaterialType) bool {
	switch mt {
	case metadata.MATERIAL_TYPE_LAMBERT, metadata.MATERIAL_TYPE_PHONG, metadata.MATERIAL_TYPE_STANDARD,
		metadata.MATERIAL_TYPE_PHYSICAL, metadata.MATERIAL_TYPE_TOON, metadata.MATERIAL_TYPE_SHADOW:
		return true
	}
	return false
}

func clampCount(n int) uint8 {
	return uint8(math.Clamp(n, 0, 255))
}

// appendEntry writes "<len>:<s>" so entries can hold any byte, separators included.
func appendEntry(sb *strings.Builder, s string) {
	sb.WriteString(strconv.Itoa(len(s)))
	sb.WriteByte(':')
	sb.WriteString(s)
}

// splitEntries reverses appendEntry. Malformed input stops the split.
func splitEntries(s string) []string {
	var entries []string
	for len(s) > 0 {
		colon := strings.IndexByte(s, ':')
		if colon < 0 {
			break
		}
		n, err := strconv.Atoi(s[:colon])
		if err != nil || n < 0 || colon+1+n > len(s) {
			break
		}
		entries = append(entries, s[colon+1:colon+1+n])
		s = s[colon+1+n:]
	}
	return entries
}

func canonicalDefines(defines map[string]string) string {
	if len(defines) == 0 {
		return ""
	}
	names := maps.Keys(defines)
	slices.Sort(names)
	var sb strings.Builder
	for _, name := range names {
		appendEntry(&sb, name)
		appendEntry(&sb, defines[name])
	}
	return sb.String()
}

func canonicalUniforms(uniforms map[string]metadata.UniformValue) string {
	if len(uniforms) == 0 {
		return ""
	}
	names := maps.Keys(uniforms)
	slices.Sort(names)
	var sb strings.Builder
	for _, name := range names {
		appendEntry(&sb, name)
		appendEntry(&sb, strconv.Itoa(int(uniforms[name].Type)))
	}
	return sb.String()
}

/**
 * @brief Derives the program identity of a material drawn under the given
 * lights and scene features. Plain uniform values such as colours never
 * participate.
 */
func BuildProgramParameters(material *metadata.Material, lights *LightsState, features SceneFeatures) ProgramParameters {
	p := ProgramParameters{
		MaterialType:       material.Type,
		CustomKey:          material.CustomProgramCacheKey,
		Defines:            canonicalDefines(material.Defines),
		CustomUniforms:     canonicalUniforms(material.Uniforms),
		Precision:          features.Precision,
		VertexColors:       material.VertexColors && features.VertexColors,
		VertexTangents:     features.VertexTangents,
		FlatShading:        material.FlatShading,
		Transmission:       material.Transmission > 0,
		AlphaTest:          material.AlphaTest > 0,
		AlphaHash:          material.AlphaHash,
		AlphaToCoverage:    material.AlphaToCoverage,
		PremultipliedAlpha: material.PremultipliedAlpha,
		Dithering:          material.Dithering,
		DoubleSided:        material.Side == metadata.SIDE_DOUBLE,
		FlipSided:          material.Side == metadata.SIDE_BACK,
		OutputColorSpace:   features.OutputColorSpace,
		MorphTargets:       features.MorphTargets,
		MorphNormals:       features.MorphNormals,
		MorphTargetsCount:  features.MorphTargetsCount,
		Skinning:           features.Skinning,
	}
	if features.Skinning {
		p.BoneCount = features.BoneCount
	}
	if material.Type == metadata.MATERIAL_TYPE_SHADER {
		p.ShaderName = material.ShaderName
	}

	for slot, tm := range material.Maps {
		if tm == nil || tm.Texture == nil {
			continue
		}
		p.MapMask |= 1 << uint(slot)
		p.MapChannels[slot] = tm.Channel
		if tm.Texture.ColorSpace == metadata.COLOR_SPACE_SRGB {
			p.MapSRGBMask |= 1 << uint(slot)
		}
	}

	if material.Fog {
		p.Fog = features.Fog
	}
	if material.ToneMapped && !features.RenderingToTarget {
		p.ToneMapping = features.ToneMapping
	}
	if features.RenderingToTarget {
		p.OutputColorSpace = metadata.COLOR_SPACE_LINEAR
	}

	clipping := len(material.ClippingPlanes) + int(features.NumClippingPlanes)
	p.NumClippingPlanes = clampCount(clipping)
	if material.ClipIntersection {
		p.NumClipIntersection = clampCount(len(material.ClippingPlanes))
	}

	if IsLitMaterial(material.Type) && lights != nil {
		p.NumDirLights = clampCount(lights.Counts[metadata.LIGHT_TYPE_DIRECTIONAL])
		p.NumPointLights = clampCount(lights.Counts[metadata.LIGHT_TYPE_POINT])
		p.NumSpotLights = clampCount(lights.Counts[metadata.LIGHT_TYPE_SPOT])
		p.NumHemiLights = clampCount(lights.Counts[metadata.LIGHT_TYPE_HEMISPHERE])
		p.NumRectAreaLights = clampCount(lights.Counts[metadata.LIGHT_TYPE_RECT_AREA])
		if features.ShadowMapEnabled {
			p.ShadowMapEnabled = true
			p.ShadowMapType = features.ShadowMapType
			p.NumDirLightShadows = clampCount(lights.ShadowCounts[metadata.LIGHT_TYPE_DIRECTIONAL])
			p.NumPointLightShadows = clampCount(lights.ShadowCounts[metadata.LIGHT_TYPE_POINT])
			p.NumSpotLightShadows = clampCount(lights.ShadowCounts[metadata.LIGHT_TYPE_SPOT])
		}
	}
	return p
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

/**
 * @brief The canonical byte encoding of the parameters, field by field in
 * declaration order with length prefixed strings.
 */
func (p *ProgramParameters) Encode(buf []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.MaterialType))
	buf = appendString(buf, p.ShaderName)
	buf = appendString(buf, p.CustomKey)
	buf = appendString(buf, p.Defines)
	buf = appendString(buf, p.CustomUniforms)
	buf = append(buf, byte(p.Precision))
	buf = binary.LittleEndian.AppendUint32(buf, p.MapMask)
	buf = append(buf, p.MapChannels[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, p.MapSRGBMask)
	for _, flag := range [...]bool{
		p.VertexColors, p.VertexTangents, p.FlatShading, p.Transmission, p.AlphaTest, p.AlphaHash,
		p.AlphaToCoverage, p.PremultipliedAlpha, p.Dithering, p.DoubleSided, p.FlipSided,
	} {
		buf = appendBool(buf, flag)
	}
	buf = append(buf, byte(p.Fog), byte(p.ToneMapping), byte(p.OutputColorSpace))
	buf = append(buf,
		p.NumDirLights, p.NumPointLights, p.NumSpotLights, p.NumHemiLights, p.NumRectAreaLights,
		p.NumDirLightShadows, p.NumPointLightShadows, p.NumSpotLightShadows)
	buf = appendBool(buf, p.ShadowMapEnabled)
	buf = append(buf, byte(p.ShadowMapType), p.NumClippingPlanes, p.NumClipIntersection)
	buf = appendBool(buf, p.MorphTargets)
	buf = appendBool(buf, p.MorphNormals)
	buf = binary.LittleEndian.AppendUint16(buf, p.MorphTargetsCount)
	buf = appendBool(buf, p.Skinning)
	buf = binary.LittleEndian.AppendUint16(buf, p.BoneCount)
	return buf
}

/** @brief FNV-1a 64 of the canonical encoding, stable across runs and platforms. */
func (p *ProgramParameters) Hash() uint64 {
	var scratch [160]byte
	h := fnv.New64a()
	_, _ = h.Write(p.Encode(scratch[:0]))
	return h.Sum64()
}

/** @brief The printable cache key used in logs and diagnostics. */
func (p *ProgramParameters) CacheKey() string {
	return fmt.Sprintf("%016x", p.Hash())
}

/** @brief The template the program is assembled from. */
func (p *ProgramParameters) TemplateName() string {
	if p.MaterialType == metadata.MATERIAL_TYPE_SHADER && p.ShaderName != "" {
		return p.ShaderName
	}
	return p.MaterialType.String()
}

func (p *ProgramParameters) hasMap(slot metadata.MapSlot) bool {
	return p.MapMask&(1<<uint(slot)) != 0
}

func (p *ProgramParameters) usesUVChannel(channel uint8) bool {
	for slot := metadata.MapSlot(0); slot < metadata.MAP_SLOT_COUNT; slot++ {
		if p.hasMap(slot) && p.MapChannels[slot] == channel {
			return true
		}
	}
	return false
}

func uvAttributeName(channel uint8) string {
	if channel == 0 {
		return metadata.ATTRIBUTE_UV
	}
	return fmt.Sprintf("uv%d", channel)
}

func global(name string, t metadata.ShaderUniformType, arraySize int) metadata.ShaderUniformConfig {
	return metadata.ShaderUniformConfig{Name: name, Type: t, Scope: metadata.ShaderScopeGlobal, ArraySize: uint16(arraySize)}
}

func instance(name string, t metadata.ShaderUniformType, arraySize int) metadata.ShaderUniformConfig {
	return metadata.ShaderUniformConfig{Name: name, Type: t, Scope: metadata.ShaderScopeInstance, ArraySize: uint16(arraySize)}
}

func local(name string, t metadata.ShaderUniformType, arraySize int) metadata.ShaderUniformConfig {
	return metadata.ShaderUniformConfig{Name: name, Type: t, Scope: metadata.ShaderScopeLocal, ArraySize: uint16(arraySize)}
}

/**
 * @brief Expands the parameters into the program the backend builds: chunk
 * names, sorted defines and the attribute and uniform interface.
 */
func (p *ProgramParameters) Source() *metadata.ProgramSource {
	name := p.TemplateName()
	src := &metadata.ProgramSource{
		Name:           name,
		Label:          fmt.Sprintf("%s_%s", name, p.CacheKey()),
		VertexChunks:   []string{"common", name + "_vertex"},
		FragmentChunks: []string{"common", name + "_fragment"},
	}
	src.Define("PRECISION", p.Precision.String())

	// attributes
	src.Attributes = append(src.Attributes, metadata.ShaderAttributeConfig{Name: metadata.ATTRIBUTE_POSITION, Size: 3})
	if p.MaterialType != metadata.MATERIAL_TYPE_DEPTH && p.MaterialType != metadata.MATERIAL_TYPE_DISTANCE {
		src.Attributes = append(src.Attributes, metadata.ShaderAttributeConfig{Name: metadata.ATTRIBUTE_NORMAL, Size: 3})
	}
	for channel := uint8(0); channel < 4; channel++ {
		if p.usesUVChannel(channel) {
			src.Attributes = append(src.Attributes, metadata.ShaderAttributeConfig{Name: uvAttributeName(channel), Size: 2})
		}
	}
	if p.VertexColors {
		src.Define("USE_COLOR", nil)
		src.Attributes = append(src.Attributes, metadata.ShaderAttributeConfig{Name: metadata.ATTRIBUTE_COLOR, Size: 3})
	}
	if p.VertexTangents {
		src.Define("USE_TANGENT", nil)
		src.Attributes = append(src.Attributes, metadata.ShaderAttributeConfig{Name: metadata.ATTRIBUTE_TANGENT, Size: 4})
	}

	// per frame
	src.Uniforms = append(src.Uniforms,
		global("projectionMatrix", metadata.ShaderUniformTypeMatrix4, 0),
		global("viewMatrix", metadata.ShaderUniformTypeMatrix4, 0),
		global("cameraPosition", metadata.ShaderUniformTypeFloat32_3, 0),
	)
	// per object
	src.Uniforms = append(src.Uniforms,
		local("modelMatrix", metadata.ShaderUniformTypeMatrix4, 0),
		local("modelViewMatrix", metadata.ShaderUniformTypeMatrix4, 0),
		local("normalMatrix", metadata.ShaderUniformTypeMatrix3, 0),
	)
	// per material
	src.Uniforms = append(src.Uniforms,
		instance("diffuse", metadata.ShaderUniformTypeFloat32_3, 0),
		instance("opacity", metadata.ShaderUniformTypeFloat32, 0),
	)

	switch p.MaterialType {
	case metadata.MATERIAL_TYPE_LAMBERT, metadata.MATERIAL_TYPE_TOON:
		src.Uniforms = append(src.Uniforms, instance("emissive", metadata.ShaderUniformTypeFloat32_3, 0))
	case metadata.MATERIAL_TYPE_PHONG:
		src.Uniforms = append(src.Uniforms,
			instance("emissive", metadata.ShaderUniformTypeFloat32_3, 0),
			instance("shininess", metadata.ShaderUniformTypeFloat32, 0),
		)
	case metadata.MATERIAL_TYPE_STANDARD, metadata.MATERIAL_TYPE_PHYSICAL:
		src.Uniforms = append(src.Uniforms,
			instance("emissive", metadata.ShaderUniformTypeFloat32_3, 0),
			instance("roughness", metadata.ShaderUniformTypeFloat32, 0),
			instance("metalness", metadata.ShaderUniformTypeFloat32, 0),
		)
		if p.MaterialType == metadata.MATERIAL_TYPE_PHYSICAL {
			src.Define("PHYSICAL", nil)
			src.Uniforms = append(src.Uniforms,
				instance("clearcoat", metadata.ShaderUniformTypeFloat32, 0),
				instance("sheen", metadata.ShaderUniformTypeFloat32, 0),
				instance("iridescence", metadata.ShaderUniformTypeFloat32, 0),
				instance("dispersion", metadata.ShaderUniformTypeFloat32, 0),
				instance("anisotropy", metadata.ShaderUniformTypeFloat32, 0),
			)
		}
	case metadata.MATERIAL_TYPE_DISTANCE:
		src.Uniforms = append(src.Uniforms,
			global("referencePosition", metadata.ShaderUniformTypeFloat32_3, 0),
			global("nearDistance", metadata.ShaderUniformTypeFloat32, 0),
			global("farDistance", metadata.ShaderUniformTypeFloat32, 0),
		)
	}

	for slot := metadata.MapSlot(0); slot < metadata.MAP_SLOT_COUNT; slot++ {
		if !p.hasMap(slot) {
			continue
		}
		define := "USE_" + strings.ToUpper(slot.String())
		src.Define(define, nil)
		src.Define(strings.ToUpper(slot.String())+"_UV", uvAttributeName(p.MapChannels[slot]))
		if p.MapSRGBMask&(1<<uint(slot)) != 0 {
			src.Define(strings.ToUpper(slot.String())+"_SRGB", nil)
		}
		src.Uniforms = append(src.Uniforms, instance(slot.String(), metadata.ShaderUniformTypeSampler, 0))
	}

	if p.FlatShading {
		src.Define("FLAT_SHADED", nil)
	}
	if p.AlphaTest {
		src.Define("USE_ALPHATEST", nil)
		src.Uniforms = append(src.Uniforms, instance("alphaTest", metadata.ShaderUniformTypeFloat32, 0))
	}
	if p.AlphaHash {
		src.Define("USE_ALPHAHASH", nil)
	}
	if p.AlphaToCoverage {
		src.Define("ALPHA_TO_COVERAGE", nil)
	}
	if p.PremultipliedAlpha {
		src.Define("PREMULTIPLIED_ALPHA", nil)
	}
	if p.Dithering {
		src.Define("DITHERING", nil)
	}
	if p.DoubleSided {
		src.Define("DOUBLE_SIDED", nil)
	}
	if p.FlipSided {
		src.Define("FLIP_SIDED", nil)
	}
	if p.Transmission {
		src.Define("USE_TRANSMISSION", nil)
		src.Uniforms = append(src.Uniforms,
			instance("transmission", metadata.ShaderUniformTypeFloat32, 0),
			global("transmissionSamplerMap", metadata.ShaderUniformTypeSampler, 0),
			global("transmissionSamplerSize", metadata.ShaderUniformTypeFloat32_2, 0),
		)
	}

	switch p.Fog {
	case FOG_LINEAR:
		src.Define("USE_FOG", nil)
		src.Uniforms = append(src.Uniforms,
			global("fogColor", metadata.ShaderUniformTypeFloat32_3, 0),
			global("fogNear", metadata.ShaderUniformTypeFloat32, 0),
			global("fogFar", metadata.ShaderUniformTypeFloat32, 0),
		)
	case FOG_EXP2:
		src.Define("USE_FOG", nil)
		src.Define("FOG_EXP2", nil)
		src.Uniforms = append(src.Uniforms,
			global("fogColor", metadata.ShaderUniformTypeFloat32_3, 0),
			global("fogDensity", metadata.ShaderUniformTypeFloat32, 0),
		)
	}

	src.Define("TONE_MAPPING", p.ToneMapping.String())
	if p.ToneMapping != TONE_MAPPING_NONE {
		src.Uniforms = append(src.Uniforms, global("toneMappingExposure", metadata.ShaderUniformTypeFloat32, 0))
	}
	if p.OutputColorSpace == metadata.COLOR_SPACE_SRGB {
		src.Define("SRGB_COLOR_SPACE", nil)
	}

	if IsLitMaterial(p.MaterialType) {
		src.VertexChunks = append(src.VertexChunks, "lights_pars")
		src.FragmentChunks = append(src.FragmentChunks, "lights_pars", "lights_fragment")
		src.Define("NUM_DIR_LIGHTS", p.NumDirLights)
		src.Define("NUM_POINT_LIGHTS", p.NumPointLights)
		src.Define("NUM_SPOT_LIGHTS", p.NumSpotLights)
		src.Define("NUM_HEMI_LIGHTS", p.NumHemiLights)
		src.Define("NUM_RECT_AREA_LIGHTS", p.NumRectAreaLights)
		src.Uniforms = append(src.Uniforms, global("ambientLightColor", metadata.ShaderUniformTypeFloat32_3, 0))
		if p.NumDirLights > 0 {
			src.Uniforms = append(src.Uniforms, global("directionalLights", metadata.ShaderUniformTypeFloat32, int(p.NumDirLights)*DIRECTIONAL_LIGHT_STRIDE))
		}
		if p.NumPointLights > 0 {
			src.Uniforms = append(src.Uniforms, global("pointLights", metadata.ShaderUniformTypeFloat32, int(p.NumPointLights)*POINT_LIGHT_STRIDE))
		}
		if p.NumSpotLights > 0 {
			src.Uniforms = append(src.Uniforms, global("spotLights", metadata.ShaderUniformTypeFloat32, int(p.NumSpotLights)*SPOT_LIGHT_STRIDE))
		}
		if p.NumHemiLights > 0 {
			src.Uniforms = append(src.Uniforms, global("hemisphereLights", metadata.ShaderUniformTypeFloat32, int(p.NumHemiLights)*HEMISPHERE_LIGHT_STRIDE))
		}
		if p.NumRectAreaLights > 0 {
			src.Uniforms = append(src.Uniforms, global("rectAreaLights", metadata.ShaderUniformTypeFloat32, int(p.NumRectAreaLights)*RECT_AREA_LIGHT_STRIDE))
		}
	}

	if p.ShadowMapEnabled {
		src.Define("USE_SHADOWMAP", nil)
		src.Define("SHADOWMAP_TYPE_"+strings.ToUpper(p.ShadowMapType.String()), nil)
		src.Define("NUM_DIR_LIGHT_SHADOWS", p.NumDirLightShadows)
		src.Define("NUM_POINT_LIGHT_SHADOWS", p.NumPointLightShadows)
		src.Define("NUM_SPOT_LIGHT_SHADOWS", p.NumSpotLightShadows)
		src.VertexChunks = append(src.VertexChunks, "shadowmap_vertex")
		src.FragmentChunks = append(src.FragmentChunks, "shadowmap_fragment")
		shadowed := []struct {
			prefix string
			count  uint8
		}{
			{"directional", p.NumDirLightShadows},
			{"point", p.NumPointLightShadows},
			{"spot", p.NumSpotLightShadows},
		}
		for _, s := range shadowed {
			if s.count == 0 {
				continue
			}
			src.Uniforms = append(src.Uniforms,
				global(s.prefix+"ShadowMatrix", metadata.ShaderUniformTypeMatrix4, int(s.count)),
				global(s.prefix+"ShadowMap", metadata.ShaderUniformTypeSampler, int(s.count)),
			)
		}
	}

	if p.NumClippingPlanes > 0 {
		src.Define("NUM_CLIPPING_PLANES", p.NumClippingPlanes)
		src.Define("UNION_CLIPPING_PLANES", p.NumClippingPlanes-p.NumClipIntersection)
		src.Uniforms = append(src.Uniforms, instance("clippingPlanes", metadata.ShaderUniformTypeFloat32_4, int(p.NumClippingPlanes)))
	}

	if p.MorphTargets && p.MorphTargetsCount > 0 {
		src.Define("USE_MORPHTARGETS", nil)
		src.Define("MORPHTARGETS_COUNT", p.MorphTargetsCount)
		src.VertexChunks = append(src.VertexChunks, "morphtarget_vertex")
		for i := uint16(0); i < p.MorphTargetsCount; i++ {
			src.Attributes = append(src.Attributes, metadata.ShaderAttributeConfig{Name: MorphAttributeName(metadata.ATTRIBUTE_POSITION, int(i)), Size: 3})
		}
		if p.MorphNormals {
			src.Define("USE_MORPHNORMALS", nil)
			for i := uint16(0); i < p.MorphTargetsCount; i++ {
				src.Attributes = append(src.Attributes, metadata.ShaderAttributeConfig{Name: MorphAttributeName(metadata.ATTRIBUTE_NORMAL, int(i)), Size: 3})
			}
		}
		src.Uniforms = append(src.Uniforms, local("morphTargetInfluences", metadata.ShaderUniformTypeFloat32, int(p.MorphTargetsCount)))
	}

	if p.Skinning && p.BoneCount > 0 {
		src.Define("USE_SKINNING", nil)
		src.Define("BONE_COUNT", p.BoneCount)
		src.VertexChunks = append(src.VertexChunks, "skinning_vertex")
		src.Attributes = append(src.Attributes,
			metadata.ShaderAttributeConfig{Name: metadata.ATTRIBUTE_SKIN_INDEX, Size: 4},
			metadata.ShaderAttributeConfig{Name: metadata.ATTRIBUTE_SKIN_WEIGHT, Size: 4},
		)
		src.Uniforms = append(src.Uniforms, local("boneMatrices", metadata.ShaderUniformTypeMatrix4, int(p.BoneCount)))
	}

	defines := splitEntries(p.Defines)
	for i := 0; i+1 < len(defines); i += 2 {
		if defines[i+1] == "" {
			src.Define(defines[i], nil)
		} else {
			src.Define(defines[i], defines[i+1])
		}
	}
	uniforms := splitEntries(p.CustomUniforms)
	for i := 0; i+1 < len(uniforms); i += 2 {
		t, _ := strconv.Atoi(uniforms[i+1])
		src.Uniforms = append(src.Uniforms, instance(uniforms[i], metadata.ShaderUniformType(t), 0))
	}
	return src
}

/**
 * @brief The program attribute name of a morph target. Position targets are
 * "morphTarget<i>", other attributes "morph<Attribute><i>".
 */
func MorphAttributeName(attribute string, index int) string {
	if attribute == metadata.ATTRIBUTE_POSITION {
		return fmt.Sprintf("morphTarget%d", index)
	}
	return fmt.Sprintf("morph%s%s%d", strings.ToUpper(attribute[:1]), attribute[1:], index)
}
