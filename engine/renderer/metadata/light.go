package metadata

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/components"
)

type LightType int

const (
	LIGHT_TYPE_AMBIENT LightType = iota
	LIGHT_TYPE_DIRECTIONAL
	LIGHT_TYPE_POINT
	LIGHT_TYPE_SPOT
	LIGHT_TYPE_HEMISPHERE
	LIGHT_TYPE_RECT_AREA
	/** @brief The number of light types, not a type itself. */
	LIGHT_TYPE_COUNT
)

func (lt LightType) String() string {
	switch lt {
	case LIGHT_TYPE_AMBIENT:
		return "ambient"
	case LIGHT_TYPE_DIRECTIONAL:
		return "directional"
	case LIGHT_TYPE_POINT:
		return "point"
	case LIGHT_TYPE_SPOT:
		return "spot"
	case LIGHT_TYPE_HEMISPHERE:
		return "hemisphere"
	case LIGHT_TYPE_RECT_AREA:
		return "rect_area"
	}
	return fmt.Sprintf("light_type(%d)", int(lt))
}

/** @brief Only directional, point and spot lights can cast shadows. */
func (lt LightType) CanCastShadow() bool {
	return lt == LIGHT_TYPE_DIRECTIONAL || lt == LIGHT_TYPE_POINT || lt == LIGHT_TYPE_SPOT
}

/**
 * @brief Shadow settings and per-light shadow resources.
 */
type LightShadow struct {
	/** @brief Shadow map resolution in texels. Non positive sizes disable rendering. */
	MapWidth   int32
	MapHeight  int32
	Bias       float32
	NormalBias float32
	/** @brief Blur radius, used by PCF soft and VSM. */
	Radius      float32
	BlurSamples int32
	/** @brief Near and far planes of the shadow camera. */
	CameraNear float32
	CameraFar  float32
	/** @brief Half extent of the orthographic volume of directional shadows. */
	CameraSize float32

	/** @brief When false the map is only rendered if NeedsUpdate is set. */
	AutoUpdate  bool
	NeedsUpdate bool

	/** @brief The camera the shadow map is rendered from. */
	Camera *components.Camera
	/** @brief The depth (or variance) target. */
	Map *RenderTarget
	/** @brief Intermediate target of the VSM blur. */
	MapPass *RenderTarget
	/** @brief World to shadow map texture space. */
	Matrix math.Mat4
	/** @brief Set when the map holds valid data. */
	Rendered bool
}

func NewLightShadow() *LightShadow {
	return &LightShadow{
		MapWidth:    512,
		MapHeight:   512,
		Bias:        0,
		Radius:      1,
		BlurSamples: 8,
		CameraNear:  0.5,
		CameraFar:   500,
		CameraSize:  5,
		AutoUpdate:  true,
		NeedsUpdate: false,
		Matrix:      math.NewMat4Identity(),
	}
}

/**
 * @brief A light descriptor. Lights live on scene nodes, their position and
 * orientation come from the node's world matrix.
 */
type Light struct {
	ID          uint32
	Type        LightType
	Color       math.Vec3
	Intensity   float32
	GroundColor math.Vec3
	/** @brief Range of point and spot lights, zero is infinite. */
	Distance float32
	Decay    float32
	/** @brief Spot cone half angle in radians. */
	Angle    float32
	Penumbra float32
	/** @brief Rect area light size. */
	Width  float32
	Height float32
	/** @brief World space point directional and spot lights aim at. */
	Target math.Vec3

	CastShadow bool
	Shadow     *LightShadow
}

func newLight(lightType LightType, color math.Vec3, intensity float32) *Light {
	return &Light{
		ID:        core.IdentifierAquireNewID(),
		Type:      lightType,
		Color:     color,
		Intensity: intensity,
		Decay:     2,
	}
}

func NewAmbientLight(color math.Vec3, intensity float32) *Light {
	return newLight(LIGHT_TYPE_AMBIENT, color, intensity)
}

func NewDirectionalLight(color math.Vec3, intensity float32) *Light {
	l := newLight(LIGHT_TYPE_DIRECTIONAL, color, intensity)
	l.Shadow = NewLightShadow()
	return l
}

func NewPointLight(color math.Vec3, intensity, distance float32) *Light {
	l := newLight(LIGHT_TYPE_POINT, color, intensity)
	l.Distance = distance
	l.Shadow = NewLightShadow()
	l.Shadow.CameraFar = 500
	return l
}

func NewSpotLight(color math.Vec3, intensity, distance, angle, penumbra float32) *Light {
	l := newLight(LIGHT_TYPE_SPOT, color, intensity)
	l.Distance = distance
	l.Angle = angle
	l.Penumbra = penumbra
	l.Shadow = NewLightShadow()
	return l
}

func NewHemisphereLight(sky, ground math.Vec3, intensity float32) *Light {
	l := newLight(LIGHT_TYPE_HEMISPHERE, sky, intensity)
	l.GroundColor = ground
	return l
}

func NewRectAreaLight(color math.Vec3, intensity, width, height float32) *Light {
	l := newLight(LIGHT_TYPE_RECT_AREA, color, intensity)
	l.Width = width
	l.Height = height
	return l
}

/** @brief Whether the light takes part in the shadow sub pass. */
func (l *Light) CastsShadow() bool {
	return l.CastShadow && l.Shadow != nil && l.Type.CanCastShadow()
}
