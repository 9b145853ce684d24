package systems

import (
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
)

/** @brief The phases of the shadow sub-pass. */
type ShadowState int

const (
	SHADOW_STATE_IDLE ShadowState = iota
	SHADOW_STATE_COLLECT_CASTERS
	SHADOW_STATE_PER_LIGHT_RENDER
	SHADOW_STATE_VSM_BLUR
)

func (ss ShadowState) String() string {
	switch ss {
	case SHADOW_STATE_IDLE:
		return "idle"
	case SHADOW_STATE_COLLECT_CASTERS:
		return "collect_casters"
	case SHADOW_STATE_PER_LIGHT_RENDER:
		return "per_light_render"
	case SHADOW_STATE_VSM_BLUR:
		return "vsm_blur"
	}
	return fmt.Sprintf("shadow_state(%d)", int(ss))
}

var shadowTransitions = map[ShadowState][]ShadowState{
	SHADOW_STATE_IDLE:             {SHADOW_STATE_COLLECT_CASTERS},
	SHADOW_STATE_COLLECT_CASTERS:  {SHADOW_STATE_PER_LIGHT_RENDER, SHADOW_STATE_IDLE},
	SHADOW_STATE_PER_LIGHT_RENDER: {SHADOW_STATE_VSM_BLUR, SHADOW_STATE_IDLE},
	SHADOW_STATE_VSM_BLUR:         {SHADOW_STATE_IDLE},
}

/** @brief The name of the custom program blurring variance shadow maps. */
const VSM_BLUR_SHADER_NAME string = "vsm_blur"

// Taps per blur direction accepted by the blur program.
const MAX_VSM_BLUR_SAMPLES int32 = 32

/**
 * @brief Draws what the shadow sub-pass prepared. Implemented by the renderer
 * system, the shadow system never talks to the backend itself.
 */
type ShadowRenderer interface {
	/** @brief Draws a depth only list into target from camera, restricted to viewport. */
	RenderShadowList(list *RenderList, camera *components.Camera, target *metadata.RenderTarget, viewport metadata.Rect, light *LightEntry, clear bool) error
	/** @brief Draws a screen covering quad with material into target. */
	RenderFullscreen(material *metadata.Material, target *metadata.RenderTarget) error
}

type ShadowSystemConfig struct {
	Enabled bool
	Type    ShadowMapType
}

type depthVariantKey struct {
	distance  bool
	side      metadata.Side
	alphaTest float32
	alphaMap  *metadata.Texture
	colorMap  *metadata.Texture
}

type lightShadowState struct {
	cameras [6]*components.Camera
	blur    [2]*metadata.Material
}

// Directions and up vectors of the six point light faces, laid out in a 4x2 atlas.
var pointFaceDirections = [6]math.Vec3{
	{X: 1, Y: 0, Z: 0}, {X: -1, Y: 0, Z: 0}, {X: 0, Y: 0, Z: 1},
	{X: 0, Y: 0, Z: -1}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: -1, Z: 0},
}

var pointFaceUps = [6]math.Vec3{
	{X: 0, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
	{X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}, {X: 0, Y: 0, Z: -1},
}

var pointFaceViewports = [6][2]int32{
	{2, 1}, {0, 1}, {3, 1}, {1, 1}, {3, 0}, {1, 0},
}

/**
 * @brief Renders the shadow maps of the lights selected by the lights system.
 */
type ShadowSystem struct {
	config  *ShadowSystemConfig
	state   ShadowState
	culling *CullingSystem
	builder *RenderListBuilder
	list    *RenderList

	depthMaterial    *metadata.Material
	distanceMaterial *metadata.Material
	variants         map[depthVariantKey]*metadata.Material
	lights           map[uint32]*lightShadowState
	renderingPoint   bool

	onTransition func(from, to ShadowState)

	/** @brief Shadow maps rendered during the last Render. */
	MapsRendered int
}

func NewShadowSystem(config *ShadowSystemConfig) (*ShadowSystem, error) {
	if config == nil {
		err := fmt.Errorf("func NewShadowSystem - config cannot be nil: %w", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	ss := &ShadowSystem{
		config:   config,
		culling:  NewCullingSystem(),
		list:     NewRenderList(),
		variants: make(map[depthVariantKey]*metadata.Material),
		lights:   make(map[uint32]*lightShadowState),
	}
	ss.builder = NewRenderListBuilder(ss.culling)
	ss.builder.ShadowCastersOnly = true
	ss.builder.MaterialOverride = ss.depthVariant

	ss.depthMaterial = metadata.NewMaterial("shadow_depth", metadata.MATERIAL_TYPE_DEPTH)
	ss.depthMaterial.Blending = metadata.BLENDING_NONE
	ss.distanceMaterial = metadata.NewMaterial("shadow_distance", metadata.MATERIAL_TYPE_DISTANCE)
	ss.distanceMaterial.Blending = metadata.BLENDING_NONE
	return ss, nil
}

/** @brief The current phase. */
func (ss *ShadowSystem) State() ShadowState {
	return ss.state
}

/** @brief Observes every phase change, nil removes the observer. */
func (ss *ShadowSystem) OnTransition(fn func(from, to ShadowState)) {
	ss.onTransition = fn
}

func (ss *ShadowSystem) transition(to ShadowState) error {
	for _, allowed := range shadowTransitions[ss.state] {
		if allowed == to {
			from := ss.state
			ss.state = to
			if ss.onTransition != nil {
				ss.onTransition(from, to)
			}
			return nil
		}
	}
	return fmt.Errorf("shadow sub-pass cannot go from %s to %s: %w", ss.state, to, core.ErrInvalidConfig)
}

/**
 * @brief Renders the shadow map of every light in lights.Shadows. Lights with a
 * non positive map size are skipped, lights that do not auto update keep their
 * previous map until NeedsUpdate is set.
 */
func (ss *ShadowSystem) Render(graph *scene.Graph, lights *LightsState, r ShadowRenderer) error {
	ss.MapsRendered = 0
	if !ss.config.Enabled || lights == nil || len(lights.Shadows) == 0 {
		return nil
	}
	if ss.state != SHADOW_STATE_IDLE {
		return fmt.Errorf("shadow sub-pass re-entered while %s: %w", ss.state, core.ErrInvalidConfig)
	}

	var err error
	// the phase always returns to idle, even when a light fails
	defer func() {
		if from := ss.state; from != SHADOW_STATE_IDLE {
			ss.state = SHADOW_STATE_IDLE
			if ss.onTransition != nil {
				ss.onTransition(from, SHADOW_STATE_IDLE)
			}
		}
	}()

	if err = ss.transition(SHADOW_STATE_COLLECT_CASTERS); err != nil {
		return err
	}
	pending := make([]*LightEntry, 0, len(lights.Shadows))
	for _, entry := range lights.Shadows {
		shadow := entry.Light.Shadow
		if shadow.MapWidth <= 0 || shadow.MapHeight <= 0 {
			core.LogDebug("light %d has a %dx%d shadow map, keeping its previous state", entry.Light.ID, shadow.MapWidth, shadow.MapHeight)
			continue
		}
		if !shadow.AutoUpdate && !shadow.NeedsUpdate && shadow.Rendered {
			continue
		}
		pending = append(pending, entry)
	}
	if len(pending) == 0 {
		return ss.transition(SHADOW_STATE_IDLE)
	}

	if err = ss.transition(SHADOW_STATE_PER_LIGHT_RENDER); err != nil {
		return err
	}
	for _, entry := range pending {
		if err = ss.renderLight(graph, entry, r); err != nil {
			return err
		}
		ss.MapsRendered++
	}

	if ss.config.Type == SHADOW_MAP_TYPE_VSM {
		if err = ss.transition(SHADOW_STATE_VSM_BLUR); err != nil {
			return err
		}
		for _, entry := range pending {
			if entry.Light.Type == metadata.LIGHT_TYPE_POINT {
				continue
			}
			if err = ss.blur(entry, r); err != nil {
				return err
			}
		}
	}
	return ss.transition(SHADOW_STATE_IDLE)
}

func (ss *ShadowSystem) lightState(light *metadata.Light) *lightShadowState {
	ls, ok := ss.lights[light.ID]
	if !ok {
		ls = &lightShadowState{}
		ss.lights[light.ID] = ls
	}
	return ls
}

/** @brief Sizes the map of a shadow, point lights render six faces into a 4x2 atlas. */
func shadowMapSize(light *metadata.Light) (uint32, uint32) {
	w, h := uint32(light.Shadow.MapWidth), uint32(light.Shadow.MapHeight)
	if light.Type == metadata.LIGHT_TYPE_POINT {
		return w * 4, h * 2
	}
	return w, h
}

func (ss *ShadowSystem) renderLight(graph *scene.Graph, entry *LightEntry, r ShadowRenderer) error {
	light := entry.Light
	shadow := light.Shadow
	width, height := shadowMapSize(light)
	if shadow.Map == nil || shadow.Map.Disposed {
		shadow.Map = metadata.NewRenderTarget("shadow_map", width, height,
			metadata.RENDER_TARGET_ATTACHMENT_TYPE_COLOUR|metadata.RENDER_TARGET_ATTACHMENT_TYPE_DEPTH)
	} else {
		shadow.Map.SetSize(width, height)
	}

	ls := ss.lightState(light)
	position := entry.Position()
	ss.renderingPoint = light.Type == metadata.LIGHT_TYPE_POINT

	if ss.renderingPoint {
		faceW, faceH := shadow.MapWidth, shadow.MapHeight
		for face := 0; face < 6; face++ {
			cam := ls.cameras[face]
			if cam == nil {
				cam = components.NewPerspectiveCamera(math.K_HALF_PI, 1, shadow.CameraNear, shadow.CameraFar)
				cam.Name = fmt.Sprintf("shadow_point_%d_%d", light.ID, face)
				ls.cameras[face] = cam
			}
			if cam.Near != shadow.CameraNear || cam.Far != shadow.CameraFar {
				cam.Near, cam.Far = shadow.CameraNear, shadow.CameraFar
				cam.UpdateProjectionMatrix()
			}
			cam.SetWorldMatrix(math.NewMat4LookAt(position, position.Add(pointFaceDirections[face]), pointFaceUps[face]))

			viewport := metadata.Rect{
				X:      pointFaceViewports[face][0] * faceW,
				Y:      pointFaceViewports[face][1] * faceH,
				Width:  faceW,
				Height: faceH,
			}
			if err := ss.renderCasters(graph, cam, shadow.Map, viewport, entry, face == 0, r); err != nil {
				return err
			}
		}
		shadow.Matrix = math.NewMat4Translation(position.Negate())
	} else {
		cam := ls.cameras[0]
		if light.Type == metadata.LIGHT_TYPE_DIRECTIONAL {
			size := shadow.CameraSize
			if cam == nil {
				cam = components.NewOrthographicCamera(-size, size, size, -size, shadow.CameraNear, shadow.CameraFar)
			} else {
				cam.SetOrthographic(-size, size, size, -size, shadow.CameraNear, shadow.CameraFar)
			}
		} else {
			fov := light.Angle * 2
			if cam == nil {
				cam = components.NewPerspectiveCamera(fov, float32(width)/float32(height), shadow.CameraNear, shadow.CameraFar)
			} else if cam.FOV != fov || cam.Near != shadow.CameraNear || cam.Far != shadow.CameraFar {
				cam.FOV, cam.Near, cam.Far = fov, shadow.CameraNear, shadow.CameraFar
				cam.UpdateProjectionMatrix()
			}
			cam.SetAspect(float32(width) / float32(height))
		}
		cam.Name = fmt.Sprintf("shadow_%s_%d", light.Type, light.ID)
		ls.cameras[0] = cam

		up := math.NewVec3Up()
		if dot := entry.Direction().Dot(up); dot > 0.999 || dot < -0.999 {
			up = math.NewVec3(0, 0, 1)
		}
		cam.SetWorldMatrix(math.NewMat4LookAt(position, light.Target, up))

		viewport := metadata.Rect{Width: int32(width), Height: int32(height)}
		if err := ss.renderCasters(graph, cam, shadow.Map, viewport, entry, true, r); err != nil {
			return err
		}
		shadow.Matrix = shadowBias.Mul(cam.GetProjectionView())
	}
	shadow.Camera = ls.cameras[0]
	shadow.NeedsUpdate = false
	shadow.Rendered = true
	return nil
}

// maps clip space [-1, 1] to texture space [0, 1]
var shadowBias = math.Mat4{Data: [16]float32{
	0.5, 0, 0, 0,
	0, 0.5, 0, 0,
	0, 0, 0.5, 0,
	0.5, 0.5, 0.5, 1,
}}

func (ss *ShadowSystem) renderCasters(graph *scene.Graph, cam *components.Camera, target *metadata.RenderTarget, viewport metadata.Rect, entry *LightEntry, clear bool, r ShadowRenderer) error {
	if err := ss.builder.Build(graph, cam, ss.list); err != nil {
		return err
	}
	SortRenderList(ss.list, nil, nil)
	return r.RenderShadowList(ss.list, cam, target, viewport, entry, clear)
}

/**
 * @brief Substitutes the depth (or distance, for point lights) material. One
 * variant exists per side, alpha test and alpha map combination.
 */
func (ss *ShadowSystem) depthVariant(d *scene.Drawable, material *metadata.Material) *metadata.Material {
	key := depthVariantKey{
		distance:  ss.renderingPoint,
		side:      material.EffectiveShadowSide(),
		alphaTest: material.AlphaTest,
	}
	if key.alphaTest > 0 {
		if m := material.Maps[metadata.MAP_SLOT_ALPHA]; m != nil {
			key.alphaMap = m.Texture
		}
		if m := material.Maps[metadata.MAP_SLOT_MAP]; m != nil {
			key.colorMap = m.Texture
		}
	}
	if variant, ok := ss.variants[key]; ok {
		return variant
	}

	base := ss.depthMaterial
	if key.distance {
		base = ss.distanceMaterial
	}
	variant := &metadata.Material{}
	if err := copier.CopyWithOption(variant, base, copier.Option{DeepCopy: true}); err != nil {
		core.LogError("cloning depth material: %s", err)
		return base
	}
	variant.ID = core.IdentifierAquireNewID()
	variant.Name = fmt.Sprintf("%s_%d", base.Name, len(ss.variants))
	variant.Maps = [metadata.MAP_SLOT_COUNT]*metadata.TextureMap{}
	variant.Side = key.side
	variant.AlphaTest = material.AlphaTest
	if key.alphaMap != nil {
		variant.SetMap(metadata.MAP_SLOT_ALPHA, key.alphaMap, material.Maps[metadata.MAP_SLOT_ALPHA].Channel)
	}
	if key.colorMap != nil {
		variant.SetMap(metadata.MAP_SLOT_MAP, key.colorMap, material.Maps[metadata.MAP_SLOT_MAP].Channel)
	}
	ss.variants[key] = variant
	return variant
}

/** @brief The number of depth material variants created so far. */
func (ss *ShadowSystem) VariantCount() int {
	return len(ss.variants)
}

/**
 * @brief Blurs a variance shadow map in two directions, ping ponging through
 * the light's MapPass target.
 */
func (ss *ShadowSystem) blur(entry *LightEntry, r ShadowRenderer) error {
	shadow := entry.Light.Shadow
	width, height := shadowMapSize(entry.Light)
	if shadow.MapPass == nil || shadow.MapPass.Disposed {
		shadow.MapPass = metadata.NewRenderTarget("shadow_map_pass", width, height, metadata.RENDER_TARGET_ATTACHMENT_TYPE_COLOUR)
	} else {
		shadow.MapPass.SetSize(width, height)
	}

	ls := ss.lightState(entry.Light)
	if ls.blur[0] == nil {
		ls.blur[0] = newBlurMaterial("vsm_blur_horizontal", math.NewVec2(1, 0))
		ls.blur[1] = newBlurMaterial("vsm_blur_vertical", math.NewVec2(0, 1))
	}
	passes := [2]struct {
		source, target *metadata.RenderTarget
	}{
		{shadow.Map, shadow.MapPass},
		{shadow.MapPass, shadow.Map},
	}
	for i, pass := range passes {
		material := ls.blur[i]
		if material.Maps[metadata.MAP_SLOT_MAP] == nil || material.Maps[metadata.MAP_SLOT_MAP].Texture != pass.source.Texture {
			material.SetMap(metadata.MAP_SLOT_MAP, pass.source.Texture, 0)
		}
		material.Uniforms["radius"] = metadata.UniformFloat(shadow.Radius)
		material.Uniforms["samples"] = metadata.UniformFloat(float32(math.Clamp(shadow.BlurSamples, 1, MAX_VSM_BLUR_SAMPLES)))
		material.Uniforms["resolution"] = metadata.UniformVec2(math.NewVec2(float32(width), float32(height)))
		if err := r.RenderFullscreen(material, pass.target); err != nil {
			return err
		}
	}
	return nil
}

func newBlurMaterial(name string, direction math.Vec2) *metadata.Material {
	m := metadata.NewMaterial(name, metadata.MATERIAL_TYPE_SHADER)
	m.ShaderName = VSM_BLUR_SHADER_NAME
	m.Blending = metadata.BLENDING_NONE
	m.DepthTest = false
	m.DepthWrite = false
	m.Fog = false
	m.ToneMapped = false
	m.Side = metadata.SIDE_DOUBLE
	m.Uniforms["direction"] = metadata.UniformVec2(direction)
	m.Uniforms["radius"] = metadata.UniformFloat(1)
	m.Uniforms["samples"] = metadata.UniformFloat(8)
	m.Uniforms["resolution"] = metadata.UniformVec2(math.NewVec2(1, 1))
	return m
}

/**
 * @brief Forgets the per light state of a light that left the scene and hands
 * back its blur materials so their programs can be released.
 */
func (ss *ShadowSystem) ForgetLight(light *metadata.Light) []*metadata.Material {
	ls, ok := ss.lights[light.ID]
	if !ok {
		return nil
	}
	delete(ss.lights, light.ID)
	out := make([]*metadata.Material, 0, len(ls.blur))
	for _, m := range ls.blur {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

/** @brief The number of lights holding cameras or blur materials. */
func (ss *ShadowSystem) LightCount() int {
	return len(ss.lights)
}

func (ss *ShadowSystem) Shutdown() error {
	ss.variants = make(map[depthVariantKey]*metadata.Material)
	ss.lights = make(map[uint32]*lightShadowState)
	ss.state = SHADOW_STATE_IDLE
	return nil
}
