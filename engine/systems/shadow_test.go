package systems

import (
	"testing"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingShadowRenderer struct {
	lists      []int
	viewports  []metadata.Rect
	materials  []string
	fullscreen []*metadata.RenderTarget
	samples    []float32
	during     func()
}

func (r *recordingShadowRenderer) RenderShadowList(list *RenderList, camera *components.Camera, target *metadata.RenderTarget, viewport metadata.Rect, light *LightEntry, clear bool) error {
	r.lists = append(r.lists, len(list.Opaque)+len(list.Transparent)+len(list.Transmissive))
	r.viewports = append(r.viewports, viewport)
	for _, item := range list.Opaque {
		r.materials = append(r.materials, item.Material.Name)
	}
	if r.during != nil {
		r.during()
	}
	return nil
}

func (r *recordingShadowRenderer) RenderFullscreen(material *metadata.Material, target *metadata.RenderTarget) error {
	r.fullscreen = append(r.fullscreen, target)
	if v, ok := material.Uniforms["samples"]; ok && len(v.Floats) > 0 {
		r.samples = append(r.samples, v.Floats[0])
	}
	return nil
}

type shadowFixture struct {
	graph  *scene.Graph
	lights *LightsSystem
	state  *LightsState
}

func newShadowFixture(t *testing.T, light *metadata.Light, position math.Vec3) *shadowFixture {
	t.Helper()
	g := scene.NewGraph()
	caster := addDrawable(t, g, "caster", math.NewVec3Zero(), newQuad("quad"), metadata.NewMaterial("m", metadata.MATERIAL_TYPE_STANDARD))
	caster.Drawable.CastShadow = true
	addDrawable(t, g, "bystander", math.NewVec3(0.1, 0, 0), newQuad("quad"), metadata.NewMaterial("m", metadata.MATERIAL_TYPE_STANDARD))
	g.UpdateWorldMatrices()

	light.CastShadow = true
	ls, err := NewLightsSystem(nil)
	require.NoError(t, err)
	state := ls.Setup([]LightEntry{lightAt(light, position)})
	require.Len(t, state.Shadows, 1)
	return &shadowFixture{graph: g, lights: ls, state: state}
}

func recordTransitions(ss *ShadowSystem) *[]string {
	var seen []string
	ss.OnTransition(func(from, to ShadowState) {
		seen = append(seen, from.String()+">"+to.String())
	})
	return &seen
}

func TestShadowSystemTransitions(t *testing.T) {
	ss, err := NewShadowSystem(&ShadowSystemConfig{Enabled: true, Type: SHADOW_MAP_TYPE_PCF})
	require.NoError(t, err)
	seen := recordTransitions(ss)
	f := newShadowFixture(t, metadata.NewSpotLight(math.NewVec3One(), 1, 0, 0.5, 0), math.NewVec3(0, 5, 0))

	r := &recordingShadowRenderer{}
	require.NoError(t, ss.Render(f.graph, f.state, r))
	assert.Equal(t, []string{
		"idle>collect_casters",
		"collect_casters>per_light_render",
		"per_light_render>idle",
	}, *seen)
	assert.Equal(t, SHADOW_STATE_IDLE, ss.State())
	assert.Equal(t, 1, ss.MapsRendered)

	// only the caster is drawn, with a depth material in place of its own
	assert.Equal(t, []int{1}, r.lists)
	require.Len(t, r.materials, 1)
	assert.Contains(t, r.materials[0], "shadow_depth")
	assert.Equal(t, 1, ss.VariantCount())

	shadow := f.state.Shadows[0].Light.Shadow
	assert.True(t, shadow.Rendered)
	require.NotNil(t, shadow.Map)
	assert.Equal(t, uint32(512), shadow.Map.Width)
	assert.NotNil(t, shadow.Camera)
}

func TestShadowSystemVSMBlursMaps(t *testing.T) {
	ss, err := NewShadowSystem(&ShadowSystemConfig{Enabled: true, Type: SHADOW_MAP_TYPE_VSM})
	require.NoError(t, err)
	seen := recordTransitions(ss)
	light := metadata.NewDirectionalLight(math.NewVec3One(), 1)
	light.Shadow.BlurSamples = 500
	f := newShadowFixture(t, light, math.NewVec3(0, 5, 1))

	r := &recordingShadowRenderer{}
	require.NoError(t, ss.Render(f.graph, f.state, r))
	assert.Equal(t, []string{
		"idle>collect_casters",
		"collect_casters>per_light_render",
		"per_light_render>vsm_blur",
		"vsm_blur>idle",
	}, *seen)

	shadow := f.state.Shadows[0].Light.Shadow
	require.Len(t, r.fullscreen, 2)
	assert.Same(t, shadow.MapPass, r.fullscreen[0])
	assert.Same(t, shadow.Map, r.fullscreen[1])
	assert.Equal(t, []float32{float32(MAX_VSM_BLUR_SAMPLES), float32(MAX_VSM_BLUR_SAMPLES)}, r.samples)
	assert.Equal(t, 1, ss.VariantCount())
	assert.Equal(t, 1, ss.LightCount())

	blur := ss.ForgetLight(f.state.Shadows[0].Light)
	require.Len(t, blur, 2)
	assert.Equal(t, VSM_BLUR_SHADER_NAME, blur[0].ShaderName)
	assert.Zero(t, ss.LightCount())
	assert.Empty(t, ss.ForgetLight(f.state.Shadows[0].Light))
}

func TestShadowSystemPointLightRendersSixFaces(t *testing.T) {
	ss, err := NewShadowSystem(&ShadowSystemConfig{Enabled: true, Type: SHADOW_MAP_TYPE_PCF})
	require.NoError(t, err)
	light := metadata.NewPointLight(math.NewVec3One(), 1, 0)
	light.Shadow.MapWidth, light.Shadow.MapHeight = 64, 64
	f := newShadowFixture(t, light, math.NewVec3(0, 0, 3))

	r := &recordingShadowRenderer{}
	require.NoError(t, ss.Render(f.graph, f.state, r))
	require.Len(t, r.viewports, 6)
	assert.Equal(t, metadata.Rect{X: 128, Y: 64, Width: 64, Height: 64}, r.viewports[0])
	assert.Equal(t, uint32(256), light.Shadow.Map.Width)
	assert.Equal(t, uint32(128), light.Shadow.Map.Height)
	// casters are drawn with the distance material
	assert.Contains(t, r.materials[0], "shadow_distance")
}

func TestShadowSystemRejectsReentry(t *testing.T) {
	ss, err := NewShadowSystem(&ShadowSystemConfig{Enabled: true, Type: SHADOW_MAP_TYPE_PCF})
	require.NoError(t, err)
	f := newShadowFixture(t, metadata.NewSpotLight(math.NewVec3One(), 1, 0, 0.5, 0), math.NewVec3(0, 5, 0))

	var inner error
	r := &recordingShadowRenderer{}
	r.during = func() {
		inner = ss.Render(f.graph, f.state, &recordingShadowRenderer{})
	}
	require.NoError(t, ss.Render(f.graph, f.state, r))
	assert.ErrorIs(t, inner, core.ErrInvalidConfig)
	assert.Equal(t, SHADOW_STATE_IDLE, ss.State())
}

func TestShadowSystemSkipsWhenNothingToDo(t *testing.T) {
	disabled, err := NewShadowSystem(&ShadowSystemConfig{Enabled: false})
	require.NoError(t, err)
	seen := recordTransitions(disabled)
	f := newShadowFixture(t, metadata.NewSpotLight(math.NewVec3One(), 1, 0, 0.5, 0), math.NewVec3(0, 5, 0))
	r := &recordingShadowRenderer{}
	require.NoError(t, disabled.Render(f.graph, f.state, r))
	assert.Empty(t, *seen)
	assert.Empty(t, r.lists)

	ss, err := NewShadowSystem(&ShadowSystemConfig{Enabled: true})
	require.NoError(t, err)
	shadow := f.state.Shadows[0].Light.Shadow
	shadow.AutoUpdate = false
	require.NoError(t, ss.Render(f.graph, f.state, r))
	require.Len(t, r.lists, 1)

	// a static map is kept until asked for again
	require.NoError(t, ss.Render(f.graph, f.state, r))
	assert.Len(t, r.lists, 1)
	shadow.NeedsUpdate = true
	require.NoError(t, ss.Render(f.graph, f.state, r))
	assert.Len(t, r.lists, 2)
	assert.False(t, shadow.NeedsUpdate)

	shadow.MapWidth = 0
	shadow.NeedsUpdate = true
	require.NoError(t, ss.Render(f.graph, f.state, r))
	assert.Len(t, r.lists, 2)
	assert.False(t, shadow.Rendered)
}

func TestNewShadowSystemRequiresConfig(t *testing.T) {
	_, err := NewShadowSystem(nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
