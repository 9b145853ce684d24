package systems

import (
	"context"
	"testing"
	"time"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/headless"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFrameBeforeInitialize(t *testing.T) {
	r, err := NewRendererSystem(testRendererConfig(), headless.New())
	require.NoError(t, err)

	err = r.RenderFrame(scene.NewGraph(), newTestCamera())
	assert.ErrorIs(t, err, core.ErrNotInitialized)

	_, err = r.ReadPixels(context.Background(), nil, metadata.Rect{Width: 1, Height: 1})
	assert.ErrorIs(t, err, core.ErrNotInitialized)
}

func TestNewRendererSystemRejectsUnknownEnums(t *testing.T) {
	config := testRendererConfig()
	config.ShadowMapType = "blurry"
	_, err := NewRendererSystem(config, headless.New())
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	_, err = NewRendererSystem(nil, headless.New())
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestRenderFrameCullsOutsideFrustum(t *testing.T) {
	r, _ := newTestRenderer(t, nil)
	g := scene.NewGraph()
	geometry := newQuad("quad")
	material := metadata.NewMaterial("lambert", metadata.MATERIAL_TYPE_LAMBERT)

	for i := 0; i < 60; i++ {
		x := float32(i%10) - 5
		y := float32(i/10) - 3
		addDrawable(t, g, "inside", math.NewVec3(x, y, -10), geometry, material)
	}
	// centred on the right frustum plane
	for i := 0; i < 30; i++ {
		addDrawable(t, g, "straddling", math.NewVec3(10, 0, -10), geometry, material)
	}
	// behind the camera
	for i := 0; i < 10; i++ {
		addDrawable(t, g, "outside", math.NewVec3(0, 0, 10), geometry, material)
	}

	require.NoError(t, r.RenderFrame(g, newTestCamera()))

	info := r.Info()
	assert.Equal(t, 90, info.Visible)
	assert.Equal(t, 10, info.Culled)
	assert.Equal(t, 90, info.Calls)
	assert.Equal(t, 180, info.Triangles)
	assert.Equal(t, 1, info.Programs)
	assert.Equal(t, uint64(1), info.Frame)
}

func TestProgramsAreSharedBetweenEquivalentMaterials(t *testing.T) {
	r, _ := newTestRenderer(t, nil)
	g := scene.NewGraph()
	a := metadata.NewMaterial("a", metadata.MATERIAL_TYPE_LAMBERT)
	b := metadata.NewMaterial("b", metadata.MATERIAL_TYPE_LAMBERT)
	b.Color = math.NewVec3(1, 0, 0)
	addDrawable(t, g, "a", math.NewVec3(-1, 0, -5), newQuad("qa"), a)
	addDrawable(t, g, "b", math.NewVec3(1, 0, -5), newQuad("qb"), b)

	require.NoError(t, r.RenderFrame(g, newTestCamera()))

	entries := r.Programs().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].UsageCount)
	assert.False(t, entries[0].IsStandIn())
}

func TestMaterialFactorsAreUploadedSaturated(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	g := scene.NewGraph()
	m := metadata.NewMaterial("standard", metadata.MATERIAL_TYPE_STANDARD)
	m.Roughness = 3
	m.Metalness = -1
	addDrawable(t, g, "quad", math.NewVec3(0, 0, -5), newQuad("quad"), m)

	require.NoError(t, r.RenderFrame(g, newTestCamera()))
	entries := r.Programs().Entries()
	require.Len(t, entries, 1)
	for name, want := range map[string]float32{"roughness": 1, "metalness": 0, "opacity": 1} {
		slot := entries[0].Uniforms.Slot(name)
		require.NotNil(t, slot, name)
		value, ok := backend.UniformValue(entries[0].Program, slot.Location)
		require.True(t, ok, name)
		assert.Equal(t, []float32{want}, value.Floats, name)
	}
	assert.Equal(t, float32(3), m.Roughness)
}

func TestVertexColorsSelectAnotherProgram(t *testing.T) {
	r, _ := newTestRenderer(t, nil)
	g := scene.NewGraph()
	material := metadata.NewMaterial("coloured", metadata.MATERIAL_TYPE_BASIC)
	material.VertexColors = true

	plain := newQuad("plain")
	coloured := newQuad("coloured")
	coloured.SetAttribute(metadata.ATTRIBUTE_COLOR, metadata.NewBufferAttribute([]float32{
		1, 0, 0, 0, 1, 0, 0, 0, 1, 1, 1, 1,
	}, 3))
	addDrawable(t, g, "plain", math.NewVec3(-1, 0, -5), plain, material)
	addDrawable(t, g, "coloured", math.NewVec3(1, 0, -5), coloured, material)

	require.NoError(t, r.RenderFrame(g, newTestCamera()))

	entries := r.Programs().Entries()
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].Parameters.VertexColors, entries[1].Parameters.VertexColors)
	assert.Equal(t, 2, r.Info().Calls)
}

func TestSkinnedDrawableSelectsAnotherProgram(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	g := scene.NewGraph()
	material := metadata.NewMaterial("lambert", metadata.MATERIAL_TYPE_LAMBERT)

	skinned := newQuad("skinned")
	skinned.SetAttribute(metadata.ATTRIBUTE_SKIN_INDEX, metadata.NewBufferAttribute([]float32{
		0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0,
	}, 4))
	skinned.SetAttribute(metadata.ATTRIBUTE_SKIN_WEIGHT, metadata.NewBufferAttribute([]float32{
		1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0,
	}, 4))
	addDrawable(t, g, "rigid", math.NewVec3(-1, 0, -5), newQuad("rigid"), material)
	n := addDrawable(t, g, "skinned", math.NewVec3(1, 0, -5), skinned, material)
	n.Drawable.BoneMatrices = []math.Mat4{math.NewMat4Identity(), math.NewMat4Translation(math.NewVec3(0, 1, 0))}

	require.NoError(t, r.RenderFrame(g, newTestCamera()))
	assert.Equal(t, 2, r.Info().Calls)

	entries := r.Programs().Entries()
	require.Len(t, entries, 2)
	var entry *ProgramEntry
	for _, e := range entries {
		if e.Parameters.Skinning {
			entry = e
		}
	}
	require.NotNil(t, entry)
	assert.Equal(t, uint16(2), entry.Parameters.BoneCount)
	var attributes []string
	for _, a := range entry.Attributes {
		attributes = append(attributes, a.Name)
	}
	assert.Contains(t, attributes, metadata.ATTRIBUTE_SKIN_INDEX)
	assert.Contains(t, attributes, metadata.ATTRIBUTE_SKIN_WEIGHT)

	slot := entry.Uniforms.Slot("boneMatrices")
	require.NotNil(t, slot)
	value, ok := backend.UniformValue(entry.Program, slot.Location)
	require.True(t, ok)
	require.Len(t, value.Floats, 32)
	assert.Equal(t, float32(1), value.Floats[16+13])
}

func TestSteadyFrameIssuesNoRedundantCalls(t *testing.T) {
	for _, tc := range []struct {
		name    string
		options []headless.Option
	}{
		{"vertex arrays", nil},
		{"default attribute state", []headless.Option{headless.WithoutVertexArrays()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r, backend := newTestRenderer(t, nil, tc.options...)
			g := scene.NewGraph()
			addDrawable(t, g, "quad", math.NewVec3(0, 0, -5), newQuad("quad"),
				metadata.NewMaterial("phong", metadata.MATERIAL_TYPE_PHONG))
			camera := newTestCamera()

			require.NoError(t, r.RenderFrame(g, camera))
			first := backend.Stats()
			assert.Equal(t, uint64(1), first.ProgramCreates)
			assert.NotZero(t, first.UniformUploads)
			assert.NotZero(t, first.AttribPointers)

			backend.ResetStats()
			require.NoError(t, r.RenderFrame(g, camera))
			second := backend.Stats()
			assert.Zero(t, second.ProgramCreates)
			assert.Zero(t, second.ProgramUses)
			assert.Zero(t, second.UniformUploads)
			assert.Zero(t, second.AttribPointers)
			assert.Zero(t, second.BufferCreates)
			assert.Zero(t, second.BufferUpdates)
			assert.Equal(t, uint64(1), second.Draws)

			info := r.Info()
			assert.Zero(t, info.UniformUploads)
			assert.NotZero(t, info.UniformSkips)
			assert.Zero(t, info.BufferUploads)
			assert.Zero(t, info.BindingChanges)
		})
	}
}

func TestMovingCameraOnlyUploadsViewDependentUniforms(t *testing.T) {
	r, backend := newTestRenderer(t, nil, headless.WithRecording())
	g := scene.NewGraph()
	addDrawable(t, g, "quad", math.NewVec3(0, 0, -5), newQuad("quad"),
		metadata.NewMaterial("basic", metadata.MATERIAL_TYPE_BASIC))
	camera := newTestCamera()
	require.NoError(t, r.RenderFrame(g, camera))

	backend.ResetStats()
	camera.SetPosition(math.NewVec3(0.5, 0, 0))
	require.NoError(t, r.RenderFrame(g, camera))

	names := make(map[string]bool)
	for _, u := range backend.Uniforms() {
		names[u.Name] = true
	}
	assert.True(t, names["viewMatrix"])
	assert.True(t, names["modelViewMatrix"])
	assert.False(t, names["projectionMatrix"])
	assert.False(t, names["modelMatrix"])
	assert.False(t, names["diffuse"])
}

func TestCompileFailureDrawsNothingAndIsNotRetried(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	backend.FailCompile(func(source *metadata.ProgramSource) bool { return true })

	var seen []metadata.Diagnostic
	r.SetDiagnosticHandler(func(d metadata.Diagnostic) {
		seen = append(seen, d)
	})

	g := scene.NewGraph()
	addDrawable(t, g, "quad", math.NewVec3(0, 0, -5), newQuad("quad"),
		metadata.NewMaterial("standard", metadata.MATERIAL_TYPE_STANDARD))
	camera := newTestCamera()

	require.NoError(t, r.RenderFrame(g, camera))
	require.NoError(t, r.RenderFrame(g, camera))

	info := r.Info()
	assert.Zero(t, info.Calls)
	assert.Equal(t, 1, info.SkippedDraws)
	assert.Equal(t, uint64(1), r.Programs().Compilations)
	assert.Zero(t, backend.Stats().Draws)

	assert.True(t, hasDiagnostic(seen, metadata.DIAGNOSTIC_CODE_COMPILATION))
	assert.True(t, hasDiagnostic(r.Diagnostics(), metadata.DIAGNOSTIC_CODE_COMPILATION))
	entries := r.Programs().Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsStandIn())
}

func TestContextLossSkipsFramesAndRebuildsOnRestore(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	g := scene.NewGraph()
	addDrawable(t, g, "quad", math.NewVec3(0, 0, -5), newQuad("quad"),
		metadata.NewMaterial("lambert", metadata.MATERIAL_TYPE_LAMBERT))
	camera := newTestCamera()
	require.NoError(t, r.RenderFrame(g, camera))
	require.Equal(t, 1, r.Info().Programs)

	backend.LoseContext()
	assert.True(t, hasDiagnostic(r.Diagnostics(), metadata.DIAGNOSTIC_CODE_CONTEXT_LOST))
	assert.Zero(t, r.Info().Programs)
	assert.Zero(t, r.Info().Geometries)

	backend.ResetStats()
	require.NoError(t, r.RenderFrame(g, camera))
	assert.Zero(t, backend.Stats().Draws)
	assert.Equal(t, uint64(1), r.Info().Frame)

	_, err := r.ReadPixels(context.Background(), nil, metadata.Rect{Width: 1, Height: 1})
	assert.ErrorIs(t, err, core.ErrContextLost)

	backend.RestoreContext()
	require.NoError(t, r.RenderFrame(g, camera))
	stats := backend.Stats()
	assert.Equal(t, uint64(1), stats.ProgramCreates)
	assert.Equal(t, uint64(1), stats.Draws)
	assert.Equal(t, 1, r.Info().Calls)
}

func TestContextEventsOfOtherBackendsAreIgnored(t *testing.T) {
	r, _ := newTestRenderer(t, nil)
	_, other := newTestRenderer(t, nil)

	other.LoseContext()
	assert.False(t, hasDiagnostic(r.Diagnostics(), metadata.DIAGNOSTIC_CODE_CONTEXT_LOST))

	g := scene.NewGraph()
	addDrawable(t, g, "quad", math.NewVec3(0, 0, -5), newQuad("quad"),
		metadata.NewMaterial("basic", metadata.MATERIAL_TYPE_BASIC))
	require.NoError(t, r.RenderFrame(g, newTestCamera()))
	assert.Equal(t, 1, r.Info().Calls)
	other.RestoreContext()
}

func TestReadPixelsReturnsClearColour(t *testing.T) {
	config := testRendererConfig()
	config.ClearColor = [4]float32{1, 0, 0, 1}
	r, _ := newTestRenderer(t, config)

	require.NoError(t, r.RenderFrame(scene.NewGraph(), newTestCamera()))
	pixels, err := r.ReadPixels(context.Background(), nil, metadata.Rect{X: 1, Y: 1, Width: 2, Height: 2})
	require.NoError(t, err)
	assert.Equal(t, []uint8{
		255, 0, 0, 255, 255, 0, 0, 255,
		255, 0, 0, 255, 255, 0, 0, 255,
	}, pixels)

	_, err = r.ReadPixels(context.Background(), metadata.NewRenderTarget("never", 4, 4, metadata.RENDER_TARGET_ATTACHMENT_TYPE_COLOUR),
		metadata.Rect{Width: 1, Height: 1})
	assert.ErrorIs(t, err, core.ErrInvalidHandle)
}

func TestReadPixelsHonoursContext(t *testing.T) {
	r, _ := newTestRenderer(t, nil, headless.WithFenceLatency(time.Second))
	require.NoError(t, r.RenderFrame(scene.NewGraph(), newTestCamera()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.ReadPixels(ctx, nil, metadata.Rect{Width: 1, Height: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderViewsIntoTarget(t *testing.T) {
	r, backend := newTestRenderer(t, nil, headless.WithRecording())
	g := scene.NewGraph()
	addDrawable(t, g, "quad", math.NewVec3(0, 0, -5), newQuad("quad"),
		metadata.NewMaterial("basic", metadata.MATERIAL_TYPE_BASIC))
	target := metadata.NewRenderTarget("offscreen", 16, 16,
		metadata.RENDER_TARGET_ATTACHMENT_TYPE_COLOUR|metadata.RENDER_TARGET_ATTACHMENT_TYPE_DEPTH)

	require.NoError(t, r.RenderViews(g,
		View{Camera: newTestCamera()},
		View{Camera: newTestCamera(), Target: target, Clear: true},
	))

	require.NotZero(t, target.InternalID)
	draws := backend.Draws()
	require.Len(t, draws, 2)
	assert.Zero(t, draws[0].Target)
	assert.Equal(t, target.InternalID, draws[1].Target)

	pixels, err := r.ReadPixels(context.Background(), target, metadata.Rect{Width: 1, Height: 1})
	require.NoError(t, err)
	assert.Len(t, pixels, 4)

	assert.ErrorIs(t, r.RenderViews(g, View{}), core.ErrInvalidConfig)
}

func TestGeometryGroupsDrawOncePerMaterial(t *testing.T) {
	r, backend := newTestRenderer(t, nil, headless.WithRecording())
	g := scene.NewGraph()
	geometry := newQuad("grouped")
	geometry.AddGroup(0, 3, 0)
	geometry.AddGroup(3, 3, 1)
	addDrawable(t, g, "grouped", math.NewVec3(0, 0, -5), geometry,
		metadata.NewMaterial("first", metadata.MATERIAL_TYPE_BASIC),
		metadata.NewMaterial("second", metadata.MATERIAL_TYPE_LAMBERT))

	require.NoError(t, r.RenderFrame(g, newTestCamera()))

	assert.Equal(t, 2, r.Info().Calls)
	draws := backend.Draws()
	require.Len(t, draws, 2)
	starts := []uint32{draws[0].Call.Start, draws[1].Call.Start}
	assert.ElementsMatch(t, []uint32{0, 3}, starts)
	for _, d := range draws {
		assert.Equal(t, uint32(3), d.Call.Count)
		assert.True(t, d.Call.Indexed)
	}
}

func TestTransmissionRendersOpaqueBackdrop(t *testing.T) {
	r, backend := newTestRenderer(t, nil, headless.WithRecording())
	g := scene.NewGraph()
	addDrawable(t, g, "wall", math.NewVec3(0, 0, -8), newQuad("wall"),
		metadata.NewMaterial("wall", metadata.MATERIAL_TYPE_STANDARD))
	glass := metadata.NewMaterial("glass", metadata.MATERIAL_TYPE_PHYSICAL)
	glass.Transmission = 0.9
	addDrawable(t, g, "glass", math.NewVec3(0, 0, -5), newQuad("glass"), glass)

	require.NoError(t, r.RenderFrame(g, newTestCamera()))

	assert.Equal(t, uint64(1), backend.Stats().TargetCreates)
	// the wall twice, once into the backdrop, plus the glass
	assert.Equal(t, 3, r.Info().Calls)
	draws := backend.Draws()
	require.Len(t, draws, 3)
	assert.NotZero(t, draws[0].Target)
	assert.Zero(t, draws[1].Target)
	assert.Zero(t, draws[2].Target)
}

func TestShadowLightsBeyondLimitRaiseDiagnostic(t *testing.T) {
	config := testRendererConfig()
	config.MaxShadowLights = 1
	r, _ := newTestRenderer(t, config)

	g := scene.NewGraph()
	caster := addDrawable(t, g, "caster", math.NewVec3(0, 0, -5), newQuad("caster"),
		metadata.NewMaterial("lambert", metadata.MATERIAL_TYPE_LAMBERT))
	caster.Drawable.CastShadow = true

	first := metadata.NewDirectionalLight(math.NewVec3One(), 1)
	first.CastShadow = true
	second := metadata.NewDirectionalLight(math.NewVec3One(), 1)
	second.CastShadow = true
	addLight(t, g, "first", math.NewVec3(0, 10, 0), first)
	addLight(t, g, "second", math.NewVec3(0, 10, 1), second)

	require.NoError(t, r.RenderFrame(g, newTestCamera()))

	assert.True(t, hasDiagnostic(r.Diagnostics(), metadata.DIAGNOSTIC_CODE_RESOURCE_LIMIT))
	assert.Equal(t, 1, r.Info().ShadowMaps)
	assert.True(t, first.Shadow.Rendered)
	assert.False(t, second.Shadow.Rendered)
	require.NotNil(t, first.Shadow.Map)
	assert.NotZero(t, first.Shadow.Map.InternalID)
}

func TestShadowWithEmptyMapIsSkipped(t *testing.T) {
	r, _ := newTestRenderer(t, nil)
	g := scene.NewGraph()
	caster := addDrawable(t, g, "caster", math.NewVec3(0, 0, -5), newQuad("caster"),
		metadata.NewMaterial("lambert", metadata.MATERIAL_TYPE_LAMBERT))
	caster.Drawable.CastShadow = true

	light := metadata.NewSpotLight(math.NewVec3One(), 1, 0, math.DegToRad(30), 0.1)
	light.CastShadow = true
	light.Shadow.MapWidth = 0
	addLight(t, g, "spot", math.NewVec3(0, 5, -5), light)

	require.NoError(t, r.RenderFrame(g, newTestCamera()))
	assert.Zero(t, r.Info().ShadowMaps)
	assert.False(t, light.Shadow.Rendered)
	assert.Nil(t, light.Shadow.Map)
	assert.Equal(t, 1, r.Info().Calls)
}

func TestShadowMapShrunkToZeroKeepsPreviousMap(t *testing.T) {
	r, _ := newTestRenderer(t, nil)
	g := scene.NewGraph()
	caster := addDrawable(t, g, "caster", math.NewVec3(0, 0, -5), newQuad("caster"),
		metadata.NewMaterial("lambert", metadata.MATERIAL_TYPE_LAMBERT))
	caster.Drawable.CastShadow = true
	caster.Drawable.ReceiveShadow = true

	light := metadata.NewSpotLight(math.NewVec3One(), 1, 0, math.DegToRad(30), 0.1)
	light.CastShadow = true
	addLight(t, g, "spot", math.NewVec3(0, 5, -5), light)

	require.NoError(t, r.RenderFrame(g, newTestCamera()))
	require.Equal(t, 1, r.Info().ShadowMaps)
	require.True(t, light.Shadow.Rendered)
	previous := light.Shadow.Map
	require.NotNil(t, previous)

	light.Shadow.MapWidth = 0
	light.Shadow.NeedsUpdate = true
	require.NoError(t, r.RenderFrame(g, newTestCamera()))
	assert.Zero(t, r.Info().ShadowMaps)
	assert.True(t, light.Shadow.Rendered)
	assert.Same(t, previous, light.Shadow.Map)

	spots := r.shadowMaps[metadata.LIGHT_TYPE_SPOT]
	require.Len(t, spots, 1)
	assert.Same(t, previous.Texture, spots[0])
}

func TestDisposeReleasesEveryBackendObject(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	g := scene.NewGraph()
	caster := addDrawable(t, g, "caster", math.NewVec3(0, 0, -5), newQuad("caster"),
		metadata.NewMaterial("lambert", metadata.MATERIAL_TYPE_LAMBERT))
	caster.Drawable.CastShadow = true
	glass := metadata.NewMaterial("glass", metadata.MATERIAL_TYPE_PHYSICAL)
	glass.Transmission = 0.5
	addDrawable(t, g, "glass", math.NewVec3(1, 0, -4), newQuad("glass"), glass)
	light := metadata.NewPointLight(math.NewVec3One(), 1, 20)
	light.CastShadow = true
	addLight(t, g, "point", math.NewVec3(0, 3, -5), light)

	require.NoError(t, r.RenderFrame(g, newTestCamera()))
	programs, buffers, vaos, _, targets := backend.LiveObjects()
	require.NotZero(t, programs)
	require.NotZero(t, buffers)
	require.NotZero(t, vaos)
	require.NotZero(t, targets)

	require.NoError(t, r.Dispose())
	programs, buffers, vaos, textures, targets := backend.LiveObjects()
	assert.Zero(t, programs)
	assert.Zero(t, buffers)
	assert.Zero(t, vaos)
	assert.Zero(t, textures)
	assert.Zero(t, targets)

	assert.ErrorIs(t, r.RenderFrame(g, newTestCamera()), core.ErrDisposed)
	assert.NoError(t, r.Dispose())
}

func TestDisposedGeometryReleasesItsBuffers(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	g := scene.NewGraph()
	geometry := newQuad("quad")
	addDrawable(t, g, "quad", math.NewVec3(0, 0, -5), geometry,
		metadata.NewMaterial("basic", metadata.MATERIAL_TYPE_BASIC))
	camera := newTestCamera()

	require.NoError(t, r.RenderFrame(g, camera))
	_, buffers, vaos, _, _ := backend.LiveObjects()
	// position, normal, uv and the index
	require.Equal(t, 4, buffers)
	require.Equal(t, 1, vaos)

	geometry.Dispose()
	_, buffers, vaos, _, _ = backend.LiveObjects()
	assert.Zero(t, buffers)
	assert.Zero(t, vaos)
	assert.Zero(t, r.Info().Geometries)

	require.NoError(t, r.RenderFrame(g, camera))
	assert.Zero(t, r.Info().Calls)
}

func TestRemovedDrawableReleasesItsBindings(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	g := scene.NewGraph()
	node := addDrawable(t, g, "quad", math.NewVec3(0, 0, -5), newQuad("quad"),
		metadata.NewMaterial("basic", metadata.MATERIAL_TYPE_BASIC))

	require.NoError(t, r.RenderFrame(g, newTestCamera()))
	require.Equal(t, 1, r.Info().Bindings)

	require.NoError(t, g.Remove(node.Handle()))
	assert.Zero(t, r.Info().Bindings)
	_, _, vaos, _, _ := backend.LiveObjects()
	assert.Zero(t, vaos)
}

func TestRemovedLightReleasesItsShadowResources(t *testing.T) {
	config := testRendererConfig()
	config.ShadowMapType = "vsm"
	r, backend := newTestRenderer(t, config)
	g := scene.NewGraph()
	caster := addDrawable(t, g, "caster", math.NewVec3(0, 0, -5), newQuad("caster"),
		metadata.NewMaterial("lambert", metadata.MATERIAL_TYPE_LAMBERT))
	caster.Drawable.CastShadow = true
	light := metadata.NewDirectionalLight(math.NewVec3One(), 1)
	light.CastShadow = true
	node := addLight(t, g, "sun", math.NewVec3(0, 5, -5), light)

	require.NoError(t, r.RenderFrame(g, newTestCamera()))
	require.Equal(t, 1, r.Info().ShadowMaps)
	require.NotNil(t, light.Shadow.MapPass)
	require.Equal(t, 1, r.shadows.LightCount())
	programs, _, _, _, targets := backend.LiveObjects()

	require.NoError(t, g.Remove(node.Handle()))
	assert.Zero(t, r.shadows.LightCount())
	assert.Nil(t, light.Shadow.Map)
	assert.Nil(t, light.Shadow.MapPass)
	assert.False(t, light.Shadow.Rendered)
	programsAfter, _, _, _, targetsAfter := backend.LiveObjects()
	assert.Equal(t, targets-2, targetsAfter)
	assert.Less(t, programsAfter, programs)

	require.NoError(t, r.RenderFrame(g, newTestCamera()))
	assert.Zero(t, r.Info().ShadowMaps)
	assert.Equal(t, 1, r.Info().Calls)
}

func TestDisposedMaterialReleasesItsProgram(t *testing.T) {
	r, backend := newTestRenderer(t, nil)
	g := scene.NewGraph()
	material := metadata.NewMaterial("toon", metadata.MATERIAL_TYPE_TOON)
	node := addDrawable(t, g, "quad", math.NewVec3(0, 0, -5), newQuad("quad"), material)

	require.NoError(t, r.RenderFrame(g, newTestCamera()))
	require.NoError(t, g.Remove(node.Handle()))
	material.Dispose()

	programs, _, _, _, _ := backend.LiveObjects()
	assert.Zero(t, programs)
	assert.Zero(t, r.Info().Programs)
}

func TestResize(t *testing.T) {
	r, _ := newTestRenderer(t, nil)
	require.NoError(t, r.OnResize(32, 16))
	w, h := r.Size()
	assert.Equal(t, uint32(32), w)
	assert.Equal(t, uint32(16), h)
	assert.ErrorIs(t, r.OnResize(0, 16), core.ErrInvalidConfig)

	core.EventFire(core.EVENT_CODE_RESIZED, nil, core.EventContext{Data: &core.ResizeEvent{Width: 8, Height: 8}})
	w, h = r.Size()
	assert.Equal(t, uint32(8), w)
	assert.Equal(t, uint32(8), h)

	require.NoError(t, r.RenderFrame(scene.NewGraph(), newTestCamera()))
	_, err := r.ReadPixels(context.Background(), nil, metadata.Rect{Width: 8, Height: 8})
	assert.NoError(t, err)
}
