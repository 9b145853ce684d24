package systems

import (
	"testing"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/headless"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInitializedBackend(t *testing.T, options ...headless.Option) *headless.HeadlessRenderer {
	t.Helper()
	backend := headless.New(options...)
	require.NoError(t, backend.Initialize(&metadata.RendererBackendConfig{ApplicationName: "test", Width: 8, Height: 8}))
	t.Cleanup(func() {
		_ = backend.Shutdown()
	})
	return backend
}

func newTestProgramCache(t *testing.T, backend *headless.HeadlessRenderer) *ProgramCache {
	t.Helper()
	pc, err := NewProgramCache(&ProgramCacheConfig{MaxProgramCount: 8}, backend)
	require.NoError(t, err)
	return pc
}

func TestProgramParametersIgnoreUniformValues(t *testing.T) {
	features := SceneFeatures{Precision: PRECISION_HIGHP}
	a := metadata.NewMaterial("a", metadata.MATERIAL_TYPE_STANDARD)
	b := metadata.NewMaterial("b", metadata.MATERIAL_TYPE_STANDARD)
	b.Color = math.NewVec3(0.2, 0.4, 0.6)
	b.Roughness = 0.1

	pa := BuildProgramParameters(a, nil, features)
	pb := BuildProgramParameters(b, nil, features)
	assert.Equal(t, pa, pb)
	assert.Equal(t, pa.Hash(), pb.Hash())
	assert.Equal(t, pa.CacheKey(), pb.CacheKey())
	assert.Len(t, pa.CacheKey(), 16)

	b.FlatShading = true
	pb = BuildProgramParameters(b, nil, features)
	assert.NotEqual(t, pa, pb)
	assert.NotEqual(t, pa.Hash(), pb.Hash())
}

func TestProgramParametersDefinesAreCanonical(t *testing.T) {
	a := metadata.NewMaterial("a", metadata.MATERIAL_TYPE_BASIC)
	a.Defines["B"] = "2"
	a.Defines["A"] = "1"
	b := metadata.NewMaterial("b", metadata.MATERIAL_TYPE_BASIC)
	b.Defines["A"] = "1"
	b.Defines["B"] = "2"

	pa := BuildProgramParameters(a, nil, SceneFeatures{})
	pb := BuildProgramParameters(b, nil, SceneFeatures{})
	assert.Equal(t, "1:A1:11:B1:2", pa.Defines)
	assert.Equal(t, pa.Hash(), pb.Hash())

	source := pa.Source()
	assert.Contains(t, source.Defines, "A 1")
	assert.Contains(t, source.Defines, "B 2")
}

func TestProgramParametersDefinesWithSeparatorsDoNotCollide(t *testing.T) {
	joined := metadata.NewMaterial("joined", metadata.MATERIAL_TYPE_BASIC)
	joined.Defines["A"] = "1;B=2"
	split := metadata.NewMaterial("split", metadata.MATERIAL_TYPE_BASIC)
	split.Defines["A"] = "1"
	split.Defines["B"] = "2"

	pj := BuildProgramParameters(joined, nil, SceneFeatures{})
	ps := BuildProgramParameters(split, nil, SceneFeatures{})
	assert.NotEqual(t, pj.Defines, ps.Defines)
	assert.NotEqual(t, pj.CacheKey(), ps.CacheKey())
	assert.Contains(t, pj.Source().Defines, "A 1;B=2")
	assert.False(t, pj.Source().HasDefine("B"))

	a := metadata.NewMaterial("a", metadata.MATERIAL_TYPE_BASIC)
	a.Uniforms["u;v:1"] = metadata.UniformFloat(1)
	b := metadata.NewMaterial("b", metadata.MATERIAL_TYPE_BASIC)
	b.Uniforms["u"] = metadata.UniformFloat(1)
	b.Uniforms["v"] = metadata.UniformFloat(1)
	pa := BuildProgramParameters(a, nil, SceneFeatures{})
	pb := BuildProgramParameters(b, nil, SceneFeatures{})
	assert.NotEqual(t, pa.CacheKey(), pb.CacheKey())

	var names []string
	for _, u := range pa.Source().Uniforms {
		names = append(names, u.Name)
	}
	assert.Contains(t, names, "u;v:1")
}

func TestProgramParametersSkinning(t *testing.T) {
	m := metadata.NewMaterial("m", metadata.MATERIAL_TYPE_LAMBERT)
	rigid := BuildProgramParameters(m, nil, SceneFeatures{})
	skinned := BuildProgramParameters(m, nil, SceneFeatures{Skinning: true, BoneCount: 3})
	assert.NotEqual(t, rigid.CacheKey(), skinned.CacheKey())
	assert.Equal(t, uint16(3), skinned.BoneCount)

	wider := BuildProgramParameters(m, nil, SceneFeatures{Skinning: true, BoneCount: 4})
	assert.NotEqual(t, skinned.CacheKey(), wider.CacheKey())

	// a bone count without skinning never splits the key
	stray := BuildProgramParameters(m, nil, SceneFeatures{BoneCount: 3})
	assert.Equal(t, rigid, stray)

	source := skinned.Source()
	assert.True(t, source.HasDefine("USE_SKINNING"))
	assert.Contains(t, source.Defines, "BONE_COUNT 3")
	var attributes []string
	for _, a := range source.Attributes {
		attributes = append(attributes, a.Name)
	}
	assert.Contains(t, attributes, metadata.ATTRIBUTE_SKIN_INDEX)
	assert.Contains(t, attributes, metadata.ATTRIBUTE_SKIN_WEIGHT)
	var bones *metadata.ShaderUniformConfig
	for i := range source.Uniforms {
		if source.Uniforms[i].Name == "boneMatrices" {
			bones = &source.Uniforms[i]
		}
	}
	require.NotNil(t, bones)
	assert.Equal(t, uint16(3), bones.ArraySize)
	assert.False(t, rigid.Source().HasDefine("USE_SKINNING"))
}

func TestProgramParametersLightsOnlyShapeLitMaterials(t *testing.T) {
	lights := &LightsState{}
	lights.Counts[metadata.LIGHT_TYPE_POINT] = 2
	lights.ShadowCounts[metadata.LIGHT_TYPE_POINT] = 1
	features := SceneFeatures{ShadowMapEnabled: true, ShadowMapType: SHADOW_MAP_TYPE_PCF}

	lit := BuildProgramParameters(metadata.NewMaterial("lit", metadata.MATERIAL_TYPE_PHONG), lights, features)
	assert.Equal(t, uint8(2), lit.NumPointLights)
	assert.Equal(t, uint8(1), lit.NumPointLightShadows)
	assert.True(t, lit.ShadowMapEnabled)

	unlit := BuildProgramParameters(metadata.NewMaterial("unlit", metadata.MATERIAL_TYPE_BASIC), lights, features)
	assert.Zero(t, unlit.NumPointLights)
	assert.False(t, unlit.ShadowMapEnabled)
}

func TestProgramParametersRenderingToTarget(t *testing.T) {
	m := metadata.NewMaterial("m", metadata.MATERIAL_TYPE_STANDARD)
	features := SceneFeatures{ToneMapping: TONE_MAPPING_ACES_FILMIC, OutputColorSpace: metadata.COLOR_SPACE_SRGB}

	screen := BuildProgramParameters(m, nil, features)
	assert.Equal(t, TONE_MAPPING_ACES_FILMIC, screen.ToneMapping)

	features.RenderingToTarget = true
	offscreen := BuildProgramParameters(m, nil, features)
	assert.Equal(t, TONE_MAPPING_NONE, offscreen.ToneMapping)
	assert.Equal(t, metadata.COLOR_SPACE_LINEAR, offscreen.OutputColorSpace)
}

func TestProgramSourceDeclaresMapsAndUVs(t *testing.T) {
	m := metadata.NewMaterial("m", metadata.MATERIAL_TYPE_STANDARD)
	m.SetMap(metadata.MAP_SLOT_NORMAL, metadata.NewTexture("normal", 1, 1, 4, []uint8{128, 128, 255, 255}), 1)
	p := BuildProgramParameters(m, nil, SceneFeatures{})
	source := p.Source()

	assert.Equal(t, "standard", source.Name)
	var attributes []string
	for _, a := range source.Attributes {
		attributes = append(attributes, a.Name)
	}
	assert.Contains(t, attributes, metadata.ATTRIBUTE_UV1)
	assert.NotContains(t, attributes, metadata.ATTRIBUTE_UV)

	var uniforms []string
	for _, u := range source.Uniforms {
		uniforms = append(uniforms, u.Name)
	}
	assert.Contains(t, uniforms, metadata.MAP_SLOT_NORMAL.String())
	assert.Contains(t, uniforms, "modelViewMatrix")
}

func TestProgramCacheAcquireRelease(t *testing.T) {
	backend := newInitializedBackend(t)
	pc := newTestProgramCache(t, backend)
	params := BuildProgramParameters(metadata.NewMaterial("m", metadata.MATERIAL_TYPE_LAMBERT), nil, SceneFeatures{})

	h1 := pc.Acquire(params)
	h2 := pc.Acquire(params)
	assert.Equal(t, h1, h2)
	assert.Equal(t, uint64(1), pc.Compilations)
	assert.Equal(t, uint64(1), pc.Hits)

	entry, err := pc.Get(h1)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.UsageCount)
	assert.NotZero(t, entry.Program)
	assert.NotEmpty(t, entry.Attributes)
	assert.Contains(t, entry.Label, "lambert_")

	require.NoError(t, pc.ReleaseProgram(h1))
	assert.True(t, pc.Valid(h2))
	require.NoError(t, pc.ReleaseProgram(h2))
	assert.False(t, pc.Valid(h2))
	assert.Zero(t, pc.Count())

	_, err = pc.Get(h1)
	assert.ErrorIs(t, err, core.ErrStaleHandle)
	assert.ErrorIs(t, pc.ReleaseProgram(h1), core.ErrStaleHandle)

	programs, _, _, _, _ := backend.LiveObjects()
	assert.Zero(t, programs)
	assert.Equal(t, uint64(1), backend.Stats().ProgramDestroys)
}

func TestProgramCacheReusesSlotsWithNewGeneration(t *testing.T) {
	backend := newInitializedBackend(t)
	pc := newTestProgramCache(t, backend)
	lambert := BuildProgramParameters(metadata.NewMaterial("l", metadata.MATERIAL_TYPE_LAMBERT), nil, SceneFeatures{})
	phong := BuildProgramParameters(metadata.NewMaterial("p", metadata.MATERIAL_TYPE_PHONG), nil, SceneFeatures{})

	old := pc.Acquire(lambert)
	require.NoError(t, pc.ReleaseProgram(old))
	fresh := pc.Acquire(phong)

	assert.NotEqual(t, old, fresh)
	assert.False(t, pc.Valid(old))
	assert.True(t, pc.Valid(fresh))
	_, ok := pc.Lookup(lambert)
	assert.False(t, ok)
	found, ok := pc.Lookup(phong)
	assert.True(t, ok)
	assert.Equal(t, fresh, found)
}

func TestProgramCacheInvalidateMakesHandlesStale(t *testing.T) {
	backend := newInitializedBackend(t)
	pc := newTestProgramCache(t, backend)
	h := pc.Acquire(BuildProgramParameters(metadata.NewMaterial("m", metadata.MATERIAL_TYPE_TOON), nil, SceneFeatures{}))

	pc.Invalidate()
	assert.False(t, pc.Valid(h))
	assert.Zero(t, pc.Count())
	assert.Zero(t, backend.Stats().ProgramDestroys)
}

func TestProgramCacheStandIn(t *testing.T) {
	backend := newInitializedBackend(t)
	backend.FailCompile(func(source *metadata.ProgramSource) bool {
		return source.Name == "phong"
	})
	pc := newTestProgramCache(t, backend)

	var codes []metadata.DiagnosticCode
	pc.onDiagnostic = func(severity metadata.DiagnosticSeverity, code metadata.DiagnosticCode, err error, format string, args ...interface{}) {
		assert.ErrorIs(t, err, core.ErrCompileFailed)
		codes = append(codes, code)
	}

	params := BuildProgramParameters(metadata.NewMaterial("p", metadata.MATERIAL_TYPE_PHONG), nil, SceneFeatures{})
	h := pc.Acquire(params)
	entry, err := pc.Get(h)
	require.NoError(t, err)
	assert.True(t, entry.IsStandIn())
	assert.Equal(t, metadata.SHADER_STATE_FAILED, entry.State)
	assert.Zero(t, entry.Program)

	pc.Acquire(params)
	assert.Equal(t, uint64(1), pc.Compilations)
	assert.Equal(t, []metadata.DiagnosticCode{metadata.DIAGNOSTIC_CODE_COMPILATION}, codes)
}

func TestNewProgramCacheValidatesConfig(t *testing.T) {
	_, err := NewProgramCache(&ProgramCacheConfig{}, headless.New())
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
	_, err = NewProgramCache(&ProgramCacheConfig{MaxProgramCount: 1}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestUniformCacheSkipsEqualValues(t *testing.T) {
	backend := newInitializedBackend(t)
	pc := newTestProgramCache(t, backend)
	entry, err := pc.Get(pc.Acquire(BuildProgramParameters(metadata.NewMaterial("m", metadata.MATERIAL_TYPE_BASIC), nil, SceneFeatures{})))
	require.NoError(t, err)
	uc := entry.Uniforms

	assert.True(t, uc.UploadByName("opacity", metadata.UniformFloat(0.5)))
	assert.False(t, uc.UploadByName("opacity", metadata.UniformFloat(0.5)))
	assert.True(t, uc.UploadByName("opacity", metadata.UniformFloat(0.25)))
	assert.False(t, uc.UploadByName("notDeclared", metadata.UniformFloat(1)))
	assert.Equal(t, uint64(2), uc.Uploads)
	assert.Equal(t, uint64(1), uc.Skips)

	slot := uc.Slot("opacity")
	require.NotNil(t, slot)
	value, ok := backend.UniformValue(entry.Program, slot.Location)
	require.True(t, ok)
	assert.Equal(t, []float32{0.25}, value.Floats)

	// the cache keeps its own copy of slices handed in
	data := []float32{1, 0, 0}
	assert.True(t, uc.UploadByName("diffuse", metadata.UniformFloats(metadata.ShaderUniformTypeFloat32_3, data)))
	data[0] = 0
	assert.True(t, uc.UploadByName("diffuse", metadata.UniformFloats(metadata.ShaderUniformTypeFloat32_3, data)))

	uc.Reset()
	assert.True(t, uc.UploadByName("opacity", metadata.UniformFloat(0.25)))
}

func TestUniformCacheBeginPass(t *testing.T) {
	uc := NewUniformCache(headless.New(), 0, nil)
	assert.True(t, uc.BeginPass(1))
	assert.False(t, uc.BeginPass(1))
	assert.True(t, uc.BeginPass(2))
	uc.Reset()
	assert.True(t, uc.BeginPass(2))
}
