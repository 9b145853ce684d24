package systems

import (
	"testing"

	"github.com/spaghettifunk/prism/engine/renderer/headless"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bindingFixture struct {
	backend    *headless.HeadlessRenderer
	geometries *GeometrySystem
	bindings   *BindingStateCache
	handle     ProgramHandle
	program    *ProgramEntry
}

func newBindingFixture(t *testing.T, options ...headless.Option) *bindingFixture {
	t.Helper()
	backend := newInitializedBackend(t, options...)
	geometries, err := NewGeometrySystem(&GeometrySystemConfig{MaxGeometryCount: 16}, backend)
	require.NoError(t, err)
	pc := newTestProgramCache(t, backend)
	handle := pc.Acquire(BuildProgramParameters(metadata.NewMaterial("m", metadata.MATERIAL_TYPE_LAMBERT), nil, SceneFeatures{}))
	program, err := pc.Get(handle)
	require.NoError(t, err)
	return &bindingFixture{
		backend:    backend,
		geometries: geometries,
		bindings:   NewBindingStateCache(backend, geometries),
		handle:     handle,
		program:    program,
	}
}

func (f *bindingFixture) setup(t *testing.T, drawable uint32, geometry *metadata.Geometry, frame uint64) bool {
	t.Helper()
	require.NoError(t, f.geometries.Update(geometry, frame))
	return f.bindings.Setup(drawable, f.handle, f.program, geometry)
}

func TestBindingStateCacheSkipsUnchangedBindings(t *testing.T) {
	for _, tc := range []struct {
		name    string
		options []headless.Option
	}{
		{"vertex arrays", nil},
		{"default attribute state", []headless.Option{headless.WithoutVertexArrays()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newBindingFixture(t, tc.options...)
			geometry := newQuad("quad")

			assert.True(t, f.setup(t, 1, geometry, 1))
			first := f.backend.Stats()
			// position and normal, the lambert program samples no uv
			assert.Equal(t, uint64(2), first.AttribPointers)
			assert.Equal(t, uint64(1), first.IndexBufferBinds)

			f.backend.ResetStats()
			assert.False(t, f.setup(t, 1, geometry, 2))
			assert.Zero(t, f.backend.Stats().AttribPointers)
			assert.Zero(t, f.backend.Stats().IndexBufferBinds)
			assert.Zero(t, f.backend.Stats().VertexArrayBinds)
			assert.Equal(t, uint64(1), f.bindings.BindingChanges)
		})
	}
}

func TestBindingStateCacheSwitchesBetweenDrawables(t *testing.T) {
	f := newBindingFixture(t)
	a, b := newQuad("a"), newQuad("b")

	f.setup(t, 1, a, 1)
	f.setup(t, 2, b, 1)
	assert.Equal(t, 2, f.bindings.Count())

	f.backend.ResetStats()
	// cached vertex arrays only need to be bound again
	assert.True(t, f.setup(t, 1, a, 2))
	assert.True(t, f.setup(t, 2, b, 2))
	stats := f.backend.Stats()
	assert.Equal(t, uint64(2), stats.VertexArrayBinds)
	assert.Zero(t, stats.AttribPointers)
	assert.Zero(t, stats.VertexArrayCreates)
}

func TestBindingStateCacheRebindsChangedAttribute(t *testing.T) {
	f := newBindingFixture(t)
	geometry := newQuad("quad")
	f.setup(t, 1, geometry, 1)

	f.backend.ResetStats()
	geometry.SetAttribute(metadata.ATTRIBUTE_NORMAL, metadata.NewBufferAttribute([]float32{
		0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0,
	}, 3))
	assert.True(t, f.setup(t, 1, geometry, 2))
	stats := f.backend.Stats()
	assert.Equal(t, uint64(1), stats.BufferCreates)
	assert.Equal(t, uint64(1), stats.AttribPointers)
}

func TestBindingStateCacheRelease(t *testing.T) {
	f := newBindingFixture(t)
	a, b := newQuad("a"), newQuad("b")
	f.setup(t, 1, a, 1)
	f.setup(t, 2, b, 1)
	f.setup(t, 3, b, 1)

	f.bindings.ReleaseByDrawable(1)
	assert.Equal(t, 2, f.bindings.Count())
	f.bindings.ReleaseByGeometry(b)
	assert.Zero(t, f.bindings.Count())

	_, _, vaos, _, _ := f.backend.LiveObjects()
	assert.Zero(t, vaos)

	f.setup(t, 1, a, 2)
	f.bindings.ReleaseByProgram(f.handle)
	assert.Zero(t, f.bindings.Count())
}
