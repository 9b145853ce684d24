package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTolerance = 1e-4

func TestMat4ComposeDecomposeRoundTrip(t *testing.T) {
	position := NewVec3(1, -2, 3)
	rotation := NewQuatFromAxisAngle(NewVec3(1, 1, 0), 0.7, true)
	scale := NewVec3(2, 3, 0.5)

	m := NewMat4Compose(position, rotation, scale)
	p, r, s := m.Decompose()

	assert.True(t, p.Compare(position, testTolerance), "position %v", p)
	assert.True(t, r.Compare(rotation, testTolerance), "rotation %v", r)
	assert.True(t, s.Compare(scale, testTolerance), "scale %v", s)
}

func TestMat4DecomposeMirrored(t *testing.T) {
	m := NewMat4Scale(NewVec3(-2, 1, 1))
	_, r, s := m.Decompose()

	assert.InDelta(t, -2, s.X, testTolerance)
	assert.True(t, r.Compare(NewQuatIdentity(), testTolerance))
	assert.Less(t, m.Determinant(), float32(0))
}

func TestMat4InverseProducesIdentity(t *testing.T) {
	m := NewMat4Compose(
		NewVec3(4, 5, -6),
		NewQuatFromAxisAngle(NewVec3(0, 1, 0), 1.1, false),
		NewVec3(1.5, 1.5, 2),
	)
	product := m.Mul(m.Inverse())
	assert.True(t, product.Compare(NewMat4Identity(), testTolerance), "%v", product.Data)
}

func TestMat4InverseSingular(t *testing.T) {
	m := NewMat4Scale(NewVec3(0, 1, 1))
	assert.Equal(t, Mat4{}, m.Inverse())
}

func TestMat4MulOrderAppliesRightFirst(t *testing.T) {
	translate := NewMat4Translation(NewVec3(1, 0, 0))
	rotate := NewMat4EulerZ(K_HALF_PI)

	// Rotate first, then translate.
	p := NewVec3(1, 0, 0).Transform(translate.Mul(rotate))
	assert.True(t, p.Compare(NewVec3(1, 1, 0), testTolerance), "%v", p)

	// Translate first, then rotate.
	p = NewVec3(1, 0, 0).Transform(rotate.Mul(translate))
	assert.True(t, p.Compare(NewVec3(0, 2, 0), testTolerance), "%v", p)
}

func TestMat4PerspectiveMapsNearAndFar(t *testing.T) {
	proj := NewMat4Perspective(DegToRad(60), 1.5, 0.5, 50)

	near := NewVec3(0, 0, -0.5).Transform(proj)
	far := NewVec3(0, 0, -50).Transform(proj)

	assert.InDelta(t, -1, near.Z, testTolerance)
	assert.InDelta(t, 1, far.Z, 1e-3)
}

func TestMat4OrthographicMapsBox(t *testing.T) {
	proj := NewMat4Orthographic(-10, 10, -5, 5, 0.1, 100)

	p := NewVec3(10, -5, -100).Transform(proj)
	assert.True(t, p.Compare(NewVec3(1, -1, 1), testTolerance), "%v", p)
}

func TestMat4LookAtFacesTarget(t *testing.T) {
	m := NewMat4LookAt(NewVec3(0, 0, 10), NewVec3Zero(), NewVec3Up())
	assert.True(t, m.Forward().Compare(NewVec3(0, 0, -1), testTolerance))
	assert.True(t, m.Position().Compare(NewVec3(0, 0, 10), testTolerance))

	m = NewMat4LookAt(NewVec3(0, 10, 0), NewVec3Zero(), NewVec3Up())
	require.InDelta(t, 1, m.Forward().Length(), testTolerance)
	assert.InDelta(t, -1, m.Forward().Y, 1e-3)
}

func TestMat4MaxScaleOnAxis(t *testing.T) {
	m := NewMat4Compose(NewVec3(3, 3, 3), NewQuatFromAxisAngle(NewVec3(0, 0, 1), 0.3, false), NewVec3(1, 4, 2))
	assert.InDelta(t, 4, m.MaxScaleOnAxis(), testTolerance)
}

func TestTransformCachesLocal(t *testing.T) {
	tr := TransformCreate()
	_, rebuilt := tr.GetLocal()
	assert.True(t, rebuilt)

	_, rebuilt = tr.GetLocal()
	assert.False(t, rebuilt)

	tr.Translate(NewVec3(1, 2, 3))
	local, rebuilt := tr.GetLocal()
	assert.True(t, rebuilt)
	assert.True(t, local.Position().Compare(NewVec3(1, 2, 3), testTolerance))
}
