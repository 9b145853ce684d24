package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func orthoTestFrustum() Frustum {
	proj := NewMat4Orthographic(-10, 10, -10, 10, 0.1, 100)
	view := NewMat4Identity()
	return NewFrustumFromMatrix(proj.Mul(view))
}

func TestFrustumPlanesAreNormalized(t *testing.T) {
	f := NewFrustumFromMatrix(NewMat4Perspective(DegToRad(75), 16.0/9.0, 0.1, 1000))
	for i, p := range f.Planes {
		assert.InDelta(t, 1, p.Normal.Length(), testTolerance, "plane %d", i)
	}
}

func TestFrustumSphereClassification(t *testing.T) {
	f := orthoTestFrustum()

	testCases := []struct {
		name   string
		sphere Sphere
		want   bool
	}{
		{"inside", Sphere{Center: NewVec3(0, 0, -10), Radius: 1}, true},
		{"straddles right plane", Sphere{Center: NewVec3(10.5, 0, -10), Radius: 1}, true},
		{"outside right plane", Sphere{Center: NewVec3(20, 0, -10), Radius: 1}, false},
		{"behind camera", Sphere{Center: NewVec3(0, 0, 5), Radius: 1}, false},
		{"beyond far plane", Sphere{Center: NewVec3(0, 0, -120), Radius: 1}, false},
		{"empty", NewSphereEmpty(), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, f.IntersectsSphere(tc.sphere))
		})
	}
}

func TestFrustumBoxClassification(t *testing.T) {
	f := orthoTestFrustum()

	inside := Extents3D{Min: NewVec3(-1, -1, -11), Max: NewVec3(1, 1, -9)}
	straddle := Extents3D{Min: NewVec3(9, -1, -11), Max: NewVec3(11, 1, -9)}
	outside := Extents3D{Min: NewVec3(19, -1, -11), Max: NewVec3(21, 1, -9)}

	assert.True(t, f.IntersectsBox(inside))
	assert.True(t, f.IntersectsBox(straddle))
	assert.False(t, f.IntersectsBox(outside))
	assert.False(t, f.IntersectsBox(NewExtents3DEmpty()))
}

func TestSphereFromPoints(t *testing.T) {
	points := []float32{
		-1, -1, -1,
		1, 1, 1,
		1, -1, 1,
	}
	s := NewSphereFromPoints(points, 3)
	assert.True(t, s.Center.Compare(NewVec3Zero(), testTolerance))
	assert.InDelta(t, ksqrt(3), s.Radius, testTolerance)

	assert.True(t, NewSphereFromPoints(nil, 3).IsEmpty())
}

func TestSphereApplyMat4(t *testing.T) {
	s := Sphere{Center: NewVec3(1, 0, 0), Radius: 1}
	m := NewMat4Compose(NewVec3(0, 5, 0), NewQuatIdentity(), NewVec3(3, 1, 1))
	out := s.ApplyMat4(m)

	assert.True(t, out.Center.Compare(NewVec3(3, 5, 0), testTolerance))
	assert.InDelta(t, 3, out.Radius, testTolerance)
}

func TestGeometryGenerateNormals(t *testing.T) {
	positions := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	}
	normals := GeometryGenerateNormals(positions, []uint32{0, 1, 2})
	for i := 0; i < 3; i++ {
		n := NewVec3(normals[i*3], normals[i*3+1], normals[i*3+2])
		assert.True(t, n.Compare(NewVec3(0, 0, 1), testTolerance), "vertex %d: %v", i, n)
	}
}
