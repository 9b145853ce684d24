package components

import (
	"testing"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-4

func TestCameraMoveRightFollowsOrientation(t *testing.T) {
	c := NewPerspectiveCamera(math.DegToRad(60), 1, 0.1, 100)
	assert.True(t, c.RightVector().Compare(math.NewVec3(1, 0, 0), tolerance), "%v", c.RightVector())

	c.MoveRight(2)
	assert.True(t, c.GetPosition().Compare(math.NewVec3(2, 0, 0), tolerance), "%v", c.GetPosition())

	// a quarter turn to the left points the right axis down -Z
	c.Yaw(math.DegToRad(90))
	assert.True(t, c.RightVector().Compare(math.NewVec3(0, 0, -1), tolerance), "%v", c.RightVector())
	c.MoveRight(1)
	assert.True(t, c.GetPosition().Compare(math.NewVec3(2, 0, -1), tolerance), "%v", c.GetPosition())
}

func TestOrthographicCameraVolume(t *testing.T) {
	c := NewOrthographicCamera(-2, 2, 1, -1, 0, 10)
	assert.Equal(t, float32(2), c.Right)

	proj := c.GetProjection()
	assert.InDelta(t, 0.5, proj.Data[0], tolerance)
	assert.InDelta(t, 1, proj.Data[5], tolerance)

	v := c.Version()
	c.SetOrthographic(-4, 4, 1, -1, 0, 10)
	assert.InDelta(t, 0.25, c.GetProjection().Data[0], tolerance)
	assert.Greater(t, c.Version(), v)
}
