package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 3, Clamp(7, 0, 3))
	assert.Equal(t, int32(1), Clamp(int32(-4), 1, 32))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
	assert.Equal(t, "b", Clamp("z", "a", "b"))
}

func TestSaturate(t *testing.T) {
	assert.Equal(t, float32(1), Saturate(float32(1.5)))
	assert.Equal(t, float32(0), Saturate(float32(-0.1)))
	assert.Equal(t, 0.25, Saturate(0.25))
}
