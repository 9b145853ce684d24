package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueOrder(t *testing.T) {
	rq := NewRingQueue[int](3)
	assert.True(t, rq.IsEmpty())

	require.NoError(t, rq.Enqueue(1))
	require.NoError(t, rq.Enqueue(2))
	require.NoError(t, rq.Enqueue(3))
	assert.True(t, rq.IsFull())
	assert.ErrorIs(t, rq.Enqueue(4), ErrQueueFull)

	v, err := rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// wraps around the backing array
	require.NoError(t, rq.Enqueue(4))
	assert.Equal(t, []int{2, 3, 4}, rq.Items())
	assert.Equal(t, 3, rq.Len())
}

func TestRingQueuePushDropsOldest(t *testing.T) {
	rq := NewRingQueue[string](2)
	rq.Push("a")
	rq.Push("b")
	rq.Push("c")
	assert.Equal(t, []string{"b", "c"}, rq.Items())

	empty := NewRingQueue[string](0)
	empty.Push("x")
	assert.Zero(t, empty.Len())

	_, err := empty.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
	_, err = empty.Peek()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestPoolReusesValues(t *testing.T) {
	type item struct{ n int }
	p := NewPool[item](2)

	a := p.Get()
	a.n = 7
	b := p.Get()
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, p.Used())

	p.Reset()
	assert.Zero(t, p.Used())
	again := p.Get()
	assert.Same(t, a, again)
	assert.Zero(t, again.n, "values are zeroed when handed out again")
	assert.Equal(t, 2, p.Allocated())
}
