package servicemux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingQueue_FIFOAndCapacity(t *testing.T) {
	q := NewPendingQueue()
	assert.Equal(t, ServiceMsgBufferSize, q.Cap())

	for i := 0; i < q.Cap(); i++ {
		require.NoError(t, q.Push(pendingMessage{stream: uint64(i)}))
	}
	assert.ErrorIs(t, q.Push(pendingMessage{stream: 9999}), ErrQueueFull)
	assert.Equal(t, q.Cap(), q.Len())

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, uint64(0), head.stream)
	assert.Equal(t, q.Cap(), q.Len())

	for i := 0; i < q.Cap(); i++ {
		m, ok := q.PopFront()
		require.True(t, ok)
		require.Equal(t, uint64(i), m.stream)
	}
	_, ok = q.PopFront()
	assert.False(t, ok)
	_, ok = q.Peek()
	assert.False(t, ok)
}

func TestPendingQueue_PushAllDropsOverflow(t *testing.T) {
	q := NewPendingQueue()
	for i := 0; i < q.Cap()-2; i++ {
		require.NoError(t, q.Push(pendingMessage{}))
	}

	dropped := q.PushAll([]pendingMessage{{stream: 1}, {stream: 2}, {stream: 3}})

	assert.Equal(t, 1, dropped)
	assert.Equal(t, q.Cap(), q.Len())
}

func TestPendingQueue_Clear(t *testing.T) {
	q := NewPendingQueue()
	require.NoError(t, q.Push(pendingMessage{}))
	require.NoError(t, q.Push(pendingMessage{}))

	assert.Equal(t, 2, q.Clear())
	assert.Zero(t, q.Len())
}
