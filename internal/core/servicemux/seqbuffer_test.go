package servicemux

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceBuffer_ReordersOutOfOrder(t *testing.T) {
	b := NewSequenceBuffer()

	require.NoError(t, b.Store(2, []byte("c")))
	require.NoError(t, b.Store(0, []byte("a")))

	p, ok := b.PopNext()
	require.True(t, ok)
	assert.Equal(t, "a", string(p))

	// 1 尚未到达
	_, ok = b.PopNext()
	assert.False(t, ok)

	require.NoError(t, b.Store(1, []byte("b")))
	p, _ = b.PopNext()
	assert.Equal(t, "b", string(p))
	p, _ = b.PopNext()
	assert.Equal(t, "c", string(p))
	assert.Equal(t, uint64(3), b.Next())
	assert.Zero(t, b.Len())
}

func TestSequenceBuffer_RejectsOutsideWindow(t *testing.T) {
	b := NewSequenceBuffer()
	require.NoError(t, b.Store(3, []byte("c")))

	// 同一槽位上更远的序号不能覆盖
	err := b.Store(3+ServiceMsgBufferSize, []byte("late"))
	assert.ErrorIs(t, err, ErrBufferOverflow)

	for i := uint64(0); i < 3; i++ {
		require.NoError(t, b.Store(i, []byte("x")))
	}
	for i := 0; i < 3; i++ {
		_, ok := b.PopNext()
		require.True(t, ok)
	}
	p, ok := b.PopNext()
	require.True(t, ok)
	assert.Equal(t, "c", string(p))

	// 已交付的序号
	assert.ErrorIs(t, b.Store(1, []byte("dup")), ErrBufferOverflow)
}

func TestSequenceBuffer_DuplicateInWindowReplaces(t *testing.T) {
	b := NewSequenceBuffer()
	require.NoError(t, b.Store(5, []byte("old")))
	require.NoError(t, b.Store(5, []byte("new")))
	assert.Equal(t, 1, b.Len())
}

func TestSequenceBuffer_FullWindowRoundTrip(t *testing.T) {
	b := NewSequenceBuffer()
	for i := ServiceMsgBufferSize - 1; i >= 0; i-- {
		require.NoError(t, b.Store(uint64(i), []byte(fmt.Sprint(i))))
	}
	assert.Equal(t, ServiceMsgBufferSize, b.Len())

	for i := 0; i < ServiceMsgBufferSize; i++ {
		p, ok := b.PopNext()
		require.True(t, ok)
		require.Equal(t, fmt.Sprint(i), string(p))
	}
	_, ok := b.PopNext()
	assert.False(t, ok)

	// 窗口已前移
	assert.NoError(t, b.Store(ServiceMsgBufferSize, []byte("next")))
	assert.ErrorIs(t, b.Store(2*ServiceMsgBufferSize, []byte("far")), ErrBufferOverflow)
}

func TestSequenceBuffer_ResetKeepsWindow(t *testing.T) {
	b := NewSequenceBuffer()
	require.NoError(t, b.Store(0, []byte("a")))
	b.PopNext()
	require.NoError(t, b.Store(2, []byte("c")))

	b.Reset()

	assert.Zero(t, b.Len())
	assert.Equal(t, uint64(1), b.Next())
	_, ok := b.PopNext()
	assert.False(t, ok)
}
