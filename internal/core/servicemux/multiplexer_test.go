package servicemux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-svcmux/pkg/types"
)

func TestStreamMultiplexer_NextPerChannel(t *testing.T) {
	m := NewStreamMultiplexer()

	assert.Equal(t, types.Sequence{Stream: 0, Channel: 0}, m.Next(1, 0, []byte("a")))
	assert.Equal(t, types.Sequence{Stream: 1, Channel: 1}, m.Next(1, 1, []byte("b")))
	assert.Equal(t, types.Sequence{Stream: 2, Channel: 0}, m.Next(2, 2, []byte("c")))

	assert.Equal(t, 2, m.OutstandingCount(1))
	assert.Equal(t, 1, m.OutstandingCount(2))
	assert.True(t, m.HasOutstanding(2))
	assert.False(t, m.HasOutstanding(3))
}

func TestStreamMultiplexer_OnAck(t *testing.T) {
	m := NewStreamMultiplexer()
	m.Next(1, 0, []byte("a"))
	m.Next(1, 1, []byte("b"))

	ack := types.ChannelMessage{Kind: types.KindAck, ChannelID: 1, Sequence: types.Sequence{Channel: 1}}
	assert.True(t, m.OnAck(ack))
	assert.Equal(t, 1, m.OutstandingCount(1))

	// 重复确认和未知通道都不匹配
	assert.False(t, m.OnAck(ack))
	assert.False(t, m.OnAck(types.ChannelMessage{Kind: types.KindAck, ChannelID: 7}))
	assert.Equal(t, 1, m.OutstandingCount(1))
}

func TestStreamMultiplexer_DrainOutstandingKeepsOrder(t *testing.T) {
	m := NewStreamMultiplexer()
	m.Next(1, 4, []byte("x"))
	m.Next(1, 5, []byte("y"))
	m.Next(1, 6, []byte("z"))

	msgs := m.DrainOutstanding(1)
	require.Len(t, msgs, 3)
	assert.Equal(t, uint64(4), msgs[0].stream)
	assert.Equal(t, uint64(5), msgs[1].stream)
	assert.Equal(t, uint64(6), msgs[2].stream)
	assert.Equal(t, []byte("z"), msgs[2].payload)

	assert.Zero(t, m.OutstandingCount(1))
	assert.Nil(t, m.DrainOutstanding(1))
}

func TestStreamMultiplexer_RemoveChannelResetsNumbering(t *testing.T) {
	m := NewStreamMultiplexer()
	m.Next(1, 0, nil)
	m.Next(1, 1, nil)

	m.RemoveChannel(1)

	assert.Zero(t, m.OutstandingCount(1))
	assert.Equal(t, uint64(0), m.Next(1, 2, nil).Channel)
}
