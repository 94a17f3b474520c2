package channel

import (
	"net"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-svcmux/pkg/types"
)

func TestChannel_Handshake(t *testing.T) {
	a, _, b, _ := startedPipe(t, DefaultConfig())

	assert.True(t, a.IsStarted())
	assert.True(t, b.IsStarted())
	assert.True(t, a.IsOutgoing())
	assert.False(t, b.IsOutgoing())
}

func TestChannel_DataIsAcked(t *testing.T) {
	a, ha, b, hb := startedPipe(t, DefaultConfig())

	seq := types.Sequence{Stream: 5, Channel: 0}
	require.NoError(t, a.WriteMessage(seq, []byte("hello")))

	require.Eventually(t, func() bool {
		return len(hb.messages(types.KindData)) == 1 && len(ha.messages(types.KindAck)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	data := hb.messages(types.KindData)[0]
	assert.Equal(t, seq, data.Sequence)
	assert.Equal(t, "hello", string(data.Payload))
	assert.Equal(t, types.ChannelID(1), data.ChannelID)

	ack := ha.messages(types.KindAck)[0]
	assert.Equal(t, seq.Channel, ack.Sequence.Channel)

	assert.Zero(t, a.Outstanding())
	assert.Equal(t, int64(5), a.BytesOut())
	assert.Equal(t, int64(5), b.BytesIn())
}

func TestChannel_WriteRequiresStart(t *testing.T) {
	p1, _ := net.Pipe()
	ch := New(DefaultConfig(), p1, Info{ID: 1, Outgoing: true}, newRecordingHandler())

	err := ch.WriteMessage(types.Sequence{}, []byte("x"))
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestChannel_FrameTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFrameSize = 8
	a, _, _, _ := startedPipe(t, cfg)

	err := a.WriteMessage(types.Sequence{}, make([]byte, 9))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Zero(t, a.Outstanding())
}

func TestChannel_CloseNotifiesPeer(t *testing.T) {
	a, ha, b, hb := startedPipe(t, DefaultConfig())

	require.NoError(t, a.Close("done"))

	assert.NoError(t, waitClosed(t, ha))
	waitClosed(t, hb)
	assert.True(t, b.IsClosed())
	assert.False(t, b.IsStarted())
	assert.ErrorIs(t, a.WriteMessage(types.Sequence{}, []byte("x")), ErrChannelClosed)

	// 幂等
	assert.NoError(t, a.Close("again"))
}

func TestChannel_ResetNotifiesPeer(t *testing.T) {
	a, ha, b, hb := startedPipe(t, DefaultConfig())

	require.NoError(t, a.CloseReset())

	assert.ErrorIs(t, waitClosed(t, ha), ErrChannelReset)
	assert.ErrorIs(t, waitClosed(t, hb), ErrChannelReset)
	assert.True(t, b.IsClosed())
}

func TestChannel_IdleTimeoutAndAge(t *testing.T) {
	mock := clock.NewMock()
	cfg := DefaultConfig()
	cfg.Clock = mock
	cfg.IdleTimeout = time.Minute

	p1, _ := net.Pipe()
	ch := New(cfg, p1, Info{ID: 1}, newRecordingHandler())

	assert.False(t, ch.IsTimedOut())
	mock.Add(2 * time.Minute)
	assert.True(t, ch.IsTimedOut())
	assert.Equal(t, 2*time.Minute, ch.Age())
	assert.True(t, ch.LastMessageTime().Equal(time.Unix(0, 0)))

	cfg.IdleTimeout = 0
	never := New(cfg, p1, Info{ID: 2}, newRecordingHandler())
	mock.Add(time.Hour)
	assert.False(t, never.IsTimedOut())
}

func TestChannel_LANLocal(t *testing.T) {
	p1, _ := net.Pipe()
	lan := New(DefaultConfig(), p1, Info{ID: 1, RemoteAddr: "192.168.1.5:4000"}, newRecordingHandler())
	wan := New(DefaultConfig(), p1, Info{ID: 2, RemoteAddr: "8.8.8.8:53"}, newRecordingHandler())

	assert.True(t, lan.IsLANLocal())
	assert.False(t, wan.IsLANLocal())
}

func TestMeter_EWMA(t *testing.T) {
	mock := clock.NewMock()
	m := newMeter(mock)

	m.Mark(1000)
	assert.Zero(t, m.Rate())

	mock.Add(time.Second)
	assert.Equal(t, 1000.0, m.Rate())

	m.Mark(3000)
	mock.Add(time.Second)
	assert.Equal(t, 1500.0, m.Rate())
	assert.Equal(t, int64(4000), m.Total())
}
