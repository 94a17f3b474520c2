package channel

import (
	"context"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-svcmux/config"
	"github.com/dep2p/go-svcmux/internal/core/servicemux"
	"github.com/dep2p/go-svcmux/pkg/types"
)

// sessionPair 在一对 TCP 连接上建立服务端与客户端会话
func sessionPair(t *testing.T, server, client *Manager) (*Session, *Session) {
	t.Helper()
	serverConn, clientConn := createConnPair(t)

	ss, err := server.NewSession(serverConn, true, "client-peer")
	require.NoError(t, err)
	cs, err := client.NewSession(clientConn, false, "server-peer")
	require.NoError(t, err)
	return ss, cs
}

func TestSession_OpenAccept(t *testing.T) {
	server, client := NewManager(DefaultConfig()), NewManager(DefaultConfig())
	defer server.Close()
	defer client.Close()
	ss, cs := sessionPair(t, server, client)

	hs, hc := newRecordingHandler(), newRecordingHandler()

	accepted := make(chan *Channel, 1)
	go func() {
		ch, err := ss.AcceptChannel(hs)
		if err == nil {
			accepted <- ch
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cch, err := cs.OpenChannel(ctx, hc)
	require.NoError(t, err)

	var sch *Channel
	select {
	case sch = <-accepted:
	case <-time.After(5 * time.Second):
		t.Fatal("等待接受通道超时")
	}

	require.NoError(t, sch.Start())
	require.NoError(t, cch.Start())
	waitReady(t, hs)
	waitReady(t, hc)

	assert.Equal(t, channelID(cs.PathID(), 1), cch.ChannelID())
	assert.Equal(t, types.PathID(1), cch.PathID())
	assert.Equal(t, types.PeerID("server-peer"), cch.RemotePeer())
	assert.True(t, cch.IsLANLocal())
	assert.Equal(t, 1, cs.NumChannels())
	assert.Equal(t, 1, ss.NumChannels())

	require.NoError(t, cch.Close("done"))
	waitClosed(t, hs)
	require.Eventually(t, func() bool {
		return cs.NumChannels() == 0 && ss.NumChannels() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSession_OpenAfterClose(t *testing.T) {
	server, client := NewManager(DefaultConfig()), NewManager(DefaultConfig())
	defer server.Close()
	_, cs := sessionPair(t, server, client)

	require.NoError(t, client.Close())
	assert.True(t, cs.IsClosed())

	_, err := cs.OpenChannel(context.Background(), newRecordingHandler())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestChannelIDUniqueAcrossPaths(t *testing.T) {
	assert.NotEqual(t, channelID(1, 1), channelID(2, 1))
	assert.Equal(t, types.ChannelID(1<<20|3), channelID(1, 3))
	assert.NotEqual(t, channelID(1, 1), channelID(MaxPathID, 1))
}

// 路径标识超过 12 位后回绕，并跳过仍在使用的标识
func TestManager_PathIDsWrap(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.nextPath = MaxPathID

	p, err := m.allocPath()
	require.NoError(t, err)
	assert.Equal(t, types.PathID(MaxPathID), p)

	m.sessions[1] = nil
	p, err = m.allocPath()
	require.NoError(t, err)
	assert.Equal(t, types.PathID(2), p)
	assert.Empty(t, m.Sessions())
}

func TestManager_PathIDsExhausted(t *testing.T) {
	m := NewManager(DefaultConfig())
	for p := types.PathID(1); p <= MaxPathID; p++ {
		m.sessions[p] = nil
	}
	_, err := m.allocPath()
	assert.ErrorIs(t, err, ErrPathsExhausted)
}

func TestNewSession_RejectsPathOutOfRange(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	_, err := NewSession(DefaultConfig(), a, false, MaxPathID+1, "peer")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = NewSession(DefaultConfig(), a, false, 0, "peer")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

// syncWriter 收集交付给应用层的数据
type syncWriter struct {
	mu     sync.Mutex
	chunks []string
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chunks = append(w.chunks, string(p))
	return len(p), nil
}

func (w *syncWriter) snapshot() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.chunks...)
}

// 两条路径承载同一逻辑连接，数据按提交顺序交付
func TestServiceConnectionOverTwoPaths(t *testing.T) {
	server, client := NewManager(DefaultConfig()), NewManager(DefaultConfig())
	defer server.Close()
	defer client.Close()

	muxCfg := servicemux.DefaultConfig()
	muxCfg.Policy = servicemux.PolicyRoundRobin
	out := &syncWriter{}
	serverConn := servicemux.NewConnection(muxCfg, servicemux.NewServerRole(out))
	clientConn := servicemux.NewConnection(muxCfg, servicemux.NewClientRole(io.Discard))
	defer serverConn.Close("test done")
	defer clientConn.Close("test done")

	for i := 0; i < 2; i++ {
		ss, cs := sessionPair(t, server, client)

		accepted := make(chan *Channel, 1)
		go func() {
			ch, err := ss.AcceptChannel(serverConn)
			if err == nil {
				accepted <- ch
			}
		}()

		cch, err := cs.OpenChannel(context.Background(), clientConn)
		require.NoError(t, err)
		require.NoError(t, clientConn.AddChannel(cch))

		sch := <-accepted
		require.NoError(t, serverConn.AddChannel(sch))
		require.NoError(t, sch.Start())
		require.NoError(t, cch.Start())
	}

	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, clientConn.Submit(types.ChannelMessage{
			Kind:    types.KindData,
			Payload: []byte(strconv.Itoa(i)),
		}))
	}

	require.Eventually(t, func() bool {
		return len(out.snapshot()) == n
	}, 10*time.Second, 10*time.Millisecond)

	got := out.snapshot()
	for i := 0; i < n; i++ {
		require.Equal(t, strconv.Itoa(i), got[i])
	}
	assert.Len(t, clientConn.PathIDs(), 2)
	assert.Equal(t, 2, serverConn.ChannelCount())
}

func TestModule_ProvidesManager(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Channel.MaxFrameSize = 4096

	var m *Manager
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&m),
	)
	app.RequireStart()
	require.NotNil(t, m)
	assert.Equal(t, 4096, m.Config().MaxFrameSize)
	app.RequireStop()
}

func TestConfigFromUnified(t *testing.T) {
	c := ConfigFromUnified(nil)
	assert.Equal(t, 64*1024, c.MaxFrameSize)
	assert.NotNil(t, c.Clock)

	cfg := config.NewConfig()
	cfg.Channel.IdleTimeout = config.Duration(time.Second)
	c = ConfigFromUnified(cfg)
	assert.Equal(t, time.Second, c.IdleTimeout)
	assert.Equal(t, uint32(256*1024), c.MaxStreamWindowSize)
}

// 写超时为零时回落到默认值，读循环上的写入不会无限等待
func TestConfig_WriteTimeoutAlwaysBounded(t *testing.T) {
	c := Config{}.normalized()
	assert.Equal(t, DefaultConfig().WriteTimeout, c.WriteTimeout)
	assert.Equal(t, c.WriteTimeout, c.yamuxConfig().ConnectionWriteTimeout)

	cfg := config.NewConfig()
	cfg.Channel.WriteTimeout = 0
	assert.Equal(t, 10*time.Second, ConfigFromUnified(cfg).WriteTimeout)

	ch := New(Config{WriteTimeout: -1}, nopRWC{}, Info{ID: 1}, nil)
	assert.Positive(t, ch.cfg.WriteTimeout)
}

type nopRWC struct{}

func (nopRWC) Read([]byte) (int, error)    { return 0, io.EOF }
func (nopRWC) Write(p []byte) (int, error) { return len(p), nil }
func (nopRWC) Close() error                { return nil }
