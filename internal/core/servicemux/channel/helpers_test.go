package channel

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgif "github.com/dep2p/go-svcmux/pkg/interfaces"
	"github.com/dep2p/go-svcmux/pkg/types"
)

// recordingHandler 记录通道回调
type recordingHandler struct {
	mu     sync.Mutex
	msgs   []types.ChannelMessage
	ready  chan pkgif.ChannelEndpoint
	closed chan error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		ready:  make(chan pkgif.ChannelEndpoint, 8),
		closed: make(chan error, 8),
	}
}

func (h *recordingHandler) HandleChannelMessage(_ pkgif.ChannelEndpoint, msg types.ChannelMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
}

func (h *recordingHandler) ChannelReady(ch pkgif.ChannelEndpoint) {
	h.ready <- ch
}

func (h *recordingHandler) ChannelClosed(_ pkgif.ChannelEndpoint, err error) {
	h.closed <- err
}

func (h *recordingHandler) messages(kind types.MessageKind) []types.ChannelMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []types.ChannelMessage
	for _, m := range h.msgs {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func waitReady(t *testing.T, h *recordingHandler) {
	t.Helper()
	select {
	case <-h.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("等待通道启动超时")
	}
}

func waitClosed(t *testing.T, h *recordingHandler) error {
	t.Helper()
	select {
	case err := <-h.closed:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("等待通道关闭超时")
		return nil
	}
}

// startedPipe 创建一对通过 net.Pipe 相连并完成握手的通道
func startedPipe(t *testing.T, cfg Config) (*Channel, *recordingHandler, *Channel, *recordingHandler) {
	t.Helper()
	p1, p2 := net.Pipe()

	ha, hb := newRecordingHandler(), newRecordingHandler()
	a := New(cfg, p1, Info{ID: 1, Path: 1, Peer: "peer-b", Outgoing: true}, ha)
	b := New(cfg, p2, Info{ID: 1, Path: 1, Peer: "peer-a"}, hb)

	require.NoError(t, b.Start())
	require.NoError(t, a.Start())
	waitReady(t, hb)
	waitReady(t, ha)

	t.Cleanup(func() {
		_ = a.Close("cleanup")
		_ = b.Close("cleanup")
	})
	return a, ha, b, hb
}

// createConnPair 创建一对 TCP 回环连接
func createConnPair(t *testing.T) (net.Conn, net.Conn) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var serverConn net.Conn
	var serverErr error
	done := make(chan struct{})

	go func() {
		serverConn, serverErr = listener.Accept()
		close(done)
	}()

	clientConn, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)

	<-done
	require.NoError(t, serverErr)
	listener.Close()

	return serverConn, clientConn
}
