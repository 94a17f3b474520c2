package servicemux

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	pkgif "github.com/dep2p/go-svcmux/pkg/interfaces"
	"github.com/dep2p/go-svcmux/pkg/types"
)

// recorder 记录交付给应用层的负载
type recorder struct {
	mu     sync.Mutex
	chunks []string
}

func (r *recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, string(p))
	return len(p), nil
}

func (r *recorder) Chunks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.chunks...)
}

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics("test", prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func newClientConn(t *testing.T, policy Policy, opts ...ConnectionOption) *Connection {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Policy = policy
	return NewConnection(cfg, NewClientRole(&recorder{}), opts...)
}

func dataMsg(stream uint64, payload string) types.ChannelMessage {
	return types.ChannelMessage{
		Kind:     types.KindData,
		Sequence: types.Sequence{Stream: stream},
		Payload:  []byte(payload),
	}
}

func endpoints(chs ...*FakeChannel) []pkgif.ChannelEndpoint {
	out := make([]pkgif.ChannelEndpoint, 0, len(chs))
	for _, ch := range chs {
		out = append(out, ch)
	}
	return out
}

func streamsOf(writes []WrittenMessage) []uint64 {
	out := make([]uint64, 0, len(writes))
	for _, w := range writes {
		out = append(out, w.Seq.Stream)
	}
	return out
}
