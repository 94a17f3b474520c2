package servicemux

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ReuseOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m1, err := NewMetrics("svcmux", reg)
	require.NoError(t, err)
	m2, err := NewMetrics("svcmux", reg)
	require.NoError(t, err)

	m1.incRouted()
	m2.incRouted()
	m1.addChannels(3)
	m2.addChannels(-1)

	assert.Equal(t, float64(2), testutil.ToFloat64(m1.routed))
	assert.Equal(t, float64(2), testutil.ToFloat64(m2.channels))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.incInboundDropped()
		m.incOutboundRejected()
		m.addRequeued(1, 1)
		m.incProtocolViolation()
		m.incUnmatchedAck()
		m.incUnregistered()
		m.incRouted()
		m.addChannels(1)
	})
}

func TestMetrics_ChannelGaugeFollowsRegistry(t *testing.T) {
	m := newTestMetrics(t)
	conn := newClientConn(t, PolicyWeighted, WithMetrics(m))
	a, b := NewFakeChannel(1), NewFakeChannel(2)
	require.NoError(t, conn.AddChannel(a))
	require.NoError(t, conn.AddChannel(b))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.channels))

	conn.RemoveChannel(a)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.channels))

	require.NoError(t, conn.Close("done"))
	assert.Zero(t, testutil.ToFloat64(m.channels))
}
