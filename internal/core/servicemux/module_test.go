package servicemux

import (
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-svcmux/config"
)

func TestModule_ProvidesFactory(t *testing.T) {
	cfg := config.NewConfig()
	cfg.ServiceMux.Policy = "roundrobin"

	var (
		factory *Factory
		metrics *Metrics
	)
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(func() prometheus.Registerer { return prometheus.NewRegistry() }),
		Module,
		fx.Populate(&factory, &metrics),
	)
	app.RequireStart()

	require.NotNil(t, factory)
	assert.NotNil(t, metrics)
	assert.Equal(t, PolicyRoundRobin, factory.Config().Policy)

	conn := factory.NewClientConnection(io.Discard)
	app.RequireStop()

	assert.True(t, conn.IsClosed())
}

func TestModule_MetricsDisabled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Enabled = false

	var metrics *Metrics
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module,
		fx.Populate(&metrics),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.Nil(t, metrics)
}

func TestConfigFromUnified(t *testing.T) {
	assert.Equal(t, DefaultConfig(), ConfigFromUnified(nil))

	cfg := config.NewConfig()
	cfg.ServiceMux.Policy = "random"
	cfg.ServiceMux.MaxPayloadSize = 512
	cfg.ServiceMux.MaxBandwidth = 2048

	c := ConfigFromUnified(cfg)
	assert.Equal(t, PolicyRandom, c.Policy)
	assert.Equal(t, 512, c.MaxPayloadSize)
	assert.Equal(t, int64(2048), c.MaxBandwidth)
}
