package servicemux

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-svcmux/config"
)

// Params servicemux 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config        `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// Module 是 servicemux 的 Fx 模块
var Module = fx.Module("servicemux",
	fx.Provide(
		NewMetricsFromParams,
		NewFactoryFromParams,
	),
	fx.Invoke(registerLifecycle),
)

// NewMetricsFromParams 从参数创建指标；禁用时返回 nil
func NewMetricsFromParams(p Params) (*Metrics, error) {
	cfg := config.NewConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg
	}
	if !cfg.Metrics.Enabled {
		return nil, nil
	}
	reg := p.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return NewMetrics(cfg.Metrics.Namespace, reg)
}

// factoryParams Factory 依赖参数
type factoryParams struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Metrics    *Metrics       `optional:"true"`
}

// NewFactoryFromParams 从参数创建 Factory
func NewFactoryFromParams(p factoryParams) *Factory {
	return NewFactory(ConfigFromUnified(p.UnifiedCfg), p.Metrics)
}

// registerLifecycle 停止时关闭所有逻辑连接
func registerLifecycle(lc fx.Lifecycle, f *Factory) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return f.Close()
		},
	})
}
