package channel

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-svcmux/config"
)

// Params channel 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Module 是 channel 的 Fx 模块
var Module = fx.Module("channel",
	fx.Provide(NewManagerFromParams),
	fx.Invoke(registerLifecycle),
)

// NewManagerFromParams 从参数创建 Manager
func NewManagerFromParams(p Params) *Manager {
	return NewManager(ConfigFromUnified(p.UnifiedCfg))
}

func registerLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return m.Close()
		},
	})
}
