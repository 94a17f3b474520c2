package svcmux

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-svcmux/internal/core/servicemux"
	"github.com/dep2p/go-svcmux/internal/core/servicemux/channel"
	"github.com/dep2p/go-svcmux/pkg/lib/log"
)

var fxLogger = log.Logger("svcmux/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序：配置 → servicemux（指标、连接工厂）→ channel（会话管理）
func buildFxApp(o *options, h *Host) (*fx.App, error) {
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := log.Configure(os.Stderr, o.config.Log.Level, o.config.Log.Format); err != nil {
		return nil, fmt.Errorf("configure log: %w", err)
	}

	reg := o.registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	modules := []fx.Option{
		fx.Supply(o.config),
		fx.Provide(func() prometheus.Registerer { return reg }),

		servicemux.Module,
		channel.Module,

		fx.Populate(&h.factory, &h.manager),

		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	}
	modules = append(modules, o.fxOptions...)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		fxLogger.Error("构建 Fx 应用失败", "err", err)
		return nil, err
	}
	return app, nil
}
