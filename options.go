package svcmux

import (
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-svcmux/config"
	"github.com/dep2p/go-svcmux/internal/core/servicemux"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	config     *config.Config
	registerer prometheus.Registerer
	fxOptions  []fx.Option
}

func newOptions() *options {
	return &options{config: config.NewConfig()}
}

// WithConfig 使用完整配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		o.config = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithPolicy 设置通道选择策略
func WithPolicy(policy string) Option {
	return func(o *options) error {
		p := servicemux.ParsePolicy(policy)
		if p.String() != strings.ToLower(strings.TrimSpace(policy)) {
			return fmt.Errorf("unknown policy %q", policy)
		}
		o.config.ServiceMux.Policy = policy
		return nil
	}
}

// WithMaxBandwidth 设置入站带宽上限（字节/秒）
func WithMaxBandwidth(bps int64) Option {
	return func(o *options) error {
		if bps < 0 {
			return errors.New("max bandwidth must not be negative")
		}
		o.config.ServiceMux.MaxBandwidth = bps
		return nil
	}
}

// WithLogLevel 设置日志级别
func WithLogLevel(level string) Option {
	return func(o *options) error {
		o.config.Log.Level = level
		return nil
	}
}

// WithRegisterer 指定 Prometheus 注册器，默认使用全局注册器
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
