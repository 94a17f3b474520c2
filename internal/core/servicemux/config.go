package servicemux

import (
	"time"

	"github.com/dep2p/go-svcmux/config"
)

const (
	// ServiceMsgBufferSize 序列缓冲区与待发队列的容量（条）
	ServiceMsgBufferSize = 1024

	// ChannelBufferCap 单通道未确认字节上限
	ChannelBufferCap = 4 * 1024
)

// Config 逻辑服务连接配置
type Config struct {
	// Policy 通道选择策略，构造后不可变
	Policy Policy

	// MaxPayloadSize 单条服务消息最大负载
	MaxPayloadSize int

	// MaxBandwidth 入站带宽上限（字节/秒，0 = 不限制）
	MaxBandwidth int64

	// DrainInterval Pump 在没有可用容量时的等待间隔
	DrainInterval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Policy:         PolicyWeighted,
		MaxPayloadSize: 1024,
		DrainInterval:  50 * time.Millisecond,
	}
}

// ConfigFromUnified 从统一配置创建服务连接配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	c := DefaultConfig()
	c.Policy = ParsePolicy(cfg.ServiceMux.Policy)
	if cfg.ServiceMux.MaxPayloadSize > 0 {
		c.MaxPayloadSize = cfg.ServiceMux.MaxPayloadSize
	}
	c.MaxBandwidth = cfg.ServiceMux.MaxBandwidth
	c.DrainInterval = cfg.ServiceMux.DrainInterval.OrDefault(c.DrainInterval)
	return c
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MaxPayloadSize <= 0 {
		c.MaxPayloadSize = d.MaxPayloadSize
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = d.DrainInterval
	}
	if c.MaxBandwidth < 0 {
		c.MaxBandwidth = 0
	}
	return c
}
