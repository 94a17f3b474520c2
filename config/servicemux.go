package config

import (
	"errors"
	"time"
)

// ServiceMuxConfig 逻辑服务连接配置
//
// 序列缓冲区容量（1024 条）与单通道缓冲上限（4096 字节）是协议常量，不可配置。
type ServiceMuxConfig struct {
	// Policy 通道选择策略: "roundrobin" | "random" | 其它值（默认 weighted）
	Policy string `json:"policy"`

	// MaxPayloadSize 单条服务消息的最大负载
	// 默认值: 1024
	MaxPayloadSize int `json:"max_payload_size"`

	// MaxBandwidth 逻辑连接入站带宽上限（字节/秒，0 = 不限制）
	MaxBandwidth int64 `json:"max_bandwidth"`

	// DrainInterval 无可用容量时 Pump 的重试间隔
	// 默认值: 50ms
	DrainInterval Duration `json:"drain_interval"`
}

// DefaultServiceMuxConfig 返回默认配置
func DefaultServiceMuxConfig() ServiceMuxConfig {
	return ServiceMuxConfig{
		Policy:         "weighted",
		MaxPayloadSize: 1024,
		MaxBandwidth:   0,
		DrainInterval:  Duration(50 * time.Millisecond),
	}
}

// Validate 验证配置
func (c *ServiceMuxConfig) Validate() error {
	if c.MaxPayloadSize <= 0 {
		return errors.New("max_payload_size must be positive")
	}
	if c.MaxBandwidth < 0 {
		return errors.New("max_bandwidth must not be negative")
	}
	if c.DrainInterval < 0 {
		return errors.New("drain_interval must not be negative")
	}
	return nil
}
