package config

import (
	"errors"
	"time"
)

// ChannelConfig 物理通道配置
type ChannelConfig struct {
	// IdleTimeout 无消息超过该时长视为超时
	// 默认值: 2m
	IdleTimeout Duration `json:"idle_timeout"`

	// WriteTimeout 单帧写超时
	// 默认值: 10s
	WriteTimeout Duration `json:"write_timeout"`

	// MaxFrameSize 单帧最大负载
	// 默认值: 64KB
	MaxFrameSize int `json:"max_frame_size"`

	// KeepAliveInterval yamux 心跳间隔
	// 默认值: 30s
	KeepAliveInterval Duration `json:"keep_alive_interval"`

	// MaxStreamWindowSize yamux 单流窗口
	// 默认值: 256KB
	MaxStreamWindowSize uint32 `json:"max_stream_window_size"`
}

// DefaultChannelConfig 返回默认配置
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		IdleTimeout:         Duration(2 * time.Minute),
		WriteTimeout:        Duration(10 * time.Second),
		MaxFrameSize:        64 * 1024,
		KeepAliveInterval:   Duration(30 * time.Second),
		MaxStreamWindowSize: 256 * 1024,
	}
}

// Validate 验证配置
func (c *ChannelConfig) Validate() error {
	if c.IdleTimeout < 0 || c.WriteTimeout < 0 || c.KeepAliveInterval < 0 {
		return errors.New("durations must not be negative")
	}
	if c.WriteTimeout == 0 {
		return errors.New("write_timeout must be positive")
	}
	if c.MaxFrameSize <= 0 {
		return errors.New("max_frame_size must be positive")
	}
	// yamux 要求窗口不小于初始窗口 256KB
	if c.MaxStreamWindowSize != 0 && c.MaxStreamWindowSize < 256*1024 {
		return errors.New("max_stream_window_size must be at least 256KB")
	}
	return nil
}
