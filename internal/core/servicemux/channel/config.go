package channel

import (
	"io"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/yamux"

	"github.com/dep2p/go-svcmux/config"
)

// Config 物理通道配置
type Config struct {
	// IdleTimeout 无消息超过该时长视为超时（0 = 永不超时）
	IdleTimeout time.Duration

	// WriteTimeout 单帧写超时，必须为正；非正值按默认值处理
	WriteTimeout time.Duration

	// MaxFrameSize 单帧最大负载
	MaxFrameSize int

	// KeepAliveInterval yamux 心跳间隔
	KeepAliveInterval time.Duration

	// MaxStreamWindowSize yamux 单流窗口
	MaxStreamWindowSize uint32

	// Clock 时间源，测试时注入 clock.NewMock()
	Clock clock.Clock
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		IdleTimeout:         2 * time.Minute,
		WriteTimeout:        10 * time.Second,
		MaxFrameSize:        64 * 1024,
		KeepAliveInterval:   30 * time.Second,
		MaxStreamWindowSize: 256 * 1024,
		Clock:               clock.New(),
	}
}

// ConfigFromUnified 从统一配置创建通道配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	ch := cfg.Channel
	c.IdleTimeout = ch.IdleTimeout.Duration()
	c.WriteTimeout = ch.WriteTimeout.OrDefault(c.WriteTimeout)
	if ch.MaxFrameSize > 0 {
		c.MaxFrameSize = ch.MaxFrameSize
	}
	c.KeepAliveInterval = ch.KeepAliveInterval.OrDefault(c.KeepAliveInterval)
	if ch.MaxStreamWindowSize > 0 {
		c.MaxStreamWindowSize = ch.MaxStreamWindowSize
	}
	return c
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = d.MaxFrameSize
	}
	// 确认触发的排空在读循环上执行，写入必须有上限
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.KeepAliveInterval <= 0 {
		c.KeepAliveInterval = d.KeepAliveInterval
	}
	if c.MaxStreamWindowSize < d.MaxStreamWindowSize {
		c.MaxStreamWindowSize = d.MaxStreamWindowSize
	}
	if c.Clock == nil {
		c.Clock = d.Clock
	}
	return c
}

// yamuxConfig 转换为 yamux 原生配置
func (c Config) yamuxConfig() *yamux.Config {
	cfg := yamux.DefaultConfig()
	cfg.EnableKeepAlive = true
	cfg.KeepAliveInterval = c.KeepAliveInterval
	cfg.MaxStreamWindowSize = c.MaxStreamWindowSize
	cfg.ConnectionWriteTimeout = c.WriteTimeout
	// 禁用 yamux 自带日志
	cfg.LogOutput = io.Discard
	return cfg
}
