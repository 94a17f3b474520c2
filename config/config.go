// Package config 提供统一的配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 支持从 JSON 加载。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.ServiceMux.Policy = "roundrobin"
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config 是 svcmux 的完整配置结构
//
//   - ServiceMux: 逻辑服务连接（通道选择策略、负载大小、带宽上限）
//   - Channel: 物理通道（空闲超时、写超时、yamux 参数）
//   - Metrics: 指标收集
//   - Log: 日志
type Config struct {
	// ServiceMux 逻辑服务连接配置
	ServiceMux ServiceMuxConfig `json:"service_mux"`

	// Channel 物理通道配置
	Channel ChannelConfig `json:"channel"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		ServiceMux: DefaultServiceMuxConfig(),
		Channel:    DefaultChannelConfig(),
		Metrics:    DefaultMetricsConfig(),
		Log:        DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := c.ServiceMux.Validate(); err != nil {
		return fmt.Errorf("service_mux: %w", err)
	}
	if err := c.Channel.Validate(); err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// FromJSON 从 JSON 数据创建配置
//
// 未出现的字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return FromJSON(data)
}

// ToJSON 序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
