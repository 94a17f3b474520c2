package config

import "errors"

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否启用 Prometheus 指标
	// 默认值: true
	Enabled bool `json:"enabled"`

	// Namespace 指标命名空间
	// 默认值: "svcmux"
	Namespace string `json:"namespace"`
}

// DefaultMetricsConfig 返回默认配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "svcmux",
	}
}

// Validate 验证配置
func (c *MetricsConfig) Validate() error {
	if c.Enabled && c.Namespace == "" {
		return errors.New("namespace required when metrics enabled")
	}
	return nil
}
