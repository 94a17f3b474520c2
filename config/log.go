package config

import (
	"fmt"

	"github.com/dep2p/go-svcmux/pkg/lib/log"
)

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别: debug | info | warn | error
	Level string `json:"level"`

	// Format 输出格式: text | json
	Format string `json:"format"`
}

// DefaultLogConfig 返回默认配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate 验证配置
func (c *LogConfig) Validate() error {
	if _, err := log.ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
}
