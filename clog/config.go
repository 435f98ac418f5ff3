package clog

import (
	"fmt"
	"strings"
)

// Config 日志配置结构，定义日志的基本行为
//
// 支持的配置项：
//
//	Level:  日志级别 (debug|info|warn|error)
//	Format: 输出格式 (json|console)
//	Output: 输出目标 (stdout|stderr)
//	AddSource: 是否显示调用位置信息
type Config struct {
	Level     string `json:"level" yaml:"level"`
	Format    string `json:"format" yaml:"format"`
	Output    string `json:"output" yaml:"output"`
	AddSource bool   `json:"add_source" yaml:"add_source"`
}

// DefaultConfig 返回默认配置（info 级别、console 格式、stdout 输出）
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "console",
		Output: "stdout",
	}
}

// validate 验证配置的有效性并填充默认值（内部使用）
func (c *Config) validate() error {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}

	if _, err := ParseLevel(c.Level); err != nil {
		return err
	}

	switch strings.ToLower(c.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid format: %s, must be json or console", c.Format)
	}

	switch c.Output {
	case "stdout", "stderr":
	default:
		return fmt.Errorf("invalid output: %s, must be stdout or stderr", c.Output)
	}
	return nil
}
