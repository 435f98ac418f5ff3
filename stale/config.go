package stale

import "time"

// Config 降级缓存配置
type Config struct {
	// Capacity 缓存条目上限（默认：10000）
	Capacity int `json:"capacity" yaml:"capacity"`

	// DefaultTTL 默认缓存时长（默认：5m）
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Capacity:   10000,
		DefaultTTL: 5 * time.Minute,
	}
}

func (c *Config) setDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = 10000
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 5 * time.Minute
	}
}
