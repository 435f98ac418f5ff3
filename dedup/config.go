package dedup

import "time"

// Config 去重器配置
type Config struct {
	// MaxEntries 缓存条目上限，超出时触发一次清扫（默认：1000）
	MaxEntries int `json:"max_entries" yaml:"max_entries"`

	// LowTTL 低优先级缓存时长（默认：30s）
	LowTTL time.Duration `json:"low_ttl" yaml:"low_ttl"`

	// NormalTTL 普通优先级缓存时长（默认：60s）
	NormalTTL time.Duration `json:"normal_ttl" yaml:"normal_ttl"`

	// HighTTL 高优先级缓存时长（默认：120s）
	HighTTL time.Duration `json:"high_ttl" yaml:"high_ttl"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxEntries: 1000,
		LowTTL:     30 * time.Second,
		NormalTTL:  60 * time.Second,
		HighTTL:    120 * time.Second,
	}
}

func (c *Config) setDefaults() {
	if c.MaxEntries <= 0 {
		c.MaxEntries = 1000
	}
	if c.LowTTL <= 0 {
		c.LowTTL = 30 * time.Second
	}
	if c.NormalTTL <= 0 {
		c.NormalTTL = 60 * time.Second
	}
	if c.HighTTL <= 0 {
		c.HighTTL = 120 * time.Second
	}
}

// ttlFor 按优先级返回缓存时长
func (c *Config) ttlFor(p Priority) time.Duration {
	switch p {
	case PriorityLow:
		return c.LowTTL
	case PriorityHigh:
		return c.HighTTL
	default:
		return c.NormalTTL
	}
}
