package cacheopt

// Config 缓存优化配置
type Config struct {
	// WarmRatePerSecond 预热/预取的每秒取数上限（默认：2）
	WarmRatePerSecond float64 `json:"warm_rate_per_second" yaml:"warm_rate_per_second"`

	// WarmBurst 限速突发额度（默认：1）
	WarmBurst int `json:"warm_burst" yaml:"warm_burst"`

	// MemoryPressureBytes 触发清理的缓存占用阈值（默认：8MB）
	MemoryPressureBytes int `json:"memory_pressure_bytes" yaml:"memory_pressure_bytes"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		WarmRatePerSecond:   2,
		WarmBurst:           1,
		MemoryPressureBytes: 8 << 20,
	}
}

func (c *Config) setDefaults() {
	if c.WarmRatePerSecond <= 0 {
		c.WarmRatePerSecond = 2
	}
	if c.WarmBurst <= 0 {
		c.WarmBurst = 1
	}
	if c.MemoryPressureBytes <= 0 {
		c.MemoryPressureBytes = 8 << 20
	}
}
