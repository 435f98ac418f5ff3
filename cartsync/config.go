package cartsync

import "time"

// Config 购物车同步配置
type Config struct {
	// Topic 广播通道键（默认：storekit.cart.sync）
	Topic string `json:"topic" yaml:"topic"`

	// Debounce 本地变更到广播的防抖窗口（默认：500ms）
	Debounce time.Duration `json:"debounce" yaml:"debounce"`

	// Policy 冲突解决策略（默认：auto-merge）
	Policy ConflictPolicy `json:"policy" yaml:"policy"`

	// LockTTL 结账锁陈旧窗口（默认：5m）
	LockTTL time.Duration `json:"lock_ttl" yaml:"lock_ttl"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Topic:    "storekit.cart.sync",
		Debounce: 500 * time.Millisecond,
		Policy:   PolicyAutoMerge,
		LockTTL:  5 * time.Minute,
	}
}

func (c *Config) setDefaults() {
	if c.Topic == "" {
		c.Topic = "storekit.cart.sync"
	}
	if c.Debounce <= 0 {
		c.Debounce = 500 * time.Millisecond
	}
	if c.Policy == "" {
		c.Policy = PolicyAutoMerge
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 5 * time.Minute
	}
}

func (c *Config) validate() error {
	switch c.Policy {
	case PolicyManual, PolicyAutoMerge, PolicyLastWriteWins:
		return nil
	default:
		return ErrInvalidPolicy
	}
}
