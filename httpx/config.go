package httpx

import (
	"time"

	"github.com/ceyewan/storekit/xerrors"
)

// Config HTTP 客户端配置
type Config struct {
	// BaseURL 后端基地址（必填，如 https://api.example.com）
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Timeout 单次请求超时（默认：10s）
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}

func (c *Config) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return xerrors.New("httpx: base url empty")
	}
	return nil
}
