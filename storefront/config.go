package storefront

import (
	"time"

	"github.com/ceyewan/storekit/breaker"
	"github.com/ceyewan/storekit/dedup"
	"github.com/ceyewan/storekit/stale"
	"github.com/ceyewan/storekit/xerrors"
)

// 逻辑端点名，熔断粒度按此划分
const (
	EndpointProducts = "products"
	EndpointCart     = "cart"
	EndpointAuth     = "auth"
	EndpointOrders   = "orders"
)

// Config API 服务层配置
type Config struct {
	// BaseURL 后端基地址；UseMockData 为 false 时必填
	BaseURL string `json:"base_url" yaml:"base_url"`

	// UseMockData 使用内置静态数据替代网络调用（开发/演示模式）
	UseMockData bool `json:"use_mock_data" yaml:"use_mock_data"`

	// Timeout 单次请求超时（默认：10s）
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Breaker 熔断默认配置，为 nil 时使用 breaker.DefaultConfig()
	Breaker *breaker.Config `json:"breaker" yaml:"breaker"`

	// BreakerOverrides 端点级熔断配置覆盖
	BreakerOverrides map[string]*breaker.Config `json:"breaker_overrides" yaml:"breaker_overrides"`

	// Dedup 去重器配置，为 nil 时使用默认值
	Dedup *dedup.Config `json:"dedup" yaml:"dedup"`

	// Stale 降级缓存配置，为 nil 时使用默认值
	Stale *stale.Config `json:"stale" yaml:"stale"`
}

// DefaultConfig 返回默认配置（mock 模式）
func DefaultConfig() *Config {
	return &Config{
		UseMockData: true,
		Timeout:     10 * time.Second,
	}
}

func (c *Config) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	if !c.UseMockData && c.BaseURL == "" {
		return xerrors.New("storefront: base url required unless mock mode")
	}
	return nil
}
