package connector

import (
	"fmt"
	"time"
)

// RedisConfig Redis连接配置
type RedisConfig struct {
	// 基础配置（可选，有默认值）
	Name            string        `mapstructure:"name"`              // 连接器名称 (默认: "default")
	MaxRetries      int           `mapstructure:"max_retries"`       // 最大重试次数 (默认: 3)
	RetryInterval   time.Duration `mapstructure:"retry_interval"`    // 重试间隔 (默认: 1s)
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`   // 连接超时 (默认: 5s)
	HealthCheckFreq time.Duration `mapstructure:"health_check_freq"` // 健康检查频率 (默认: 30s)

	// 核心配置
	Addr     string `mapstructure:"addr"`     // [必填] 连接地址，如 "127.0.0.1:6379"
	Password string `mapstructure:"password"` // [可选] 认证密码
	DB       int    `mapstructure:"db"`       // [可选] 数据库编号 (默认: 0)

	// 高级配置（可选，有默认值）
	PoolSize     int           `mapstructure:"pool_size"`      // 连接池大小 (默认: 10)
	MinIdleConns int           `mapstructure:"min_idle_conns"` // 最小空闲连接数 (默认: 5)
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`   // 连接超时 (默认: 5s)
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`   // 读取超时 (默认: 3s)
	WriteTimeout time.Duration `mapstructure:"write_timeout"`  // 写入超时 (默认: 3s)
}

// setDefaults 设置默认值
func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.HealthCheckFreq == 0 {
		c.HealthCheckFreq = 30 * time.Second
	}

	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns < 0 {
		c.MinIdleConns = 5
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// validate 实现 Configurable 接口
func (c *RedisConfig) validate() error {
	c.setDefaults()
	if c.Addr == "" {
		return fmt.Errorf("Redis地址不能为空")
	}
	if c.DB < 0 {
		return fmt.Errorf("数据库编号不能小于0")
	}
	return nil
}

// NATSConfig NATS连接配置
type NATSConfig struct {
	// 基础配置（可选，有默认值）
	Name            string        `mapstructure:"name"`              // 连接器名称 (默认: "default")
	MaxRetries      int           `mapstructure:"max_retries"`       // 最大重试次数 (默认: 3)
	RetryInterval   time.Duration `mapstructure:"retry_interval"`    // 重试间隔 (默认: 1s)
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`   // 连接超时 (默认: 5s)
	HealthCheckFreq time.Duration `mapstructure:"health_check_freq"` // 健康检查频率 (默认: 30s)

	// 核心配置
	URL      string `mapstructure:"url"`      // [必填] 连接地址，如 "nats://127.0.0.1:4222"
	Username string `mapstructure:"username"` // [可选] 用户名
	Password string `mapstructure:"password"` // [可选] 密码
	Token    string `mapstructure:"token"`    // [可选] 令牌

	// 高级配置（可选，有默认值）
	Timeout       time.Duration `mapstructure:"timeout"`        // 连接超时 (默认: 5s)
	MaxReconnects int           `mapstructure:"max_reconnects"` // 最大重连次数 (默认: 60)
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"` // 重连等待时间 (默认: 2s)
	PingInterval  time.Duration `mapstructure:"ping_interval"`  // ping间隔 (默认: 2m)
	MaxPingsOut   int           `mapstructure:"max_pings_out"`  // 最大未响应ping数 (默认: 2)
}

// setDefaults 设置默认值
func (c *NATSConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.HealthCheckFreq == 0 {
		c.HealthCheckFreq = 30 * time.Second
	}

	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = 60
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 2 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 2 * time.Minute
	}
	if c.MaxPingsOut == 0 {
		c.MaxPingsOut = 2
	}
}

// validate 实现 Configurable 接口
func (c *NATSConfig) validate() error {
	c.setDefaults()
	if c.URL == "" {
		return fmt.Errorf("NATS URL不能为空")
	}
	return nil
}
