package connector

import (
	"context"
	"testing"

	"github.com/ceyewan/storekit/clog"
)

// TestRedisConfigDefaults 默认值填充
func TestRedisConfigDefaults(t *testing.T) {
	cfg := &RedisConfig{Addr: "127.0.0.1:6379"}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Name != "default" {
		t.Errorf("Name = %q, want default", cfg.Name)
	}
	if cfg.PoolSize != 10 {
		t.Errorf("PoolSize = %d, want 10", cfg.PoolSize)
	}
}

// TestRedisConfigValidate 缺失地址报错
func TestRedisConfigValidate(t *testing.T) {
	cfg := &RedisConfig{}
	if err := cfg.validate(); err == nil {
		t.Error("empty addr must fail validation")
	}
	cfg = &RedisConfig{Addr: "127.0.0.1:6379", DB: -1}
	if err := cfg.validate(); err == nil {
		t.Error("negative db must fail validation")
	}
}

// TestNATSConfigValidate 缺失 URL 报错
func TestNATSConfigValidate(t *testing.T) {
	cfg := &NATSConfig{}
	if err := cfg.validate(); err == nil {
		t.Error("empty url must fail validation")
	}
	cfg = &NATSConfig{URL: "nats://127.0.0.1:4222"}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.MaxReconnects != 60 {
		t.Errorf("MaxReconnects = %d, want 60", cfg.MaxReconnects)
	}
}

// TestNewRedisLazyConnect 构造不建立连接
func TestNewRedisLazyConnect(t *testing.T) {
	conn, err := NewRedis(&RedisConfig{Addr: "127.0.0.1:1", Name: "lazy"},
		WithLogger(clog.Discard()))
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer conn.Close()

	if conn.Name() != "lazy" {
		t.Errorf("Name = %q", conn.Name())
	}
	if conn.IsHealthy() {
		t.Error("must not be healthy before Connect")
	}
	if conn.GetClient() == nil {
		t.Error("client must be constructed eagerly")
	}
}

// TestNewNATSLazyConnect 构造不建立连接
func TestNewNATSLazyConnect(t *testing.T) {
	conn, err := NewNATS(&NATSConfig{URL: "nats://127.0.0.1:1", Name: "lazy"})
	if err != nil {
		t.Fatalf("NewNATS: %v", err)
	}
	defer conn.Close()

	if conn.IsHealthy() {
		t.Error("must not be healthy before Connect")
	}
	if err := conn.HealthCheck(context.Background()); err == nil {
		t.Error("health check before Connect must fail")
	}
}

// TestNewRedisInvalidConfig 非法配置被拒绝
func TestNewRedisInvalidConfig(t *testing.T) {
	if _, err := NewRedis(&RedisConfig{}); err == nil {
		t.Error("NewRedis with empty addr must fail")
	}
	if _, err := NewNATS(&NATSConfig{}); err == nil {
		t.Error("NewNATS with empty url must fail")
	}
}
