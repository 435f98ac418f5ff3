// Package stale 提供了最后已知良好值（last-known-good）的降级缓存。
//
// stale 与 dedup 的响应缓存职责不同：dedup 按请求签名做短 TTL 去重，
// stale 按业务键（如 product:123）保存最近一次成功的结果，供熔断打开
// 且无显式降级时兜底展示。过期条目视为不存在，读取时惰性淘汰。
//
// ## 基本使用
//
//	store, _ := stale.New(nil, stale.WithLogger(logger))
//	defer store.Close()
//
//	_ = store.Set(ctx, "product:123", product)          // 默认 5 分钟
//	_ = store.SetTTL(ctx, "featured", list, time.Minute)
//
//	if v, ok := store.Get(ctx, "product:123"); ok {
//		return v.(*Product), nil
//	}
package stale

import (
	"context"
	"time"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Store 降级缓存核心接口
type Store interface {
	// Set 以默认 TTL 写入最后已知良好值
	Set(ctx context.Context, key string, value any) error

	// SetTTL 以指定 TTL 写入，ttl <= 0 时使用默认 TTL
	SetTTL(ctx context.Context, key string, value any, ttl time.Duration) error

	// Get 读取未过期的值；过期或不存在返回 (nil, false)
	Get(ctx context.Context, key string) (any, bool)

	// Delete 删除指定键
	Delete(ctx context.Context, key string) error

	// Len 返回当前条目数（含尚未惰性淘汰的过期条目）
	Len() int

	// Close 停止后台维护协程
	Close() error
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建降级缓存实例
//
// 参数:
//   - cfg: 缓存配置，为 nil 时使用 DefaultConfig()
//   - opts: 可选参数 (Logger)
func New(cfg *Config, opts ...Option) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.setDefaults()

	opt := applyOptions(opts...)
	return newStore(cfg, opt.logger)
}
