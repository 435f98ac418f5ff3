// Package cacheopt 提供了查询缓存之上的优化编排：关键数据预热、
// 关联预取、内存压力清理，以及关键子集的跨会话持久化。
//
// cacheopt 是 dedup 与 stale 之上的薄粘合层：它不拥有缓存数据，
// 只是按策略驱动"什么时候取、取什么、压力大了丢什么、重启后先恢复什么"。
// 预热与预取统一走限速器，避免空闲优化挤占前台请求带宽。
//
// ## 基本使用
//
//	opt, _ := cacheopt.New(nil, cacheopt.Sources{
//		Dedup: dedupe,
//		Stale: staleStore,
//		Critical: map[string]cacheopt.FetchFunc{
//			"products:featured": fetchFeatured,
//		},
//	}, cacheopt.WithLogger(logger))
//
//	_ = opt.WarmCritical(ctx)       // 启动/空闲时预热
//	go opt.PrefetchRelated(ctx, "42")
package cacheopt

import (
	"context"

	"github.com/ceyewan/storekit/dedup"
	"github.com/ceyewan/storekit/stale"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// FetchFunc 取数函数，结果写入降级缓存
type FetchFunc func(ctx context.Context) (any, error)

// Sources 优化器依赖的缓存与取数表
type Sources struct {
	// Dedup 请求去重器（内存压力时清空其响应缓存）
	Dedup dedup.Deduplicator
	// Stale 降级缓存（预热/预取/恢复的写入目标）
	Stale stale.Store
	// Critical 关键数据取数表：业务键 → 取数函数
	Critical map[string]FetchFunc
	// Related 关联预取表：商品 ID → 关联键的取数表（可为 nil）
	Related func(productID string) map[string]FetchFunc
}

// Optimizer 缓存优化编排核心接口
type Optimizer interface {
	// WarmCritical 预热全部关键数据（限速执行）
	//
	// 单个键取数失败记录日志后继续，仅 context 取消会中断整体预热。
	WarmCritical(ctx context.Context) error

	// PrefetchRelated 预取与指定商品关联的数据（限速执行）
	//
	// 已在降级缓存中的键跳过，不重复取数。
	PrefetchRelated(ctx context.Context, productID string) error

	// OnMemoryPressure 上报当前缓存占用，超过阈值时触发清理
	//
	// 清理动作：先持久化关键子集，再清空去重器响应缓存。
	// 返回是否执行了清理。
	OnMemoryPressure(ctx context.Context, usedBytes int) bool

	// PersistCritical 将关键键的当前缓存值写入持久化存储
	PersistCritical(ctx context.Context) error

	// RestoreCritical 从持久化存储恢复关键键到降级缓存
	//
	// 恢复值是泛型结构（map/slice），适合降级展示；
	// 需要具体类型的调用方应在恢复后触发一次正常取数。
	RestoreCritical(ctx context.Context) error
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建缓存优化器实例
//
// 参数:
//   - cfg: 优化器配置，为 nil 时使用 DefaultConfig()
//   - src: 缓存依赖与取数表，Dedup/Stale 必填
//   - opts: 可选参数 (Logger, Persister)
func New(cfg *Config, src Sources, opts ...Option) (Optimizer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.setDefaults()

	if src.Dedup == nil || src.Stale == nil {
		return nil, ErrSourcesIncomplete
	}

	opt := applyOptions(opts...)
	if opt.persister == nil {
		opt.persister = NewMemoryPersister()
	}

	return newOptimizer(cfg, src, opt), nil
}
