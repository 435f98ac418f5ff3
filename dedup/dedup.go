// Package dedup 提供了请求去重组件，用于合并并发的相同请求并短暂缓存响应。
//
// dedup 是 StoreKit 弹性层的组件之一，它提供了：
// - 并发去重：相同签名的请求在途时，后续调用共享同一结果，网络调用至多一次
// - 响应缓存：按优先级 TTL 缓存成功结果，重复请求直接命中缓存
// - 签名规则：method + URL + 规范化请求体（排序、无空白）的哈希
// - 模式失效：按子串批量失效缓存（如购物车写操作后失效所有 /cart 读缓存）
//
// 核心不变量：同一签名至多一个网络操作在途；所有并发调用方收到同一个
// 最终结果（或同一个最终失败）。失败不缓存，在途条目随之移除，后续调用重试。
//
// ## 基本使用
//
//	d, _ := dedup.New(&dedup.Config{MaxEntries: 500}, dedup.WithLogger(logger))
//
//	result, err := d.Do(ctx, dedup.Request{
//		Method:   "GET",
//		URL:      "/api/products?featured=true",
//		Priority: dedup.PriorityHigh,
//	}, func(ctx context.Context) (any, error) {
//		return fetchFeatured(ctx)
//	})
//
//	// 购物车变更后失效相关读缓存
//	d.InvalidateByPattern("/cart")
package dedup

import (
	"context"

	"github.com/ceyewan/storekit/clog"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Priority 缓存优先级，影响缓存 TTL 与淘汰顺序
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Request 去重请求描述
type Request struct {
	// Method HTTP 方法（GET/POST/...）
	Method string
	// URL 请求路径（含查询串）
	URL string
	// Body 请求体，参与签名（对变更请求区分不同载荷）
	Body any
	// Priority 缓存优先级，空值按 normal 处理
	Priority Priority
}

// RequestFunc 实际执行网络调用的函数
type RequestFunc func(ctx context.Context) (any, error)

// Deduplicator 请求去重器核心接口
type Deduplicator interface {
	// Do 执行去重请求
	//
	// 流程：
	//   1. 缓存命中且未过期 → 直接返回缓存值，不调用 fn
	//   2. 相同签名在途 → 挂到同一个在途操作上，共享结果
	//   3. 否则执行 fn；成功时按优先级 TTL 写缓存，完成后移除在途条目
	//
	// fn 的失败传播给所有等待该签名的调用方，且不会被缓存。
	Do(ctx context.Context, req Request, fn RequestFunc) (any, error)

	// InvalidateByPattern 失效签名含指定子串的所有缓存条目与在途注册
	InvalidateByPattern(substring string)

	// ClearCache 清空全部缓存与命中统计（不影响在途操作）
	ClearCache()

	// Metrics 返回缓存指标快照
	Metrics() Metrics
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建请求去重器实例
//
// 参数:
//   - cfg: 去重器配置，为 nil 时使用 DefaultConfig()
//   - opts: 可选参数 (Logger, Registerer)
func New(cfg *Config, opts ...Option) (Deduplicator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.setDefaults()

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	} else {
		logger = logger.WithNamespace("dedup")
	}

	return newDeduplicator(cfg, logger, opt.registerer), nil
}
