// Package breaker 提供了熔断器组件，专注于出站 API 调用的故障隔离与自动恢复。
//
// breaker 是 StoreKit 弹性层的核心组件，它提供了：
// - 基于 gobreaker 的熔断器实现
// - 端点级粒度的熔断管理（按逻辑端点名独立熔断，如 "products"、"auth"）
// - 连续失败计数触发熔断，半开探测自动恢复
// - 失败分类：仅"合格失败"（5xx、网络错误、超时）计入熔断，4xx 客户端错误直接透传
// - 降级策略：显式 Fallback（值或生产函数），熔断打开时立即返回降级结果
// - 状态变更事件通知，供 UI 层展示服务降级提示
//
// ## 基本使用
//
//	brk, _ := breaker.New("products", &breaker.Config{
//		FailureThreshold: 5,
//		ResetTimeout:     30 * time.Second,
//		SuccessThreshold: 2,
//	}, breaker.WithLogger(logger))
//
//	result, err := brk.Execute(ctx, func(ctx context.Context) (any, error) {
//		return fetchProducts(ctx)
//	}, breaker.FallbackValue(staticProducts))
//
// ## 注册表
//
//	reg := breaker.NewRegistry(breaker.DefaultConfig(), breaker.WithLogger(logger))
//	brk := reg.Get("cart") // 按名取用，不存在则按默认配置创建
package breaker

import (
	"context"
	"time"

	"github.com/ceyewan/storekit/clog"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Operation 受熔断保护的操作函数
type Operation func(ctx context.Context) (any, error)

// Breaker 熔断器核心接口
type Breaker interface {
	// Execute 执行受熔断保护的操作
	//
	// 行为：
	//   - CLOSED: 执行 op。合格失败累计连续失败数，达到阈值后熔断；
	//     提供了 fallback 时返回降级结果，否则透传错误。
	//     非合格失败（4xx）无视 fallback，始终原样透传。
	//   - OPEN: 重置超时未到时不执行 op，直接返回 fallback 结果；
	//     无 fallback 则返回 *CircuitOpenError。超时已过则转 HALF_OPEN 探测。
	//   - HALF_OPEN: op 作为探测执行，连续成功达到阈值后闭合，任一失败立即重新打开。
	Execute(ctx context.Context, op Operation, fb Fallback) (any, error)

	// Name 返回熔断器守护的逻辑端点名
	Name() string

	// State 返回当前熔断器状态
	State() State

	// Metrics 返回熔断器指标快照
	Metrics() Metrics

	// Reset 强制将熔断器重置为 CLOSED 并清零计数器
	// 已在途的调用按其开始时观察到的状态完成，不受影响。
	Reset()

	// Subscribe 注册事件监听器，返回取消注册函数
	// 监听器同步调用且相互隔离：某个监听器 panic 不影响熔断器状态和其他监听器。
	Subscribe(l Listener) (unsubscribe func())
}

// State 熔断器状态
type State int

const (
	// StateClosed 闭合状态（正常）
	StateClosed State = iota
	// StateHalfOpen 半开状态（探测恢复）
	StateHalfOpen
	// StateOpen 打开状态（熔断中）
	StateOpen
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ========================================
// 事件定义 (Events)
// ========================================

// EventType 事件类型
type EventType string

const (
	// EventStateChange 状态变更事件
	EventStateChange EventType = "state_change"
	// EventFailure 合格失败事件
	EventFailure EventType = "failure"
)

// Event 熔断器事件，推送给已注册的监听器
type Event struct {
	Type EventType
	Name string
	From State // 仅 state_change 有效
	To   State // 仅 state_change 有效
	Err  error // 仅 failure 有效
	At   time.Time
}

// Listener 事件监听器
type Listener func(Event)

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建单个熔断器实例
//
// 参数:
//   - name: 逻辑端点名，不可为空
//   - cfg: 熔断器配置，为 nil 时使用 DefaultConfig()
//   - opts: 可选参数 (Logger, Registerer)
func New(name string, cfg *Config, opts ...Option) (Breaker, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	} else {
		logger = logger.WithNamespace("breaker")
	}

	return newBreaker(name, cfg, logger, newCollectors(opt.registerer)), nil
}
