package breaker

import "context"

// Fallback 降级策略，三种形态之一：无降级、固定值、生产函数。
//
// 统一由熔断器在合格失败或熔断短路时求值；
// 非合格失败（客户端错误）不会触发降级。
type Fallback struct {
	kind     fallbackKind
	value    any
	producer func(ctx context.Context) (any, error)
}

type fallbackKind int

const (
	fallbackNone fallbackKind = iota
	fallbackValue
	fallbackProducer
)

// NoFallback 无降级：失败原样透传
func NoFallback() Fallback {
	return Fallback{kind: fallbackNone}
}

// FallbackValue 固定值降级
func FallbackValue(v any) Fallback {
	return Fallback{kind: fallbackValue, value: v}
}

// FallbackFunc 生产函数降级，执行时才求值（可访问缓存等）
func FallbackFunc(fn func(ctx context.Context) (any, error)) Fallback {
	if fn == nil {
		return NoFallback()
	}
	return Fallback{kind: fallbackProducer, producer: fn}
}

// OnServe 包装降级：被求值时先调用 fn
//
// 调用方可借此区分降级结果与真实成功，例如不把降级值当作
// 最新后端数据写入缓存。无降级或 fn 为 nil 时原样返回。
func (f Fallback) OnServe(fn func()) Fallback {
	if !f.present() || fn == nil {
		return f
	}
	inner := f
	return Fallback{kind: fallbackProducer, producer: func(ctx context.Context) (any, error) {
		fn()
		return inner.resolve(ctx)
	}}
}

// present 是否配置了降级
func (f Fallback) present() bool {
	return f.kind != fallbackNone
}

// resolve 求值降级结果
func (f Fallback) resolve(ctx context.Context) (any, error) {
	switch f.kind {
	case fallbackValue:
		return f.value, nil
	case fallbackProducer:
		return f.producer(ctx)
	default:
		return nil, nil
	}
}
