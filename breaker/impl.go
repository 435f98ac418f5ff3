package breaker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/storekit/clog"
	"github.com/ceyewan/storekit/xerrors"
)

// circuitBreaker 熔断器实现（非导出）
type circuitBreaker struct {
	name   string
	cfg    *Config
	logger clog.Logger
	coll   *collectors

	// 底层 gobreaker 实例。Reset 通过原子替换实现：
	// 在途调用持有旧实例指针，按其开始时观察到的状态完成。
	gb atomic.Pointer[gobreaker.CircuitBreaker[any]]

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int

	totalRequests  atomic.Uint64
	totalSuccesses atomic.Uint64
	totalFailures  atomic.Uint64
	rejected       atomic.Uint64
	lastTransition atomic.Int64 // unix nano
}

// newBreaker 创建熔断器实例（内部函数）
// 注意：cfg 已在 New() 中调用 setDefaults()/validate()
func newBreaker(name string, cfg *Config, logger clog.Logger, coll *collectors) *circuitBreaker {
	cb := &circuitBreaker{
		name:      name,
		cfg:       cfg,
		logger:    logger,
		coll:      coll,
		listeners: make(map[int]Listener),
	}
	cb.lastTransition.Store(time.Now().UnixNano())
	cb.gb.Store(cb.newInstance())

	logger.Info("circuit breaker created",
		clog.String("endpoint", name),
		clog.Int("failure_threshold", cfg.FailureThreshold),
		clog.Duration("reset_timeout", cfg.ResetTimeout),
		clog.Int("success_threshold", cfg.SuccessThreshold))

	return cb
}

// newInstance 按配置构建 gobreaker 实例
//
// 语义映射：
//   - 连续合格失败阈值     → ReadyToTrip(counts.ConsecutiveFailures)
//   - 失败分类（4xx 不计入）→ IsSuccessful
//   - 半开连续成功闭合阈值  → MaxRequests（gobreaker 半开态在
//     ConsecutiveSuccesses 达到 MaxRequests 后闭合）
//   - OPEN→HALF_OPEN 惰性转换 → Timeout（gobreaker 在下一次调用时检查）
func (cb *circuitBreaker) newInstance() *gobreaker.CircuitBreaker[any] {
	settings := gobreaker.Settings{
		Name:        cb.name,
		MaxRequests: uint32(cb.cfg.SuccessThreshold),
		Timeout:     cb.cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cb.cfg.FailureThreshold)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !cb.cfg.Classifier(err)
		},
		OnStateChange: cb.onStateChange,
	}
	return gobreaker.NewCircuitBreaker[any](settings)
}

// Execute 执行受熔断保护的操作
func (cb *circuitBreaker) Execute(ctx context.Context, op Operation, fb Fallback) (any, error) {
	gb := cb.gb.Load()
	cb.totalRequests.Add(1)

	result, err := gb.Execute(func() (any, error) {
		return op(ctx)
	})
	if err == nil {
		cb.totalSuccesses.Add(1)
		cb.coll.observe(cb.name, resultSuccess)
		return result, nil
	}

	// 熔断短路：不执行 op，直接走降级
	if xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests) {
		cb.rejected.Add(1)
		cb.coll.observe(cb.name, resultReject)
		cb.logger.Debug("circuit open, short-circuiting",
			clog.String("endpoint", cb.name))

		if fb.present() {
			return fb.resolve(ctx)
		}
		return nil, &CircuitOpenError{Name: cb.name}
	}

	if cb.cfg.Classifier(err) {
		cb.totalFailures.Add(1)
		cb.coll.observe(cb.name, resultFailure)
		cb.emit(Event{Type: EventFailure, Name: cb.name, Err: err, At: time.Now()})

		if fb.present() {
			cb.logger.Info("operation failed, serving fallback",
				clog.String("endpoint", cb.name),
				clog.Error(err))
			return fb.resolve(ctx)
		}
		return nil, err
	}

	// 非合格失败（客户端错误）：不计入熔断，无视降级，原样透传
	cb.totalSuccesses.Add(1)
	cb.coll.observe(cb.name, resultSuccess)
	return nil, err
}

// Name 返回逻辑端点名
func (cb *circuitBreaker) Name() string {
	return cb.name
}

// State 返回当前熔断器状态
func (cb *circuitBreaker) State() State {
	switch cb.gb.Load().State() {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}

// Metrics 返回熔断器指标快照
func (cb *circuitBreaker) Metrics() Metrics {
	counts := cb.gb.Load().Counts()

	total := cb.totalRequests.Load()
	successes := cb.totalSuccesses.Load()

	var rate float64
	if total > 0 {
		rate = float64(successes) / float64(total)
	}

	return Metrics{
		Name:                 cb.name,
		State:                cb.State(),
		TotalRequests:        total,
		TotalSuccesses:       successes,
		TotalFailures:        cb.totalFailures.Load(),
		Rejected:             cb.rejected.Load(),
		ConsecutiveFailures:  counts.ConsecutiveFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		SuccessRate:          rate,
		LastTransition:       time.Unix(0, cb.lastTransition.Load()),
	}
}

// Reset 强制重置为 CLOSED 并清零计数器
// gobreaker 不提供重置接口，这里用全新实例原子替换（参照注册表按键重建的做法）。
func (cb *circuitBreaker) Reset() {
	from := cb.State()

	cb.gb.Store(cb.newInstance())
	cb.totalRequests.Store(0)
	cb.totalSuccesses.Store(0)
	cb.totalFailures.Store(0)
	cb.rejected.Store(0)
	cb.lastTransition.Store(time.Now().UnixNano())

	cb.logger.Info("circuit breaker manually reset",
		clog.String("endpoint", cb.name),
		clog.String("from", from.String()))

	if from != StateClosed {
		cb.emit(Event{
			Type: EventStateChange,
			Name: cb.name,
			From: from,
			To:   StateClosed,
			At:   time.Now(),
		})
	}
}

// Subscribe 注册事件监听器
func (cb *circuitBreaker) Subscribe(l Listener) func() {
	if l == nil {
		return func() {}
	}

	cb.mu.Lock()
	id := cb.nextID
	cb.nextID++
	cb.listeners[id] = l
	cb.mu.Unlock()

	return func() {
		cb.mu.Lock()
		delete(cb.listeners, id)
		cb.mu.Unlock()
	}
}

// onStateChange gobreaker 状态变更回调
func (cb *circuitBreaker) onStateChange(name string, from gobreaker.State, to gobreaker.State) {
	fromState := mapState(from)
	toState := mapState(to)
	cb.lastTransition.Store(time.Now().UnixNano())

	cb.logger.Info("circuit breaker state changed",
		clog.String("endpoint", name),
		clog.String("from", fromState.String()),
		clog.String("to", toState.String()))

	cb.coll.stateChange(name, fromState, toState)
	cb.emit(Event{
		Type: EventStateChange,
		Name: name,
		From: fromState,
		To:   toState,
		At:   time.Now(),
	})
}

// emit 同步推送事件；监听器 panic 被隔离，不影响熔断器正确性
func (cb *circuitBreaker) emit(ev Event) {
	cb.mu.RLock()
	snapshot := make([]Listener, 0, len(cb.listeners))
	for _, l := range cb.listeners {
		snapshot = append(snapshot, l)
	}
	cb.mu.RUnlock()

	for _, l := range snapshot {
		func() {
			defer func() {
				if r := recover(); r != nil {
					cb.logger.Warn("breaker listener panicked",
						clog.String("endpoint", cb.name),
						clog.Any("panic", r))
				}
			}()
			l(ev)
		}()
	}
}

// mapState 将 gobreaker.State 映射为组件状态
func mapState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}
