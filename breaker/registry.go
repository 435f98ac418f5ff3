package breaker

import (
	"sync"

	"github.com/ceyewan/storekit/clog"
)

// Registry 熔断器注册表
//
// 按逻辑端点名维护熔断器实例，保证每个名字至多一个实例（get-or-create 语义）。
// 供 API 服务层全局持有，支持指标聚合和批量重置。
type Registry struct {
	defaults  *Config
	overrides map[string]*Config
	logger    clog.Logger
	coll      *collectors

	breakers sync.Map // map[string]*circuitBreaker
}

// NewRegistry 创建熔断器注册表
//
// 参数:
//   - defaults: 未单独配置的端点使用的默认配置，为 nil 时使用 DefaultConfig()
//   - opts: 可选参数 (Logger, Registerer, EndpointConfig)
func NewRegistry(defaults *Config, opts ...Option) *Registry {
	if defaults == nil {
		defaults = DefaultConfig()
	}
	defaults.setDefaults()

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

	overrides := make(map[string]*Config, len(opt.endpointConfigs))
	for name, cfg := range opt.endpointConfigs {
		if cfg == nil {
			continue
		}
		dup := cfg.clone()
		dup.setDefaults()
		if dup.Classifier == nil {
			dup.Classifier = defaults.Classifier
		}
		overrides[name] = dup
	}

	return &Registry{
		defaults:  defaults,
		overrides: overrides,
		logger:    logger,
		coll:      newCollectors(opt.registerer),
	}
}

// Get 返回指定端点的熔断器，不存在则创建（幂等，无重复实例）
func (r *Registry) Get(name string) Breaker {
	if val, ok := r.breakers.Load(name); ok {
		return val.(*circuitBreaker)
	}

	cfg := r.defaults
	if override, ok := r.overrides[name]; ok {
		cfg = override
	}

	cb := newBreaker(name, cfg.clone(), r.logger, r.coll)

	// 并发创建时保留先存入的实例
	actual, _ := r.breakers.LoadOrStore(name, cb)
	return actual.(*circuitBreaker)
}

// AllMetrics 返回所有熔断器的指标快照
func (r *Registry) AllMetrics() map[string]Metrics {
	result := make(map[string]Metrics)
	r.breakers.Range(func(key, val any) bool {
		result[key.(string)] = val.(*circuitBreaker).Metrics()
		return true
	})
	return result
}

// ResetAll 强制所有熔断器重置为 CLOSED 并清零计数器
// 可与在途调用并发执行：在途调用按其开始时观察到的状态完成。
func (r *Registry) ResetAll() {
	r.breakers.Range(func(_, val any) bool {
		val.(*circuitBreaker).Reset()
		return true
	})
	r.logger.Info("all circuit breakers reset")
}

// Names 返回已创建的熔断器名列表
func (r *Registry) Names() []string {
	var names []string
	r.breakers.Range(func(key, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	return names
}
