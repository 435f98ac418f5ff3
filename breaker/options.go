package breaker

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ceyewan/storekit/clog"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger          clog.Logger
	registerer      prometheus.Registerer
	endpointConfigs map[string]*Config
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动追加 namespace: "breaker"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer 设置 Prometheus Registerer
// 未设置时指标仅在进程内累加，不对外暴露。
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = registerer
	}
}

// WithEndpointConfig 为指定端点设置独立配置（仅 Registry 有效）
//
// 使用示例:
//
//	reg := breaker.NewRegistry(breaker.DefaultConfig(),
//		breaker.WithEndpointConfig("orders", &breaker.Config{
//			FailureThreshold: 3,
//			ResetTimeout:     60 * time.Second,
//		}),
//	)
func WithEndpointConfig(name string, cfg *Config) Option {
	return func(o *options) {
		if o.endpointConfigs == nil {
			o.endpointConfigs = make(map[string]*Config)
		}
		o.endpointConfigs[name] = cfg
	}
}
