package dedup

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ceyewan/storekit/clog"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger     clog.Logger
	registerer prometheus.Registerer
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动追加 namespace: "dedup"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer 设置 Prometheus Registerer
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = registerer
	}
}
