package storefront

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ceyewan/storekit/clog"
	"github.com/ceyewan/storekit/httpx"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger     clog.Logger
	registerer prometheus.Registerer
	transport  httpx.Client
}

// WithLogger 设置 Logger，内部会自动追加 namespace: "storefront"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer 设置 Prometheus Registerer，透传给熔断器与去重器
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = registerer
	}
}

// WithTransport 注入自定义 HTTP 客户端（测试用）
func WithTransport(transport httpx.Client) Option {
	return func(o *options) {
		o.transport = transport
	}
}

func applyOptions(opts ...Option) options {
	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	if opt.logger == nil {
		opt.logger = clog.Discard()
	} else {
		opt.logger = opt.logger.WithNamespace("storefront")
	}
	return opt
}
