package stale

import "github.com/ceyewan/storekit/clog"

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger clog.Logger
}

// WithLogger 设置 Logger，内部会自动追加 namespace: "stale"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
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
		opt.logger = opt.logger.WithNamespace("stale")
	}
	return opt
}
