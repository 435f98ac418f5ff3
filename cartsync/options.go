package cartsync

import "github.com/ceyewan/storekit/clog"

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	logger     clog.Logger
	origin     string
	locks      LockStore
	onConflict ConflictHandler
}

// WithLogger 设置 Logger，内部会自动追加 namespace: "cartsync"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithOrigin 指定标签页身份，默认生成 uuid
func WithOrigin(origin string) Option {
	return func(o *options) {
		o.origin = origin
	}
}

// WithLockStore 指定结账锁存储，默认进程内存储
func WithLockStore(locks LockStore) Option {
	return func(o *options) {
		o.locks = locks
	}
}

// WithConflictHandler 设置 manual 策略下的冲突回调
func WithConflictHandler(handler ConflictHandler) Option {
	return func(o *options) {
		o.onConflict = handler
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
		opt.logger = opt.logger.WithNamespace("cartsync")
	}
	return opt
}
