package clog

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用，小写）
type options struct {
	namespaceParts []string
}

// WithNamespace 设置初始命名空间
//
// 使用示例:
//
//	logger, _ := clog.New(cfg, clog.WithNamespace("storefront", "cart"))
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespaceParts = append(o.namespaceParts, parts...)
	}
}

// applyOptions 应用选项列表（内部使用）
func applyOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
