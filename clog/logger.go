package clog

import "context"

// Logger 日志接口，提供结构化日志记录功能
//
// 支持四个日志级别：Debug、Info、Warn、Error，
// 每个级别都有带 Context 和不带 Context 的版本。
//
// 基本使用：
//
//	logger.Info("request served", clog.String("endpoint", "products"))
//
// 创建子 Logger：
//
//	child := logger.With(clog.String("tab_id", id))
//	namespaced := logger.WithNamespace("cartsync")
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger，预设字段出现在所有日志中
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger
	//
	// 命名空间追加到现有命名空间之后，以 "." 连接：
	//
	//	logger := clog.Default().WithNamespace("storefront")
	//	cartLogger := logger.WithNamespace("cart")
	//	// 最终命名空间为 "storefront.cart"
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整日志级别
	SetLevel(level Level) error
}
