package clog

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

// NamespaceKey 是日志中命名空间的字段名，用于标识组件来源
const NamespaceKey = "namespace"

// loggerImpl 是 Logger 接口的具体实现
type loggerImpl struct {
	handler   slog.Handler
	level     *slog.LevelVar
	namespace []string
	baseAttrs []slog.Attr
}

// newLogger 创建 Logger 实例（内部使用）
func newLogger(config *Config, opt *options) (Logger, error) {
	level, _ := ParseLevel(config.Level)

	levelVar := &slog.LevelVar{}
	levelVar.Set(level.slogLevel())

	out := os.Stdout
	if config.Output == "stderr" {
		out = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     levelVar,
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	return &loggerImpl{
		handler:   handler,
		level:     levelVar,
		namespace: opt.namespaceParts,
	}, nil
}

func (l *loggerImpl) Debug(msg string, fields ...Field) {
	l.log(context.Background(), DebugLevel, msg, fields...)
}

func (l *loggerImpl) Info(msg string, fields ...Field) {
	l.log(context.Background(), InfoLevel, msg, fields...)
}

func (l *loggerImpl) Warn(msg string, fields ...Field) {
	l.log(context.Background(), WarnLevel, msg, fields...)
}

func (l *loggerImpl) Error(msg string, fields ...Field) {
	l.log(context.Background(), ErrorLevel, msg, fields...)
}

func (l *loggerImpl) DebugContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields...)
}

func (l *loggerImpl) InfoContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields...)
}

func (l *loggerImpl) WarnContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields...)
}

func (l *loggerImpl) ErrorContext(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields...)
}

func (l *loggerImpl) With(fields ...Field) Logger {
	attrs := make([]slog.Attr, 0, len(l.baseAttrs)+len(fields))
	attrs = append(attrs, l.baseAttrs...)
	attrs = append(attrs, fields...)

	return &loggerImpl{
		handler:   l.handler,
		level:     l.level,
		namespace: l.namespace,
		baseAttrs: attrs,
	}
}

func (l *loggerImpl) WithNamespace(parts ...string) Logger {
	ns := make([]string, 0, len(l.namespace)+len(parts))
	ns = append(ns, l.namespace...)
	ns = append(ns, parts...)

	return &loggerImpl{
		handler:   l.handler,
		level:     l.level,
		namespace: ns,
		baseAttrs: l.baseAttrs,
	}
}

// SetLevel 动态调整日志级别，同一 handler 派生的子 Logger 共享级别
func (l *loggerImpl) SetLevel(level Level) error {
	l.level.Set(level.slogLevel())
	return nil
}

// log 组装属性并交给 slog handler（内部方法）
func (l *loggerImpl) log(ctx context.Context, level Level, msg string, fields ...Field) {
	slogLevel := level.slogLevel()
	if !l.handler.Enabled(ctx, slogLevel) {
		return
	}

	attrs := make([]slog.Attr, 0, len(l.baseAttrs)+len(fields)+1)
	attrs = append(attrs, l.baseAttrs...)
	attrs = append(attrs, fields...)
	if len(l.namespace) > 0 {
		attrs = append(attrs, slog.String(NamespaceKey, strings.Join(l.namespace, ".")))
	}

	record := slog.NewRecord(time.Now(), slogLevel, msg, 0)
	record.AddAttrs(attrs...)
	_ = l.handler.Handle(ctx, record)
}
