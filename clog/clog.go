// Package clog 为 StoreKit 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 支持层级命名空间，便于区分组件来源
//   - 零外部依赖（仅依赖 Go 标准库）
//   - 采用函数式选项模式，符合 StoreKit 组件标准
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "console",
//	    Output: "stdout",
//	})
//	logger.Info("catalog loaded", clog.Int("count", 42))
//
// 派生子 Logger：
//
//	breakerLogger := logger.WithNamespace("breaker")
//	breakerLogger.Warn("circuit opened", clog.String("endpoint", "products"))
package clog

import (
	"fmt"
	"sync"
)

// New 创建一个新的 Logger 实例
//
// config - 日志配置，为 nil 时使用默认配置
// opts   - 函数式选项列表，用于设置初始命名空间等
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opt := applyOptions(opts...)
	return newLogger(config, opt)
}

// defaultLogger 进程级默认 Logger，供未显式注入 Logger 的组件使用
var (
	defaultMu     sync.RWMutex
	defaultLogger Logger
)

// Default 返回默认 Logger
//
// 未调用过 SetDefault 时返回 info 级别的 console Logger。
func Default() Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		l, err := New(DefaultConfig())
		if err != nil {
			l = Discard()
		}
		defaultLogger = l
	}
	return defaultLogger
}

// SetDefault 设置默认 Logger
func SetDefault(l Logger) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}
