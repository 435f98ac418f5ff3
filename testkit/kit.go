// Package testkit 提供集成测试的公共依赖：测试 logger、超时上下文、
// 唯一 ID，以及基于 testcontainers 的 Redis / NATS 容器辅助函数。
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/storekit/clog"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
}

// NewKit 返回一个包含默认依赖的测试工具包
func NewKit(t *testing.T) *Kit {
	return &Kit{
		Ctx:    context.Background(),
		Logger: NewLogger(),
	}
}

// NewLogger 返回一个用于测试的 logger
// 输出到开发环境格式，适合本地调试
func NewLogger() clog.Logger {
	logger, err := clog.New(&clog.Config{Level: "debug", Format: "console"})
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewContext 返回一个带有超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)
// 用于生成唯一的 Key、Topic 或频道名后缀，避免测试间数据冲突
func NewID() string {
	return uuid.New().String()[0:8]
}
