// Package config 提供了 StoreKit 的统一配置加载能力，基于 Viper 实现。
//
// 特性：
//   - 多源加载：YAML/JSON 文件、环境变量、.env 文件
//   - 优先级：环境变量 > .env > 环境特定配置 > 基础配置
//   - 热更新：监听配置文件变化，按 key 推送变更事件
//
// ## 基本使用
//
//	loader, _ := config.New(
//		config.WithConfigName("storekit"),
//		config.WithConfigPaths("./config"),
//	)
//	if err := loader.Load(ctx); err != nil {
//		panic(err)
//	}
//
//	var sfCfg storefront.Config
//	_ = loader.UnmarshalKey("storefront", &sfCfg)
//
//	ch, _ := loader.Watch(ctx, "storefront.use_mock_data")
//	for ev := range ch {
//		// 切换 mock 模式
//		_ = ev
//	}
package config

import (
	"context"
	"time"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Loader 配置加载器核心接口
type Loader interface {
	// Load 从所有来源加载配置并启动文件监听
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听指定 key 的变更，context 取消时停止监听
	Watch(ctx context.Context, key string) (<-chan Event, error)
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string // 当前仅 "file"
	Timestamp time.Time
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建配置加载器
//
// 参数:
//   - opts: 可选参数 (ConfigName, ConfigPaths, ConfigType, EnvPrefix, Logger)
func New(opts ...Option) (Loader, error) {
	opt := applyOptions(opts...)
	return newLoader(opt), nil
}
