// Package cartsync 提供了跨标签页的购物车同步与结账互斥。
//
// 每个标签页持有本地购物车状态；本地变更在防抖窗口（默认 500ms）后
// 打包为带校验和的快照，持久化并广播给其他标签页。接收方忽略自己
// 发出的快照，校验和不符的快照视为损坏直接丢弃，真正的冲突按配置
// 策略解决：manual（交给 UI 决定）、auto-merge（按条目取最大数量，
// 确定性合并）、last-write-wins（比较快照内嵌时间戳）。
//
// 结账互斥是存储上的建议锁：持锁标签页身份 + 获取时间 + 购物车校验和，
// 超过 5 分钟视为陈旧可被抢占。它防的是正常 UI 流程下的跨页重复提交，
// 不保证崩溃场景的原子性。
//
// ## 基本使用
//
//	syncer, _ := cartsync.New(nil, cartsync.NewMemoryChannel(),
//		cartsync.WithLogger(logger))
//	defer syncer.Close()
//
//	syncer.UpsertItem(cartsync.CartItem{ProductID: "7", VariantID: "7-blue", Quantity: 1})
//
//	if err := syncer.BeginCheckout(ctx); cartsync.IsCheckoutLocked(err) {
//		// 另一个标签页正在结账
//	}
package cartsync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ========================================
// 类型定义 (Type Definitions)
// ========================================

// CartItem 购物车条目，ProductID+VariantID 唯一标识一行
type CartItem struct {
	ProductID string `json:"product_id" msgpack:"product_id"`
	VariantID string `json:"variant_id" msgpack:"variant_id"`
	Quantity  int    `json:"quantity" msgpack:"quantity"`
}

// key 条目的唯一键
func (i CartItem) key() string {
	return i.ProductID + "|" + i.VariantID
}

// Snapshot 跨标签页广播的购物车快照
type Snapshot struct {
	// Items 购物车条目，广播前按键排序
	Items []CartItem `json:"items" msgpack:"items"`
	// Timestamp 逻辑时间戳（unix 毫秒），冲突比较依据
	Timestamp int64 `json:"timestamp" msgpack:"timestamp"`
	// Origin 产生快照的标签页身份
	Origin string `json:"origin" msgpack:"origin"`
	// Checksum 规范化条目编码的 sha256 十六进制
	Checksum string `json:"checksum" msgpack:"checksum"`
}

// ConflictPolicy 冲突解决策略
type ConflictPolicy string

const (
	// PolicyManual 冲突交给 OnConflict 处理器，不做自动变更
	PolicyManual ConflictPolicy = "manual"
	// PolicyAutoMerge 条目并集，同键取最大数量（确定性）
	PolicyAutoMerge ConflictPolicy = "auto-merge"
	// PolicyLastWriteWins 采用内嵌时间戳更晚的一侧（与到达顺序无关）
	PolicyLastWriteWins ConflictPolicy = "last-write-wins"
)

// ConflictHandler manual 策略下的冲突回调
type ConflictHandler func(*SyncConflictError)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Syncer 购物车同步器核心接口
type Syncer interface {
	// UpsertItem 新增或覆盖一行（按 ProductID+VariantID）
	UpsertItem(item CartItem)

	// RemoveItem 删除一行
	RemoveItem(productID, variantID string)

	// ReplaceCart 整体替换购物车内容
	ReplaceCart(items []CartItem)

	// Items 返回当前购物车条目（按键排序的副本）
	Items() []CartItem

	// Flush 跳过防抖窗口，立即持久化并广播当前快照
	Flush(ctx context.Context) error

	// BeginCheckout 获取结账锁；他页持有未陈旧锁时返回 ErrCheckoutLocked
	BeginCheckout(ctx context.Context) error

	// EndCheckout 释放本页持有的结账锁
	EndCheckout(ctx context.Context) error

	// Origin 返回本页身份
	Origin() string

	// Close 停止防抖定时器并退订广播
	Close() error
}

// Channel 跨标签页广播通道能力抽象
//
// 同一套同步逻辑既可以跑在进程内通道（storage 事件的单进程模拟）上，
// 也可以跑在 NATS 上，不改动冲突解决逻辑。
type Channel interface {
	// Publish 向指定键广播载荷
	Publish(ctx context.Context, key string, payload []byte) error

	// Subscribe 订阅指定键，返回退订函数
	Subscribe(ctx context.Context, key string, handler func([]byte)) (func(), error)

	// Close 关闭通道
	Close() error
}

// CheckoutLock 结账建议锁
type CheckoutLock struct {
	// Owner 持锁标签页身份
	Owner string `json:"owner" msgpack:"owner"`
	// AcquiredAt 获取时间
	AcquiredAt time.Time `json:"acquired_at" msgpack:"acquired_at"`
	// Checksum 获取时购物车内容的校验和
	Checksum string `json:"checksum" msgpack:"checksum"`
}

// LockStore 结账锁存储能力抽象
type LockStore interface {
	// Acquire 尝试获取锁
	//
	// 他人持有且未陈旧（TTL 内）→ ErrCheckoutLocked；
	// 自己持有 → 刷新；陈旧锁可被抢占。
	Acquire(ctx context.Context, lock CheckoutLock, ttl time.Duration) error

	// Release 释放 owner 持有的锁，非持有者调用无效果
	Release(ctx context.Context, owner string) error

	// Holder 返回当前未陈旧的锁（无锁或已陈旧返回 nil）
	Holder(ctx context.Context) (*CheckoutLock, error)
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建购物车同步器实例
//
// 参数:
//   - cfg: 同步配置，为 nil 时使用 DefaultConfig()
//   - channel: 广播通道（NewMemoryChannel / NewNATSChannel）
//   - opts: 可选参数 (Logger, LockStore, ConflictHandler, Origin)
func New(cfg *Config, channel Channel, opts ...Option) (Syncer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if channel == nil {
		return nil, ErrChannelNil
	}

	opt := applyOptions(opts...)
	if opt.origin == "" {
		opt.origin = uuid.NewString()
	}
	if opt.locks == nil {
		opt.locks = NewMemoryLockStore()
	}

	return newSyncer(cfg, channel, opt)
}
