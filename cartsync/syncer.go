package cartsync

import (
	"context"
	"sync"
	"time"

	"github.com/ceyewan/storekit/clog"
)

// syncer 购物车同步器实现（非导出）
type syncer struct {
	cfg        *Config
	origin     string
	channel    Channel
	locks      LockStore
	logger     clog.Logger
	onConflict ConflictHandler

	mu sync.Mutex
	// items 本地购物车，键为 ProductID|VariantID
	items map[string]CartItem
	// lastLocalWrite 最后一次本地变更的逻辑时间戳（unix 毫秒，单调递增）
	lastLocalWrite int64
	// lastApplied 已处理远端快照的最大内嵌时间戳。
	// 排序只看内嵌时间戳，不看到达顺序：迟到的旧快照不得覆盖已应用的新快照。
	lastApplied int64
	timer       *time.Timer
	closed      bool

	unsubscribe func()
}

func newSyncer(cfg *Config, channel Channel, opt options) (*syncer, error) {
	s := &syncer{
		cfg:        cfg,
		origin:     opt.origin,
		channel:    channel,
		locks:      opt.locks,
		logger:     opt.logger,
		onConflict: opt.onConflict,
		items:      make(map[string]CartItem),
	}

	unsubscribe, err := channel.Subscribe(context.Background(), cfg.Topic, s.handleIncoming)
	if err != nil {
		return nil, err
	}
	s.unsubscribe = unsubscribe

	return s, nil
}

func (s *syncer) Origin() string {
	return s.origin
}

// ========================================
// 本地变更 (Local Mutations)
// ========================================

func (s *syncer) UpsertItem(item CartItem) {
	s.mutate(func() {
		s.items[item.key()] = item
	})
}

func (s *syncer) RemoveItem(productID, variantID string) {
	s.mutate(func() {
		delete(s.items, CartItem{ProductID: productID, VariantID: variantID}.key())
	})
}

func (s *syncer) ReplaceCart(items []CartItem) {
	s.mutate(func() {
		s.items = make(map[string]CartItem, len(items))
		for _, item := range items {
			s.items[item.key()] = item
		}
	})
}

func (s *syncer) Items() []CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemsLocked()
}

// mutate 应用本地变更并重置防抖定时器
func (s *syncer) mutate(apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	apply()
	// 同一毫秒内的连续变更仍需严格递增，否则接收方会把后发快照当作过时
	ts := time.Now().UnixMilli()
	if ts <= s.lastLocalWrite {
		ts = s.lastLocalWrite + 1
	}
	s.lastLocalWrite = ts
	s.scheduleLocked()
}

// scheduleLocked 尾沿防抖：窗口内的连续变更只触发一次广播
func (s *syncer) scheduleLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cfg.Debounce, func() {
		if err := s.Flush(context.Background()); err != nil {
			s.logger.Warn("debounced broadcast failed", clog.Error(err))
		}
	})
}

// Flush 立即持久化并广播当前快照
func (s *syncer) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSyncerClosed
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := s.channel.Publish(ctx, s.cfg.Topic, data); err != nil {
		return err
	}

	s.logger.Debug("snapshot broadcast",
		clog.Int("items", len(snap.Items)),
		clog.Int64("ts", snap.Timestamp))
	return nil
}

// ========================================
// 远端快照处理 (Incoming Snapshots)
// ========================================

func (s *syncer) handleIncoming(payload []byte) {
	snap, err := decodeSnapshot(payload)
	if err != nil {
		s.logger.Warn("malformed snapshot dropped", clog.Error(err))
		return
	}

	// 忽略自己发出的快照
	if snap.Origin == s.origin {
		return
	}

	// 校验和不符视为损坏，丢弃且不做任何变更
	if ComputeChecksum(snap.Items) != snap.Checksum {
		s.logger.Warn("snapshot checksum mismatch, dropped",
			clog.String("origin", snap.Origin))
		return
	}

	var conflict *SyncConflictError

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	// 不比已处理快照新的快照已被取代，丢弃（广播乱序到达时的保护）
	if snap.Timestamp <= s.lastApplied {
		s.mu.Unlock()
		s.logger.Debug("superseded snapshot dropped",
			clog.String("origin", snap.Origin),
			clog.Int64("ts", snap.Timestamp))
		return
	}
	s.lastApplied = snap.Timestamp

	local := s.itemsLocked()
	switch {
	case structuralEqual(local, snap.Items):
		// 结构相同，静默接受

	case s.lastLocalWrite <= snap.Timestamp:
		// 远端更新且本地此后无写入：整体替换，非冲突
		s.replaceLocked(snap.Items)

	default:
		// 远端时间戳之后发生过本地写入：真正的冲突，按策略解决
		conflict = s.resolveConflictLocked(local, snap)
	}
	s.mu.Unlock()

	// manual 策略：冲突交给处理器，绝不静默丢弃
	if conflict != nil {
		if s.onConflict != nil {
			s.onConflict(conflict)
		} else {
			s.logger.Warn("unresolved cart conflict", clog.Error(conflict))
		}
	}
}

// resolveConflictLocked 按策略解决冲突，manual 策略返回冲突信号
func (s *syncer) resolveConflictLocked(local []CartItem, remote Snapshot) *SyncConflictError {
	switch s.cfg.Policy {
	case PolicyAutoMerge:
		// 确定性合并：条目并集，同键取最大数量；合并结果在下个防抖窗口重新广播
		s.replaceLocked(mergeMaxQuantity(local, remote.Items))
		s.scheduleLocked()
		return nil

	case PolicyLastWriteWins:
		// 只比较内嵌时间戳，与到达顺序无关
		if remote.Timestamp > s.lastLocalWrite {
			s.replaceLocked(remote.Items)
		}
		return nil

	default: // PolicyManual
		return &SyncConflictError{
			Local: Snapshot{
				Items:     local,
				Timestamp: s.lastLocalWrite,
				Origin:    s.origin,
				Checksum:  ComputeChecksum(local),
			},
			Remote: remote,
		}
	}
}

// replaceLocked 整体替换购物车（清空后逐条写入），保证结果与快照完全一致
func (s *syncer) replaceLocked(items []CartItem) {
	s.items = make(map[string]CartItem, len(items))
	for _, item := range items {
		s.items[item.key()] = item
	}
}

// ========================================
// 结账互斥 (Checkout Mutual Exclusion)
// ========================================

func (s *syncer) BeginCheckout(ctx context.Context) error {
	s.mu.Lock()
	checksum := ComputeChecksum(s.itemsLocked())
	s.mu.Unlock()

	lock := CheckoutLock{
		Owner:      s.origin,
		AcquiredAt: time.Now(),
		Checksum:   checksum,
	}
	if err := s.locks.Acquire(ctx, lock, s.cfg.LockTTL); err != nil {
		return err
	}

	s.logger.Info("checkout lock acquired", clog.String("origin", s.origin))
	return nil
}

func (s *syncer) EndCheckout(ctx context.Context) error {
	if err := s.locks.Release(ctx, s.origin); err != nil {
		return err
	}
	s.logger.Info("checkout lock released", clog.String("origin", s.origin))
	return nil
}

// ========================================
// 内部辅助 (Internals)
// ========================================

// itemsLocked 返回按键排序的条目副本，调用方需持有 s.mu
func (s *syncer) itemsLocked() []CartItem {
	out := make([]CartItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	return sortedCopy(out)
}

// snapshotLocked 构造当前状态的快照，调用方需持有 s.mu
func (s *syncer) snapshotLocked() Snapshot {
	items := s.itemsLocked()
	return Snapshot{
		Items:     items,
		Timestamp: s.lastLocalWrite,
		Origin:    s.origin,
		Checksum:  ComputeChecksum(items),
	}
}

func (s *syncer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	return nil
}
