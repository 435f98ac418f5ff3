package cartsync

import (
	"context"
	"testing"
	"time"
)

func newTestSyncer(t *testing.T, cfg *Config, channel Channel, opts ...Option) *syncer {
	t.Helper()
	if cfg == nil {
		cfg = &Config{Debounce: 20 * time.Millisecond}
	}
	s, err := New(cfg, channel, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s.(*syncer)
}

// remoteSnapshot 构造一份校验和有效的远端快照
func remoteSnapshot(origin string, ts int64, items ...CartItem) Snapshot {
	return Snapshot{
		Items:     items,
		Timestamp: ts,
		Origin:    origin,
		Checksum:  ComputeChecksum(items),
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// TestChecksumCanonical 校验和与条目顺序无关，数量变化则改变
func TestChecksumCanonical(t *testing.T) {
	a := CartItem{ProductID: "1", VariantID: "1-red", Quantity: 2}
	b := CartItem{ProductID: "2", VariantID: "2-blue", Quantity: 1}

	if ComputeChecksum([]CartItem{a, b}) != ComputeChecksum([]CartItem{b, a}) {
		t.Errorf("checksum must be order independent")
	}

	c := a
	c.Quantity = 3
	if ComputeChecksum([]CartItem{a, b}) == ComputeChecksum([]CartItem{c, b}) {
		t.Errorf("checksum must reflect quantity changes")
	}
}

// TestSnapshotIdempotence 同一有效快照应用两次与应用一次结果相同
func TestSnapshotIdempotence(t *testing.T) {
	s := newTestSyncer(t, nil, NewMemoryChannel(), WithOrigin("tab-a"))

	snap := remoteSnapshot("tab-b", time.Now().UnixMilli(),
		CartItem{ProductID: "7", VariantID: "7-blue", Quantity: 1})
	data, err := encodeSnapshot(snap)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	s.handleIncoming(data)
	first := s.Items()

	s.handleIncoming(data)
	second := s.Items()

	if !structuralEqual(first, second) {
		t.Errorf("double apply diverged: %v vs %v", first, second)
	}
	if len(second) != 1 || second[0].Quantity != 1 {
		t.Errorf("cart = %v, want single line qty 1", second)
	}
}

// TestChecksumCorruptionGuard 校验和不符的快照被丢弃且不变更购物车
func TestChecksumCorruptionGuard(t *testing.T) {
	s := newTestSyncer(t, nil, NewMemoryChannel(), WithOrigin("tab-a"))
	s.UpsertItem(CartItem{ProductID: "1", VariantID: "1-red", Quantity: 2})
	before := s.Items()

	snap := remoteSnapshot("tab-b", time.Now().UnixMilli()+1000,
		CartItem{ProductID: "9", VariantID: "9-x", Quantity: 5})
	snap.Checksum = "deadbeef"
	data, _ := encodeSnapshot(snap)

	s.handleIncoming(data)

	if !structuralEqual(before, s.Items()) {
		t.Errorf("corrupt snapshot mutated cart: %v", s.Items())
	}
}

// TestIgnoreOwnSnapshot 自己发出的快照被忽略
func TestIgnoreOwnSnapshot(t *testing.T) {
	s := newTestSyncer(t, nil, NewMemoryChannel(), WithOrigin("tab-a"))

	snap := remoteSnapshot("tab-a", time.Now().UnixMilli()+1000,
		CartItem{ProductID: "9", VariantID: "9-x", Quantity: 5})
	data, _ := encodeSnapshot(snap)
	s.handleIncoming(data)

	if len(s.Items()) != 0 {
		t.Errorf("own snapshot must be ignored, got: %v", s.Items())
	}
}

// TestRemoteNewerReplacesWholesale 本地无后续写入时整体采用远端快照
func TestRemoteNewerReplacesWholesale(t *testing.T) {
	s := newTestSyncer(t, nil, NewMemoryChannel(), WithOrigin("tab-a"))
	s.UpsertItem(CartItem{ProductID: "1", VariantID: "1-red", Quantity: 2})

	snap := remoteSnapshot("tab-b", time.Now().UnixMilli()+1000,
		CartItem{ProductID: "7", VariantID: "7-blue", Quantity: 3})
	data, _ := encodeSnapshot(snap)
	s.handleIncoming(data)

	got := s.Items()
	if len(got) != 1 || got[0].ProductID != "7" || got[0].Quantity != 3 {
		t.Errorf("cart = %v, want wholesale replacement by remote", got)
	}
}

// TestOutOfOrderSnapshotIgnored 迟到的旧快照不得覆盖已应用的新快照
//
// 排序依据是内嵌时间戳而非到达顺序：先应用 ts 更大的快照后，
// 再收到 ts 更小的快照必须原样丢弃。
func TestOutOfOrderSnapshotIgnored(t *testing.T) {
	s := newTestSyncer(t, nil, NewMemoryChannel(), WithOrigin("tab-a"))

	newer := remoteSnapshot("tab-b", 200,
		CartItem{ProductID: "7", VariantID: "7-blue", Quantity: 2})
	data, _ := encodeSnapshot(newer)
	s.handleIncoming(data)

	if got := s.Items(); len(got) != 1 || got[0].Quantity != 2 {
		t.Fatalf("cart = %v, want qty 2 from ts=200 snapshot", got)
	}

	older := remoteSnapshot("tab-b", 100,
		CartItem{ProductID: "7", VariantID: "7-blue", Quantity: 1})
	data, _ = encodeSnapshot(older)
	s.handleIncoming(data)

	if got := s.Items(); len(got) != 1 || got[0].Quantity != 2 {
		t.Errorf("cart = %v, stale ts=100 snapshot must not clobber ts=200 state", got)
	}
}

// TestMonotonicLocalTimestamp 同一毫秒内的连续变更时间戳仍严格递增
func TestMonotonicLocalTimestamp(t *testing.T) {
	s := newTestSyncer(t, nil, NewMemoryChannel(), WithOrigin("tab-a"))

	var last int64
	for qty := 1; qty <= 5; qty++ {
		s.UpsertItem(CartItem{ProductID: "7", VariantID: "7-blue", Quantity: qty})
		s.mu.Lock()
		ts := s.lastLocalWrite
		s.mu.Unlock()
		if ts <= last {
			t.Fatalf("timestamp %d not after %d", ts, last)
		}
		last = ts
	}
}

// TestAutoMergeMaxQuantity 冲突时并集合并、同键取最大数量，不重复计数
func TestAutoMergeMaxQuantity(t *testing.T) {
	s := newTestSyncer(t, &Config{Debounce: 20 * time.Millisecond, Policy: PolicyAutoMerge},
		NewMemoryChannel(), WithOrigin("tab-b"))

	// 本地独立加入同一行，写入时间晚于远端快照
	past := time.Now().UnixMilli() - 1000
	s.UpsertItem(CartItem{ProductID: "7", VariantID: "7-blue", Quantity: 1})
	s.UpsertItem(CartItem{ProductID: "3", VariantID: "3-s", Quantity: 2})

	snap := remoteSnapshot("tab-a", past,
		CartItem{ProductID: "7", VariantID: "7-blue", Quantity: 1},
		CartItem{ProductID: "5", VariantID: "5-m", Quantity: 4})
	data, _ := encodeSnapshot(snap)
	s.handleIncoming(data)

	got := s.Items()
	if len(got) != 3 {
		t.Fatalf("merged cart = %v, want 3 lines", got)
	}
	for _, item := range got {
		switch item.key() {
		case "7|7-blue":
			if item.Quantity != 1 {
				t.Errorf("7-blue qty = %d, want 1 (max, not sum)", item.Quantity)
			}
		case "3|3-s":
			if item.Quantity != 2 {
				t.Errorf("3-s qty = %d, want 2", item.Quantity)
			}
		case "5|5-m":
			if item.Quantity != 4 {
				t.Errorf("5-m qty = %d, want 4", item.Quantity)
			}
		}
	}
}

// TestLastWriteWins 采用内嵌时间戳更晚的一侧
func TestLastWriteWins(t *testing.T) {
	cfg := &Config{Debounce: 20 * time.Millisecond, Policy: PolicyLastWriteWins}

	// 远端更晚 → 采用远端
	s := newTestSyncer(t, cfg, NewMemoryChannel(), WithOrigin("tab-a"))
	s.UpsertItem(CartItem{ProductID: "1", VariantID: "1-red", Quantity: 2})
	snap := remoteSnapshot("tab-b", time.Now().UnixMilli()+1000,
		CartItem{ProductID: "1", VariantID: "1-red", Quantity: 9})
	data, _ := encodeSnapshot(snap)
	s.handleIncoming(data)
	if got := s.Items(); len(got) != 1 || got[0].Quantity != 9 {
		t.Errorf("cart = %v, want remote side (later ts)", got)
	}

	// 远端更早 → 保留本地
	s2 := newTestSyncer(t, cfg, NewMemoryChannel(), WithOrigin("tab-a"))
	s2.UpsertItem(CartItem{ProductID: "1", VariantID: "1-red", Quantity: 2})
	old := remoteSnapshot("tab-b", time.Now().UnixMilli()-60_000,
		CartItem{ProductID: "1", VariantID: "1-red", Quantity: 9})
	data, _ = encodeSnapshot(old)
	s2.handleIncoming(data)
	if got := s2.Items(); len(got) != 1 || got[0].Quantity != 2 {
		t.Errorf("cart = %v, want local side (later ts)", got)
	}
}

// TestManualConflictSurfaced manual 策略下冲突交给处理器且不自动变更
func TestManualConflictSurfaced(t *testing.T) {
	conflicts := make(chan *SyncConflictError, 1)
	s := newTestSyncer(t, &Config{Debounce: 20 * time.Millisecond, Policy: PolicyManual},
		NewMemoryChannel(), WithOrigin("tab-a"),
		WithConflictHandler(func(c *SyncConflictError) { conflicts <- c }))

	s.UpsertItem(CartItem{ProductID: "1", VariantID: "1-red", Quantity: 2})

	snap := remoteSnapshot("tab-b", time.Now().UnixMilli()-1000,
		CartItem{ProductID: "1", VariantID: "1-red", Quantity: 9})
	data, _ := encodeSnapshot(snap)
	s.handleIncoming(data)

	select {
	case c := <-conflicts:
		if c.Remote.Origin != "tab-b" {
			t.Errorf("conflict remote origin = %s", c.Remote.Origin)
		}
	default:
		t.Fatalf("conflict was silently dropped")
	}

	if got := s.Items(); len(got) != 1 || got[0].Quantity != 2 {
		t.Errorf("manual policy must not mutate cart, got: %v", got)
	}
}

// TestCrossTabPropagation 标签页 A 的变更经防抖广播后出现在标签页 B
func TestCrossTabPropagation(t *testing.T) {
	channel := NewMemoryChannel()
	cfg := &Config{Debounce: 20 * time.Millisecond}

	a := newTestSyncer(t, cfg, channel, WithOrigin("tab-a"))
	b := newTestSyncer(t, cfg, channel, WithOrigin("tab-b"))

	a.UpsertItem(CartItem{ProductID: "7", VariantID: "7-blue", Quantity: 1})

	waitFor(t, time.Second, func() bool {
		items := b.Items()
		return len(items) == 1 && items[0].key() == "7|7-blue" && items[0].Quantity == 1
	})
}

// TestDebounceCoalesces 防抖窗口内的连续变更合并为一次广播
func TestDebounceCoalesces(t *testing.T) {
	channel := NewMemoryChannel()
	cfg := &Config{Debounce: 40 * time.Millisecond}

	a := newTestSyncer(t, cfg, channel, WithOrigin("tab-a"))
	b := newTestSyncer(t, cfg, channel, WithOrigin("tab-b"))

	// 快速连续改数量，只应广播最终状态
	for qty := 1; qty <= 5; qty++ {
		a.UpsertItem(CartItem{ProductID: "7", VariantID: "7-blue", Quantity: qty})
		time.Sleep(5 * time.Millisecond)
	}

	waitFor(t, time.Second, func() bool {
		items := b.Items()
		return len(items) == 1 && items[0].Quantity == 5
	})
}

// TestCheckoutMutualExclusion 第二个标签页在陈旧窗口内被拒绝结账
func TestCheckoutMutualExclusion(t *testing.T) {
	channel := NewMemoryChannel()
	locks := NewMemoryLockStore()
	cfg := &Config{Debounce: 20 * time.Millisecond}

	a := newTestSyncer(t, cfg, channel, WithOrigin("tab-a"), WithLockStore(locks))
	b := newTestSyncer(t, cfg, channel, WithOrigin("tab-b"), WithLockStore(locks))
	ctx := context.Background()

	if err := a.BeginCheckout(ctx); err != nil {
		t.Fatalf("tab-a BeginCheckout: %v", err)
	}

	if err := b.BeginCheckout(ctx); !IsCheckoutLocked(err) {
		t.Fatalf("tab-b should be refused, got: %v", err)
	}

	// 持有者可以刷新自己的锁
	if err := a.BeginCheckout(ctx); err != nil {
		t.Errorf("holder refresh failed: %v", err)
	}

	if err := a.EndCheckout(ctx); err != nil {
		t.Fatalf("tab-a EndCheckout: %v", err)
	}
	if err := b.BeginCheckout(ctx); err != nil {
		t.Errorf("tab-b after release: %v", err)
	}
}

// TestStaleLockIgnorable 陈旧锁可被竞争方抢占
func TestStaleLockIgnorable(t *testing.T) {
	locks := NewMemoryLockStore()
	ctx := context.Background()

	stale := CheckoutLock{
		Owner:      "tab-dead",
		AcquiredAt: time.Now().Add(-10 * time.Minute),
		Checksum:   ComputeChecksum(nil),
	}
	if err := locks.Acquire(ctx, stale, 5*time.Minute); err != nil {
		t.Fatalf("seed stale lock: %v", err)
	}

	fresh := CheckoutLock{Owner: "tab-b", AcquiredAt: time.Now()}
	if err := locks.Acquire(ctx, fresh, 5*time.Minute); err != nil {
		t.Errorf("stale lock should be preemptable, got: %v", err)
	}

	holder, err := locks.Holder(ctx)
	if err != nil || holder == nil || holder.Owner != "tab-b" {
		t.Errorf("holder = %v err = %v, want tab-b", holder, err)
	}
}

// TestReleaseNotOwner 非持有者释放报错且不影响锁
func TestReleaseNotOwner(t *testing.T) {
	locks := NewMemoryLockStore()
	ctx := context.Background()

	_ = locks.Acquire(ctx, CheckoutLock{Owner: "tab-a", AcquiredAt: time.Now()}, 5*time.Minute)

	if err := locks.Release(ctx, "tab-b"); err == nil {
		t.Errorf("non-owner release should fail")
	}
	holder, _ := locks.Holder(ctx)
	if holder == nil || holder.Owner != "tab-a" {
		t.Errorf("lock should survive non-owner release")
	}
}
