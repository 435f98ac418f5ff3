package cacheopt

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/ceyewan/storekit/dedup"
	"github.com/ceyewan/storekit/stale"
)

func newTestSources(t *testing.T) (dedup.Deduplicator, stale.Store) {
	t.Helper()
	d, err := dedup.New(nil)
	if err != nil {
		t.Fatalf("dedup.New: %v", err)
	}
	s, err := stale.New(nil)
	if err != nil {
		t.Fatalf("stale.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return d, s
}

// TestWarmCritical 预热后关键键全部进入降级缓存
func TestWarmCritical(t *testing.T) {
	d, s := newTestSources(t)
	var fetches atomic.Int32

	opt, err := New(&Config{WarmRatePerSecond: 1000, WarmBurst: 10}, Sources{
		Dedup: d,
		Stale: s,
		Critical: map[string]FetchFunc{
			"products:featured": func(ctx context.Context) (any, error) {
				fetches.Add(1)
				return []string{"7", "42"}, nil
			},
			"products:all": func(ctx context.Context) (any, error) {
				fetches.Add(1)
				return []string{"1", "3", "5"}, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := opt.WarmCritical(context.Background()); err != nil {
		t.Fatalf("WarmCritical: %v", err)
	}
	if fetches.Load() != 2 {
		t.Errorf("fetches = %d, want 2", fetches.Load())
	}
	if _, ok := s.Get(context.Background(), "products:featured"); !ok {
		t.Errorf("featured not warmed")
	}
	if _, ok := s.Get(context.Background(), "products:all"); !ok {
		t.Errorf("all not warmed")
	}
}

// TestPrefetchSkipsCached 关联预取跳过已缓存的键
func TestPrefetchSkipsCached(t *testing.T) {
	d, s := newTestSources(t)
	ctx := context.Background()
	_ = s.Set(ctx, "product:43", "cached")

	var fetches atomic.Int32
	opt, _ := New(&Config{WarmRatePerSecond: 1000, WarmBurst: 10}, Sources{
		Dedup: d,
		Stale: s,
		Related: func(productID string) map[string]FetchFunc {
			return map[string]FetchFunc{
				"product:43": func(ctx context.Context) (any, error) {
					fetches.Add(1)
					return "fresh-43", nil
				},
				"product:44": func(ctx context.Context) (any, error) {
					fetches.Add(1)
					return "fresh-44", nil
				},
			}
		},
	})

	if err := opt.PrefetchRelated(ctx, "42"); err != nil {
		t.Fatalf("PrefetchRelated: %v", err)
	}
	if fetches.Load() != 1 {
		t.Errorf("fetches = %d, want 1 (cached key skipped)", fetches.Load())
	}
	if v, _ := s.Get(ctx, "product:43"); v != "cached" {
		t.Errorf("cached entry overwritten: %v", v)
	}
	if v, _ := s.Get(ctx, "product:44"); v != "fresh-44" {
		t.Errorf("missing entry not prefetched: %v", v)
	}
}

// TestMemoryPressure 超阈值时清空去重缓存并先持久化关键子集
func TestMemoryPressure(t *testing.T) {
	d, s := newTestSources(t)
	ctx := context.Background()

	// 填充去重缓存
	_, _ = d.Do(ctx, dedup.Request{Method: "GET", URL: "/api/products"},
		func(ctx context.Context) (any, error) { return "v", nil })
	_ = s.Set(ctx, "products:featured", []string{"7"})

	persister := NewMemoryPersister()
	opt, _ := New(&Config{MemoryPressureBytes: 1024}, Sources{
		Dedup:    d,
		Stale:    s,
		Critical: map[string]FetchFunc{"products:featured": nil},
	}, WithPersister(persister))

	if opt.OnMemoryPressure(ctx, 512) {
		t.Errorf("below threshold must not evict")
	}
	if m := d.Metrics(); m.Entries != 1 {
		t.Fatalf("dedup entries = %d, want 1 untouched", m.Entries)
	}

	if !opt.OnMemoryPressure(ctx, 2048) {
		t.Fatalf("above threshold must evict")
	}
	if m := d.Metrics(); m.Entries != 0 {
		t.Errorf("dedup entries = %d, want 0 after eviction", m.Entries)
	}
	if _, ok, _ := persister.Load(ctx, "products:featured"); !ok {
		t.Errorf("critical subset not persisted before eviction")
	}
}

// TestPersistRestoreRoundTrip 关键子集持久化后可恢复到降级缓存
func TestPersistRestoreRoundTrip(t *testing.T) {
	d, s := newTestSources(t)
	ctx := context.Background()
	persister := NewMemoryPersister()

	src := Sources{
		Dedup:    d,
		Stale:    s,
		Critical: map[string]FetchFunc{"products:featured": nil},
	}
	opt, _ := New(nil, src, WithPersister(persister))

	_ = s.Set(ctx, "products:featured", []any{"7", "42"})
	if err := opt.PersistCritical(ctx); err != nil {
		t.Fatalf("PersistCritical: %v", err)
	}

	// 新的空缓存模拟重启
	s2, err := stale.New(nil)
	if err != nil {
		t.Fatalf("stale.New: %v", err)
	}
	t.Cleanup(func() { _ = s2.Close() })
	src.Stale = s2
	opt2, _ := New(nil, src, WithPersister(persister))

	if err := opt2.RestoreCritical(ctx); err != nil {
		t.Fatalf("RestoreCritical: %v", err)
	}
	restored, ok := s2.Get(ctx, "products:featured")
	if !ok {
		t.Fatalf("key not restored")
	}
	list, ok := restored.([]any)
	if !ok || len(list) != 2 {
		t.Errorf("restored = %#v, want 2-element generic list", restored)
	}
}
