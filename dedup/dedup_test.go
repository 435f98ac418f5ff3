package dedup

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ceyewan/storekit/xerrors"
)

var errUpstream = xerrors.New("upstream failed")

func newTestDedup(t *testing.T, cfg *Config) Deduplicator {
	t.Helper()
	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

// TestSignatureEquivalentBodies map 与 struct 表达同一载荷时签名一致
func TestSignatureEquivalentBodies(t *testing.T) {
	type payload struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}

	sigStruct, err := Signature(Request{
		Method: "post",
		URL:    "/api/cart/items",
		Body:   payload{ProductID: "p1", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("Signature: %v", err)
	}

	sigMap, err := Signature(Request{
		Method: "POST",
		URL:    "/api/cart/items",
		Body:   map[string]any{"quantity": 2, "productId": "p1"},
	})
	if err != nil {
		t.Fatalf("Signature: %v", err)
	}

	if sigStruct != sigMap {
		t.Errorf("signatures differ:\n  struct: %s\n  map:    %s", sigStruct, sigMap)
	}
}

// TestSignatureDistinguishesBody 不同载荷必须得到不同签名
func TestSignatureDistinguishesBody(t *testing.T) {
	base := Request{Method: "POST", URL: "/api/cart/items"}

	a := base
	a.Body = map[string]any{"productId": "p1"}
	b := base
	b.Body = map[string]any{"productId": "p2"}

	sigA, _ := Signature(a)
	sigB, _ := Signature(b)
	if sigA == sigB {
		t.Errorf("different bodies produced the same signature: %s", sigA)
	}
}

// TestConcurrentSingleFlight 并发相同请求至多执行一次，所有调用方共享结果
func TestConcurrentSingleFlight(t *testing.T) {
	d := newTestDedup(t, nil)
	req := Request{Method: "GET", URL: "/api/products?featured=true"}

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	fn := func(ctx context.Context) (any, error) {
		calls.Add(1)
		close(started)
		<-release
		return "featured", nil
	}

	const workers = 20
	results := make([]any, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = d.Do(context.Background(), req, fn)
	}()

	// 等首个调用进入在途，再发起其余调用确保它们挂在同一个 flight 上
	<-started
	for i := 1; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = d.Do(context.Background(), req, func(ctx context.Context) (any, error) {
				calls.Add(1)
				return "featured", nil
			})
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("underlying fn called %d times, want 1", calls.Load())
	}
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != "featured" {
			t.Errorf("caller %d: result = %v, want featured", i, results[i])
		}
	}
}

// TestCacheHit TTL 内重复请求命中缓存，不再执行 fn
func TestCacheHit(t *testing.T) {
	d := newTestDedup(t, nil)
	req := Request{Method: "GET", URL: "/api/products", Priority: PriorityHigh}

	var calls atomic.Int32
	fn := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "v1", nil
	}

	for i := 0; i < 3; i++ {
		result, err := d.Do(context.Background(), req, fn)
		if err != nil || result != "v1" {
			t.Fatalf("call %d: result=%v err=%v", i, result, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("fn called %d times, want 1 (cache hit)", calls.Load())
	}

	m := d.Metrics()
	if m.Hits != 2 || m.Misses != 1 {
		t.Errorf("hits=%d misses=%d, want 2/1", m.Hits, m.Misses)
	}
}

// TestCacheExpiry 过期后重新执行
func TestCacheExpiry(t *testing.T) {
	d := newTestDedup(t, &Config{LowTTL: 30 * time.Millisecond})
	req := Request{Method: "GET", URL: "/api/orders", Priority: PriorityLow}

	var calls atomic.Int32
	fn := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return calls.Load(), nil
	}

	if _, err := d.Do(context.Background(), req, fn); err != nil {
		t.Fatalf("Do: %v", err)
	}

	time.Sleep(50 * time.Millisecond)

	result, err := d.Do(context.Background(), req, fn)
	if err != nil {
		t.Fatalf("Do after expiry: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("fn called %d times, want 2 (entry expired)", calls.Load())
	}
	if result != int32(2) {
		t.Errorf("result = %v, want fresh value 2", result)
	}
}

// TestFailureNotCachedAndPropagated 失败传播给所有等待方，且不缓存，后续调用重试
func TestFailureNotCachedAndPropagated(t *testing.T) {
	d := newTestDedup(t, nil)
	req := Request{Method: "GET", URL: "/api/products/p1"}

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	const waiters = 5
	errs := make([]error, waiters)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = d.Do(context.Background(), req, func(ctx context.Context) (any, error) {
			calls.Add(1)
			close(started)
			<-release
			return nil, errUpstream
		})
	}()

	<-started
	for i := 1; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = d.Do(context.Background(), req, func(ctx context.Context) (any, error) {
				calls.Add(1)
				return nil, errUpstream
			})
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("fn called %d times during flight, want 1", calls.Load())
	}
	for i, err := range errs {
		if !xerrors.Is(err, errUpstream) {
			t.Errorf("waiter %d: err = %v, want upstream error", i, err)
		}
	}

	// 失败未入缓存：下一次调用重新执行
	result, err := d.Do(context.Background(), req, func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "recovered", nil
	})
	if err != nil || result != "recovered" {
		t.Fatalf("retry after failure: result=%v err=%v", result, err)
	}
	if calls.Load() != 2 {
		t.Errorf("fn called %d times total, want 2", calls.Load())
	}
}

// TestInvalidateByPattern 子串失效只移除匹配条目
func TestInvalidateByPattern(t *testing.T) {
	d := newTestDedup(t, nil)
	ctx := context.Background()

	fetch := func(v string) RequestFunc {
		return func(ctx context.Context) (any, error) { return v, nil }
	}

	_, _ = d.Do(ctx, Request{Method: "GET", URL: "/api/cart"}, fetch("cart"))
	_, _ = d.Do(ctx, Request{Method: "GET", URL: "/api/cart/items"}, fetch("items"))
	_, _ = d.Do(ctx, Request{Method: "GET", URL: "/api/products"}, fetch("products"))

	d.InvalidateByPattern("/cart")

	if m := d.Metrics(); m.Entries != 1 {
		t.Fatalf("entries after invalidation = %d, want 1", m.Entries)
	}

	var calls atomic.Int32
	refetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "fresh", nil
	}

	// 购物车条目已失效，重新拉取；商品条目仍命中缓存
	if result, _ := d.Do(ctx, Request{Method: "GET", URL: "/api/cart"}, refetch); result != "fresh" {
		t.Errorf("cart result = %v, want fresh", result)
	}
	if result, _ := d.Do(ctx, Request{Method: "GET", URL: "/api/products"}, refetch); result != "products" {
		t.Errorf("products result = %v, want cached products", result)
	}
	if calls.Load() != 1 {
		t.Errorf("refetch called %d times, want 1", calls.Load())
	}
}

// TestClearCache 清空缓存与统计
func TestClearCache(t *testing.T) {
	d := newTestDedup(t, nil)
	ctx := context.Background()

	_, _ = d.Do(ctx, Request{Method: "GET", URL: "/api/products"}, func(ctx context.Context) (any, error) {
		return "v", nil
	})
	_, _ = d.Do(ctx, Request{Method: "GET", URL: "/api/products"}, func(ctx context.Context) (any, error) {
		return "v", nil
	})

	d.ClearCache()

	m := d.Metrics()
	if m.Entries != 0 || m.ApproxBytes != 0 || m.Hits != 0 || m.Misses != 0 {
		t.Errorf("metrics after clear: %+v, want zeroes", m)
	}
}

// TestCapacitySweep 超出容量后低优先级旧条目先被淘汰
func TestCapacitySweep(t *testing.T) {
	d := newTestDedup(t, &Config{MaxEntries: 2})
	ctx := context.Background()

	put := func(url string, p Priority) {
		_, _ = d.Do(ctx, Request{Method: "GET", URL: url, Priority: p}, func(ctx context.Context) (any, error) {
			return url, nil
		})
	}

	put("/api/a", PriorityLow)
	put("/api/b", PriorityHigh)
	put("/api/c", PriorityHigh)

	if m := d.Metrics(); m.Entries > 2 {
		t.Fatalf("entries = %d, want <= 2 after sweep", m.Entries)
	}

	// 低优先级条目应已被淘汰
	var calls atomic.Int32
	_, _ = d.Do(ctx, Request{Method: "GET", URL: "/api/a", Priority: PriorityLow}, func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "refetched", nil
	})
	if calls.Load() != 1 {
		t.Errorf("low priority entry should have been evicted")
	}
}
