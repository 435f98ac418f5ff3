package breaker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ceyewan/storekit/xerrors"
)

// TestRegistryGetOrCreate 同名只创建一个实例
func TestRegistryGetOrCreate(t *testing.T) {
	reg := NewRegistry(testConfig())

	a := reg.Get("products")
	b := reg.Get("products")
	if a != b {
		t.Fatal("Get should return the same instance for the same name")
	}

	if reg.Get("cart") == a {
		t.Fatal("different names should get different instances")
	}
}

// TestRegistryGetConcurrent 并发 get-or-create 不产生重复实例
func TestRegistryGetConcurrent(t *testing.T) {
	reg := NewRegistry(testConfig())

	var wg sync.WaitGroup
	results := make([]Breaker, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = reg.Get("orders")
		}(i)
	}
	wg.Wait()

	for i := 1; i < 16; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent Get produced distinct instances")
		}
	}
}

// TestRegistryEndpointOverride 端点级配置覆盖默认配置
func TestRegistryEndpointOverride(t *testing.T) {
	reg := NewRegistry(testConfig(),
		WithEndpointConfig("orders", &Config{
			FailureThreshold: 1,
			ResetTimeout:     time.Minute,
			SuccessThreshold: 2,
		}),
	)
	ctx := context.Background()

	orders := reg.Get("orders")
	_, _ = orders.Execute(ctx, func(ctx context.Context) (any, error) {
		return nil, errBackend
	}, NoFallback())
	if orders.State() != StateOpen {
		t.Errorf("orders should trip after 1 failure, state = %v", orders.State())
	}

	products := reg.Get("products")
	_, _ = products.Execute(ctx, func(ctx context.Context) (any, error) {
		return nil, errBackend
	}, NoFallback())
	if products.State() != StateClosed {
		t.Errorf("products should use default threshold, state = %v", products.State())
	}
}

// TestRegistryAllMetricsAndResetAll 指标聚合与批量重置
func TestRegistryAllMetricsAndResetAll(t *testing.T) {
	reg := NewRegistry(testConfig())
	ctx := context.Background()

	for _, name := range []string{"products", "cart", "auth"} {
		brk := reg.Get(name)
		for i := 0; i < 3; i++ {
			_, _ = brk.Execute(ctx, func(ctx context.Context) (any, error) {
				return nil, errBackend
			}, NoFallback())
		}
	}

	metrics := reg.AllMetrics()
	if len(metrics) != 3 {
		t.Fatalf("metrics for %d breakers, want 3", len(metrics))
	}
	for name, m := range metrics {
		if m.State != StateOpen {
			t.Errorf("%s: state = %v, want open", name, m.State)
		}
	}

	reg.ResetAll()

	for name, m := range reg.AllMetrics() {
		if m.State != StateClosed || m.TotalRequests != 0 {
			t.Errorf("%s not reset: %+v", name, m)
		}
	}
}

// TestRegistryDefaultClassifier 覆盖配置未指定分类器时继承默认分类器
func TestRegistryDefaultClassifier(t *testing.T) {
	reg := NewRegistry(testConfig(),
		WithEndpointConfig("auth", &Config{FailureThreshold: 2}),
	)
	ctx := context.Background()

	auth := reg.Get("auth")
	for i := 0; i < 5; i++ {
		_, err := auth.Execute(ctx, func(ctx context.Context) (any, error) {
			return nil, errClient
		}, NoFallback())
		if !xerrors.Is(err, errClient) {
			t.Fatalf("client error should pass through, got: %v", err)
		}
	}
	if auth.State() != StateClosed {
		t.Errorf("inherited classifier should keep client errors from tripping")
	}
}
