package stale

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T, cfg *Config) Store {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestSetGet 基本读写
func TestSetGet(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	if err := s.Set(ctx, "product:123", "widget"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok := s.Get(ctx, "product:123")
	if !ok || v != "widget" {
		t.Errorf("Get = (%v, %v), want (widget, true)", v, ok)
	}

	if _, ok := s.Get(ctx, "product:999"); ok {
		t.Errorf("Get missing key should report absent")
	}
}

// TestEmptyKey 空键拒绝写入
func TestEmptyKey(t *testing.T) {
	s := newTestStore(t, nil)

	if err := s.Set(context.Background(), "", "v"); err == nil {
		t.Errorf("Set with empty key should fail")
	}
}

// TestTTLExpiry 过期后读取视为不存在
func TestTTLExpiry(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	if err := s.SetTTL(ctx, "featured", []string{"a", "b"}, 30*time.Millisecond); err != nil {
		t.Fatalf("SetTTL: %v", err)
	}

	if _, ok := s.Get(ctx, "featured"); !ok {
		t.Fatalf("entry should be readable before expiry")
	}

	time.Sleep(60 * time.Millisecond)

	if _, ok := s.Get(ctx, "featured"); ok {
		t.Errorf("entry should be absent after expiry")
	}
}

// TestOverwriteRefreshesTTL 覆盖写入重置过期时间
func TestOverwriteRefreshesTTL(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	_ = s.SetTTL(ctx, "cart", "v1", 40*time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	_ = s.SetTTL(ctx, "cart", "v2", 40*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	v, ok := s.Get(ctx, "cart")
	if !ok || v != "v2" {
		t.Errorf("Get = (%v, %v), want (v2, true) after refresh", v, ok)
	}
}

// TestDelete 删除后读取视为不存在
func TestDelete(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	_ = s.Set(ctx, "product:1", "v")
	if err := s.Delete(ctx, "product:1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.Get(ctx, "product:1"); ok {
		t.Errorf("deleted entry should be absent")
	}
}
