package cartsync

import (
	"context"
	"sync"
	"time"
)

// memoryLockStore 进程内结账锁存储
//
// 同进程多标签页场景使用；跨进程互斥用 Redis 存储。
type memoryLockStore struct {
	mu   sync.Mutex
	lock *CheckoutLock
	ttl  time.Duration
}

// NewMemoryLockStore 创建进程内结账锁存储
func NewMemoryLockStore() LockStore {
	return &memoryLockStore{}
}

func (s *memoryLockStore) Acquire(ctx context.Context, lock CheckoutLock, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock != nil && s.lock.Owner != lock.Owner && !s.staleLocked(ttl) {
		return ErrCheckoutLocked
	}

	held := lock
	s.lock = &held
	s.ttl = ttl
	return nil
}

func (s *memoryLockStore) Release(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock == nil {
		return nil
	}
	if s.lock.Owner != owner {
		return ErrNotLockOwner
	}
	s.lock = nil
	return nil
}

func (s *memoryLockStore) Holder(ctx context.Context) (*CheckoutLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock == nil || s.staleLocked(s.ttl) {
		return nil, nil
	}
	held := *s.lock
	return &held, nil
}

// staleLocked 判断当前锁是否已陈旧，调用方需持有 s.mu
func (s *memoryLockStore) staleLocked(ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return time.Since(s.lock.AcquiredAt) >= ttl
}
