package stale

import (
	"context"
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/ceyewan/storekit/clog"
	"github.com/ceyewan/storekit/xerrors"
)

// store 基于 otter 的降级缓存实现（非导出）
type store struct {
	cache      *otter.Cache[string, any]
	defaultTTL time.Duration
	logger     clog.Logger
}

func newStore(cfg *Config, logger clog.Logger) (*store, error) {
	// 写入过期策略：过期时间从写入开始计算，读取不重置 TTL。
	// 单条 TTL 在 SetTTL 时通过 SetExpiresAfter 覆盖。
	cache, err := otter.New(&otter.Options[string, any]{
		MaximumSize:      cfg.Capacity,
		ExpiryCalculator: otter.ExpiryWriting[string, any](cfg.DefaultTTL),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "stale: build otter cache")
	}

	return &store{
		cache:      cache,
		defaultTTL: cfg.DefaultTTL,
		logger:     logger,
	}, nil
}

func (s *store) Set(ctx context.Context, key string, value any) error {
	return s.SetTTL(ctx, key, value, 0)
}

func (s *store) SetTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	if key == "" {
		return xerrors.New("stale: key empty")
	}

	s.cache.Set(key, value)
	if ttl > 0 {
		s.cache.SetExpiresAfter(key, ttl)
	}
	return nil
}

func (s *store) Get(ctx context.Context, key string) (any, bool) {
	return s.cache.GetIfPresent(key)
}

func (s *store) Delete(ctx context.Context, key string) error {
	s.cache.Invalidate(key)
	return nil
}

func (s *store) Len() int {
	return s.cache.EstimatedSize()
}

func (s *store) Close() error {
	s.cache.StopAllGoroutines()
	return nil
}
