package dedup

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/ceyewan/storekit/clog"
)

// deduplicator 请求去重器实现（非导出）
type deduplicator struct {
	cfg    *Config
	logger clog.Logger
	cache  *resultCache

	// group 保证同一签名至多一个在途执行，所有并发调用共享结果
	group singleflight.Group

	// inflight 记录在途签名，供 InvalidateByPattern 对在途注册调用 Forget
	inflightMu sync.Mutex
	inflight   map[string]struct{}

	hits   atomic.Uint64
	misses atomic.Uint64
	coll   *dedupCollectors
}

func newDeduplicator(cfg *Config, logger clog.Logger, registerer prometheus.Registerer) *deduplicator {
	return &deduplicator{
		cfg:      cfg,
		logger:   logger,
		cache:    newResultCache(cfg.MaxEntries),
		inflight: make(map[string]struct{}),
		coll:     newDedupCollectors(registerer),
	}
}

// Do 执行去重请求
func (d *deduplicator) Do(ctx context.Context, req Request, fn RequestFunc) (any, error) {
	sig, err := Signature(req)
	if err != nil {
		return nil, err
	}

	if value, ok := d.cache.get(sig, time.Now()); ok {
		d.hits.Add(1)
		d.coll.hit()
		return value, nil
	}

	d.misses.Add(1)
	d.coll.miss()

	d.markInflight(sig)
	value, err, shared := d.group.Do(sig, func() (any, error) {
		// 先到的调用方填充缓存后，排在 Do 门口的后续调用在这里再查一次，
		// 避免紧随其后的重复执行
		if cached, ok := d.cache.get(sig, time.Now()); ok {
			return cached, nil
		}

		result, err := fn(ctx)
		if err != nil {
			// 失败不缓存：传播给所有等待方，后续调用重试而不是重放失败
			return nil, err
		}

		priority := req.Priority
		if priority == "" {
			priority = PriorityNormal
		}
		d.cache.set(sig, result, priority, d.cfg.ttlFor(priority), time.Now())
		return result, nil
	})
	d.unmarkInflight(sig)

	if shared {
		d.logger.Debug("request deduplicated",
			clog.String("signature", sig))
	}
	return value, err
}

// InvalidateByPattern 失效签名含指定子串的缓存条目与在途注册
func (d *deduplicator) InvalidateByPattern(substring string) {
	if substring == "" {
		return
	}

	removed := d.cache.deleteMatching(substring)

	d.inflightMu.Lock()
	for sig := range d.inflight {
		if strings.Contains(sig, substring) {
			// 已挂起的调用方仍共享当前结果；之后的调用会重新执行
			d.group.Forget(sig)
		}
	}
	d.inflightMu.Unlock()

	d.logger.Debug("cache invalidated by pattern",
		clog.String("pattern", substring),
		clog.Int("removed", removed))
}

// ClearCache 清空缓存与命中统计
func (d *deduplicator) ClearCache() {
	d.cache.clear()
	d.hits.Store(0)
	d.misses.Store(0)
	d.logger.Debug("cache cleared")
}

// Metrics 返回缓存指标快照
func (d *deduplicator) Metrics() Metrics {
	entries, bytes := d.cache.stats()

	d.inflightMu.Lock()
	inflight := len(d.inflight)
	d.inflightMu.Unlock()

	return Metrics{
		Entries:     entries,
		ApproxBytes: bytes,
		Hits:        d.hits.Load(),
		Misses:      d.misses.Load(),
		InFlight:    inflight,
	}
}

func (d *deduplicator) markInflight(sig string) {
	d.inflightMu.Lock()
	d.inflight[sig] = struct{}{}
	d.inflightMu.Unlock()
}

func (d *deduplicator) unmarkInflight(sig string) {
	d.inflightMu.Lock()
	delete(d.inflight, sig)
	d.inflightMu.Unlock()
}
