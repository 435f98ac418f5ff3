package cacheopt

import (
	"context"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/time/rate"

	"github.com/ceyewan/storekit/clog"
	"github.com/ceyewan/storekit/xerrors"
)

// ErrSourcesIncomplete Sources 缺少必填依赖
var ErrSourcesIncomplete = xerrors.New("cacheopt: dedup and stale sources required")

// optimizer 缓存优化器实现（非导出）
type optimizer struct {
	cfg       *Config
	src       Sources
	logger    clog.Logger
	persister Persister
	limiter   *rate.Limiter
}

func newOptimizer(cfg *Config, src Sources, opt options) *optimizer {
	return &optimizer{
		cfg:       cfg,
		src:       src,
		logger:    opt.logger,
		persister: opt.persister,
		limiter:   rate.NewLimiter(rate.Limit(cfg.WarmRatePerSecond), cfg.WarmBurst),
	}
}

func (o *optimizer) WarmCritical(ctx context.Context) error {
	for _, key := range o.criticalKeys() {
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}

		value, err := o.src.Critical[key](ctx)
		if err != nil {
			o.logger.Warn("warm fetch failed",
				clog.String("key", key), clog.Error(err))
			continue
		}
		if err := o.src.Stale.Set(ctx, key, value); err != nil {
			o.logger.Warn("warm store failed",
				clog.String("key", key), clog.Error(err))
		}
	}
	return nil
}

func (o *optimizer) PrefetchRelated(ctx context.Context, productID string) error {
	if o.src.Related == nil {
		return nil
	}

	table := o.src.Related(productID)
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		// 已有缓存的不重复预取
		if _, ok := o.src.Stale.Get(ctx, key); ok {
			continue
		}
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}

		value, err := table[key](ctx)
		if err != nil {
			o.logger.Debug("prefetch failed",
				clog.String("key", key), clog.Error(err))
			continue
		}
		if err := o.src.Stale.Set(ctx, key, value); err != nil {
			o.logger.Warn("prefetch store failed",
				clog.String("key", key), clog.Error(err))
		}
	}
	return nil
}

func (o *optimizer) OnMemoryPressure(ctx context.Context, usedBytes int) bool {
	if usedBytes < o.cfg.MemoryPressureBytes {
		return false
	}

	// 先落盘关键子集再清理，压力解除后可恢复
	if err := o.PersistCritical(ctx); err != nil {
		o.logger.Warn("persist before eviction failed", clog.Error(err))
	}
	o.src.Dedup.ClearCache()

	o.logger.Info("memory pressure eviction",
		clog.Int("used_bytes", usedBytes),
		clog.Int("threshold", o.cfg.MemoryPressureBytes))
	return true
}

func (o *optimizer) PersistCritical(ctx context.Context) error {
	var errs []error
	for _, key := range o.criticalKeys() {
		value, ok := o.src.Stale.Get(ctx, key)
		if !ok {
			continue
		}

		data, err := msgpack.Marshal(value)
		if err != nil {
			errs = append(errs, xerrors.Wrapf(err, "encode %s", key))
			continue
		}
		if err := o.persister.Save(ctx, key, data); err != nil {
			errs = append(errs, err)
		}
	}
	return xerrors.Combine(errs...)
}

func (o *optimizer) RestoreCritical(ctx context.Context) error {
	var errs []error
	for _, key := range o.criticalKeys() {
		data, ok, err := o.persister.Load(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}

		var value any
		if err := msgpack.Unmarshal(data, &value); err != nil {
			errs = append(errs, xerrors.Wrapf(err, "decode %s", key))
			continue
		}
		if err := o.src.Stale.Set(ctx, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return xerrors.Combine(errs...)
}

// criticalKeys 排序后的关键键列表，保证预热/持久化顺序确定
func (o *optimizer) criticalKeys() []string {
	keys := make([]string, 0, len(o.src.Critical))
	for key := range o.src.Critical {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
