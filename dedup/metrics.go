package dedup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 去重器指标快照
type Metrics struct {
	Entries     int    `json:"entries"`
	ApproxBytes int    `json:"approx_bytes"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	InFlight    int    `json:"in_flight"`
}

// dedupCollectors Prometheus 计数器集合
type dedupCollectors struct {
	hits   prometheus.Counter
	misses prometheus.Counter
}

// newDedupCollectors registerer 为 nil 时计数器不注册，仅在进程内累加
func newDedupCollectors(registerer prometheus.Registerer) *dedupCollectors {
	factory := promauto.With(registerer)

	return &dedupCollectors{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "storekit_dedup_cache_hits_total",
			Help: "Deduplication cache hits.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "storekit_dedup_cache_misses_total",
			Help: "Deduplication cache misses.",
		}),
	}
}

func (c *dedupCollectors) hit()  { c.hits.Inc() }
func (c *dedupCollectors) miss() { c.misses.Inc() }
