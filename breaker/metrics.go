package breaker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 熔断器指标快照
type Metrics struct {
	Name                 string    `json:"name"`
	State                State     `json:"state"`
	TotalRequests        uint64    `json:"total_requests"`
	TotalSuccesses       uint64    `json:"total_successes"`
	TotalFailures        uint64    `json:"total_failures"`
	Rejected             uint64    `json:"rejected"`
	ConsecutiveFailures  uint32    `json:"consecutive_failures"`
	ConsecutiveSuccesses uint32    `json:"consecutive_successes"`
	SuccessRate          float64   `json:"success_rate"`
	LastTransition       time.Time `json:"last_transition"`
}

// Prometheus 标签值
const (
	resultSuccess = "success"
	resultFailure = "failure"
	resultReject  = "reject"
)

// collectors Prometheus 计数器集合，注册表内所有熔断器共享（按 endpoint 标签区分）
type collectors struct {
	requests     *prometheus.CounterVec
	stateChanges *prometheus.CounterVec
}

// newCollectors 创建计数器集合
// registerer 为 nil 时计数器不注册，仅在进程内累加。
func newCollectors(registerer prometheus.Registerer) *collectors {
	factory := promauto.With(registerer)

	return &collectors{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storekit_breaker_requests_total",
			Help: "Total requests seen by circuit breakers, by endpoint and result.",
		}, []string{"endpoint", "result"}),
		stateChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storekit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions, by endpoint and edge.",
		}, []string{"endpoint", "from", "to"}),
	}
}

func (c *collectors) observe(endpoint, result string) {
	c.requests.WithLabelValues(endpoint, result).Inc()
}

func (c *collectors) stateChange(endpoint string, from, to State) {
	c.stateChanges.WithLabelValues(endpoint, from.String(), to.String()).Inc()
}
