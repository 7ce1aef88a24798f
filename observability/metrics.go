package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

// StakingMetrics tracks ledger operations executed by the node.
type StakingMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	conflicts  *prometheus.CounterVec
	staked     prometheus.Gauge
	escrow     prometheus.Gauge
	users      prometheus.Gauge
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	stakingMetricsOnce sync.Once
	stakingRegistry    *StakingMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tierstake",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tierstake",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "tierstake",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tierstake",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a module request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" or
// "unauthenticated" so dashboards and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// Staking returns the singleton metrics registry for ledger operations.
func Staking() *StakingMetrics {
	stakingMetricsOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tierstake",
				Subsystem: "staking",
				Name:      "operations_total",
				Help:      "Count of staking operations segmented by operation and error kind.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "tierstake",
				Subsystem: "staking",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for staking operations including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "tierstake",
				Subsystem: "staking",
				Name:      "commit_conflicts_total",
				Help:      "Count of transactions rejected by optimistic concurrency checks.",
			}, []string{"operation"}),
			staked: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "tierstake",
				Subsystem: "staking",
				Name:      "total_staked",
				Help:      "Principal currently held in the stake vault, in base units.",
			}),
			escrow: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "tierstake",
				Subsystem: "staking",
				Name:      "escrow_balance",
				Help:      "Reward escrow balance available for claims, in base units.",
			}),
			users: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "tierstake",
				Subsystem: "staking",
				Name:      "total_users",
				Help:      "Number of stake records ever opened.",
			}),
		}
		prometheus.MustRegister(
			stakingRegistry.operations,
			stakingRegistry.latency,
			stakingRegistry.conflicts,
			stakingRegistry.staked,
			stakingRegistry.escrow,
			stakingRegistry.users,
		)
	})
	return stakingRegistry
}

// Observe records one staking operation. Outcome is "ok" or the error kind.
func (m *StakingMetrics) Observe(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordConflict increments the optimistic concurrency conflict counter.
func (m *StakingMetrics) RecordConflict(operation string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(operation).Inc()
}

// SetTotals publishes the ledger totals observed after a commit.
func (m *StakingMetrics) SetTotals(totalStaked, escrowBalance, totalUsers uint64) {
	if m == nil {
		return
	}
	m.staked.Set(float64(totalStaked))
	m.escrow.Set(float64(escrowBalance))
	m.users.Set(float64(totalUsers))
}
