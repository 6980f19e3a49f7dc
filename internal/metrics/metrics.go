// Package metrics exposes Prometheus collectors for money-moving operations.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the collectors.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"

	BonusPaid        = "paid"
	BonusMissed      = "missed"
	BonusUnallocated = "unallocated"
	BonusFailed      = "failed"
)

// PlatformMetrics groups the collectors registered by the platform.
type PlatformMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	bonuses    *prometheus.CounterVec
	unlocks    prometheus.Counter
}

var (
	platformOnce     sync.Once
	platformRegistry *PlatformMetrics
)

// Platform returns the process-wide collectors, registering them on first use.
func Platform() *PlatformMetrics {
	platformOnce.Do(func() {
		platformRegistry = &PlatformMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "growtrade_operations_total",
				Help: "Count of core operations by name and outcome kind.",
			}, []string{"operation", "outcome"}),
			duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "growtrade_operation_duration_seconds",
				Help:    "Latency of core operations.",
				Buckets: prometheus.DefBuckets,
			}, []string{"operation"}),
			bonuses: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "growtrade_referral_bonus_total",
				Help: "Referral bonus units by distribution outcome.",
			}, []string{"outcome"}),
			unlocks: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "growtrade_batch_unlocks_total",
				Help: "Number of NFT batches unlocked.",
			}),
		}
		prometheus.MustRegister(
			platformRegistry.operations,
			platformRegistry.duration,
			platformRegistry.bonuses,
			platformRegistry.unlocks,
		)
	})
	return platformRegistry
}

// ObserveOperation records one operation outcome and its latency. outcome is
// OutcomeSuccess or an error kind.
func (m *PlatformMetrics) ObserveOperation(operation, outcome string, started time.Time) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	if outcome == "" {
		outcome = OutcomeSuccess
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// IncBonus counts one bonus unit under outcome.
func (m *PlatformMetrics) IncBonus(outcome string) {
	if m == nil {
		return
	}
	m.bonuses.WithLabelValues(outcome).Inc()
}

// IncBatchUnlock counts one batch unlock.
func (m *PlatformMetrics) IncBatchUnlock() {
	if m == nil {
		return
	}
	m.unlocks.Inc()
}

// OperationCount returns the counter for operation and outcome.
func (m *PlatformMetrics) OperationCount(operation, outcome string) prometheus.Counter {
	return m.operations.WithLabelValues(operation, outcome)
}

// BonusCount returns the counter for outcome.
func (m *PlatformMetrics) BonusCount(outcome string) prometheus.Counter {
	return m.bonuses.WithLabelValues(outcome)
}

// UnlockCount returns the batch unlock counter.
func (m *PlatformMetrics) UnlockCount() prometheus.Counter {
	return m.unlocks
}
