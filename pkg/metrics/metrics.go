// Package metrics provides Prometheus collectors for the retry engine and
// the offline action queue. They plug into the packages' observer hooks and
// are never read back by the resilience layer itself.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jzx17/resilience/pkg/queue"
)

// RetryMetrics implements retry.Observer.
type RetryMetrics struct {
	scheduled *prometheus.CounterVec
	successes *prometheus.CounterVec
	giveUps   *prometheus.CounterVec
}

// NewRetryMetrics registers the retry collectors with reg.
func NewRetryMetrics(reg prometheus.Registerer) *RetryMetrics {
	factory := promauto.With(reg)
	return &RetryMetrics{
		scheduled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resilience_retries_scheduled_total",
				Help: "Total retries scheduled after failed attempts",
			},
			[]string{"operation"},
		),
		successes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resilience_retry_successes_total",
				Help: "Total operations that eventually succeeded",
			},
			[]string{"operation"},
		),
		giveUps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resilience_retry_give_ups_total",
				Help: "Total operations abandoned after spending their retry budget",
			},
			[]string{"operation"},
		),
	}
}

// OnRetryScheduled counts a scheduled retry
func (m *RetryMetrics) OnRetryScheduled(operationID string, failures int, delay time.Duration) {
	m.scheduled.WithLabelValues(operationID).Inc()
}

// OnSuccess counts an eventual success
func (m *RetryMetrics) OnSuccess(operationID string, attempts int) {
	m.successes.WithLabelValues(operationID).Inc()
}

// OnGiveUp counts an abandoned operation
func (m *RetryMetrics) OnGiveUp(operationID string, attempts int, err error) {
	m.giveUps.WithLabelValues(operationID).Inc()
}

// QueueMetrics implements queue.Observer.
type QueueMetrics struct {
	depth    prometheus.Gauge
	enqueued prometheus.Counter
	replays  *prometheus.CounterVec
}

// NewQueueMetrics registers the queue collectors with reg.
func NewQueueMetrics(reg prometheus.Registerer) *QueueMetrics {
	factory := promauto.With(reg)
	return &QueueMetrics{
		depth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "resilience_queue_depth",
				Help: "Current number of queued offline actions",
			},
		),
		enqueued: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "resilience_queue_enqueued_total",
				Help: "Total actions enqueued for offline replay",
			},
		),
		replays: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resilience_queue_replays_total",
				Help: "Total replay attempts by outcome",
			},
			[]string{"type", "outcome"},
		),
	}
}

// OnEnqueued counts an enqueued action
func (m *QueueMetrics) OnEnqueued(action queue.Action) {
	m.enqueued.Inc()
}

// OnReplayed counts a replay attempt by outcome
func (m *QueueMetrics) OnReplayed(action queue.Action, outcome queue.ReplayOutcome) {
	m.replays.WithLabelValues(action.Type, string(outcome)).Inc()
}

// OnDepthChanged updates the queue depth gauge
func (m *QueueMetrics) OnDepthChanged(depth int) {
	m.depth.Set(float64(depth))
}
