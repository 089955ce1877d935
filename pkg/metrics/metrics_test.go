package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/jzx17/resilience/pkg/queue"
)

func TestRetryMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRetryMetrics(reg)

	m.OnRetryScheduled("sync", 1, time.Second)
	m.OnRetryScheduled("sync", 2, 2*time.Second)
	m.OnSuccess("sync", 3)
	m.OnGiveUp("upload", 5, errors.New("gone"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.scheduled.WithLabelValues("sync")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.successes.WithLabelValues("sync")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.giveUps.WithLabelValues("upload")))
}

func TestQueueMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueueMetrics(reg)

	action := queue.Action{ID: "a1", Type: "send-message"}
	m.OnEnqueued(action)
	m.OnReplayed(action, queue.OutcomeRetried)
	m.OnReplayed(action, queue.OutcomeSuccess)
	m.OnDepthChanged(4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.enqueued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replays.WithLabelValues("send-message", "retried")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replays.WithLabelValues("send-message", "success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.depth))
}
