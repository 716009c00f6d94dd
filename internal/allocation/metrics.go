package allocation

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "fish_segments"

// Metrics counts allocation outcomes. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	holds          *prometheus.CounterVec
	commits        *prometheus.CounterVec
	commitDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		holds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "segment_holds_total",
			Help:      "Per-segment hold attempts by result.",
		}, []string{"result"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "order_commits_total",
			Help:      "Order commit attempts by result.",
		}, []string{"result"}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "order_commit_duration_seconds",
			Help:      "Latency of order commits, including retries.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.holds, m.commits, m.commitDuration)
	}
	return m
}

func (m *Metrics) observeHolds(granted, rejected int) {
	if m == nil {
		return
	}
	m.holds.WithLabelValues("granted").Add(float64(granted))
	m.holds.WithLabelValues("rejected").Add(float64(rejected))
}

func (m *Metrics) observeCommit(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(commitResult(err)).Inc()
	m.commitDuration.Observe(elapsed.Seconds())
}

func commitResult(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, ErrSegmentUnavailable):
		return "unavailable"
	case errors.Is(err, ErrInvalidInput):
		return "invalid"
	case errors.Is(err, ErrFishNotFound):
		return "not_found"
	default:
		return "error"
	}
}
