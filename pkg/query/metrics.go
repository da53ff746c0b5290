package query

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan modes used as the "mode" label.
const (
	modeClass     = "class"
	modeTraversal = "traversal"
	modeWalk      = "walk"
)

// Metrics holds the Prometheus collectors updated by an Executor. A nil
// *Metrics records nothing.
type Metrics struct {
	scans    *prometheus.CounterVec
	scanned  *prometheus.CounterVec
	matched  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the query collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		scans: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nornicgraph",
			Subsystem: "query",
			Name:      "scans_total",
			Help:      "Number of scans run, by mode and outcome.",
		}, []string{"mode", "outcome"}),
		scanned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nornicgraph",
			Subsystem: "query",
			Name:      "records_scanned_total",
			Help:      "Number of records decoded and evaluated.",
		}, []string{"mode"}),
		matched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nornicgraph",
			Subsystem: "query",
			Name:      "records_matched_total",
			Help:      "Number of records that satisfied the predicate.",
		}, []string{"mode"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nornicgraph",
			Subsystem: "query",
			Name:      "scan_duration_seconds",
			Help:      "Wall time of one scan.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"mode"}),
	}
}

func (m *Metrics) observe(mode string, err error, scanned, matched int, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.scans.WithLabelValues(mode, outcome).Inc()
	m.scanned.WithLabelValues(mode).Add(float64(scanned))
	m.matched.WithLabelValues(mode).Add(float64(matched))
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}
