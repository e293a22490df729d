package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes recorded in readdash_fetch_total.
const (
	OutcomeReady = "ready"
	OutcomeEmpty = "empty"
	OutcomeError = "error"
	OutcomeStale = "stale"
)

// Metrics instruments the controller's fetches.
type Metrics struct {
	FetchTotal    *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	Generation    prometheus.Gauge
}

// NewMetrics registers the controller metrics on reg. A nil reg gets a
// private registry so controllers can be built freely in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		FetchTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "readdash_fetch_total",
			Help: "Statistics fetches by outcome.",
		}, []string{"outcome"}),

		FetchDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "readdash_fetch_duration_seconds",
			Help:    "Latency of statistics fetches, stale ones included.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),

		Generation: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "readdash_fetch_generation",
			Help: "Generation of the most recently issued fetch.",
		}),
	}
}
