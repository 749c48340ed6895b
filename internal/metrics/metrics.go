package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CheckoutMetrics counts checkout outcomes and the internal retry traffic
// that never surfaces to callers.
type CheckoutMetrics struct {
	Attempts            *prometheus.CounterVec
	ReserveConflicts    prometheus.Counter
	CommitIndeterminate prometheus.Counter
	DurationMS          prometheus.Histogram
}

// New registers checkout metrics on reg. Pass prometheus.DefaultRegisterer
// in production; tests use a private registry.
func New(reg prometheus.Registerer) *CheckoutMetrics {
	m := &CheckoutMetrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookstore",
			Subsystem: "checkout",
			Name:      "attempts_total",
			Help:      "Checkout attempts by terminal outcome.",
		}, []string{"outcome"}),
		ReserveConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookstore",
			Subsystem: "checkout",
			Name:      "reserve_conflicts_total",
			Help:      "Optimistic concurrency conflicts retried internally.",
		}),
		CommitIndeterminate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookstore",
			Subsystem: "checkout",
			Name:      "commit_indeterminate_total",
			Help:      "Attempts with reservations held but the order write unresolved.",
		}),
		DurationMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bookstore",
			Subsystem: "checkout",
			Name:      "duration_ms",
			Help:      "Checkout attempt latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}
	reg.MustRegister(m.Attempts, m.ReserveConflicts, m.CommitIndeterminate, m.DurationMS)
	return m
}

// Handler serves the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
