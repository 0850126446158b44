package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for DOI lifecycle operations.
type Metrics struct {
	OperationDuration *prometheus.HistogramVec
	OperationOutcomes *prometheus.CounterVec
	NotDraftRejected  prometheus.Counter
}

// New registers the lifecycle metrics with reg. Pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "doiregistrar_doi_operation_duration_seconds",
			Help:    "Duration of DOI lifecycle operations including registry round-trips",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		OperationOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "doiregistrar_doi_operations_total",
			Help: "DOI lifecycle operations by outcome (ok or error kind)",
		}, []string{"op", "outcome"}),
		NotDraftRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "doiregistrar_doi_not_draft_rejections_total",
			Help: "State-dependent operations refused because the DOI was no longer a draft",
		}),
	}
}

// Observe records the duration and outcome of one operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) Observe(op string, start time.Time, outcome string) {
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.OperationOutcomes.WithLabelValues(op, outcome).Inc()
}

// IncNotDraftRejected counts a refused draft-only operation.
func (m *Metrics) IncNotDraftRejected() {
	m.NotDraftRejected.Inc()
}
