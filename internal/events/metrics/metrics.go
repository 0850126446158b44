package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the batch publisher.
type Metrics struct {
	Delivered          prometheus.Counter
	Resubmitted        prometheus.Counter
	DeadLettered       prometheus.Counter
	DeadLetterFailures prometheus.Counter
	Attempts           prometheus.Histogram
}

// New registers the publisher metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Delivered: f.NewCounter(prometheus.CounterOpts{
			Name: "doiregistrar_events_delivered_total",
			Help: "Entries accepted by the event bus",
		}),
		Resubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "doiregistrar_events_resubmitted_total",
			Help: "Entries resubmitted after a partial batch failure",
		}),
		DeadLettered: f.NewCounter(prometheus.CounterOpts{
			Name: "doiregistrar_events_dead_lettered_total",
			Help: "Entries forwarded to the dead-letter channel after exhausting attempts",
		}),
		DeadLetterFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "doiregistrar_events_dead_letter_failures_total",
			Help: "Entries that could not be forwarded to the dead-letter channel either",
		}),
		Attempts: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "doiregistrar_events_publish_attempts",
			Help:    "Submission rounds used per publish call",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		}),
	}
}

func (m *Metrics) AddDelivered(n int)   { m.Delivered.Add(float64(n)) }
func (m *Metrics) AddResubmitted(n int) { m.Resubmitted.Add(float64(n)) }
func (m *Metrics) IncDeadLettered()     { m.DeadLettered.Inc() }
func (m *Metrics) IncDeadLetterFailures() {
	m.DeadLetterFailures.Inc()
}
func (m *Metrics) ObserveAttempts(n int) { m.Attempts.Observe(float64(n)) }
