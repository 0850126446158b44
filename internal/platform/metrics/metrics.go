package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors. Every module registers its own metrics against it.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Metrics holds the Kafka consumer metrics shared by the worker loops.
type Metrics struct {
	MessagesConsumed *prometheus.CounterVec
	HandlerErrors    *prometheus.CounterVec
	CommitFailures   *prometheus.CounterVec
	BatchDuration    *prometheus.HistogramVec
}

// New creates and registers the consumer metrics.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		MessagesConsumed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "doiregistrar_consumer_messages_total",
			Help: "Messages fetched per topic",
		}, []string{"topic"}),
		HandlerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "doiregistrar_consumer_handler_errors_total",
			Help: "Batches whose handler returned an error",
		}, []string{"group"}),
		CommitFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "doiregistrar_consumer_commit_failures_total",
			Help: "Offset commits that failed",
		}, []string{"group"}),
		BatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "doiregistrar_consumer_batch_duration_seconds",
			Help:    "Time spent handling one fetched batch",
			Buckets: prometheus.DefBuckets,
		}, []string{"group"}),
	}
}

func (m *Metrics) AddConsumed(topic string, n int) {
	m.MessagesConsumed.WithLabelValues(topic).Add(float64(n))
}

func (m *Metrics) IncHandlerErrors(group string) {
	m.HandlerErrors.WithLabelValues(group).Inc()
}

func (m *Metrics) IncCommitFailures(group string) {
	m.CommitFailures.WithLabelValues(group).Inc()
}

func (m *Metrics) ObserveBatch(group string, seconds float64) {
	m.BatchDuration.WithLabelValues(group).Observe(seconds)
}
