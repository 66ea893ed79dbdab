package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pubmed_digest"

// Metrics holds the counters of a single digest run. Each run registers
// into its own registry so repeated runs in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts E-utilities requests by endpoint and HTTP status ("0" when no response).
	RequestsTotal *prometheus.CounterVec

	// RequestDuration observes E-utilities request latency by endpoint.
	RequestDuration *prometheus.HistogramVec

	// RecordsRetained counts records written to the output.
	RecordsRetained prometheus.Counter

	// Skipped counts PMIDs that produced no record, by failure kind.
	Skipped *prometheus.CounterVec
}

// NewMetrics creates the run metrics in a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "E-utilities requests by endpoint and status code",
		}, []string{"endpoint", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "E-utilities request latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		RecordsRetained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_retained_total",
			Help:      "Article records written to the output file",
		}),
		Skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_total",
			Help:      "PMIDs that produced no record, by failure kind",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(m.RequestsTotal, m.RequestDuration, m.RecordsRetained, m.Skipped)
	return m
}

// ObserveRequest records one E-utilities exchange. Its signature matches
// eutils.RequestObserver.
func (m *Metrics) ObserveRequest(endpoint string, code int, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Gatherer exposes the run registry.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// WriteTextfile writes the metrics in Prometheus text format to path,
// suitable for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
