package processor

import (
	"time"

	"github.com/blockberries/simplewallet/types"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics represents the processor metrics
type Metrics struct {
	// Processed transactions by family and status
	processed *prometheus.CounterVec
	// Apply latency by family
	duration *prometheus.HistogramVec
}

// Register adds the collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) {
	if m.processed != nil {
		reg.MustRegister(m.processed)
	}

	if m.duration != nil {
		reg.MustRegister(m.duration)
	}
}

// ObserveProcessed records the outcome of one transaction.
func (m *Metrics) ObserveProcessed(family string, status types.Status, elapsed time.Duration) {
	if m == nil {
		return
	}

	if m.processed != nil {
		m.processed.WithLabelValues(family, status.String()).Inc()
	}

	if m.duration != nil {
		m.duration.WithLabelValues(family).Observe(elapsed.Seconds())
	}
}

// GetPrometheusMetrics return the processor metrics instance
func GetPrometheusMetrics(namespace string, labelsWithValues ...string) *Metrics {
	constLabels := parseLabels(labelsWithValues...)

	return &Metrics{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "processor",
			Name:        "transactions_total",
			Help:        "Transactions processed, by family and status",
			ConstLabels: constLabels,
		}, []string{"family", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "processor",
			Name:        "apply_duration_seconds",
			Help:        "Time to apply a single transaction",
			ConstLabels: constLabels,
			Buckets:     []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"family"}),
	}
}

// NilMetrics will return the non operational processor metrics
func NilMetrics() *Metrics {
	return &Metrics{}
}

func parseLabels(labelsWithValues ...string) prometheus.Labels {
	constLabels := map[string]string{}

	if len(labelsWithValues)%2 != 0 {
		panic("invalid labels")
	}

	for i := 1; i < len(labelsWithValues); i += 2 {
		constLabels[labelsWithValues[i-1]] = labelsWithValues[i]
	}

	return constLabels
}
