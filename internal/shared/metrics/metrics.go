package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline tracks document processing outcomes.
type Pipeline struct {
	registry *prometheus.Registry

	processedTotal  *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// NewPipeline builds a Pipeline metric set on its own registry.
func NewPipeline() *Pipeline {
	registry := prometheus.NewRegistry()

	processedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docmanager",
			Subsystem: "pipeline",
			Name:      "documents_processed_total",
			Help:      "Total pipeline runs by terminal status.",
		},
		[]string{"status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docmanager",
			Subsystem: "pipeline",
			Name:      "processing_duration_seconds",
			Help:      "Pipeline run duration in seconds by terminal status.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"status"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docmanager",
			Subsystem: "pipeline",
			Name:      "documents_in_flight",
			Help:      "Number of pipeline runs currently executing.",
		},
	)

	registry.MustRegister(processedTotal, processDuration, inFlight)

	return &Pipeline{
		registry:        registry,
		processedTotal:  processedTotal,
		processDuration: processDuration,
		inFlight:        inFlight,
	}
}

// ObserveOutcome records one finished pipeline run. Safe on a nil receiver.
func (m *Pipeline) ObserveOutcome(status string, seconds float64) {
	if m == nil {
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	m.processedTotal.WithLabelValues(status).Inc()
	m.processDuration.WithLabelValues(status).Observe(seconds)
}

// RunStarted marks a pipeline run as in flight. Safe on a nil receiver.
func (m *Pipeline) RunStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// RunFinished marks a pipeline run as done. Safe on a nil receiver.
func (m *Pipeline) RunFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

// Handler exposes the registry in Prometheus text format.
func (m *Pipeline) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
