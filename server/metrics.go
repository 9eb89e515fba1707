package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis outcomes recorded by sonido_tempo_analyses_total
const (
	outcomeOK          = "ok"
	outcomeInvalid     = "invalid"
	outcomeNoTempo     = "no_tempo"
	outcomeDecodeError = "decode_error"
	outcomeError       = "error"
)

// Metrics holds the service collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	DetectedBPM      prometheus.Histogram
}

// NewMetrics creates and registers the service collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sonido_tempo_analyses_total",
				Help: "Total number of tempo analyses by outcome",
			},
			[]string{"outcome"},
		),

		AnalysisDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sonido_tempo_analysis_duration_seconds",
				Help:    "Time spent decoding and analysing one request",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
			},
		),

		DetectedBPM: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sonido_tempo_detected_bpm",
				Help:    "Distribution of reported tempos",
				Buckets: prometheus.LinearBuckets(40, 10, 22),
			},
		),
	}

	m.registry.MustRegister(
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.DetectedBPM,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          m.registry,
	})
}
