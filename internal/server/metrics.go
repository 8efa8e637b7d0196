package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters/histograms for the pipeline and the HTTP API.
type Metrics struct {
	rowsTotal     *prometheus.CounterVec
	requestsTotal *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors with reg, or the default registerer when nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentlog",
			Subsystem: "pipeline",
			Name:      "rows_total",
			Help:      "Total CSV data rows seen by the pipeline",
		}, []string{"status"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentlog",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route pattern and status code",
		}, []string{"route", "status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agentlog",
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.rowsTotal, m.requestsTotal, m.stageDuration)
	return m
}

// ObserveRows counts parsed and skipped data rows.
func (m *Metrics) ObserveRows(parsed, skipped int) {
	if m == nil {
		return
	}
	m.rowsTotal.WithLabelValues("parsed").Add(float64(parsed))
	m.rowsTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// ObserveRequest counts one finished request.
func (m *Metrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
