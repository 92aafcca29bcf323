package persistence

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics of the persistence service. A nil *Metrics records nothing.
type Metrics struct {
	readings   *prometheus.CounterVec
	sinkErrors prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "persistence_readings_total",
			Help: "Telemetry messages handled, by measurement and outcome (stored, duplicate, malformed, failed).",
		}, []string{"measurement", "outcome"}),
		sinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "persistence_influx_write_errors_total",
			Help: "Points the time-series sink failed to write.",
		}),
	}
	reg.MustRegister(m.readings, m.sinkErrors)
	return m
}

func (m *Metrics) outcome(measurement, outcome string) {
	if m == nil {
		return
	}
	if measurement == "" {
		measurement = "unknown"
	}
	m.readings.WithLabelValues(measurement, outcome).Inc()
}

func (m *Metrics) sinkFailed() {
	if m == nil {
		return
	}
	m.sinkErrors.Inc()
}
