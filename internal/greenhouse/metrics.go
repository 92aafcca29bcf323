package greenhouse

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
)

// Metrics of the engine. A nil *Metrics is valid and records nothing.
type Metrics struct {
	readings      *prometheus.CounterVec
	publishErrors *prometheus.CounterVec
	commands      *prometheus.CounterVec

	temperature prometheus.Gauge
	humidity    prometheus.Gauge
	light       prometheus.Gauge
	lightForced prometheus.Gauge
	moisture    *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_readings_published_total",
			Help: "Telemetry readings published, by measurement.",
		}, []string{"measurement"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_publish_errors_total",
			Help: "Telemetry readings the transport failed to publish, by measurement.",
		}, []string{"measurement"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "greenhouse_commands_total",
			Help: "Activation commands received, by measurement and outcome.",
		}, []string{"measurement", "outcome"}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhouse_temperature",
			Help: "Simulated air temperature.",
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhouse_humidity",
			Help: "Simulated air humidity.",
		}),
		light: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhouse_light",
			Help: "Last computed light level (0-255).",
		}),
		lightForced: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "greenhouse_light_forced_on",
			Help: "1 while the grow light is forced on.",
		}),
		moisture: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "greenhouse_soil_moisture",
			Help: "Simulated soil moisture per plant.",
		}, []string{"plant_id"}),
	}
	reg.MustRegister(m.readings, m.publishErrors, m.commands,
		m.temperature, m.humidity, m.light, m.lightForced, m.moisture)
	return m
}

func (m *Metrics) readingPublished(kind entities.Measurement) {
	if m == nil {
		return
	}
	m.readings.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) publishFailed(kind entities.Measurement) {
	if m == nil {
		return
	}
	m.publishErrors.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) commandApplied(kind entities.Measurement) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(string(kind), "applied").Inc()
}

func (m *Metrics) commandDropped(kind entities.Measurement, outcome string) {
	if m == nil {
		return
	}
	label := string(kind)
	if label == "" {
		label = "unknown"
	}
	m.commands.WithLabelValues(label, outcome).Inc()
}

// observe copies a state snapshot into the gauges.
func (m *Metrics) observe(st State) {
	if m == nil {
		return
	}
	m.temperature.Set(float64(st.Temperature))
	m.humidity.Set(float64(st.Humidity))
	m.light.Set(float64(st.Light))
	if st.LightForcedOn {
		m.lightForced.Set(1)
	} else {
		m.lightForced.Set(0)
	}
	for plant, v := range st.Moisture {
		m.moisture.WithLabelValues(strconv.Itoa(plant)).Set(float64(v))
	}
}
