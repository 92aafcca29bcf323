package greenhouse

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
)

// NewHTTPMux exposes health, readiness, the current state and metrics.
func NewHTTPMux(e *Engine, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ready := e.Ready()
		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ready":     ready,
			"scheduler": e.Scheduler().State().String(),
		})
	})

	// GET /state: snapshot of the environment plus the sensor layout.
	mux.HandleFunc("/state", func(w http.ResponseWriter, _ *http.Request) {
		type outT struct {
			State   State                 `json:"state"`
			Sensors []entities.SensorSpec `json:"sensors"`
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(outT{State: e.Snapshot(), Sensors: e.Sensors()})
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
