package greenhouse

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
)

func TestHTTPMux(t *testing.T) {
	reg := prometheus.NewRegistry()
	consumer := newFakeConsumer()
	e, err := NewEngine(Options{
		InitialTemperature: 23,
		InitialHumidity:    50,
		Counts:             SensorCounts{entities.Temperature: 1, entities.Moisture: 1},
		Publishers:         (&fakeBus{}).factory(),
		Consumer:           consumer,
		Metrics:            NewMetrics(reg),
		Rand:               calm(),
	})
	if err != nil {
		t.Fatal(err)
	}
	mux := NewHTTPMux(e, reg)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	if rec := get("/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	if rec := get("/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before subscribe = %d", rec.Code)
	}
	close(consumer.ready)
	if rec := get("/readyz"); rec.Code != http.StatusOK {
		t.Fatalf("readyz after subscribe = %d", rec.Code)
	}

	rec := get("/state")
	var out struct {
		State   State                 `json:"state"`
		Sensors []entities.SensorSpec `json:"sensors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("state body: %v", err)
	}
	if out.State.Temperature != 23 || len(out.Sensors) != 2 || out.Sensors[1].PlantID != 1 {
		t.Fatalf("state = %+v", out)
	}

	if rec := get("/metrics"); !strings.Contains(rec.Body.String(), "greenhouse_temperature 23") {
		t.Fatalf("metrics missing temperature gauge:\n%s", rec.Body.String())
	}
}
