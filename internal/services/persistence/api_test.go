package persistence

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func contains(s, sub string) bool { return strings.Contains(s, sub) }

func TestReadingsLatest(t *testing.T) {
	store := openTestStore(t)
	reg := prometheus.NewRegistry()
	svc, err := NewService(newFakeConsumer(), store, Options{Metrics: NewMetrics(reg)})
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range []*fakeMessage{
		{topic: "temperature/1", payload: "23"},
		{topic: "humidity/2", payload: "50"},
		{topic: "moisture/3/1", payload: "47"},
	} {
		if err := svc.Handle(m.topic, m); err != nil {
			t.Fatal(err)
		}
	}
	mux := NewHTTPMux(svc, store, reg)

	type row struct {
		Measurement string `json:"measurement"`
		SensorID    int    `json:"sensor_id"`
		PlantID     int    `json:"plant_id"`
		Value       int    `json:"value"`
	}
	get := func(path string) ([]row, *httptest.ResponseRecorder) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		var out []row
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
		return out, rec
	}

	out, rec := get("/readings/latest?limit=2")
	if rec.Header().Get("X-Data-Source") != "db" || len(out) != 2 || out[0].PlantID != 1 || out[0].Value != 47 {
		t.Fatalf("latest = %+v (%s)", out, rec.Header().Get("X-Data-Source"))
	}
	out, _ = get("/readings/latest?measurement=humidity")
	if len(out) != 1 || out[0].SensorID != 2 {
		t.Fatalf("humidity = %+v", out)
	}
	out, rec = get("/readings/latest?source=cache")
	if rec.Header().Get("X-Data-Source") != "cache" || len(out) != 3 || out[0].SensorID != 1 {
		t.Fatalf("cache = %+v", out)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plants", nil))
	if !contains(rec.Body.String(), `"name":"greenhouse"`) || !contains(rec.Body.String(), `"name":"plant1"`) {
		t.Fatalf("plants = %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !contains(rec.Body.String(), `persistence_readings_total{measurement="moisture",outcome="stored"} 1`) {
		t.Fatalf("metrics:\n%s", rec.Body.String())
	}
}
