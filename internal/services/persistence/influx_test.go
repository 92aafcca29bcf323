package persistence

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model"
)

func TestInfluxSinkWritesPoint(t *testing.T) {
	var (
		mu    sync.Mutex
		body  string
		query string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		body, query = string(b), r.URL.RawQuery
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := InfluxConfig{InfluxURL: srv.URL, InfluxToken: "t", InfluxOrg: "greenhouse", InfluxBucket: "telemetry"}
	if !cfg.Enabled() {
		t.Fatal("config should be enabled")
	}
	sink := NewInfluxSink(influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken), cfg)
	defer sink.Close()

	err := sink.Write(context.Background(), Sample{
		Measurement: model.Moisture, SensorID: 3, PlantID: 1, Value: 47, Time: time.Unix(1700000000, 0),
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, want := range []string{"moisture,", "plant_id=1", "sensor_id=3", "value=47i"} {
		if !strings.Contains(body, want) {
			t.Fatalf("line protocol %q missing %q", body, want)
		}
	}
	if !strings.Contains(query, "bucket=telemetry") {
		t.Fatalf("query = %q", query)
	}
}

func TestInfluxConfigDisabledWithoutToken(t *testing.T) {
	if (InfluxConfig{InfluxURL: "http://x", InfluxOrg: "o", InfluxBucket: "b"}).Enabled() {
		t.Fatal("enabled without token")
	}
}
