package provisioning

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
)

func testConfig(grafana, nodered string) Config {
	return Config{
		GrafanaURL:    grafana,
		GrafanaKey:    "secret",
		NodeRedURL:    nodered,
		PublicGrafana: "http://localhost:3000",
		InfluxOrg:     "greenhouse",
		InfluxBucket:  "iot",
		DatasourceUID: "ds",
		DashboardUID:  "gh",

		NodeRedBrokerID:     "broker1",
		NodeRedInfluxID:     "influx1",
		NodeRedDashboardTab: "uitab1",

		Timeout:    time.Second,
		MaxElapsed: 2 * time.Second,
	}
}

func TestDashboardPanels(t *testing.T) {
	d := Dashboard(testConfig("", ""), 2)
	panels := d["dashboard"].(map[string]any)["panels"].([]any)
	if len(panels) != 5 {
		t.Fatalf("panels = %d", len(panels))
	}
	p := panels[4].(map[string]any)
	if p["id"] != 5 || p["title"] != "Plant 2 Soil Moisture" {
		t.Fatalf("panel = %v %v", p["id"], p["title"])
	}
	query := p["targets"].([]any)[0].(map[string]any)["query"].(string)
	if !strings.Contains(query, `r["plant_id"] == "2"`) || !strings.Contains(query, `from(bucket: "iot")`) {
		t.Fatalf("query = %s", query)
	}
}

func TestMoistureFlowUsesThresholds(t *testing.T) {
	f := MoistureFlow(testConfig("", ""), "tab1", 1, entities.Threshold{Min: 30, Max: 70})
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, want := range []string{`"label":"Moisture"`, `"seg1":"30"`, `"seg2":"70"`, `"topic":"waterpump/increase/1"`,
		`"topic":"waterpump/decrease/1"`, `panelId=4`, `"z":"tab1"`} {
		if !strings.Contains(s, want) {
			t.Fatalf("flow missing %s", want)
		}
	}
}

func TestMoistureFlowReferencesConfigNodes(t *testing.T) {
	f := MoistureFlow(testConfig("", ""), "tab1", 2, entities.Threshold{Min: 30, Max: 70})

	for _, c := range f["configs"].([]any) {
		group := c.(map[string]any)
		if group["type"] == "ui_group" && group["tab"] != "uitab1" {
			t.Fatalf("group %v tab = %v", group["id"], group["tab"])
		}
	}

	queries, outs := 0, 0
	for _, n := range f["nodes"].([]any) {
		node := n.(map[string]any)
		switch node["type"] {
		case "influxdb in":
			queries++
			if node["influxdb"] != "influx1" {
				t.Fatalf("query %v influxdb = %v", node["id"], node["influxdb"])
			}
		case "mqtt out":
			outs++
			if node["broker"] != "broker1" {
				t.Fatalf("mqtt out broker = %v", node["broker"])
			}
		case "ui_button":
			wires := node["wires"].([]any)[0].([]string)
			if len(wires) != 1 || wires[0] != "mqtt_out" {
				t.Fatalf("button %v wires = %v", node["id"], wires)
			}
		}
	}
	if queries != 2 || outs != 1 {
		t.Fatalf("queries = %d, mqtt out = %d", queries, outs)
	}
}

func TestRunProvisionsBoth(t *testing.T) {
	var (
		mu       sync.Mutex
		calls    []string
		auth     string
		posted   map[string]any
		grafanaN atomic.Int32
	)
	grafana := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if grafanaN.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		mu.Lock()
		auth = r.Header.Get("Authorization")
		calls = append(calls, r.Method+" grafana"+r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}))
	defer grafana.Close()

	nodered := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/flows":
			_, _ = w.Write([]byte(`[{"id":"other","type":"tab","label":"Lights"},{"id":"old","type":"tab","label":"Moisture"},{"id":"n1","type":"inject"}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/flow":
			b, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(b, &posted)
			_, _ = w.Write([]byte(`{"id":"new"}`))
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer nodered.Close()

	p := New(testConfig(grafana.URL, nodered.URL))
	if err := p.Run(context.Background(), 3, entities.Threshold{Min: 30, Max: 70}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"POST grafana/api/dashboards/db", "GET /flows", "DELETE /flow/old", "POST /flow"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v", calls)
	}
	if auth != "Bearer secret" {
		t.Fatalf("auth = %q", auth)
	}
	if posted["label"] != "Moisture" || len(posted["configs"].([]any)) != 3 {
		t.Fatalf("posted flow = %v", posted["label"])
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var n atomic.Int32
	grafana := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer grafana.Close()

	err := New(testConfig(grafana.URL, "http://127.0.0.1:1")).Run(context.Background(), 1, entities.Threshold{})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err = %v", err)
	}
	if n.Load() != 1 {
		t.Fatalf("grafana called %d times", n.Load())
	}
}
