package provisioning

import (
	"fmt"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
)

// MoistureTab is the label of the Node-RED tab owned by the provisioner.
const MoistureTab = "Moisture"

// moisturePanelOffset: panel ids 1..3 are light, temperature and humidity;
// plant i gets panel i+3.
const moisturePanelOffset = 3

func datasource(cfg Config) map[string]any {
	return map[string]any{"type": "influxdb", "uid": cfg.DatasourceUID}
}

func fluxQuery(cfg Config, measurement, window string, plant int) string {
	q := fmt.Sprintf("from(bucket: %q)\n  |> range(start: -%s)\n  |> filter(fn: (r) => r[\"_measurement\"] == %q)\n  |> filter(fn: (r) => r[\"_field\"] == \"value\")",
		cfg.InfluxBucket, window, measurement)
	if plant > 0 {
		q += fmt.Sprintf("\n  |> filter(fn: (r) => r[\"plant_id\"] == \"%d\")", plant)
	}
	return q + "\n  |> yield(name: \"mean\")"
}

func timeseriesPanel(cfg Config, id int, title, measurement, unit string, lo, hi, plant int, x, y int) map[string]any {
	return map[string]any{
		"id":         id,
		"type":       "timeseries",
		"title":      title,
		"datasource": datasource(cfg),
		"gridPos":    map[string]int{"h": 8, "w": 12, "x": x, "y": y},
		"fieldConfig": map[string]any{
			"defaults": map[string]any{
				"min":    lo,
				"max":    hi,
				"unit":   unit,
				"custom": map[string]any{"drawStyle": "line", "lineInterpolation": "smooth", "lineWidth": 2, "showPoints": "never"},
			},
			"overrides": []any{},
		},
		"options": map[string]any{
			"legend":  map[string]any{"displayMode": "list", "placement": "bottom", "showLegend": false},
			"tooltip": map[string]any{"mode": "single", "sort": "none"},
		},
		"targets": []any{
			map[string]any{"datasource": datasource(cfg), "query": fluxQuery(cfg, measurement, "5m", plant), "refId": "A"},
		},
	}
}

// Dashboard builds the body of POST /api/dashboards/db.
func Dashboard(cfg Config, plants int) map[string]any {
	panels := []any{
		timeseriesPanel(cfg, 1, "Light", "light", "none", 0, 255, 0, 0, 0),
		timeseriesPanel(cfg, 2, "Temperature", "temperature", "celsius", 0, 50, 0, 12, 0),
		timeseriesPanel(cfg, 3, "Air Humidity", "humidity", "percent", 0, 100, 0, 0, 8),
	}
	for i := 1; i <= plants; i++ {
		panels = append(panels, timeseriesPanel(cfg, i+moisturePanelOffset,
			fmt.Sprintf("Plant %d Soil Moisture", i), "moisture", "percent", 0, 100, i, 12*(i%2), 8*((i+3)/2)))
	}
	return map[string]any{
		"dashboard": map[string]any{
			"uid":           cfg.DashboardUID,
			"title":         "Greenhouse",
			"editable":      true,
			"panels":        panels,
			"refresh":       "5s",
			"schemaVersion": 37,
			"time":          map[string]string{"from": "now-5m", "to": "now"},
		},
		"message":   "Created panels dynamically",
		"overwrite": true,
	}
}

func panelURL(cfg Config, plant int) string {
	return fmt.Sprintf("%s/d-solo/%s/greenhouse?orgId=1&refresh=5s&theme=dark&panelId=%d",
		cfg.PublicGrafana, cfg.DashboardUID, plant+moisturePanelOffset)
}

// MoistureFlow builds the body of POST /flow: per plant a gauge group, the
// embedded Grafana panel, an InfluxDB query averaged by a function node and
// two buttons publishing waterpump/<increase|decrease>/<plant>.
func MoistureFlow(cfg Config, tabID string, plants int, th entities.Threshold) map[string]any {
	var (
		nodes   []any
		configs []any
		queries []string
	)
	y := 60
	for i := 1; i <= plants; i++ {
		group := fmt.Sprintf("uigroup%d", i)
		configs = append(configs, map[string]any{
			"id": group, "type": "ui_group", "name": fmt.Sprintf("Moisture of Plant %d", i),
			"tab": cfg.NodeRedDashboardTab, "order": 3, "disp": true, "width": "18", "collapse": false,
		})
		gauge := map[string]any{
			"id": fmt.Sprintf("wave%d", i), "type": "ui_gauge", "z": tabID, "group": group,
			"order": 1, "width": "6", "height": "6", "gtype": "wave", "label": "%", "format": "{{value}}",
			"min": 0, "max": "100", "colors": []string{"#b30000", "#00b500", "#b30000"},
			"seg1": fmt.Sprint(th.Min), "seg2": fmt.Sprint(th.Max),
			"x": 590, "y": y, "wires": []any{},
		}
		template := map[string]any{
			"id": fmt.Sprintf("template%d", i), "type": "ui_template", "z": tabID, "group": group,
			"name": fmt.Sprintf("template%d", i), "order": 2, "width": "12", "height": "8",
			"format": fmt.Sprintf("<div style=\"border-radius: 10px; width: 100%%; height: 100%%; overflow: hidden;\">\n    <iframe src=%q\n    width=\"100%%\" height=\"100%%\" frameborder=\"0\"></iframe>\n</div>", panelURL(cfg, i)),
			"templateScope": "local", "x": 600, "y": y - 40, "wires": []any{[]any{}},
		}
		function := map[string]any{
			"id": fmt.Sprintf("function%d", i), "type": "function", "z": tabID, "name": fmt.Sprintf("function%d", i),
			"func":    "var payload = msg.payload\nvar sum = 0\nfor (let i = 0; i < payload.length; i++) {\n    sum += payload[i]['_value'];\n}\nmsg.payload = payload.length ? (sum / payload.length) | 0 : 0\nreturn msg;",
			"outputs": 1, "x": 410, "y": y,
			"wires": []any{[]string{fmt.Sprintf("wave%d", i)}},
		}
		query := map[string]any{
			"id": fmt.Sprintf("query%d", i), "type": "influxdb in", "z": tabID, "influxdb": cfg.NodeRedInfluxID,
			"name": fmt.Sprintf("query%d", i),
			"query": fluxQuery(cfg, "moisture", "1m", i), "org": cfg.InfluxOrg, "rawOutput": false,
			"x": 240, "y": y, "wires": []any{[]string{fmt.Sprintf("function%d", i)}},
		}
		nodes = append(nodes, gauge, template, function, query,
			pumpButton(tabID, group, i, "increase", "+10%", "#50bf6e", "fa-arrow-up", 3, y+800),
			pumpButton(tabID, group, i, "decrease", "-10%", "#bf5050", "fa-arrow-down", 4, y+850))
		queries = append(queries, fmt.Sprintf("query%d", i))
		y += 150
	}
	nodes = append(nodes,
		map[string]any{"id": "mqtt_out", "type": "mqtt out", "z": tabID, "broker": cfg.NodeRedBrokerID, "topic": "", "qos": "", "retain": "", "x": 610, "y": (y + 1000) / 2, "wires": []any{}},
		map[string]any{"id": "inject", "type": "inject", "z": tabID, "repeat": "1", "once": false, "x": 90, "y": y / 2, "wires": []any{queries}},
	)
	return map[string]any{
		"type":     "tab",
		"label":    MoistureTab,
		"nodes":    nodes,
		"configs":  configs,
		"disabled": false,
		"info":     "",
		"env":      []any{},
	}
}

func pumpButton(tabID, group string, plant int, action, label, color, icon string, order, y int) map[string]any {
	return map[string]any{
		"id": fmt.Sprintf("button_%s%d", action, plant), "type": "ui_button", "z": tabID, "group": group,
		"order": order, "width": "3", "height": "2", "passthru": false, "label": label, "bgcolor": color,
		"icon": icon, "payload": "", "payloadType": "str",
		"topic": fmt.Sprintf("waterpump/%s/%d", action, plant), "topicType": "str",
		"x": 170, "y": y, "wires": []any{[]string{"mqtt_out"}},
	}
}
