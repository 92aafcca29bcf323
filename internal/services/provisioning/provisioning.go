// Package provisioning pushes the monitoring dashboard to Grafana and the
// per-plant moisture flow to Node-RED.
package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/env"
)

type Config struct {
	GrafanaURL    string
	GrafanaKey    string
	NodeRedURL    string
	PublicGrafana string // base URL embedded in the Node-RED iframes

	InfluxOrg     string
	InfluxBucket  string
	DatasourceUID string
	DashboardUID  string

	// Ids of config nodes that already exist in the Node-RED install: the
	// MQTT broker, the InfluxDB server and the dashboard tab.
	NodeRedBrokerID     string
	NodeRedInfluxID     string
	NodeRedDashboardTab string

	Timeout    time.Duration // per request
	MaxElapsed time.Duration // retry budget per step
}

func ConfigFromEnv() Config {
	return Config{
		GrafanaURL:    env.Str("GRAFANA_URL", "http://grafana:3000"),
		GrafanaKey:    env.Str("GRAFANA_API_KEY", ""),
		NodeRedURL:    env.Str("NODERED_URL", "http://nodered:1880"),
		PublicGrafana: env.Str("GRAFANA_PUBLIC_URL", "http://localhost:3000"),
		InfluxOrg:     env.Str("INFLUX_ORG", "greenhouse"),
		InfluxBucket:  env.Str("INFLUX_BUCKET", "greenhouse"),
		DatasourceUID: env.Str("GRAFANA_DATASOURCE_UID", "influxdb"),
		DashboardUID:  env.Str("GRAFANA_DASHBOARD_UID", "greenhouse"),

		NodeRedBrokerID:     env.Str("NODERED_BROKER_ID", "263cb68dcd37c7d7"),
		NodeRedInfluxID:     env.Str("NODERED_INFLUX_ID", "f31dede1f911c00f"),
		NodeRedDashboardTab: env.Str("NODERED_DASHBOARD_TAB", "b95bdcd246960f21"),

		Timeout:    env.Duration("PROVISION_TIMEOUT", 10*time.Second),
		MaxElapsed: env.Duration("PROVISION_MAX_ELAPSED", 2*time.Minute),
	}
}

type Provisioner struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Provisioner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 2 * time.Minute
	}
	cfg.GrafanaURL = strings.TrimRight(cfg.GrafanaURL, "/")
	cfg.NodeRedURL = strings.TrimRight(cfg.NodeRedURL, "/")
	return &Provisioner{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// Run provisions Grafana, then Node-RED. Each step is retried on its own.
func (p *Provisioner) Run(ctx context.Context, plants int, moisture entities.Threshold) error {
	if err := p.retry(ctx, "grafana", func() error { return p.ProvisionGrafana(ctx, plants) }); err != nil {
		return err
	}
	return p.retry(ctx, "node-red", func() error { return p.ProvisionNodeRed(ctx, plants, moisture) })
}

func (p *Provisioner) retry(ctx context.Context, step string, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = p.cfg.MaxElapsed
	notify := func(err error, d time.Duration) {
		log.Printf("provisioning: %s failed, retrying in %s: %v", step, d, err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return fmt.Errorf("provisioning %s: %w", step, err)
	}
	log.Printf("provisioning: %s done", step)
	return nil
}

// ProvisionGrafana creates or overwrites the dashboard.
func (p *Provisioner) ProvisionGrafana(ctx context.Context, plants int) error {
	headers := map[string]string{}
	if p.cfg.GrafanaKey != "" {
		headers["Authorization"] = "Bearer " + p.cfg.GrafanaKey
	}
	_, err := p.do(ctx, http.MethodPost, p.cfg.GrafanaURL+"/api/dashboards/db", Dashboard(p.cfg, plants), headers)
	return err
}

type flowEntry struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

// ProvisionNodeRed replaces the "Moisture" tab with one built for plants.
func (p *Provisioner) ProvisionNodeRed(ctx context.Context, plants int, moisture entities.Threshold) error {
	body, err := p.do(ctx, http.MethodGet, p.cfg.NodeRedURL+"/flows", nil, nil)
	if err != nil {
		return err
	}
	var flows []flowEntry
	if err := json.Unmarshal(body, &flows); err != nil {
		return backoff.Permanent(fmt.Errorf("decode flows: %w", err))
	}

	tabID := ""
	for _, f := range flows {
		if f.Type == "tab" && f.Label == MoistureTab {
			tabID = f.ID
			if _, err := p.do(ctx, http.MethodDelete, p.cfg.NodeRedURL+"/flow/"+f.ID, nil, nil); err != nil {
				return err
			}
			break
		}
	}

	_, err = p.do(ctx, http.MethodPost, p.cfg.NodeRedURL+"/flow", MoistureFlow(p.cfg, tabID, plants, moisture), nil)
	return err
}

// do sends one request. 4xx answers other than 429 are permanent.
func (p *Provisioner) do(ctx context.Context, method, url string, payload any, headers map[string]string) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		err := fmt.Errorf("%s %s: HTTP %d: %s", method, url, resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	return body, nil
}

