package persistence

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewHTTPMux(svc *Service, store *Store, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()

	// GET /readings/latest
	// Query params:
	//   source=auto|db|cache   (default auto: database, cache when it fails)
	//   measurement=<kind>     (database only)
	//   limit=<int>            (default 50, max 500)
	mux.HandleFunc("/readings/latest", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		source := strings.ToLower(q.Get("source"))
		if source == "" {
			source = "auto"
		}
		limit := 50
		if s := q.Get("limit"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				limit = n
			}
		}
		if limit > 500 {
			limit = 500
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		var (
			list []Sample
			used string
		)
		if source == "db" || source == "auto" {
			if l, err := store.Latest(ctx, q.Get("measurement"), limit); err == nil {
				list, used = l, "db"
			} else if source == "db" {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		if used == "" {
			list, used = svc.LatestCache(), "cache"
			if len(list) > limit {
				list = list[:limit]
			}
		}

		type outT struct {
			Measurement string `json:"measurement"`
			SensorID    int    `json:"sensor_id"`
			PlantID     int    `json:"plant_id"`
			Value       int    `json:"value"`
			Timestamp   string `json:"timestamp"`
		}
		out := make([]outT, 0, len(list))
		for _, v := range list {
			out = append(out, outT{
				Measurement: string(v.Measurement), SensorID: v.SensorID, PlantID: v.PlantID,
				Value: v.Value, Timestamp: v.Time.UTC().Format(time.RFC3339),
			})
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Data-Source", used)
		_ = json.NewEncoder(w).Encode(out)
	})

	// GET /plants
	mux.HandleFunc("/plants", func(w http.ResponseWriter, r *http.Request) {
		plants, err := store.Plants(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(plants)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
