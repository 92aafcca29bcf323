package persistence

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// connChecker is satisfied by mqtt.Client.
type connChecker interface {
	IsConnectionOpen() bool
}

type pinger interface {
	Ping(ctx context.Context) error
}

type healthHandler struct {
	mqtt  connChecker
	db    pinger
	svc   *Service
	quiet time.Duration
}

// NewHealthHandler reports ok, degraded or down from the broker connection,
// the database and the age of the last write error.
func NewHealthHandler(m connChecker, db pinger, svc *Service, quiet time.Duration) http.Handler {
	return &healthHandler{mqtt: m, db: db, svc: svc, quiet: quiet}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type status struct {
		Status          string  `json:"status"`
		MQTTConnected   bool    `json:"mqtt_connected"`
		DatabaseOK      bool    `json:"database_ok"`
		LastWriteErrorS float64 `json:"last_write_error_age_sec"`
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	st := status{
		MQTTConnected:   h.mqtt != nil && h.mqtt.IsConnectionOpen(),
		DatabaseOK:      h.db != nil && h.db.Ping(ctx) == nil,
		LastWriteErrorS: h.svc.LastErrorAge().Seconds(),
	}
	switch {
	case st.MQTTConnected && st.DatabaseOK && h.svc.LastErrorAge() > h.quiet:
		st.Status = "ok"
	case st.MQTTConnected || st.DatabaseOK:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

type readyHandler struct {
	mqtt connChecker
	db   pinger
	svc  *Service
}

// NewReadyHandler answers 200 only when subscribed, connected and the
// database responds.
func NewReadyHandler(m connChecker, db pinger, svc *Service) http.Handler {
	return &readyHandler{mqtt: m, db: db, svc: svc}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	ready := h.svc.Ready() && h.mqtt != nil && h.mqtt.IsConnectionOpen() && h.db != nil && h.db.Ping(ctx) == nil
	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	type resp struct {
		Ready bool `json:"ready"`
	}
	_ = json.NewEncoder(w).Encode(resp{Ready: ready})
}
