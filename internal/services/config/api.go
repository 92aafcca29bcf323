package config

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
)

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    any    `json:"data"`
}

// NewRouter serves the sensor layout and the thresholds read from store.
func NewRouter(store *FileStore) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) }).Methods(http.MethodGet)

	r.HandleFunc("/config/sensors/{measurement}", func(w http.ResponseWriter, req *http.Request) {
		n, err := store.SensorCount(mux.Vars(req)["measurement"])
		respond(w, n, err)
	}).Methods(http.MethodGet)

	r.HandleFunc("/config/thresholds/{measurement}", func(w http.ResponseWriter, req *http.Request) {
		t, err := store.Thresholds(mux.Vars(req)["measurement"])
		respond(w, t, err)
	}).Methods(http.MethodGet)

	return r
}

func respond(w http.ResponseWriter, data any, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, envelope{Success: true, Error: "none", Data: data})
	case errors.Is(err, ErrUnknownMeasurement):
		writeJSON(w, http.StatusNotFound, envelope{Error: err.Error()})
	default:
		log.Printf("config: %v", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Error: "configuration unavailable"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
