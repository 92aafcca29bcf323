package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/services/config"
	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/env"
)

func main() {
	path := flag.String("file", env.Str("CONFIG_FILE", "config.yaml"), "sensor layout and thresholds (YAML or JSON)")
	flag.Parse()

	store := config.NewFileStore(*path)
	// fail fast on a broken file; later edits are picked up per request
	if _, err := store.Load(); err != nil {
		log.Fatalf("config: %v", err)
	}

	port := env.Str("PORT", "5008")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handlers.LoggingHandler(os.Stdout, config.NewRouter(store)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("config API listening on :%s (file %s)", port, store.Path())
	log.Fatal(srv.ListenAndServe())
}
