package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/greenhouse"
	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model"
	"github.com/LeonardoBeccarini/greenhouse_sim/internal/services/provisioning"
	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/env"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := greenhouse.NewConfigClient(greenhouse.ConfigClientOptions{
		BaseURL:    env.Str("CONFIG_URL", "http://config:5008"),
		MaxElapsed: env.Duration("CONFIG_MAX_ELAPSED", time.Minute),
	})
	plants, err := cfg.SensorCount(ctx, model.Moisture)
	if err != nil {
		log.Fatalf("provisioning: %v", err)
	}
	th, err := cfg.Thresholds(ctx, model.Moisture)
	if err != nil {
		log.Fatalf("provisioning: %v", err)
	}

	if err := provisioning.New(provisioning.ConfigFromEnv()).Run(ctx, plants, th); err != nil {
		log.Fatalf("provisioning: %v", err)
	}
	log.Printf("provisioning: dashboard and flow ready for %d plants", plants)
}
