package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	persistencepkg "github.com/LeonardoBeccarini/greenhouse_sim/internal/services/persistence"
	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/dedup"
	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/env"
	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/rabbitmq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- relational store ---
	driver := env.Str("DB_DRIVER", persistencepkg.DriverSQLite)
	dsn := env.Str("DB_DSN", "greenhouse.db?_pragma=busy_timeout(5000)")
	store, err := persistencepkg.OpenStore(ctx, driver, dsn)
	if err != nil {
		log.Fatalf("persistence: store init failed: %v", err)
	}
	defer store.Close()

	// --- MQTT ---
	mqCfg := &rabbitmq.RabbitMQConfig{
		Host:     env.Str("MQTT_HOST", "localhost"),
		Port:     env.Int("MQTT_PORT", 1883),
		User:     env.Str("MQTT_USER", "guest"),
		Password: env.Str("MQTT_PASS", "guest"),
		ClientID: env.Str("MQTT_CLIENT_ID", "persistence-"+uuid.NewString()[:8]),
		Kind:     "topic",
	}
	mqClient, err := rabbitmq.NewRabbitMQConn(mqCfg, ctx)
	if err != nil {
		log.Fatalf("mqtt connect failed: %v", err)
	}
	topics := env.List("TELEMETRY_TOPICS", persistencepkg.DefaultTopics)
	consumer := rabbitmq.NewMultiConsumer(mqClient, topics, nil)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	opts := persistencepkg.Options{
		Dedup:   dedup.New(env.Duration("DEDUP_TTL", 30*time.Second), 10000),
		Metrics: persistencepkg.NewMetrics(reg),
	}

	// --- InfluxDB (optional) ---
	influxCfg := persistencepkg.InfluxConfig{
		InfluxURL:    env.Str("INFLUX_URL", "http://localhost:8086"),
		InfluxToken:  env.Str("INFLUX_TOKEN", ""),
		InfluxOrg:    env.Str("INFLUX_ORG", "greenhouse"),
		InfluxBucket: env.Str("INFLUX_BUCKET", "greenhouse"),
	}
	if influxCfg.Enabled() {
		sink := persistencepkg.NewInfluxSink(influxdb2.NewClient(influxCfg.InfluxURL, influxCfg.InfluxToken), influxCfg)
		defer sink.Close()
		opts.Sink = sink
	} else {
		log.Println("persistence: INFLUX_TOKEN not set, time-series sink disabled")
	}

	svc, err := persistencepkg.NewService(consumer, store, opts)
	if err != nil {
		log.Fatalf("persistence init failed: %v", err)
	}

	// --- HTTP mux ---
	mux := persistencepkg.NewHTTPMux(svc, store, reg)
	mux.Handle("/healthz", persistencepkg.NewHealthHandler(mqClient, store, svc, 30*time.Second))
	mux.Handle("/readyz", persistencepkg.NewReadyHandler(mqClient, store, svc))

	httpPort := env.Str("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("persistence HTTP listening on :%s", httpPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// blocks until SIGINT/SIGTERM
	svc.Start(ctx)

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	log.Println("persistence: shutdown complete")
}
