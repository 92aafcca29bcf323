package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/greenhouse"
	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
	"github.com/LeonardoBeccarini/greenhouse_sim/internal/services/provisioning"
	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/env"
	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/rabbitmq"
)

func main() {
	// start parameters, overridable by flags
	initialTemp := flag.Int("temperature", env.Int("INITIAL_TEMPERATURE", 23), "initial air temperature")
	initialHum := flag.Int("humidity", env.Int("INITIAL_HUMIDITY", 50), "initial air humidity")
	initialMoist := flag.Int("moisture", env.Int("INITIAL_MOISTURE", greenhouse.DefaultMoisture), "initial soil moisture of every plant")
	interval := flag.Duration("interval", env.Duration("PUBLISH_INTERVAL", greenhouse.DefaultInterval), "publish interval")
	configURL := flag.String("config-url", env.Str("CONFIG_URL", "http://config:5008"), "configuration service base URL")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- sensor layout from the configuration service ---
	cfgClient := greenhouse.NewConfigClient(greenhouse.ConfigClientOptions{
		BaseURL:    *configURL,
		MaxElapsed: env.Duration("CONFIG_MAX_ELAPSED", time.Minute),
	})
	counts, err := cfgClient.SensorCounts(ctx)
	if err != nil {
		log.Fatalf("greenhouse: cannot load sensor layout: %v", err)
	}
	log.Printf("greenhouse: sensor layout %v", counts)

	// --- MQTT ---
	mqCfg := &rabbitmq.RabbitMQConfig{
		Host:     env.Str("MQTT_HOST", "localhost"),
		Port:     env.Int("MQTT_PORT", 1883),
		User:     env.Str("MQTT_USER", "guest"),
		Password: env.Str("MQTT_PASS", "guest"),
		ClientID: env.Str("MQTT_CLIENT_ID", "greenhouse-"+uuid.NewString()[:8]),
		Kind:     "topic",
	}
	client, err := rabbitmq.NewRabbitMQConn(mqCfg, ctx)
	if err != nil {
		log.Fatalf("greenhouse: mqtt connect failed: %v", err)
	}
	// TELEMETRY_QOS=1 lets the persistence service deduplicate redeliveries
	publishers := rabbitmq.NewFactory(client, byte(env.Int("TELEMETRY_QOS", 0)), env.Bool("QUIET_PUBLISH", true))
	consumer := rabbitmq.NewConsumer(client, greenhouse.CommandTopic, nil)

	// --- engine ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engine, err := greenhouse.NewEngine(greenhouse.Options{
		InitialTemperature: *initialTemp,
		InitialHumidity:    *initialHum,
		InitialMoisture:    *initialMoist,
		Counts:             counts,
		Interval:           *interval,
		Publishers:         publishers,
		Consumer:           consumer,
		Metrics:            greenhouse.NewMetrics(reg),
	})
	if err != nil {
		log.Fatalf("greenhouse: init failed: %v", err)
	}

	// --- dashboards ---
	if env.Bool("PROVISION", false) {
		go provision(ctx, cfgClient, counts[entities.Moisture])
	}

	// --- HTTP ---
	httpPort := env.Str("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           greenhouse.NewHTTPMux(engine, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("greenhouse HTTP listening on :%s", httpPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// --- gRPC control ---
	grpcPort := env.Int("GRPC_PORT", 50051)
	lis, err := net.Listen("tcp", ":"+strconv.Itoa(grpcPort))
	if err != nil {
		log.Fatalf("greenhouse: grpc listen: %v", err)
	}
	gs := grpc.NewServer()
	greenhouse.RegisterControlServer(gs, greenhouse.NewControlHandler(engine))
	go func() {
		log.Printf("greenhouse gRPC listening on :%d", grpcPort)
		if err := gs.Serve(lis); err != nil {
			log.Printf("grpc server stopped: %v", err)
		}
	}()

	// blocks until SIGINT/SIGTERM
	engine.Start(ctx)

	gs.GracefulStop()
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	log.Println("greenhouse: shutdown complete")
}

func provision(ctx context.Context, cfg *greenhouse.ConfigClient, plants int) {
	th, err := cfg.Thresholds(ctx, entities.Moisture)
	if err != nil {
		log.Printf("greenhouse: provisioning skipped, no moisture thresholds: %v", err)
		return
	}
	p := provisioning.New(provisioning.ConfigFromEnv())
	if err := p.Run(ctx, plants, th); err != nil {
		log.Printf("greenhouse: provisioning failed: %v", err)
	}
}
