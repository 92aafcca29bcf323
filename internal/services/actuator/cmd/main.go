package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/greenhouse"
	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model"
	"github.com/LeonardoBeccarini/greenhouse_sim/internal/services/actuator"
	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/env"
	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/rabbitmq"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// one pump per moisture sensor
	cfg := greenhouse.NewConfigClient(greenhouse.ConfigClientOptions{
		BaseURL:    env.Str("CONFIG_URL", "http://config:5008"),
		MaxElapsed: env.Duration("CONFIG_MAX_ELAPSED", time.Minute),
	})
	pumps, err := cfg.SensorCount(ctx, model.Moisture)
	if err != nil {
		log.Fatalf("actuator: cannot load pump count: %v", err)
	}

	rmqc := &rabbitmq.RabbitMQConfig{
		Host:     env.Str("MQTT_HOST", "localhost"),
		Port:     env.Int("MQTT_PORT", 1883),
		User:     env.Str("MQTT_USER", "guest"),
		Password: env.Str("MQTT_PASS", "guest"),
		ClientID: env.Str("MQTT_CLIENT_ID", "actuators-"+uuid.NewString()[:8]),
		Kind:     "topic",
	}
	client, err := rabbitmq.NewRabbitMQConn(rmqc, ctx)
	if err != nil {
		log.Fatalf("MQTT connect error: %v", err)
	}

	actuators := actuator.All(pumps)
	consumer := rabbitmq.NewMultiConsumer(client, actuator.Topics(actuators), nil)
	svc := actuator.NewService(consumer, rabbitmq.NewFactory(client, 1, false), actuators)

	go func() {
		<-consumer.Ready()
		for _, a := range actuators {
			log.Printf("%s connected and listening on %s", a.Name, a.Topic)
		}
	}()

	svc.Start(ctx)
	log.Println("actuator: shutdown complete")
}
