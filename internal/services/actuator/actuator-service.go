package actuator

import (
	"context"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/rabbitmq"
)

type Service struct {
	consumer   rabbitmq.IConsumer
	publishers rabbitmq.PublisherFactory
	bySub      map[string]Actuator // subscription filter -> actuator
}

func NewService(consumer rabbitmq.IConsumer, publishers rabbitmq.PublisherFactory, actuators []Actuator) *Service {
	bySub := make(map[string]Actuator, len(actuators))
	for _, a := range actuators {
		bySub[a.Topic] = a
	}
	return &Service{consumer: consumer, publishers: publishers, bySub: bySub}
}

// Topics returns the subscription filter of every actuator.
func Topics(actuators []Actuator) []string {
	out := make([]string, 0, len(actuators))
	for _, a := range actuators {
		out = append(out, a.Topic)
	}
	return out
}

func (s *Service) Start(ctx context.Context) {
	s.consumer.SetHandler(s.Handle)
	s.consumer.ConsumeMessage(ctx)
}

// Handle forwards one control message. sub is the subscription it arrived on.
func (s *Service) Handle(sub string, msg mqtt.Message) error {
	a, ok := s.bySub[sub]
	if !ok {
		return nil
	}
	log.Printf("%s: message received %s", a.Name, msg.Topic())
	target, ok := a.Translate(msg.Topic(), msg.Payload())
	if !ok {
		return nil
	}
	if err := s.publishers(target).PublishMessage(""); err != nil {
		return fmt.Errorf("%s: publish %s: %w", a.Name, target, err)
	}
	log.Printf("%s: activated %s", a.Name, target)
	return nil
}
