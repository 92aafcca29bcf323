package rabbitmq

import (
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher interface defines the method to publish a message
type IPublisher interface {
	PublishMessage(message interface{}) error
	PublishMessageQos(qos byte, retained bool, message interface{}) error
	Close()
}

// PublisherFactory returns a publisher bound to the given topic.
type PublisherFactory func(topic string) IPublisher

// Publisher holds the client and the topic it publishes to.
type Publisher struct {
	client  mqtt.Client
	topic   string
	qos     byte
	timeout time.Duration
	quiet   bool
}

// NewPublisher creates a new Publisher instance using the shared MQTT client and topic
func NewPublisher(client mqtt.Client, topic string) *Publisher {
	return &Publisher{
		client:  client,
		topic:   topic,
		timeout: 5 * time.Second,
	}
}

// NewFactory returns a PublisherFactory sharing one client. Publishers
// created by it use the given QoS and do not log every message when quiet.
func NewFactory(client mqtt.Client, qos byte, quiet bool) PublisherFactory {
	return func(topic string) IPublisher {
		p := NewPublisher(client, topic)
		p.qos = qos
		p.quiet = quiet
		return p
	}
}

// Topic returns the topic this publisher writes to.
func (p *Publisher) Topic() string { return p.topic }

// PublishMessage publishes a message with the publisher's default QoS.
func (p *Publisher) PublishMessage(message interface{}) error {
	return p.PublishMessageQos(p.qos, false, message)
}

// PublishMessageQos publishes a string or []byte payload.
func (p *Publisher) PublishMessageQos(qos byte, retained bool, message interface{}) error {
	var payload interface{}
	switch m := message.(type) {
	case string:
		payload = m
	case []byte:
		payload = m
	default:
		return fmt.Errorf("invalid message format, expected string or []byte, got %T", message)
	}

	token := p.client.Publish(p.topic, qos, retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s timed out after %s", p.topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	if !p.quiet {
		log.Printf("Message '%v' published to topic '%s'", message, p.topic)
	}
	return nil
}

// Close gracefully closes the MQTT connection for the publisher
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
		log.Println("MQTT client disconnected")
	}
}
