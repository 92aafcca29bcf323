package rabbitmq

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler processes one delivered message. Returned errors are logged.
type Handler func(topic string, message mqtt.Message) error

// IConsumer subscribes a handler and blocks until the context is done.
type IConsumer interface {
	ConsumeMessage(ctx context.Context)
	SetHandler(handler Handler)
	// Ready is closed once every subscription has been acknowledged.
	Ready() <-chan struct{}
}

// Consumer holds the client and topic for subscribing to a topic
type Consumer struct {
	client    mqtt.Client
	handler   Handler
	topic     string
	qos       byte
	ready     chan struct{}
	readyOnce sync.Once
	backoff   func() backoff.BackOff
}

// NewConsumer creates a new Consumer instance using the shared MQTT client and topic
func NewConsumer(client mqtt.Client, topic string, handler Handler) *Consumer {
	return &Consumer{
		client:  client,
		topic:   topic,
		qos:     qosFor(topic),
		handler: handler,
		ready:   make(chan struct{}),
		backoff: subscribeBackOff,
	}
}

func (c *Consumer) SetHandler(handler Handler) {
	c.handler = handler
}

// SetQoS overrides the subscription QoS chosen from the topic.
func (c *Consumer) SetQoS(qos byte) {
	c.qos = qos
}

func (c *Consumer) Ready() <-chan struct{} { return c.ready }

// qosFor: activation commands and telemetry stored by the persistence
// service are subscribed at QoS 1, everything else at QoS 0.
func qosFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "activate/") ||
		strings.HasPrefix(t, "temperature/") ||
		strings.HasPrefix(t, "humidity/") {
		return 1
	}
	return 0
}

func dispatch(topic string, handler Handler, message mqtt.Message) {
	if handler == nil {
		log.Printf("No handler set for topic %s", topic)
		return
	}
	if err := handler(topic, message); err != nil {
		log.Printf("Error handling message on %s: %v", message.Topic(), err)
	}
}

// subscribeBackOff retries a refused subscription until the context ends.
func subscribeBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0
	return bo
}

// subscribe keeps trying until the broker acknowledges the subscription or
// ctx is cancelled.
func subscribe(ctx context.Context, client mqtt.Client, topic string, qos byte, newBackOff func() backoff.BackOff, handle func(mqtt.Message)) error {
	return backoff.RetryNotify(func() error {
		token := client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) { handle(msg) })
		token.Wait()
		return token.Error()
	}, backoff.WithContext(newBackOff(), ctx), func(err error, next time.Duration) {
		log.Printf("Error subscribing to topic %s: %v (retry in %s)", topic, err, next)
	})
}

// ConsumeMessage subscribes to the topic and processes messages using the handler
// It blocks until the context is cancelled.
func (c *Consumer) ConsumeMessage(ctx context.Context) {
	err := subscribe(ctx, c.client, c.topic, c.qos, c.backoff, func(message mqtt.Message) {
		dispatch(c.topic, c.handler, message)
	})
	if err != nil {
		log.Printf("Gave up subscribing to topic %s: %v", c.topic, err)
		return
	}

	log.Printf("Successfully subscribed to topic %s", c.topic)
	c.readyOnce.Do(func() { close(c.ready) })

	<-ctx.Done()

	unsubToken := c.client.Unsubscribe(c.topic)
	unsubToken.Wait()
}

// MultiConsumer subscribes the same handler to several topics.
type MultiConsumer struct {
	client    mqtt.Client
	topics    []string
	handler   Handler
	ready     chan struct{}
	readyOnce sync.Once
	backoff   func() backoff.BackOff
}

func NewMultiConsumer(client mqtt.Client, topics []string, handler Handler) *MultiConsumer {
	return &MultiConsumer{
		client:  client,
		topics:  topics,
		handler: handler,
		ready:   make(chan struct{}),
		backoff: subscribeBackOff,
	}
}

func (m *MultiConsumer) SetHandler(handler Handler) {
	m.handler = handler
}

func (m *MultiConsumer) Ready() <-chan struct{} { return m.ready }

// ConsumeMessage subscribes every topic, retrying each until acknowledged,
// and blocks until ctx is cancelled.
func (m *MultiConsumer) ConsumeMessage(ctx context.Context) {
	for _, topic := range m.topics {
		topic := topic
		err := subscribe(ctx, m.client, topic, qosFor(topic), m.backoff, func(msg mqtt.Message) {
			dispatch(topic, m.handler, msg)
		})
		if err != nil {
			log.Printf("Gave up subscribing to topic %s: %v", topic, err)
			return
		}
		log.Printf("Successfully subscribed to topic %s", topic)
	}
	m.readyOnce.Do(func() { close(m.ready) })

	<-ctx.Done()

	for _, topic := range m.topics {
		m.client.Unsubscribe(topic)
	}
}
