package greenhouse

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/rabbitmq"
)

// seqRand returns the queued values in order, then fallback. Every value is
// capped to n-1 so it stays a legal Intn result.
type seqRand struct {
	mu       sync.Mutex
	vals     []int
	fallback int
}

func (r *seqRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.fallback
	if len(r.vals) > 0 {
		v, r.vals = r.vals[0], r.vals[1:]
	}
	if v > n-1 {
		v = n - 1
	}
	return v
}

// calm never drifts and never adds noise.
func calm() *seqRand { return &seqRand{fallback: 1} }

func fixedClock(h, m int) func() time.Time {
	return func() time.Time { return time.Date(2024, 6, 1, h, m, 0, 0, time.UTC) }
}

type published struct {
	topic   string
	payload string
}

type fakeBus struct {
	mu   sync.Mutex
	msgs []published
	fail map[string]bool
}

func (b *fakeBus) factory() rabbitmq.PublisherFactory {
	return func(topic string) rabbitmq.IPublisher { return &fakePublisher{bus: b, topic: topic} }
}

func (b *fakeBus) all() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.msgs...)
}

func (b *fakeBus) last(topic string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.msgs) - 1; i >= 0; i-- {
		if b.msgs[i].topic == topic {
			return b.msgs[i].payload, true
		}
	}
	return "", false
}

type fakePublisher struct {
	bus   *fakeBus
	topic string
}

func (p *fakePublisher) PublishMessage(message interface{}) error {
	return p.PublishMessageQos(0, false, message)
}

func (p *fakePublisher) PublishMessageQos(_ byte, _ bool, message interface{}) error {
	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()
	if p.bus.fail[p.topic] {
		return errors.New("broker unreachable")
	}
	p.bus.msgs = append(p.bus.msgs, published{topic: p.topic, payload: message.(string)})
	return nil
}

func (p *fakePublisher) Close() {}

type fakeConsumer struct {
	mu      sync.Mutex
	handler rabbitmq.Handler
	ready   chan struct{}
}

func newFakeConsumer() *fakeConsumer { return &fakeConsumer{ready: make(chan struct{})} }

func (c *fakeConsumer) SetHandler(h rabbitmq.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

func (c *fakeConsumer) ConsumeMessage(ctx context.Context) {
	close(c.ready)
	<-ctx.Done()
}

func (c *fakeConsumer) Ready() <-chan struct{} { return c.ready }

func (c *fakeConsumer) deliver(topic, payload string) error {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	return h(topic, &fakeMessage{topic: topic, payload: []byte(payload)})
}

// fakeMessage implements mqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func entitiesSpecTemperature() entities.SensorSpec {
	return entities.SensorSpec{ID: 1, Type: entities.Temperature}
}
