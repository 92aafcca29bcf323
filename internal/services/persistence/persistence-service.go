package persistence

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/dedup"
	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/rabbitmq"
)

// DefaultTopics are the telemetry subscriptions stored when none are configured.
var DefaultTopics = []string{"temperature/#", "humidity/#"}

// Recorder stores a sample transactionally.
type Recorder interface {
	Record(ctx context.Context, s Sample) error
}

// Options carries the optional collaborators of a Service. Dedup drops QoS 1
// redeliveries by topic and message id; telemetry published at QoS 0 has no
// id and always passes through.
type Options struct {
	Sink         Sink
	Dedup        *dedup.Deduper
	Metrics      *Metrics
	WriteTimeout time.Duration
	Clock        func() time.Time
}

// Service consumes telemetry and records it in the store and the sink.
type Service struct {
	consumer rabbitmq.IConsumer
	store    Recorder
	sink     Sink
	dedup    *dedup.Deduper
	metrics  *Metrics
	timeout  time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	lastErr time.Time
	latest  map[int]Sample // sensor id -> last stored sample
}

func NewService(consumer rabbitmq.IConsumer, store Recorder, opts Options) (*Service, error) {
	if consumer == nil || store == nil {
		return nil, fmt.Errorf("persistence: consumer and store are required")
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		consumer: consumer,
		store:    store,
		sink:     opts.Sink,
		dedup:    opts.Dedup,
		metrics:  opts.Metrics,
		timeout:  opts.WriteTimeout,
		now:      opts.Clock,
		lastErr:  time.Now().Add(-24 * time.Hour),
		latest:   make(map[int]Sample),
	}, nil
}

// Start subscribes the handler and blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.consumer.SetHandler(s.Handle)
	s.consumer.ConsumeMessage(ctx)
}

// Ready reports whether the telemetry subscriptions are active.
func (s *Service) Ready() bool {
	select {
	case <-s.consumer.Ready():
		return true
	default:
		return false
	}
}

// Handle stores one telemetry message. Malformed messages and QoS 1
// redeliveries are dropped without error; a failed transaction is returned
// so the consumer logs it.
func (s *Service) Handle(topic string, msg mqtt.Message) error {
	if s.dedup != nil && msg.MessageID() != 0 {
		if !s.dedup.ShouldProcess(msg.Topic() + "#" + strconv.Itoa(int(msg.MessageID()))) {
			s.metrics.outcome("", "duplicate")
			return nil
		}
	}

	smp, err := ParseSample(msg.Topic(), msg.Payload(), s.now())
	if err != nil {
		log.Printf("persistence: dropping message on %s: %v", topic, err)
		s.metrics.outcome("", "malformed")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.store.Record(ctx, smp); err != nil {
		s.markError()
		s.metrics.outcome(string(smp.Measurement), "failed")
		return fmt.Errorf("persistence: update failed for %s: %w", msg.Topic(), err)
	}
	s.metrics.outcome(string(smp.Measurement), "stored")

	s.mu.Lock()
	s.latest[smp.SensorID] = smp
	s.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.Write(ctx, smp); err != nil {
			s.markError()
			s.metrics.sinkFailed()
			log.Printf("persistence: influx write error: %v", err)
		}
	}
	log.Printf("persistence: stored %s sensor=%d plant=%d value=%d",
		smp.Measurement, smp.SensorID, smp.PlantID, smp.Value)
	return nil
}

func (s *Service) markError() {
	s.mu.Lock()
	s.lastErr = time.Now()
	s.mu.Unlock()
}

// LastErrorAge is the time since the last failed write.
func (s *Service) LastErrorAge() time.Duration {
	s.mu.RLock()
	t := s.lastErr
	s.mu.RUnlock()
	return time.Since(t)
}

// LatestCache returns the last stored sample of every sensor, by sensor id.
func (s *Service) LatestCache() []Sample {
	s.mu.RLock()
	out := make([]Sample, 0, len(s.latest))
	for _, v := range s.latest {
		out = append(out, v)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].SensorID < out[j].SensorID })
	return out
}
