package greenhouse

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/rabbitmq"
)

// DefaultInterval between two publish rounds.
const DefaultInterval = 5 * time.Second

// SchedulerState is the lifecycle of the publish loop.
type SchedulerState int32

const (
	Idle SchedulerState = iota
	Running
	Stopped
)

func (s SchedulerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Scheduler publishes one reading per sensor every interval.
type Scheduler struct {
	sensors   []*Sensor
	publisher rabbitmq.PublisherFactory
	interval  time.Duration
	metrics   *Metrics
	observe   func()

	state  atomic.Int32
	rounds atomic.Int64
}

func NewScheduler(sensors []*Sensor, publisher rabbitmq.PublisherFactory, interval time.Duration, metrics *Metrics) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		sensors:   sensors,
		publisher: publisher,
		interval:  interval,
		metrics:   metrics,
	}
}

func (s *Scheduler) State() SchedulerState { return SchedulerState(s.state.Load()) }

// Rounds returns the number of completed publish rounds.
func (s *Scheduler) Rounds() int64 { return s.rounds.Load() }

// PublishRound ticks every sensor once and publishes the readings. A failed
// publish is logged and counted; it is not retried.
func (s *Scheduler) PublishRound() {
	for _, sensor := range s.sensors {
		r := sensor.Tick()
		if err := s.publisher(r.Topic).PublishMessage(r.Payload()); err != nil {
			log.Printf("greenhouse: publish %s failed: %v", r.Topic, err)
			s.metrics.publishFailed(sensor.Type)
			continue
		}
		s.metrics.readingPublished(sensor.Type)
	}
	s.rounds.Add(1)
	if s.observe != nil {
		s.observe()
	}
}

// Run publishes a round immediately and then after every fixed sleep of
// interval, until ctx is cancelled. The sleep does not account for the time
// spent publishing.
func (s *Scheduler) Run(ctx context.Context) {
	s.state.Store(int32(Running))
	defer s.state.Store(int32(Stopped))

	for {
		s.PublishRound()
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval):
		}
	}
}
