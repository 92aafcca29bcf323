package greenhouse

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
	"github.com/LeonardoBeccarini/greenhouse_sim/pkg/rabbitmq"
)

// Options configures an Engine.
type Options struct {
	InitialTemperature int
	InitialHumidity    int
	InitialMoisture    int

	Counts   SensorCounts
	Interval time.Duration

	Publishers rabbitmq.PublisherFactory
	Consumer   rabbitmq.IConsumer
	Metrics    *Metrics

	Rand  Rand
	Clock func() time.Time
}

// Engine wires the environment, the sensor set, the command router and the
// publish loop. The listener and the loop only share the environment.
type Engine struct {
	env       *Environment
	sensors   []*Sensor
	router    *Router
	scheduler *Scheduler
	consumer  rabbitmq.IConsumer
	metrics   *Metrics
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Publishers == nil {
		return nil, errors.New("publisher factory is nil")
	}
	if opts.Consumer == nil {
		return nil, errors.New("command consumer is nil")
	}

	env := NewEnvironment(opts.InitialTemperature, opts.InitialHumidity)
	sensors, err := BuildSensors(opts.Counts, env, SensorOptions{
		InitialMoisture: opts.InitialMoisture,
		Rand:            opts.Rand,
		Clock:           opts.Clock,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		env:      env,
		sensors:  sensors,
		router:   NewRouter(env, opts.Metrics),
		consumer: opts.Consumer,
		metrics:  opts.Metrics,
	}
	e.scheduler = NewScheduler(sensors, opts.Publishers, opts.Interval, opts.Metrics)
	e.scheduler.observe = func() { e.metrics.observe(e.env.Snapshot()) }
	e.metrics.observe(env.Snapshot())
	return e, nil
}

// Start runs the command listener in the background and the publish loop
// in the caller's goroutine. It returns when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	e.consumer.SetHandler(e.router.HandleMessage)
	go e.consumer.ConsumeMessage(ctx)

	go func() {
		select {
		case <-e.consumer.Ready():
			log.Printf("greenhouse: connected and listening on %s", CommandTopic)
		case <-ctx.Done():
		}
	}()

	log.Printf("greenhouse: %d sensors, publishing every %s", len(e.sensors), e.scheduler.interval)
	e.scheduler.Run(ctx)
}

// Ready reports whether the command subscription is active.
func (e *Engine) Ready() bool {
	select {
	case <-e.consumer.Ready():
		return true
	default:
		return false
	}
}

func (e *Engine) Snapshot() State { return e.env.Snapshot() }

func (e *Engine) Router() *Router { return e.router }

func (e *Engine) Scheduler() *Scheduler { return e.scheduler }

// Sensors returns the identity of every configured sensor, in id order.
func (e *Engine) Sensors() []entities.SensorSpec {
	out := make([]entities.SensorSpec, 0, len(e.sensors))
	for _, s := range e.sensors {
		out = append(out, s.SensorSpec)
	}
	return out
}
