package greenhouse

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/messages"
)

// CommandNamespace is the first segment of every activation topic.
const CommandNamespace = "activate"

// CommandTopic is the subscription covering every activation command.
const CommandTopic = CommandNamespace + "/#"

// Step applied by one increase/decrease command.
const (
	TemperatureStep = 2
	HumidityStep    = 10
	MoistureStep    = 10
)

var (
	// ErrMalformedTopic: wrong namespace, segment count, measurement or action.
	ErrMalformedTopic = errors.New("malformed activation topic")
	// ErrUnknownTarget: the command names a plant without a moisture sensor.
	ErrUnknownTarget = errors.New("unknown target plant")
)

// ParseCommand decodes activate/<measurement>/<action>[/<plantId>].
//
// For light the action is the third segment when present, otherwise the
// payload; "on" and "true" force the light on, anything else releases it.
func ParseCommand(topic string, payload []byte) (messages.Command, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 || parts[0] != CommandNamespace {
		return messages.Command{}, fmt.Errorf("%w: %q", ErrMalformedTopic, topic)
	}
	m, ok := entities.ParseMeasurement(parts[1])
	if !ok {
		return messages.Command{}, fmt.Errorf("%w: unknown measurement in %q", ErrMalformedTopic, topic)
	}
	cmd := messages.Command{Measurement: m}

	if m == entities.Light {
		token := strings.TrimSpace(string(payload))
		if len(parts) >= 3 && parts[2] != "" {
			token = parts[2]
		}
		if token == "on" || token == "true" {
			cmd.Action = messages.ActionOn
		} else {
			cmd.Action = messages.ActionOff
		}
		return cmd, nil
	}

	if len(parts) < 3 {
		return messages.Command{}, fmt.Errorf("%w: missing action in %q", ErrMalformedTopic, topic)
	}
	switch messages.Action(parts[2]) {
	case messages.ActionIncrease, messages.ActionDecrease:
		cmd.Action = messages.Action(parts[2])
	default:
		return messages.Command{}, fmt.Errorf("%w: unknown action in %q", ErrMalformedTopic, topic)
	}

	if m == entities.Moisture {
		if len(parts) < 4 {
			return messages.Command{}, fmt.Errorf("%w: missing plant id in %q", ErrMalformedTopic, topic)
		}
		id, err := strconv.Atoi(parts[3])
		if err != nil {
			return messages.Command{}, fmt.Errorf("%w: bad plant id in %q", ErrMalformedTopic, topic)
		}
		cmd.PlantID = id
	}
	return cmd, nil
}

// Router applies activation commands to the environment.
type Router struct {
	env     *Environment
	metrics *Metrics
}

func NewRouter(env *Environment, metrics *Metrics) *Router {
	return &Router{env: env, metrics: metrics}
}

// Apply mutates the environment according to cmd.
func (r *Router) Apply(cmd messages.Command) error {
	sign := 1
	if cmd.Action == messages.ActionDecrease {
		sign = -1
	}
	switch cmd.Measurement {
	case entities.Temperature:
		r.env.AdjustTemperature(sign * TemperatureStep)
	case entities.Humidity:
		r.env.AdjustHumidity(sign * HumidityStep)
	case entities.Moisture:
		if !r.env.AdjustMoisture(cmd.PlantID, sign*MoistureStep) {
			return fmt.Errorf("%w: %d", ErrUnknownTarget, cmd.PlantID)
		}
	case entities.Light:
		r.env.SetLightForced(cmd.Action == messages.ActionOn)
	default:
		return fmt.Errorf("%w: measurement %q", ErrMalformedTopic, cmd.Measurement)
	}
	return nil
}

// Route parses and applies one inbound message. The error only tells the
// caller why a command was dropped; it is never fatal.
func (r *Router) Route(topic string, payload []byte) error {
	cmd, err := ParseCommand(topic, payload)
	if err != nil {
		r.metrics.commandDropped("", "malformed")
		return err
	}
	if err := r.Apply(cmd); err != nil {
		r.metrics.commandDropped(cmd.Measurement, "unknown_target")
		return err
	}
	r.metrics.commandApplied(cmd.Measurement)
	return nil
}

// HandleMessage is the MQTT handler for CommandTopic. Bad commands are
// absorbed here and never reach the consumer.
func (r *Router) HandleMessage(_ string, msg mqtt.Message) error {
	if err := r.Route(msg.Topic(), msg.Payload()); err != nil {
		return nil
	}
	log.Printf("greenhouse: message received %s - %s", msg.Topic(), string(msg.Payload()))
	return nil
}
