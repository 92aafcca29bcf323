package actuator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model"
	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/messages"
)

// Actuator turns a control message on its own topic into an activation
// command for the greenhouse engine.
type Actuator struct {
	Name  string
	Topic string // subscription filter

	translate func(topic string, payload []byte) (string, bool)
}

// Translate returns the activation topic for a control message, or false
// when the message carries no known action.
func (a Actuator) Translate(topic string, payload []byte) (string, bool) {
	return a.translate(topic, payload)
}

func stepAction(segment string) (messages.Action, bool) {
	switch a := messages.Action(segment); a {
	case messages.ActionIncrease, messages.ActionDecrease:
		return a, true
	}
	return "", false
}

// stepActuator handles <name>/<increase|decrease> for a greenhouse-wide measurement.
func stepActuator(name string, m model.Measurement) Actuator {
	return Actuator{
		Name:  name,
		Topic: name + "/#",
		translate: func(topic string, _ []byte) (string, bool) {
			parts := strings.Split(topic, "/")
			if len(parts) < 2 {
				return "", false
			}
			action, ok := stepAction(parts[1])
			if !ok {
				return "", false
			}
			return fmt.Sprintf("activate/%s/%s", m, action), true
		},
	}
}

// Conditioner raises or lowers the air temperature.
func Conditioner() Actuator { return stepActuator("conditioner", model.Temperature) }

// Humidifier raises or lowers the air humidity.
func Humidifier() Actuator { return stepActuator("humidifier", model.Humidity) }

// WaterPump waters a single plant: waterpump/<increase|decrease>/<plantId>.
func WaterPump(plantID int) Actuator {
	id := strconv.Itoa(plantID)
	return Actuator{
		Name:  "waterpump " + id,
		Topic: "waterpump/+/" + id,
		translate: func(topic string, _ []byte) (string, bool) {
			parts := strings.Split(topic, "/")
			if len(parts) != 3 || parts[2] != id {
				return "", false
			}
			action, ok := stepAction(parts[1])
			if !ok {
				return "", false
			}
			return fmt.Sprintf("activate/%s/%s/%s", model.Moisture, action, id), true
		},
	}
}

// LightBulb forces the grow light: payload "true" or "false" on lightbulb.
func LightBulb() Actuator {
	return Actuator{
		Name:  "lightbulb",
		Topic: "lightbulb",
		translate: func(_ string, payload []byte) (string, bool) {
			switch strings.TrimSpace(string(payload)) {
			case "true":
				return "activate/light/" + string(messages.ActionOn), true
			case "false":
				return "activate/light/" + string(messages.ActionOff), true
			}
			return "", false
		},
	}
}

// All returns the conditioner, one pump per plant 1..pumps, the humidifier
// and the light bulb.
func All(pumps int) []Actuator {
	out := []Actuator{Conditioner()}
	for i := 1; i <= pumps; i++ {
		out = append(out, WaterPump(i))
	}
	return append(out, Humidifier(), LightBulb())
}
