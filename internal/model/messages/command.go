package messages

import "github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"

// Action is the verb of an activation command.
type Action string

const (
	ActionIncrease Action = "increase"
	ActionDecrease Action = "decrease"
	ActionOn       Action = "on"
	ActionOff      Action = "off"
)

// Command is a decoded activation message. It is applied immediately and
// never stored.
type Command struct {
	Measurement entities.Measurement `json:"measurement"`
	Action      Action               `json:"action"`
	PlantID     int                  `json:"plant_id,omitempty"`
}
