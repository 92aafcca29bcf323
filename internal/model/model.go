package model

import "github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"

// Aliases exposing the common types to the services.

type (
	Measurement = entities.Measurement
	Plant       = entities.Plant
)

const (
	Temperature = entities.Temperature
	Humidity    = entities.Humidity
	Moisture    = entities.Moisture
	Light       = entities.Light
)
