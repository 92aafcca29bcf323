package entities

// SensorSpec identifies a simulated sensor.
type SensorSpec struct {
	ID      int         `json:"id"`
	Type    Measurement `json:"type"`
	PlantID int         `json:"plant_id,omitempty"` // only for moisture sensors
}
