package messages

import (
	"strconv"
	"time"
)

// Reading is one telemetry sample produced by a sensor tick.
type Reading struct {
	Topic     string    `json:"topic"`
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Payload is the wire form of the reading: the decimal value as text.
func (r Reading) Payload() string {
	return strconv.Itoa(r.Value)
}
