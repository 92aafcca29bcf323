package persistence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model"
	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
)

// ErrBadReading: the topic or the payload is not a telemetry reading.
var ErrBadReading = errors.New("bad telemetry reading")

// Sample is one decoded telemetry reading.
type Sample struct {
	Measurement model.Measurement `json:"measurement"`
	SensorID    int               `json:"sensor_id"`
	PlantID     int               `json:"plant_id"`
	Value       int               `json:"value"`
	Time        time.Time         `json:"time"`
}

// ParseSample decodes <measurement>/<sensorId> or
// moisture/<sensorId>/<plantId> and a decimal payload. Greenhouse-wide
// sensors are attributed to the ambient plant.
func ParseSample(topic string, payload []byte, at time.Time) (Sample, error) {
	parts := strings.Split(strings.Trim(topic, "/"), "/")
	if len(parts) < 2 {
		return Sample{}, fmt.Errorf("%w: topic %q", ErrBadReading, topic)
	}
	m, ok := entities.ParseMeasurement(parts[0])
	if !ok {
		return Sample{}, fmt.Errorf("%w: measurement in %q", ErrBadReading, topic)
	}
	sensorID, err := strconv.Atoi(parts[1])
	if err != nil {
		return Sample{}, fmt.Errorf("%w: sensor id in %q", ErrBadReading, topic)
	}

	s := Sample{Measurement: m, SensorID: sensorID, PlantID: entities.AmbientPlantID, Time: at}
	if m == model.Moisture {
		if len(parts) < 3 {
			return Sample{}, fmt.Errorf("%w: missing plant id in %q", ErrBadReading, topic)
		}
		if s.PlantID, err = strconv.Atoi(parts[2]); err != nil {
			return Sample{}, fmt.Errorf("%w: plant id in %q", ErrBadReading, topic)
		}
	}

	if s.Value, err = strconv.Atoi(strings.TrimSpace(string(payload))); err != nil {
		return Sample{}, fmt.Errorf("%w: payload %q on %s", ErrBadReading, payload, topic)
	}
	return s, nil
}
