package entities

// Measurement is the kind of physical quantity a sensor reads.
type Measurement string

const (
	Temperature Measurement = "temperature"
	Humidity    Measurement = "humidity"
	Moisture    Measurement = "moisture"
	Light       Measurement = "light"
)

// Measurements lists every kind in sensor id allocation order.
var Measurements = []Measurement{Temperature, Humidity, Moisture, Light}

// ParseMeasurement returns the Measurement named by s.
func ParseMeasurement(s string) (Measurement, bool) {
	for _, m := range Measurements {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}
