package entities

// Threshold bounds the acceptable range of a measurement.
type Threshold struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}
