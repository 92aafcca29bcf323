package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
)

// ErrUnknownMeasurement: the file has no entry for the requested measurement.
var ErrUnknownMeasurement = errors.New("unknown measurement")

// Document is the layout of the configuration file. YAML is a superset of
// JSON, so either format is accepted.
type Document struct {
	Sensors    map[string]int                `yaml:"sensors" json:"sensors"`
	Thresholds map[string]entities.Threshold `yaml:"thresholds" json:"thresholds"`
}

// FileStore reads the configuration file on every lookup, so edits apply
// without a restart.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// Load parses the whole file.
func (s *FileStore) Load() (*Document, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", s.path, err)
	}
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", s.path, err)
	}
	return &doc, nil
}

// SensorCount returns the number of sensors configured for measurement.
func (s *FileStore) SensorCount(measurement string) (int, error) {
	doc, err := s.Load()
	if err != nil {
		return 0, err
	}
	n, ok := doc.Sensors[measurement]
	if !ok {
		return 0, fmt.Errorf("%w %s", ErrUnknownMeasurement, measurement)
	}
	return n, nil
}

// Thresholds returns the acceptable range configured for measurement.
func (s *FileStore) Thresholds(measurement string) (entities.Threshold, error) {
	doc, err := s.Load()
	if err != nil {
		return entities.Threshold{}, err
	}
	t, ok := doc.Thresholds[measurement]
	if !ok {
		return entities.Threshold{}, fmt.Errorf("%w %s", ErrUnknownMeasurement, measurement)
	}
	return t, nil
}
