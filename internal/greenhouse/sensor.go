package greenhouse

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/messages"
)

// ====== Tunables ======
const (
	// driftOdds: a tick perturbs the state with probability 1/driftOdds.
	driftOdds = 10

	// lightNoiseOdds: the light curve is perturbed with probability 1/lightNoiseOdds.
	lightNoiseOdds = 5
	lightNoiseMax  = 10

	LightMin = 0
	LightMax = 255

	// DefaultMoisture is the initial soil moisture of every plant.
	DefaultMoisture = 50
)

// Rand is the source of randomness used by sensor ticks.
type Rand interface {
	Intn(n int) int
}

// lockedRand makes a *rand.Rand safe for concurrent sensors.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// NewRand returns a goroutine-safe Rand seeded with seed.
func NewRand(seed int64) Rand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// SensorCounts is the number of sensors configured per measurement.
type SensorCounts map[entities.Measurement]int

// Total returns the number of sensors across all measurements.
func (c SensorCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Sensor is a simulated sensor. The variant is selected by Type; PlantID is
// only meaningful for moisture sensors.
type Sensor struct {
	entities.SensorSpec

	env   *Environment
	rng   Rand
	clock func() time.Time
}

// SensorOptions carries the shared dependencies of the sensor set.
type SensorOptions struct {
	InitialMoisture int
	Rand            Rand
	Clock           func() time.Time
}

func (o SensorOptions) withDefaults() SensorOptions {
	if o.Rand == nil {
		o.Rand = NewRand(time.Now().UnixNano())
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

func NewSensor(spec entities.SensorSpec, env *Environment, opts SensorOptions) *Sensor {
	opts = opts.withDefaults()
	return &Sensor{SensorSpec: spec, env: env, rng: opts.Rand, clock: opts.Clock}
}

// BuildSensors creates the sensor set from the configured counts. Ids come
// from one counter starting at 1 in the order temperature, humidity,
// moisture, light; moisture sensors get plant ids 1..n and register their
// plant in env.
func BuildSensors(counts SensorCounts, env *Environment, opts SensorOptions) ([]*Sensor, error) {
	for m, n := range counts {
		if n < 0 {
			return nil, fmt.Errorf("negative sensor count %d for %s", n, m)
		}
	}
	opts = opts.withDefaults()
	sensors := make([]*Sensor, 0, counts.Total())
	id := 1
	for _, m := range entities.Measurements {
		n := counts[m]
		for i := 1; i <= n; i++ {
			spec := entities.SensorSpec{ID: id, Type: m}
			if m == entities.Moisture {
				spec.PlantID = i
				env.AddPlant(i, opts.InitialMoisture)
			}
			sensors = append(sensors, NewSensor(spec, env, opts))
			id++
		}
	}
	return sensors, nil
}

// Topic returns the telemetry topic of the sensor.
func (s *Sensor) Topic() string {
	if s.Type == entities.Moisture {
		return fmt.Sprintf("%s/%d/%d", s.Type, s.ID, s.PlantID)
	}
	return fmt.Sprintf("%s/%d", s.Type, s.ID)
}

// Tick produces the current reading, possibly perturbing the environment
// first. Perturbation and read happen in one critical section.
func (s *Sensor) Tick() messages.Reading {
	var value int
	now := s.clock()
	s.env.update(func(st *State) {
		switch s.Type {
		case entities.Temperature:
			st.Temperature += s.drift()
			value = st.Temperature + s.noise()
		case entities.Humidity:
			st.Humidity += s.drift()
			value = st.Humidity + s.noise()
		case entities.Moisture:
			if _, ok := st.Moisture[s.PlantID]; ok {
				st.Moisture[s.PlantID] += s.drift()
			}
			value = st.Moisture[s.PlantID]
		case entities.Light:
			if st.LightForcedOn {
				st.Light = LightMax
			} else {
				st.Light = lightValue(now, s.rng)
			}
			value = st.Light
		}
	})
	return messages.Reading{Topic: s.Topic(), Value: value, Timestamp: now}
}

// drift returns a value in {-1,0,1} with probability 1/driftOdds, else 0.
func (s *Sensor) drift() int {
	if s.rng.Intn(driftOdds) == 0 {
		return s.rng.Intn(3) - 1
	}
	return 0
}

func (s *Sensor) noise() int {
	return s.rng.Intn(3) - 1
}

// LightLevel is the diurnal light curve: the minute of day mapped onto a
// full sine period shifted by 3π/2, rescaled from [-1,1] to [0,255]. It is
// 0 at midnight and 255 at noon.
func LightLevel(t time.Time) float64 {
	minute := t.Hour()*60 + t.Minute()
	degrees := float64(minute) * 360 / 1440
	sin := math.Sin(degrees*math.Pi/180 + 3*math.Pi/2)
	return (sin + 1) / 2 * LightMax
}

func lightValue(t time.Time, rng Rand) int {
	v := LightLevel(t)
	if rng.Intn(lightNoiseOdds) == 0 {
		v += float64(rng.Intn(2*lightNoiseMax+1) - lightNoiseMax)
	}
	return clampLight(int(math.Round(v)))
}

func clampLight(v int) int {
	if v < LightMin {
		return LightMin
	}
	if v > LightMax {
		return LightMax
	}
	return v
}
