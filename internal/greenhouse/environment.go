package greenhouse

import (
	"sort"
	"sync"
)

// State is a copy of the simulated environment at one instant.
type State struct {
	Temperature   int         `json:"temperature"`
	Humidity      int         `json:"humidity"`
	Light         int         `json:"light"`
	Moisture      map[int]int `json:"moisture"` // plant id -> soil moisture
	LightForcedOn bool        `json:"light_forced_on"`
}

// Plants returns the plant ids present in the state, ascending.
func (s State) Plants() []int {
	ids := make([]int, 0, len(s.Moisture))
	for id := range s.Moisture {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Environment is the single shared mutable state of the greenhouse.
// Commands and sensor ticks both go through mu, so a command delta and a
// stochastic perturbation can never interleave into a lost update.
// Temperature, humidity and moisture are deliberately left unbounded.
type Environment struct {
	mu sync.Mutex
	st State
}

func NewEnvironment(temperature, humidity int) *Environment {
	return &Environment{st: State{
		Temperature: temperature,
		Humidity:    humidity,
		Moisture:    make(map[int]int),
	}}
}

// AddPlant registers the soil moisture of a plant. Only called while the
// sensor set is built; commands can never create plants.
func (e *Environment) AddPlant(plantID, moisture int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.st.Moisture[plantID] = moisture
}

func (e *Environment) AdjustTemperature(delta int) {
	e.update(func(st *State) { st.Temperature += delta })
}

func (e *Environment) AdjustHumidity(delta int) {
	e.update(func(st *State) { st.Humidity += delta })
}

// AdjustMoisture changes the moisture of a known plant. It reports false and
// leaves the state untouched when the plant is not configured.
func (e *Environment) AdjustMoisture(plantID, delta int) bool {
	ok := false
	e.update(func(st *State) {
		if _, ok = st.Moisture[plantID]; ok {
			st.Moisture[plantID] += delta
		}
	})
	return ok
}

func (e *Environment) SetLightForced(on bool) {
	e.update(func(st *State) { st.LightForcedOn = on })
}

// Snapshot returns a deep copy of the current state.
func (e *Environment) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.st
	out.Moisture = make(map[int]int, len(e.st.Moisture))
	for k, v := range e.st.Moisture {
		out.Moisture[k] = v
	}
	return out
}

// update runs fn as one critical section.
func (e *Environment) update(fn func(st *State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.st)
}
