package greenhouse

import (
	"testing"
	"time"

	"github.com/LeonardoBeccarini/greenhouse_sim/internal/model/entities"
)

func TestBuildSensorsAllocatesIdsInMeasurementOrder(t *testing.T) {
	env := NewEnvironment(23, 50)
	counts := SensorCounts{
		entities.Temperature: 1,
		entities.Humidity:    1,
		entities.Moisture:    2,
		entities.Light:       1,
	}
	sensors, err := BuildSensors(counts, env, SensorOptions{InitialMoisture: 50, Rand: calm()})
	if err != nil {
		t.Fatalf("BuildSensors: %v", err)
	}
	want := []string{"temperature/1", "humidity/2", "moisture/3/1", "moisture/4/2", "light/5"}
	if len(sensors) != len(want) {
		t.Fatalf("got %d sensors, want %d", len(sensors), len(want))
	}
	for i, s := range sensors {
		if s.Topic() != want[i] {
			t.Fatalf("sensor %d topic = %q, want %q", i, s.Topic(), want[i])
		}
	}
	st := env.Snapshot()
	if len(st.Moisture) != 2 || st.Moisture[1] != 50 || st.Moisture[2] != 50 {
		t.Fatalf("moisture entries = %v", st.Moisture)
	}
}

func TestBuildSensorsRejectsNegativeCount(t *testing.T) {
	tests := []SensorCounts{
		{entities.Humidity: -1},
		{entities.Temperature: 2, entities.Humidity: -3},
		{entities.Moisture: 1, entities.Light: -10},
	}
	for _, counts := range tests {
		_, err := BuildSensors(counts, NewEnvironment(0, 0), SensorOptions{})
		if err == nil {
			t.Fatalf("BuildSensors(%v): expected error for negative count", counts)
		}
	}
}

func TestBuildSensorsEmptyLayout(t *testing.T) {
	sensors, err := BuildSensors(SensorCounts{}, NewEnvironment(0, 0), SensorOptions{})
	if err != nil || len(sensors) != 0 {
		t.Fatalf("got %d sensors, err %v", len(sensors), err)
	}
}

func TestTickDriftAndNoise(t *testing.T) {
	tests := []struct {
		name      string
		kind      entities.Measurement
		draws     []int
		wantValue int
		wantState int
	}{
		{"no drift, no noise", entities.Temperature, []int{1, 1}, 23, 23},
		{"no drift, noise down", entities.Temperature, []int{1, 0}, 22, 23},
		{"drift up, noise up", entities.Temperature, []int{0, 2, 2}, 25, 24},
		{"humidity drift down", entities.Humidity, []int{0, 0, 1}, 49, 49},
		{"moisture drift down is read verbatim", entities.Moisture, []int{0, 0}, 49, 49},
		{"moisture without drift", entities.Moisture, []int{5}, 50, 50},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := NewEnvironment(23, 50)
			env.AddPlant(1, 50)
			spec := entities.SensorSpec{ID: 1, Type: tc.kind}
			if tc.kind == entities.Moisture {
				spec.PlantID = 1
			}
			s := NewSensor(spec, env, SensorOptions{Rand: &seqRand{vals: tc.draws, fallback: 1}})
			r := s.Tick()
			if r.Value != tc.wantValue {
				t.Fatalf("value = %d, want %d", r.Value, tc.wantValue)
			}
			st := env.Snapshot()
			var got int
			switch tc.kind {
			case entities.Temperature:
				got = st.Temperature
			case entities.Humidity:
				got = st.Humidity
			case entities.Moisture:
				got = st.Moisture[1]
			}
			if got != tc.wantState {
				t.Fatalf("state = %d, want %d", got, tc.wantState)
			}
		})
	}
}

func TestLightLevelCurve(t *testing.T) {
	tests := []struct {
		h, m int
		want int
	}{
		{0, 0, 0},
		{12, 0, 255},
	}
	for _, tc := range tests {
		got := lightValue(fixedClock(tc.h, tc.m)(), calm())
		if got != tc.want {
			t.Fatalf("light at %02d:%02d = %d, want %d", tc.h, tc.m, got, tc.want)
		}
	}
	// dawn and dusk sit at mid scale
	for _, h := range []int{6, 18} {
		if got := lightValue(fixedClock(h, 0)(), calm()); got < 127 || got > 128 {
			t.Fatalf("light at %02d:00 = %d, want about 127.5", h, got)
		}
	}
}

func TestLightNoiseIsClamped(t *testing.T) {
	// noon plus the maximum offset stays at 255
	if got := lightValue(fixedClock(12, 0)(), &seqRand{vals: []int{0, 20}}); got != LightMax {
		t.Fatalf("noon + 10 = %d", got)
	}
	// midnight minus the maximum offset stays at 0
	if got := lightValue(fixedClock(0, 0)(), &seqRand{vals: []int{0, 0}}); got != LightMin {
		t.Fatalf("midnight - 10 = %d", got)
	}
	if got := lightValue(fixedClock(12, 0)(), &seqRand{vals: []int{0, 0}}); got != 245 {
		t.Fatalf("noon - 10 = %d", got)
	}
}

func TestLightAlwaysWithinBounds(t *testing.T) {
	rng := NewRand(42)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for minute := 0; minute < 1440; minute++ {
		for i := 0; i < 5; i++ {
			v := lightValue(base.Add(time.Duration(minute)*time.Minute), rng)
			if v < LightMin || v > LightMax {
				t.Fatalf("minute %d: light %d out of range", minute, v)
			}
		}
	}
}

func TestLightTickWritesBackAndHonoursForce(t *testing.T) {
	env := NewEnvironment(23, 50)
	s := NewSensor(entities.SensorSpec{ID: 7, Type: entities.Light}, env, SensorOptions{Rand: calm(), Clock: fixedClock(0, 0)})

	if r := s.Tick(); r.Value != 0 || env.Snapshot().Light != 0 {
		t.Fatalf("midnight reading = %d, state %d", r.Value, env.Snapshot().Light)
	}
	env.SetLightForced(true)
	if r := s.Tick(); r.Value != LightMax || env.Snapshot().Light != LightMax {
		t.Fatalf("forced reading = %d, state %d", r.Value, env.Snapshot().Light)
	}
	env.SetLightForced(false)
	if r := s.Tick(); r.Value != 0 {
		t.Fatalf("released reading = %d", r.Value)
	}
	if r := s.Tick(); r.Topic != "light/7" || r.Payload() != "0" {
		t.Fatalf("reading = %+v", r)
	}
}
