package greenhouse

import (
	"sync"
	"testing"
)

func TestSnapshotIsDeepCopy(t *testing.T) {
	env := NewEnvironment(23, 50)
	env.AddPlant(1, 50)
	snap := env.Snapshot()
	snap.Moisture[1] = 0
	snap.Moisture[7] = 1
	if got := env.Snapshot().Moisture; got[1] != 50 || len(got) != 1 {
		t.Fatalf("snapshot aliased state: %v", got)
	}
}

func TestAdjustMoistureUnknownPlant(t *testing.T) {
	env := NewEnvironment(23, 50)
	if env.AdjustMoisture(3, 10) {
		t.Fatal("unknown plant adjusted")
	}
	if len(env.Snapshot().Moisture) != 0 {
		t.Fatal("plant created by adjustment")
	}
}

func TestPlantsSorted(t *testing.T) {
	st := State{Moisture: map[int]int{3: 1, 1: 1, 2: 1}}
	got := st.Plants()
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("Plants() = %v", got)
	}
}

// Concurrent commands and ticks must not lose updates.
func TestConcurrentCommandsAndTicks(t *testing.T) {
	env := NewEnvironment(0, 0)
	env.AddPlant(1, 0)
	sensor := NewSensor(entitiesSpecTemperature(), env, SensorOptions{Rand: calm()})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			env.AdjustTemperature(TemperatureStep)
			env.AdjustMoisture(1, MoistureStep)
		}()
		go func() {
			defer wg.Done()
			sensor.Tick()
		}()
	}
	wg.Wait()
	st := env.Snapshot()
	if st.Temperature != 50*TemperatureStep || st.Moisture[1] != 50*MoistureStep {
		t.Fatalf("lost update: %+v", st)
	}
}
