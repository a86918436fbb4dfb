package ingest

import (
	"math"
	"sync"
	"testing"
	"time"

	"speedguard/models"
)

func testReading(vehicleID string, speed float64) *models.Reading {
	now := time.Now().UTC()
	return &models.Reading{
		VehicleID:   vehicleID,
		SpeedKMH:    speed,
		Timestamp:   now,
		VehicleType: models.VehicleUnknown,
		ReceivedAt:  now,
	}
}

func TestTrackerConsecutiveCounting(t *testing.T) {
	tracker := NewVehicleTracker(60, 10)

	s := tracker.Update(testReading("VEH001", 65))
	if s.ConsecutiveViolations != 1 {
		t.Errorf("after 1st violation: consecutive = %d, want 1", s.ConsecutiveViolations)
	}

	s = tracker.Update(testReading("VEH001", 70))
	if s.ConsecutiveViolations != 2 {
		t.Errorf("after 2nd violation: consecutive = %d, want 2", s.ConsecutiveViolations)
	}

	s = tracker.Update(testReading("VEH001", 55))
	if s.ConsecutiveViolations != 0 {
		t.Errorf("compliant reading should reset counter, got %d", s.ConsecutiveViolations)
	}
	if s.LifetimeViolations != 2 {
		t.Errorf("LifetimeViolations = %d, want 2", s.LifetimeViolations)
	}

	s = tracker.Update(testReading("VEH001", 80))
	if s.ConsecutiveViolations != 1 {
		t.Errorf("counter should restart at 1 after reset, got %d", s.ConsecutiveViolations)
	}
	if s.LifetimeViolations != 3 {
		t.Errorf("LifetimeViolations = %d, want 3", s.LifetimeViolations)
	}
}

func TestTrackerSpeedExactlyAtLimit(t *testing.T) {
	tracker := NewVehicleTracker(60, 10)

	s := tracker.Update(testReading("VEH001", 60))
	if s.ConsecutiveViolations != 0 {
		t.Errorf("speed equal to limit is not a violation, got consecutive = %d", s.ConsecutiveViolations)
	}
}

func TestTrackerIncrementalMean(t *testing.T) {
	tracker := NewVehicleTracker(60, 10)

	speeds := []float64{40, 50, 60, 70}
	var s StateSnapshot
	for _, sp := range speeds {
		s = tracker.Update(testReading("VEH001", sp))
	}

	if math.Abs(s.AverageSpeed-55) > 1e-9 {
		t.Errorf("AverageSpeed = %v, want 55", s.AverageSpeed)
	}
	if s.MaxSpeed != 70 {
		t.Errorf("MaxSpeed = %v, want 70", s.MaxSpeed)
	}
	if s.SampleCount != 4 {
		t.Errorf("SampleCount = %d, want 4", s.SampleCount)
	}
}

func TestTrackerHistoryBounded(t *testing.T) {
	tracker := NewVehicleTracker(60, 3)

	var s StateSnapshot
	for i := 1; i <= 5; i++ {
		s = tracker.Update(testReading("VEH001", float64(i*10)))
	}

	if len(s.RecentSpeeds) != 3 {
		t.Fatalf("history length = %d, want 3", len(s.RecentSpeeds))
	}
	// Oldest entries dropped first.
	want := []float64{30, 40, 50}
	for i, sp := range want {
		if s.RecentSpeeds[i] != sp {
			t.Errorf("RecentSpeeds[%d] = %v, want %v", i, s.RecentSpeeds[i], sp)
		}
	}
}

func TestTrackerSnapshotIsolation(t *testing.T) {
	tracker := NewVehicleTracker(60, 10)

	s1 := tracker.Update(testReading("VEH001", 40))
	tracker.Update(testReading("VEH001", 80))

	if len(s1.RecentSpeeds) != 1 || s1.RecentSpeeds[0] != 40 {
		t.Errorf("earlier snapshot mutated by later update: %v", s1.RecentSpeeds)
	}

	s1.RecentSpeeds[0] = 999
	s3 := tracker.Update(testReading("VEH001", 50))
	if s3.RecentSpeeds[0] == 999 {
		t.Error("writing a snapshot's history must not reach tracked state")
	}
}

func TestTrackerVehiclesIndependent(t *testing.T) {
	tracker := NewVehicleTracker(60, 10)

	tracker.Update(testReading("VEH001", 80))
	tracker.Update(testReading("VEH001", 80))
	s := tracker.Update(testReading("VEH002", 80))

	if s.ConsecutiveViolations != 1 {
		t.Errorf("VEH002 consecutive = %d, want 1", s.ConsecutiveViolations)
	}
	if tracker.VehicleCount() != 2 {
		t.Errorf("VehicleCount = %d, want 2", tracker.VehicleCount())
	}
}

func TestTrackerConcurrentSameVehicle(t *testing.T) {
	tracker := NewVehicleTracker(60, 10)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Update(testReading("VEH001", 80))
		}()
	}
	wg.Wait()

	s := tracker.Update(testReading("VEH001", 80))
	if s.ConsecutiveViolations != n+1 {
		t.Errorf("consecutive = %d, want %d (no lost increments)", s.ConsecutiveViolations, n+1)
	}
	if s.SampleCount != n+1 {
		t.Errorf("SampleCount = %d, want %d", s.SampleCount, n+1)
	}
}

func TestTrackerEvictStale(t *testing.T) {
	tracker := NewVehicleTracker(60, 10)

	old := testReading("VEH001", 50)
	old.ReceivedAt = time.Now().Add(-2 * time.Hour)
	tracker.Update(old)
	tracker.Update(testReading("VEH002", 50))

	evicted := tracker.EvictStale(time.Hour)
	if evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	if tracker.VehicleCount() != 1 {
		t.Errorf("VehicleCount = %d, want 1", tracker.VehicleCount())
	}

	// Evicted vehicle starts from scratch.
	s := tracker.Update(testReading("VEH001", 80))
	if s.SampleCount != 1 {
		t.Errorf("re-created vehicle SampleCount = %d, want 1", s.SampleCount)
	}
}

func TestTrackerUpdateRefusesEvictedState(t *testing.T) {
	tracker := NewVehicleTracker(60, 10)

	old := testReading("VEH001", 80)
	old.ReceivedAt = time.Now().Add(-2 * time.Hour)
	tracker.Update(old)

	// A concurrent update can fetch the state pointer, lose the race to the
	// sweep, and only then take the state lock. The orphaned record must
	// reject the write so the update lands on a fresh entry instead.
	orphan := tracker.lookupOrCreate("VEH001")
	tracker.EvictStale(time.Hour)

	if _, ok := tracker.apply(orphan, testReading("VEH001", 90)); ok {
		t.Fatal("apply must refuse a state the sweep evicted")
	}

	s := tracker.Update(testReading("VEH001", 90))
	if s.SampleCount != 1 {
		t.Errorf("SampleCount = %d, want 1 (update must land on a fresh state)", s.SampleCount)
	}

	orphan.mu.Lock()
	defer orphan.mu.Unlock()
	if orphan.sampleCount != 1 {
		t.Errorf("orphan sampleCount = %d, want the pre-eviction 1", orphan.sampleCount)
	}
}
