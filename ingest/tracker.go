package ingest

import (
	"context"
	"log"
	"sync"
	"time"

	"speedguard/metrics"
	"speedguard/models"
)

// StateSnapshot is an immutable copy of a vehicle's state taken right after
// an update. The classifier works from snapshots only; it never touches the
// live state.
type StateSnapshot struct {
	VehicleID             string
	LastSeen              time.Time
	ConsecutiveViolations int
	LifetimeViolations    int
	AverageSpeed          float64
	MaxSpeed              float64
	RecentSpeeds          []float64
	SampleCount           int64
}

// vehicleState is mutated only under its own mutex, so updates for one
// vehicle apply strictly in acceptance order while unrelated vehicles
// proceed in parallel. evicted marks a state removed from the table; an
// update that fetched the pointer before the sweep deleted it must not
// write into the orphan.
type vehicleState struct {
	mu                    sync.Mutex
	evicted               bool
	lastSeen              time.Time
	consecutiveViolations int
	lifetimeViolations    int
	averageSpeed          float64
	maxSpeed              float64
	recentSpeeds          []float64
	sampleCount           int64
}

// VehicleTracker owns the per-vehicle state table. Nothing else writes it.
type VehicleTracker struct {
	speedLimit  float64
	historySize int

	mu       sync.RWMutex
	vehicles map[string]*vehicleState
}

func NewVehicleTracker(speedLimit float64, historySize int) *VehicleTracker {
	return &VehicleTracker{
		speedLimit:  speedLimit,
		historySize: historySize,
		vehicles:    make(map[string]*vehicleState),
	}
}

// Update applies one reading to its vehicle's state and returns a snapshot
// of the result. The per-vehicle lock covers the whole read-modify-write, so
// two readings for the same vehicle can never both increment from the same
// stale counter.
func (t *VehicleTracker) Update(r *models.Reading) StateSnapshot {
	for {
		state := t.lookupOrCreate(r.VehicleID)
		if snap, ok := t.apply(state, r); ok {
			return snap
		}
		// The eviction sweep removed the entry between lookup and lock;
		// retry against a fresh one.
	}
}

// apply mutates one state under its lock. It refuses states the sweep has
// already evicted.
func (t *VehicleTracker) apply(state *vehicleState, r *models.Reading) (StateSnapshot, bool) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.evicted {
		return StateSnapshot{}, false
	}

	state.lastSeen = r.ReceivedAt
	state.sampleCount++
	// Incremental mean, not recomputed from history.
	state.averageSpeed += (r.SpeedKMH - state.averageSpeed) / float64(state.sampleCount)
	if r.SpeedKMH > state.maxSpeed {
		state.maxSpeed = r.SpeedKMH
	}

	state.recentSpeeds = append(state.recentSpeeds, r.SpeedKMH)
	if len(state.recentSpeeds) > t.historySize {
		state.recentSpeeds = state.recentSpeeds[1:]
	}

	if r.SpeedKMH > t.speedLimit {
		state.consecutiveViolations++
		state.lifetimeViolations++
	} else {
		state.consecutiveViolations = 0
	}

	return t.snapshot(r.VehicleID, state), true
}

func (t *VehicleTracker) lookupOrCreate(vehicleID string) *vehicleState {
	t.mu.RLock()
	state, ok := t.vehicles[vehicleID]
	t.mu.RUnlock()
	if ok {
		return state
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if state, ok = t.vehicles[vehicleID]; ok {
		return state
	}
	state = &vehicleState{}
	t.vehicles[vehicleID] = state
	return state
}

// snapshot copies the state; caller must hold state.mu.
func (t *VehicleTracker) snapshot(vehicleID string, state *vehicleState) StateSnapshot {
	speeds := make([]float64, len(state.recentSpeeds))
	copy(speeds, state.recentSpeeds)

	return StateSnapshot{
		VehicleID:             vehicleID,
		LastSeen:              state.lastSeen,
		ConsecutiveViolations: state.consecutiveViolations,
		LifetimeViolations:    state.lifetimeViolations,
		AverageSpeed:          state.averageSpeed,
		MaxSpeed:              state.maxSpeed,
		RecentSpeeds:          speeds,
		SampleCount:           state.sampleCount,
	}
}

// VehicleCount reports how many vehicles currently have tracked state.
func (t *VehicleTracker) VehicleCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.vehicles)
}

// EvictStale discards states not updated within maxAge and returns how many
// were dropped.
func (t *VehicleTracker) EvictStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for id, state := range t.vehicles {
		state.mu.Lock()
		if state.lastSeen.Before(cutoff) {
			state.evicted = true
			delete(t.vehicles, id)
			evicted++
		}
		state.mu.Unlock()
	}
	return evicted
}

// RunEviction sweeps stale states on a fixed cadence until the context ends.
func (t *VehicleTracker) RunEviction(ctx context.Context, every, maxAge time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := t.EvictStale(maxAge); n > 0 {
				metrics.VehiclesEvicted.Add(float64(n))
				log.Printf("evicted %d stale vehicle states (inactive > %s)", n, maxAge)
			}
		case <-ctx.Done():
			return
		}
	}
}
