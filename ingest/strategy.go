package ingest

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"speedguard/models"
)

// Suppressor is the per-vehicle alert-rate gate. One entry per vehicle,
// updated only when an alert is actually created, so a sustained violation
// produces one alert per window instead of one per reading.
//
// Suppression is severity-blind: a LOW alert inside the window holds back a
// later CRITICAL one. That matches the original system's behavior and is
// kept intentionally.
type Suppressor struct {
	window time.Duration

	mu        sync.Mutex
	lastAlert map[string]time.Time
	now       func() time.Time
}

func NewSuppressor(window time.Duration) *Suppressor {
	return &Suppressor{
		window:    window,
		lastAlert: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Allow reports whether a new alert may be created for the vehicle, and
// records the grant. Each vehicle's window resets independently.
func (s *Suppressor) Allow(vehicleID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if last, ok := s.lastAlert[vehicleID]; ok && now.Sub(last) < s.window {
		return false
	}
	s.lastAlert[vehicleID] = now
	return true
}

// EvictStale drops suppression entries older than maxAge so the map does not
// grow with every vehicle ever seen.
func (s *Suppressor) EvictStale(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	evicted := 0
	for id, last := range s.lastAlert {
		if last.Before(cutoff) {
			delete(s.lastAlert, id)
			evicted++
		}
	}
	return evicted
}

// StrategyEngine maps a classified violation to an alert. The strategy set
// is closed and picked by priority: critical severity first, then streak,
// then simple.
type StrategyEngine struct {
	suppressor *Suppressor
	newID      func() string
	now        func() time.Time
}

func NewStrategyEngine(suppressionWindow time.Duration) *StrategyEngine {
	return &StrategyEngine{
		suppressor: NewSuppressor(suppressionWindow),
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// Suppressor exposes the engine's gate for eviction sweeps.
func (e *StrategyEngine) Suppressor() *Suppressor { return e.suppressor }

// Evaluate turns a violation into an alert, or nil when the vehicle is
// inside its suppression window.
func (e *StrategyEngine) Evaluate(v *models.Violation) *models.Alert {
	if !e.suppressor.Allow(v.VehicleID) {
		return nil
	}

	alert := &models.Alert{
		AlertID:     e.newID(),
		Violation:   *v,
		GeneratedAt: e.now().UTC(),
	}

	switch {
	case v.Severity == models.SeverityCritical:
		applyCriticalStrategy(alert, v)
	case v.Consecutive:
		applyConsecutiveStrategy(alert, v)
	default:
		applySimpleStrategy(alert, v)
	}

	return alert
}

func applyCriticalStrategy(a *models.Alert, v *models.Violation) {
	a.Type = models.AlertTypeCritical
	a.Priority = models.PriorityImmediate
	a.RecommendedAction = "Dispatch enforcement unit immediately"
	a.Escalate = true
	a.Description = fmt.Sprintf(
		"CRITICAL: vehicle %s at %.1f km/h in a %.0f km/h zone (%.2f%% over limit)",
		v.VehicleID, v.SpeedKMH, v.SpeedLimit, v.ExceedPercentage,
	)
}

func applyConsecutiveStrategy(a *models.Alert, v *models.Violation) {
	a.Type = models.AlertTypeSimple
	a.Priority = models.PriorityHigh
	a.RecommendedAction = "Flag vehicle for sustained speeding review"
	a.Escalate = true
	a.Description = fmt.Sprintf(
		"vehicle %s exceeded the limit %d times in a row, now at %.1f km/h (limit %.0f)",
		v.VehicleID, v.ConsecutiveCount, v.SpeedKMH, v.SpeedLimit,
	)
}

func applySimpleStrategy(a *models.Alert, v *models.Violation) {
	a.Type = models.AlertTypeSimple
	a.Priority = priorityForSeverity(v.Severity)
	a.RecommendedAction = "Log and monitor"
	a.Escalate = false
	a.Description = fmt.Sprintf(
		"vehicle %s at %.1f km/h exceeds the %.0f km/h limit by %.1f km/h",
		v.VehicleID, v.SpeedKMH, v.SpeedLimit, v.ExceedAmount,
	)
}

func priorityForSeverity(s models.Severity) string {
	switch s {
	case models.SeverityHigh:
		return models.PriorityHigh
	case models.SeverityMedium:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}
