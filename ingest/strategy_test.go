package ingest

import (
	"fmt"
	"testing"
	"time"

	"speedguard/models"
)

func testViolation(vehicleID string, severity models.Severity, consecutive bool, count int) *models.Violation {
	return &models.Violation{
		VehicleID:        vehicleID,
		SpeedKMH:         80,
		SpeedLimit:       60,
		ExceedAmount:     20,
		ExceedPercentage: 33.33,
		Severity:         severity,
		Consecutive:      consecutive,
		ConsecutiveCount: count,
		Timestamp:        time.Now().UTC(),
		DetectedAt:       time.Now().UTC(),
		VehicleType:      models.VehicleCar,
	}
}

func newTestEngine(window time.Duration) (*StrategyEngine, *time.Time) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewStrategyEngine(window)
	e.now = func() time.Time { return clock }
	e.suppressor.now = e.now
	ids := 0
	e.newID = func() string {
		ids++
		return fmt.Sprintf("alert-%d", ids)
	}
	return e, &clock
}

func TestStrategySelection(t *testing.T) {
	t.Run("critical severity wins", func(t *testing.T) {
		e, _ := newTestEngine(30 * time.Second)
		// Critical and consecutive at once: critical strategy takes priority.
		a := e.Evaluate(testViolation("VEH001", models.SeverityCritical, true, 5))
		if a == nil {
			t.Fatal("expected an alert")
		}
		if a.Type != models.AlertTypeCritical {
			t.Errorf("Type = %q, want CRITICAL", a.Type)
		}
		if a.Priority != models.PriorityImmediate {
			t.Errorf("Priority = %q, want IMMEDIATE", a.Priority)
		}
		if !a.Escalate {
			t.Error("critical alerts escalate")
		}
	})

	t.Run("consecutive streak", func(t *testing.T) {
		e, _ := newTestEngine(30 * time.Second)
		a := e.Evaluate(testViolation("VEH001", models.SeverityMedium, true, 3))
		if a == nil {
			t.Fatal("expected an alert")
		}
		if a.Type != models.AlertTypeSimple {
			t.Errorf("Type = %q, want SIMPLE", a.Type)
		}
		if a.Priority != models.PriorityHigh {
			t.Errorf("Priority = %q, want HIGH", a.Priority)
		}
		if !a.Escalate {
			t.Error("streak alerts escalate")
		}
	})

	t.Run("simple by severity", func(t *testing.T) {
		tests := []struct {
			severity models.Severity
			priority string
		}{
			{models.SeverityLow, models.PriorityLow},
			{models.SeverityMedium, models.PriorityMedium},
			{models.SeverityHigh, models.PriorityHigh},
		}
		for _, tt := range tests {
			e, _ := newTestEngine(30 * time.Second)
			a := e.Evaluate(testViolation("VEH001", tt.severity, false, 1))
			if a == nil {
				t.Fatalf("%s: expected an alert", tt.severity)
			}
			if a.Type != models.AlertTypeSimple {
				t.Errorf("%s: Type = %q, want SIMPLE", tt.severity, a.Type)
			}
			if a.Priority != tt.priority {
				t.Errorf("%s: Priority = %q, want %q", tt.severity, a.Priority, tt.priority)
			}
			if a.Escalate {
				t.Errorf("%s: simple alerts do not escalate", tt.severity)
			}
		}
	})
}

func TestSuppressionWindow(t *testing.T) {
	e, clock := newTestEngine(30 * time.Second)

	if a := e.Evaluate(testViolation("VEH001", models.SeverityLow, false, 1)); a == nil {
		t.Fatal("first alert should pass")
	}
	if a := e.Evaluate(testViolation("VEH001", models.SeverityLow, false, 1)); a != nil {
		t.Error("second alert inside the window should be suppressed")
	}

	*clock = clock.Add(29 * time.Second)
	if a := e.Evaluate(testViolation("VEH001", models.SeverityLow, false, 1)); a != nil {
		t.Error("alert at 29s should still be suppressed")
	}

	*clock = clock.Add(time.Second)
	if a := e.Evaluate(testViolation("VEH001", models.SeverityLow, false, 1)); a == nil {
		t.Error("alert at exactly the window edge should pass")
	}
}

func TestSuppressionIsSeverityBlind(t *testing.T) {
	e, _ := newTestEngine(30 * time.Second)

	if a := e.Evaluate(testViolation("VEH001", models.SeverityLow, false, 1)); a == nil {
		t.Fatal("LOW alert should pass")
	}
	// A CRITICAL violation right after is still held back by the LOW alert.
	if a := e.Evaluate(testViolation("VEH001", models.SeverityCritical, false, 1)); a != nil {
		t.Error("CRITICAL inside the window is suppressed like any other")
	}
}

func TestSuppressionPerVehicle(t *testing.T) {
	e, _ := newTestEngine(30 * time.Second)

	if a := e.Evaluate(testViolation("VEH001", models.SeverityLow, false, 1)); a == nil {
		t.Fatal("VEH001 should pass")
	}
	if a := e.Evaluate(testViolation("VEH002", models.SeverityLow, false, 1)); a == nil {
		t.Error("VEH002 has its own window and should pass")
	}
}

func TestSuppressionRecordsOnlyGrants(t *testing.T) {
	e, clock := newTestEngine(30 * time.Second)

	e.Evaluate(testViolation("VEH001", models.SeverityLow, false, 1))

	// Suppressed attempts must not slide the window forward.
	*clock = clock.Add(20 * time.Second)
	e.Evaluate(testViolation("VEH001", models.SeverityLow, false, 1))
	*clock = clock.Add(10 * time.Second)
	if a := e.Evaluate(testViolation("VEH001", models.SeverityLow, false, 1)); a == nil {
		t.Error("window counts from the last granted alert, not the last attempt")
	}
}

func TestSuppressorEvictStale(t *testing.T) {
	s := NewSuppressor(30 * time.Second)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.Allow("VEH001")
	clock = clock.Add(2 * time.Hour)
	s.Allow("VEH002")

	if evicted := s.EvictStale(time.Hour); evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
}

func TestEvaluateAlertShape(t *testing.T) {
	e, _ := newTestEngine(30 * time.Second)

	v := testViolation("VEH001", models.SeverityHigh, false, 1)
	a := e.Evaluate(v)
	if a == nil {
		t.Fatal("expected an alert")
	}
	if a.AlertID == "" {
		t.Error("AlertID should be set")
	}
	if a.Violation.VehicleID != "VEH001" {
		t.Errorf("embedded violation vehicle = %q", a.Violation.VehicleID)
	}
	if a.GeneratedAt.IsZero() {
		t.Error("GeneratedAt should be set")
	}
	if a.Description == "" || a.RecommendedAction == "" {
		t.Error("Description and RecommendedAction should be populated")
	}
}
