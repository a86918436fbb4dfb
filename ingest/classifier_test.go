package ingest

import (
	"testing"
	"time"

	"speedguard/models"
)

func classify(t *testing.T, speed float64, consecutive int) *models.Violation {
	t.Helper()
	c := NewClassifier(60, 3)
	r := testReading("VEH001", speed)
	return c.Classify(r, StateSnapshot{
		VehicleID:             "VEH001",
		ConsecutiveViolations: consecutive,
	})
}

func TestClassifyNoViolation(t *testing.T) {
	if v := classify(t, 55, 0); v != nil {
		t.Errorf("below limit should not classify, got %+v", v)
	}
	if v := classify(t, 60, 0); v != nil {
		t.Errorf("exactly at limit should not classify, got %+v", v)
	}
}

func TestClassifySeverityBands(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		want  models.Severity
	}{
		{"just over limit", 61, models.SeverityLow},
		{"just under medium band", 65.9, models.SeverityLow},
		{"exactly 10 percent over", 66, models.SeverityMedium},
		{"inside medium band", 70, models.SeverityMedium},
		{"exactly 25 percent over", 75, models.SeverityHigh},
		{"inside high band", 85, models.SeverityHigh},
		{"exactly 50 percent over", 90, models.SeverityCritical},
		{"far over limit", 150, models.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := classify(t, tt.speed, 1)
			if v == nil {
				t.Fatal("expected a violation")
			}
			if v.Severity != tt.want {
				t.Errorf("speed %v: severity = %q, want %q", tt.speed, v.Severity, tt.want)
			}
		})
	}
}

func TestClassifyExceedFields(t *testing.T) {
	v := classify(t, 95, 1)
	if v == nil {
		t.Fatal("expected a violation")
	}
	if v.ExceedAmount != 35 {
		t.Errorf("ExceedAmount = %v, want 35", v.ExceedAmount)
	}
	// 35/60 = 58.333...% rounds to two decimals.
	if v.ExceedPercentage != 58.33 {
		t.Errorf("ExceedPercentage = %v, want 58.33", v.ExceedPercentage)
	}
	if v.Severity != models.SeverityCritical {
		t.Errorf("Severity = %q, want CRITICAL", v.Severity)
	}
	if v.SpeedLimit != 60 {
		t.Errorf("SpeedLimit = %v, want 60", v.SpeedLimit)
	}
}

func TestClassifyStreakFlag(t *testing.T) {
	if v := classify(t, 65, 2); v.Consecutive {
		t.Error("streak of 2 is below threshold 3, Consecutive should be false")
	}
	v := classify(t, 65, 3)
	if !v.Consecutive {
		t.Error("streak of 3 meets threshold, Consecutive should be true")
	}
	if v.ConsecutiveCount != 3 {
		t.Errorf("ConsecutiveCount = %d, want 3", v.ConsecutiveCount)
	}

	// The counter keeps growing past the threshold.
	v = classify(t, 65, 7)
	if !v.Consecutive || v.ConsecutiveCount != 7 {
		t.Errorf("streak of 7: Consecutive = %v count = %d, want true 7", v.Consecutive, v.ConsecutiveCount)
	}
}

func TestClassifyCarriesReadingFields(t *testing.T) {
	c := NewClassifier(60, 3)
	loc := &models.Location{Latitude: 48.85, Longitude: 2.35}
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	r := &models.Reading{
		VehicleID:   "VEH009",
		SpeedKMH:    75,
		Timestamp:   ts,
		Location:    loc,
		VehicleType: models.VehicleBus,
		ReceivedAt:  ts,
	}

	v := c.Classify(r, StateSnapshot{VehicleID: "VEH009", ConsecutiveViolations: 1})
	if v.VehicleID != "VEH009" {
		t.Errorf("VehicleID = %q", v.VehicleID)
	}
	if !v.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", v.Timestamp, ts)
	}
	if v.Location != loc {
		t.Errorf("Location = %+v, want reading's location", v.Location)
	}
	if v.VehicleType != models.VehicleBus {
		t.Errorf("VehicleType = %q, want bus", v.VehicleType)
	}
	if v.DetectedAt.IsZero() {
		t.Error("DetectedAt should be set")
	}
}
