package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func testAlert(consecutive bool, count int) Alert {
	return Alert{
		AlertID:     "a1b2c3",
		Type:        AlertTypeSimple,
		Priority:    PriorityHigh,
		Description: "vehicle VEH003 exceeded the limit",
		Violation: Violation{
			VehicleID:        "VEH003",
			SpeedKMH:         70,
			SpeedLimit:       60,
			Severity:         SeverityMedium,
			Consecutive:      consecutive,
			ConsecutiveCount: count,
			Timestamp:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		GeneratedAt: time.Date(2026, 3, 1, 10, 0, 1, 0, time.UTC),
	}
}

func TestWireMessage(t *testing.T) {
	msg := testAlert(true, 3).WireMessage()

	if msg.AlertID != "a1b2c3" {
		t.Errorf("AlertID = %q", msg.AlertID)
	}
	if msg.VehicleID != "VEH003" {
		t.Errorf("VehicleID = %q", msg.VehicleID)
	}
	if msg.SpeedKMH != 70 || msg.SpeedLimit != 60 {
		t.Errorf("speed = %v limit = %v", msg.SpeedKMH, msg.SpeedLimit)
	}
	if msg.Timestamp != "2026-03-01T10:00:00Z" {
		t.Errorf("Timestamp = %q", msg.Timestamp)
	}
	if msg.GeneratedAt != "2026-03-01T10:00:01Z" {
		t.Errorf("GeneratedAt = %q", msg.GeneratedAt)
	}
	if msg.ConsecutiveCount == nil || *msg.ConsecutiveCount != 3 {
		t.Errorf("ConsecutiveCount = %v, want 3", msg.ConsecutiveCount)
	}
}

func TestWireMessageConsecutiveCountOmitted(t *testing.T) {
	data, err := json.Marshal(testAlert(false, 1).WireMessage())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), "consecutiveCount") {
		t.Errorf("consecutiveCount must be absent for non-streak alerts: %s", data)
	}
}

func TestParseVehicleType(t *testing.T) {
	tests := []struct {
		in   string
		want VehicleType
	}{
		{"car", VehicleCar},
		{"truck", VehicleTruck},
		{"bus", VehicleBus},
		{"motorcycle", VehicleMotorcycle},
		{"emergency", VehicleEmergency},
		{"public", VehiclePublic},
		{"hovercraft", VehicleUnknown},
		{"", VehicleUnknown},
		{"CAR", VehicleUnknown},
	}

	for _, tt := range tests {
		if got := ParseVehicleType(tt.in); got != tt.want {
			t.Errorf("ParseVehicleType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLocationValid(t *testing.T) {
	valid := []Location{
		{Latitude: 0, Longitude: 0},
		{Latitude: 90, Longitude: 180},
		{Latitude: -90, Longitude: -180},
	}
	for _, l := range valid {
		if !l.Valid() {
			t.Errorf("Location %+v should be valid", l)
		}
	}

	invalid := []Location{
		{Latitude: 90.1, Longitude: 0},
		{Latitude: -90.1, Longitude: 0},
		{Latitude: 0, Longitude: 180.1},
		{Latitude: 0, Longitude: -180.1},
	}
	for _, l := range invalid {
		if l.Valid() {
			t.Errorf("Location %+v should be invalid", l)
		}
	}
}
