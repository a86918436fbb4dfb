package models

import "time"

// Severity classifies how far over the limit a reading was.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Violation is derived from a reading whose speed exceeds the limit. It is
// ephemeral: it either becomes an Alert or is suppressed, never stored alone.
type Violation struct {
	VehicleID        string
	SpeedKMH         float64
	SpeedLimit       float64
	ExceedAmount     float64
	ExceedPercentage float64
	Severity         Severity
	Consecutive      bool
	ConsecutiveCount int
	Timestamp        time.Time
	DetectedAt       time.Time
	Location         *Location
	VehicleType      VehicleType
}
