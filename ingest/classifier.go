package ingest

import (
	"math"
	"time"

	"speedguard/models"
)

// Severity thresholds as percentage over the limit. Band lower bounds are
// inclusive: exactly 25% over is HIGH, exactly 50% over is CRITICAL.
const (
	criticalOverPct = 50.0
	highOverPct     = 25.0
	mediumOverPct   = 10.0
)

type Classifier struct {
	speedLimit      float64
	streakThreshold int
}

func NewClassifier(speedLimit float64, streakThreshold int) *Classifier {
	return &Classifier{speedLimit: speedLimit, streakThreshold: streakThreshold}
}

// Classify decides whether a reading violates the limit and how badly.
// Returns nil when speed <= limit. The snapshot's consecutive counter decides
// streak membership: at or past the threshold the violation is flagged as
// part of a streak, with the uncapped counter as streak length.
func (c *Classifier) Classify(r *models.Reading, s StateSnapshot) *models.Violation {
	if r.SpeedKMH <= c.speedLimit {
		return nil
	}

	exceed := r.SpeedKMH - c.speedLimit
	exceedPct := exceed / c.speedLimit * 100

	return &models.Violation{
		VehicleID:        r.VehicleID,
		SpeedKMH:         r.SpeedKMH,
		SpeedLimit:       c.speedLimit,
		ExceedAmount:     round2(exceed),
		ExceedPercentage: round2(exceedPct),
		Severity:         severityFor(exceedPct),
		Consecutive:      s.ConsecutiveViolations >= c.streakThreshold,
		ConsecutiveCount: s.ConsecutiveViolations,
		Timestamp:        r.Timestamp,
		DetectedAt:       time.Now().UTC(),
		Location:         r.Location,
		VehicleType:      r.VehicleType,
	}
}

func severityFor(exceedPct float64) models.Severity {
	switch {
	case exceedPct >= criticalOverPct:
		return models.SeverityCritical
	case exceedPct >= highOverPct:
		return models.SeverityHigh
	case exceedPct >= mediumOverPct:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
