package models

import "time"

// Alert lifecycle statuses. Alerts are born ACTIVE; resolution and dismissal
// happen through the query API.
const (
	AlertStatusActive    = "ACTIVE"
	AlertStatusResolved  = "RESOLVED"
	AlertStatusDismissed = "DISMISSED"
)

// Outbound alert types on the wire.
const (
	AlertTypeSimple   = "SIMPLE"
	AlertTypeCritical = "CRITICAL"
)

// Alert priorities assigned by the strategy engine.
const (
	PriorityLow       = "LOW"
	PriorityMedium    = "MEDIUM"
	PriorityHigh      = "HIGH"
	PriorityImmediate = "IMMEDIATE"
)

// Alert wraps a Violation with strategy metadata.
type Alert struct {
	AlertID           string
	Type              string
	Priority          string
	RecommendedAction string
	Description       string
	Escalate          bool
	Violation         Violation
	GeneratedAt       time.Time
}

// AlertMessage is the outbound JSON published to the alert topic.
type AlertMessage struct {
	AlertID          string  `json:"alertId"`
	Type             string  `json:"type"`
	VehicleID        string  `json:"vehicleId"`
	SpeedKMH         float64 `json:"speed"`
	SpeedLimit       float64 `json:"speedLimit"`
	ConsecutiveCount *int    `json:"consecutiveCount,omitempty"`
	Timestamp        string  `json:"timestamp"`
	Message          string  `json:"message"`
	GeneratedAt      string  `json:"generatedAt"`
}

// WireMessage flattens an Alert into its published form.
func (a Alert) WireMessage() AlertMessage {
	msg := AlertMessage{
		AlertID:     a.AlertID,
		Type:        a.Type,
		VehicleID:   a.Violation.VehicleID,
		SpeedKMH:    a.Violation.SpeedKMH,
		SpeedLimit:  a.Violation.SpeedLimit,
		Timestamp:   a.Violation.Timestamp.UTC().Format(time.RFC3339),
		Message:     a.Description,
		GeneratedAt: a.GeneratedAt.UTC().Format(time.RFC3339),
	}
	if a.Violation.Consecutive {
		count := a.Violation.ConsecutiveCount
		msg.ConsecutiveCount = &count
	}
	return msg
}

// SpeedAlert is the persisted form of an Alert.
type SpeedAlert struct {
	AlertID           string     `gorm:"column:alert_id;primaryKey" json:"alert_id"`
	VehicleID         string     `gorm:"column:vehicle_id;index" json:"vehicle_id"`
	AlertType         string     `gorm:"column:alert_type" json:"alert_type"`
	Severity          string     `gorm:"column:severity" json:"severity"`
	SpeedKMH          float64    `gorm:"column:speed_kmh" json:"speed_kmh"`
	SpeedLimit        float64    `gorm:"column:speed_limit" json:"speed_limit"`
	ExceedAmount      float64    `gorm:"column:exceed_amount" json:"exceed_amount"`
	ExceedPercentage  float64    `gorm:"column:exceed_percentage" json:"exceed_percentage"`
	Consecutive       bool       `gorm:"column:consecutive" json:"consecutive"`
	ConsecutiveCount  int        `gorm:"column:consecutive_count" json:"consecutive_count"`
	Latitude          *float64   `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude         *float64   `gorm:"column:longitude" json:"longitude,omitempty"`
	VehicleType       string     `gorm:"column:vehicle_type" json:"vehicle_type"`
	Status            string     `gorm:"column:status;index" json:"status"`
	Priority          string     `gorm:"column:priority" json:"priority"`
	RecommendedAction string     `gorm:"column:recommended_action" json:"recommended_action"`
	Description       string     `gorm:"column:description" json:"description"`
	ViolationTS       time.Time  `gorm:"column:violation_ts;index" json:"violation_ts"`
	DetectedAt        time.Time  `gorm:"column:detected_at" json:"detected_at"`
	ResolvedAt        *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
}

func (SpeedAlert) TableName() string { return "speed_alerts" }
