package models

import "time"

// VehicleType tags the emitting vehicle class. Unrecognized inbound values
// are coerced to VehicleUnknown during normalization, never rejected.
type VehicleType string

const (
	VehicleCar        VehicleType = "car"
	VehicleTruck      VehicleType = "truck"
	VehicleBus        VehicleType = "bus"
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleEmergency  VehicleType = "emergency"
	VehiclePublic     VehicleType = "public"
	VehicleUnknown    VehicleType = "unknown"
)

// ParseVehicleType maps an inbound tag to a known vehicle type.
func ParseVehicleType(s string) VehicleType {
	switch VehicleType(s) {
	case VehicleCar, VehicleTruck, VehicleBus, VehicleMotorcycle, VehicleEmergency, VehiclePublic:
		return VehicleType(s)
	default:
		return VehicleUnknown
	}
}

// Location is an optional lat/lng pair. A reading either carries a complete,
// in-range location or none at all.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Valid reports whether both coordinates are in geographic range.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// Reading is one normalized speed telemetry sample. It is only ever produced
// fully populated; partial readings never leave the normalizer.
type Reading struct {
	VehicleID   string
	SpeedKMH    float64
	Timestamp   time.Time
	Location    *Location
	VehicleType VehicleType
	Metadata    map[string]interface{}
	ReceivedAt  time.Time
}

// SpeedReading is the persisted form of a Reading.
type SpeedReading struct {
	ID          int64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	VehicleID   string         `gorm:"column:vehicle_id;index" json:"vehicle_id"`
	SpeedKMH    float64        `gorm:"column:speed_kmh" json:"speed_kmh"`
	SpeedLimit  float64        `gorm:"column:speed_limit" json:"speed_limit"`
	Latitude    *float64       `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude   *float64       `gorm:"column:longitude" json:"longitude,omitempty"`
	VehicleType string         `gorm:"column:vehicle_type" json:"vehicle_type"`
	Metadata    string         `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	TS          time.Time      `gorm:"column:ts;index" json:"ts"`
	ReceivedAt  time.Time      `gorm:"column:received_at" json:"received_at"`
}

func (SpeedReading) TableName() string { return "speed_readings" }
