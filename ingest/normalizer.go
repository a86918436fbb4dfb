package ingest

import (
	"encoding/json"
	"regexp"
	"time"

	"speedguard/models"
)

const (
	minSpeedKMH = 0.0
	maxSpeedKMH = 500.0
)

var vehicleIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{3,20}$`)

// InvalidInput describes why a payload was rejected. It is a local outcome,
// not a stream error: the caller logs it and keeps consuming.
type InvalidInput struct {
	Reason string
}

func (e *InvalidInput) Error() string { return "invalid payload: " + e.Reason }

// inboundReading tolerates the loose inbound shape: either lat/lng or
// latitude/longitude, string or numeric timestamps, arbitrary metadata.
type inboundReading struct {
	VehicleID   string          `json:"vehicleId"`
	Speed       *float64        `json:"speed"`
	Timestamp   json.RawMessage `json:"timestamp"`
	Location    json.RawMessage `json:"location"`
	VehicleType string          `json:"vehicleType"`
	Metadata    json.RawMessage `json:"metadata"`
}

type inboundLocation struct {
	Lat       *float64 `json:"lat"`
	Latitude  *float64 `json:"latitude"`
	Lng       *float64 `json:"lng"`
	Longitude *float64 `json:"longitude"`
}

// Normalize parses and validates one raw payload into a Reading. It returns
// either a fully populated Reading or an InvalidInput, never a partial one.
// Optional fields degrade silently (dropped location, coerced vehicle type);
// only missing or out-of-range required fields reject the payload.
func Normalize(payload []byte) (*models.Reading, *InvalidInput) {
	receivedAt := time.Now().UTC()

	if len(payload) == 0 {
		return nil, &InvalidInput{Reason: "empty payload"}
	}

	var in inboundReading
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, &InvalidInput{Reason: "unparsable JSON: " + err.Error()}
	}

	if !vehicleIDPattern.MatchString(in.VehicleID) {
		return nil, &InvalidInput{Reason: "vehicleId must be 3-20 alphanumeric characters"}
	}
	if in.Speed == nil {
		return nil, &InvalidInput{Reason: "missing speed"}
	}
	if *in.Speed < minSpeedKMH || *in.Speed > maxSpeedKMH {
		return nil, &InvalidInput{Reason: "speed out of range [0,500]"}
	}

	reading := &models.Reading{
		VehicleID:   in.VehicleID,
		SpeedKMH:    *in.Speed,
		Timestamp:   parseTimestamp(in.Timestamp, receivedAt),
		Location:    parseLocation(in.Location),
		VehicleType: models.ParseVehicleType(in.VehicleType),
		Metadata:    parseMetadata(in.Metadata),
		ReceivedAt:  receivedAt,
	}

	return reading, nil
}

// parseTimestamp accepts RFC3339 strings or epoch numbers (seconds, or
// milliseconds when the magnitude gives it away). Anything else falls back
// to ingestion time.
func parseTimestamp(raw json.RawMessage, fallback time.Time) time.Time {
	if len(raw) == 0 {
		return fallback
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts.UTC()
		}
		return fallback
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		if n > 1e12 {
			return time.UnixMilli(int64(n)).UTC()
		}
		return time.Unix(int64(n), 0).UTC()
	}

	return fallback
}

// parseLocation returns a location only when both coordinates are present
// and in range; incomplete or malformed locations are dropped, not rejected.
func parseLocation(raw json.RawMessage) *models.Location {
	if len(raw) == 0 {
		return nil
	}

	var in inboundLocation
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil
	}

	lat := in.Lat
	if lat == nil {
		lat = in.Latitude
	}
	lng := in.Lng
	if lng == nil {
		lng = in.Longitude
	}
	if lat == nil || lng == nil {
		return nil
	}

	loc := &models.Location{Latitude: *lat, Longitude: *lng}
	if !loc.Valid() {
		return nil
	}
	return loc
}

func parseMetadata(raw json.RawMessage) map[string]interface{} {
	if len(raw) == 0 {
		return nil
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil
	}
	return meta
}
