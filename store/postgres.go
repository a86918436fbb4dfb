package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"speedguard/models"
)

// PostgresStore is the ingestor's write path: append-only inserts of
// readings and alerts.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db pool init failed: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) InsertReading(ctx context.Context, r *models.Reading, speedLimit float64) error {
	var lat, lng *float64
	if r.Location != nil {
		lat = &r.Location.Latitude
		lng = &r.Location.Longitude
	}

	var metadata []byte
	if r.Metadata != nil {
		data, err := json.Marshal(r.Metadata)
		if err == nil {
			metadata = data
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO speed_readings (vehicle_id, speed_kmh, speed_limit, latitude, longitude, vehicle_type, metadata, ts, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.VehicleID, r.SpeedKMH, speedLimit, lat, lng, string(r.VehicleType), metadata, r.Timestamp, r.ReceivedAt)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertAlert(ctx context.Context, a *models.Alert) error {
	v := a.Violation

	var lat, lng *float64
	if v.Location != nil {
		lat = &v.Location.Latitude
		lng = &v.Location.Longitude
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO speed_alerts (
			alert_id, vehicle_id, alert_type, severity, speed_kmh, speed_limit,
			exceed_amount, exceed_percentage, consecutive, consecutive_count,
			latitude, longitude, vehicle_type, status, priority,
			recommended_action, description, violation_ts, detected_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (alert_id) DO NOTHING
	`, a.AlertID, v.VehicleID, a.Type, string(v.Severity), v.SpeedKMH, v.SpeedLimit,
		v.ExceedAmount, v.ExceedPercentage, v.Consecutive, v.ConsecutiveCount,
		lat, lng, string(v.VehicleType), models.AlertStatusActive, a.Priority,
		a.RecommendedAction, a.Description, v.Timestamp, a.GeneratedAt)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}
