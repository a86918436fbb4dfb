package main

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5"

	"speedguard/config"
)

// Creates the tables and indexes the ingestor and the query API expect.
// Safe to run repeatedly.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.Database.GetPoolDSN())
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer conn.Close(ctx)

	statements := []struct {
		label string
		sql   string
	}{
		{"speed_readings table", `
			CREATE TABLE IF NOT EXISTS speed_readings (
				id           BIGSERIAL        PRIMARY KEY,
				vehicle_id   TEXT             NOT NULL,
				speed_kmh    DOUBLE PRECISION NOT NULL,
				speed_limit  DOUBLE PRECISION NOT NULL,
				latitude     DOUBLE PRECISION,
				longitude    DOUBLE PRECISION,
				vehicle_type TEXT             NOT NULL DEFAULT 'unknown',
				metadata     JSONB,
				ts           TIMESTAMPTZ      NOT NULL,
				received_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW()
			);`},
		{"speed_alerts table", `
			CREATE TABLE IF NOT EXISTS speed_alerts (
				alert_id           TEXT             PRIMARY KEY,
				vehicle_id         TEXT             NOT NULL,
				alert_type         TEXT             NOT NULL,
				severity           TEXT             NOT NULL,
				speed_kmh          DOUBLE PRECISION NOT NULL,
				speed_limit        DOUBLE PRECISION NOT NULL,
				exceed_amount      DOUBLE PRECISION NOT NULL,
				exceed_percentage  DOUBLE PRECISION NOT NULL,
				consecutive        BOOLEAN          NOT NULL DEFAULT false,
				consecutive_count  INTEGER          NOT NULL DEFAULT 0,
				latitude           DOUBLE PRECISION,
				longitude          DOUBLE PRECISION,
				vehicle_type       TEXT             NOT NULL DEFAULT 'unknown',
				status             TEXT             NOT NULL DEFAULT 'ACTIVE',
				priority           TEXT             NOT NULL,
				recommended_action TEXT             NOT NULL DEFAULT '',
				description        TEXT             NOT NULL DEFAULT '',
				violation_ts       TIMESTAMPTZ      NOT NULL,
				detected_at        TIMESTAMPTZ      NOT NULL,
				resolved_at        TIMESTAMPTZ,
				CONSTRAINT chk_alert_type CHECK (alert_type IN ('SIMPLE', 'CRITICAL')),
				CONSTRAINT chk_severity CHECK (severity IN ('LOW', 'MEDIUM', 'HIGH', 'CRITICAL')),
				CONSTRAINT chk_status CHECK (status IN ('ACTIVE', 'RESOLVED', 'DISMISSED'))
			);`},
		{"users table", `
			CREATE TABLE IF NOT EXISTS users (
				id         BIGSERIAL   PRIMARY KEY,
				email      TEXT        NOT NULL UNIQUE,
				password   TEXT        NOT NULL,
				role       TEXT        NOT NULL DEFAULT 'operator',
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);`},
		{"idx_readings_vehicle_ts", `
			CREATE INDEX IF NOT EXISTS idx_readings_vehicle_ts
			ON speed_readings (vehicle_id, ts DESC);`},
		{"idx_readings_ts", `
			CREATE INDEX IF NOT EXISTS idx_readings_ts
			ON speed_readings (ts DESC);`},
		{"idx_alerts_vehicle_ts", `
			CREATE INDEX IF NOT EXISTS idx_alerts_vehicle_ts
			ON speed_alerts (vehicle_id, violation_ts DESC);`},
		{"idx_alerts_active", `
			CREATE INDEX IF NOT EXISTS idx_alerts_active
			ON speed_alerts (violation_ts DESC)
			WHERE status = 'ACTIVE';`},
	}

	for _, s := range statements {
		if _, err := conn.Exec(ctx, s.sql); err != nil {
			log.Fatalf("%s failed: %v", s.label, err)
		}
		log.Printf("ok: %s", s.label)
	}

	log.Println("Database initialised")
}
