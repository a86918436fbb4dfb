package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"speedguard/broker"
	"speedguard/config"
	"speedguard/ingest"
	"speedguard/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := store.NewPostgresStore(ctx, cfg.Database.GetPoolDSN())
	if err != nil {
		log.Fatalf("postgres init failed: %v", err)
	}
	defer db.Close()

	// Live fan-out is best effort: the pipeline runs without it.
	var live *store.RedisStore
	if rs, err := store.NewRedisStore(ctx, cfg.Redis); err != nil {
		log.Printf("redis unavailable, live channels disabled: %v", err)
	} else {
		live = rs
		defer live.Close()
	}

	b := broker.New(cfg.MQTT)

	tracker := ingest.NewVehicleTracker(cfg.Detection.SpeedLimitKMH, cfg.Detection.HistorySize)
	classifier := ingest.NewClassifier(cfg.Detection.SpeedLimitKMH, cfg.Detection.ConsecutiveThreshold)
	strategy := ingest.NewStrategyEngine(cfg.Detection.SuppressionWindow)

	var liveFeed ingest.LiveFeed
	if live != nil {
		liveFeed = live
	}
	dispatcher := ingest.NewDispatcher(db, b, liveFeed, cfg.MQTT.AlertTopic, cfg.Detection.SpeedLimitKMH)
	pipeline := ingest.NewPipeline(tracker, classifier, strategy, dispatcher)

	go tracker.RunEviction(ctx, cfg.Detection.EvictionSweepEvery, cfg.Detection.StateEvictionAge)
	go runSuppressorSweep(ctx, strategy.Suppressor(), cfg.Detection.EvictionSweepEvery, cfg.Detection.StateEvictionAge)

	go serveHTTP(cfg.Server.MetricsAddr, b, pipeline, tracker)

	if err := b.Connect(ctx); err != nil {
		log.Fatalf("mqtt connection failed: %v", err)
	}

	if err := b.Subscribe(cfg.MQTT.TelemetryTopic, func(topic string, payload []byte) {
		pipeline.HandleMessage(ctx, topic, payload)
	}); err != nil {
		log.Fatalf("mqtt subscribe failed: %v", err)
	}

	log.Printf("ingestor running: mqtt=%s topic=%s limit=%.1f threshold=%d suppression=%s",
		cfg.MQTT.BrokerURL, cfg.MQTT.TelemetryTopic,
		cfg.Detection.SpeedLimitKMH, cfg.Detection.ConsecutiveThreshold, cfg.Detection.SuppressionWindow)

	<-ctx.Done()
	log.Printf("ingestor shutting down")

	if drained := dispatcher.Drain(cfg.Detection.ShutdownGrace); !drained {
		log.Printf("persistence drain timed out after %s, abandoning in-flight writes", cfg.Detection.ShutdownGrace)
	}
	b.Disconnect()
}

func runSuppressorSweep(ctx context.Context, s *ingest.Suppressor, every, maxAge time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.EvictStale(maxAge)
		case <-ctx.Done():
			return
		}
	}
}

func serveHTTP(addr string, b *broker.Broker, pipeline *ingest.Pipeline, tracker *ingest.VehicleTracker) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		processed, errors := pipeline.Stats()
		status := "ok"
		code := http.StatusOK
		if !b.Healthy() {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    status,
			"broker":    b.Healthy(),
			"processed": processed,
			"errors":    errors,
			"vehicles":  tracker.VehicleCount(),
		})
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("metrics server listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("metrics server failed: %v", err)
	}
}
