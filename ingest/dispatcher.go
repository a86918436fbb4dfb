package ingest

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"speedguard/metrics"
	"speedguard/models"
)

// ReadingStore is the persistence contract the dispatcher needs: append a
// reading, append an alert. Failed writes are logged and dropped, never
// retried here.
type ReadingStore interface {
	InsertReading(ctx context.Context, r *models.Reading, speedLimit float64) error
	InsertAlert(ctx context.Context, a *models.Alert) error
}

// WirePublisher publishes to the outbound alert topic.
type WirePublisher interface {
	Publish(topic string, payload []byte) error
}

// LiveFeed fans accepted readings and alerts out to the live channels the
// query API's websocket bridges.
type LiveFeed interface {
	PublishReading(ctx context.Context, payload []byte) error
	PublishAlert(ctx context.Context, payload []byte) error
}

const persistTimeout = 10 * time.Second

// Dispatcher is the pipeline's tail: alert publication, live fan-out and
// persistence all run on tracked goroutines so the message-handler goroutine
// never waits on a broker ack or a database write. Each path fails
// independently; none of them can take down or stall the ingestion loop.
type Dispatcher struct {
	store      ReadingStore
	wire       WirePublisher
	live       LiveFeed
	alertTopic string
	speedLimit float64

	wg sync.WaitGroup
}

func NewDispatcher(store ReadingStore, wire WirePublisher, live LiveFeed, alertTopic string, speedLimit float64) *Dispatcher {
	return &Dispatcher{
		store:      store,
		wire:       wire,
		live:       live,
		alertTopic: alertTopic,
		speedLimit: speedLimit,
	}
}

// Dispatch processes one accepted reading and its optional alert. It returns
// as soon as the work is handed off; Drain waits for the handed-off work.
func (d *Dispatcher) Dispatch(ctx context.Context, r *models.Reading, a *models.Alert) {
	if a != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			d.publishAlert(pctx, a)
		}()

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := d.store.InsertAlert(pctx, a); err != nil {
				metrics.PersistFailures.Inc()
				log.Printf("alert persist failed: alert=%s vehicle=%s: %v", a.AlertID, a.Violation.VehicleID, err)
			}
		}()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := d.store.InsertReading(pctx, r, d.speedLimit); err != nil {
			metrics.PersistFailures.Inc()
			log.Printf("reading persist failed: vehicle=%s speed=%.1f: %v", r.VehicleID, r.SpeedKMH, err)
		}
	}()

	if d.live != nil {
		data, err := json.Marshal(readingLivePayload(r))
		if err != nil {
			return
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := d.live.PublishReading(pctx, data); err != nil {
				log.Printf("live reading publish failed: %v", err)
			}
		}()
	}
}

func (d *Dispatcher) publishAlert(ctx context.Context, a *models.Alert) {
	data, err := json.Marshal(a.WireMessage())
	if err != nil {
		metrics.PublishFailures.Inc()
		log.Printf("alert marshal failed: alert=%s: %v", a.AlertID, err)
		return
	}

	if err := d.wire.Publish(d.alertTopic, data); err != nil {
		metrics.PublishFailures.Inc()
		log.Printf("alert publish failed: alert=%s: %v", a.AlertID, err)
	}

	if d.live != nil {
		if err := d.live.PublishAlert(ctx, data); err != nil {
			log.Printf("live alert publish failed: alert=%s: %v", a.AlertID, err)
		}
	}
}

// Drain waits for in-flight publishes and persistence writes up to the grace
// period. Work still pending after the deadline is abandoned.
func (d *Dispatcher) Drain(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(grace):
		return false
	}
}

func readingLivePayload(r *models.Reading) map[string]interface{} {
	payload := map[string]interface{}{
		"vehicleId":   r.VehicleID,
		"speed":       r.SpeedKMH,
		"vehicleType": string(r.VehicleType),
		"timestamp":   r.Timestamp.UTC().Format(time.RFC3339),
		"receivedAt":  r.ReceivedAt.UTC().Format(time.RFC3339),
	}
	if r.Location != nil {
		payload["lat"] = r.Location.Latitude
		payload["lng"] = r.Location.Longitude
	}
	return payload
}
