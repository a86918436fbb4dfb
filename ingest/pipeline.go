package ingest

import (
	"context"
	"log"
	"sync/atomic"

	"speedguard/metrics"
)

// Pipeline is the message-handler boundary: normalize, track, classify,
// evaluate, dispatch. Each stage's failure stays local; a panic anywhere in
// the chain is recovered here so the ingestion loop keeps running.
type Pipeline struct {
	tracker    *VehicleTracker
	classifier *Classifier
	strategy   *StrategyEngine
	dispatcher *Dispatcher

	processed atomic.Int64
	errors    atomic.Int64
}

func NewPipeline(tracker *VehicleTracker, classifier *Classifier, strategy *StrategyEngine, dispatcher *Dispatcher) *Pipeline {
	return &Pipeline{
		tracker:    tracker,
		classifier: classifier,
		strategy:   strategy,
		dispatcher: dispatcher,
	}
}

// HandleMessage processes one inbound payload. The subscriber closure
// supplies the context when adapting this to a broker message handler.
func (p *Pipeline) HandleMessage(ctx context.Context, topic string, payload []byte) {
	metrics.MessagesReceived.Inc()

	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerPanics.Inc()
			p.errors.Add(1)
			log.Printf("panic in message handler: topic=%s payload=%.200s: %v", topic, payload, r)
		}
	}()

	reading, invalid := Normalize(payload)
	if invalid != nil {
		metrics.MessagesInvalid.Inc()
		p.errors.Add(1)
		log.Printf("discarded payload on topic=%s: %s", topic, invalid.Reason)
		return
	}

	// Synchronous portion: the tracker's per-vehicle lock serializes this
	// with any other reading for the same vehicle.
	snapshot := p.tracker.Update(reading)

	violation := p.classifier.Classify(reading, snapshot)

	if violation != nil {
		metrics.ViolationsDetected.Inc()
		alert := p.strategy.Evaluate(violation)
		if alert == nil {
			metrics.AlertsSuppressed.Inc()
			log.Printf("alert suppressed: vehicle=%s severity=%s", violation.VehicleID, violation.Severity)
			p.dispatcher.Dispatch(ctx, reading, nil)
		} else {
			metrics.AlertsGenerated.Inc()
			log.Printf("alert generated: id=%s vehicle=%s type=%s severity=%s consecutive=%d",
				alert.AlertID, violation.VehicleID, alert.Type, violation.Severity, violation.ConsecutiveCount)
			p.dispatcher.Dispatch(ctx, reading, alert)
		}
	} else {
		p.dispatcher.Dispatch(ctx, reading, nil)
	}

	metrics.MessagesProcessed.Inc()
	p.processed.Add(1)
}

// Stats reports processed and error counts for the health endpoint.
func (p *Pipeline) Stats() (processed, errors int64) {
	return p.processed.Load(), p.errors.Load()
}
