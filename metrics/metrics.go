package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speedguard_ingestor_messages_received_total",
		Help: "Total number of MQTT messages received by the ingestor.",
	})
	MessagesInvalid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speedguard_ingestor_messages_invalid_total",
		Help: "Total number of payloads rejected by the normalizer.",
	})
	MessagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speedguard_ingestor_messages_processed_total",
		Help: "Total number of readings processed through the pipeline.",
	})
	ViolationsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speedguard_ingestor_violations_detected_total",
		Help: "Total number of speed-limit violations classified.",
	})
	AlertsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speedguard_ingestor_alerts_generated_total",
		Help: "Total number of alerts produced by the strategy engine.",
	})
	AlertsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speedguard_ingestor_alerts_suppressed_total",
		Help: "Total number of violations dropped inside the suppression window.",
	})
	PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speedguard_ingestor_persist_failures_total",
		Help: "Total number of failed reading or alert writes.",
	})
	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speedguard_ingestor_publish_failures_total",
		Help: "Total number of failed alert publishes.",
	})
	HandlerPanics = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speedguard_ingestor_handler_panics_total",
		Help: "Total number of panics recovered at the message-handler boundary.",
	})
	VehiclesEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speedguard_ingestor_vehicles_evicted_total",
		Help: "Total number of vehicle states discarded by the eviction sweep.",
	})
)
