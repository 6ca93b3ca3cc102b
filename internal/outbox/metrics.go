package outbox

import "github.com/prometheus/client_golang/prometheus"

const namespace = "freetime_service"

// unknownEventType labels rows whose event type has no registered schema.
const unknownEventType = "unknown"

var (
	deliveredCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Outbox events published to Kafka, by event type.",
	}, []string{"event_type"})

	failedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Outbox events that failed to publish and were routed to the DLQ, by event type.",
	}, []string{"event_type"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent claiming, delivering and marking one outbox batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	dlqCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "events_dlq_total",
		Help:      "Outbox events routed to the dead-letter queue, by topic and event type.",
	}, []string{"topic", "event_type"})
)

func init() {
	prometheus.MustRegister(deliveredCounter, failedCounter, batchDuration, dlqCounter)
	for eventType := range schemaCatalog {
		deliveredCounter.WithLabelValues(eventType)
		failedCounter.WithLabelValues(eventType)
	}
}

// eventTypeLabel keeps label cardinality bounded to the schema catalog.
func eventTypeLabel(eventType string) string {
	if _, ok := SchemaFor(eventType); ok {
		return eventType
	}
	return unknownEventType
}

func recordDelivered(messages []Message) {
	for _, msg := range messages {
		deliveredCounter.WithLabelValues(eventTypeLabel(msg.EventType)).Inc()
	}
}

func recordFailed(messages []Message) {
	for _, msg := range messages {
		failedCounter.WithLabelValues(eventTypeLabel(msg.EventType)).Inc()
	}
}

func recordDLQ(msg Message) {
	dlqCounter.WithLabelValues(msg.Topic, eventTypeLabel(msg.EventType)).Inc()
}
