package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"example.com/freetime/internal/persistence"
)

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

// Topics events are published to.
const (
	TopicSuggestionEvents = "suggestion_events"
	TopicFreeTimeEvents   = "freetime_events"
)

var eventCatalog = map[string]EventMetadata{
	persistence.EventSuggestionsGenerated: {
		Topic:         TopicSuggestionEvents,
		SchemaSubject: TopicSuggestionEvents + "-suggestion.generated-value",
	},
	persistence.EventActivityAdapted: {
		Topic:         TopicSuggestionEvents,
		SchemaSubject: TopicSuggestionEvents + "-activity.adapted-value",
	},
	persistence.EventFreeTimeDetected: {
		Topic:         TopicFreeTimeEvents,
		SchemaSubject: TopicFreeTimeEvents + "-value",
	},
}

type outboxRecord struct {
	tenantID      string
	userID        string
	aggregateType string
	aggregateID   string
	eventType     string
	occurredAt    time.Time
	payload       any
}

// insertOutbox writes an event row inside the caller's transaction. Events for one
// user share a partition key so consumers see them in order.
func insertOutbox(ctx context.Context, tx pgx.Tx, rec outboxRecord) error {
	meta, ok := eventCatalog[rec.eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", rec.eventType)
	}
	body, err := json.Marshal(rec.payload)
	if err != nil {
		return err
	}

	partitionKey := fmt.Sprintf("%s:%s", rec.tenantID, rec.userID)
	dedupeKey := fmt.Sprintf("%s:%s:%d", rec.aggregateID, rec.eventType, rec.occurredAt.UnixNano())

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		rec.tenantID,
		rec.aggregateType,
		rec.aggregateID,
		rec.eventType,
		meta.Topic,
		meta.SchemaSubject,
		partitionKey,
		body,
		dedupeKey,
	)
	return err
}
