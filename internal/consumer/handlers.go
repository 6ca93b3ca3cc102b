package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/freetime/internal/cache"
	"example.com/freetime/internal/persistence"
)

// Chain runs handlers in order and stops at the first error.
type Chain []Handler

// Handle implements Handler.
func (c Chain) Handle(ctx context.Context, msg Message) error {
	for _, h := range c {
		if err := h.Handle(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// EventLogHandler appends every event to suggestion_event_log. Redelivered records
// are ignored through the (topic, partition, record_offset) unique key.
type EventLogHandler struct {
	pool *pgxpool.Pool
}

// NewEventLogHandler constructs an EventLogHandler.
func NewEventLogHandler(pool *pgxpool.Pool) *EventLogHandler {
	return &EventLogHandler{pool: pool}
}

// Handle implements Handler.
func (h *EventLogHandler) Handle(ctx context.Context, msg Message) error {
	_, err := h.pool.Exec(ctx,
		`INSERT INTO suggestion_event_log (event_type, tenant_id, schema_id, schema_subject, topic, partition, record_offset, payload, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
         ON CONFLICT (topic, partition, record_offset) DO NOTHING`,
		msg.EventType,
		msg.TenantID,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.Payload,
		msg.Timestamp,
	)
	return err
}

// CacheInvalidationHandler drops a user's cached suggestions when new free time is
// detected or an activity is adapted by another API instance.
type CacheInvalidationHandler struct {
	cache cache.SuggestionCache
}

// NewCacheInvalidationHandler constructs a CacheInvalidationHandler.
func NewCacheInvalidationHandler(c cache.SuggestionCache) *CacheInvalidationHandler {
	return &CacheInvalidationHandler{cache: c}
}

// Handle implements Handler.
func (h *CacheInvalidationHandler) Handle(ctx context.Context, msg Message) error {
	switch msg.EventType {
	case persistence.EventFreeTimeDetected, persistence.EventActivityAdapted:
	default:
		return nil
	}

	var owner struct {
		TenantID string `json:"tenant_id"`
		UserID   string `json:"user_id"`
	}
	if err := json.Unmarshal(msg.Payload, &owner); err != nil {
		return fmt.Errorf("decode %s owner: %w", msg.EventType, err)
	}
	if owner.TenantID == "" || owner.UserID == "" {
		return errors.New("event payload has no owner")
	}
	if err := h.cache.InvalidateUser(ctx, owner.TenantID, owner.UserID); err != nil {
		return err
	}
	recordCacheInvalidation(msg.EventType)
	return nil
}
