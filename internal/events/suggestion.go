// Package events defines the payloads published through the outbox.
package events

import "time"

// SuggestionsGenerated is emitted when suggestions are stored on a free time slot.
type SuggestionsGenerated struct {
	SlotID      string    `json:"slot_id"`
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	ActivityIDs []string  `json:"activity_ids"`
	Scores      []int     `json:"scores"`
	SlotStart   time.Time `json:"slot_start"`
	DurationMin int       `json:"duration_min"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ActivityAdapted is emitted when an activity is shrunk to fit a shorter slot.
type ActivityAdapted struct {
	ActivityID          string    `json:"activity_id"`
	TenantID            string    `json:"tenant_id"`
	UserID              string    `json:"user_id"`
	OriginalDurationMin int       `json:"original_duration_min"`
	AdaptedDurationMin  int       `json:"adapted_duration_min"`
	Reason              string    `json:"reason"`
	OccurredAt          time.Time `json:"occurred_at"`
}
