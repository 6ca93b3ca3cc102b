package events

import "time"

// FreeTimeDetected is emitted when gaps between busy periods are stored as slots.
type FreeTimeDetected struct {
	TenantID    string    `json:"tenant_id"`
	UserID      string    `json:"user_id"`
	SlotIDs     []string  `json:"slot_ids"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	DetectedAt  time.Time `json:"detected_at"`
}
