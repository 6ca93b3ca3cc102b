package domain

import "time"

// ScheduleStatus tracks the lifecycle of a scheduled activity.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
	ScheduleStatusAdapted   ScheduleStatus = "adapted"
)

// Valid reports whether s is a known status.
func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusScheduled, ScheduleStatusCompleted, ScheduleStatusCancelled, ScheduleStatusAdapted:
		return true
	}
	return false
}

// Schedule places an activity on the calendar.
type Schedule struct {
	ID                  string         `json:"id"`
	TenantID            string         `json:"tenant_id"`
	UserID              string         `json:"user_id"`
	ActivityID          string         `json:"activity_id"`
	FreeTimeSlotID      string         `json:"free_time_slot_id,omitempty"`
	Start               time.Time      `json:"start"`
	End                 time.Time      `json:"end"`
	DurationMin         int            `json:"duration_min"`
	OriginalDurationMin int            `json:"original_duration_min"`
	Status              ScheduleStatus `json:"status"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// ScheduleFilter narrows ListSchedules. Zero values disable a filter.
type ScheduleFilter struct {
	From   time.Time
	To     time.Time
	Status ScheduleStatus
}

// Matches reports whether s passes the filter.
func (f ScheduleFilter) Matches(s Schedule) bool {
	if !f.From.IsZero() && s.Start.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && s.Start.After(f.To) {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return true
}
