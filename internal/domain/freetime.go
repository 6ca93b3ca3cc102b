package domain

import (
	"fmt"
	"sort"
	"time"
)

// Defaults applied when a detection request leaves them out.
const (
	DefaultDetectionWindow   = 7 * 24 * time.Hour
	DefaultMinFreeTimeMinute = 15
)

// SlotSource records where a free time slot came from.
type SlotSource string

const (
	SlotSourceGoogleCalendar SlotSource = "google_calendar"
	SlotSourceManual         SlotSource = "manual"
)

// Valid reports whether s is a known source.
func (s SlotSource) Valid() bool {
	return s == SlotSourceGoogleCalendar || s == SlotSourceManual
}

// BusyPeriod is an occupied calendar range.
type BusyPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// StoredSuggestion is the persisted form of a Suggestion attached to a slot.
type StoredSuggestion struct {
	ActivityID string `json:"activity_id"`
	Score      int    `json:"score"`
	Reason     string `json:"reason"`
}

// FreeTimeSlot is a persisted free-time interval together with its last suggestions.
type FreeTimeSlot struct {
	ID          string             `json:"id"`
	TenantID    string             `json:"tenant_id"`
	UserID      string             `json:"user_id"`
	Interval    FreeTimeInterval   `json:"interval"`
	Source      SlotSource         `json:"source"`
	Processed   bool               `json:"is_processed"`
	Suggestions []StoredSuggestion `json:"suggested_activities"`
	CreatedAt   time.Time          `json:"created_at"`
}

// FindFreeSlots returns the gaps between busy periods inside [windowStart, windowEnd]
// that are at least minDurationMin minutes long. Overlapping busy periods are merged
// implicitly by advancing the cursor to the furthest busy end seen so far.
func FindFreeSlots(windowStart, windowEnd time.Time, busy []BusyPeriod, minDurationMin int) ([]FreeTimeInterval, error) {
	if !windowEnd.After(windowStart) {
		return nil, fmt.Errorf("%w: window end must be after window start", ErrInvalidInput)
	}
	for _, period := range busy {
		if !period.End.After(period.Start) {
			return nil, fmt.Errorf("%w: busy period ends before it starts", ErrInvalidInput)
		}
	}

	sorted := make([]BusyPeriod, len(busy))
	copy(sorted, busy)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var slots []FreeTimeInterval
	emit := func(start, end time.Time) {
		minutes := roundMinutes(end.Sub(start))
		if minutes >= minDurationMin && minutes > 0 {
			slots = append(slots, FreeTimeInterval{Start: start, End: end, DurationMin: minutes})
		}
	}

	cursor := windowStart
	for _, period := range sorted {
		if !period.Start.Before(windowEnd) {
			break
		}
		if period.Start.After(cursor) {
			emit(cursor, period.Start)
		}
		if period.End.After(cursor) {
			cursor = period.End
		}
	}
	if cursor.Before(windowEnd) {
		emit(cursor, windowEnd)
	}
	return slots, nil
}
