package domain

import (
	"fmt"
	"strings"
	"time"
)

// Duration bounds accepted for a catalog activity, in minutes.
const (
	MinActivityDuration = 5
	MaxActivityDuration = 240
)

// ActivityType classifies an activity for balance scoring.
type ActivityType string

const (
	ActivityTypeExercise      ActivityType = "Exercise"
	ActivityTypeLearning      ActivityType = "Learning"
	ActivityTypeEntertainment ActivityType = "Entertainment"
	ActivityTypeSocial        ActivityType = "Social"
	ActivityTypeFamily        ActivityType = "Family"
	ActivityTypeRelaxation    ActivityType = "Relaxation"
	ActivityTypeHobby         ActivityType = "Hobby"
	ActivityTypeWork          ActivityType = "Work"
	ActivityTypeChores        ActivityType = "Chores"
	ActivityTypeOther         ActivityType = "Other"
)

var activityTypes = []ActivityType{
	ActivityTypeExercise,
	ActivityTypeLearning,
	ActivityTypeEntertainment,
	ActivityTypeSocial,
	ActivityTypeFamily,
	ActivityTypeRelaxation,
	ActivityTypeHobby,
	ActivityTypeWork,
	ActivityTypeChores,
	ActivityTypeOther,
}

// ActivityTypes lists every accepted activity type in declaration order.
func ActivityTypes() []ActivityType {
	out := make([]ActivityType, len(activityTypes))
	copy(out, activityTypes)
	return out
}

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	for _, known := range activityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseActivityType converts raw input into an ActivityType.
func ParseActivityType(raw string) (ActivityType, error) {
	t := ActivityType(strings.TrimSpace(raw))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown activity type %q", ErrInvalidInput, raw)
	}
	return t, nil
}

// UnmarshalText rejects unknown activity types during decoding. An empty value
// decodes to the zero value so callers can apply their defaults.
func (t *ActivityType) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*t = ""
		return nil
	}
	parsed, err := ParseActivityType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeOfDay is either a concrete bucket of the day or the Any wildcard.
type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "Morning"
	TimeOfDayAfternoon TimeOfDay = "Afternoon"
	TimeOfDayEvening   TimeOfDay = "Evening"
	TimeOfDayAny       TimeOfDay = "Any"
)

// Valid reports whether t is a known time-of-day value.
func (t TimeOfDay) Valid() bool {
	switch t {
	case TimeOfDayMorning, TimeOfDayAfternoon, TimeOfDayEvening, TimeOfDayAny:
		return true
	}
	return false
}

// Matches reports whether a preference t is satisfied by the computed bucket.
func (t TimeOfDay) Matches(bucket TimeOfDay) bool {
	return t == TimeOfDayAny || t == bucket
}

// ParseTimeOfDay converts raw input into a TimeOfDay.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	t := TimeOfDay(strings.TrimSpace(raw))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown time of day %q", ErrInvalidInput, raw)
	}
	return t, nil
}

// UnmarshalText rejects unknown time-of-day values during decoding. An empty value
// decodes to the zero value so callers can apply their defaults.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*t = ""
		return nil
	}
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Priority expresses how important an activity is to the user.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority converts raw input into a Priority.
func ParsePriority(raw string) (Priority, error) {
	p := Priority(strings.TrimSpace(raw))
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, raw)
	}
	return p, nil
}

// UnmarshalText rejects unknown priorities during decoding. An empty value
// decodes to the zero value so callers can apply their defaults.
func (p *Priority) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*p = ""
		return nil
	}
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Completion records one attempt at an activity.
type Completion struct {
	Date        time.Time `json:"date"`
	DurationMin int       `json:"duration_min"`
	Completed   bool      `json:"completed"`
}

// Activity is a recommendable task owned by a user.
type Activity struct {
	ID                 string       `json:"id"`
	TenantID           string       `json:"tenant_id"`
	UserID             string       `json:"user_id"`
	Title              string       `json:"title"`
	Type               ActivityType `json:"type"`
	DurationMin        int          `json:"duration_min"`
	PreferredTimeOfDay TimeOfDay    `json:"preferred_time_of_day"`
	Priority           Priority     `json:"priority"`
	LastScheduled      *time.Time   `json:"last_scheduled,omitempty"`
	CompletionHistory  []Completion `json:"completion_history"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`

	// Set only on copies produced by Adapt.
	OriginalDurationMin int    `json:"original_duration_min,omitempty"`
	AdaptationReason    string `json:"adaptation_reason,omitempty"`
}

// Validate checks the fields the engine relies on.
func (a Activity) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: unknown activity type %q", ErrInvalidInput, a.Type)
	}
	if a.DurationMin < MinActivityDuration || a.DurationMin > MaxActivityDuration {
		return fmt.Errorf("%w: duration_min must be between %d and %d", ErrInvalidInput, MinActivityDuration, MaxActivityDuration)
	}
	if !a.PreferredTimeOfDay.Valid() {
		return fmt.Errorf("%w: unknown time of day %q", ErrInvalidInput, a.PreferredTimeOfDay)
	}
	if !a.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, a.Priority)
	}
	return nil
}

// Clone returns a deep copy so callers can mutate history without aliasing.
func (a Activity) Clone() Activity {
	out := a
	if a.LastScheduled != nil {
		ts := *a.LastScheduled
		out.LastScheduled = &ts
	}
	if a.CompletionHistory != nil {
		out.CompletionHistory = make([]Completion, len(a.CompletionHistory))
		copy(out.CompletionHistory, a.CompletionHistory)
	}
	return out
}
