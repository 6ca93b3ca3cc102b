package domain

import (
	"fmt"
	"time"
)

// UserPreferences holds per-user settings. Only BalancePriorities influences ranking.
type UserPreferences struct {
	TenantID                string    `json:"tenant_id"`
	UserID                  string    `json:"user_id"`
	BalancePriorities       bool      `json:"balance_priorities"`
	DefaultActivityDuration int       `json:"default_activity_duration"`
	PreferredTimeOfDay      TimeOfDay `json:"preferred_time_of_day"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// DefaultPreferences returns the settings a user starts with.
func DefaultPreferences(tenantID, userID string) UserPreferences {
	return UserPreferences{
		TenantID:                tenantID,
		UserID:                  userID,
		BalancePriorities:       true,
		DefaultActivityDuration: 30,
		PreferredTimeOfDay:      TimeOfDayAny,
	}
}

// Ranking extracts the subset of preferences the ranker reads.
func (p UserPreferences) Ranking() Preferences {
	return Preferences{BalancePriorities: p.BalancePriorities}
}

// Validate checks preference bounds.
func (p UserPreferences) Validate() error {
	if p.DefaultActivityDuration < MinActivityDuration || p.DefaultActivityDuration > MaxActivityDuration {
		return fmt.Errorf("%w: default_activity_duration must be between %d and %d", ErrInvalidInput, MinActivityDuration, MaxActivityDuration)
	}
	if !p.PreferredTimeOfDay.Valid() {
		return fmt.Errorf("%w: unknown time of day %q", ErrInvalidInput, p.PreferredTimeOfDay)
	}
	return nil
}
