package domain

import "time"

// TypeHistory counts recent completed entries per activity type.
type TypeHistory map[ActivityType]int

// BuildTypeHistory counts, across the whole catalog, completions flagged completed whose
// date is no earlier than seven days before now.
func BuildTypeHistory(activities []Activity, now time.Time) TypeHistory {
	cutoff := now.Add(-balanceWindow)
	history := make(TypeHistory)
	for _, activity := range activities {
		if _, ok := history[activity.Type]; !ok {
			history[activity.Type] = 0
		}
		for _, entry := range activity.CompletionHistory {
			if entry.Completed && !entry.Date.Before(cutoff) {
				history[activity.Type]++
			}
		}
	}
	return history
}

// Count returns the number of recent completions for t.
func (h TypeHistory) Count(t ActivityType) int {
	return h[t]
}
