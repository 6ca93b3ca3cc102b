package persistence

import (
	"time"

	"example.com/freetime/internal/domain"
	"example.com/freetime/internal/events"
)

// Event types written to the outbox.
const (
	EventSuggestionsGenerated = "suggestion.generated"
	EventActivityAdapted      = "activity.adapted"
	EventFreeTimeDetected     = "freetime.detected"
)

// SuggestionsGenerated builds the payload for a slot whose suggestions were refreshed.
func SuggestionsGenerated(slot domain.FreeTimeSlot, generatedAt time.Time) events.SuggestionsGenerated {
	ids := make([]string, 0, len(slot.Suggestions))
	scores := make([]int, 0, len(slot.Suggestions))
	for _, s := range slot.Suggestions {
		ids = append(ids, s.ActivityID)
		scores = append(scores, s.Score)
	}
	return events.SuggestionsGenerated{
		SlotID:      slot.ID,
		TenantID:    slot.TenantID,
		UserID:      slot.UserID,
		ActivityIDs: ids,
		Scores:      scores,
		SlotStart:   slot.Interval.Start,
		DurationMin: slot.Interval.DurationMin,
		GeneratedAt: generatedAt,
	}
}

// ActivityAdapted builds the payload for an adaptation.
func ActivityAdapted(result domain.AdaptationResult, occurredAt time.Time) events.ActivityAdapted {
	return events.ActivityAdapted{
		ActivityID:          result.Original.ID,
		TenantID:            result.Original.TenantID,
		UserID:              result.Original.UserID,
		OriginalDurationMin: result.Original.DurationMin,
		AdaptedDurationMin:  result.Activity.DurationMin,
		Reason:              result.Activity.AdaptationReason,
		OccurredAt:          occurredAt,
	}
}

// FreeTimeDetected builds the payload for a detection run.
func FreeTimeDetected(detection domain.Detection) events.FreeTimeDetected {
	ids := make([]string, 0, len(detection.Slots))
	for _, slot := range detection.Slots {
		ids = append(ids, slot.ID)
	}
	return events.FreeTimeDetected{
		TenantID:    detection.TenantID,
		UserID:      detection.UserID,
		SlotIDs:     ids,
		WindowStart: detection.WindowStart,
		WindowEnd:   detection.WindowEnd,
		DetectedAt:  detection.DetectedAt,
	}
}
