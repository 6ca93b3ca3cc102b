package outbox

import (
	"time"

	"example.com/freetime/internal/domain"
)

func sampleSlot() domain.FreeTimeSlot {
	start := time.Date(2026, 2, 1, 14, 0, 0, 0, time.UTC)
	return domain.FreeTimeSlot{
		ID:          "slot",
		TenantID:    "t",
		UserID:      "u",
		Interval:    domain.FreeTimeInterval{Start: start, End: start.Add(time.Hour), DurationMin: 60},
		Suggestions: []domain.StoredSuggestion{{ActivityID: "a", Score: 160}},
	}
}

func sampleAdaptation() domain.AdaptationResult {
	original := domain.Activity{ID: "a", TenantID: "t", UserID: "u", DurationMin: 60}
	adapted := original
	adapted.DurationMin = 20
	adapted.AdaptationReason = "Adapted to fit 20 minutes of available time"
	return domain.AdaptationResult{Adapted: true, Original: original, Activity: adapted}
}

func sampleDetection() domain.Detection {
	slot := sampleSlot()
	return domain.Detection{
		TenantID:    "t",
		UserID:      "u",
		WindowStart: slot.Interval.Start,
		WindowEnd:   slot.Interval.End,
		Slots:       []domain.FreeTimeSlot{slot},
		DetectedAt:  slot.Interval.Start,
	}
}
