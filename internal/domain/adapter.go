package domain

import "fmt"

// MinAdaptedDuration is the shortest duration, in minutes, an activity can be shrunk to.
const MinAdaptedDuration = 10

// AdaptationResult describes the outcome of Adapt. When Adapted is false Activity
// equals Original.
type AdaptationResult struct {
	Adapted  bool     `json:"adaptation_needed"`
	Original Activity `json:"original"`
	Activity Activity `json:"adapted"`
}

// Message is a short human-readable summary of the result.
func (r AdaptationResult) Message() string {
	if !r.Adapted {
		return "Activity already fits within available time"
	}
	return fmt.Sprintf("Activity adapted from %d to %d minutes", r.Original.DurationMin, r.Activity.DurationMin)
}

// Adapt shrinks activity to availableMin minutes. It returns ErrInvalidInput for a
// non-positive duration and ErrAdaptationInfeasible when availableMin is below
// MinAdaptedDuration. An activity that already fits is returned untouched.
func Adapt(activity Activity, availableMin int) (AdaptationResult, error) {
	if availableMin <= 0 {
		return AdaptationResult{}, fmt.Errorf("%w: available duration must be positive", ErrInvalidInput)
	}
	if availableMin >= activity.DurationMin {
		return AdaptationResult{Adapted: false, Original: activity, Activity: activity}, nil
	}
	if availableMin < MinAdaptedDuration {
		return AdaptationResult{}, fmt.Errorf("%w: %d minutes is below the %d minute minimum", ErrAdaptationInfeasible, availableMin, MinAdaptedDuration)
	}

	adapted := activity.Clone()
	adapted.OriginalDurationMin = activity.DurationMin
	adapted.DurationMin = availableMin
	adapted.AdaptationReason = fmt.Sprintf("Adapted to fit %d minutes of available time", availableMin)

	return AdaptationResult{Adapted: true, Original: activity, Activity: adapted}, nil
}
