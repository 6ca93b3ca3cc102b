package domain

import (
	"fmt"
	"math"
	"time"
)

// BucketForHour maps an hour of day onto Morning [5,12), Afternoon [12,17) or Evening.
// Any is never returned.
func BucketForHour(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return TimeOfDayMorning
	case hour >= 12 && hour < 17:
		return TimeOfDayAfternoon
	default:
		return TimeOfDayEvening
	}
}

// BucketFor returns the bucket of t in t's own location.
func BucketFor(t time.Time) TimeOfDay {
	return BucketForHour(t.Hour())
}

// nominalHours anchors duration-only requests inside the requested bucket.
var nominalHours = map[TimeOfDay]int{
	TimeOfDayMorning:   9,
	TimeOfDayAfternoon: 14,
	TimeOfDayEvening:   19,
}

// FreeTimeInterval is the slot the ranker tries to fill.
type FreeTimeInterval struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	DurationMin int       `json:"duration_min"`
}

// NewFreeTimeInterval derives the duration from start and end, rounded to whole minutes.
func NewFreeTimeInterval(start, end time.Time) (FreeTimeInterval, error) {
	if !end.After(start) {
		return FreeTimeInterval{}, fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}
	interval := FreeTimeInterval{
		Start:       start,
		End:         end,
		DurationMin: roundMinutes(end.Sub(start)),
	}
	if interval.DurationMin <= 0 {
		return FreeTimeInterval{}, fmt.Errorf("%w: interval shorter than one minute", ErrInvalidInput)
	}
	return interval, nil
}

// NominalInterval builds an interval when only a duration is known. The start is now,
// or the bucket's anchor hour on now's day when a concrete bucket is requested.
func NominalInterval(now time.Time, durationMin int, hint TimeOfDay) (FreeTimeInterval, error) {
	if durationMin <= 0 {
		return FreeTimeInterval{}, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	start := now
	if hour, ok := nominalHours[hint]; ok {
		y, m, d := now.Date()
		start = time.Date(y, m, d, hour, 0, 0, 0, now.Location())
	}
	return FreeTimeInterval{
		Start:       start,
		End:         start.Add(time.Duration(durationMin) * time.Minute),
		DurationMin: durationMin,
	}, nil
}

// Bucket returns the time-of-day bucket of the interval start.
func (i FreeTimeInterval) Bucket() TimeOfDay {
	return BucketFor(i.Start)
}

// Validate rejects non-positive durations.
func (i FreeTimeInterval) Validate() error {
	if i.DurationMin <= 0 {
		return fmt.Errorf("%w: interval duration must be positive", ErrInvalidInput)
	}
	return nil
}

func roundMinutes(d time.Duration) int {
	return int(math.Floor(d.Minutes() + 0.5))
}
