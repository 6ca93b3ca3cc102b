package domain

import "errors"

var (
	// ErrInvalidInput marks malformed intervals, durations or activity fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAdaptationInfeasible is returned when the available time is below MinAdaptedDuration.
	ErrAdaptationInfeasible = errors.New("cannot adapt activity to such a short duration")
	// ErrActivityNotFound is returned when an activity cannot be located.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrSlotNotFound is returned when a free time slot cannot be located.
	ErrSlotNotFound = errors.New("free time slot not found")
	// ErrScheduleNotFound is returned when a schedule cannot be located.
	ErrScheduleNotFound = errors.New("schedule not found")
)
