package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseEnums(t *testing.T) {
	typ, err := ParseActivityType(" Learning ")
	require.NoError(t, err)
	require.Equal(t, ActivityTypeLearning, typ)

	_, err = ParseActivityType("learning")
	require.True(t, errors.Is(err, ErrInvalidInput))

	tod, err := ParseTimeOfDay("Any")
	require.NoError(t, err)
	require.Equal(t, TimeOfDayAny, tod)

	_, err = ParsePriority("Urgent")
	require.True(t, errors.Is(err, ErrInvalidInput))

	require.Len(t, ActivityTypes(), 10)
}

func TestEnumsRejectUnknownValuesWhenDecoding(t *testing.T) {
	var payload struct {
		Type     ActivityType `json:"type"`
		Priority Priority     `json:"priority"`
	}
	err := json.Unmarshal([]byte(`{"type":"Exercise","priority":"Highest"}`), &payload)
	require.True(t, errors.Is(err, ErrInvalidInput))

	require.NoError(t, json.Unmarshal([]byte(`{"type":"Family","priority":"Low"}`), &payload))
	require.Equal(t, ActivityTypeFamily, payload.Type)
	require.Equal(t, PriorityLow, payload.Priority)
}

func TestEnumsDecodeEmptyValueAsZero(t *testing.T) {
	payload := struct {
		Type      ActivityType `json:"type"`
		TimeOfDay TimeOfDay    `json:"time_of_day"`
		Priority  Priority     `json:"priority"`
	}{Type: ActivityTypeFamily, TimeOfDay: TimeOfDayEvening, Priority: PriorityHigh}

	require.NoError(t, json.Unmarshal([]byte(`{"type":"","time_of_day":" ","priority":""}`), &payload))
	require.Equal(t, ActivityType(""), payload.Type)
	require.Equal(t, TimeOfDay(""), payload.TimeOfDay)
	require.Equal(t, Priority(""), payload.Priority)
}

func TestActivityValidate(t *testing.T) {
	valid := catalogEntry("walk", ActivityTypeRelaxation, 20, TimeOfDayAny, PriorityLow)
	require.NoError(t, valid.Validate())

	cases := map[string]func(*Activity){
		"blank title":    func(a *Activity) { a.Title = "  " },
		"unknown type":   func(a *Activity) { a.Type = "Napping" },
		"too short":      func(a *Activity) { a.DurationMin = MinActivityDuration - 1 },
		"too long":       func(a *Activity) { a.DurationMin = MaxActivityDuration + 1 },
		"unknown bucket": func(a *Activity) { a.PreferredTimeOfDay = "Night" },
		"no priority":    func(a *Activity) { a.Priority = "" },
	}
	for name, mutate := range cases {
		activity := valid
		mutate(&activity)
		require.True(t, errors.Is(activity.Validate(), ErrInvalidInput), name)
	}
}

func TestCloneIsDeep(t *testing.T) {
	last := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC)
	activity := catalogEntry("walk", ActivityTypeRelaxation, 20, TimeOfDayAny, PriorityLow)
	activity.LastScheduled = &last
	activity.CompletionHistory = []Completion{{Date: last, DurationMin: 20, Completed: true}}

	clone := activity.Clone()
	*clone.LastScheduled = last.Add(time.Hour)
	clone.CompletionHistory[0].Completed = false

	require.Equal(t, last, *activity.LastScheduled)
	require.True(t, activity.CompletionHistory[0].Completed)
}

func TestBuildTypeHistory(t *testing.T) {
	completion := func(days int, completed bool) Completion {
		return Completion{Date: rankNow.Add(-time.Duration(days) * 24 * time.Hour), Completed: completed}
	}
	run := catalogEntry("run", ActivityTypeExercise, 30, TimeOfDayAny, PriorityLow)
	run.CompletionHistory = []Completion{completion(1, true), completion(7, true), completion(8, true), completion(2, false)}
	swim := catalogEntry("swim", ActivityTypeExercise, 30, TimeOfDayAny, PriorityLow)
	swim.CompletionHistory = []Completion{completion(3, true)}
	read := catalogEntry("read", ActivityTypeLearning, 30, TimeOfDayAny, PriorityLow)

	history := BuildTypeHistory([]Activity{run, swim, read}, rankNow)
	require.Equal(t, 3, history.Count(ActivityTypeExercise))
	require.Equal(t, 0, history.Count(ActivityTypeLearning))
	require.Equal(t, 0, history.Count(ActivityTypeWork))
}
