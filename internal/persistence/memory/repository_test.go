package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/freetime/internal/domain"
	"example.com/freetime/internal/events"
	"example.com/freetime/internal/persistence"
)

func newActivity(id string, created time.Time) domain.Activity {
	return domain.Activity{
		ID:                 id,
		TenantID:           "tenant",
		UserID:             "user",
		Title:              "Activity " + id,
		Type:               domain.ActivityTypeHobby,
		DurationMin:        30,
		PreferredTimeOfDay: domain.TimeOfDayAny,
		Priority:           domain.PriorityLow,
		CreatedAt:          created,
		UpdatedAt:          created,
	}
}

func TestListActivitiesPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.CreateActivity(ctx, newActivity(id, base.Add(time.Duration(i)*time.Minute))))
	}

	page, next, err := repo.ListActivities(ctx, "tenant", "user", nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "c", page[0].ID)
	require.Equal(t, "b", page[1].ID)
	require.NotNil(t, next)

	page, next, err = repo.ListActivities(ctx, "tenant", "user", next, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "a", page[0].ID)
	require.Nil(t, next)
}

func TestCatalogOldestFirstAndScoped(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateActivity(ctx, newActivity("late", base.Add(time.Hour))))
	require.NoError(t, repo.CreateActivity(ctx, newActivity("early", base)))
	other := newActivity("other", base)
	other.TenantID = "elsewhere"
	require.NoError(t, repo.CreateActivity(ctx, other))

	catalog, err := repo.Catalog(ctx, "tenant", "user")
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	require.Equal(t, "early", catalog[0].ID)

	missing, err := repo.GetActivity(ctx, "tenant", "other")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestGetActivityReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	activity := newActivity("a", time.Now())
	activity.CompletionHistory = []domain.Completion{{DurationMin: 10, Completed: true}}
	require.NoError(t, repo.CreateActivity(ctx, activity))

	got, err := repo.GetActivity(ctx, "tenant", "a")
	require.NoError(t, err)
	got.CompletionHistory[0].DurationMin = 99

	again, err := repo.GetActivity(ctx, "tenant", "a")
	require.NoError(t, err)
	require.Equal(t, 10, again.CompletionHistory[0].DurationMin)
}

func TestMutationsOnMissingRecords(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	require.ErrorIs(t, repo.UpdateActivity(ctx, newActivity("x", time.Now())), domain.ErrActivityNotFound)
	require.ErrorIs(t, repo.DeleteActivity(ctx, "tenant", "x"), domain.ErrActivityNotFound)
	require.ErrorIs(t, repo.DeleteSlot(ctx, "tenant", "x"), domain.ErrSlotNotFound)
	require.ErrorIs(t, repo.SaveSuggestions(ctx, domain.FreeTimeSlot{ID: "x", TenantID: "tenant"}, time.Now()), domain.ErrSlotNotFound)
}

func TestCreateScheduleChecksTenant(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	activity := newActivity("a1", time.Now())
	require.NoError(t, repo.CreateActivity(ctx, activity))

	foreign := activity
	foreign.TenantID = "other-tenant"
	schedule := domain.Schedule{ID: "s1", TenantID: "other-tenant", UserID: "user", ActivityID: "a1"}
	require.ErrorIs(t, repo.CreateSchedule(ctx, schedule, foreign), domain.ErrActivityNotFound)

	stored, err := repo.GetActivity(ctx, "tenant", "a1")
	require.NoError(t, err)
	require.Equal(t, "tenant", stored.TenantID)

	schedules, err := repo.ListSchedules(ctx, "other-tenant", "user", domain.ScheduleFilter{})
	require.NoError(t, err)
	require.Empty(t, schedules)
}

func TestSaveSuggestionsRecordsEvent(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	slot := domain.FreeTimeSlot{
		ID:       "slot",
		TenantID: "tenant",
		UserID:   "user",
		Interval: domain.FreeTimeInterval{Start: start, End: start.Add(time.Hour), DurationMin: 60},
		Source:   domain.SlotSourceManual,
	}
	require.NoError(t, repo.CreateSlot(ctx, slot))

	slot.Processed = true
	slot.Suggestions = []domain.StoredSuggestion{{ActivityID: "a", Score: 150, Reason: "r"}}
	require.NoError(t, repo.SaveSuggestions(ctx, slot, start))

	stored, err := repo.GetSlot(ctx, "tenant", "slot")
	require.NoError(t, err)
	require.True(t, stored.Processed)
	require.Len(t, stored.Suggestions, 1)

	recorded := repo.Events()
	require.Len(t, recorded, 1)
	require.Equal(t, persistence.EventSuggestionsGenerated, recorded[0].Type)
	payload, ok := recorded[0].Payload.(events.SuggestionsGenerated)
	require.True(t, ok)
	require.Equal(t, []string{"a"}, payload.ActivityIDs)
	require.Equal(t, []int{150}, payload.Scores)
}

func TestListSchedulesFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	activity := newActivity("a", time.Now())
	require.NoError(t, repo.CreateActivity(ctx, activity))

	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, status := range []domain.ScheduleStatus{domain.ScheduleStatusScheduled, domain.ScheduleStatusCompleted} {
		schedule := domain.Schedule{
			ID:         string(rune('a' + i)),
			TenantID:   "tenant",
			UserID:     "user",
			ActivityID: "a",
			Start:      base.Add(time.Duration(i) * 24 * time.Hour),
			End:        base.Add(time.Duration(i)*24*time.Hour + time.Hour),
			Status:     status,
		}
		require.NoError(t, repo.CreateSchedule(ctx, schedule, activity))
	}

	all, err := repo.ListSchedules(ctx, "tenant", "user", domain.ScheduleFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	completed, err := repo.ListSchedules(ctx, "tenant", "user", domain.ScheduleFilter{Status: domain.ScheduleStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)

	later, err := repo.ListSchedules(ctx, "tenant", "user", domain.ScheduleFilter{From: base.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, later, 1)
}
