package domain_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/freetime/internal/domain"
	"example.com/freetime/internal/events"
	"example.com/freetime/internal/persistence"
	"example.com/freetime/internal/persistence/memory"
)

const (
	tenant = "tenant-1"
	user   = "user-1"
)

var serviceNow = time.Date(2025, time.June, 2, 7, 30, 0, 0, time.UTC)

type recordingCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	gets        int
	invalidated int
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string][]byte)}
}

func (c *recordingCache) Get(_ context.Context, tenantID, userID, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	value, ok := c.entries[tenantID+userID+key]
	return value, ok, nil
}

func (c *recordingCache) Set(_ context.Context, tenantID, userID, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tenantID+userID+key] = value
	return nil
}

func (c *recordingCache) InvalidateUser(context.Context, string, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.entries = make(map[string][]byte)
	return nil
}

func newService(t *testing.T, opts ...domain.ServiceOption) (*domain.Service, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	opts = append([]domain.ServiceOption{domain.WithServiceClock(func() time.Time { return serviceNow })}, opts...)
	return domain.NewService(repo, opts...), repo
}

func mustCreate(t *testing.T, svc *domain.Service, title string, typ domain.ActivityType, duration int) *domain.Activity {
	t.Helper()
	activity, err := svc.CreateActivity(context.Background(), domain.CreateActivityInput{
		TenantID:    tenant,
		UserID:      user,
		Title:       title,
		Type:        typ,
		DurationMin: duration,
	})
	require.NoError(t, err)
	return activity
}

func TestCreateActivityAppliesDefaultsAndValidates(t *testing.T) {
	svc, _ := newService(t)

	activity := mustCreate(t, svc, "  Guitar  ", domain.ActivityTypeHobby, 25)
	require.Equal(t, "Guitar", activity.Title)
	require.Equal(t, domain.TimeOfDayAny, activity.PreferredTimeOfDay)
	require.Equal(t, domain.PriorityMedium, activity.Priority)
	require.Empty(t, activity.CompletionHistory)
	require.Equal(t, serviceNow, activity.CreatedAt)

	_, err := svc.CreateActivity(context.Background(), domain.CreateActivityInput{TenantID: tenant, UserID: user, Title: "x", Type: "Nope", DurationMin: 10})
	require.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestListActivitiesClampsLimit(t *testing.T) {
	svc, _ := newService(t)
	for i := 0; i < domain.DefaultPageSize+1; i++ {
		mustCreate(t, svc, "Chore", domain.ActivityTypeChores, 10)
	}

	page, next, err := svc.ListActivities(context.Background(), tenant, user, nil, 0)
	require.NoError(t, err)
	require.Len(t, page, domain.DefaultPageSize)
	require.NotNil(t, next)

	page, _, err = svc.ListActivities(context.Background(), tenant, user, nil, 1000)
	require.NoError(t, err)
	require.Len(t, page, domain.DefaultPageSize+1)
}

func TestActivityOwnershipIsEnforced(t *testing.T) {
	svc, _ := newService(t)
	activity := mustCreate(t, svc, "Yoga", domain.ActivityTypeExercise, 30)

	_, err := svc.GetActivity(context.Background(), tenant, "someone-else", activity.ID)
	require.True(t, errors.Is(err, domain.ErrActivityNotFound))

	_, err = svc.GetActivity(context.Background(), "tenant-2", user, activity.ID)
	require.True(t, errors.Is(err, domain.ErrActivityNotFound))

	_, err = svc.AdaptActivity(context.Background(), tenant, "someone-else", activity.ID, 20)
	require.True(t, errors.Is(err, domain.ErrActivityNotFound))
}

func TestCompleteActivityFeedsRanking(t *testing.T) {
	svc, _ := newService(t)
	run := mustCreate(t, svc, "Run", domain.ActivityTypeExercise, 30)
	mustCreate(t, svc, "Course", domain.ActivityTypeLearning, 30)

	for i := 0; i < 2; i++ {
		_, err := svc.CompleteActivity(context.Background(), tenant, user, run.ID, 30, true)
		require.NoError(t, err)
	}

	_, err := svc.CompleteActivity(context.Background(), tenant, user, run.ID, -1, true)
	require.True(t, errors.Is(err, domain.ErrInvalidInput))

	suggestions, err := svc.SuggestForDuration(context.Background(), tenant, user, 30, domain.TimeOfDayMorning)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	require.Equal(t, "Course", suggestions[0].Activity.Title)
	require.NotContains(t, suggestions[1].Reason, "Balances activity types")
}

func TestSuggestForSlotStoresSuggestionsAndEmitsEvent(t *testing.T) {
	svc, repo := newService(t)
	mustCreate(t, svc, "Stretch", domain.ActivityTypeRelaxation, 15)

	slot, err := svc.CreateFreeTimeSlot(context.Background(), domain.CreateSlotInput{
		TenantID: tenant,
		UserID:   user,
		Start:    serviceNow.Add(time.Hour),
		End:      serviceNow.Add(90 * time.Minute),
	})
	require.NoError(t, err)
	require.Equal(t, domain.SlotSourceManual, slot.Source)
	require.False(t, slot.Processed)

	suggestions, err := svc.SuggestForSlot(context.Background(), tenant, user, slot.ID)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)

	stored, err := svc.GetFreeTimeSlot(context.Background(), tenant, user, slot.ID)
	require.NoError(t, err)
	require.True(t, stored.Processed)
	require.Equal(t, suggestions[0].Score, stored.Suggestions[0].Score)

	recorded := repo.Events()
	require.Len(t, recorded, 1)
	require.Equal(t, persistence.EventSuggestionsGenerated, recorded[0].Type)
	payload, ok := recorded[0].Payload.(events.SuggestionsGenerated)
	require.True(t, ok)
	require.Equal(t, slot.ID, payload.SlotID)
	require.Equal(t, 30, payload.DurationMin)
}

func TestCreateFreeTimeSlotRejectsUnknownSource(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CreateFreeTimeSlot(context.Background(), domain.CreateSlotInput{
		TenantID: tenant,
		UserID:   user,
		Start:    serviceNow,
		End:      serviceNow.Add(time.Hour),
		Source:   "outlook",
	})
	require.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestDetectFreeTimeDefaultsWindow(t *testing.T) {
	svc, repo := newService(t)

	slots, err := svc.DetectFreeTime(context.Background(), domain.DetectInput{
		TenantID: tenant,
		UserID:   user,
		Busy: []domain.BusyPeriod{
			{Start: serviceNow.Add(time.Hour), End: serviceNow.Add(2 * time.Hour)},
		},
	})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.Equal(t, serviceNow, slots[0].Interval.Start)
	require.Equal(t, serviceNow.Add(domain.DefaultDetectionWindow), slots[1].Interval.End)

	recorded := repo.Events()
	require.Len(t, recorded, 1)
	require.Equal(t, persistence.EventFreeTimeDetected, recorded[0].Type)

	listed, err := svc.ListFreeTimeSlots(context.Background(), tenant, user)
	require.NoError(t, err)
	require.Len(t, listed, 2)
}

func TestDetectFreeTimeWithoutGapsStoresNothing(t *testing.T) {
	svc, repo := newService(t)

	slots, err := svc.DetectFreeTime(context.Background(), domain.DetectInput{
		TenantID:    tenant,
		UserID:      user,
		WindowStart: serviceNow,
		WindowEnd:   serviceNow.Add(time.Hour),
		Busy:        []domain.BusyPeriod{{Start: serviceNow.Add(-time.Hour), End: serviceNow.Add(2 * time.Hour)}},
	})
	require.NoError(t, err)
	require.Empty(t, slots)
	require.Empty(t, repo.Events())
}

func TestAdaptActivityRecordsOnlyRealAdaptations(t *testing.T) {
	svc, repo := newService(t)
	run := mustCreate(t, svc, "Run", domain.ActivityTypeExercise, 60)

	result, err := svc.AdaptActivity(context.Background(), tenant, user, run.ID, 60)
	require.NoError(t, err)
	require.False(t, result.Adapted)
	require.Empty(t, repo.Events())

	_, err = svc.AdaptActivity(context.Background(), tenant, user, run.ID, 5)
	require.True(t, errors.Is(err, domain.ErrAdaptationInfeasible))

	result, err = svc.AdaptActivity(context.Background(), tenant, user, run.ID, 30)
	require.NoError(t, err)
	require.True(t, result.Adapted)
	recorded := repo.Events()
	require.Len(t, recorded, 1)
	require.Equal(t, persistence.EventActivityAdapted, recorded[0].Type)

	stored, err := svc.GetActivity(context.Background(), tenant, user, run.ID)
	require.NoError(t, err)
	require.Equal(t, 60, stored.DurationMin)
}

func TestSuggestForDurationUsesCache(t *testing.T) {
	cache := newRecordingCache()
	svc, _ := newService(t, domain.WithCache(cache))
	mustCreate(t, svc, "Read", domain.ActivityTypeLearning, 20)

	first, err := svc.SuggestForDuration(context.Background(), tenant, user, 30, domain.TimeOfDayEvening)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Len(t, cache.entries, 1)

	second, err := svc.SuggestForDuration(context.Background(), tenant, user, 30, domain.TimeOfDayEvening)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, first[0].Activity.ID, second[0].Activity.ID)
	require.Equal(t, first[0].Score, second[0].Score)
	require.Equal(t, first[0].Reason, second[0].Reason)

	mustCreate(t, svc, "Walk", domain.ActivityTypeRelaxation, 20)
	require.Empty(t, cache.entries)

	third, err := svc.SuggestForDuration(context.Background(), tenant, user, 30, domain.TimeOfDayEvening)
	require.NoError(t, err)
	require.Len(t, third, 2)
}

func TestPreferencesDefaultsAndPartialUpdate(t *testing.T) {
	svc, _ := newService(t)

	prefs, err := svc.GetPreferences(context.Background(), tenant, user)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultPreferences(tenant, user), prefs)

	off := false
	updated, err := svc.UpdatePreferences(context.Background(), tenant, user, domain.UpdatePreferencesInput{BalancePriorities: &off})
	require.NoError(t, err)
	require.False(t, updated.BalancePriorities)
	require.Equal(t, 30, updated.DefaultActivityDuration)

	tooLong := domain.MaxActivityDuration + 1
	_, err = svc.UpdatePreferences(context.Background(), tenant, user, domain.UpdatePreferencesInput{DefaultActivityDuration: &tooLong})
	require.True(t, errors.Is(err, domain.ErrInvalidInput))

	reloaded, err := svc.GetPreferences(context.Background(), tenant, user)
	require.NoError(t, err)
	require.False(t, reloaded.BalancePriorities)
}

func TestCreateScheduleBumpsLastScheduled(t *testing.T) {
	svc, _ := newService(t)
	yoga := mustCreate(t, svc, "Yoga", domain.ActivityTypeExercise, 30)
	start := serviceNow.Add(24 * time.Hour)

	schedule, err := svc.CreateSchedule(context.Background(), domain.CreateScheduleInput{
		TenantID:   tenant,
		UserID:     user,
		ActivityID: yoga.ID,
		Start:      start,
		End:        start.Add(30 * time.Minute),
	})
	require.NoError(t, err)
	require.Equal(t, 30, schedule.DurationMin)
	require.Equal(t, domain.ScheduleStatusScheduled, schedule.Status)

	stored, err := svc.GetActivity(context.Background(), tenant, user, yoga.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastScheduled)
	require.Equal(t, serviceNow, *stored.LastScheduled)

	_, err = svc.CreateSchedule(context.Background(), domain.CreateScheduleInput{
		TenantID:       tenant,
		UserID:         user,
		ActivityID:     yoga.ID,
		FreeTimeSlotID: "missing",
		Start:          start,
		End:            start.Add(time.Hour),
	})
	require.True(t, errors.Is(err, domain.ErrSlotNotFound))

	_, err = svc.CreateSchedule(context.Background(), domain.CreateScheduleInput{TenantID: tenant, UserID: user, ActivityID: yoga.ID, Start: start, End: start})
	require.True(t, errors.Is(err, domain.ErrInvalidInput))

	listed, err := svc.ListSchedules(context.Background(), tenant, user, domain.ScheduleFilter{Status: domain.ScheduleStatusScheduled})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	_, err = svc.ListSchedules(context.Background(), tenant, user, domain.ScheduleFilter{Status: "paused"})
	require.True(t, errors.Is(err, domain.ErrInvalidInput))
}
