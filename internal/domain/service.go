// Package domain defines the suggestion engine and the workflows around it.
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/freetime/internal/cache"
	"example.com/freetime/internal/observability"
)

// Cursor models the pagination token for activity listings.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// ActivityRepository captures activity persistence. Get returns nil, nil when missing.
type ActivityRepository interface {
	CreateActivity(ctx context.Context, activity Activity) error
	GetActivity(ctx context.Context, tenantID, activityID string) (*Activity, error)
	ListActivities(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error)
	Catalog(ctx context.Context, tenantID, userID string) ([]Activity, error)
	UpdateActivity(ctx context.Context, activity Activity) error
	DeleteActivity(ctx context.Context, tenantID, activityID string) error
	RecordAdaptation(ctx context.Context, result AdaptationResult, occurredAt time.Time) error
}

// Detection groups slots found in one detection run.
type Detection struct {
	TenantID    string
	UserID      string
	WindowStart time.Time
	WindowEnd   time.Time
	Slots       []FreeTimeSlot
	DetectedAt  time.Time
}

// FreeTimeRepository captures free time slot persistence. GetSlot returns nil, nil when missing.
type FreeTimeRepository interface {
	CreateSlot(ctx context.Context, slot FreeTimeSlot) error
	CreateDetectedSlots(ctx context.Context, detection Detection) error
	GetSlot(ctx context.Context, tenantID, slotID string) (*FreeTimeSlot, error)
	ListSlots(ctx context.Context, tenantID, userID string) ([]FreeTimeSlot, error)
	DeleteSlot(ctx context.Context, tenantID, slotID string) error
	SaveSuggestions(ctx context.Context, slot FreeTimeSlot, generatedAt time.Time) error
}

// PreferenceRepository captures preference persistence. Get returns nil, nil when unset.
type PreferenceRepository interface {
	GetPreferences(ctx context.Context, tenantID, userID string) (*UserPreferences, error)
	SavePreferences(ctx context.Context, prefs UserPreferences) error
}

// ScheduleRepository captures schedule persistence. CreateSchedule also stores the
// activity with its refreshed LastScheduled.
type ScheduleRepository interface {
	CreateSchedule(ctx context.Context, schedule Schedule, activity Activity) error
	ListSchedules(ctx context.Context, tenantID, userID string, filter ScheduleFilter) ([]Schedule, error)
}

// Repository is the full persistence surface used by Service.
type Repository interface {
	ActivityRepository
	FreeTimeRepository
	PreferenceRepository
	ScheduleRepository
}

// ServiceOption configures optional Service behaviour.
type ServiceOption func(*Service)

// WithCache enables suggestion caching for duration-only requests.
func WithCache(c cache.SuggestionCache) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithServiceClock overrides the time source.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithLogger overrides the logger used for non-fatal errors.
func WithLogger(logger *log.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service orchestrates catalog, free time and suggestion workflows.
type Service struct {
	repo   Repository
	cache  cache.SuggestionCache
	now    func() time.Time
	logger *log.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		cache:  cache.NoopCache{},
		now:    time.Now,
		logger: log.New(log.Writer(), "[domain] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ranker() *Ranker {
	return NewRanker(WithClock(s.now))
}

// CreateActivityInput captures the payload from the API layer.
type CreateActivityInput struct {
	TenantID           string
	UserID             string
	Title              string
	Type               ActivityType
	DurationMin        int
	PreferredTimeOfDay TimeOfDay
	Priority           Priority
}

// CreateActivity validates and stores a new catalog entry.
func (s *Service) CreateActivity(ctx context.Context, input CreateActivityInput) (*Activity, error) {
	now := s.now().UTC()
	activity := Activity{
		ID:                 uuid.NewString(),
		TenantID:           input.TenantID,
		UserID:             input.UserID,
		Title:              strings.TrimSpace(input.Title),
		Type:               input.Type,
		DurationMin:        input.DurationMin,
		PreferredTimeOfDay: input.PreferredTimeOfDay,
		Priority:           input.Priority,
		CompletionHistory:  []Completion{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if activity.PreferredTimeOfDay == "" {
		activity.PreferredTimeOfDay = TimeOfDayAny
	}
	if activity.Priority == "" {
		activity.Priority = PriorityMedium
	}
	if err := activity.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.CreateActivity(ctx, activity); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	s.invalidate(ctx, input.TenantID, input.UserID)
	return &activity, nil
}

// GetActivity fetches an activity owned by the user.
func (s *Service) GetActivity(ctx context.Context, tenantID, userID, activityID string) (*Activity, error) {
	activity, err := s.repo.GetActivity(ctx, tenantID, activityID)
	if err != nil {
		return nil, err
	}
	if activity == nil || activity.UserID != userID {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

// Page size bounds for ListActivities.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListActivities pages through the user's catalog, newest first.
func (s *Service) ListActivities(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]Activity, *Cursor, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return s.repo.ListActivities(ctx, tenantID, userID, cursor, limit)
}

// UpdateActivityInput carries a partial update; nil fields are left unchanged.
type UpdateActivityInput struct {
	Title              *string
	Type               *ActivityType
	DurationMin        *int
	PreferredTimeOfDay *TimeOfDay
	Priority           *Priority
}

// UpdateActivity applies a partial update.
func (s *Service) UpdateActivity(ctx context.Context, tenantID, userID, activityID string, input UpdateActivityInput) (*Activity, error) {
	activity, err := s.GetActivity(ctx, tenantID, userID, activityID)
	if err != nil {
		return nil, err
	}
	updated := activity.Clone()
	if input.Title != nil {
		updated.Title = strings.TrimSpace(*input.Title)
	}
	if input.Type != nil {
		updated.Type = *input.Type
	}
	if input.DurationMin != nil {
		updated.DurationMin = *input.DurationMin
	}
	if input.PreferredTimeOfDay != nil {
		updated.PreferredTimeOfDay = *input.PreferredTimeOfDay
	}
	if input.Priority != nil {
		updated.Priority = *input.Priority
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	updated.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateActivity(ctx, updated); err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	s.invalidate(ctx, tenantID, userID)
	return &updated, nil
}

// DeleteActivity removes an activity from the catalog.
func (s *Service) DeleteActivity(ctx context.Context, tenantID, userID, activityID string) error {
	if _, err := s.GetActivity(ctx, tenantID, userID, activityID); err != nil {
		return err
	}
	if err := s.repo.DeleteActivity(ctx, tenantID, activityID); err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	s.invalidate(ctx, tenantID, userID)
	return nil
}

// CompleteActivity appends a completion entry and marks the activity as just scheduled.
func (s *Service) CompleteActivity(ctx context.Context, tenantID, userID, activityID string, durationMin int, completed bool) (*Activity, error) {
	if durationMin < 0 {
		return nil, fmt.Errorf("%w: duration_min must not be negative", ErrInvalidInput)
	}
	activity, err := s.GetActivity(ctx, tenantID, userID, activityID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	updated := activity.Clone()
	updated.CompletionHistory = append(updated.CompletionHistory, Completion{
		Date:        now,
		DurationMin: durationMin,
		Completed:   completed,
	})
	updated.LastScheduled = &now
	updated.UpdatedAt = now

	if err := s.repo.UpdateActivity(ctx, updated); err != nil {
		return nil, fmt.Errorf("complete activity: %w", err)
	}
	s.invalidate(ctx, tenantID, userID)
	return &updated, nil
}

// CreateSlotInput captures a manually entered free time slot.
type CreateSlotInput struct {
	TenantID string
	UserID   string
	Start    time.Time
	End      time.Time
	Source   SlotSource
}

// CreateFreeTimeSlot stores a slot after deriving its duration.
func (s *Service) CreateFreeTimeSlot(ctx context.Context, input CreateSlotInput) (*FreeTimeSlot, error) {
	interval, err := NewFreeTimeInterval(input.Start.UTC(), input.End.UTC())
	if err != nil {
		return nil, err
	}
	source := input.Source
	if source == "" {
		source = SlotSourceManual
	}
	if !source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, source)
	}

	slot := FreeTimeSlot{
		ID:          uuid.NewString(),
		TenantID:    input.TenantID,
		UserID:      input.UserID,
		Interval:    interval,
		Source:      source,
		Suggestions: []StoredSuggestion{},
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}
	return &slot, nil
}

// GetFreeTimeSlot fetches a slot owned by the user.
func (s *Service) GetFreeTimeSlot(ctx context.Context, tenantID, userID, slotID string) (*FreeTimeSlot, error) {
	slot, err := s.repo.GetSlot(ctx, tenantID, slotID)
	if err != nil {
		return nil, err
	}
	if slot == nil || slot.UserID != userID {
		return nil, ErrSlotNotFound
	}
	return slot, nil
}

// ListFreeTimeSlots returns the user's slots ordered by start.
func (s *Service) ListFreeTimeSlots(ctx context.Context, tenantID, userID string) ([]FreeTimeSlot, error) {
	return s.repo.ListSlots(ctx, tenantID, userID)
}

// DeleteFreeTimeSlot removes a slot.
func (s *Service) DeleteFreeTimeSlot(ctx context.Context, tenantID, userID, slotID string) error {
	if _, err := s.GetFreeTimeSlot(ctx, tenantID, userID, slotID); err != nil {
		return err
	}
	return s.repo.DeleteSlot(ctx, tenantID, slotID)
}

// DetectInput describes a calendar window and the busy periods inside it.
type DetectInput struct {
	TenantID       string
	UserID         string
	WindowStart    time.Time
	WindowEnd      time.Time
	MinDurationMin int
	Busy           []BusyPeriod
}

// DetectFreeTime finds gaps between busy periods and stores each as a slot.
func (s *Service) DetectFreeTime(ctx context.Context, input DetectInput) ([]FreeTimeSlot, error) {
	now := s.now().UTC()
	start := input.WindowStart.UTC()
	if start.IsZero() {
		start = now
	}
	end := input.WindowEnd.UTC()
	if end.IsZero() {
		end = start.Add(DefaultDetectionWindow)
	}
	minDuration := input.MinDurationMin
	if minDuration <= 0 {
		minDuration = DefaultMinFreeTimeMinute
	}

	intervals, err := FindFreeSlots(start, end, input.Busy, minDuration)
	if err != nil {
		return nil, err
	}

	slots := make([]FreeTimeSlot, 0, len(intervals))
	for _, interval := range intervals {
		slots = append(slots, FreeTimeSlot{
			ID:          uuid.NewString(),
			TenantID:    input.TenantID,
			UserID:      input.UserID,
			Interval:    interval,
			Source:      SlotSourceGoogleCalendar,
			Suggestions: []StoredSuggestion{},
			CreatedAt:   now,
		})
	}
	if len(slots) == 0 {
		return slots, nil
	}

	if err := s.repo.CreateDetectedSlots(ctx, Detection{
		TenantID:    input.TenantID,
		UserID:      input.UserID,
		WindowStart: start,
		WindowEnd:   end,
		Slots:       slots,
		DetectedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("store detected slots: %w", err)
	}
	observability.RecordSlotsDetected(len(slots))
	return slots, nil
}

// SuggestForSlot ranks the user's catalog for a stored slot and saves the result on it.
func (s *Service) SuggestForSlot(ctx context.Context, tenantID, userID, slotID string) ([]Suggestion, error) {
	slot, err := s.GetFreeTimeSlot(ctx, tenantID, userID, slotID)
	if err != nil {
		return nil, err
	}
	suggestions, err := s.rank(ctx, tenantID, userID, slot.Interval)
	if err != nil {
		return nil, err
	}

	stored := make([]StoredSuggestion, 0, len(suggestions))
	for _, suggestion := range suggestions {
		stored = append(stored, StoredSuggestion{
			ActivityID: suggestion.Activity.ID,
			Score:      suggestion.Score,
			Reason:     suggestion.Reason,
		})
	}
	slot.Suggestions = stored
	slot.Processed = true

	generatedAt := s.now().UTC()
	if err := s.repo.SaveSuggestions(ctx, *slot, generatedAt); err != nil {
		return nil, fmt.Errorf("save suggestions: %w", err)
	}
	observability.RecordSuggestionsSaved(generatedAt)
	return suggestions, nil
}

// SuggestForDuration ranks the user's catalog for a nominal interval of durationMin
// minutes. hint may be empty or Any to start the interval now.
func (s *Service) SuggestForDuration(ctx context.Context, tenantID, userID string, durationMin int, hint TimeOfDay) ([]Suggestion, error) {
	now := s.now()
	interval, err := NominalInterval(now, durationMin, hint)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("duration:%d:%s:%s", durationMin, interval.Bucket(), now.UTC().Format("2006-01-02"))
	if cached, ok := s.cachedSuggestions(ctx, tenantID, userID, key); ok {
		return cached, nil
	}

	suggestions, err := s.rank(ctx, tenantID, userID, interval)
	if err != nil {
		return nil, err
	}
	s.storeSuggestions(ctx, tenantID, userID, key, suggestions)
	return suggestions, nil
}

func (s *Service) rank(ctx context.Context, tenantID, userID string, interval FreeTimeInterval) ([]Suggestion, error) {
	catalog, err := s.repo.Catalog(ctx, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	prefs, err := s.GetPreferences(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	suggestions, err := s.ranker().Rank(interval, catalog, prefs.Ranking())
	if err != nil {
		return nil, err
	}
	observability.ObserveRank(time.Since(start), len(suggestions))
	return suggestions, nil
}

// AdaptActivity shrinks a stored activity to the available duration. The adapted copy is
// not written back to the catalog; an activity.adapted event is recorded instead.
func (s *Service) AdaptActivity(ctx context.Context, tenantID, userID, activityID string, availableMin int) (AdaptationResult, error) {
	activity, err := s.GetActivity(ctx, tenantID, userID, activityID)
	if err != nil {
		return AdaptationResult{}, err
	}

	result, err := Adapt(*activity, availableMin)
	switch {
	case errors.Is(err, ErrAdaptationInfeasible):
		observability.RecordAdaptation(observability.OutcomeInfeasible)
		return AdaptationResult{}, err
	case err != nil:
		return AdaptationResult{}, err
	case !result.Adapted:
		observability.RecordAdaptation(observability.OutcomeNotNeeded)
		return result, nil
	}

	if err := s.repo.RecordAdaptation(ctx, result, s.now().UTC()); err != nil {
		return AdaptationResult{}, fmt.Errorf("record adaptation: %w", err)
	}
	observability.RecordAdaptation(observability.OutcomeAdapted)
	return result, nil
}

// GetPreferences returns stored preferences or the defaults.
func (s *Service) GetPreferences(ctx context.Context, tenantID, userID string) (UserPreferences, error) {
	prefs, err := s.repo.GetPreferences(ctx, tenantID, userID)
	if err != nil {
		return UserPreferences{}, fmt.Errorf("load preferences: %w", err)
	}
	if prefs == nil {
		return DefaultPreferences(tenantID, userID), nil
	}
	return *prefs, nil
}

// UpdatePreferencesInput carries a partial preference update.
type UpdatePreferencesInput struct {
	BalancePriorities       *bool
	DefaultActivityDuration *int
	PreferredTimeOfDay      *TimeOfDay
}

// UpdatePreferences applies a partial update.
func (s *Service) UpdatePreferences(ctx context.Context, tenantID, userID string, input UpdatePreferencesInput) (UserPreferences, error) {
	prefs, err := s.GetPreferences(ctx, tenantID, userID)
	if err != nil {
		return UserPreferences{}, err
	}
	if input.BalancePriorities != nil {
		prefs.BalancePriorities = *input.BalancePriorities
	}
	if input.DefaultActivityDuration != nil {
		prefs.DefaultActivityDuration = *input.DefaultActivityDuration
	}
	if input.PreferredTimeOfDay != nil {
		prefs.PreferredTimeOfDay = *input.PreferredTimeOfDay
	}
	if err := prefs.Validate(); err != nil {
		return UserPreferences{}, err
	}
	prefs.UpdatedAt = s.now().UTC()

	if err := s.repo.SavePreferences(ctx, prefs); err != nil {
		return UserPreferences{}, fmt.Errorf("save preferences: %w", err)
	}
	s.invalidate(ctx, tenantID, userID)
	return prefs, nil
}

// CreateScheduleInput captures a request to place an activity on the calendar.
type CreateScheduleInput struct {
	TenantID       string
	UserID         string
	ActivityID     string
	FreeTimeSlotID string
	Start          time.Time
	End            time.Time
	DurationMin    int
}

// CreateSchedule stores a schedule and bumps the activity's LastScheduled.
func (s *Service) CreateSchedule(ctx context.Context, input CreateScheduleInput) (*Schedule, error) {
	if !input.End.After(input.Start) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}
	activity, err := s.GetActivity(ctx, input.TenantID, input.UserID, input.ActivityID)
	if err != nil {
		return nil, err
	}
	if input.FreeTimeSlotID != "" {
		if _, err := s.GetFreeTimeSlot(ctx, input.TenantID, input.UserID, input.FreeTimeSlotID); err != nil {
			return nil, err
		}
	}

	duration := input.DurationMin
	if duration <= 0 {
		duration = roundMinutes(input.End.Sub(input.Start))
	}

	now := s.now().UTC()
	schedule := Schedule{
		ID:                  uuid.NewString(),
		TenantID:            input.TenantID,
		UserID:              input.UserID,
		ActivityID:          activity.ID,
		FreeTimeSlotID:      input.FreeTimeSlotID,
		Start:               input.Start.UTC(),
		End:                 input.End.UTC(),
		DurationMin:         duration,
		OriginalDurationMin: activity.DurationMin,
		Status:              ScheduleStatusScheduled,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	updated := activity.Clone()
	updated.LastScheduled = &now
	updated.UpdatedAt = now

	if err := s.repo.CreateSchedule(ctx, schedule, updated); err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}
	s.invalidate(ctx, input.TenantID, input.UserID)
	return &schedule, nil
}

// ListSchedules returns the user's schedules ordered by start.
func (s *Service) ListSchedules(ctx context.Context, tenantID, userID string, filter ScheduleFilter) ([]Schedule, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	return s.repo.ListSchedules(ctx, tenantID, userID, filter)
}

func (s *Service) cachedSuggestions(ctx context.Context, tenantID, userID, key string) ([]Suggestion, bool) {
	raw, ok, err := s.cache.Get(ctx, tenantID, userID, key)
	if err != nil {
		observability.RecordCacheLookup(observability.CacheError)
		s.logger.Printf("suggestion cache get failed (tenant=%s, user=%s): %v", tenantID, userID, err)
		return nil, false
	}
	if !ok {
		observability.RecordCacheLookup(observability.CacheMiss)
		return nil, false
	}
	var suggestions []Suggestion
	if err := json.Unmarshal(raw, &suggestions); err != nil {
		observability.RecordCacheLookup(observability.CacheError)
		return nil, false
	}
	observability.RecordCacheLookup(observability.CacheHit)
	return suggestions, true
}

func (s *Service) storeSuggestions(ctx context.Context, tenantID, userID, key string, suggestions []Suggestion) {
	raw, err := json.Marshal(suggestions)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, tenantID, userID, key, raw); err != nil {
		s.logger.Printf("suggestion cache set failed (tenant=%s, user=%s): %v", tenantID, userID, err)
	}
}

func (s *Service) invalidate(ctx context.Context, tenantID, userID string) {
	if err := s.cache.InvalidateUser(ctx, tenantID, userID); err != nil {
		s.logger.Printf("suggestion cache invalidation failed (tenant=%s, user=%s): %v", tenantID, userID, err)
	}
}
