// Package memory provides an in-process repository for local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"example.com/freetime/internal/domain"
	"example.com/freetime/internal/persistence"
)

// RecordedEvent is an event the repository would have written to the outbox.
type RecordedEvent struct {
	Type    string
	Payload any
}

// Repository stores everything in maps guarded by a single RWMutex.
type Repository struct {
	mu          sync.RWMutex
	activities  map[string]domain.Activity
	slots       map[string]domain.FreeTimeSlot
	preferences map[string]domain.UserPreferences
	schedules   map[string]domain.Schedule
	events      []RecordedEvent
}

var _ domain.Repository = (*Repository)(nil)

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		activities:  make(map[string]domain.Activity),
		slots:       make(map[string]domain.FreeTimeSlot),
		preferences: make(map[string]domain.UserPreferences),
		schedules:   make(map[string]domain.Schedule),
	}
}

// Events returns a copy of the recorded events in write order.
func (r *Repository) Events() []RecordedEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RecordedEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Repository) CreateActivity(_ context.Context, activity domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activities[activity.ID] = activity.Clone()
	return nil
}

func (r *Repository) GetActivity(_ context.Context, tenantID, activityID string) (*domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	activity, ok := r.activities[activityID]
	if !ok || activity.TenantID != tenantID {
		return nil, nil
	}
	clone := activity.Clone()
	return &clone, nil
}

// ListActivities pages newest first, keyed on (created_at, id).
func (r *Repository) ListActivities(_ context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	r.mu.RLock()
	owned := r.ownedActivities(tenantID, userID)
	r.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID > owned[j].ID
	})

	results := make([]domain.Activity, 0, limit)
	for _, activity := range owned {
		if cursor != nil && !before(activity, *cursor) {
			continue
		}
		if len(results) == limit {
			break
		}
		results = append(results, activity)
	}

	var next *domain.Cursor
	if limit > 0 && len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return results, next, nil
}

func before(a domain.Activity, c domain.Cursor) bool {
	if a.CreatedAt.Equal(c.CreatedAt) {
		return a.ID < c.ID
	}
	return a.CreatedAt.Before(c.CreatedAt)
}

// Catalog returns the user's activities oldest first.
func (r *Repository) Catalog(_ context.Context, tenantID, userID string) ([]domain.Activity, error) {
	r.mu.RLock()
	owned := r.ownedActivities(tenantID, userID)
	r.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.Before(owned[j].CreatedAt)
		}
		return owned[i].ID < owned[j].ID
	})
	return owned, nil
}

func (r *Repository) ownedActivities(tenantID, userID string) []domain.Activity {
	out := make([]domain.Activity, 0)
	for _, activity := range r.activities {
		if activity.TenantID == tenantID && activity.UserID == userID {
			out = append(out, activity.Clone())
		}
	}
	return out
}

func (r *Repository) UpdateActivity(_ context.Context, activity domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.activities[activity.ID]
	if !ok || existing.TenantID != activity.TenantID {
		return domain.ErrActivityNotFound
	}
	r.activities[activity.ID] = activity.Clone()
	return nil
}

func (r *Repository) DeleteActivity(_ context.Context, tenantID, activityID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.activities[activityID]
	if !ok || existing.TenantID != tenantID {
		return domain.ErrActivityNotFound
	}
	delete(r.activities, activityID)
	return nil
}

func (r *Repository) RecordAdaptation(_ context.Context, result domain.AdaptationResult, occurredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(persistence.EventActivityAdapted, persistence.ActivityAdapted(result, occurredAt))
	return nil
}

func (r *Repository) CreateSlot(_ context.Context, slot domain.FreeTimeSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[slot.ID] = cloneSlot(slot)
	return nil
}

func (r *Repository) CreateDetectedSlots(_ context.Context, detection domain.Detection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, slot := range detection.Slots {
		r.slots[slot.ID] = cloneSlot(slot)
	}
	r.record(persistence.EventFreeTimeDetected, persistence.FreeTimeDetected(detection))
	return nil
}

func (r *Repository) GetSlot(_ context.Context, tenantID, slotID string) (*domain.FreeTimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.slots[slotID]
	if !ok || slot.TenantID != tenantID {
		return nil, nil
	}
	clone := cloneSlot(slot)
	return &clone, nil
}

func (r *Repository) ListSlots(_ context.Context, tenantID, userID string) ([]domain.FreeTimeSlot, error) {
	r.mu.RLock()
	out := make([]domain.FreeTimeSlot, 0)
	for _, slot := range r.slots {
		if slot.TenantID == tenantID && slot.UserID == userID {
			out = append(out, cloneSlot(slot))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Interval.Start.Equal(out[j].Interval.Start) {
			return out[i].Interval.Start.Before(out[j].Interval.Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Repository) DeleteSlot(_ context.Context, tenantID, slotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[slotID]
	if !ok || slot.TenantID != tenantID {
		return domain.ErrSlotNotFound
	}
	delete(r.slots, slotID)
	return nil
}

func (r *Repository) SaveSuggestions(_ context.Context, slot domain.FreeTimeSlot, generatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.slots[slot.ID]
	if !ok || existing.TenantID != slot.TenantID {
		return domain.ErrSlotNotFound
	}
	r.slots[slot.ID] = cloneSlot(slot)
	r.record(persistence.EventSuggestionsGenerated, persistence.SuggestionsGenerated(slot, generatedAt))
	return nil
}

func (r *Repository) GetPreferences(_ context.Context, tenantID, userID string) (*domain.UserPreferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefs, ok := r.preferences[userKey(tenantID, userID)]
	if !ok {
		return nil, nil
	}
	return &prefs, nil
}

func (r *Repository) SavePreferences(_ context.Context, prefs domain.UserPreferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preferences[userKey(prefs.TenantID, prefs.UserID)] = prefs
	return nil
}

func (r *Repository) CreateSchedule(_ context.Context, schedule domain.Schedule, activity domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.activities[activity.ID]
	if !ok || existing.TenantID != activity.TenantID {
		return domain.ErrActivityNotFound
	}
	r.schedules[schedule.ID] = schedule
	r.activities[activity.ID] = activity.Clone()
	return nil
}

func (r *Repository) ListSchedules(_ context.Context, tenantID, userID string, filter domain.ScheduleFilter) ([]domain.Schedule, error) {
	r.mu.RLock()
	out := make([]domain.Schedule, 0)
	for _, schedule := range r.schedules {
		if schedule.TenantID == tenantID && schedule.UserID == userID && filter.Matches(schedule) {
			out = append(out, schedule)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// record must be called with the write lock held.
func (r *Repository) record(eventType string, payload any) {
	r.events = append(r.events, RecordedEvent{Type: eventType, Payload: payload})
}

func cloneSlot(slot domain.FreeTimeSlot) domain.FreeTimeSlot {
	out := slot
	if slot.Suggestions != nil {
		out.Suggestions = make([]domain.StoredSuggestion, len(slot.Suggestions))
		copy(out.Suggestions, slot.Suggestions)
	}
	return out
}

func userKey(tenantID, userID string) string {
	return tenantID + "/" + userID
}
