package memory

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"example.com/freetime/internal/domain"
)

// Seed is the YAML document accepted by LoadSeed.
//
//	tenant_id: 00000000-0000-0000-0000-000000000001
//	user_id: demo
//	activities:
//	  - title: Morning run
//	    type: Exercise
//	    duration_min: 30
//	    preferred_time_of_day: Morning
//	    priority: High
type Seed struct {
	TenantID   string         `yaml:"tenant_id"`
	UserID     string         `yaml:"user_id"`
	Activities []SeedActivity `yaml:"activities"`
}

// SeedActivity is one catalog entry in a Seed.
type SeedActivity struct {
	Title              string              `yaml:"title"`
	Type               domain.ActivityType `yaml:"type"`
	DurationMin        int                 `yaml:"duration_min"`
	PreferredTimeOfDay domain.TimeOfDay    `yaml:"preferred_time_of_day"`
	Priority           domain.Priority     `yaml:"priority"`
	LastScheduled      *time.Time          `yaml:"last_scheduled"`
}

// LoadSeed reads and decodes a seed file.
func LoadSeed(path string) (Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes a seed document.
func ParseSeed(raw []byte) (Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return Seed{}, fmt.Errorf("%w: decode seed: %v", domain.ErrInvalidInput, err)
	}
	if seed.TenantID == "" || seed.UserID == "" {
		return Seed{}, fmt.Errorf("%w: seed requires tenant_id and user_id", domain.ErrInvalidInput)
	}
	return seed, nil
}

// Apply validates every entry and stores it. Entries are spaced one millisecond apart
// so catalog order follows file order.
func (r *Repository) Apply(ctx context.Context, seed Seed, now time.Time) (int, error) {
	base := now.UTC()
	for i, entry := range seed.Activities {
		created := base.Add(time.Duration(i) * time.Millisecond)
		activity := domain.Activity{
			ID:                 uuid.NewString(),
			TenantID:           seed.TenantID,
			UserID:             seed.UserID,
			Title:              entry.Title,
			Type:               entry.Type,
			DurationMin:        entry.DurationMin,
			PreferredTimeOfDay: entry.PreferredTimeOfDay,
			Priority:           entry.Priority,
			LastScheduled:      entry.LastScheduled,
			CompletionHistory:  []domain.Completion{},
			CreatedAt:          created,
			UpdatedAt:          created,
		}
		if activity.PreferredTimeOfDay == "" {
			activity.PreferredTimeOfDay = domain.TimeOfDayAny
		}
		if activity.Priority == "" {
			activity.Priority = domain.PriorityMedium
		}
		if err := activity.Validate(); err != nil {
			return i, fmt.Errorf("seed entry %d: %w", i, err)
		}
		if err := r.CreateActivity(ctx, activity); err != nil {
			return i, err
		}
	}
	return len(seed.Activities), nil
}
