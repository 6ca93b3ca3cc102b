// Package postgres provides pgx-backed persistence with row-level tenant isolation
// and a transactional outbox.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/freetime/internal/domain"
	"example.com/freetime/internal/persistence"
)

// Repository implements domain.Repository on Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

var _ domain.Repository = (*Repository)(nil)

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// inTenant runs fn in a transaction scoped to tenantID through app.tenant_id.
func (r *Repository) inTenant(ctx context.Context, tenantID string, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const activityColumns = `activity_id, tenant_id, user_id, title, activity_type, duration_min, preferred_time_of_day, priority, last_scheduled, completion_history, created_at, updated_at`

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		a       domain.Activity
		history []byte
	)
	if err := row.Scan(&a.ID, &a.TenantID, &a.UserID, &a.Title, &a.Type, &a.DurationMin, &a.PreferredTimeOfDay, &a.Priority, &a.LastScheduled, &history, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return domain.Activity{}, err
	}
	a.CompletionHistory = []domain.Completion{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &a.CompletionHistory); err != nil {
			return domain.Activity{}, fmt.Errorf("decode completion history: %w", err)
		}
	}
	return a, nil
}

func encodeHistory(history []domain.Completion) ([]byte, error) {
	if history == nil {
		history = []domain.Completion{}
	}
	return json.Marshal(history)
}

func (r *Repository) CreateActivity(ctx context.Context, a domain.Activity) error {
	history, err := encodeHistory(a.CompletionHistory)
	if err != nil {
		return err
	}
	return r.inTenant(ctx, a.TenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO activities (`+activityColumns+`)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			a.ID, a.TenantID, a.UserID, a.Title, a.Type, a.DurationMin, a.PreferredTimeOfDay, a.Priority, a.LastScheduled, history, a.CreatedAt, a.UpdatedAt,
		)
		return err
	})
}

func (r *Repository) GetActivity(ctx context.Context, tenantID, activityID string) (*domain.Activity, error) {
	var found *domain.Activity
	err := r.inTenant(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE tenant_id=$1 AND activity_id=$2`, tenantID, activityID)
		a, err := scanActivity(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListActivities pages newest first, keyed on (created_at, activity_id).
func (r *Repository) ListActivities(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.Activity, *domain.Cursor, error) {
	args := []any{tenantID, userID, limit}
	query := `SELECT ` + activityColumns + ` FROM activities WHERE tenant_id=$1 AND user_id=$2`
	if cursor != nil {
		query += ` AND (created_at, activity_id) < ($4, $5)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}
	query += ` ORDER BY created_at DESC, activity_id DESC LIMIT $3`

	results := make([]domain.Activity, 0, limit)
	err := r.inTenant(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			a, err := scanActivity(rows)
			if err != nil {
				return err
			}
			results = append(results, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if limit > 0 && len(results) == limit {
		last := results[len(results)-1]
		next = &domain.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return results, next, nil
}

// Catalog returns the user's activities oldest first.
func (r *Repository) Catalog(ctx context.Context, tenantID, userID string) ([]domain.Activity, error) {
	results := make([]domain.Activity, 0)
	err := r.inTenant(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+activityColumns+` FROM activities WHERE tenant_id=$1 AND user_id=$2 ORDER BY created_at, activity_id`, tenantID, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			a, err := scanActivity(rows)
			if err != nil {
				return err
			}
			results = append(results, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Repository) UpdateActivity(ctx context.Context, a domain.Activity) error {
	return r.inTenant(ctx, a.TenantID, func(tx pgx.Tx) error {
		return updateActivity(ctx, tx, a)
	})
}

func updateActivity(ctx context.Context, tx pgx.Tx, a domain.Activity) error {
	history, err := encodeHistory(a.CompletionHistory)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `UPDATE activities
        SET title=$3, activity_type=$4, duration_min=$5, preferred_time_of_day=$6, priority=$7,
            last_scheduled=$8, completion_history=$9, updated_at=$10
        WHERE tenant_id=$1 AND activity_id=$2`,
		a.TenantID, a.ID, a.Title, a.Type, a.DurationMin, a.PreferredTimeOfDay, a.Priority, a.LastScheduled, history, a.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrActivityNotFound
	}
	return nil
}

func (r *Repository) DeleteActivity(ctx context.Context, tenantID, activityID string) error {
	return r.inTenant(ctx, tenantID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM activities WHERE tenant_id=$1 AND activity_id=$2`, tenantID, activityID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrActivityNotFound
		}
		return nil
	})
}

// RecordAdaptation only writes the activity.adapted event; the catalog is unchanged.
func (r *Repository) RecordAdaptation(ctx context.Context, result domain.AdaptationResult, occurredAt time.Time) error {
	original := result.Original
	return r.inTenant(ctx, original.TenantID, func(tx pgx.Tx) error {
		return insertOutbox(ctx, tx, outboxRecord{
			tenantID:      original.TenantID,
			userID:        original.UserID,
			aggregateType: "activity",
			aggregateID:   original.ID,
			eventType:     persistence.EventActivityAdapted,
			occurredAt:    occurredAt,
			payload:       persistence.ActivityAdapted(result, occurredAt),
		})
	})
}

const slotColumns = `slot_id, tenant_id, user_id, start_time, end_time, duration_min, source, is_processed, suggestions, created_at`

func scanSlot(row pgx.Row) (domain.FreeTimeSlot, error) {
	var (
		s           domain.FreeTimeSlot
		suggestions []byte
	)
	if err := row.Scan(&s.ID, &s.TenantID, &s.UserID, &s.Interval.Start, &s.Interval.End, &s.Interval.DurationMin, &s.Source, &s.Processed, &suggestions, &s.CreatedAt); err != nil {
		return domain.FreeTimeSlot{}, err
	}
	s.Suggestions = []domain.StoredSuggestion{}
	if len(suggestions) > 0 {
		if err := json.Unmarshal(suggestions, &s.Suggestions); err != nil {
			return domain.FreeTimeSlot{}, fmt.Errorf("decode suggestions: %w", err)
		}
	}
	return s, nil
}

func insertSlot(ctx context.Context, tx pgx.Tx, s domain.FreeTimeSlot) error {
	suggestions, err := json.Marshal(nonNilSuggestions(s.Suggestions))
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `INSERT INTO free_time_slots (`+slotColumns+`)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		s.ID, s.TenantID, s.UserID, s.Interval.Start, s.Interval.End, s.Interval.DurationMin, s.Source, s.Processed, suggestions, s.CreatedAt,
	)
	return err
}

func nonNilSuggestions(in []domain.StoredSuggestion) []domain.StoredSuggestion {
	if in == nil {
		return []domain.StoredSuggestion{}
	}
	return in
}

func (r *Repository) CreateSlot(ctx context.Context, slot domain.FreeTimeSlot) error {
	return r.inTenant(ctx, slot.TenantID, func(tx pgx.Tx) error {
		return insertSlot(ctx, tx, slot)
	})
}

// CreateDetectedSlots stores every slot and a single freetime.detected event atomically.
func (r *Repository) CreateDetectedSlots(ctx context.Context, detection domain.Detection) error {
	return r.inTenant(ctx, detection.TenantID, func(tx pgx.Tx) error {
		for _, slot := range detection.Slots {
			if err := insertSlot(ctx, tx, slot); err != nil {
				return err
			}
		}
		return insertOutbox(ctx, tx, outboxRecord{
			tenantID:      detection.TenantID,
			userID:        detection.UserID,
			aggregateType: "free_time_window",
			aggregateID:   fmt.Sprintf("%s:%s", detection.UserID, detection.WindowStart.Format(time.RFC3339)),
			eventType:     persistence.EventFreeTimeDetected,
			occurredAt:    detection.DetectedAt,
			payload:       persistence.FreeTimeDetected(detection),
		})
	})
}

func (r *Repository) GetSlot(ctx context.Context, tenantID, slotID string) (*domain.FreeTimeSlot, error) {
	var found *domain.FreeTimeSlot
	err := r.inTenant(ctx, tenantID, func(tx pgx.Tx) error {
		s, err := scanSlot(tx.QueryRow(ctx, `SELECT `+slotColumns+` FROM free_time_slots WHERE tenant_id=$1 AND slot_id=$2`, tenantID, slotID))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *Repository) ListSlots(ctx context.Context, tenantID, userID string) ([]domain.FreeTimeSlot, error) {
	results := make([]domain.FreeTimeSlot, 0)
	err := r.inTenant(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+slotColumns+` FROM free_time_slots WHERE tenant_id=$1 AND user_id=$2 ORDER BY start_time, slot_id`, tenantID, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			s, err := scanSlot(rows)
			if err != nil {
				return err
			}
			results = append(results, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Repository) DeleteSlot(ctx context.Context, tenantID, slotID string) error {
	return r.inTenant(ctx, tenantID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM free_time_slots WHERE tenant_id=$1 AND slot_id=$2`, tenantID, slotID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrSlotNotFound
		}
		return nil
	})
}

// SaveSuggestions replaces the slot's suggestions and emits suggestion.generated.
func (r *Repository) SaveSuggestions(ctx context.Context, slot domain.FreeTimeSlot, generatedAt time.Time) error {
	suggestions, err := json.Marshal(nonNilSuggestions(slot.Suggestions))
	if err != nil {
		return err
	}
	return r.inTenant(ctx, slot.TenantID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE free_time_slots SET suggestions=$3, is_processed=$4 WHERE tenant_id=$1 AND slot_id=$2`,
			slot.TenantID, slot.ID, suggestions, slot.Processed)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrSlotNotFound
		}
		return insertOutbox(ctx, tx, outboxRecord{
			tenantID:      slot.TenantID,
			userID:        slot.UserID,
			aggregateType: "free_time_slot",
			aggregateID:   slot.ID,
			eventType:     persistence.EventSuggestionsGenerated,
			occurredAt:    generatedAt,
			payload:       persistence.SuggestionsGenerated(slot, generatedAt),
		})
	})
}

func (r *Repository) GetPreferences(ctx context.Context, tenantID, userID string) (*domain.UserPreferences, error) {
	var found *domain.UserPreferences
	err := r.inTenant(ctx, tenantID, func(tx pgx.Tx) error {
		var p domain.UserPreferences
		err := tx.QueryRow(ctx, `SELECT tenant_id, user_id, balance_priorities, default_activity_duration, preferred_time_of_day, updated_at
            FROM user_preferences WHERE tenant_id=$1 AND user_id=$2`, tenantID, userID).
			Scan(&p.TenantID, &p.UserID, &p.BalancePriorities, &p.DefaultActivityDuration, &p.PreferredTimeOfDay, &p.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *Repository) SavePreferences(ctx context.Context, p domain.UserPreferences) error {
	return r.inTenant(ctx, p.TenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO user_preferences (tenant_id, user_id, balance_priorities, default_activity_duration, preferred_time_of_day, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6)
            ON CONFLICT (tenant_id, user_id) DO UPDATE SET
                balance_priorities = EXCLUDED.balance_priorities,
                default_activity_duration = EXCLUDED.default_activity_duration,
                preferred_time_of_day = EXCLUDED.preferred_time_of_day,
                updated_at = EXCLUDED.updated_at`,
			p.TenantID, p.UserID, p.BalancePriorities, p.DefaultActivityDuration, p.PreferredTimeOfDay, p.UpdatedAt)
		return err
	})
}

// CreateSchedule inserts the schedule and refreshes the activity in one transaction.
func (r *Repository) CreateSchedule(ctx context.Context, s domain.Schedule, activity domain.Activity) error {
	return r.inTenant(ctx, s.TenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO schedules (schedule_id, tenant_id, user_id, activity_id, free_time_slot_id, start_time, end_time, duration_min, original_duration_min, status, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			s.ID, s.TenantID, s.UserID, s.ActivityID, nullIfEmpty(s.FreeTimeSlotID), s.Start, s.End, s.DurationMin, s.OriginalDurationMin, s.Status, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			return err
		}
		return updateActivity(ctx, tx, activity)
	})
}

func (r *Repository) ListSchedules(ctx context.Context, tenantID, userID string, filter domain.ScheduleFilter) ([]domain.Schedule, error) {
	args := []any{tenantID, userID}
	query := `SELECT schedule_id, tenant_id, user_id, activity_id, COALESCE(free_time_slot_id, ''), start_time, end_time, duration_min, original_duration_min, status, created_at, updated_at
        FROM schedules WHERE tenant_id=$1 AND user_id=$2`
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(` AND start_time >= $%d`, len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(` AND start_time <= $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY start_time, schedule_id`

	results := make([]domain.Schedule, 0)
	err := r.inTenant(ctx, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var s domain.Schedule
			if err := rows.Scan(&s.ID, &s.TenantID, &s.UserID, &s.ActivityID, &s.FreeTimeSlotID, &s.Start, &s.End, &s.DurationMin, &s.OriginalDurationMin, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
				return err
			}
			results = append(results, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
