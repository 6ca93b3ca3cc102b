package api

import (
	"net/http"
	"strings"
	"time"

	"example.com/freetime/internal/domain"
)

// UpdatePreferencesRequest is the payload for PUT /v1/preferences.
type UpdatePreferencesRequest struct {
	BalancePriorities       *bool             `json:"balance_priorities"`
	DefaultActivityDuration *int              `json:"default_activity_duration"`
	PreferredTimeOfDay      *domain.TimeOfDay `json:"preferred_time_of_day"`
}

// CreateScheduleRequest is the payload for POST /v1/schedules.
type CreateScheduleRequest struct {
	ActivityID     string    `json:"activity_id"`
	FreeTimeSlotID string    `json:"free_time_slot_id"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	DurationMin    int       `json:"duration_min"`
}

// SchedulesResponse wraps a list of schedules.
type SchedulesResponse struct {
	Items []domain.Schedule `json:"items"`
}

func (h *Handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := canRead(w, r)
	if !ok {
		return
	}

	prefs, err := h.service.GetPreferences(r.Context(), claims.TenantID, claims.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *Handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	claims, ok := canWrite(w, r)
	if !ok {
		return
	}

	var req UpdatePreferencesRequest
	if !h.decode(w, r, &req) {
		return
	}

	prefs, err := h.service.UpdatePreferences(r.Context(), claims.TenantID, claims.Subject, domain.UpdatePreferencesInput{
		BalancePriorities:       req.BalancePriorities,
		DefaultActivityDuration: req.DefaultActivityDuration,
		PreferredTimeOfDay:      req.PreferredTimeOfDay,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *Handler) createSchedule(w http.ResponseWriter, r *http.Request) {
	claims, ok := canWrite(w, r)
	if !ok {
		return
	}

	var req CreateScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ActivityID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "activity_id is required")
		return
	}

	schedule, err := h.service.CreateSchedule(r.Context(), domain.CreateScheduleInput{
		TenantID:       claims.TenantID,
		UserID:         claims.Subject,
		ActivityID:     req.ActivityID,
		FreeTimeSlotID: req.FreeTimeSlotID,
		Start:          req.Start,
		End:            req.End,
		DurationMin:    req.DurationMin,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, schedule)
}

func (h *Handler) listSchedules(w http.ResponseWriter, r *http.Request) {
	claims, ok := canRead(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	var filter domain.ScheduleFilter
	for _, bound := range []struct {
		name string
		dst  *time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := query.Get(bound.name)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", bound.name+" must be an RFC3339 timestamp")
			return
		}
		*bound.dst = parsed
	}
	filter.Status = domain.ScheduleStatus(query.Get("status"))

	schedules, err := h.service.ListSchedules(r.Context(), claims.TenantID, claims.Subject, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if schedules == nil {
		schedules = []domain.Schedule{}
	}
	writeJSON(w, http.StatusOK, SchedulesResponse{Items: schedules})
}
