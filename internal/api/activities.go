package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"example.com/freetime/internal/domain"
	"example.com/freetime/internal/persistence"
)

// CreateActivityRequest is the payload for POST /v1/activities.
type CreateActivityRequest struct {
	Title              string              `json:"title"`
	Type               domain.ActivityType `json:"type"`
	DurationMin        int                 `json:"duration_min"`
	PreferredTimeOfDay domain.TimeOfDay    `json:"preferred_time_of_day"`
	Priority           domain.Priority     `json:"priority"`
}

// Validate ensures request correctness before it reaches the service.
func (r CreateActivityRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	if r.Type == "" {
		return errors.New("type is required")
	}
	if r.DurationMin <= 0 {
		return errors.New("duration_min must be > 0")
	}
	return nil
}

// UpdateActivityRequest is the payload for PUT /v1/activities/{id}. Omitted fields are
// left unchanged.
type UpdateActivityRequest struct {
	Title              *string              `json:"title"`
	Type               *domain.ActivityType `json:"type"`
	DurationMin        *int                 `json:"duration_min"`
	PreferredTimeOfDay *domain.TimeOfDay    `json:"preferred_time_of_day"`
	Priority           *domain.Priority     `json:"priority"`
}

// CompleteActivityRequest is the payload for POST /v1/activities/{id}/complete.
type CompleteActivityRequest struct {
	DurationMin int   `json:"duration_min"`
	Completed   *bool `json:"completed"`
}

// ListActivitiesResponse packages list results.
type ListActivitiesResponse struct {
	Items      []domain.Activity `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := canWrite(w, r)
	if !ok {
		return
	}

	var req CreateActivityRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	activity, err := h.service.CreateActivity(r.Context(), domain.CreateActivityInput{
		TenantID:           claims.TenantID,
		UserID:             claims.Subject,
		Title:              req.Title,
		Type:               req.Type,
		DurationMin:        req.DurationMin,
		PreferredTimeOfDay: req.PreferredTimeOfDay,
		Priority:           req.Priority,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, activity)
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := canRead(w, r)
	if !ok {
		return
	}

	activity, err := h.service.GetActivity(r.Context(), claims.TenantID, claims.Subject, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	claims, ok := canRead(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	activities, next, err := h.service.ListActivities(r.Context(), claims.TenantID, claims.Subject, cursor, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if activities == nil {
		activities = []domain.Activity{}
	}

	writeJSON(w, http.StatusOK, ListActivitiesResponse{
		Items:      activities,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := canWrite(w, r)
	if !ok {
		return
	}

	var req UpdateActivityRequest
	if !h.decode(w, r, &req) {
		return
	}

	activity, err := h.service.UpdateActivity(r.Context(), claims.TenantID, claims.Subject, r.PathValue("id"), domain.UpdateActivityInput{
		Title:              req.Title,
		Type:               req.Type,
		DurationMin:        req.DurationMin,
		PreferredTimeOfDay: req.PreferredTimeOfDay,
		Priority:           req.Priority,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := canWrite(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteActivity(r.Context(), claims.TenantID, claims.Subject, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) completeActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := canWrite(w, r)
	if !ok {
		return
	}

	var req CompleteActivityRequest
	if !h.decode(w, r, &req) {
		return
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}

	activity, err := h.service.CompleteActivity(r.Context(), claims.TenantID, claims.Subject, r.PathValue("id"), req.DurationMin, completed)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}
