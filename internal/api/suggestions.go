package api

import (
	"net/http"
	"strings"

	"example.com/freetime/internal/domain"
)

// SuggestForSlotRequest is the payload for POST /v1/suggestions.
type SuggestForSlotRequest struct {
	FreeTimeSlotID string `json:"free_time_slot_id"`
}

// SuggestForDurationRequest is the payload for POST /v1/suggestions/duration.
type SuggestForDurationRequest struct {
	DurationMin int              `json:"duration_min"`
	TimeOfDay   domain.TimeOfDay `json:"time_of_day"`
}

// AdaptRequest is the payload for POST /v1/suggestions/adapt.
type AdaptRequest struct {
	ActivityID           string `json:"activity_id"`
	AvailableDurationMin int    `json:"available_duration_min"`
}

// SuggestionsResponse lists ranked suggestions, best first.
type SuggestionsResponse struct {
	FreeTimeSlotID string              `json:"free_time_slot_id,omitempty"`
	Suggestions    []domain.Suggestion `json:"suggestions"`
}

// AdaptResponse describes a successful adaptation.
type AdaptResponse struct {
	AdaptationNeeded bool            `json:"adaptation_needed"`
	Original         domain.Activity `json:"original"`
	Adapted          domain.Activity `json:"adapted"`
	Message          string          `json:"message"`
}

func (h *Handler) suggestForSlot(w http.ResponseWriter, r *http.Request) {
	claims, ok := canSuggest(w, r)
	if !ok {
		return
	}

	var req SuggestForSlotRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.FreeTimeSlotID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "free_time_slot_id is required")
		return
	}

	suggestions, err := h.service.SuggestForSlot(r.Context(), claims.TenantID, claims.Subject, req.FreeTimeSlotID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuggestionsResponse{
		FreeTimeSlotID: req.FreeTimeSlotID,
		Suggestions:    nonNil(suggestions),
	})
}

func (h *Handler) suggestForDuration(w http.ResponseWriter, r *http.Request) {
	claims, ok := canSuggest(w, r)
	if !ok {
		return
	}

	var req SuggestForDurationRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.DurationMin <= 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "duration_min must be > 0")
		return
	}

	suggestions, err := h.service.SuggestForDuration(r.Context(), claims.TenantID, claims.Subject, req.DurationMin, req.TimeOfDay)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuggestionsResponse{Suggestions: nonNil(suggestions)})
}

func (h *Handler) adaptActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := canSuggest(w, r)
	if !ok {
		return
	}

	var req AdaptRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ActivityID) == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "activity_id is required")
		return
	}

	result, err := h.service.AdaptActivity(r.Context(), claims.TenantID, claims.Subject, req.ActivityID, req.AvailableDurationMin)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !result.Adapted {
		writeError(w, http.StatusBadRequest, "already_fits", result.Message())
		return
	}

	writeJSON(w, http.StatusOK, AdaptResponse{
		AdaptationNeeded: true,
		Original:         result.Original,
		Adapted:          result.Activity,
		Message:          result.Message(),
	})
}

func nonNil(suggestions []domain.Suggestion) []domain.Suggestion {
	if suggestions == nil {
		return []domain.Suggestion{}
	}
	return suggestions
}
