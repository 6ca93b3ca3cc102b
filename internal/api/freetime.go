package api

import (
	"net/http"
	"time"

	"example.com/freetime/internal/domain"
)

// CreateSlotRequest is the payload for POST /v1/freetime.
type CreateSlotRequest struct {
	Start  time.Time         `json:"start"`
	End    time.Time         `json:"end"`
	Source domain.SlotSource `json:"source"`
}

// DetectRequest is the payload for POST /v1/freetime/detect.
type DetectRequest struct {
	WindowStart    time.Time           `json:"window_start"`
	WindowEnd      time.Time           `json:"window_end"`
	MinDurationMin int                 `json:"min_duration_min"`
	Busy           []domain.BusyPeriod `json:"busy"`
}

// SlotsResponse wraps a list of slots.
type SlotsResponse struct {
	Items []domain.FreeTimeSlot `json:"items"`
}

func (h *Handler) createSlot(w http.ResponseWriter, r *http.Request) {
	claims, ok := canWrite(w, r)
	if !ok {
		return
	}

	var req CreateSlotRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Start.IsZero() || req.End.IsZero() {
		writeError(w, http.StatusBadRequest, "validation_failed", "start and end are required")
		return
	}

	slot, err := h.service.CreateFreeTimeSlot(r.Context(), domain.CreateSlotInput{
		TenantID: claims.TenantID,
		UserID:   claims.Subject,
		Start:    req.Start,
		End:      req.End,
		Source:   req.Source,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

func (h *Handler) getSlot(w http.ResponseWriter, r *http.Request) {
	claims, ok := canRead(w, r)
	if !ok {
		return
	}

	slot, err := h.service.GetFreeTimeSlot(r.Context(), claims.TenantID, claims.Subject, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (h *Handler) listSlots(w http.ResponseWriter, r *http.Request) {
	claims, ok := canRead(w, r)
	if !ok {
		return
	}

	slots, err := h.service.ListFreeTimeSlots(r.Context(), claims.TenantID, claims.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if slots == nil {
		slots = []domain.FreeTimeSlot{}
	}
	writeJSON(w, http.StatusOK, SlotsResponse{Items: slots})
}

func (h *Handler) deleteSlot(w http.ResponseWriter, r *http.Request) {
	claims, ok := canWrite(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteFreeTimeSlot(r.Context(), claims.TenantID, claims.Subject, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) detectFreeTime(w http.ResponseWriter, r *http.Request) {
	claims, ok := canWrite(w, r)
	if !ok {
		return
	}

	var req DetectRequest
	if !h.decode(w, r, &req) {
		return
	}

	slots, err := h.service.DetectFreeTime(r.Context(), domain.DetectInput{
		TenantID:       claims.TenantID,
		UserID:         claims.Subject,
		WindowStart:    req.WindowStart,
		WindowEnd:      req.WindowEnd,
		MinDurationMin: req.MinDurationMin,
		Busy:           req.Busy,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SlotsResponse{Items: slots})
}
