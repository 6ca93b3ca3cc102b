// Package api exposes HTTP handlers for the freetime service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"example.com/freetime/internal/auth"
	"example.com/freetime/internal/domain"
)

const defaultMaxBodyBytes int64 = 1 << 20

// HandlerOption configures optional Handler behaviour.
type HandlerOption func(*Handler)

// WithMaxBodyBytes caps request bodies read by the handlers.
func WithMaxBodyBytes(limit int64) HandlerOption {
	return func(h *Handler) {
		if limit > 0 {
			h.maxBodyBytes = limit
		}
	}
}

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service      *domain.Service
	maxBodyBytes int64
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, opts ...HandlerOption) *Handler {
	h := &Handler{service: service, maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/activities", h.listActivities)
	mux.HandleFunc("POST /v1/activities", h.createActivity)
	mux.HandleFunc("GET /v1/activities/{id}", h.getActivity)
	mux.HandleFunc("PUT /v1/activities/{id}", h.updateActivity)
	mux.HandleFunc("DELETE /v1/activities/{id}", h.deleteActivity)
	mux.HandleFunc("POST /v1/activities/{id}/complete", h.completeActivity)

	mux.HandleFunc("GET /v1/freetime", h.listSlots)
	mux.HandleFunc("POST /v1/freetime", h.createSlot)
	mux.HandleFunc("POST /v1/freetime/detect", h.detectFreeTime)
	mux.HandleFunc("GET /v1/freetime/{id}", h.getSlot)
	mux.HandleFunc("DELETE /v1/freetime/{id}", h.deleteSlot)

	mux.HandleFunc("POST /v1/suggestions", h.suggestForSlot)
	mux.HandleFunc("POST /v1/suggestions/duration", h.suggestForDuration)
	mux.HandleFunc("POST /v1/suggestions/adapt", h.adaptActivity)

	mux.HandleFunc("GET /v1/preferences", h.getPreferences)
	mux.HandleFunc("PUT /v1/preferences", h.updatePreferences)

	mux.HandleFunc("GET /v1/schedules", h.listSchedules)
	mux.HandleFunc("POST /v1/schedules", h.createSchedule)

	mux.HandleFunc("GET /healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// authorize returns the caller's claims when they hold at least one of scopes.
func authorize(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if strings.TrimSpace(claims.Subject) == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "token has no subject")
		return nil, false
	}
	if !claims.HasAnyScope(scopes...) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
		return nil, false
	}
	return claims, true
}

func canRead(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	return authorize(w, r, auth.ScopeActivitiesRead, auth.ScopeActivitiesWrite)
}

func canWrite(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	return authorize(w, r, auth.ScopeActivitiesWrite)
}

func canSuggest(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	return authorize(w, r, auth.ScopeSuggestionsRead, auth.ScopeActivitiesWrite)
}

// decode reads a JSON body into dst. Enum values rejected by the domain's text
// unmarshalers surface as validation failures.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		default:
			writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		}
		return false
	}
	return true
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrAdaptationInfeasible):
		writeError(w, http.StatusUnprocessableEntity, "adaptation_infeasible", err.Error())
	case errors.Is(err, domain.ErrActivityNotFound),
		errors.Is(err, domain.ErrSlotNotFound),
		errors.Is(err, domain.ErrScheduleNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
