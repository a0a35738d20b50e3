// Package handlers exposes the HTTP surface of the booking backend.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ds0903/cosmetology-bot-backend/internal/booking"
	"github.com/ds0903/cosmetology-bot-backend/internal/projects"
	"github.com/ds0903/cosmetology-bot-backend/internal/tenancy"
	"github.com/ds0903/cosmetology-bot-backend/pkg/logging"
)

// ProjectConfigSource fetches per-project booking configuration.
type ProjectConfigSource interface {
	Get(ctx context.Context, projectID string) (*projects.Config, error)
}

// BookingActionsHandler serves the booking action endpoint the dialogue
// automation calls once per chat turn.
type BookingActionsHandler struct {
	svc     *booking.Service
	configs ProjectConfigSource
	logger  *logging.Logger
}

func NewBookingActionsHandler(svc *booking.Service, configs ProjectConfigSource, logger *logging.Logger) *BookingActionsHandler {
	if svc == nil {
		panic("handlers: booking service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingActionsHandler{svc: svc, configs: configs, logger: logger}
}

type bookingActionRequest struct {
	ClientID  string         `json:"client_id"`
	MessageID string         `json:"message_id"`
	Intent    booking.Intent `json:"intent"`
}

// Handle processes POST /v1/booking-actions. The response is always a
// booking.Result; handler-level failures are the only non-200 outcomes.
func (h *BookingActionsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	projectID, ok := tenancy.ProjectIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing project context", http.StatusBadRequest)
		return
	}

	var req bookingActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ClientID == "" {
		http.Error(w, "client_id is required", http.StatusBadRequest)
		return
	}

	cfg := h.projectConfig(r.Context(), projectID)
	result := h.svc.Process(r.Context(), booking.Request{
		ProjectID: projectID,
		ClientID:  req.ClientID,
		MessageID: req.MessageID,
		Intent:    req.Intent,
		Config:    cfg,
	})

	writeJSON(w, http.StatusOK, result)
}

func (h *BookingActionsHandler) projectConfig(ctx context.Context, projectID string) *projects.Config {
	if h.configs == nil {
		return projects.DefaultConfig(projectID)
	}
	cfg, err := h.configs.Get(ctx, projectID)
	if err != nil {
		h.logger.Warn("project config lookup failed, using defaults", "project_id", projectID, "error", err)
		return projects.DefaultConfig(projectID)
	}
	return cfg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
