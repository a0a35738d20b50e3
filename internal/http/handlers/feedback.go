package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ds0903/cosmetology-bot-backend/internal/booking"
	"github.com/ds0903/cosmetology-bot-backend/internal/tenancy"
	"github.com/ds0903/cosmetology-bot-backend/pkg/logging"
)

// FeedbackHandler stores feedback submitted outside of a booking turn.
type FeedbackHandler struct {
	svc    *booking.Service
	logger *logging.Logger
}

func NewFeedbackHandler(svc *booking.Service, logger *logging.Logger) *FeedbackHandler {
	if svc == nil {
		panic("handlers: booking service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FeedbackHandler{svc: svc, logger: logger}
}

type feedbackRequest struct {
	ClientID string `json:"client_id"`
	Text     string `json:"text"`
}

// Handle processes POST /v1/feedback.
func (h *FeedbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	projectID, ok := tenancy.ProjectIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing project context", http.StatusBadRequest)
		return
	}

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	if err := h.svc.SaveFeedback(r.Context(), projectID, req.ClientID, req.Text); err != nil {
		h.logger.Error("feedback save failed", "project_id", projectID, "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}
