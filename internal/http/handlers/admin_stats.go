package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ds0903/cosmetology-bot-backend/internal/booking"
	"github.com/ds0903/cosmetology-bot-backend/pkg/logging"
)

// AdminStatsHandler reports per-project booking volumes behind admin auth.
type AdminStatsHandler struct {
	svc    *booking.Service
	logger *logging.Logger
}

func NewAdminStatsHandler(svc *booking.Service, logger *logging.Logger) *AdminStatsHandler {
	if svc == nil {
		panic("handlers: booking service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminStatsHandler{svc: svc, logger: logger}
}

// Handle processes GET /admin/projects/{projectID}/stats.
func (h *AdminStatsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if projectID == "" {
		http.Error(w, "project id is required", http.StatusBadRequest)
		return
	}

	stats, err := h.svc.ProjectStats(r.Context(), projectID)
	if err != nil {
		h.logger.Error("project stats failed", "project_id", projectID, "error", err)
		http.Error(w, "stats lookup failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
