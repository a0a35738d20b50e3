package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ds0903/cosmetology-bot-backend/internal/booking"
	"github.com/ds0903/cosmetology-bot-backend/internal/tenancy"
	"github.com/ds0903/cosmetology-bot-backend/pkg/logging"
)

// ClientBookingsHandler lists a client's active appointments so the dialogue
// layer can answer "when am I booked?" without touching the ledger.
type ClientBookingsHandler struct {
	svc    *booking.Service
	logger *logging.Logger
}

func NewClientBookingsHandler(svc *booking.Service, logger *logging.Logger) *ClientBookingsHandler {
	if svc == nil {
		panic("handlers: booking service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ClientBookingsHandler{svc: svc, logger: logger}
}

type clientBookingsResponse struct {
	Bookings []booking.Appointment `json:"bookings"`
	// Summary is the compact rendering the dialogue layer injects into the
	// conversation context.
	Summary string `json:"summary"`
}

// Handle processes GET /v1/clients/{clientID}/bookings.
func (h *ClientBookingsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	projectID, ok := tenancy.ProjectIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing project context", http.StatusBadRequest)
		return
	}
	clientID := chi.URLParam(r, "clientID")
	if clientID == "" {
		http.Error(w, "client id is required", http.StatusBadRequest)
		return
	}

	bookings, err := h.svc.ClientBookings(r.Context(), projectID, clientID)
	if err != nil {
		h.logger.Error("client bookings lookup failed", "project_id", projectID, "error", err)
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}
	if bookings == nil {
		bookings = []booking.Appointment{}
	}
	writeJSON(w, http.StatusOK, clientBookingsResponse{
		Bookings: bookings,
		Summary:  booking.FormatBookings(bookings),
	})
}
