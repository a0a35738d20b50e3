// Package router assembles the HTTP routes of the booking backend.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ds0903/cosmetology-bot-backend/internal/http/handlers"
	httpmiddleware "github.com/ds0903/cosmetology-bot-backend/internal/http/middleware"
	"github.com/ds0903/cosmetology-bot-backend/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	BookingActions  *handlers.BookingActionsHandler
	ClientBookings  *handlers.ClientBookingsHandler
	Feedback        *handlers.FeedbackHandler
	AdminStats      *handlers.AdminStatsHandler
	AdminAuthSecret string
	MetricsHandler  http.Handler
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Tenant API, called by the dialogue automation.
	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(httpmiddleware.RequireProjectID)
		if cfg.BookingActions != nil {
			v1.Post("/booking-actions", cfg.BookingActions.Handle)
		}
		if cfg.ClientBookings != nil {
			v1.Get("/clients/{clientID}/bookings", cfg.ClientBookings.Handle)
		}
		if cfg.Feedback != nil {
			v1.Post("/feedback", cfg.Feedback.Handle)
		}
	})

	// Admin surface.
	if cfg.AdminStats != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/projects/{projectID}/stats", cfg.AdminStats.Handle)
		})
	}

	return r
}
