package middleware

import (
	"net/http"
	"strings"

	"github.com/ds0903/cosmetology-bot-backend/internal/tenancy"
)

const projectHeader = "X-Project-ID"

// RequireProjectID enforces the multi-tenancy header and stores the project
// id on the request context.
func RequireProjectID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		projectID := strings.TrimSpace(r.Header.Get(projectHeader))
		if projectID == "" {
			http.Error(w, "missing X-Project-ID", http.StatusBadRequest)
			return
		}
		ctx := tenancy.WithProjectID(r.Context(), projectID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
