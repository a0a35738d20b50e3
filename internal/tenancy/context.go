package tenancy

import "context"

type ctxKey string

const projectKey ctxKey = "booking.project_id"

// WithProjectID stores the project id in context.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, projectKey, projectID)
}

// ProjectIDFromContext extracts the project id if present.
func ProjectIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(projectKey)
	if val == nil {
		return "", false
	}
	projectID, ok := val.(string)
	return projectID, ok && projectID != ""
}
