package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

var _ FeedbackStore = (*Repository)(nil)

// SaveFeedback stores a feedback note left during a chat turn.
func (r *Repository) SaveFeedback(ctx context.Context, projectID, clientID, text string) error {
	query := `
		INSERT INTO feedback (id, project_id, client_id, body)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.Exec(ctx, query, uuid.New(), projectID, clientID, text); err != nil {
		return fmt.Errorf("booking: save feedback: %w", err)
	}
	return nil
}
