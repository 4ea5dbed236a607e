package driven

import (
	"context"

	"github.com/kwalsh/prsession/internal/domain/model"
)

// CommentStore defines the driven port for tracking-comment persistence.
type CommentStore interface {
	// Save inserts or replaces a comment row.
	Save(ctx context.Context, c model.Comment) error

	// Get retrieves a comment by id. Returns nil, nil when absent.
	Get(ctx context.Context, id string) (*model.Comment, error)

	// GetByPath returns all comment rows under the path, insertion order.
	GetByPath(ctx context.Context, pathID string) ([]model.Comment, error)
}
