package driven

import (
	"context"

	"github.com/kwalsh/prsession/internal/domain/model"
)

// BufferStore defines the driven port for buffer and path persistence,
// including the two multi-statement operations that must be transactional so
// the single-current-path invariant cannot be observed half-applied.
type BufferStore interface {
	// Save inserts or replaces a buffer row. Paths are persisted separately.
	Save(ctx context.Context, buf model.Buffer) error

	// GetByReview returns all buffer rows owned by the review, insertion order,
	// without their paths.
	GetByReview(ctx context.Context, reviewID string) ([]model.Buffer, error)

	// SavePath inserts or replaces a path row.
	SavePath(ctx context.Context, p model.Path) error

	// GetPaths returns all path rows under the buffer, insertion order,
	// without their comments.
	GetPaths(ctx context.Context, bufferID string) ([]model.Path, error)

	// CreateWithPath inserts a buffer and its first path in one transaction.
	// Used when a review gains its buffer on first path registration.
	CreateWithPath(ctx context.Context, buf model.Buffer, p model.Path) error

	// ReplaceCurrentPath clears the current-path flag on every path under the
	// buffer and inserts p as the new current path, in one transaction.
	ReplaceCurrentPath(ctx context.Context, bufferID string, p model.Path) error
}
