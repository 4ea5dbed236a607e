package driven

import (
	"context"
	"errors"

	"github.com/kwalsh/prsession/internal/domain/model"
)

// ErrReviewNotFound is returned when an operation requires a review row that
// does not exist.
var ErrReviewNotFound = errors.New("review not found")

// ErrSchemaVersion is returned when the on-disk store carries a schema version
// stamp this build cannot read. Callers must discard and recreate the store.
var ErrSchemaVersion = errors.New("incompatible schema version")

// ReviewStore defines the driven port for review row persistence. Save and Get
// operate on the review's own columns only; the owned buffer hierarchy is
// loaded through BufferStore and CommentStore.
type ReviewStore interface {
	// Save inserts or replaces the review by primary key. Idempotent: saving
	// the same id twice leaves one row.
	Save(ctx context.Context, review model.Review) error

	// Get retrieves a review by id. Returns nil, nil when absent.
	Get(ctx context.Context, id string) (*model.Review, error)

	// Delete removes the review. Buffers, paths, and comments beneath it are
	// removed by foreign-key cascade. Returns ErrReviewNotFound when no row
	// matched.
	Delete(ctx context.Context, id string) error
}
