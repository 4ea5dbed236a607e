package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kwalsh/prsession/internal/domain/model"
	"github.com/kwalsh/prsession/internal/domain/port/driven"
)

// Discriminator values written to the class column of each table. No runtime
// dispatch keys off them; they exist to keep the row format self-describing.
const (
	classReview  = "pullreq"
	classBuffer  = "buffer"
	classPath    = "path"
	classComment = "comment"
)

// Compile-time interface satisfaction check.
var _ driven.ReviewStore = (*ReviewRepo)(nil)

// ReviewRepo is the SQLite implementation of the ReviewStore port interface.
type ReviewRepo struct {
	db *DB
}

// NewReviewRepo creates a new ReviewRepo backed by the given DB.
func NewReviewRepo(db *DB) *ReviewRepo {
	return &ReviewRepo{db: db}
}

// Save inserts or replaces the review row by id. The cached raw comment list
// is serialized as a JSON array in the raw_comments TEXT column.
func (r *ReviewRepo) Save(ctx context.Context, review model.Review) error {
	const query = `
		INSERT INTO pullreq (
			class, id, raw_infos, raw_diff, raw_comments, host, sha,
			owner, repo, number, feedback, replies, review, state, callback
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			raw_infos = excluded.raw_infos,
			raw_diff = excluded.raw_diff,
			raw_comments = excluded.raw_comments,
			host = excluded.host,
			sha = excluded.sha,
			owner = excluded.owner,
			repo = excluded.repo,
			number = excluded.number,
			feedback = excluded.feedback,
			replies = excluded.replies,
			review = excluded.review,
			state = excluded.state,
			callback = excluded.callback
	`

	rawComments := review.RawComments
	if rawComments == nil {
		rawComments = []json.RawMessage{}
	}
	commentsJSON, err := json.Marshal(rawComments)
	if err != nil {
		return fmt.Errorf("marshal raw comments: %w", err)
	}

	var rawInfos any
	if review.RawInfos != nil {
		rawInfos = string(review.RawInfos)
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		classReview, review.ID, rawInfos, review.RawDiff, string(commentsJSON),
		review.Host, review.SHA, review.Owner, review.Repo, review.Number,
		review.Feedback, review.Replies, review.ReviewText, review.State, review.Callback,
	)
	if err != nil {
		return fmt.Errorf("upsert review %s: %w", review.ID, err)
	}

	return nil
}

// Get retrieves a review row by id, without its buffer hierarchy.
// Returns nil, nil if the review does not exist.
func (r *ReviewRepo) Get(ctx context.Context, id string) (*model.Review, error) {
	const query = `
		SELECT id, raw_infos, raw_diff, raw_comments, host, sha,
		       owner, repo, number, feedback, replies, review, state, callback
		FROM pullreq
		WHERE id = ?
	`

	review, err := scanReview(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review %s: %w", id, err)
	}

	return review, nil
}

// Delete removes the review row. Buffers, paths, and comments are removed by
// the ON DELETE CASCADE chain; no recursive delete logic is needed here.
func (r *ReviewRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM pullreq WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete review %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete review %s: %w", id, driven.ErrReviewNotFound)
	}

	return nil
}

func scanReview(s scanner) (*model.Review, error) {
	var review model.Review
	var rawInfos sql.NullString
	var rawComments string

	err := s.Scan(
		&review.ID, &rawInfos, &review.RawDiff, &rawComments,
		&review.Host, &review.SHA, &review.Owner, &review.Repo, &review.Number,
		&review.Feedback, &review.Replies, &review.ReviewText, &review.State, &review.Callback,
	)
	if err != nil {
		return nil, err
	}

	if rawInfos.Valid {
		review.RawInfos = json.RawMessage(rawInfos.String)
	}

	if err := json.Unmarshal([]byte(rawComments), &review.RawComments); err != nil {
		return nil, fmt.Errorf("unmarshal raw comments: %w", err)
	}

	return &review, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
