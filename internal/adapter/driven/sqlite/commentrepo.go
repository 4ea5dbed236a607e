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

// Compile-time interface satisfaction check.
var _ driven.CommentStore = (*CommentRepo)(nil)

// CommentRepo is the SQLite implementation of the CommentStore port interface.
type CommentRepo struct {
	db *DB
}

// NewCommentRepo creates a new CommentRepo backed by the given DB.
func NewCommentRepo(db *DB) *CommentRepo {
	return &CommentRepo{db: db}
}

// Save inserts or replaces a comment row by id. Identifiers are serialized as
// a JSON array in the TEXT column, duplicates included.
func (r *CommentRepo) Save(ctx context.Context, c model.Comment) error {
	const query = `
		INSERT INTO comment (class, id, path, loc_written, identifiers)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			loc_written = excluded.loc_written,
			identifiers = excluded.identifiers
	`

	identifiers := c.Identifiers
	if identifiers == nil {
		identifiers = []string{}
	}
	identifiersJSON, err := json.Marshal(identifiers)
	if err != nil {
		return fmt.Errorf("marshal identifiers: %w", err)
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		classComment, c.ID, c.PathID, c.LocWritten, string(identifiersJSON),
	)
	if err != nil {
		return fmt.Errorf("upsert comment %s: %w", c.ID, err)
	}

	return nil
}

// Get retrieves a comment by id. Returns nil, nil if the comment does not exist.
func (r *CommentRepo) Get(ctx context.Context, id string) (*model.Comment, error) {
	const query = `SELECT id, path, loc_written, identifiers FROM comment WHERE id = ?`

	c, err := scanComment(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get comment %s: %w", id, err)
	}

	return c, nil
}

// GetByPath returns all comment rows under the path in insertion order.
func (r *CommentRepo) GetByPath(ctx context.Context, pathID string) ([]model.Comment, error) {
	const query = `SELECT id, path, loc_written, identifiers FROM comment WHERE path = ? ORDER BY rowid`

	rows, err := r.db.Reader.QueryContext(ctx, query, pathID)
	if err != nil {
		return nil, fmt.Errorf("query comments for path %s: %w", pathID, err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

func scanComment(s scanner) (*model.Comment, error) {
	var c model.Comment
	var locWritten sql.NullInt64
	var identifiers string

	if err := s.Scan(&c.ID, &c.PathID, &locWritten, &identifiers); err != nil {
		return nil, err
	}

	// A null counter reads as zero.
	if locWritten.Valid {
		c.LocWritten = int(locWritten.Int64)
	}

	if err := json.Unmarshal([]byte(identifiers), &c.Identifiers); err != nil {
		return nil, fmt.Errorf("unmarshal identifiers: %w", err)
	}

	return &c, nil
}
