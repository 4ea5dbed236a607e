package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kwalsh/prsession/internal/domain/model"
	"github.com/kwalsh/prsession/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BufferStore = (*BufferRepo)(nil)

// BufferRepo is the SQLite implementation of the BufferStore port interface.
// It covers the buffer and path tables, including the transactional
// current-path operations.
type BufferRepo struct {
	db *DB
}

// NewBufferRepo creates a new BufferRepo backed by the given DB.
func NewBufferRepo(db *DB) *BufferRepo {
	return &BufferRepo{db: db}
}

// Save inserts or replaces a buffer row by id.
func (r *BufferRepo) Save(ctx context.Context, buf model.Buffer) error {
	if err := upsertBuffer(ctx, r.db.Writer, buf); err != nil {
		return fmt.Errorf("upsert buffer %s: %w", buf.ID, err)
	}
	return nil
}

// GetByReview returns all buffer rows owned by the review in insertion order.
func (r *BufferRepo) GetByReview(ctx context.Context, reviewID string) ([]model.Buffer, error) {
	const query = `SELECT id, pullreq, raw_text FROM buffer WHERE pullreq = ? ORDER BY rowid`

	rows, err := r.db.Reader.QueryContext(ctx, query, reviewID)
	if err != nil {
		return nil, fmt.Errorf("query buffers for review %s: %w", reviewID, err)
	}
	defer rows.Close()

	var bufs []model.Buffer
	for rows.Next() {
		var buf model.Buffer
		if err := rows.Scan(&buf.ID, &buf.ReviewID, &buf.RawText); err != nil {
			return nil, fmt.Errorf("scan buffer: %w", err)
		}
		bufs = append(bufs, buf)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buffers: %w", err)
	}

	return bufs, nil
}

// SavePath inserts or replaces a path row by id.
func (r *BufferRepo) SavePath(ctx context.Context, p model.Path) error {
	if err := upsertPath(ctx, r.db.Writer, p); err != nil {
		return fmt.Errorf("upsert path %s: %w", p.ID, err)
	}
	return nil
}

// GetPaths returns all path rows under the buffer in insertion order.
func (r *BufferRepo) GetPaths(ctx context.Context, bufferID string) ([]model.Path, error) {
	const query = `SELECT id, name, head_pos, buffer, at_pos_p FROM path WHERE buffer = ? ORDER BY rowid`

	rows, err := r.db.Reader.QueryContext(ctx, query, bufferID)
	if err != nil {
		return nil, fmt.Errorf("query paths for buffer %s: %w", bufferID, err)
	}
	defer rows.Close()

	var paths []model.Path
	for rows.Next() {
		p, err := scanPath(rows)
		if err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate paths: %w", err)
	}

	return paths, nil
}

// CreateWithPath inserts a buffer and its first path in one transaction, so a
// failure between the statements cannot leave a buffer without its current
// path.
func (r *BufferRepo) CreateWithPath(ctx context.Context, buf model.Buffer, p model.Path) error {
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		if err := upsertBuffer(ctx, tx, buf); err != nil {
			return fmt.Errorf("upsert buffer %s: %w", buf.ID, err)
		}
		if err := upsertPath(ctx, tx, p); err != nil {
			return fmt.Errorf("upsert path %s: %w", p.ID, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create buffer with path: %w", err)
	}
	return nil
}

// ReplaceCurrentPath clears at_pos_p on every path under the buffer and
// inserts p as the new current path, in one transaction. Earlier rows sharing
// p's name are left in place; only the flag moves.
func (r *BufferRepo) ReplaceCurrentPath(ctx context.Context, bufferID string, p model.Path) error {
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE path SET at_pos_p = 0 WHERE buffer = ?`, bufferID); err != nil {
			return fmt.Errorf("clear current flags for buffer %s: %w", bufferID, err)
		}
		if err := upsertPath(ctx, tx, p); err != nil {
			return fmt.Errorf("upsert path %s: %w", p.ID, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace current path: %w", err)
	}
	return nil
}

func upsertBuffer(ctx context.Context, ex execer, buf model.Buffer) error {
	const query = `
		INSERT INTO buffer (class, id, pullreq, raw_text)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pullreq = excluded.pullreq,
			raw_text = excluded.raw_text
	`

	_, err := ex.ExecContext(ctx, query, classBuffer, buf.ID, buf.ReviewID, buf.RawText)
	return err
}

func upsertPath(ctx context.Context, ex execer, p model.Path) error {
	const query = `
		INSERT INTO path (class, id, name, head_pos, buffer, at_pos_p)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			head_pos = excluded.head_pos,
			buffer = excluded.buffer,
			at_pos_p = excluded.at_pos_p
	`

	var headPos any
	if p.HeadPos != nil {
		headPos = *p.HeadPos
	}

	atPos := 0
	if p.AtPos {
		atPos = 1
	}

	_, err := ex.ExecContext(ctx, query, classPath, p.ID, p.Name, headPos, p.BufferID, atPos)
	return err
}

func scanPath(s scanner) (*model.Path, error) {
	var p model.Path
	var headPos sql.NullInt64
	var atPos int

	if err := s.Scan(&p.ID, &p.Name, &headPos, &p.BufferID, &atPos); err != nil {
		return nil, err
	}

	if headPos.Valid {
		pos := int(headPos.Int64)
		p.HeadPos = &pos
	}
	p.AtPos = atPos != 0

	return &p, nil
}
