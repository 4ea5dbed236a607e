package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwalsh/prsession/internal/domain/model"
)

func seedPath(t *testing.T, db *DB) (pathID string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, NewReviewRepo(db).Save(ctx, makeReview("rev-1")))
	repo := NewBufferRepo(db)
	require.NoError(t, repo.Save(ctx, model.Buffer{ID: "buf-1", ReviewID: "rev-1"}))
	require.NoError(t, repo.SavePath(ctx, model.Path{ID: "path-1", BufferID: "buf-1", Name: "main.go", AtPos: true}))
	return "path-1"
}

func TestCommentRepo_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	pathID := seedPath(t, db)

	repo := NewCommentRepo(db)
	c := model.Comment{
		ID:          pathID,
		PathID:      pathID,
		LocWritten:  7,
		Identifiers: []string{"b", "a", "a"}, // duplicates survive as stored
	}
	require.NoError(t, repo.Save(ctx, c))

	got, err := repo.Get(ctx, pathID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 7, got.LocWritten)
	assert.Equal(t, []string{"b", "a", "a"}, got.Identifiers)
}

func TestCommentRepo_GetAbsentReturnsNil(t *testing.T) {
	db := setupTestDB(t)

	got, err := NewCommentRepo(db).Get(context.Background(), "no-such-comment")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCommentRepo_GetByPathOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	pathID := seedPath(t, db)

	repo := NewCommentRepo(db)
	require.NoError(t, repo.Save(ctx, model.Comment{ID: "c-1", PathID: pathID}))
	require.NoError(t, repo.Save(ctx, model.Comment{ID: "c-2", PathID: pathID, LocWritten: 2}))

	comments, err := repo.GetByPath(ctx, pathID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c-1", comments[0].ID)
	assert.Equal(t, "c-2", comments[1].ID)
	assert.Zero(t, comments[0].LocWritten)
	assert.Empty(t, comments[0].Identifiers)
}

func TestCommentRepo_OrphanRejected(t *testing.T) {
	db := setupTestDB(t)

	err := NewCommentRepo(db).Save(context.Background(), model.Comment{
		ID:     "c-1",
		PathID: "no-such-path",
	})
	require.Error(t, err)
}
