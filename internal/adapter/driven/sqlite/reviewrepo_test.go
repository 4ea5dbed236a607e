package sqlite

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwalsh/prsession/internal/domain/model"
	"github.com/kwalsh/prsession/internal/domain/port/driven"
)

func makeReview(id string) model.Review {
	return model.Review{
		ID:     id,
		Owner:  "octocat",
		Repo:   "hello-world",
		Number: 42,
		Host:   "github.com",
		SHA:    "abc123",
		State:  "OPEN",
	}
}

func TestReviewRepo_SaveIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepo(db)
	ctx := context.Background()

	review := makeReview("rev-1")
	review.Feedback = "needs work"

	require.NoError(t, repo.Save(ctx, review))
	require.NoError(t, repo.Save(ctx, review))

	var count int
	require.NoError(t, db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM pullreq WHERE id = ?`, "rev-1").Scan(&count))
	assert.Equal(t, 1, count)

	got, err := repo.Get(ctx, "rev-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "octocat", got.Owner)
	assert.Equal(t, "hello-world", got.Repo)
	assert.Equal(t, 42, got.Number)
	assert.Equal(t, "abc123", got.SHA)
	assert.Equal(t, "needs work", got.Feedback)
	assert.Equal(t, "OPEN", got.State)
}

func TestReviewRepo_GetAbsentReturnsNil(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepo(db)

	got, err := repo.Get(context.Background(), "no-such-review")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReviewRepo_RawPayloadRoundtrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReviewRepo(db)
	ctx := context.Background()

	review := makeReview("rev-1")
	review.RawInfos = json.RawMessage(`{"headRef":{"target":{"oid":"deadbeef"}}}`)
	review.RawDiff = "diff --git a/main.go b/main.go\n"
	review.RawComments = []json.RawMessage{
		json.RawMessage(`{"body":"newest"}`),
		json.RawMessage(`{"body":"oldest"}`),
	}

	require.NoError(t, repo.Save(ctx, review))

	got, err := repo.Get(ctx, "rev-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, string(review.RawInfos), string(got.RawInfos))
	assert.Equal(t, review.RawDiff, got.RawDiff)
	require.Len(t, got.RawComments, 2)
	assert.JSONEq(t, `{"body":"newest"}`, string(got.RawComments[0]))
	assert.JSONEq(t, `{"body":"oldest"}`, string(got.RawComments[1]))
}

// seedReviewTree inserts a review with one buffer, one path, and one comment,
// returning the ids at each level.
func seedReviewTree(t *testing.T, db *DB) (reviewID, bufferID, pathID, commentID string) {
	t.Helper()
	ctx := context.Background()

	reviewID, bufferID, pathID, commentID = "rev-1", "buf-1", "path-1", "path-1"

	require.NoError(t, NewReviewRepo(db).Save(ctx, makeReview(reviewID)))

	bufRepo := NewBufferRepo(db)
	require.NoError(t, bufRepo.Save(ctx, model.Buffer{ID: bufferID, ReviewID: reviewID}))
	require.NoError(t, bufRepo.SavePath(ctx, model.Path{ID: pathID, BufferID: bufferID, Name: "main.go", AtPos: true}))

	require.NoError(t, NewCommentRepo(db).Save(ctx, model.Comment{
		ID:          commentID,
		PathID:      pathID,
		LocWritten:  3,
		Identifiers: []string{"x"},
	}))

	return reviewID, bufferID, pathID, commentID
}

func TestReviewRepo_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	reviewID, bufferID, pathID, commentID := seedReviewTree(t, db)

	require.NoError(t, NewReviewRepo(db).Delete(ctx, reviewID))

	got, err := NewReviewRepo(db).Get(ctx, reviewID)
	require.NoError(t, err)
	assert.Nil(t, got)

	bufs, err := NewBufferRepo(db).GetByReview(ctx, reviewID)
	require.NoError(t, err)
	assert.Empty(t, bufs)

	paths, err := NewBufferRepo(db).GetPaths(ctx, bufferID)
	require.NoError(t, err)
	assert.Empty(t, paths)

	comments, err := NewCommentRepo(db).GetByPath(ctx, pathID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	c, err := NewCommentRepo(db).Get(ctx, commentID)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestReviewRepo_DeleteAbsent(t *testing.T) {
	db := setupTestDB(t)

	err := NewReviewRepo(db).Delete(context.Background(), "no-such-review")
	require.Error(t, err)
	assert.ErrorIs(t, err, driven.ErrReviewNotFound)
}
