package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwalsh/prsession/internal/domain/port/driven"
)

var testKey = []byte("0123456789abcdef0123456789abcdef") // 32 bytes

func TestCredentialRepo_SetGetRoundtrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "github", "ghp_secret123"))

	got, err := repo.Get(ctx, "github")
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret123", got)

	// Stored value is ciphertext, not the plaintext.
	var stored string
	require.NoError(t, db.Reader.QueryRowContext(ctx, `SELECT value FROM credentials WHERE service = ?`, "github").Scan(&stored))
	assert.NotEqual(t, "ghp_secret123", stored)
}

func TestCredentialRepo_GetAbsent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)

	got, err := repo.Get(context.Background(), "github")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCredentialRepo_NoKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, nil)
	ctx := context.Background()

	err := repo.Set(ctx, "github", "value")
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	_, err = repo.Get(ctx, "github")
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestCredentialRepo_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "github", "value"))
	require.NoError(t, repo.Delete(ctx, "github"))

	got, err := repo.Get(ctx, "github")
	require.NoError(t, err)
	assert.Empty(t, got)
}
