package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwalsh/prsession/internal/domain/port/driven"
)

func TestNewDB_CreatesDataDir(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "prsession.db")

	db, err := NewDB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Ping(context.Background()))
}

func TestCheckSchemaVersion_StampsFreshStore(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// setupTestDB already stamped; a second check is a no-op.
	require.NoError(t, db.CheckSchemaVersion(ctx))

	var v int
	require.NoError(t, db.Writer.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v))
	assert.Equal(t, schemaVersion, v)
}

func TestCheckSchemaVersion_Mismatch(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := db.Writer.ExecContext(ctx, "PRAGMA user_version = 3")
	require.NoError(t, err)

	err = db.CheckSchemaVersion(ctx)
	assert.ErrorIs(t, err, driven.ErrSchemaVersion)
}
