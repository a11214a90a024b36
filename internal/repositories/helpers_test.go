package repositories

import (
	"path/filepath"
	"testing"

	"eyeshield/config"
	"eyeshield/internal/database"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) database.DB {
	t.Helper()
	db, err := database.New(config.Config{DatabaseDbPath: filepath.Join(t.TempDir(), "eyeshield.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func intPtr(i int) *int {
	return &i
}
