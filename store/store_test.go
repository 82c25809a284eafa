package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/schooldashboard/dsbplan/config"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestOpen_Ping(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Ping(context.Background(), db))
	require.True(t, db.Migrator().HasTable("substitution_plan_documents"))
	require.True(t, db.Migrator().HasTable("api_response_cache"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mysql"}, nil)
	require.Error(t, err)
}

func TestSqliteDSN(t *testing.T) {
	require.Equal(t, "a.db?_busy_timeout=5000", sqliteDSN("a.db"))
	require.Equal(t, "a.db?cache=shared&_busy_timeout=5000", sqliteDSN("a.db?cache=shared"))
	require.Equal(t, "a.db?_busy_timeout=100", sqliteDSN("a.db?_busy_timeout=100"))
}
