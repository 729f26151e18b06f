package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func getTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func migrationsPath(t *testing.T) string {
	path, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	return path
}

func tableExists(t *testing.T, db *sql.DB, table string) bool {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = $1
		)`, table).Scan(&exists)
	require.NoError(t, err)
	return exists
}

func TestRunMigrations(t *testing.T) {
	db := getTestDB(t)

	require.NoError(t, Run(db, migrationsPath(t)))

	require.True(t, tableExists(t, db, "users"), "table users should exist")
	require.True(t, tableExists(t, db, "subscriptions"), "table subscriptions should exist")

	var exists bool
	err := db.QueryRow(`SELECT EXISTS (
			SELECT 1 FROM pg_indexes
			WHERE schemaname = 'public' AND tablename = 'subscriptions'
			AND indexname = 'idx_subscriptions_user_id'
		)`).Scan(&exists)
	require.NoError(t, err)
	require.True(t, exists, "owner index should exist")
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := getTestDB(t)

	require.NoError(t, Run(db, migrationsPath(t)))
	require.NoError(t, Run(db, migrationsPath(t)))
}

func TestRunMigrations_BadPath(t *testing.T) {
	db := getTestDB(t)

	require.Error(t, Run(db, filepath.Join(t.TempDir(), "missing")))
}
