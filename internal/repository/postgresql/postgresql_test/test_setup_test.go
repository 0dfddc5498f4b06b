package postgresql_test

import (
	"context"
	"os"
	"testing"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/pkg/database"
	"github.com/cmlabs-hris/discipline-dashboard-go/internal/repository/postgresql"
	"github.com/stretchr/testify/require"
)

// newTestDatabase connects to TEST_DATABASE_URL and skips the test when it is unset.
func newTestDatabase(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, postgresql.EnsureExportRunSchema(ctx, db))
	_, err = db.Exec(ctx, "TRUNCATE TABLE export_runs")
	require.NoError(t, err)

	return db
}
