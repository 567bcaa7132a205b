// Package dbtest starts a throwaway PostgreSQL container with the
// progression schema applied, for integration tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/pai-progress/internal/platform/database"
)

// NewPool returns a migrated pool. It skips the test in -short mode.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("progress"),
		postgres.WithUsername("pai"),
		postgres.WithPassword("pai"),
		postgres.BasicWaitStrategies(),
	)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	url, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}

	db, err := database.Connect(ctx, url, database.PoolOptions{MaxConns: 5, MinConns: 1})
	if err != nil {
		t.Fatalf("database.Connect() error = %v", err)
	}
	t.Cleanup(db.Close)

	if err := database.Migrate(ctx, db.Pool); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db.Pool
}
