package postgres

import (
	"context"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schemaDir holds the SQL applied by the migrations package. The migrations
// package imports this one, so tests read the files from disk instead.
const schemaDir = "../migrations/postgres"

// setupTestDB starts a throwaway PostgreSQL container with the schema applied.
// The container is terminated when the test finishes.
func setupTestDB(t *testing.T) *Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("pump"),
		postgres.WithUsername("pump"),
		postgres.WithPassword("pump"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn, WithAppName("pump-trader-test"), WithMaxConns(2))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applySchema(t, pool)
	return pool
}

func applySchema(t *testing.T, pool *Pool) {
	t.Helper()

	files, err := fs.Glob(os.DirFS(schemaDir), "*.sql") // sorted
	require.NoError(t, err)
	require.NotEmpty(t, files, "no schema files in %s", schemaDir)

	for _, name := range files {
		sql, err := os.ReadFile(schemaDir + "/" + name)
		require.NoError(t, err)
		_, err = pool.Exec(context.Background(), string(sql))
		require.NoError(t, err, "apply %s", name)
	}
}
