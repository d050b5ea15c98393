package migrations

import (
	"context"
	"fmt"

	"pump-trader/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order and
// returns the names of the files applied. Migrations are idempotent.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) ([]string, error) {
	files, contents, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if _, err := pool.Exec(ctx, contents[file]); err != nil {
			return nil, fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return files, nil
}
