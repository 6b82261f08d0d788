// Package migrate applies plain SQL migration files.
package migrate

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
)

// FromFiles executes every file in a single transaction, in the given order.
// The files are expected to be idempotent (CREATE ... IF NOT EXISTS).
func FromFiles(ctx context.Context, db *sqlx.DB, fileNames ...string) error {
	if len(fileNames) == 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db.BeginTxx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, fileName := range fileNames {
		query, err := os.ReadFile(fileName)
		if err != nil {
			return fmt.Errorf("os.ReadFile: %w", err)
		}

		if _, err = tx.ExecContext(ctx, string(query)); err != nil {
			return fmt.Errorf("apply %s: %w", fileName, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("tx.Commit: %w", err)
	}

	return nil
}
