package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"stockledger/pkg/logger"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate applies the embedded schema files in name order. Every statement
// is idempotent, so Migrate is safe to run on each start.
func Migrate(ctx context.Context, txm *TxManager) error {
	files, err := fs.Glob(schemaFS, "schema/*.sql")
	if err != nil {
		return fmt.Errorf("list schema files: %w", err)
	}
	sort.Strings(files)

	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, name := range files {
			body, err := schemaFS.ReadFile(name)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			if _, err := txm.GetQuerier(ctx).Exec(ctx, string(body)); err != nil {
				return fmt.Errorf("apply %s: %w", name, err)
			}
			logger.Info(ctx, "schema applied", "file", name)
		}
		return nil
	})
}
