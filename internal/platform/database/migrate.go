package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	log "github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schema string

// Migrate applies the idempotent schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	log.Info("Database schema is up to date")
	return nil
}
