package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/baechuer/user-service/internal/infrastructure/db/postgres/migrations"
)

// gooseUpContext is a seam for tests.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, db *sql.DB, lg zerolog.Logger) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}

	lg.Info().Msg("applying migrations")
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	lg.Info().Msg("migrations applied")
	return nil
}
