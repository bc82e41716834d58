package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

// NewDB opens the optional PostgreSQL store and pings it before returning.
func NewDB(ctx context.Context, dsn string, lg zerolog.Logger) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty DB DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(60 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if lg.GetLevel() <= zerolog.DebugLevel {
		var who, dbname, ver string
		_ = db.QueryRowContext(pingCtx, "SELECT current_user").Scan(&who)
		_ = db.QueryRowContext(pingCtx, "SELECT current_database()").Scan(&dbname)
		_ = db.QueryRowContext(pingCtx, "SHOW server_version").Scan(&ver)
		lg.Debug().Str("user", who).Str("db", dbname).Str("version", ver).Msg("db connected")
	}

	return db, nil
}
