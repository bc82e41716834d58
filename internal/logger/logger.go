package logger

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. format is "json" or "console"; an unknown
// level falls back to info.
func New(w io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if strings.EqualFold(format, "json") {
		return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger().Level(lvl)
}

// WithCtx returns the request-scoped logger attached by the request logging
// middleware, or a disabled logger when there is none.
func WithCtx(ctx context.Context) zerolog.Logger {
	return *zerolog.Ctx(ctx)
}
