package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/user-service/internal/bootstrap"
	"github.com/baechuer/user-service/internal/domain"
	"github.com/baechuer/user-service/internal/logger"
)

const shutdownTimeout = 15 * time.Second

// httpServer is the part of *http.Server that Run drives.
type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
	Close() error
	Addr() string
}

type stdServer struct{ *http.Server }

func (s stdServer) Addr() string { return s.Server.Addr }

// serverBuilder returns a ready server plus the cleanup for its dependencies.
type serverBuilder func() (httpServer, func(), error)

// Run serves until a signal arrives or the listener fails, and returns the
// process exit code.
func Run(build serverBuilder, sigCh <-chan os.Signal, lg zerolog.Logger) int {
	srv, cleanup, err := build()
	if err != nil {
		ev := lg.Error().Err(err)
		if de := domain.AsDomain(err); de.Kind == domain.KindConfiguration {
			ev = ev.Interface("reason", de.Meta["reason"])
		}
		ev.Msg("bootstrap failed")
		return 1
	}
	defer cleanup()

	serveErr := make(chan error, 1)
	go func() {
		lg.Info().Str("addr", srv.Addr()).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case sig := <-sigCh:
		lg.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-serveErr:
		lg.Error().Err(err).Msg("server crashed")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error().Err(err).Msg("graceful shutdown failed; closing")
		_ = srv.Close()
	}

	lg.Info().Msg("shutdown complete")
	return 0
}

func buildFromBootstrap() (httpServer, func(), error) {
	srv, cleanup, err := bootstrap.NewServer()
	if err != nil {
		return nil, nil, err
	}
	return stdServer{srv}, cleanup, nil
}

func main() {
	// Lifecycle logger; the service logger is built from the loaded config.
	lg := logger.New(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	os.Exit(Run(buildFromBootstrap, sigCh, lg))
}
