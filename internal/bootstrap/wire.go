package bootstrap

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/baechuer/user-service/internal/application/auth"
	"github.com/baechuer/user-service/internal/application/users"
	"github.com/baechuer/user-service/internal/audit"
	"github.com/baechuer/user-service/internal/config"
	"github.com/baechuer/user-service/internal/domain"
	"github.com/baechuer/user-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/user-service/internal/infrastructure/memory"
	"github.com/baechuer/user-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/user-service/internal/infrastructure/redis"
	"github.com/baechuer/user-service/internal/infrastructure/security"
	"github.com/baechuer/user-service/internal/logger"
	http_handlers "github.com/baechuer/user-service/internal/transport/http/handlers"
	"github.com/baechuer/user-service/internal/transport/http/middleware"
	"github.com/baechuer/user-service/internal/transport/http/response"
	"github.com/baechuer/user-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps.withDefaults())
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewLogger func(cfg *config.Config) zerolog.Logger

	NewDB   func(ctx context.Context, dsn string, lg zerolog.Logger) (*sql.DB, error)
	Migrate func(ctx context.Context, db *sql.DB, lg zerolog.Logger) error

	NewRedis func(addr, password string, db int) *redis.Client

	NewPublisher func(url, exchange string, lg zerolog.Logger) (Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

type Publisher interface {
	auth.EventPublisher
	Close() error
}

// userStore is the credential store seen by both application services.
type userStore interface {
	auth.UserRepo
	users.Repo
}

func (d Deps) withDefaults() Deps {
	def := defaultDeps()
	if d.LoadConfig == nil {
		d.LoadConfig = def.LoadConfig
	}
	if d.NewLogger == nil {
		d.NewLogger = def.NewLogger
	}
	if d.NewDB == nil {
		d.NewDB = def.NewDB
	}
	if d.Migrate == nil {
		d.Migrate = def.Migrate
	}
	if d.NewRedis == nil {
		d.NewRedis = def.NewRedis
	}
	if d.NewPublisher == nil {
		d.NewPublisher = def.NewPublisher
	}
	if d.NewRouter == nil {
		d.NewRouter = def.NewRouter
	}
	return d
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config + logging
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	lg := deps.NewLogger(cfg).With().Str("service", "user-service").Logger()
	auditLog := audit.New(lg)

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var checks []http_handlers.ReadinessCheck

	// 1) credential store: postgres when configured, memory otherwise
	var store userStore
	if cfg.DBAddr != "" {
		db, err := deps.NewDB(ctx, cfg.DBAddr, lg)
		if err != nil {
			return fail(domain.ErrDBUnavailable(err))
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })

		if cfg.DBAutoMigrate {
			if err := deps.Migrate(ctx, db, lg); err != nil {
				return fail(err)
			}
		}
		repo := postgres.NewUserRepo(db)
		checks = append(checks, http_handlers.ReadinessCheck{Name: "postgres", Pinger: repo})
		store = repo
		lg.Info().Msg("using postgres user store")
	} else {
		store = memory.NewUserRepo()
		lg.Info().Msg("using in-memory user store")
	}

	// 2) redis (best-effort in dev, required elsewhere once configured)
	var newCounter func() httprate.LimitCounter
	var ottStore auth.OneTimeTokenStore
	if cfg.RedisAddr != "" {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.Ping(pingCtx)
		pingCancel()

		switch {
		case err == nil:
			lg.Info().Msg("redis connected")
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			checks = append(checks, http_handlers.ReadinessCheck{Name: "redis", Pinger: c})
			newCounter = func() httprate.LimitCounter { return redis.NewWindowCounter(c) }
			ottStore = redis.NewOneTimeTokenStore(c)
		case cfg.IsDev():
			lg.Warn().Err(err).Msg("redis unavailable; falling back to in-process rate limits and token store")
			_ = c.Close()
		default:
			_ = c.Close()
			return fail(domain.ErrRedisUnavailable(err))
		}
	}
	if ottStore == nil {
		ottStore = memory.NewOneTimeTokenStore()
	}

	// 3) publisher
	var pub auth.EventPublisher
	if cfg.RabbitURL != "" {
		p, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange, lg)
		switch {
		case err == nil:
			cleanupFns = append(cleanupFns, func() { _ = p.Close() })
			pub = p
		case cfg.IsDev():
			lg.Warn().Err(err).Msg("rabbitmq unavailable; logging events instead")
		default:
			return fail(err)
		}
	}
	if pub == nil {
		pub = memory.NewLogPublisher(lg)
	}

	// 4) security
	hasher, err := security.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return fail(err)
	}
	lg.Info().Str("issuer", cfg.JWTIssuer).Dur("ttl", cfg.JWTTTL).Msg("initializing jwt signer")
	signer, err := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		return fail(err)
	}

	if cfg.SeedUsers {
		n := memory.SeedUsers(ctx, store, hasher, memory.DefaultSeedAccounts, lg)
		lg.Info().Int("created", n).Msg("seed accounts ready")
	}

	// 5) services
	authSvc := auth.NewService(store, hasher, signer, ottStore, pub, auth.Config{
		VerifyEmailBaseURL:    cfg.VerifyEmailBaseURL,
		PasswordResetBaseURL:  cfg.PasswordResetBaseURL,
		VerifyEmailTokenTTL:   cfg.VerifyEmailTokenTTL,
		PasswordResetTokenTTL: cfg.PasswordResetTokenTTL,
	}).WithAudit(auditLog.Record).WithLogger(lg)
	usersSvc := users.NewService(store).WithAudit(auditLog.Record)

	// 6) handlers + middleware
	writeErr := response.NewErrorWriter(cfg.IsDev())

	authH := http_handlers.NewAuthHandler(authSvc, writeErr)
	usersH := http_handlers.NewUsersHandler(usersSvc, writeErr)
	healthH := http_handlers.NewHealthHandler(checks...)

	rl := func(route string) router.Middleware {
		return middleware.RateLimitAuth(middleware.RateLimitConfig{
			RouteKey:   route,
			Limit:      cfg.AuthRateLimitMax,
			Window:     cfg.AuthRateLimitWindow,
			NewCounter: newCounter,
		}, writeErr, auditLog.RecordCtx)
	}

	// 7) router
	mux, err := deps.NewRouter(router.Deps{
		Health: healthH,
		Auth:   authH,
		Users:  usersH,

		AuthMW:         middleware.Auth(authSvc, writeErr),
		OptionalAuthMW: middleware.OptionalAuth(authSvc),
		ModMW:          middleware.RequireRoles(writeErr, domain.RoleModerator),
		AdminMW:        middleware.RequireRoles(writeErr, domain.RoleAdmin),
		RateLimit:      rl,

		Logger:          lg,
		WriteErr:        writeErr,
		Metrics:         promhttp.Handler(),
		GlobalRateLimit: cfg.GlobalRateLimit,
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	var once sync.Once
	cleanup := func() {
		once.Do(func() { runCleanup(cleanupFns) })
	}

	lg.Info().Str("env", cfg.Env).Str("addr", cfg.HTTPAddr).Msg("server wired")
	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewLogger: func(cfg *config.Config) zerolog.Logger {
			return logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
		},
		NewDB:    config.NewDB,
		Migrate:  postgres.Migrate,
		NewRedis: redis.New,
		NewPublisher: func(url, exchange string, lg zerolog.Logger) (Publisher, error) {
			return rabbitmq.NewPublisher(url, exchange, lg)
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
