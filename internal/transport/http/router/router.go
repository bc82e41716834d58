package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/baechuer/user-service/internal/domain"
	"github.com/baechuer/user-service/internal/transport/http/middleware"
	"github.com/baechuer/user-service/internal/transport/http/response"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	// Core auth
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Refresh(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Profile(w http.ResponseWriter, r *http.Request)
	Status(w http.ResponseWriter, r *http.Request)
	ChangePassword(w http.ResponseWriter, r *http.Request)

	// Email verification
	VerifyEmail(w http.ResponseWriter, r *http.Request)
	ResendVerification(w http.ResponseWriter, r *http.Request)

	// Password reset
	ForgotPassword(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
}

type UsersHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	Activate(w http.ResponseWriter, r *http.Request)
	Deactivate(w http.ResponseWriter, r *http.Request)
}

type Middleware = func(http.Handler) http.Handler

type Deps struct {
	Health HealthHandler
	Auth   AuthHandler
	Users  UsersHandler

	AuthMW         Middleware
	OptionalAuthMW Middleware
	ModMW          Middleware // moderator or admin
	AdminMW        Middleware
	// RateLimit returns the per-route auth limiter; nil disables it.
	RateLimit func(route string) Middleware

	Logger   zerolog.Logger
	WriteErr response.WriteErrFunc
	Metrics  http.Handler

	// GlobalRateLimit is requests per minute per IP across the API; 0 disables.
	GlobalRateLimit int
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("nil Users handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}
	if deps.OptionalAuthMW == nil {
		return nil, fmt.Errorf("nil OptionalAuth middleware")
	}
	if deps.ModMW == nil {
		return nil, fmt.Errorf("nil Mod middleware")
	}
	if deps.AdminMW == nil {
		return nil, fmt.Errorf("nil Admin middleware")
	}
	if deps.WriteErr == nil {
		deps.WriteErr = response.WriteError
	}
	limit := deps.RateLimit
	if limit == nil {
		limit = func(string) Middleware { return passthrough }
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Metrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		deps.WriteErr(w, r, domain.New(domain.KindNotFound, "route_not_found", "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Status(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		if deps.GlobalRateLimit > 0 {
			r.Use(httprate.Limit(
				deps.GlobalRateLimit,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					deps.WriteErr(w, r, domain.ErrRateLimited("global", 60))
				}),
			))
		}

		r.Route("/auth", func(r chi.Router) {
			// --- Core auth ---
			r.With(limit("auth.login")).Post("/login", deps.Auth.Login)
			r.With(limit("auth.register")).Post("/register", deps.Auth.Register)
			r.Post("/refresh-token", deps.Auth.Refresh)
			r.With(deps.OptionalAuthMW).Get("/status", deps.Auth.Status)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMW)
				r.Get("/profile", deps.Auth.Profile)
				r.Post("/logout", deps.Auth.Logout)
				r.Post("/change-password", deps.Auth.ChangePassword)
			})

			// --- Email verification ---
			r.Get("/verify-email/{token}", deps.Auth.VerifyEmail)
			r.Get("/verify-email", deps.Auth.VerifyEmail) // ?token=...
			r.With(limit("auth.resend_verification")).Post("/resend-verification", deps.Auth.ResendVerification)

			// --- Password reset ---
			r.With(limit("auth.forgot_password")).Post("/forgot-password", deps.Auth.ForgotPassword)
			r.With(limit("auth.reset_password")).Post("/reset-password", deps.Auth.ResetPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(deps.AuthMW)

			r.With(deps.ModMW).Get("/", deps.Users.List)
			// self-or-privileged rules are enforced by the users service
			r.Get("/{id}", deps.Users.Get)
			r.Patch("/{id}", deps.Users.Update)

			r.Group(func(r chi.Router) {
				r.Use(deps.AdminMW)
				r.Delete("/{id}", deps.Users.Delete)
				r.Post("/{id}/activate", deps.Users.Activate)
				r.Post("/{id}/deactivate", deps.Users.Deactivate)
			})
		})
	})

	return r, nil
}

func passthrough(next http.Handler) http.Handler { return next }
