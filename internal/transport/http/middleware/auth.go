package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/baechuer/user-service/internal/application/auth"
	"github.com/baechuer/user-service/internal/domain"
	"github.com/baechuer/user-service/internal/transport/http/response"
)

// TokenResolver verifies a bearer token and loads the active identity behind it.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (domain.User, auth.TokenClaims, error)
}

type WriteErrFunc = response.WriteErrFunc

// BearerToken extracts the token from "Authorization: Bearer <token>".
// present is false when the header is absent.
func BearerToken(r *http.Request) (token string, present bool, err error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false, nil
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", true, domain.ErrTokenInvalid()
	}
	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", true, domain.ErrTokenInvalid()
	}
	return raw, true, nil
}

// Auth requires a valid bearer token and injects the identity into the request context.
func Auth(resolver TokenResolver, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, present, err := BearerToken(r)
			if !present {
				writeErr(w, r, domain.ErrTokenMissing())
				return
			}
			if err != nil {
				writeErr(w, r, err)
				return
			}

			u, _, err := resolver.ResolveToken(r.Context(), raw)
			if err != nil {
				if domain.IsKind(err, domain.KindInfrastructure) {
					writeErr(w, r, err)
					return
				}
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			ctx := WithIdentity(r.Context(), Identity{UserID: u.ID, Email: u.Email, Role: u.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth injects the identity when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, present, err := BearerToken(r)
			if present && err == nil {
				if u, _, err := resolver.ResolveToken(r.Context(), raw); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), Identity{UserID: u.ID, Email: u.Email, Role: u.Role}))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
