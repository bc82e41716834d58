package middleware

import (
	"net/http"

	"github.com/baechuer/user-service/internal/domain"
)

// RequireRoles admits identities whose role is in roles; admin also satisfies
// a moderator requirement. Must run after Auth.
func RequireRoles(writeErr WriteErrFunc, roles ...domain.Role) func(http.Handler) http.Handler {
	required := domain.RoleNames(roles)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				// Auth not applied
				writeErr(w, r, domain.ErrTokenMissing())
				return
			}

			if !domain.Satisfies(role, roles...) {
				writeErr(w, r, domain.ErrInsufficientPermissions(required, string(role)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
