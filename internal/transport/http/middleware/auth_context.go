package middleware

import (
	"context"

	"github.com/baechuer/user-service/internal/domain"
)

type ctxKey string

const ctxIdentity ctxKey = "identity"

// Identity is what the authorization gate stores for downstream handlers.
type Identity struct {
	UserID string
	Email  string
	Role   domain.Role
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxIdentity).(Identity)
	return v, ok && v.UserID != ""
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.UserID, ok
}

func RoleFromContext(ctx context.Context) (domain.Role, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.Role, ok
}
