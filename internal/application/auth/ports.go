package auth

import (
	"context"
	"time"

	"github.com/baechuer/user-service/internal/domain"
)

/*
UserRepo
--------
Persistence port for identities.
Only describes WHAT the auth service needs, not HOW it's stored.
Lookups by email are case-insensitive; Create reports duplicate_email.
*/
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)

	// Updates needed by business flows
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
	SetEmailVerified(ctx context.Context, userID string) error
	RecordLogin(ctx context.Context, userID string, at time.Time) error
}

/*
PasswordHasher
--------------
Abstracts bcrypt. Verify is constant-time and never errors.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

/*
TokenSigner
-----------
Issues and verifies stateless access tokens (JWT).
Used by service + auth middleware.
*/
type TokenClaims struct {
	UserID    string
	Email     string
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenSigner interface {
	Issue(u domain.User) (string, TokenClaims, error)
	Verify(token string) (TokenClaims, error)
	TTL() time.Duration
}

/*
OneTimeTokenStore
-----------------
Opaque one-time tokens for:
- email verification
- password reset
*/
type OneTimeTokenKind string

const (
	TokenVerifyEmail   OneTimeTokenKind = "verify_email"
	TokenPasswordReset OneTimeTokenKind = "password_reset"
)

type OneTimeTokenStore interface {
	Save(ctx context.Context, kind OneTimeTokenKind, token string, userID string, ttl time.Duration) error
	// Consume returns reset_token_invalid / verify_token_invalid for unknown or expired tokens.
	Consume(ctx context.Context, kind OneTimeTokenKind, token string) (userID string, err error)
}

/*
EventPublisher
--------------
Delivers e-mail requests. The default implementation only logs;
the RabbitMQ one hands them to an e-mail worker.
*/
type EventPublisher interface {
	PublishVerifyEmail(ctx context.Context, evt VerifyEmailEvent) error
	PublishPasswordReset(ctx context.Context, evt PasswordResetEvent) error
}

type VerifyEmailEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	URL    string `json:"url"`
}

type PasswordResetEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	URL    string `json:"url"`
}
