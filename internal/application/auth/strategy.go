package auth

import (
	"context"

	"github.com/baechuer/user-service/internal/domain"
)

// StrategyKind is the closed set of ways an identity can be established.
type StrategyKind string

const (
	StrategyLocal StrategyKind = "local" // email + password
	StrategyToken StrategyKind = "token" // bearer token
)

type Credentials struct {
	Email    string
	Password string
	Token    string
}

type Strategy interface {
	Kind() StrategyKind
	Resolve(ctx context.Context, c Credentials) (domain.User, error)
}

// Unknown emails are checked against a dummy digest so they cost one bcrypt
// comparison like every other attempt.
const (
	dummyDigestPassword = "not-a-real-password-placeholder"
	// fallbackDummyDigest is a well-formed cost-12 bcrypt digest, used when
	// hashing the placeholder fails.
	fallbackDummyDigest = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"
)

type localStrategy struct {
	users       UserRepo
	hasher      PasswordHasher
	dummyDigest string
}

func newLocalStrategy(users UserRepo, hasher PasswordHasher) *localStrategy {
	digest, err := hasher.Hash(dummyDigestPassword)
	if err != nil || digest == "" {
		digest = fallbackDummyDigest
	}
	return &localStrategy{users: users, hasher: hasher, dummyDigest: digest}
}

func (l *localStrategy) Kind() StrategyKind { return StrategyLocal }

// Resolve returns invalid_credentials for a missing account, an inactive
// account and a wrong password alike.
func (l *localStrategy) Resolve(ctx context.Context, c Credentials) (domain.User, error) {
	email := domain.NormalizeEmail(c.Email)
	if email == "" || c.Password == "" {
		return domain.User{}, domain.ErrInvalidCredentials()
	}

	u, err := l.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			_ = l.hasher.Verify(c.Password, l.dummyDigest)
			return domain.User{}, domain.ErrInvalidCredentials()
		}
		return domain.User{}, domain.AsDomain(err)
	}

	if !l.hasher.Verify(c.Password, u.PasswordHash) {
		return domain.User{}, domain.ErrInvalidCredentials()
	}
	if !u.Active {
		return domain.User{}, domain.ErrInvalidCredentials()
	}
	return u, nil
}

type tokenStrategy struct {
	users  UserRepo
	signer TokenSigner
}

func (t *tokenStrategy) Kind() StrategyKind { return StrategyToken }

func (t *tokenStrategy) Resolve(ctx context.Context, c Credentials) (domain.User, error) {
	u, _, err := t.resolve(ctx, c.Token)
	return u, err
}

// resolve verifies the token and re-loads the identity; every failure is token_invalid.
func (t *tokenStrategy) resolve(ctx context.Context, token string) (domain.User, TokenClaims, error) {
	if token == "" {
		return domain.User{}, TokenClaims{}, domain.ErrTokenInvalid()
	}
	claims, err := t.signer.Verify(token)
	if err != nil {
		return domain.User{}, TokenClaims{}, domain.ErrTokenInvalid()
	}
	u, err := t.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return domain.User{}, TokenClaims{}, domain.ErrTokenInvalid()
		}
		return domain.User{}, TokenClaims{}, domain.AsDomain(err)
	}
	if !u.Active {
		return domain.User{}, TokenClaims{}, domain.ErrTokenInvalid()
	}
	return u, claims, nil
}

// AuthenticateWith dispatches explicitly on kind; unknown kinds are rejected.
func (s *Service) AuthenticateWith(ctx context.Context, kind StrategyKind, c Credentials) (domain.User, error) {
	var st Strategy
	switch kind {
	case StrategyLocal:
		st = s.local
	case StrategyToken:
		st = s.token
	default:
		return domain.User{}, domain.ErrUnsupportedStrategy(string(kind))
	}
	return st.Resolve(ctx, c)
}

// ResolveToken is used by the HTTP auth gate.
func (s *Service) ResolveToken(ctx context.Context, token string) (domain.User, TokenClaims, error) {
	return s.token.resolve(ctx, token)
}
