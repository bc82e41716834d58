package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/baechuer/user-service/internal/application/auth"
	"github.com/baechuer/user-service/internal/domain"
)

const defaultTokenTTL = 24 * time.Hour

type JWTSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTSigner refuses an empty secret; there is no unsigned fallback.
func NewJWTSigner(secret, issuer string, ttl time.Duration) (*JWTSigner, error) {
	if secret == "" {
		return nil, domain.ErrConfiguration("JWT secret is not configured")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &JWTSigner{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (s *JWTSigner) TTL() time.Duration { return s.ttl }

type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func (s *JWTSigner) Issue(u domain.User) (string, auth.TokenClaims, error) {
	now := s.now().UTC().Truncate(time.Second)
	exp := now.Add(s.ttl)

	claims := accessClaims{
		Email: u.Email,
		Role:  string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", auth.TokenClaims{}, domain.ErrTokenSignFailed(err)
	}

	return signed, auth.TokenClaims{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		IssuedAt:  now,
		ExpiresAt: exp,
	}, nil
}

// Verify maps every failure (signature, structure, algorithm, expiry) to token_invalid.
func (s *JWTSigner) Verify(token string) (auth.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (any, error) {
		// prevent alg confusion
		if t.Method != jwt.SigningMethodHS256 {
			return nil, domain.ErrTokenInvalid()
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return auth.TokenClaims{}, domain.ErrTokenInvalid()
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return auth.TokenClaims{}, domain.ErrTokenInvalid()
	}

	out := auth.TokenClaims{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   domain.Role(claims.Role),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
