package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/user-service/internal/domain"
)

const (
	defaultVerifyEmailTTL   = 24 * time.Hour
	defaultPasswordResetTTL = 30 * time.Minute
)

type Service struct {
	users  UserRepo
	hasher PasswordHasher
	signer TokenSigner
	ott    OneTimeTokenStore
	pub    EventPublisher

	local *localStrategy
	token *tokenStrategy

	audit func(action string, fields map[string]string)
	log   zerolog.Logger
	now   func() time.Time

	// URLs used to build links sent by e-mail
	verifyEmailBaseURL   string // e.g. https://frontend/verify-email?token=
	passwordResetBaseURL string // e.g. https://frontend/reset-password?token=
	verifyEmailTTL       time.Duration
	passwordResetTTL     time.Duration
}

type Config struct {
	VerifyEmailBaseURL    string
	PasswordResetBaseURL  string
	VerifyEmailTokenTTL   time.Duration
	PasswordResetTokenTTL time.Duration
}

func NewService(
	users UserRepo,
	hasher PasswordHasher,
	signer TokenSigner,
	ott OneTimeTokenStore,
	pub EventPublisher,
	cfg Config,
) *Service {
	verifyTTL := cfg.VerifyEmailTokenTTL
	if verifyTTL <= 0 {
		verifyTTL = defaultVerifyEmailTTL
	}
	resetTTL := cfg.PasswordResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = defaultPasswordResetTTL
	}
	return &Service{
		users:  users,
		hasher: hasher,
		signer: signer,
		ott:    ott,
		pub:    pub,

		local: newLocalStrategy(users, hasher),
		token: &tokenStrategy{users: users, signer: signer},

		audit: func(string, map[string]string) {},
		log:   zerolog.Nop(),
		now:   time.Now,

		verifyEmailBaseURL:   cfg.VerifyEmailBaseURL,
		passwordResetBaseURL: cfg.PasswordResetBaseURL,
		verifyEmailTTL:       verifyTTL,
		passwordResetTTL:     resetTTL,
	}
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

func (s *Service) WithLogger(lg zerolog.Logger) *Service {
	s.log = lg.With().Str("component", "auth_service").Logger()
	return s
}

// AuthResult is returned by login, register and refresh.
type AuthResult struct {
	User      domain.PublicUser
	Token     string
	TokenType string // "Bearer"
	ExpiresIn int64  // seconds
}

// issue signs a token for u and builds the common result.
func (s *Service) issue(u domain.User) (AuthResult, error) {
	tok, _, err := s.signer.Issue(u)
	if err != nil {
		return AuthResult{}, domain.AsDomain(err)
	}
	return AuthResult{
		User:      u.Public(),
		Token:     tok,
		TokenType: "Bearer",
		ExpiresIn: int64(s.signer.TTL().Seconds()),
	}, nil
}

// newOpaqueToken returns a URL-safe opaque token.
func newOpaqueToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		return "", errors.New("invalid token length")
	}
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// sendOneTimeLink stores a fresh one-time token and hands the link to publish.
func (s *Service) sendOneTimeLink(ctx context.Context, kind OneTimeTokenKind, ttl time.Duration, u domain.User, baseURL string, publish func(url string) error) error {
	token, err := newOpaqueToken(32)
	if err != nil {
		return domain.ErrRandomFailed(err)
	}
	if err := s.ott.Save(ctx, kind, token, u.ID, ttl); err != nil {
		return domain.AsDomain(err)
	}
	return publish(baseURL + token)
}
