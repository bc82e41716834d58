package auth

import (
	"context"
	"strings"

	"github.com/baechuer/user-service/internal/domain"
)

// RequestEmailVerification re-sends the verification link.
// IMPORTANT: non-enumerating - if user not found (or already verified), return nil.
func (s *Service) RequestEmailVerification(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return nil
		}
		return domain.AsDomain(err)
	}
	if u.EmailVerified || !u.Active {
		return nil
	}

	if err := s.sendVerification(ctx, u); err != nil {
		s.log.Warn().Err(err).Str("user_id", u.ID).Msg("verification email request failed")
	}
	return nil
}

func (s *Service) sendVerification(ctx context.Context, u domain.User) error {
	return s.sendOneTimeLink(ctx, TokenVerifyEmail, s.verifyEmailTTL, u, s.verifyEmailBaseURL, func(url string) error {
		return s.pub.PublishVerifyEmail(ctx, VerifyEmailEvent{UserID: u.ID, Email: u.Email, URL: url})
	})
}

// VerifyEmail consumes token and marks user as verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	audit := s.auditFn("auth.verify_email", nil)

	if token == "" {
		err := domain.ErrMissingField("token")
		audit("error", err)
		return err
	}

	userID, err := s.ott.Consume(ctx, TokenVerifyEmail, token)
	if err != nil {
		audit("error", err)
		return domain.AsDomain(err)
	}

	if err := s.users.SetEmailVerified(ctx, userID); err != nil {
		if domain.Is(err, "user_not_found") {
			err = domain.ErrVerifyTokenInvalid()
		}
		audit("error", err)
		return domain.AsDomain(err)
	}
	audit("success", nil)
	return nil
}
