package auth

import (
	"context"

	"github.com/baechuer/user-service/internal/domain"
)

// ChangePassword changes the password of an authenticated user.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	audit := s.auditFn("auth.change_password", map[string]string{"user_id": userID})

	if userID == "" {
		err := domain.ErrTokenMissing()
		audit("error", err)
		return err
	}
	if current == "" {
		err := domain.ErrMissingField("currentPassword")
		audit("error", err)
		return err
	}
	if err := validatePassword("newPassword", next); err != nil {
		audit("error", err)
		return err
	}
	if current == next {
		err := domain.ErrInvalidField("newPassword", "must differ from current password")
		audit("error", err)
		return err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		audit("error", err)
		return domain.AsDomain(err)
	}

	if !s.hasher.Verify(current, u.PasswordHash) {
		err := domain.ErrInvalidCredentials()
		audit("error", err)
		return err
	}

	newHash, err := s.hasher.Hash(next)
	if err != nil {
		err = domain.ErrHashFailed(err)
		audit("error", err)
		return err
	}

	if err := s.users.UpdatePasswordHash(ctx, userID, newHash); err != nil {
		audit("error", err)
		return domain.AsDomain(err)
	}
	audit("success", nil)
	return nil
}

// RequestPasswordReset generates a one-time token and publishes an email event.
// IMPORTANT: non-enumerating - unknown or inactive accounts return nil too.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	audit := s.auditFn("auth.password_reset_request", map[string]string{"email": email})

	if err := validateEmail(email); err != nil {
		audit("error", err)
		return err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			audit("skipped", nil)
			return nil
		}
		audit("error", err)
		return domain.AsDomain(err)
	}
	if !u.Active {
		audit("skipped", nil)
		return nil
	}

	err = s.sendOneTimeLink(ctx, TokenPasswordReset, s.passwordResetTTL, u, s.passwordResetBaseURL, func(url string) error {
		return s.pub.PublishPasswordReset(ctx, PasswordResetEvent{UserID: u.ID, Email: u.Email, URL: url})
	})
	if err != nil {
		// delivery is best-effort; the caller must not learn the account exists
		s.log.Warn().Err(err).Str("user_id", u.ID).Msg("password reset request failed")
		audit("error", err)
		return nil
	}
	audit("success", nil)
	return nil
}

// ResetPassword consumes the token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, token, next string) error {
	audit := s.auditFn("auth.password_reset", nil)

	if token == "" {
		err := domain.ErrMissingField("token")
		audit("error", err)
		return err
	}
	if err := validatePassword("newPassword", next); err != nil {
		audit("error", err)
		return err
	}

	userID, err := s.ott.Consume(ctx, TokenPasswordReset, token)
	if err != nil {
		audit("error", err)
		return domain.AsDomain(err)
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		err = domain.ErrHashFailed(err)
		audit("error", err)
		return err
	}

	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if domain.Is(err, "user_not_found") {
			err = domain.ErrResetTokenInvalid()
		}
		audit("error", err)
		return domain.AsDomain(err)
	}
	audit("success", nil)
	return nil
}
