package auth

import (
	"context"

	"github.com/baechuer/user-service/internal/domain"
)

// Authenticate verifies email/password and issues a token.
// IMPORTANT: must not leak whether the email exists (avoid user enumeration).
func (s *Service) Authenticate(ctx context.Context, email, password string) (AuthResult, error) {
	audit := s.auditFn("auth.login", map[string]string{"email": domain.NormalizeEmail(email)})

	u, err := s.local.Resolve(ctx, Credentials{Email: email, Password: password})
	if err != nil {
		audit("error", err)
		return AuthResult{}, err
	}

	now := s.now().UTC()
	if err := s.users.RecordLogin(ctx, u.ID, now); err != nil {
		audit("error", err)
		return AuthResult{}, domain.AsDomain(err)
	}
	u.LastLoginAt = &now
	u.UpdatedAt = now

	res, err := s.issue(u)
	if err != nil {
		audit("error", err)
		return AuthResult{}, err
	}
	audit("success", nil)
	return res, nil
}
