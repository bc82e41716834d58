package auth

import (
	"context"
)

// Refresh verifies a still-valid token, re-loads the identity to catch
// deactivation since issuance and issues a fresh token. The old token is not
// invalidated.
func (s *Service) Refresh(ctx context.Context, token string) (AuthResult, error) {
	u, claims, err := s.token.resolve(ctx, token)
	audit := s.auditFn("auth.refresh", map[string]string{"user_id": claims.UserID})
	if err != nil {
		audit("error", err)
		return AuthResult{}, err
	}

	res, err := s.issue(u)
	if err != nil {
		audit("error", err)
		return AuthResult{}, err
	}
	audit("success", nil)
	return res, nil
}
