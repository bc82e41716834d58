package auth

import (
	"context"

	"github.com/baechuer/user-service/internal/domain"
)

func (s *Service) Profile(ctx context.Context, userID string) (domain.PublicUser, error) {
	if userID == "" {
		return domain.PublicUser{}, domain.ErrTokenMissing()
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.PublicUser{}, domain.AsDomain(err)
	}
	return u.Public(), nil
}
