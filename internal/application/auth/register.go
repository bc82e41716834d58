package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/baechuer/user-service/internal/domain"
)

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role // empty => user
}

func (in RegisterInput) validate() error {
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if err := validatePassword("password", in.Password); err != nil {
		return err
	}
	if err := ValidateName("firstName", in.FirstName); err != nil {
		return err
	}
	if err := ValidateName("lastName", in.LastName); err != nil {
		return err
	}
	if in.Role != "" && !domain.IsValidRole(string(in.Role)) {
		return domain.ErrInvalidRole(string(in.Role))
	}
	return nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	audit := s.auditFn("auth.register", map[string]string{"email": in.Email})

	if err := in.validate(); err != nil {
		audit("error", err)
		return AuthResult{}, err
	}
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		err := domain.ErrDuplicateEmail()
		audit("error", err)
		return AuthResult{}, err
	} else if !domain.Is(err, "user_not_found") {
		audit("error", err)
		return AuthResult{}, domain.AsDomain(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		err = domain.ErrHashFailed(err)
		audit("error", err)
		return AuthResult{}, err
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, domain.User{
		ID:            uuid.NewString(),
		Email:         in.Email,
		PasswordHash:  hash,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Role:          role,
		EmailVerified: false,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		// a concurrent registration can still lose at the store
		audit("error", err)
		return AuthResult{}, domain.AsDomain(err)
	}

	res, err := s.issue(created)
	if err != nil {
		audit("error", err)
		return AuthResult{}, err
	}

	if err := s.sendVerification(ctx, created); err != nil {
		s.log.Warn().Err(err).Str("user_id", created.ID).Msg("verification email request failed")
	}

	audit("success", nil)
	return res, nil
}
