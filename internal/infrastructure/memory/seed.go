package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/baechuer/user-service/internal/domain"
)

// Hasher is the minimal surface we need for seeding.
type Hasher interface {
	Hash(password string) (string, error)
}

// SeedAccount describes one development account. PasswordHash, when set, is
// stored as-is (e.g. produced by `tool hash`); otherwise Password is hashed.
type SeedAccount struct {
	Email        string
	Password     string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         domain.Role
}

// DefaultSeedAccounts are the well-known development logins.
var DefaultSeedAccounts = []SeedAccount{
	{Email: "admin@example.com", Password: "admin123", FirstName: "Admin", LastName: "User", Role: domain.RoleAdmin},
	{Email: "moderator@example.com", Password: "moderator123", FirstName: "Moderator", LastName: "User", Role: domain.RoleModerator},
	{Email: "user@example.com", Password: "user1234", FirstName: "Regular", LastName: "User", Role: domain.RoleUser},
}

// Creator is satisfied by every credential store.
type Creator interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

// SeedUsers creates initial verified, active accounts.
// Safe to call multiple times (duplicates ignored).
func SeedUsers(ctx context.Context, store Creator, hasher Hasher, accounts []SeedAccount, lg zerolog.Logger) int {
	created := 0
	for _, a := range accounts {
		hash := a.PasswordHash
		if hash == "" {
			var err error
			hash, err = hasher.Hash(a.Password)
			if err != nil {
				lg.Warn().Err(err).Str("email", a.Email).Msg("seed: hash failed")
				continue
			}
		}

		now := time.Now().UTC()
		_, err := store.Create(ctx, domain.User{
			ID:            uuid.NewString(),
			Email:         a.Email,
			PasswordHash:  hash,
			FirstName:     a.FirstName,
			LastName:      a.LastName,
			Role:          a.Role,
			EmailVerified: true,
			Active:        true,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			if !domain.Is(err, "duplicate_email") {
				lg.Warn().Err(err).Str("email", a.Email).Msg("seed: create failed")
			}
			continue
		}
		created++
	}

	lg.Info().Int("created", created).Msg("seed users ensured")
	return created
}
