package security

import (
	"fmt"

	"github.com/baechuer/user-service/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is used when the configured cost is zero.
const DefaultBcryptCost = 12

type BcryptHasher struct {
	cost int
}

// NewBcryptHasher validates cost against bcrypt's accepted range; 0 selects DefaultBcryptCost.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, domain.ErrConfiguration(fmt.Sprintf("bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost))
	}
	return &BcryptHasher{cost: cost}, nil
}

func (h *BcryptHasher) Cost() int { return h.cost }

func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", domain.ErrHashFailed(err)
	}
	return string(b), nil
}

// Verify never errors: a malformed digest is simply a mismatch.
func (h *BcryptHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
