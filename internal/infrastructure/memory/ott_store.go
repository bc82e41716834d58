package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/user-service/internal/application/auth"
	"github.com/baechuer/user-service/internal/domain"
)

type ottEntry struct {
	userID    string
	expiresAt time.Time
}

// OneTimeTokenStore keeps verify/reset tokens in memory. Expired entries are
// rejected on Consume and dropped lazily on Save.
type OneTimeTokenStore struct {
	mu sync.Mutex
	// kind|token -> entry
	data map[string]ottEntry
	now  func() time.Time
}

func NewOneTimeTokenStore() *OneTimeTokenStore {
	return &OneTimeTokenStore{data: make(map[string]ottEntry), now: time.Now}
}

func key(kind auth.OneTimeTokenKind, token string) string { return string(kind) + "|" + token }

func (s *OneTimeTokenStore) Save(ctx context.Context, kind auth.OneTimeTokenKind, token string, userID string, ttl time.Duration) error {
	if token == "" || userID == "" {
		return domain.ErrMissingField("token")
	}
	if ttl <= 0 {
		return domain.ErrInvalidField("ttl", "must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.data {
		if now.After(e.expiresAt) {
			delete(s.data, k)
		}
	}
	s.data[key(kind, token)] = ottEntry{userID: userID, expiresAt: now.Add(ttl)}
	return nil
}

func (s *OneTimeTokenStore) Consume(ctx context.Context, kind auth.OneTimeTokenKind, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(kind, token)
	e, ok := s.data[k]
	if ok {
		delete(s.data, k)
	}
	if !ok || s.now().After(e.expiresAt) {
		return "", invalidTokenErr(kind)
	}
	return e.userID, nil
}

func invalidTokenErr(kind auth.OneTimeTokenKind) *domain.Error {
	if kind == auth.TokenVerifyEmail {
		return domain.ErrVerifyTokenInvalid()
	}
	return domain.ErrResetTokenInvalid()
}
