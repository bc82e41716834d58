package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/user-service/internal/application/auth"
	"github.com/baechuer/user-service/internal/domain"
)

var errOTTNotConfigured = errors.New("redis one-time-token store not configured")

// consumeScript is an atomic GET + DEL.
var consumeScript = goredis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
  return nil
end
redis.call("DEL", KEYS[1])
return v
`)

type OneTimeTokenStore struct {
	rdb    *goredis.Client
	prefix string // e.g. "ott:"
}

func NewOneTimeTokenStore(c *Client) *OneTimeTokenStore {
	var rdb *goredis.Client
	if c != nil {
		rdb = c.rdb
	}
	return &OneTimeTokenStore{
		rdb:    rdb,
		prefix: "ott:",
	}
}

func (s *OneTimeTokenStore) Save(ctx context.Context, kind auth.OneTimeTokenKind, token string, userID string, ttl time.Duration) error {
	token = strings.TrimSpace(token)
	userID = strings.TrimSpace(userID)
	if token == "" {
		return domain.ErrMissingField("token")
	}
	if userID == "" {
		return domain.ErrMissingField("user_id")
	}
	if ttl <= 0 {
		return domain.ErrMissingField("ttl")
	}
	if s.rdb == nil {
		return domain.ErrRedisUnavailable(errOTTNotConfigured)
	}

	// overwrite is fine (new request generates new token anyway)
	if err := s.rdb.Set(ctx, s.key(kind, token), userID, ttl).Err(); err != nil {
		return domain.ErrRedisUnavailable(fmt.Errorf("ott save: %w", err))
	}
	return nil
}

func (s *OneTimeTokenStore) Consume(ctx context.Context, kind auth.OneTimeTokenKind, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", domain.ErrMissingField("token")
	}
	if s.rdb == nil {
		return "", domain.ErrRedisUnavailable(errOTTNotConfigured)
	}

	res, err := consumeScript.Run(ctx, s.rdb, []string{s.key(kind, token)}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			// token not found/expired/consumed
			return "", invalidTokenErr(kind)
		}
		return "", domain.ErrRedisUnavailable(fmt.Errorf("ott consume: %w", err))
	}

	uid, ok := res.(string)
	if !ok || strings.TrimSpace(uid) == "" {
		return "", invalidTokenErr(kind)
	}
	return uid, nil
}

func invalidTokenErr(kind auth.OneTimeTokenKind) *domain.Error {
	if kind == auth.TokenVerifyEmail {
		return domain.ErrVerifyTokenInvalid()
	}
	return domain.ErrResetTokenInvalid()
}

func (s *OneTimeTokenStore) key(kind auth.OneTimeTokenKind, token string) string {
	// kind is controlled constant ("verify_email"/"password_reset")
	return s.prefix + string(kind) + ":" + token
}

// PendingToken is one unconsumed token as stored in redis.
type PendingToken struct {
	Key    string
	UserID string
	TTL    time.Duration
}

// Pending lists unconsumed tokens of kind ("" matches every kind). With purge
// set, each listed token is deleted after it is read.
func (s *OneTimeTokenStore) Pending(ctx context.Context, kind auth.OneTimeTokenKind, purge bool) ([]PendingToken, error) {
	if s.rdb == nil {
		return nil, domain.ErrRedisUnavailable(errOTTNotConfigured)
	}

	pattern := s.prefix + "*"
	if kind != "" {
		pattern = s.prefix + string(kind) + ":*"
	}

	var (
		out    []PendingToken
		cursor uint64
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return nil, domain.ErrRedisUnavailable(fmt.Errorf("ott scan: %w", err))
		}
		for _, k := range keys {
			uid, err := s.rdb.Get(ctx, k).Result()
			if errors.Is(err, goredis.Nil) {
				continue // consumed or expired mid-scan
			}
			if err != nil {
				return nil, domain.ErrRedisUnavailable(fmt.Errorf("ott get: %w", err))
			}
			ttl, _ := s.rdb.TTL(ctx, k).Result()
			out = append(out, PendingToken{Key: k, UserID: uid, TTL: ttl})

			if purge {
				if err := s.rdb.Del(ctx, k).Err(); err != nil {
					return nil, domain.ErrRedisUnavailable(fmt.Errorf("ott del: %w", err))
				}
			}
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}
