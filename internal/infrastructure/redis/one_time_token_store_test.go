package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/user-service/internal/application/auth"
	"github.com/baechuer/user-service/internal/domain"
)

func requireMissingField(t *testing.T, err error, field string) {
	t.Helper()
	de := domain.AsDomain(err)
	require.NotNil(t, de)
	assert.Equal(t, "missing_field", de.Code)
	assert.Equal(t, field, de.Meta["field"])
}

func TestOTT_Save_Validation(t *testing.T) {
	t.Parallel()

	s := NewOneTimeTokenStore(nil)
	ctx := context.Background()

	requireMissingField(t, s.Save(ctx, auth.TokenVerifyEmail, "", "u1", time.Minute), "token")
	requireMissingField(t, s.Save(ctx, auth.TokenVerifyEmail, "tok", "", time.Minute), "user_id")
	requireMissingField(t, s.Save(ctx, auth.TokenVerifyEmail, "tok", "u1", 0), "ttl")
}

func TestOTT_RedisNotConfigured(t *testing.T) {
	t.Parallel()

	s := NewOneTimeTokenStore(nil)
	ctx := context.Background()

	err := s.Save(ctx, auth.TokenVerifyEmail, "tok", "u1", time.Minute)
	assert.True(t, domain.Is(err, "redis_unavailable"), "got %v", err)

	_, err = s.Consume(ctx, auth.TokenVerifyEmail, "tok")
	assert.True(t, domain.Is(err, "redis_unavailable"), "got %v", err)
}

func TestOTT_Consume_EmptyToken(t *testing.T) {
	t.Parallel()

	s := NewOneTimeTokenStore(nil)
	_, err := s.Consume(context.Background(), auth.TokenVerifyEmail, "")
	requireMissingField(t, err, "token")
}

func TestOTT_SaveConsume_OneTime(t *testing.T) {
	c, mr := newMiniClient(t)
	s := NewOneTimeTokenStore(c)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, auth.TokenPasswordReset, "tok", "u1", 30*time.Minute))
	assert.Equal(t, 30*time.Minute, mr.TTL("ott:password_reset:tok"))

	uid, err := s.Consume(ctx, auth.TokenPasswordReset, "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	_, err = s.Consume(ctx, auth.TokenPasswordReset, "tok")
	assert.True(t, domain.Is(err, "reset_token_invalid"), "got %v", err)
}

func TestOTT_Expired(t *testing.T) {
	c, mr := newMiniClient(t)
	s := NewOneTimeTokenStore(c)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, auth.TokenVerifyEmail, "tok", "u1", time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := s.Consume(ctx, auth.TokenVerifyEmail, "tok")
	assert.True(t, domain.Is(err, "verify_token_invalid"), "got %v", err)
}

func TestOTT_Pending_FilterAndPurge(t *testing.T) {
	c, mr := newMiniClient(t)
	s := NewOneTimeTokenStore(c)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, auth.TokenVerifyEmail, "v1", "u1", time.Hour))
	require.NoError(t, s.Save(ctx, auth.TokenPasswordReset, "r1", "u2", 30*time.Minute))
	require.NoError(t, mr.Set("ratelimit:other", "x"))

	all, err := s.Pending(ctx, "", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	resets, err := s.Pending(ctx, auth.TokenPasswordReset, true)
	require.NoError(t, err)
	require.Len(t, resets, 1)
	assert.Equal(t, "ott:password_reset:r1", resets[0].Key)
	assert.Equal(t, "u2", resets[0].UserID)
	assert.Equal(t, 30*time.Minute, resets[0].TTL)

	assert.False(t, mr.Exists("ott:password_reset:r1"))
	assert.True(t, mr.Exists("ott:verify_email:v1"))
	assert.True(t, mr.Exists("ratelimit:other"))
}

func TestOTT_Pending_NotConfigured(t *testing.T) {
	s := NewOneTimeTokenStore(nil)
	_, err := s.Pending(context.Background(), "", false)
	assert.True(t, domain.Is(err, "redis_unavailable"), "got %v", err)
}
