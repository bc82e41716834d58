package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/user-service/internal/application/auth"
	"github.com/baechuer/user-service/internal/domain"
)

func TestOneTimeTokenStore_SaveConsumeOnce(t *testing.T) {
	s := NewOneTimeTokenStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, auth.TokenPasswordReset, "tok", "u1", time.Minute))

	uid, err := s.Consume(ctx, auth.TokenPasswordReset, "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	_, err = s.Consume(ctx, auth.TokenPasswordReset, "tok")
	assert.True(t, domain.Is(err, "reset_token_invalid"), "got %v", err)
}

func TestOneTimeTokenStore_KindsAreSeparate(t *testing.T) {
	s := NewOneTimeTokenStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, auth.TokenVerifyEmail, "tok", "u1", time.Minute))

	_, err := s.Consume(ctx, auth.TokenPasswordReset, "tok")
	assert.True(t, domain.Is(err, "reset_token_invalid"))

	uid, err := s.Consume(ctx, auth.TokenVerifyEmail, "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
}

func TestOneTimeTokenStore_Expired(t *testing.T) {
	s := NewOneTimeTokenStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, auth.TokenVerifyEmail, "tok", "u1", time.Minute))
	now = now.Add(2 * time.Minute)

	_, err := s.Consume(ctx, auth.TokenVerifyEmail, "tok")
	assert.True(t, domain.Is(err, "verify_token_invalid"), "got %v", err)
}

func TestOneTimeTokenStore_SaveValidation(t *testing.T) {
	s := NewOneTimeTokenStore()
	ctx := context.Background()

	assert.Error(t, s.Save(ctx, auth.TokenVerifyEmail, "", "u1", time.Minute))
	assert.Error(t, s.Save(ctx, auth.TokenVerifyEmail, "tok", "u1", 0))
}
