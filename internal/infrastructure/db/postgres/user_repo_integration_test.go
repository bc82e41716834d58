//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/baechuer/user-service/internal/application/users"
	"github.com/baechuer/user-service/internal/domain"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:17",
		tcpostgres.WithDatabase("users"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := ctr.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db, zerolog.Nop()))
	return db
}

func TestIntegration_UserRepo_Lifecycle(t *testing.T) {
	db := startPostgres(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	id := uuid.NewString()
	u, err := repo.Create(ctx, domain.User{
		ID: id, Email: "Alice@Example.com", PasswordHash: "h",
		FirstName: "Alice", LastName: "Smith", Role: domain.RoleUser, Active: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)

	_, err = repo.Create(ctx, domain.User{ID: uuid.NewString(), Email: "ALICE@example.com", PasswordHash: "h", Active: true})
	assert.True(t, domain.Is(err, "duplicate_email"), "got %v", err)

	got, err := repo.GetByEmail(ctx, "alice@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.RecordLogin(ctx, id, now))
	require.NoError(t, repo.SetEmailVerified(ctx, id))

	got, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, got.EmailVerified)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.True(t, domain.Is(err, "user_not_found"), "got %v", err)

	page, total, err := repo.List(ctx, users.ListFilter{Search: "smi"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, page, 1)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.GetByID(ctx, id)
	assert.True(t, domain.Is(err, "user_not_found"), "got %v", err)
}
