package postgres

import (
	"database/sql"
	"time"

	"github.com/baechuer/user-service/internal/domain"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, email_verified, active, last_login_at, created_at, updated_at`

type userRow struct {
	ID            string
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	Role          string
	EmailVerified bool
	Active        bool
	LastLoginAt   sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (userRow, error) {
	var ur userRow
	err := s.Scan(
		&ur.ID,
		&ur.Email,
		&ur.PasswordHash,
		&ur.FirstName,
		&ur.LastName,
		&ur.Role,
		&ur.EmailVerified,
		&ur.Active,
		&ur.LastLoginAt,
		&ur.CreatedAt,
		&ur.UpdatedAt,
	)
	return ur, err
}

func (ur userRow) toDomain() domain.User {
	u := domain.User{
		ID:            ur.ID,
		Email:         ur.Email,
		PasswordHash:  ur.PasswordHash,
		FirstName:     ur.FirstName,
		LastName:      ur.LastName,
		Role:          domain.Role(ur.Role),
		EmailVerified: ur.EmailVerified,
		Active:        ur.Active,
		CreatedAt:     ur.CreatedAt.UTC(),
		UpdatedAt:     ur.UpdatedAt.UTC(),
	}
	if ur.LastLoginAt.Valid {
		t := ur.LastLoginAt.Time.UTC()
		u.LastLoginAt = &t
	}
	return u
}
