package users

import (
	"context"

	"github.com/baechuer/user-service/internal/domain"
)

// Repo is the persistence port for user management.
// Writes touch only the columns they name, so a profile edit can never
// restore a stale password hash or active flag.
type Repo interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	List(ctx context.Context, f ListFilter) ([]domain.User, int, error)

	// UpdateProfile applies the non-nil fields of p. A different email is
	// checked for case-insensitive uniqueness and clears EmailVerified.
	UpdateProfile(ctx context.Context, id string, p ProfileChanges) (domain.User, error)
	SetActive(ctx context.Context, id string, active bool) (domain.User, error)
	Delete(ctx context.Context, id string) error
}

// ProfileChanges is the validated, normalized subset of UpdateInput handed to
// the store.
type ProfileChanges struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *domain.Role
}

func (p ProfileChanges) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Role == nil
}

// ListFilter selects a page of users ordered by creation time.
type ListFilter struct {
	Role   domain.Role // empty => any
	Active *bool       // nil => any
	Search string      // substring of email / first / last name, case-insensitive
	Offset int
	Limit  int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps paging values.
func (f ListFilter) Normalize() ListFilter {
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	return f
}

type Page struct {
	Items  []domain.PublicUser `json:"items"`
	Total  int                 `json:"total"`
	Offset int                 `json:"offset"`
	Limit  int                 `json:"limit"`
}

// Actor is the authenticated caller of a management operation.
type Actor struct {
	ID   string
	Role domain.Role
}

// UpdateInput carries optional changes; nil fields are left untouched.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *domain.Role
}
