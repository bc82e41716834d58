package dto

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/baechuer/user-service/internal/application/users"
	"github.com/baechuer/user-service/internal/domain"
)

// UpdateUserRequest is a partial update; absent fields are left unchanged.
type UpdateUserRequest struct {
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,min=2,max=50"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,min=2,max=50"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Role      *string `json:"role,omitempty" validate:"omitempty,role"`
}

func (r *UpdateUserRequest) Validate() error {
	if r.FirstName == nil && r.LastName == nil && r.Email == nil && r.Role == nil {
		return domain.ErrValidationFailed(map[string]string{"body": "at least one field must be provided"})
	}
	return Validate(r)
}

func (r *UpdateUserRequest) Input() users.UpdateInput {
	in := users.UpdateInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
	}
	if r.Role != nil {
		role := domain.Role(*r.Role)
		in.Role = &role
	}
	return in
}

// ListUsersQuery is parsed from the query string of GET /users.
type ListUsersQuery struct {
	Role   string `json:"role" validate:"omitempty,role"`
	Active string `json:"active" validate:"omitempty,boolean"`
	Search string `json:"search" validate:"max=100"`
	Offset int    `json:"offset" validate:"min=0"`
	Limit  int    `json:"limit" validate:"min=0,max=100"`
}

// ParseListUsersQuery reads and validates role, active, search, offset and limit.
func ParseListUsersQuery(q url.Values) (users.ListFilter, error) {
	lq := ListUsersQuery{
		Role:   strings.TrimSpace(q.Get("role")),
		Active: strings.TrimSpace(q.Get("active")),
		Search: strings.TrimSpace(q.Get("search")),
	}

	bad := map[string]string{}
	for _, p := range []struct {
		key string
		dst *int
	}{{"offset", &lq.Offset}, {"limit", &lq.Limit}} {
		if raw := q.Get(p.key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				bad[p.key] = p.key + " must be an integer"
				continue
			}
			*p.dst = n
		}
	}
	if len(bad) > 0 {
		return users.ListFilter{}, domain.ErrValidationFailed(bad)
	}
	if err := Validate(&lq); err != nil {
		return users.ListFilter{}, err
	}

	f := users.ListFilter{
		Role:   domain.Role(lq.Role),
		Search: lq.Search,
		Offset: lq.Offset,
		Limit:  lq.Limit,
	}
	if lq.Active != "" {
		b, _ := strconv.ParseBool(lq.Active)
		f.Active = &b
	}
	return f, nil
}
