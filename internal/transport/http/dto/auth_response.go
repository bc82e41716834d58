package dto

import (
	"time"

	"github.com/baechuer/user-service/internal/application/auth"
	"github.com/baechuer/user-service/internal/application/users"
	"github.com/baechuer/user-service/internal/domain"
)

// UserView is the standard user payload. It has no password field.
type UserView struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	FullName      string     `json:"fullName"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"emailVerified"`
	Active        bool       `json:"active"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func NewUserView(u domain.PublicUser) UserView {
	return UserView{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		FullName:      u.FullName,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
		Active:        u.Active,
		LastLoginAt:   u.LastLoginAt,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// AuthData is returned by register, login and refresh.
type AuthData struct {
	User      UserView `json:"user"`
	Token     string   `json:"token"`
	TokenType string   `json:"tokenType"` // "Bearer"
	ExpiresIn int64    `json:"expiresIn"` // seconds
}

func NewAuthData(r auth.AuthResult) AuthData {
	return AuthData{
		User:      NewUserView(r.User),
		Token:     r.Token,
		TokenType: r.TokenType,
		ExpiresIn: r.ExpiresIn,
	}
}

// StatusData is returned by /auth/status.
type StatusData struct {
	Authenticated bool      `json:"authenticated"`
	User          *UserView `json:"user,omitempty"`
}

// UserPage is returned by GET /users.
type UserPage struct {
	Items  []UserView `json:"items"`
	Total  int        `json:"total"`
	Offset int        `json:"offset"`
	Limit  int        `json:"limit"`
}

func NewUserPage(p users.Page) UserPage {
	items := make([]UserView, 0, len(p.Items))
	for _, u := range p.Items {
		items = append(items, NewUserView(u))
	}
	return UserPage{Items: items, Total: p.Total, Offset: p.Offset, Limit: p.Limit}
}
