package dto

import (
	"github.com/baechuer/user-service/internal/application/auth"
	"github.com/baechuer/user-service/internal/domain"
)

// -------- Core auth --------

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"firstName" validate:"required,min=2,max=50"`
	LastName  string `json:"lastName" validate:"required,min=2,max=50"`
	Role      string `json:"role,omitempty" validate:"omitempty,role"`
}

func (r *RegisterRequest) Validate() error { return Validate(r) }

func (r *RegisterRequest) Input() auth.RegisterInput {
	return auth.RegisterInput{
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Role:      domain.Role(r.Role),
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error { return Validate(r) }

// -------- Email verification --------

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ResendVerificationRequest) Validate() error { return Validate(r) }

// -------- Password reset --------

// Step A: request reset (server always answers 200 to avoid enumeration)
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ForgotPasswordRequest) Validate() error { return Validate(r) }

// Step B: confirm reset
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

func (r *ResetPasswordRequest) Validate() error { return Validate(r) }

// -------- Password change (authenticated) --------

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

func (r *ChangePasswordRequest) Validate() error { return Validate(r) }
