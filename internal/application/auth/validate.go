package auth

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/baechuer/user-service/internal/domain"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores (newer x/crypto rejects) anything past 72 bytes.
	MaxPasswordBytes = 72
	MinNameLength    = 2
	MaxNameLength    = 50
)

var fieldValidator = validator.New()

func validateEmail(email string) error {
	if email == "" {
		return domain.ErrMissingField("email")
	}
	if err := fieldValidator.Var(email, "email,max=254"); err != nil {
		return domain.ErrInvalidField("email", "must be a valid email address")
	}
	return nil
}

func validatePassword(field, pw string) error {
	if pw == "" {
		return domain.ErrMissingField(field)
	}
	if utf8.RuneCountInString(pw) < MinPasswordLength {
		return domain.ErrWeakPassword("min length 8")
	}
	if len(pw) > MaxPasswordBytes {
		return domain.ErrWeakPassword("max length 72 bytes")
	}
	return nil
}

// ValidateName checks a first/last name: 2-50 characters after trimming.
func ValidateName(field, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return domain.ErrMissingField(field)
	}
	n := utf8.RuneCountInString(v)
	if n < MinNameLength || n > MaxNameLength {
		return domain.ErrInvalidField(field, "must be between 2 and 50 characters")
	}
	return nil
}

// ValidateEmail is the exported form used by user management.
func ValidateEmail(email string) error { return validateEmail(domain.NormalizeEmail(email)) }
