package domain

import (
	"errors"
	"fmt"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"     // 400
	KindAuth           ErrKind = "auth"           // 401
	KindForbidden      ErrKind = "forbidden"      // 403
	KindNotFound       ErrKind = "not_found"      // 404
	KindConflict       ErrKind = "conflict"       // 409
	KindRateLimited    ErrKind = "rate_limited"   // 429
	KindInfrastructure ErrKind = "infrastructure" // 503
	KindInternal       ErrKind = "internal"       // 500
	KindConfiguration  ErrKind = "configuration"  // fatal at startup
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for clients (avoid leaking sensitive details)
// - Meta: optional details (field, reason, required roles, ...)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]any) *Error {
	err.Meta = meta
	return err
}

// Is reports whether err is a domain error carrying code.
func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind ErrKind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// AsDomain returns err as a *Error, wrapping anything else as internal_error.
func AsDomain(err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return ErrInternal(err)
}

// ----------------------
// Validation errors (400)
// ----------------------

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, "invalid_json", "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, "missing_field", "missing required field"), map[string]any{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_field", "invalid field"), map[string]any{
		"field":  field,
		"reason": reason,
	})
}

func ErrWeakPassword(reason string) *Error {
	return WithMeta(New(KindValidation, "weak_password", "password does not meet requirements"), map[string]any{
		"reason": reason,
	})
}

// ErrValidationFailed carries one message per offending field.
func ErrValidationFailed(fields map[string]string) *Error {
	return WithMeta(New(KindValidation, "validation_failed", "request validation failed"), map[string]any{
		"fields": fields,
	})
}

func ErrInvalidRole(role string) *Error {
	return WithMeta(
		New(KindValidation, "invalid_role", "invalid role"),
		map[string]any{"role": role, "allowed": RoleNames(AllRoles)},
	)
}

func ErrUnsupportedStrategy(kind string) *Error {
	return WithMeta(
		New(KindValidation, "unsupported_strategy", "unsupported authentication strategy"),
		map[string]any{"strategy": kind},
	)
}

func ErrResetTokenInvalid() *Error {
	return New(KindValidation, "reset_token_invalid", "invalid or expired reset token")
}

func ErrVerifyTokenInvalid() *Error {
	return New(KindValidation, "verify_token_invalid", "invalid or expired verification token")
}

// ----------------------
// Auth errors (401)
// ----------------------

// IMPORTANT: use this for every credential failure to avoid user enumeration.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, "invalid_credentials", "invalid email or password")
}

func ErrTokenMissing() *Error {
	return New(KindAuth, "token_missing", "no token provided")
}

// ErrTokenInvalid covers bad signature, malformed structure, wrong algorithm and expiry alike.
func ErrTokenInvalid() *Error {
	return New(KindAuth, "token_invalid", "invalid or expired token")
}

// ----------------------
// Forbidden (403)
// ----------------------

func ErrInsufficientPermissions(required []string, actual string) *Error {
	return WithMeta(New(KindForbidden, "insufficient_permissions", "insufficient permissions"), map[string]any{
		"required": required,
		"actual":   actual,
	})
}

func ErrCannotAffectSelf() *Error {
	return New(KindForbidden, "cannot_affect_self", "cannot perform this action on self")
}

// ----------------------
// Not Found (404)
// ----------------------

func ErrUserNotFound() *Error {
	return New(KindNotFound, "user_not_found", "user not found")
}

// ----------------------
// Conflict (409)
// ----------------------

func ErrDuplicateEmail() *Error {
	return New(KindConflict, "duplicate_email", "email already registered")
}

// ----------------------
// Rate limit (429)
// ----------------------

func ErrRateLimited(scope string, retryAfterSeconds int) *Error {
	return WithMeta(New(KindRateLimited, "rate_limited", "too many requests"), map[string]any{
		"scope":             scope,
		"retryAfterSeconds": retryAfterSeconds,
	})
}

// ----------------------
// Configuration (fatal)
// ----------------------

func ErrConfiguration(reason string) *Error {
	return WithMeta(New(KindConfiguration, "configuration_error", "service misconfigured"), map[string]any{
		"reason": reason,
	})
}

// ----------------------
// Infrastructure / internal (5xx)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "db_unavailable", "database unavailable", cause)
}

func ErrRedisUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "redis_unavailable", "cache unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, "hash_failed", "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, "token_sign_failed", "token signing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, "random_failed", "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}
