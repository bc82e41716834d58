package response

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/baechuer/user-service/internal/domain"
	"github.com/baechuer/user-service/internal/logger"
)

type ErrorPayload struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Debug     string         `json:"debug,omitempty"`
}

// WriteErrFunc is the error sink shared by handlers and middleware.
type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// WriteError converts a domain error into a consistent JSON HTTP error response.
// Non-domain errors are treated as internal errors (500) without leaking details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err, false)
}

// NewErrorWriter returns WriteError, additionally exposing the wrapped cause
// in error.debug when debug is set (dev only).
func NewErrorWriter(debug bool) WriteErrFunc {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(w, r, err, debug)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error, debug bool) {
	payload := ErrorPayload{
		Code:      "internal_error",
		Message:   "internal error",
		RequestID: RequestIDFromContext(r),
	}
	status := http.StatusInternalServerError

	var de *domain.Error
	if errors.As(err, &de) {
		status = statusFromKind(de.Kind)
		payload.Code = de.Code
		payload.Message = de.Message
		payload.Meta = de.Meta
	}

	if status >= http.StatusInternalServerError {
		lg := logger.WithCtx(r.Context())
		lg.Error().Err(err).Str("code", payload.Code).Msg("request failed")
	}
	if debug && err != nil {
		if de == nil {
			payload.Debug = err.Error()
		} else if de.Cause != nil {
			payload.Debug = de.Cause.Error()
		}
	}

	if status == http.StatusTooManyRequests {
		if secs, ok := payload.Meta["retryAfterSeconds"].(int); ok && secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
	}

	WriteJSON(w, status, Envelope{Success: false, Error: &payload, Timestamp: timestamp()})
}

// statusFromKind maps domain error kinds to HTTP status codes.
func statusFromKind(kind domain.ErrKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindInfrastructure:
		return http.StatusServiceUnavailable
	case domain.KindInternal, domain.KindConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
