package response

import (
	"net/http"

	reqctx "github.com/baechuer/user-service/internal/pkg/context"
)

// RequestIDFromContext extracts the id set by the RequestID middleware.
func RequestIDFromContext(r *http.Request) string {
	return reqctx.GetRequestID(r.Context())
}
