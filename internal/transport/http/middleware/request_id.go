package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	reqctx "github.com/baechuer/user-service/internal/pkg/context"
)

const HeaderXRequestID = "X-Request-Id"

// RequestID propagates a client-supplied id (up to 128 chars) or mints one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(HeaderXRequestID))
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}

		w.Header().Set(HeaderXRequestID, reqID)

		ctx := reqctx.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
