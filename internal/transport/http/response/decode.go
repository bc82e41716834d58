package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/baechuer/user-service/internal/domain"
)

// MaxBodyBytes caps request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

// DecodeJSON decodes a JSON request body into dst.
// It rejects unknown fields and multiple JSON values.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.ErrInvalidJSON(errors.New("empty body"))
		}
		return domain.ErrInvalidJSON(err)
	}

	// Disallow trailing data: {}{}
	if err := dec.Decode(&struct{}{}); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.ErrInvalidJSON(err)
	}

	return domain.ErrInvalidJSON(errors.New("multiple JSON values"))
}
