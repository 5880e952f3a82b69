package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/kasir-api/internal/common"
)

// CodePayloadTooLarge is returned for bodies over the limit.
const CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"

// BodyLimit enforces a maximum request payload size.
type BodyLimit struct {
	Max int64
}

// Middleware rejects requests exceeding the configured limit with HTTP 413.
// Accepted bodies are buffered so handlers see an exact ContentLength.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			tooLarge(w, b.Max)
			return
		}

		buf, err := io.ReadAll(http.MaxBytesReader(w, r.Body, b.Max))
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				tooLarge(w, b.Max)
				return
			}
			common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid request body", nil)
			return
		}
		_ = r.Body.Close()

		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

func tooLarge(w http.ResponseWriter, limit int64) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "request entity too large", map[string]any{"maxBytes": limit})
}
