package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const defaultIdemTTL = 24 * time.Hour

// Idem provides an Idempotency-Key middleware backed by Redis. Requests
// without the header, or without a configured client, pass straight through.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func hashKey(method, path, key string) string {
	sum := sha256.Sum256([]byte(method + " " + path + " " + key))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware enforces idempotency semantics for write endpoints. A key is
// released again when the handler fails so the client may retry.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ttl := i.TTL
		if ttl <= 0 {
			ttl = defaultIdemTTL
		}
		ctx := r.Context()
		key := hashKey(r.Method, r.URL.Path, header)
		ok, err := i.R.SetNX(ctx, key, "locked", ttl).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, CodeInternal, "idempotency store error", nil)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status >= http.StatusBadRequest {
			_ = i.R.Del(context.WithoutCancel(ctx), key).Err()
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
