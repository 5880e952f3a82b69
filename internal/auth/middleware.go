package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kasir-api/internal/common"
)

// CodeTokenExpired replaces UNAUTHORIZED when the token is valid but past exp.
const CodeTokenExpired = "TOKEN_EXPIRED"

// Middleware resolves admin bearer tokens.
type Middleware struct {
	Service *Service
	// Disabled lets every request through; set when ADMIN_AUTH_REQUIRED=false.
	Disabled bool
}

// Authenticate stores the admin id on the context when the request carries a
// valid token. Anonymous and bad tokens pass through untouched.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if adminID, err := m.resolve(r); err == nil {
			r = r.WithContext(common.WithAdminID(r.Context(), adminID))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers 401 unless the request carries a valid admin token.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	if m.Disabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if adminID, ok := common.AdminID(r.Context()); ok && adminID != "" {
			next.ServeHTTP(w, r)
			return
		}
		adminID, err := m.resolve(r)
		if err != nil {
			rejectToken(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(common.WithAdminID(r.Context(), adminID)))
	})
}

func (m Middleware) resolve(r *http.Request) (string, error) {
	if m.Service == nil {
		return "", errors.New("auth: service not configured")
	}
	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return "", common.Unauthorized("", "missing bearer token")
	}
	return m.Service.ParseAccessToken(raw)
}

func rejectToken(w http.ResponseWriter, r *http.Request, err error) {
	code, msg, challenge := common.CodeUnauthorized, "missing or invalid token", `Bearer realm="kasir-admin"`
	if errors.Is(err, ErrTokenExpired) {
		code, msg = CodeTokenExpired, "token expired"
		challenge += `, error="invalid_token", error_description="token expired"`
	}
	zerolog.Ctx(r.Context()).Debug().Err(err).Msg("admin token rejected")
	w.Header().Set("WWW-Authenticate", challenge)
	common.JSONError(w, http.StatusUnauthorized, code, msg, nil)
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
