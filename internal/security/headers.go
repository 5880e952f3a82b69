package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Headers sets the response security headers for the JSON API.
type Headers struct {
	Enable bool
	// HSTSMaxAge enables Strict-Transport-Security on https requests when
	// positive. Plain http responses never carry it.
	HSTSMaxAge            time.Duration
	HSTSIncludeSubdomains bool
	// NoStore adds Cache-Control: no-store so proxies never replay prices
	// or receipts.
	NoStore bool
}

func (h Headers) fixed() http.Header {
	out := http.Header{
		"X-Content-Type-Options":       {"nosniff"},
		"X-Frame-Options":              {"DENY"},
		"Referrer-Policy":              {"no-referrer"},
		"Content-Security-Policy":      {"default-src 'none'; frame-ancestors 'none'"},
		"Permissions-Policy":           {"camera=(), geolocation=(), microphone=()"},
		"Cross-Origin-Resource-Policy": {"same-site"},
	}
	if h.NoStore {
		out.Set("Cache-Control", "no-store")
	}
	return out
}

func (h Headers) hsts() string {
	if h.HSTSMaxAge <= 0 {
		return ""
	}
	v := "max-age=" + strconv.FormatInt(int64(h.HSTSMaxAge/time.Second), 10)
	if h.HSTSIncludeSubdomains {
		v += "; includeSubDomains"
	}
	return v
}

// Middleware returns next unchanged when the headers are disabled.
func (h Headers) Middleware(next http.Handler) http.Handler {
	if !h.Enable {
		return next
	}
	fixed := h.fixed()
	hsts := h.hsts()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for k, v := range fixed {
			dst[k] = v
		}
		if hsts != "" && isHTTPS(r) {
			dst.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// isHTTPS trusts X-Forwarded-Proto because the api runs behind a
// terminating proxy in every deployed environment.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}
