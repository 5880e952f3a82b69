package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBodyLimitAllowsWithinLimit(t *testing.T) {
	var captured string
	handler := BodyLimit{Max: 10}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured = string(data)
		require.EqualValues(t, 5, r.ContentLength)
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("hello")))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "hello", captured)
}

func TestBodyLimitRejectsOversized(t *testing.T) {
	handler := BodyLimit{Max: 5}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("excessive"))
	req.ContentLength = -1
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Contains(t, rr.Body.String(), CodePayloadTooLarge)
}

func TestBodyLimitRejectsContentLength(t *testing.T) {
	handler := BodyLimit{Max: 5}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("content"))
	req.ContentLength = 100
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestBodyLimitDisabled(t *testing.T) {
	handler := BodyLimit{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 1024))))
	require.Equal(t, http.StatusAccepted, rr.Code)
}
