package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kasir-api/internal/common"
	"github.com/noah-isme/kasir-api/internal/obs"
)

type failingStore struct{}

func (failingStore) Insert(context.Context, Entry) error { return errors.New("boom") }

func (failingStore) List(context.Context, int, int) ([]Entry, error) {
	return nil, errors.New("boom")
}

func TestServiceRecord(t *testing.T) {
	store := NewMemoryStore(0)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := Service{Store: store, Enabled: true, SamplingRate: 1, Now: func() time.Time { return fixed }}

	req := httptest.NewRequest(http.MethodPut, "/api/products/p-1?region=in", nil)
	req.Header.Set("User-Agent", "pos-terminal")
	req.Header.Set("X-Request-ID", "req-42")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req = req.WithContext(obs.WithRoute(req.Context(), "/api/products/{id}"))

	err := svc.Record(context.Background(), Actor{Kind: ActorKindAdmin, AdminID: "admin-1"}, "", "", "p-1", req, http.StatusOK, nil)
	require.NoError(t, err)

	entries, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries[0]
	require.NotEmpty(t, got.ID)
	require.Equal(t, ActorKindAdmin, got.ActorKind)
	require.Equal(t, "admin-1", got.ActorID)
	require.Equal(t, "PUT /api/products/{id}", got.Action)
	require.Equal(t, "products", got.ResourceType)
	require.Equal(t, "p-1", got.ResourceID)
	require.Equal(t, "203.0.113.7", got.IP)
	require.Equal(t, "pos-terminal", got.UserAgent)
	require.Equal(t, "req-42", got.RequestID)
	require.JSONEq(t, `{"query":"region=in"}`, string(got.Metadata))
	require.Equal(t, fixed, got.CreatedAt)
}

func TestServiceRecordDisabled(t *testing.T) {
	store := NewMemoryStore(0)
	svc := Service{Store: store}
	req := httptest.NewRequest(http.MethodPost, "/api/products", nil)

	require.NoError(t, svc.Record(context.Background(), Actor{}, "", "", "", req, http.StatusCreated, nil))
	entries, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestServiceRecordErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/products", nil)

	err := Service{Enabled: true}.Record(context.Background(), Actor{}, "", "", "", req, 0, nil)
	require.EqualError(t, err, "audit: store not configured")

	err = Service{Enabled: true, Store: NewMemoryStore(0)}.Record(context.Background(), Actor{}, "", "", "", nil, 0, nil)
	require.EqualError(t, err, "audit: request is required")

	err = Service{Enabled: true, Store: failingStore{}}.Record(context.Background(), Actor{}, "", "", "", req, 0, nil)
	require.EqualError(t, err, "boom")
}

func TestServiceRecordAnonymousDropsActorID(t *testing.T) {
	store := NewMemoryStore(0)
	svc := Service{Store: store, Enabled: true}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", nil)

	require.NoError(t, svc.Record(context.Background(), Actor{Kind: "robot", AdminID: "x"}, "admin.signup", "admins", "", req, 0, nil))
	entries, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ActorKindAnonymous, entries[0].ActorKind)
	require.Empty(t, entries[0].ActorID)
	require.Equal(t, "admin.signup", entries[0].Action)
	require.Equal(t, "admins", entries[0].ResourceType)
	require.Equal(t, http.StatusOK, entries[0].Status)
}

func TestBuildResource(t *testing.T) {
	tests := map[string]string{
		"/api/products/{id}": "products",
		"/api/auth/signup":   "auth.signup",
		"/health/ready":      "health.ready",
		"/api":               "api",
		"":                   "unknown",
	}
	for route, want := range tests {
		require.Equal(t, want, buildResource("", route), route)
	}
	require.Equal(t, "catalog", buildResource(" catalog ", "/api/products"))
}

func TestHTTPRecorderMiddleware(t *testing.T) {
	store := NewMemoryStore(0)
	var recordErr error
	recorder := HTTPRecorder{
		Service: &Service{Store: store, Enabled: true},
		OnError: func(err error) { recordErr = err },
	}

	r := chi.NewRouter()
	r.With(recorder.Middleware(HTTPConfig{
		Action:          "product.delete",
		ResourceType:    "product",
		ResourceIDParam: "id",
		MetadataFunc: func(_ *http.Request, status int) map[string]any {
			return map[string]any{"status": status}
		},
	})).Delete("/api/products/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/products/p-9", nil)
	req = req.WithContext(common.WithAdminID(req.Context(), "admin-7"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NoError(t, recordErr)
	entries, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries[0]
	require.Equal(t, "product.delete", got.Action)
	require.Equal(t, "p-9", got.ResourceID)
	require.Equal(t, "/api/products/{id}", got.Route)
	require.Equal(t, ActorKindAdmin, got.ActorKind)
	require.Equal(t, "admin-7", got.ActorID)
	require.Equal(t, http.StatusNoContent, got.Status)
	require.JSONEq(t, `{"status":204}`, string(got.Metadata))
}

func TestHTTPRecorderReportsStoreErrors(t *testing.T) {
	var recordErr error
	recorder := HTTPRecorder{
		Service: &Service{Store: failingStore{}, Enabled: true},
		OnError: func(err error) { recordErr = err },
	}
	handler := recorder.Middleware(HTTPConfig{})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/products", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualError(t, recordErr, "boom")
}

func TestHTTPRecorderTakesCreatedIDFromLocation(t *testing.T) {
	store := NewMemoryStore(0)
	recorder := HTTPRecorder{Service: &Service{Store: store, Enabled: true}}

	r := chi.NewRouter()
	r.With(recorder.Middleware(HTTPConfig{Action: "product.create", ResourceType: "product", ResourceIDParam: "id"})).
		Post("/api/products", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Location", "/api/products/p-42")
			w.WriteHeader(http.StatusCreated)
		})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/products", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	entries, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "p-42", entries[0].ResourceID)
	require.Equal(t, ActorKindAnonymous, entries[0].ActorKind)
}

func TestHTTPRecorderDisabledPassesThrough(t *testing.T) {
	store := NewMemoryStore(0)
	recorder := HTTPRecorder{Service: &Service{Store: store}}
	handler := recorder.Middleware(HTTPConfig{Action: "product.delete"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/products/p-1", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	entries, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}
