package audit

import (
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/kasir-api/internal/common"
	"github.com/noah-isme/kasir-api/internal/obs"
)

// HTTPRecorder writes an audit entry once the wrapped handler has answered.
// Store failures go to OnError and never reach the client.
type HTTPRecorder struct {
	Service *Service
	OnError func(error)
}

// HTTPConfig describes the entry produced for one route.
type HTTPConfig struct {
	Action       string
	ResourceType string
	// ResourceIDParam names the chi URL param holding the resource id. When
	// the param is absent the last segment of the Location header is used,
	// which covers creates.
	ResourceIDParam string
	MetadataFunc    func(r *http.Request, status int) map[string]any
}

// Middleware wraps next with audit recording.
func (r HTTPRecorder) Middleware(cfg HTTPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if r.Service == nil || !r.Service.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rec := obs.NewStatusRecorder(w)
			next.ServeHTTP(rec, req)

			status := rec.Status()
			err := r.Service.Record(req.Context(), actorOf(req), cfg.Action, cfg.ResourceType,
				cfg.resourceID(req, rec.Header()), req, status, cfg.metadata(req, status))
			if err != nil && r.OnError != nil {
				r.OnError(err)
			}
		})
	}
}

func (cfg HTTPConfig) resourceID(req *http.Request, h http.Header) string {
	if cfg.ResourceIDParam != "" {
		if id := chi.URLParam(req, cfg.ResourceIDParam); id != "" {
			return id
		}
	}
	if loc := strings.TrimSuffix(h.Get("Location"), "/"); loc != "" {
		return path.Base(loc)
	}
	return ""
}

func (cfg HTTPConfig) metadata(req *http.Request, status int) []byte {
	if cfg.MetadataFunc == nil {
		return nil
	}
	payload := cfg.MetadataFunc(req, status)
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

func actorOf(req *http.Request) Actor {
	if adminID, ok := common.AdminID(req.Context()); ok && adminID != "" {
		return Actor{Kind: ActorKindAdmin, AdminID: adminID}
	}
	return Actor{Kind: ActorKindAnonymous}
}
