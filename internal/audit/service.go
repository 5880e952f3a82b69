package audit

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/kasir-api/internal/common"
	"github.com/noah-isme/kasir-api/internal/obs"
)

// ActorKind represents the source of an audited action.
type ActorKind string

const (
	// ActorKindAdmin represents an authenticated store administrator.
	ActorKindAdmin ActorKind = "admin"
	// ActorKindSystem represents internal automated actions.
	ActorKindSystem ActorKind = "system"
	// ActorKindAnonymous represents unauthenticated actors.
	ActorKindAnonymous ActorKind = "anonymous"
)

// Actor describes the entity performing the action.
type Actor struct {
	Kind    ActorKind
	AdminID string
}

// Entry is one recorded admin action.
type Entry struct {
	ID           string          `json:"id"`
	ActorKind    ActorKind       `json:"actorKind"`
	ActorID      string          `json:"actorId,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resourceType"`
	ResourceID   string          `json:"resourceId,omitempty"`
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	Route        string          `json:"route,omitempty"`
	Status       int             `json:"status"`
	IP           string          `json:"ip,omitempty"`
	UserAgent    string          `json:"userAgent,omitempty"`
	RequestID    string          `json:"requestId,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Store persists audit entries. List returns the newest entries first.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	List(ctx context.Context, limit, offset int) ([]Entry, error)
}

// Service persists audit entries for admin write flows.
type Service struct {
	Store        Store
	Enabled      bool
	SamplingRate float64
	Now          func() time.Time
}

// Record persists an audit entry when auditing is enabled.
func (s Service) Record(ctx context.Context, actor Actor, action, resourceType, resourceID string, req *http.Request, status int, metadata []byte) error {
	if !s.Enabled {
		return nil
	}
	if s.SamplingRate > 0 && s.SamplingRate < 1 {
		if rand.Float64() > s.SamplingRate {
			return nil
		}
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}

	route := obs.Route(req, strings.TrimSpace(req.URL.Path))
	finalStatus := status
	if finalStatus == 0 {
		finalStatus = http.StatusOK
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	kind := normalizeActorKind(actor.Kind)
	entry := Entry{
		ID:           uuid.NewString(),
		ActorKind:    kind,
		Action:       buildAction(action, req.Method, route),
		ResourceType: buildResource(resourceType, route),
		ResourceID:   strings.TrimSpace(resourceID),
		Method:       req.Method,
		Path:         req.URL.Path,
		Route:        route,
		Status:       finalStatus,
		IP:           strings.TrimSpace(common.ClientIP(req)),
		UserAgent:    strings.TrimSpace(req.Header.Get("User-Agent")),
		RequestID:    strings.TrimSpace(req.Header.Get("X-Request-ID")),
		Metadata:     toJSON(metadata, req.URL.RawQuery),
		CreatedAt:    now().UTC(),
	}
	if kind == ActorKindAdmin {
		entry.ActorID = strings.TrimSpace(actor.AdminID)
	}
	return s.Store.Insert(ctx, entry)
}

func buildAction(action, method, route string) string {
	trimmed := strings.TrimSpace(action)
	if trimmed != "" {
		return trimmed
	}
	base := strings.ToUpper(strings.TrimSpace(method))
	target := route
	if target == "" {
		target = "/"
	}
	return base + " " + target
}

func buildResource(resourceType, route string) string {
	trimmed := strings.TrimSpace(resourceType)
	if trimmed != "" {
		return trimmed
	}
	route = strings.TrimSpace(route)
	if route == "" {
		return "unknown"
	}
	segments := strings.Split(strings.Trim(route, "/"), "/")
	if len(segments) >= 2 && segments[0] == "api" {
		segments = segments[1:]
	}
	kept := segments[:0]
	for _, seg := range segments {
		if strings.HasPrefix(seg, "{") {
			continue
		}
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return "unknown"
	}
	return strings.Join(kept, ".")
}

func normalizeActorKind(kind ActorKind) ActorKind {
	switch kind {
	case ActorKindAdmin, ActorKindSystem:
		return kind
	default:
		return ActorKindAnonymous
	}
}

func toJSON(metadata []byte, query string) json.RawMessage {
	if len(metadata) > 0 {
		return metadata
	}
	if strings.TrimSpace(query) == "" {
		return nil
	}
	data, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil
	}
	return data
}
