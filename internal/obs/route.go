package obs

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type routeKey struct{}

// WithRoute pins the route label used by logs, metrics and spans for requests
// that never pass through chi.
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey{}, route)
}

// Route returns the label for r: a pinned route first, then the matched chi
// pattern, then fallback. Call it after the router has dispatched r.
func Route(r *http.Request, fallback string) string {
	ctx := r.Context()
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	if rc := chi.RouteContext(ctx); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return fallback
}
