package region

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/kasir-api/internal/common"
)

// Handler exposes the region registry over HTTP.
type Handler struct {
	Registry *Registry
}

// List handles GET /api/regions.
func (h *Handler) List(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"regions": h.Registry.List()})
}

// Get handles GET /api/regions/{id}. Unknown ids resolve to the default
// region, mirroring how prices are formatted.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, known := h.Registry.Lookup(id)
	common.JSON(w, http.StatusOK, map[string]any{
		"region":   h.Registry.Get(id),
		"fallback": !known,
	})
}
