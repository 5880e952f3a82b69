package catalog

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/kasir-api/internal/common"
)

// Handler exposes catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// List handles GET /api/products. With regionId only active products of that
// region are returned unless status=all is given; without it every product is
// returned.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog service not configured", nil)
		return
	}
	query := r.URL.Query()
	regionID := strings.TrimSpace(query.Get("regionId"))
	var (
		products []Product
		err      error
	)
	switch {
	case regionID == "":
		products, err = h.service.List(r.Context(), "")
	case strings.EqualFold(query.Get("status"), "all"):
		products, err = h.service.List(r.Context(), regionID)
	default:
		products, err = h.service.ListActive(r.Context(), regionID)
	}
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"products": products})
}

// Get handles GET /api/products/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"product": product})
}

// Create handles POST /api/products.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, r, err)
		return
	}
	product, err := h.service.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/products/"+product.ID)
	common.JSON(w, http.StatusCreated, map[string]any{"success": true, "product": product})
}

// Update handles PUT /api/products/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, r, err)
		return
	}
	product, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"success": true, "product": product})
}

// Delete handles DELETE /api/products/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"success": true})
}
