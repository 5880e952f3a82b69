package analytics

import (
	"net/http"
	"strings"

	"github.com/noah-isme/kasir-api/internal/common"
)

// Handler exposes analytics read endpoints.
type Handler struct {
	Svc *Service
}

// Overview handles GET /api/analytics/overview?regionId=&top=.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	top := common.ClampInt(common.AtoiDefault(q.Get("top"), 5), 1, 50)
	overview, err := h.Svc.Overview(r.Context(), strings.TrimSpace(q.Get("regionId")), top)
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, overview)
}

// Sales handles GET /api/analytics/sales?regionId=&from=&to=&days=.
func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	win, err := ParseWindow(q, h.Svc.now(), h.Svc.DefaultRange)
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	rows, err := h.Svc.SalesRange(r.Context(), strings.TrimSpace(q.Get("regionId")), win.From, win.To)
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"from": win.From, "to": win.To, "sales": rows})
}

// TopProducts handles GET /api/analytics/top-products?regionId=&limit=&offset=.
func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := common.ClampInt(common.AtoiDefault(q.Get("limit"), 10), 1, 100)
	offset := max(common.AtoiDefault(q.Get("offset"), 0), 0)
	rows, err := h.Svc.TopProducts(r.Context(), strings.TrimSpace(q.Get("regionId")), limit, offset)
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"products": rows})
}
