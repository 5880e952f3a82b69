package audit

import (
	"errors"
	"net/http"

	"github.com/noah-isme/kasir-api/internal/common"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Page describes where a listing sits. Next is set only when more entries
// exist past this page.
type Page struct {
	Limit  int  `json:"limit"`
	Offset int  `json:"offset"`
	Next   *int `json:"next,omitempty"`
}

// Handler serves the admin audit trail.
type Handler struct {
	Store Store
}

// List handles GET /api/audit?limit=&offset=, newest first.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.WriteError(w, r, common.NewAppError("AUDIT_NOT_CONFIGURED", "audit store not configured", http.StatusInternalServerError, errors.New("audit: nil store")))
		return
	}
	q := r.URL.Query()
	page := Page{
		Limit:  common.AtoiDefault(q.Get("limit"), defaultPageSize),
		Offset: max(common.AtoiDefault(q.Get("offset"), 0), 0),
	}
	if page.Limit <= 0 || page.Limit > maxPageSize {
		page.Limit = defaultPageSize
	}

	// One extra row tells whether a next page exists.
	entries, err := h.Store.List(r.Context(), page.Limit+1, page.Offset)
	if err != nil {
		common.WriteError(w, r, common.NewAppError("AUDIT_QUERY_FAILED", "unable to fetch audit logs", http.StatusInternalServerError, err))
		return
	}
	if len(entries) > page.Limit {
		entries = entries[:page.Limit]
		next := page.Offset + page.Limit
		page.Next = &next
	}
	if entries == nil {
		entries = []Entry{}
	}
	common.JSON(w, http.StatusOK, map[string]any{"entries": entries, "page": page})
}
