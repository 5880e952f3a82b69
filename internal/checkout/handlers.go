package checkout

import (
	"net/http"

	"github.com/noah-isme/kasir-api/internal/common"
	"github.com/noah-isme/kasir-api/internal/ledger"
)

// Handler exposes the transaction endpoints.
type Handler struct {
	Svc *Service
}

// Create handles POST /api/transactions.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	var in Input
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, r, err)
		return
	}
	tx, err := h.Svc.Record(r.Context(), in)
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"success": true, "transaction": tx})
}

// List handles GET /api/transactions. stats is null unless regionId is set.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	txs, stats, err := h.Svc.History(r.Context(), r.URL.Query().Get("regionId"))
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, struct {
		Transactions []ledger.Transaction `json:"transactions"`
		Stats        *ledger.Stats        `json:"stats"`
	}{Transactions: txs, Stats: stats})
}
