package auth

import (
	"net/http"

	"github.com/noah-isme/kasir-api/internal/common"
)

// Handler exposes HTTP handlers for admin authentication.
type Handler struct {
	Service *Service
}

// Signup handles POST /api/auth/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupInput
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, r, err)
		return
	}
	admin, err := h.Service.Signup(r.Context(), req)
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"success": true, "admin": admin})
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginInput
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, r, err)
		return
	}
	result, err := h.Service.Login(r.Context(), req)
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"admin":     result.Admin,
		"token":     result.Token,
		"expiresAt": result.ExpiresAt,
	})
}

// Me handles GET /api/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	adminID, ok := common.AdminID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
		return
	}
	admin, err := h.Service.Me(r.Context(), adminID)
	if err != nil {
		common.WriteError(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"admin": admin})
}
