package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/retroshop/apiserver/internal/services"
	"go.uber.org/zap"
)

// AdminHandler provides the administrative bootstrap endpoints. They are
// reachable without authentication because they must work before any admin
// account exists.
type AdminHandler struct {
	seed *services.SeedService
	log  *zap.Logger
}

// NewAdminHandler constructs an AdminHandler with the provided dependencies.
func NewAdminHandler(seed *services.SeedService, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{seed: seed, log: log}
}

// AdminRouter registers the bootstrap routes on the given router.
func AdminRouter(r chi.Router, seed *services.SeedService, log *zap.Logger) {
	handler := NewAdminHandler(seed, log)

	r.Post("/ensure-profiles", handler.EnsureProfiles)
	r.Post("/seed", handler.Seed)
}

// EnsureProfiles idempotently creates the profiles table.
func (h *AdminHandler) EnsureProfiles(w http.ResponseWriter, r *http.Request) {
	if err := h.seed.EnsureProfiles(r.Context()); err != nil {
		h.log.Error("ensure profiles table failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "profiles table created or already present",
	})
}

// Seed populates initial categories, products, and the admin account if
// absent, reporting per-step results.
func (h *AdminHandler) Seed(w http.ResponseWriter, r *http.Request) {
	report, err := h.seed.Run(r.Context())
	if err != nil {
		h.log.Error("seed run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, report)
}
