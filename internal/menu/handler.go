package menu

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Sashankstar/Food-order-tracking/internal/domain"
)

// Catalog lists menu items. Implementations return an empty slice, not nil,
// for an empty catalog.
type Catalog interface {
	ListAll(ctx context.Context) ([]domain.MenuItem, error)
}

type Handler struct {
	catalog Catalog
	logger  *slog.Logger
}

func NewHandler(catalog Catalog, logger *slog.Logger) *Handler {
	return &Handler{
		catalog: catalog,
		logger:  logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list menu", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if items == nil {
		items = []domain.MenuItem{}
	}

	h.logger.Info("menu listed", "count", len(items))
	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
