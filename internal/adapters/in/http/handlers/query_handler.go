// internal/adapters/in/http/handlers/query_handler.go
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gigagfun/launchium-token-creator/internal/application/usecase"
)

// QueryService is the part of usecase.LaunchQueryUsecase the handler calls.
type QueryService interface {
	Status(ctx context.Context, mintAddress string) (*usecase.TokenStatus, error)
	Standards() usecase.Standards
	Statistics(ctx context.Context) (*usecase.Statistics, error)
}

var _ QueryService = (*usecase.LaunchQueryUsecase)(nil)

type QueryHandler struct {
	uc QueryService
}

func NewQueryHandler(uc QueryService) *QueryHandler {
	return &QueryHandler{uc: uc}
}

// Status handles GET /api/tokens/{mint}/status.
func (h *QueryHandler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.uc.Status(r.Context(), chi.URLParam(r, "mint"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Standards handles GET /api/standards.
func (h *QueryHandler) Standards(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.uc.Standards())
}

// Statistics handles GET /api/statistics.
func (h *QueryHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.uc.Statistics(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
