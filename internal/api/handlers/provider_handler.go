package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/caremap/caredirectory/backend/internal/domain/repositories"
	"github.com/caremap/caredirectory/backend/pkg/config"
)

// ProviderHandler handles provider search requests
type ProviderHandler struct {
	providerRepo repositories.ProviderRepository
	query        config.QueryConfig
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(providerRepo repositories.ProviderRepository, query config.QueryConfig) *ProviderHandler {
	return &ProviderHandler{
		providerRepo: providerRepo,
		query:        query,
	}
}

// Search handles POST /api/providers/search
func (h *ProviderHandler) Search(w http.ResponseWriter, r *http.Request) {
	var filter repositories.ProviderFilter
	if err := json.NewDecoder(r.Body).Decode(&filter); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := normalizePagination(&filter.Page, &filter.PerPage, h.query); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Message)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.query.TimeoutSeconds)*time.Second)
	defer cancel()

	page, err := h.providerRepo.Search(ctx, filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}
