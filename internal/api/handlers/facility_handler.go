package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/caremap/caredirectory/backend/internal/domain/repositories"
	"github.com/caremap/caredirectory/backend/pkg/config"
)

// FacilityHandler handles facility search requests
type FacilityHandler struct {
	facilityRepo repositories.FacilityRepository
	query        config.QueryConfig
}

// NewFacilityHandler creates a new facility handler
func NewFacilityHandler(facilityRepo repositories.FacilityRepository, query config.QueryConfig) *FacilityHandler {
	return &FacilityHandler{
		facilityRepo: facilityRepo,
		query:        query,
	}
}

// Search handles POST /api/facilities/search
func (h *FacilityHandler) Search(w http.ResponseWriter, r *http.Request) {
	var filter repositories.FacilityFilter
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

	page, err := h.facilityRepo.Search(ctx, filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}
