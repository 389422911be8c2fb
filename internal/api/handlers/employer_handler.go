package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/caremap/caredirectory/backend/internal/domain/repositories"
	"github.com/caremap/caredirectory/backend/pkg/config"
)

// EmployerHandler handles employer search requests
type EmployerHandler struct {
	employerRepo repositories.EmployerRepository
	query        config.QueryConfig
}

// NewEmployerHandler creates a new employer handler
func NewEmployerHandler(employerRepo repositories.EmployerRepository, query config.QueryConfig) *EmployerHandler {
	return &EmployerHandler{
		employerRepo: employerRepo,
		query:        query,
	}
}

// Search handles POST /api/employers/search
func (h *EmployerHandler) Search(w http.ResponseWriter, r *http.Request) {
	var filter repositories.EmployerFilter
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

	page, err := h.employerRepo.Search(ctx, filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}
