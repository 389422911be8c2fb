package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/caremap/caredirectory/backend/internal/infrastructure/observability"
	"github.com/caremap/caredirectory/backend/pkg/config"
	apperrors "github.com/caremap/caredirectory/backend/pkg/errors"
)

// normalizePagination applies defaults to absent values and validates
// bounds. Out-of-range values are rejected, never clamped.
func normalizePagination(page, perPage *int, query config.QueryConfig) *apperrors.AppError {
	if *page == 0 {
		*page = 1
	}
	if *perPage == 0 {
		*perPage = query.DefaultPerPage
	}

	if *page < 1 {
		return apperrors.NewValidationError("page must be at least 1")
	}
	if *perPage < 1 || *perPage > query.MaxPerPage {
		return apperrors.NewValidationError("per_page must be between 1 and 200")
	}
	return nil
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps an application error to its HTTP status,
// hiding internal detail from clients
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.LoggerFromContext(r.Context())

	if appErr, ok := err.(*apperrors.AppError); ok {
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
		case apperrors.ErrorTypeTimeout:
			logger.Error().Err(err).Msg("search timed out")
			respondWithError(w, http.StatusGatewayTimeout, "search timed out")
		default:
			logger.Error().Err(err).Msg("search failed")
			respondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	logger.Error().Err(err).Msg("search failed")
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}
