package routes

import (
	"net/http"

	"github.com/caremap/caredirectory/backend/internal/api/handlers"
	"github.com/caremap/caredirectory/backend/internal/api/middleware"
)

// Router holds all route handlers

type Router struct {
	mux *http.ServeMux

	facilityHandler *handlers.FacilityHandler
	employerHandler *handlers.EmployerHandler
	providerHandler *handlers.ProviderHandler
}

// NewRouter creates a new router

func NewRouter(
	facilityHandler *handlers.FacilityHandler,
	employerHandler *handlers.EmployerHandler,
	providerHandler *handlers.ProviderHandler,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		facilityHandler: facilityHandler,
		employerHandler: employerHandler,
		providerHandler: providerHandler,
	}
}

// SetupRoutes configures all application routes

func (r *Router) SetupRoutes() http.Handler {

	// Health check endpoint

	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)

		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Directory search endpoints

	r.mux.HandleFunc("POST /api/facilities/search", r.facilityHandler.Search)
	r.mux.HandleFunc("POST /api/employers/search", r.employerHandler.Search)
	r.mux.HandleFunc("POST /api/providers/search", r.providerHandler.Search)

	// Apply middleware in reverse order (last middleware wraps first)

	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)

	// CORS wraps everything so preflights never reach the mux
	handler = middleware.CORSMiddleware(handler)

	return handler
}
