package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/caremap/caredirectory/backend/internal/adapters/cache"
	"github.com/caremap/caredirectory/backend/internal/adapters/database"
	"github.com/caremap/caredirectory/backend/internal/api/handlers"
	"github.com/caremap/caredirectory/backend/internal/api/routes"
	"github.com/caremap/caredirectory/backend/internal/domain/providers"
	"github.com/caremap/caredirectory/backend/internal/domain/repositories"
	"github.com/caremap/caredirectory/backend/internal/infrastructure/clients/postgres"
	"github.com/caremap/caredirectory/backend/internal/infrastructure/clients/redis"
	"github.com/caremap/caredirectory/backend/internal/infrastructure/observability"
	"github.com/caremap/caredirectory/backend/pkg/config"
)

func main() {

	// Load .env when present; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger("care-directory-api", cfg.Server.Env)

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	log.Info().Msg("PostgreSQL client initialized")

	// Initialize Redis client; the API works without caching
	var cacheProvider providers.CacheProvider
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize Redis client, continuing without cache")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient)
			log.Info().Msg("Redis client initialized")
		}
	}

	// Initialize adapters, wrapped with the read-through cache when Redis is up

	var facilityRepo repositories.FacilityRepository = database.NewFacilityAdapter(pgClient)
	var employerRepo repositories.EmployerRepository = database.NewEmployerAdapter(pgClient)
	var providerRepo repositories.ProviderRepository = database.NewProviderAdapter(pgClient)

	if cacheProvider != nil {
		facilityRepo = database.NewCachedFacilityAdapter(facilityRepo, cacheProvider, cfg.Query.CacheTTL)
		employerRepo = database.NewCachedEmployerAdapter(employerRepo, cacheProvider, cfg.Query.CacheTTL)
		providerRepo = database.NewCachedProviderAdapter(providerRepo, cacheProvider, cfg.Query.CacheTTL)
		log.Info().Msg("directory adapters wrapped with caching layer")
	}

	// Initialize handlers

	facilityHandler := handlers.NewFacilityHandler(facilityRepo, cfg.Query)
	employerHandler := handlers.NewEmployerHandler(employerRepo, cfg.Query)
	providerHandler := handlers.NewProviderHandler(providerRepo, cfg.Query)

	// Set up router

	router := routes.NewRouter(facilityHandler, employerHandler, providerHandler)
	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: time.Duration(cfg.Query.TimeoutSeconds+5) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}
