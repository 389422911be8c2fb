package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/caremap/caredirectory/backend/internal/domain/entities"
	"github.com/caremap/caredirectory/backend/internal/domain/providers"
	"github.com/caremap/caredirectory/backend/internal/domain/repositories"
	"github.com/caremap/caredirectory/backend/internal/infrastructure/observability"
)

// searchCacheKey hashes the full filter so every distinct request gets
// its own slot
func searchCacheKey(kind string, filter interface{}) string {
	data, err := json.Marshal(filter)
	if err != nil {
		return fmt.Sprintf("search:%s:unkeyed", kind)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("search:%s:%s", kind, hex.EncodeToString(sum[:16]))
}

// cachedSearch reads a search envelope through the cache. Misses fall
// through to the database and populate the cache off the request path;
// cache failures never fail the search.
func cachedSearch[T any](
	ctx context.Context,
	cache providers.CacheProvider,
	key string,
	ttlSeconds int,
	fetch func(context.Context) (*entities.Paginated[T], error),
) (*entities.Paginated[T], error) {
	if cached, err := cache.Get(ctx, key); err == nil {
		var page entities.Paginated[T]
		if err := json.Unmarshal(cached, &page); err == nil {
			return &page, nil
		}
		observability.LoggerFromContext(ctx).Warn().Str("key", key).Msg("failed to unmarshal cached search envelope")
	}

	page, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	go func() {
		bgCtx := context.Background()
		if data, err := json.Marshal(page); err == nil {
			if err := cache.Set(bgCtx, key, data, ttlSeconds); err != nil {
				observability.GetLogger().Warn().Err(err).Str("key", key).Msg("failed to cache search envelope")
			}
		}
	}()

	return page, nil
}

// CachedFacilityAdapter wraps a FacilityRepository with caching
type CachedFacilityAdapter struct {
	adapter repositories.FacilityRepository
	cache   providers.CacheProvider
	ttl     int
}

// NewCachedFacilityAdapter creates a new cached facility adapter
func NewCachedFacilityAdapter(adapter repositories.FacilityRepository, cache providers.CacheProvider, ttlSeconds int) repositories.FacilityRepository {
	return &CachedFacilityAdapter{adapter: adapter, cache: cache, ttl: ttlSeconds}
}

// Search runs a facility search through the cache
func (a *CachedFacilityAdapter) Search(ctx context.Context, filter repositories.FacilityFilter) (*entities.Paginated[entities.Facility], error) {
	return cachedSearch(ctx, a.cache, searchCacheKey("facilities", filter), a.ttl,
		func(ctx context.Context) (*entities.Paginated[entities.Facility], error) {
			return a.adapter.Search(ctx, filter)
		})
}

// CachedEmployerAdapter wraps an EmployerRepository with caching
type CachedEmployerAdapter struct {
	adapter repositories.EmployerRepository
	cache   providers.CacheProvider
	ttl     int
}

// NewCachedEmployerAdapter creates a new cached employer adapter
func NewCachedEmployerAdapter(adapter repositories.EmployerRepository, cache providers.CacheProvider, ttlSeconds int) repositories.EmployerRepository {
	return &CachedEmployerAdapter{adapter: adapter, cache: cache, ttl: ttlSeconds}
}

// Search runs an employer search through the cache
func (a *CachedEmployerAdapter) Search(ctx context.Context, filter repositories.EmployerFilter) (*entities.Paginated[entities.Employer], error) {
	return cachedSearch(ctx, a.cache, searchCacheKey("employers", filter), a.ttl,
		func(ctx context.Context) (*entities.Paginated[entities.Employer], error) {
			return a.adapter.Search(ctx, filter)
		})
}

// CachedProviderAdapter wraps a ProviderRepository with caching
type CachedProviderAdapter struct {
	adapter repositories.ProviderRepository
	cache   providers.CacheProvider
	ttl     int
}

// NewCachedProviderAdapter creates a new cached provider adapter
func NewCachedProviderAdapter(adapter repositories.ProviderRepository, cache providers.CacheProvider, ttlSeconds int) repositories.ProviderRepository {
	return &CachedProviderAdapter{adapter: adapter, cache: cache, ttl: ttlSeconds}
}

// Search runs a provider search through the cache
func (a *CachedProviderAdapter) Search(ctx context.Context, filter repositories.ProviderFilter) (*entities.Paginated[entities.Provider], error) {
	return cachedSearch(ctx, a.cache, searchCacheKey("providers", filter), a.ttl,
		func(ctx context.Context) (*entities.Paginated[entities.Provider], error) {
			return a.adapter.Search(ctx, filter)
		})
}
