package database

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremap/caredirectory/backend/internal/domain/entities"
	"github.com/caremap/caredirectory/backend/internal/domain/repositories"
)

type fakeCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	set    chan string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		data: map[string][]byte{},
		set:  make(chan string, 8),
	}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("cache miss")
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	c.mu.Lock()
	c.data[key] = value
	c.mu.Unlock()
	c.set <- key
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) waitForSet(t *testing.T) string {
	t.Helper()
	select {
	case key := <-c.set:
		return key
	case <-time.After(2 * time.Second):
		t.Fatal("cache was never populated")
		return ""
	}
}

type countingFacilityRepo struct {
	calls int
	page  *entities.Paginated[entities.Facility]
	err   error
}

func (r *countingFacilityRepo) Search(ctx context.Context, filter repositories.FacilityFilter) (*entities.Paginated[entities.Facility], error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.page, nil
}

func TestSearchCacheKey_DistinctPerFilter(t *testing.T) {
	a := searchCacheKey("facilities", repositories.FacilityFilter{Name: "mercy"})
	b := searchCacheKey("facilities", repositories.FacilityFilter{Name: "mercy", Page: 2})
	c := searchCacheKey("employers", repositories.FacilityFilter{Name: "mercy"})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, searchCacheKey("facilities", repositories.FacilityFilter{Name: "mercy"}))
}

func TestCachedFacilityAdapter_MissPopulatesCache(t *testing.T) {
	cache := newFakeCache()
	inner := &countingFacilityRepo{
		page: entities.NewPage([]entities.Facility{{Name: "Mercy Hospital"}}, 1, 25, 1),
	}
	adapter := NewCachedFacilityAdapter(inner, cache, 120)

	page, err := adapter.Search(context.Background(), repositories.FacilityFilter{Name: "mercy"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "Mercy Hospital", page.Data[0].Name)

	key := cache.waitForSet(t)

	var cached entities.Paginated[entities.Facility]
	require.NoError(t, json.Unmarshal(cache.data[key], &cached))
	assert.Equal(t, "Mercy Hospital", cached.Data[0].Name)
}

func TestCachedFacilityAdapter_HitSkipsDatabase(t *testing.T) {
	cache := newFakeCache()
	inner := &countingFacilityRepo{
		page: entities.NewPage([]entities.Facility{{Name: "Mercy Hospital"}}, 1, 25, 1),
	}
	adapter := NewCachedFacilityAdapter(inner, cache, 120)

	filter := repositories.FacilityFilter{Name: "mercy"}
	_, err := adapter.Search(context.Background(), filter)
	require.NoError(t, err)
	cache.waitForSet(t)

	page, err := adapter.Search(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "Mercy Hospital", page.Data[0].Name)
}

func TestCachedFacilityAdapter_CacheFailureDegrades(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	inner := &countingFacilityRepo{
		page: entities.EmptyPage[entities.Facility](1, 25),
	}
	adapter := NewCachedFacilityAdapter(inner, cache, 120)

	page, err := adapter.Search(context.Background(), repositories.FacilityFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 0, page.Total)
}

func TestCachedFacilityAdapter_DatabaseErrorPropagates(t *testing.T) {
	cache := newFakeCache()
	inner := &countingFacilityRepo{err: errors.New("connection refused")}
	adapter := NewCachedFacilityAdapter(inner, cache, 120)

	_, err := adapter.Search(context.Background(), repositories.FacilityFilter{})
	assert.Error(t, err)
	assert.Empty(t, cache.data)
}

func TestCachedFacilityAdapter_MalformedEntryFallsThrough(t *testing.T) {
	cache := newFakeCache()
	filter := repositories.FacilityFilter{Name: "mercy"}
	cache.data[searchCacheKey("facilities", filter)] = []byte("{broken")

	inner := &countingFacilityRepo{
		page: entities.NewPage([]entities.Facility{{Name: "Mercy Hospital"}}, 1, 25, 1),
	}
	adapter := NewCachedFacilityAdapter(inner, cache, 120)

	page, err := adapter.Search(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "Mercy Hospital", page.Data[0].Name)
}
