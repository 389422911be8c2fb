package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremap/caredirectory/backend/internal/api/handlers"
	"github.com/caremap/caredirectory/backend/internal/domain/entities"
	"github.com/caremap/caredirectory/backend/internal/domain/repositories"
)

type stubProviderRepo struct {
	lastFilter repositories.ProviderFilter
	page       *entities.Paginated[entities.Provider]
	err        error
}

func (s *stubProviderRepo) Search(ctx context.Context, filter repositories.ProviderFilter) (*entities.Paginated[entities.Provider], error) {
	s.lastFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

func TestProviderHandler_Search_Success(t *testing.T) {
	repo := &stubProviderRepo{
		page: entities.NewPage([]entities.Provider{{Npi: "1234567890", FirstName: "Jane", LastName: "Doe"}}, 1, 25, 1),
	}
	handler := handlers.NewProviderHandler(repo, testQueryConfig())

	body := `{"last_name":"doe","license_state_id":44,"facility_cities":["Austin"]}`
	req := httptest.NewRequest("POST", "/api/providers/search", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "doe", repo.lastFilter.LastName)
	require.NotNil(t, repo.lastFilter.LicenseStateID)
	assert.Equal(t, 44, *repo.lastFilter.LicenseStateID)
	assert.Equal(t, []string{"Austin"}, repo.lastFilter.FacilityCities)

	var response entities.Paginated[entities.Provider]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "1234567890", response.Data[0].Npi)
}

func TestProviderHandler_Search_AbsentLicenseStateStaysNil(t *testing.T) {
	repo := &stubProviderRepo{page: entities.EmptyPage[entities.Provider](1, 25)}
	handler := handlers.NewProviderHandler(repo, testQueryConfig())

	req := httptest.NewRequest("POST", "/api/providers/search", strings.NewReader(`{"last_name":"doe"}`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, repo.lastFilter.LicenseStateID)
}

func TestProviderHandler_Search_InvalidBody(t *testing.T) {
	handler := handlers.NewProviderHandler(&stubProviderRepo{}, testQueryConfig())

	req := httptest.NewRequest("POST", "/api/providers/search", strings.NewReader(`[`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProviderHandler_Search_RejectsNegativePage(t *testing.T) {
	repo := &stubProviderRepo{page: entities.EmptyPage[entities.Provider](1, 25)}
	handler := handlers.NewProviderHandler(repo, testQueryConfig())

	req := httptest.NewRequest("POST", "/api/providers/search", strings.NewReader(`{"page":-2}`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
