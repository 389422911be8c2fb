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

type stubEmployerRepo struct {
	lastFilter repositories.EmployerFilter
	page       *entities.Paginated[entities.Employer]
	err        error
}

func (s *stubEmployerRepo) Search(ctx context.Context, filter repositories.EmployerFilter) (*entities.Paginated[entities.Employer], error) {
	s.lastFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

func TestEmployerHandler_Search_Success(t *testing.T) {
	repo := &stubEmployerRepo{
		page: entities.NewPage([]entities.Employer{{Name: "Acme Staffing", CcnOrNpi: "999"}}, 1, 25, 1),
	}
	handler := handlers.NewEmployerHandler(repo, testQueryConfig())

	body := `{"name":"acme","roles":["Physician"],"sort_by":"city","sort_order":"desc"}`
	req := httptest.NewRequest("POST", "/api/employers/search", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acme", repo.lastFilter.Name)
	assert.Equal(t, []string{"Physician"}, repo.lastFilter.Roles)
	assert.Equal(t, "city", repo.lastFilter.SortBy)
	assert.Equal(t, "desc", repo.lastFilter.SortOrder)

	var response entities.Paginated[entities.Employer]
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "Acme Staffing", response.Data[0].Name)
}

func TestEmployerHandler_Search_InvalidBody(t *testing.T) {
	handler := handlers.NewEmployerHandler(&stubEmployerRepo{}, testQueryConfig())

	req := httptest.NewRequest("POST", "/api/employers/search", strings.NewReader(`not json`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmployerHandler_Search_RejectsOversizedPage(t *testing.T) {
	repo := &stubEmployerRepo{page: entities.EmptyPage[entities.Employer](1, 25)}
	handler := handlers.NewEmployerHandler(repo, testQueryConfig())

	req := httptest.NewRequest("POST", "/api/employers/search", strings.NewReader(`{"per_page":201}`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "per_page must be between 1 and 200", response["error"])
}
