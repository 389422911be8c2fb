package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPage_TotalPages(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		perPage    int
		totalPages int
	}{
		{"exact multiple", 40, 20, 2},
		{"partial last page", 41, 20, 3},
		{"single page", 5, 20, 1},
		{"no matches", 0, 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage([]string{}, 1, tt.perPage, tt.total)
			assert.Equal(t, tt.totalPages, p.TotalPages)
		})
	}
}

func TestNewPage_NilDataBecomesEmptySlice(t *testing.T) {
	p := NewPage[string](nil, 1, 20, 0)
	assert.NotNil(t, p.Data)
	assert.Empty(t, p.Data)
}

func TestEmptyPage(t *testing.T) {
	p := EmptyPage[int](3, 50)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 50, p.PerPage)
	assert.Zero(t, p.Total)
	assert.Zero(t, p.TotalPages)
	assert.Empty(t, p.Data)
}
