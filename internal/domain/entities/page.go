package entities

// Paginated is the response envelope shared by every directory search
type Paginated[T any] struct {
	Data       []T `json:"data"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPage builds an envelope around one page of results
func NewPage[T any](data []T, page, perPage, total int) *Paginated[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return &Paginated[T]{
		Data:       data,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}

// EmptyPage builds an envelope for a zero-match search
func EmptyPage[T any](page, perPage int) *Paginated[T] {
	return NewPage[T]([]T{}, page, perPage, 0)
}
