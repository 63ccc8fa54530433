// Package pagination parses page/page_size query parameters and builds the
// paginated response envelope.
package pagination

import (
	"net/url"
	"strconv"

	dErrors "biblioteca/pkg/domain-errors"
)

const MaxPageSize = 100

// Params selects one page of results. Pages start at 1.
type Params struct {
	Page     int
	PageSize int
}

// Offset is the number of rows to skip.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit is the number of rows to return.
func (p Params) Limit() int {
	return p.PageSize
}

// FromQuery reads page and page_size. It returns nil when neither is present,
// meaning the caller wants the full list. Supplying only one of them is an
// error.
func FromQuery(q url.Values) (*Params, error) {
	rawPage, rawSize := q.Get("page"), q.Get("page_size")
	if rawPage == "" && rawSize == "" {
		return nil, nil
	}
	if rawPage == "" || rawSize == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "page y page_size deben enviarse juntos")
	}
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "page debe ser un entero mayor o igual a 1")
	}
	size, err := strconv.Atoi(rawSize)
	if err != nil || size < 1 || size > MaxPageSize {
		return nil, dErrors.New(dErrors.CodeValidation, "page_size debe estar entre 1 y 100")
	}
	return &Params{Page: page, PageSize: size}, nil
}

// Page is the paginated envelope.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int64 `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewPage builds the envelope for items out of total rows.
func NewPage[T any](items []T, total int64, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := (total + int64(p.PageSize) - 1) / int64(p.PageSize)
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: totalPages,
		HasNext:    int64(p.Page) < totalPages,
		HasPrev:    p.Page > 1,
	}
}
