package pagination

import (
	"net/url"
	"strconv"

	"gorm.io/gorm"
)

// Numbered pagination defaults. Unlike the endless mode, clients may pick a
// page size here, capped at MaxPageSize.
const (
	DefaultPageSize = 20
	MaxPageSize     = 20
)

// PageRequest is a classic page/size request, e.g. /followers/1?page=3&size=10.
type PageRequest struct {
	Page int
	Size int
}

// ParsePageRequest reads page and size params, clamping both to sane values.
func ParsePageRequest(values url.Values) PageRequest {
	req := PageRequest{Page: 1, Size: DefaultPageSize}
	if raw := values.Get("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 0 {
			req.Page = page
		}
	}
	if raw := values.Get("size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			req.Size = size
		}
	}
	if req.Size > MaxPageSize {
		req.Size = MaxPageSize
	}
	return req
}

// NumberedPage is one counted page of results.
type NumberedPage[T any] struct {
	TotalResults int64 `json:"total_results"`
	TotalPages   int   `json:"total_pages"`
	PageNumber   int   `json:"page_number"`
	HasNextPage  bool  `json:"has_next_page"`
	Results      []T   `json:"results"`
}

// PaginatePage runs a counted offset/limit query. The query passed in must
// already carry its filters and ordering.
func PaginatePage[T any](q *gorm.DB, req PageRequest) (NumberedPage[T], error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return NumberedPage[T]{}, err
	}

	var results []T
	offset := (req.Page - 1) * req.Size
	if err := q.Offset(offset).Limit(req.Size).Find(&results).Error; err != nil {
		return NumberedPage[T]{}, err
	}

	totalPages := int((total + int64(req.Size) - 1) / int64(req.Size))
	return NumberedPage[T]{
		TotalResults: total,
		TotalPages:   totalPages,
		PageNumber:   req.Page,
		HasNextPage:  req.Page < totalPages,
		Results:      results,
	}, nil
}
