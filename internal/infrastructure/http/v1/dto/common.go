// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"stockledger/internal/domain"
)

// --- Pagination ---

// PageQuery contains offset pagination parameters.
type PageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// Page converts the query to a domain page.
func (q PageQuery) Page() domain.Page {
	return domain.Page{Limit: q.Limit, Offset: q.Offset}.Normalize()
}

// --- List Response ---

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// MapList converts a domain list result item by item.
func MapList[S, T any](res domain.ListResult[S], fn func(S) T) ListResponse[T] {
	items := make([]T, len(res.Items))
	for i, it := range res.Items {
		items[i] = fn(it)
	}
	return ListResponse[T]{Items: items, TotalCount: res.TotalCount, Limit: res.Limit, Offset: res.Offset}
}
