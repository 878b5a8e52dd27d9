// internal/service/pagination.go
package service

import (
	"fmt"
	"math"

	"tcoin-wallet/internal/util"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is one page of a listing plus the total number of matching rows.
type Page[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	TotalCount int64
}

type pageBounds struct {
	number int
	size   int
}

// newPageBounds applies defaults to zero values and caps the page size.
func newPageBounds(page, pageSize int) (pageBounds, error) {
	if page < 0 || pageSize < 0 || page > math.MaxInt32 {
		return pageBounds{}, fmt.Errorf("%w: page and page_size out of range", util.ErrInvalidInput)
	}
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return pageBounds{number: page, size: pageSize}, nil
}

func (b pageBounds) limit() int  { return b.size }
func (b pageBounds) offset() int { return (b.number - 1) * b.size }

func newPage[T any](b pageBounds, items []T, total int64) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, Page: b.number, PageSize: b.size, TotalCount: total}
}
