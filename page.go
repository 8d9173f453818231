package repoql

import (
	"context"
	"fmt"
)

// Pagination is a window over a result: skip records, then read at most
// limit of them.
type Pagination struct {
	Skip  int64
	Limit int64
}

// TryPaginate creates a pagination, returning an error if invalid.
func TryPaginate(skip, limit int64) (Pagination, error) {
	if skip < 0 {
		return Pagination{}, fmt.Errorf("skip cannot be negative, got %d", skip)
	}
	if limit <= 0 {
		return Pagination{}, fmt.Errorf("limit must be positive, got %d", limit)
	}
	return Pagination{Skip: skip, Limit: limit}, nil
}

// Paginate creates a pagination and panics if it is invalid.
func Paginate(skip, limit int64) Pagination {
	p, err := TryPaginate(skip, limit)
	if err != nil {
		panic(err)
	}
	return p
}

// Next returns the window following p.
func (p Pagination) Next() Pagination {
	return Pagination{Skip: p.Skip + p.Limit, Limit: p.Limit}
}

// Page is one window of a select, decoded as T.
type Page[T any] struct {
	seq        *Sequence
	pagination Pagination
	content    []T
}

// FetchPage reads the window p of seq. Any window already set on seq is
// replaced.
func FetchPage[T any](ctx context.Context, seq *Sequence, p Pagination) (*Page[T], error) {
	if p.Limit <= 0 {
		return nil, fmt.Errorf("page limit must be positive, got %d", p.Limit)
	}
	content, err := List[T](ctx, seq.WithPagination(p))
	if err != nil {
		return nil, err
	}
	return &Page[T]{seq: seq, pagination: p, content: content}, nil
}

// Content returns the records of the page.
func (p *Page[T]) Content() []T { return p.content }

// Pagination returns the window the page was read with.
func (p *Page[T]) Pagination() Pagination { return p.pagination }

// Len returns the number of records on the page.
func (p *Page[T]) Len() int { return len(p.content) }

// HasNext reports whether the page was full, so a next page may exist.
func (p *Page[T]) HasNext() bool { return int64(len(p.content)) == p.pagination.Limit }

// Next re-executes the same query for the following window.
func (p *Page[T]) Next(ctx context.Context) (*Page[T], error) {
	return FetchPage[T](ctx, p.seq, p.pagination.Next())
}

// pageFactory builds pages without naming T, for the repository dispatcher.
type pageFactory interface {
	fetch(ctx context.Context, seq *Sequence, p Pagination) (any, error)
}

func (*Page[T]) fetch(ctx context.Context, seq *Sequence, p Pagination) (any, error) {
	return FetchPage[T](ctx, seq, p)
}
