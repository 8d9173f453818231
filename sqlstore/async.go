package sqlstore

import (
	"context"
	"fmt"

	"github.com/zoobzio/repoql"
)

// submit runs task on the pool. When the pool refuses it, fail is called on
// the caller's goroutine so the callback still fires exactly once.
func (s *Store) submit(verb string, task func(), fail func(error)) {
	if err := s.pool.Submit(task); err != nil {
		fail(fmt.Errorf("%s: submit: %w", verb, err))
	}
}

// SelectAsync reads every row matching q and passes them to fn.
func (s *Store) SelectAsync(ctx context.Context, q repoql.SelectQuery, fn func([]repoql.Record, error)) {
	s.submit("select", func() {
		fn(s.selectAll(ctx, q))
	}, func(err error) { fn(nil, err) })
}

func (s *Store) selectAll(ctx context.Context, q repoql.SelectQuery) ([]repoql.Record, error) {
	c, err := s.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	var out []repoql.Record
	for c.Next() {
		out = append(out, c.Record())
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountAsync counts the rows matching q and passes the count to fn.
func (s *Store) CountAsync(ctx context.Context, q repoql.SelectQuery, fn func(int64, error)) {
	s.submit("count", func() {
		fn(s.Count(ctx, q))
	}, func(err error) { fn(0, err) })
}

// DeleteAsync deletes the rows matching q and passes the count to fn.
func (s *Store) DeleteAsync(ctx context.Context, q repoql.DeleteQuery, fn func(int64, error)) {
	s.submit("delete", func() {
		fn(s.Delete(ctx, q))
	}, func(err error) { fn(0, err) })
}

// InsertAsync inserts cmd.Record and passes the stored record to fn.
func (s *Store) InsertAsync(ctx context.Context, cmd repoql.WriteCommand, fn func(repoql.Record, error)) {
	s.submit("insert", func() {
		fn(s.Insert(ctx, cmd))
	}, func(err error) { fn(nil, err) })
}

// UpdateAsync updates the row keyed by cmd and passes the count to fn.
func (s *Store) UpdateAsync(ctx context.Context, cmd repoql.WriteCommand, fn func(int64, error)) {
	s.submit("update", func() {
		fn(s.Update(ctx, cmd))
	}, func(err error) { fn(0, err) })
}
