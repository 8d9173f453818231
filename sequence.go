package repoql

import (
	"context"
	"iter"

	"github.com/zoobzio/repoql/metadata"
)

// Sequence is the lazy result of a select. Nothing runs until it is
// opened, and every open re-executes the query.
type Sequence struct {
	manager Manager
	entity  *metadata.Entity
	query   SelectQuery
}

// Query returns the select command the sequence executes.
func (s *Sequence) Query() SelectQuery { return s.query }

// Entity returns the entity the sequence reads.
func (s *Sequence) Entity() *metadata.Entity { return s.entity }

// WithPagination returns a copy reading p instead of the current window.
func (s *Sequence) WithPagination(p Pagination) *Sequence {
	out := *s
	out.query.Skip = p.Skip
	out.query.Limit = p.Limit
	return &out
}

// Open executes the query and returns its rows.
func (s *Sequence) Open(ctx context.Context) (*Rows, error) {
	cursor, err := s.manager.Select(ctx, s.query)
	if err != nil {
		return nil, err
	}
	return &Rows{cursor: cursor, entity: s.entity}, nil
}

// All iterates the records. An error ends the iteration and is yielded
// with a nil record.
func (s *Sequence) All(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		rows, err := s.Open(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			if !yield(rows.Record(), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Rows reads records from a cursor, converting them from storage form.
type Rows struct {
	cursor Cursor
	entity *metadata.Entity
	record Record
	err    error
}

// Next advances to the next record.
func (r *Rows) Next() bool {
	if r.err != nil || !r.cursor.Next() {
		return false
	}
	decoded, err := r.entity.Decode(r.cursor.Record())
	if err != nil {
		r.err = err
		return false
	}
	r.record = Record(decoded)
	return true
}

// Record returns the current record.
func (r *Rows) Record() Record { return r.record }

// Err returns the first error met while iterating.
func (r *Rows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.cursor.Err()
}

// Close releases the cursor.
func (r *Rows) Close() error { return r.cursor.Close() }
