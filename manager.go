package repoql

import (
	"context"
	"sync/atomic"

	"github.com/zoobzio/repoql/internal/types"
)

// Record is one stored entity keyed by storage column.
type Record map[string]any

// SelectQuery is the backend-neutral select command. Field names in Where
// and Sorts are storage columns and every value is a bound literal: leaf
// values are Literal, List (IN) or Range (BETWEEN).
type SelectQuery struct {
	Entity string // storage table
	Fields []string
	Where  *types.Condition
	Sorts  []types.Sort
	Limit  int64
	Skip   int64
}

// DeleteQuery is the backend-neutral delete command.
type DeleteQuery struct {
	Entity string
	Where  *types.Condition
}

// WriteCommand inserts or updates one record. Key names the identifier
// column; updates match on Record[Key].
type WriteCommand struct {
	Entity string
	Key    string
	Record Record
}

// Cursor iterates a select result one record at a time.
type Cursor interface {
	Next() bool
	Record() Record
	Err() error
	Close() error
}

// Manager executes commands against a concrete store. The engine never
// closes or reconfigures it.
type Manager interface {
	Select(ctx context.Context, q SelectQuery) (Cursor, error)
	Count(ctx context.Context, q SelectQuery) (int64, error)
	Delete(ctx context.Context, q DeleteQuery) (int64, error)
	Insert(ctx context.Context, cmd WriteCommand) (Record, error)
	Update(ctx context.Context, cmd WriteCommand) (int64, error)
}

// AsyncManager is implemented by managers with callback verbs. Each verb
// returns immediately and invokes the callback later, possibly on another
// goroutine.
type AsyncManager interface {
	SelectAsync(ctx context.Context, q SelectQuery, fn func([]Record, error))
	CountAsync(ctx context.Context, q SelectQuery, fn func(int64, error))
	DeleteAsync(ctx context.Context, q DeleteQuery, fn func(int64, error))
	InsertAsync(ctx context.Context, cmd WriteCommand, fn func(Record, error))
	UpdateAsync(ctx context.Context, cmd WriteCommand, fn func(int64, error))
}

// SliceCursor is a Cursor over records already in memory.
type SliceCursor struct {
	records []Record
	pos     int
	closed  atomic.Bool
}

// NewSliceCursor returns a cursor over records.
func NewSliceCursor(records []Record) *SliceCursor {
	return &SliceCursor{records: records, pos: -1}
}

func (c *SliceCursor) Next() bool {
	if c.closed.Load() || c.pos+1 >= len(c.records) {
		return false
	}
	c.pos++
	return true
}

func (c *SliceCursor) Record() Record {
	if c.pos < 0 || c.pos >= len(c.records) {
		return nil
	}
	return c.records[c.pos]
}

func (c *SliceCursor) Err() error { return nil }

func (c *SliceCursor) Close() error {
	c.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (c *SliceCursor) Closed() bool { return c.closed.Load() }
