package testing

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zoobzio/repoql"
	"github.com/zoobzio/repoql/internal/types"
)

// MemoryManager is an in-memory repoql.Manager and repoql.AsyncManager.
// Every command it receives is recorded so tests can assert on what the
// engine dispatched. Tables are keyed by storage name.
type MemoryManager struct {
	mu      sync.Mutex
	tables  map[string][]repoql.Record
	cursors []*repoql.SliceCursor
	err     error
	delay   time.Duration

	Selects []repoql.SelectQuery
	Counts  []repoql.SelectQuery
	Deletes []repoql.DeleteQuery
	Inserts []repoql.WriteCommand
	Updates []repoql.WriteCommand
}

// NewMemoryManager returns an empty manager.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{tables: make(map[string][]repoql.Record)}
}

// Seed appends records to table.
func (m *MemoryManager) Seed(table string, records ...repoql.Record) *MemoryManager {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		m.tables[table] = append(m.tables[table], maps.Clone(rec))
	}
	return m
}

// Records returns a copy of the records stored in table.
func (m *MemoryManager) Records(table string) []repoql.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repoql.Record, len(m.tables[table]))
	for i, rec := range m.tables[table] {
		out[i] = maps.Clone(rec)
	}
	return out
}

// Fail makes every following verb return err. A nil err clears it.
func (m *MemoryManager) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Delay makes every following verb sleep for d before answering.
func (m *MemoryManager) Delay(d time.Duration) {
	m.mu.Lock()
	m.delay = d
	m.mu.Unlock()
}

// Cursors returns the cursors handed out by Select, in order.
func (m *MemoryManager) Cursors() []*repoql.SliceCursor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.cursors)
}

// LastSelect returns the most recent select command.
func (m *MemoryManager) LastSelect() (repoql.SelectQuery, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Selects) == 0 {
		return repoql.SelectQuery{}, false
	}
	return m.Selects[len(m.Selects)-1], true
}

// LastDelete returns the most recent delete command.
func (m *MemoryManager) LastDelete() (repoql.DeleteQuery, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Deletes) == 0 {
		return repoql.DeleteQuery{}, false
	}
	return m.Deletes[len(m.Deletes)-1], true
}

// wait applies the configured delay and returns the configured failure.
func (m *MemoryManager) wait(ctx context.Context) error {
	m.mu.Lock()
	d, err := m.delay, m.err
	m.mu.Unlock()
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (m *MemoryManager) Select(ctx context.Context, q repoql.SelectQuery) (repoql.Cursor, error) {
	m.mu.Lock()
	m.Selects = append(m.Selects, q)
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	records, err := m.query(q)
	if err != nil {
		return nil, err
	}
	cursor := repoql.NewSliceCursor(records)
	m.mu.Lock()
	m.cursors = append(m.cursors, cursor)
	m.mu.Unlock()
	return cursor, nil
}

func (m *MemoryManager) Count(ctx context.Context, q repoql.SelectQuery) (int64, error) {
	m.mu.Lock()
	m.Counts = append(m.Counts, q)
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return 0, err
	}

	q.Skip, q.Limit, q.Sorts = 0, 0, nil
	records, err := m.query(q)
	if err != nil {
		return 0, err
	}
	return int64(len(records)), nil
}

func (m *MemoryManager) Delete(ctx context.Context, q repoql.DeleteQuery) (int64, error) {
	m.mu.Lock()
	m.Deletes = append(m.Deletes, q)
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.tables[q.Entity][:0:0]
	var n int64
	for _, rec := range m.tables[q.Entity] {
		ok, err := Match(q.Where, rec)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	m.tables[q.Entity] = kept
	return n, nil
}

// Insert stores cmd.Record. A missing or zero key gets a generated UUID.
func (m *MemoryManager) Insert(ctx context.Context, cmd repoql.WriteCommand) (repoql.Record, error) {
	m.mu.Lock()
	m.Inserts = append(m.Inserts, cmd)
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	rec := maps.Clone(cmd.Record)
	if cmd.Key != "" {
		if v, ok := rec[cmd.Key]; !ok || v == nil || reflect.ValueOf(v).IsZero() {
			rec[cmd.Key] = uuid.NewString()
		}
	}
	m.mu.Lock()
	m.tables[cmd.Entity] = append(m.tables[cmd.Entity], rec)
	m.mu.Unlock()
	return maps.Clone(rec), nil
}

// Update merges cmd.Record into the records whose key matches.
func (m *MemoryManager) Update(ctx context.Context, cmd repoql.WriteCommand) (int64, error) {
	m.mu.Lock()
	m.Updates = append(m.Updates, cmd)
	m.mu.Unlock()
	if err := m.wait(ctx); err != nil {
		return 0, err
	}
	if cmd.Key == "" {
		return 0, fmt.Errorf("update of %s without a key column", cmd.Entity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, rec := range m.tables[cmd.Entity] {
		if equal(rec[cmd.Key], cmd.Record[cmd.Key]) {
			maps.Copy(rec, cmd.Record)
			n++
		}
	}
	return n, nil
}

func (m *MemoryManager) SelectAsync(ctx context.Context, q repoql.SelectQuery, fn func([]repoql.Record, error)) {
	go func() {
		cursor, err := m.Select(ctx, q)
		if err != nil {
			fn(nil, err)
			return
		}
		defer cursor.Close()
		var out []repoql.Record
		for cursor.Next() {
			out = append(out, cursor.Record())
		}
		fn(out, cursor.Err())
	}()
}

func (m *MemoryManager) CountAsync(ctx context.Context, q repoql.SelectQuery, fn func(int64, error)) {
	go func() { fn(m.Count(ctx, q)) }()
}

func (m *MemoryManager) DeleteAsync(ctx context.Context, q repoql.DeleteQuery, fn func(int64, error)) {
	go func() { fn(m.Delete(ctx, q)) }()
}

func (m *MemoryManager) InsertAsync(ctx context.Context, cmd repoql.WriteCommand, fn func(repoql.Record, error)) {
	go func() { fn(m.Insert(ctx, cmd)) }()
}

func (m *MemoryManager) UpdateAsync(ctx context.Context, cmd repoql.WriteCommand, fn func(int64, error)) {
	go func() { fn(m.Update(ctx, cmd)) }()
}

// query filters, orders, windows and projects the records of q.Entity.
func (m *MemoryManager) query(q repoql.SelectQuery) ([]repoql.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []repoql.Record
	for _, rec := range m.tables[q.Entity] {
		ok, err := Match(q.Where, rec)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, rec)
		}
	}

	if len(q.Sorts) > 0 {
		slices.SortStableFunc(out, func(a, b repoql.Record) int {
			for _, s := range q.Sorts {
				c, _ := compare(a[s.Name], b[s.Name])
				if s.Direction == types.DESC {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}

	if q.Skip > 0 {
		if q.Skip >= int64(len(out)) {
			out = nil
		} else {
			out = out[q.Skip:]
		}
	}
	if q.Limit > 0 && q.Limit < int64(len(out)) {
		out = out[:q.Limit]
	}

	result := make([]repoql.Record, len(out))
	for i, rec := range out {
		if len(q.Fields) == 0 {
			result[i] = maps.Clone(rec)
			continue
		}
		projected := make(repoql.Record, len(q.Fields))
		for _, f := range q.Fields {
			projected[f] = rec[f]
		}
		result[i] = projected
	}
	return result, nil
}

// Match evaluates a resolved condition tree against rec. Leaf values must
// be literals; a nil condition matches everything.
func Match(c *types.Condition, rec repoql.Record) (bool, error) {
	if c == nil {
		return true, nil
	}
	switch c.Operator {
	case types.NOT:
		children := c.Children()
		if len(children) != 1 {
			return false, fmt.Errorf("NOT with %d children", len(children))
		}
		ok, err := Match(&children[0], rec)
		return !ok, err
	case types.AND, types.OR:
		and := c.Operator == types.AND
		for _, child := range c.Children() {
			ok, err := Match(&child, rec)
			if err != nil {
				return false, err
			}
			if ok != and {
				return ok, nil
			}
		}
		return and, nil
	}

	actual := rec[c.Name]
	switch c.Operator {
	case types.IN:
		items, ok := c.Value.(types.List)
		if !ok {
			v, err := literal(c.Value)
			if err != nil {
				return false, err
			}
			return equal(actual, v), nil
		}
		for _, item := range items {
			v, err := literal(item)
			if err != nil {
				return false, err
			}
			if equal(actual, v) {
				return true, nil
			}
		}
		return false, nil

	case types.BETWEEN:
		r, ok := c.Value.(types.Range)
		if !ok {
			return false, fmt.Errorf("BETWEEN on %s without a range", c.Name)
		}
		low, err := literal(r.Low)
		if err != nil {
			return false, err
		}
		high, err := literal(r.High)
		if err != nil {
			return false, err
		}
		lo, ok1 := compare(actual, low)
		hi, ok2 := compare(actual, high)
		return ok1 && ok2 && lo >= 0 && hi <= 0, nil
	}

	expected, err := literal(c.Value)
	if err != nil {
		return false, err
	}
	switch c.Operator {
	case types.EQ:
		return equal(actual, expected), nil
	case types.LIKE:
		pattern, ok := expected.(string)
		if !ok {
			return false, fmt.Errorf("LIKE on %s needs a string pattern, got %T", c.Name, expected)
		}
		s, ok := actual.(string)
		return ok && like(pattern).MatchString(s), nil
	}

	n, ok := compare(actual, expected)
	if !ok {
		return false, nil
	}
	switch c.Operator {
	case types.GT:
		return n > 0, nil
	case types.GE:
		return n >= 0, nil
	case types.LT:
		return n < 0, nil
	case types.LE:
		return n <= 0, nil
	}
	return false, fmt.Errorf("unsupported operator %s", c.Operator)
}

func literal(v types.Value) (any, error) {
	switch val := v.(type) {
	case types.Literal:
		return val.Value, nil
	case types.Document:
		return val.Value, nil
	}
	return nil, fmt.Errorf("unresolved value %s", v)
}

var likeCache sync.Map // string -> *regexp.Regexp

// like compiles a SQL LIKE pattern: % matches any run, _ one character.
func like(pattern string) *regexp.Regexp {
	if re, ok := likeCache.Load(pattern); ok {
		return re.(*regexp.Regexp)
	}
	var b strings.Builder
	b.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re := regexp.MustCompile(b.String())
	likeCache.Store(pattern, re)
	return re
}

func equal(a, b any) bool {
	if n, ok := compare(a, b); ok {
		return n == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two scalars. Numbers compare across types.
func compare(a, b any) (int, bool) {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return cmp.Compare(fa, fb), true
		}
		return 0, false
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			}
			return 1, true
		}
	}
	return 0, false
}

func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
