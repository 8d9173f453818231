// Package render turns backend-neutral commands into dialect SQL with
// positional arguments.
package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/zoobzio/repoql/internal/types"
)

// Statement is rendered SQL and its arguments in placeholder order.
type Statement struct {
	SQL  string
	Args []any
}

// builder accumulates SQL and arguments for one statement.
type builder struct {
	d    Dialect
	sql  strings.Builder
	args []any
}

func newBuilder(d Dialect) *builder {
	return &builder{d: d}
}

func (b *builder) write(parts ...string) {
	for _, p := range parts {
		b.sql.WriteString(p)
	}
}

// arg records v and returns its placeholder. Documents travel as JSON text.
func (b *builder) arg(v any) (string, error) {
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode document argument: %w", err)
		}
		v = string(data)
	}
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args)), nil
}

func (b *builder) statement() Statement {
	return Statement{SQL: b.sql.String(), Args: b.args}
}

// Select renders a select over table. No columns selects every column.
func Select(d Dialect, table string, columns []string, where *types.Condition, sorts []types.Sort, skip, limit int64) (Statement, error) {
	b := newBuilder(d)
	b.write("SELECT ")
	if len(columns) == 0 {
		b.write("*")
	} else {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = d.Quote(c)
		}
		b.write(strings.Join(quoted, ", "))
	}
	b.write(" FROM ", d.Quote(table))
	if err := b.where(where); err != nil {
		return Statement{}, err
	}

	windowed := skip > 0 || limit > 0
	switch {
	case len(sorts) > 0:
		parts := make([]string, len(sorts))
		for i, s := range sorts {
			dir := s.Direction
			if dir == "" {
				dir = types.ASC
			}
			parts[i] = d.Quote(s.Name) + " " + string(dir)
		}
		b.write(" ORDER BY ", strings.Join(parts, ", "))
	case skip > 0 && d.Capabilities().OrderedPagination:
		return Statement{}, unsupported(d, "select", table, "OFFSET without ORDER BY",
			"add a sort when reading a page")
	case windowed && d.Capabilities().OrderedPagination:
		// A bare limit takes any rows, so no order is needed.
		b.write(" ORDER BY (SELECT NULL)")
	}
	if windowed {
		b.write(d.Window(skip, limit))
	}
	return b.statement(), nil
}

// Count renders a row count over table.
func Count(d Dialect, table string, where *types.Condition) (Statement, error) {
	b := newBuilder(d)
	b.write("SELECT COUNT(*) FROM ", d.Quote(table))
	if err := b.where(where); err != nil {
		return Statement{}, err
	}
	return b.statement(), nil
}

// Delete renders a delete over table. A nil where deletes every row.
func Delete(d Dialect, table string, where *types.Condition) (Statement, error) {
	b := newBuilder(d)
	b.write("DELETE FROM ", d.Quote(table))
	if err := b.where(where); err != nil {
		return Statement{}, err
	}
	return b.statement(), nil
}

// Insert renders a single-row insert. Columns are written in name order.
// With returning, the stored row is read back in the same statement.
func Insert(d Dialect, table string, rec map[string]any, returning bool) (Statement, error) {
	if len(rec) == 0 {
		return Statement{}, fmt.Errorf("insert into %s: record has no columns", table)
	}
	if returning && !d.Capabilities().Returning {
		return Statement{}, unsupported(d, "insert", table, "RETURNING", "read the row back by its key")
	}

	columns := sortedColumns(rec, "")
	b := newBuilder(d)
	quoted := make([]string, len(columns))
	holders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
		ph, err := b.arg(rec[c])
		if err != nil {
			return Statement{}, err
		}
		holders[i] = ph
	}
	b.write("INSERT INTO ", d.Quote(table), " (", strings.Join(quoted, ", "), ") VALUES (", strings.Join(holders, ", "), ")")
	if returning {
		b.write(" RETURNING *")
	}
	return b.statement(), nil
}

// Update renders an update of the row whose key column equals rec[key].
func Update(d Dialect, table, key string, rec map[string]any) (Statement, error) {
	id, ok := rec[key]
	if !ok {
		return Statement{}, fmt.Errorf("update %s: record has no value for %s", table, key)
	}
	columns := sortedColumns(rec, key)
	if len(columns) == 0 {
		return Statement{}, fmt.Errorf("update %s: nothing to set besides %s", table, key)
	}

	b := newBuilder(d)
	sets := make([]string, len(columns))
	for i, c := range columns {
		ph, err := b.arg(rec[c])
		if err != nil {
			return Statement{}, err
		}
		sets[i] = d.Quote(c) + " = " + ph
	}
	ph, err := b.arg(id)
	if err != nil {
		return Statement{}, err
	}
	b.write("UPDATE ", d.Quote(table), " SET ", strings.Join(sets, ", "), " WHERE ", d.Quote(key), " = ", ph)
	return b.statement(), nil
}

func sortedColumns(rec map[string]any, skip string) []string {
	columns := make([]string, 0, len(rec))
	for c := range rec {
		if c != skip {
			columns = append(columns, c)
		}
	}
	sort.Strings(columns)
	return columns
}

func (b *builder) where(c *types.Condition) error {
	if c == nil {
		return nil
	}
	b.write(" WHERE ")
	return b.condition(*c, false)
}

// condition renders c. Nested combinators are parenthesized so child
// order and grouping survive.
func (b *builder) condition(c types.Condition, nested bool) error {
	switch c.Operator {
	case types.AND, types.OR:
		children := c.Children()
		if nested {
			b.write("(")
		}
		for i := range children {
			if i > 0 {
				b.write(" ", string(c.Operator), " ")
			}
			if err := b.condition(children[i], true); err != nil {
				return err
			}
		}
		if nested {
			b.write(")")
		}
		return nil
	case types.NOT:
		children := c.Children()
		if len(children) != 1 {
			return fmt.Errorf("NOT requires exactly one child condition")
		}
		b.write("NOT (")
		if err := b.condition(children[0], false); err != nil {
			return err
		}
		b.write(")")
		return nil
	}
	return b.leaf(c)
}

func (b *builder) leaf(c types.Condition) error {
	column := b.d.Quote(c.Name)

	switch c.Operator {
	case types.IN:
		var items []types.Value
		switch v := c.Value.(type) {
		case types.List:
			items = v
		case types.Literal:
			items = []types.Value{v}
		default:
			return unresolved(c)
		}
		if len(items) == 0 {
			b.write("1 = 0")
			return nil
		}
		holders := make([]string, len(items))
		for i, item := range items {
			lit, ok := item.(types.Literal)
			if !ok {
				return unresolved(c)
			}
			ph, err := b.arg(lit.Value)
			if err != nil {
				return err
			}
			holders[i] = ph
		}
		b.write(column, " IN (", strings.Join(holders, ", "), ")")
		return nil

	case types.BETWEEN:
		r, ok := c.Value.(types.Range)
		if !ok {
			return unresolved(c)
		}
		low, lok := r.Low.(types.Literal)
		high, hok := r.High.(types.Literal)
		if !lok || !hok {
			return unresolved(c)
		}
		lp, err := b.arg(low.Value)
		if err != nil {
			return err
		}
		hp, err := b.arg(high.Value)
		if err != nil {
			return err
		}
		b.write(column, " BETWEEN ", lp, " AND ", hp)
		return nil
	}

	lit, ok := c.Value.(types.Literal)
	if !ok {
		return unresolved(c)
	}
	if lit.Value == nil && c.Operator == types.EQ {
		b.write(column, " IS NULL")
		return nil
	}
	ph, err := b.arg(lit.Value)
	if err != nil {
		return err
	}
	b.write(column, " ", comparator(c.Operator), " ", ph)
	return nil
}

func comparator(op types.Operator) string {
	if op == types.LIKE {
		return "LIKE"
	}
	return op.Symbol()
}

func unresolved(c types.Condition) error {
	return fmt.Errorf("cannot render %s %s: value %v is not bound", c.Name, c.Operator, c.Value)
}
