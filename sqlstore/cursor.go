package sqlstore

import (
	"database/sql"
	"strings"

	"github.com/zoobzio/repoql"
)

// cursor reads one row per Next from an open result set.
type cursor struct {
	rows    *sql.Rows
	columns []string
	binary  []bool
	record  repoql.Record
	err     error
	read    int64
	done    func(n int64)
	closed  bool
}

func newCursor(rows *sql.Rows, done func(n int64)) (*cursor, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	binary := make([]bool, len(types))
	for i, t := range types {
		switch strings.ToUpper(t.DatabaseTypeName()) {
		case "BLOB", "BYTEA", "BINARY", "VARBINARY", "LONGBLOB", "MEDIUMBLOB", "TINYBLOB", "IMAGE":
			binary[i] = true
		}
	}
	return &cursor{rows: rows, columns: columns, binary: binary, done: done}, nil
}

func (c *cursor) Next() bool {
	if c.closed || c.err != nil || !c.rows.Next() {
		return false
	}
	values := make([]any, len(c.columns))
	ptrs := make([]any, len(c.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = err
		return false
	}

	rec := make(repoql.Record, len(c.columns))
	for i, column := range c.columns {
		v := values[i]
		// Text columns come back as bytes from some drivers.
		if b, ok := v.([]byte); ok && !c.binary[i] {
			v = string(b)
		}
		rec[column] = v
	}
	c.record = rec
	c.read++
	return true
}

func (c *cursor) Record() repoql.Record { return c.record }

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

// Close closes the result set. It is safe to call more than once.
func (c *cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.done != nil {
		c.done(c.read)
	}
	return c.rows.Close()
}
