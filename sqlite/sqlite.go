// Package sqlite provides the SQLite dialect and driver for repoql stores.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/zoobzio/repoql/sqlstore"
)

// DriverName is the database/sql driver the package opens.
const DriverName = "sqlite"

// Dialect renders SQLite SQL.
type Dialect struct{}

// Name returns the dialect name.
func (Dialect) Name() string { return "sqlite" }

// Quote quotes an identifier with double quotes.
func (Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Placeholder returns a positional ? placeholder.
func (Dialect) Placeholder(int) string { return "?" }

// Window renders LIMIT/OFFSET. SQLite needs a LIMIT before OFFSET, and -1
// means no limit.
func (Dialect) Window(skip, limit int64) string {
	switch {
	case limit > 0 && skip > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, skip)
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case skip > 0:
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", skip)
	}
	return ""
}

// Capabilities reports RETURNING support (SQLite 3.35+).
func (Dialect) Capabilities() sqlstore.Capabilities {
	return sqlstore.Capabilities{Returning: true}
}

// Open opens a SQLite database. The dsn is a file path or a file: URI.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

// New opens dsn and wraps it in a Store.
func New(dsn string, opts ...sqlstore.Option) (*sqlstore.Store, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	store, err := sqlstore.New(db, Dialect{}, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
