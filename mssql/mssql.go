// Package mssql provides the SQL Server dialect and driver for repoql stores.
package mssql

import (
	"database/sql"
	"fmt"
	"strings"

	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/zoobzio/repoql/sqlstore"
)

// Dialect renders Transact-SQL.
type Dialect struct{}

// Name returns the dialect name.
func (Dialect) Name() string { return "mssql" }

// Quote quotes an identifier with brackets.
func (Dialect) Quote(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

// Placeholder returns the named ordinal placeholder @pN.
func (Dialect) Placeholder(n int) string { return fmt.Sprintf("@p%d", n) }

// Window renders OFFSET/FETCH. SQL Server has no LIMIT, and FETCH needs an
// OFFSET, so a plain limit skips zero rows.
func (Dialect) Window(skip, limit int64) string {
	out := fmt.Sprintf(" OFFSET %d ROWS", skip)
	if limit > 0 {
		out += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", limit)
	}
	return out
}

// Capabilities reports that OFFSET/FETCH requires ORDER BY.
func (Dialect) Capabilities() sqlstore.Capabilities {
	return sqlstore.Capabilities{OrderedPagination: true}
}

// Open opens a sqlserver:// URL or ADO-style connection string.
func Open(dsn string) (*sql.DB, error) {
	connector, err := mssqldb.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("open mssql: %w", err)
	}
	return sql.OpenDB(connector), nil
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
