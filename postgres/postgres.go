// Package postgres provides the PostgreSQL dialect and driver for repoql
// stores. Connections go through pgx.
package postgres

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/zoobzio/repoql/sqlstore"
)

// Dialect renders PostgreSQL SQL.
type Dialect struct{}

// Name returns the dialect name.
func (Dialect) Name() string { return "postgres" }

// Quote quotes a PostgreSQL identifier to handle reserved words and special characters.
func (Dialect) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Placeholder returns the numbered placeholder $n.
func (Dialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

// Window renders LIMIT and OFFSET independently.
func (Dialect) Window(skip, limit int64) string {
	var sb strings.Builder
	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}
	if skip > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", skip)
	}
	return sb.String()
}

// Capabilities reports RETURNING support.
func (Dialect) Capabilities() sqlstore.Capabilities {
	return sqlstore.Capabilities{Returning: true}
}

// Open parses a pgx connection string (URL or key=value) and opens it
// through the pgx database/sql adapter.
func Open(dsn string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	return stdlib.OpenDB(*cfg), nil
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
