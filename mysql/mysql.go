// Package mysql provides the MySQL dialect and driver for repoql stores.
package mysql

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/zoobzio/repoql/sqlstore"
)

// noLimit is the largest row count MySQL accepts, used for OFFSET alone.
const noLimit = "18446744073709551615"

// Dialect renders MySQL SQL.
type Dialect struct{}

// Name returns the dialect name.
func (Dialect) Name() string { return "mysql" }

// Quote quotes an identifier with backticks.
func (Dialect) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// Placeholder returns a positional ? placeholder.
func (Dialect) Placeholder(int) string { return "?" }

// Window renders LIMIT/OFFSET. MySQL has no OFFSET without LIMIT.
func (Dialect) Window(skip, limit int64) string {
	switch {
	case limit > 0 && skip > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, skip)
	case limit > 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case skip > 0:
		return fmt.Sprintf(" LIMIT %s OFFSET %d", noLimit, skip)
	}
	return ""
}

// Capabilities reports no RETURNING; generated keys come from LastInsertId.
func (Dialect) Capabilities() sqlstore.Capabilities {
	return sqlstore.Capabilities{}
}

// Open parses a go-sql-driver DSN and opens it. Time columns are parsed
// into time.Time.
func Open(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
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
