// Package mariadb provides the MariaDB dialect for repoql stores. It
// renders like MySQL but reads generated keys back with RETURNING.
package mariadb

import (
	"database/sql"

	"github.com/zoobzio/repoql/mysql"
	"github.com/zoobzio/repoql/sqlstore"
)

// Dialect renders MariaDB SQL (10.5 or later).
type Dialect struct {
	mysql.Dialect
}

// Name returns the dialect name.
func (Dialect) Name() string { return "mariadb" }

// Capabilities reports INSERT ... RETURNING support.
func (Dialect) Capabilities() sqlstore.Capabilities {
	return sqlstore.Capabilities{Returning: true}
}

// Open opens a go-sql-driver DSN.
func Open(dsn string) (*sql.DB, error) {
	return mysql.Open(dsn)
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
