// Package sqlstore implements the repoql storage manager over database/sql.
//
// A Store renders each backend-neutral command for its dialect, runs it,
// and hands selects back as lazy cursors over the open result set:
//
//	db, _ := sqlite.Open("file:app.db")
//	store, _ := sqlstore.New(db, sqlite.Dialect{})
//	defer store.Close()
//	engine := repoql.New(store, registry)
//
// Callback verbs run on an ants worker pool.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/zoobzio/repoql"
	"github.com/zoobzio/repoql/internal/render"
)

// Dialect renders SQL for one database.
type Dialect = render.Dialect

// Capabilities describes what a dialect's SQL supports.
type Capabilities = render.Capabilities

// DefaultWorkers is the size of the pool a Store creates for callback verbs.
const DefaultWorkers = 16

// Store is a repoql.Manager and repoql.AsyncManager over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
	metrics *Metrics
	pool    *ants.Pool
	ownPool bool
	workers int
}

var (
	_ repoql.Manager      = (*Store)(nil)
	_ repoql.AsyncManager = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger statements are traced to at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics reports statement counts, latency and rows to m.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithPool runs callback verbs on pool. The Store does not release it.
func WithPool(pool *ants.Pool) Option {
	return func(s *Store) { s.pool = pool }
}

// WithWorkers sizes the pool the Store creates for callback verbs.
func WithWorkers(n int) Option {
	return func(s *Store) { s.workers = n }
}

// New creates a Store over db. The Store owns db from then on and closes it
// in Close.
func New(db *sql.DB, dialect Dialect, opts ...Option) (*Store, error) {
	s := &Store{
		db:      db,
		dialect: dialect,
		logger:  slog.Default(),
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pool == nil {
		pool, err := ants.NewPool(s.workers, ants.WithPanicHandler(func(v any) {
			s.logger.Error("sqlstore: callback panic", "panic", v)
		}))
		if err != nil {
			return nil, fmt.Errorf("create worker pool: %w", err)
		}
		s.pool, s.ownPool = pool, true
	}
	return s, nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the dialect statements are rendered for.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close releases the worker pool the Store created and closes the database.
func (s *Store) Close() error {
	if s.ownPool {
		s.pool.Release()
	}
	return s.db.Close()
}

func (s *Store) trace(ctx context.Context, verb string, stmt render.Statement) {
	s.logger.DebugContext(ctx, "sql statement",
		"dialect", s.dialect.Name(),
		"verb", verb,
		"sql", stmt.SQL,
		"args", len(stmt.Args),
	)
}

// Select runs q and returns a cursor over the open rows. The caller must
// close it.
func (s *Store) Select(ctx context.Context, q repoql.SelectQuery) (repoql.Cursor, error) {
	stmt, err := render.Select(s.dialect, q.Entity, q.Fields, q.Where, q.Sorts, q.Skip, q.Limit)
	if err != nil {
		return nil, err
	}
	s.trace(ctx, "select", stmt)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err == nil {
		var c *cursor
		c, err = newCursor(rows, func(n int64) { s.metrics.rows("select", n) })
		if err == nil {
			s.metrics.observe("select", start, nil)
			return c, nil
		}
		rows.Close()
	}
	s.metrics.observe("select", start, err)
	return nil, fmt.Errorf("select %s: %w", q.Entity, err)
}

// Count returns the number of rows matching q's filter. Window and sorts
// are ignored.
func (s *Store) Count(ctx context.Context, q repoql.SelectQuery) (int64, error) {
	stmt, err := render.Count(s.dialect, q.Entity, q.Where)
	if err != nil {
		return 0, err
	}
	s.trace(ctx, "count", stmt)

	start := time.Now()
	var n int64
	err = s.db.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&n)
	s.metrics.observe("count", start, err)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Entity, err)
	}
	return n, nil
}

// Delete removes the rows matching q and returns how many were removed.
func (s *Store) Delete(ctx context.Context, q repoql.DeleteQuery) (int64, error) {
	stmt, err := render.Delete(s.dialect, q.Entity, q.Where)
	if err != nil {
		return 0, err
	}
	return s.exec(ctx, "delete", q.Entity, stmt)
}

// Update replaces the columns of the row whose key matches and returns the
// number of rows changed.
func (s *Store) Update(ctx context.Context, cmd repoql.WriteCommand) (int64, error) {
	stmt, err := render.Update(s.dialect, cmd.Entity, cmd.Key, cmd.Record)
	if err != nil {
		return 0, err
	}
	return s.exec(ctx, "update", cmd.Entity, stmt)
}

func (s *Store) exec(ctx context.Context, verb, table string, stmt render.Statement) (int64, error) {
	s.trace(ctx, verb, stmt)
	start := time.Now()
	res, err := s.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	var n int64
	if err == nil {
		n, err = res.RowsAffected()
	}
	s.metrics.observe(verb, start, err)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", verb, table, err)
	}
	s.metrics.rows(verb, n)
	return n, nil
}

// Insert stores cmd.Record. A missing or zero key is left to the database
// to generate; the returned record carries it when the dialect can read it
// back.
func (s *Store) Insert(ctx context.Context, cmd repoql.WriteCommand) (repoql.Record, error) {
	rec := make(repoql.Record, len(cmd.Record))
	for k, v := range cmd.Record {
		rec[k] = v
	}
	generated := false
	if cmd.Key != "" {
		if v, ok := rec[cmd.Key]; !ok || isZero(v) {
			delete(rec, cmd.Key)
			generated = true
		}
	}

	if s.dialect.Capabilities().Returning {
		return s.insertReturning(ctx, cmd.Entity, rec)
	}

	stmt, err := render.Insert(s.dialect, cmd.Entity, rec, false)
	if err != nil {
		return nil, err
	}
	s.trace(ctx, "insert", stmt)
	start := time.Now()
	res, err := s.db.ExecContext(ctx, stmt.SQL, stmt.Args...)
	s.metrics.observe("insert", start, err)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", cmd.Entity, err)
	}
	s.metrics.rows("insert", 1)
	if generated {
		// Drivers without LastInsertId (SQL Server) leave the key unset.
		if id, err := res.LastInsertId(); err == nil {
			rec[cmd.Key] = id
		}
	}
	return rec, nil
}

func (s *Store) insertReturning(ctx context.Context, table string, rec repoql.Record) (repoql.Record, error) {
	stmt, err := render.Insert(s.dialect, table, rec, true)
	if err != nil {
		return nil, err
	}
	s.trace(ctx, "insert", stmt)

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		s.metrics.observe("insert", start, err)
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	c, err := newCursor(rows, nil)
	if err != nil {
		rows.Close()
		s.metrics.observe("insert", start, err)
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	defer c.Close()

	if !c.Next() {
		err = c.Err()
		if err == nil {
			err = fmt.Errorf("no row returned")
		}
		s.metrics.observe("insert", start, err)
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	s.metrics.observe("insert", start, nil)
	s.metrics.rows("insert", 1)
	return c.Record(), nil
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	return reflect.ValueOf(v).IsZero()
}
