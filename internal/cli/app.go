package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zoobzio/repoql"
	"github.com/zoobzio/repoql/internal/config"
	"github.com/zoobzio/repoql/internal/logger"
	"github.com/zoobzio/repoql/mariadb"
	"github.com/zoobzio/repoql/metadata"
	"github.com/zoobzio/repoql/mssql"
	"github.com/zoobzio/repoql/mysql"
	"github.com/zoobzio/repoql/postgres"
	"github.com/zoobzio/repoql/sqlite"
	"github.com/zoobzio/repoql/sqlstore"
)

type opener func(dsn string, opts ...sqlstore.Option) (*sqlstore.Store, error)

var openers = map[string]opener{
	"sqlite":   sqlite.New,
	"postgres": postgres.New,
	"mysql":    mysql.New,
	"mariadb":  mariadb.New,
	"mssql":    mssql.New,
}

// app is an engine wired from configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *sqlstore.Store
	engine  *repoql.Engine
	metrics *prometheus.Registry
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		cfg.Log.Level = "DEBUG"
	}
	return cfg, nil
}

func openApp(cfg *config.Config, f *OutputFormatter) (*app, error) {
	if cfg.Schema == "" {
		return nil, errors.New("schema is required: set schema in the config file or REPOQL_SCHEMA")
	}
	registry, err := metadata.LoadYAMLFile(cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", cfg.Schema, err)
	}
	f.VerboseLog("Loaded %d entities from %s", len(registry.Entities()), cfg.Schema)

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, f.ErrWriter)
	reg := prometheus.NewRegistry()
	store, err := openers[cfg.Database.Dialect](cfg.Database.DSN,
		sqlstore.WithLogger(log),
		sqlstore.WithMetrics(sqlstore.NewMetrics(reg)),
		sqlstore.WithWorkers(cfg.Exec.Workers),
	)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Dialect, err)
	}
	f.VerboseLog("Opened %s store", cfg.Database.Dialect)

	engine := repoql.New(store, registry,
		repoql.WithLogger(log),
		repoql.WithTimeout(cfg.Exec.Timeout),
	)
	return &app{cfg: cfg, logger: log, store: store, engine: engine, metrics: reg}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
