package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Dialect)
	assert.Equal(t, "repoql.db", cfg.Database.DSN)
	assert.Equal(t, "INFO", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Exec.Timeout)
	assert.Equal(t, 16, cfg.Exec.Workers)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repoql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  dialect: postgres
  dsn: postgres://localhost/gods
schema: schema.dbml
exec:
  timeout: 5s
  workers: 4
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, "postgres://localhost/gods", cfg.Database.DSN)
	assert.Equal(t, "schema.dbml", cfg.Schema)
	assert.Equal(t, 5*time.Second, cfg.Exec.Timeout)
	assert.Equal(t, 4, cfg.Exec.Workers)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repoql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  dialect: mysql\n  dsn: root@/gods\n"), 0o600))

	t.Setenv("REPOQL_DATABASE_DIALECT", "mssql")
	t.Setenv("REPOQL_LOG_LEVEL", "DEBUG")
	t.Setenv("REPOQL_EXEC_TIMEOUT", "250ms")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mssql", cfg.Database.Dialect)
	assert.Equal(t, "root@/gods", cfg.Database.DSN)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Exec.Timeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"dialect", map[string]string{"REPOQL_DATABASE_DIALECT": "oracle"}, "unknown database dialect"},
		{"workers", map[string]string{"REPOQL_EXEC_WORKERS": "0"}, "exec.workers"},
		{"timeout", map[string]string{"REPOQL_EXEC_TIMEOUT": "-1s"}, "exec.timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateDialects(t *testing.T) {
	for _, d := range []string{"sqlite", "postgres", "mysql", "mariadb", "mssql"} {
		cfg := Config{Database: Database{Dialect: d, DSN: "x"}, Exec: Exec{Workers: 1}}
		assert.NoError(t, cfg.Validate(), d)
	}
}
