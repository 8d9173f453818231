package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	rqtest "github.com/zoobzio/repoql/testing"
)

func TestDialect_Golden(t *testing.T) {
	rqtest.AssertDialectGolden(t, Dialect{})
}

func TestWindow(t *testing.T) {
	d := Dialect{}
	tests := []struct {
		skip, limit int64
		expected    string
	}{
		{0, 0, ""},
		{0, 10, " LIMIT 10"},
		{30, 0, " LIMIT -1 OFFSET 30"},
		{30, 10, " LIMIT 10 OFFSET 30"},
	}
	for _, tt := range tests {
		if got := d.Window(tt.skip, tt.limit); got != tt.expected {
			t.Errorf("Window(%d, %d) = %q, want %q", tt.skip, tt.limit, got, tt.expected)
		}
	}
}

func TestNew(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "repoql.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer store.Close()

	if err := store.DB().PingContext(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if store.Dialect().Name() != "sqlite" {
		t.Errorf("Dialect = %s, want sqlite", store.Dialect().Name())
	}
}
