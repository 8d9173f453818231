package mariadb

import (
	"testing"

	"github.com/zoobzio/repoql/internal/render"
	rqtest "github.com/zoobzio/repoql/testing"
)

func TestDialect_Golden(t *testing.T) {
	rqtest.AssertDialectGolden(t, Dialect{})
}

func TestName(t *testing.T) {
	if got := (Dialect{}).Name(); got != "mariadb" {
		t.Errorf("Name() = %q", got)
	}
}

func TestQuote(t *testing.T) {
	if got := (Dialect{}).Quote("order"); got != "`order`" {
		t.Errorf("Quote() = %s", got)
	}
}

func TestInsertReturning(t *testing.T) {
	stmt, err := render.Insert(Dialect{}, "temples", map[string]any{"city": "Olympia", "god_id": "zeus"}, true)
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	want := "INSERT INTO `temples` (`city`, `god_id`) VALUES (?, ?) RETURNING *"
	if stmt.SQL != want {
		t.Errorf("SQL = %q, want %q", stmt.SQL, want)
	}
}

func TestOpen(t *testing.T) {
	db, err := Open("repoql:secret@tcp(localhost:3306)/repoql")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()
}
