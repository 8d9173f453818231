package mysql

import (
	"testing"

	rqtest "github.com/zoobzio/repoql/testing"
)

func TestDialect_Golden(t *testing.T) {
	rqtest.AssertDialectGolden(t, Dialect{})
}

func TestQuote(t *testing.T) {
	if got := (Dialect{}).Quote("we`ird"); got != "`we``ird`" {
		t.Errorf("Quote() = %s", got)
	}
}

func TestWindow_OffsetNeedsLimit(t *testing.T) {
	got := Dialect{}.Window(40, 0)
	if got != " LIMIT 18446744073709551615 OFFSET 40" {
		t.Errorf("Window(40, 0) = %q", got)
	}
}

func TestOpen(t *testing.T) {
	db, err := Open("repoql:secret@tcp(localhost:3306)/repoql")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if _, err := Open("repoql:secret@localhost"); err == nil {
		t.Error("Open() with a malformed DSN should fail")
	}
}
