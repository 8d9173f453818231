// Package testing provides test utilities for repoql.
package testing

import (
	"errors"
	"strings"
	"testing"

	"github.com/zoobzio/dbml"

	"github.com/zoobzio/repoql"
	"github.com/zoobzio/repoql/internal/types"
	"github.com/zoobzio/repoql/metadata"
)

// God is the fixture entity. Its storage table is gods.
type God struct {
	ID    string `db:"id,pk"`
	Name  string `db:"name"`
	Age   int    `db:"age"`
	Realm string `db:"realm"`
	Alive bool   `db:"alive" convert:"boolint"`
}

// Gods returns the fixture records of the gods table, in storage form.
func Gods() []repoql.Record {
	return []repoql.Record{
		{"id": "zeus", "name": "Zeus", "age": 3000, "realm": "sky", "alive": int64(1)},
		{"id": "hera", "name": "Hera", "age": 2990, "realm": "sky", "alive": int64(1)},
		{"id": "hades", "name": "Hades", "age": 3005, "realm": "underworld", "alive": int64(1)},
		{"id": "kronos", "name": "Kronos", "age": 9000, "realm": "tartarus", "alive": int64(0)},
		{"id": "hermes", "name": "Hermes", "age": 12, "realm": "earth", "alive": int64(1)},
	}
}

// TestRegistry creates the entity registry used across tests: God from
// struct tags, plus temples and offerings from a DBML project.
func TestRegistry(t testing.TB) *metadata.Registry {
	t.Helper()

	project := dbml.NewProject("test")

	temples := dbml.NewTable("temples")
	temples.AddColumn(dbml.NewColumn("id", "bigint"))
	temples.AddColumn(dbml.NewColumn("god_id", "varchar"))
	temples.AddColumn(dbml.NewColumn("city", "varchar"))
	temples.AddColumn(dbml.NewColumn("built", "int"))
	project.AddTable(temples)

	offerings := dbml.NewTable("offerings")
	offerings.AddColumn(dbml.NewColumn("id", "bigint"))
	offerings.AddColumn(dbml.NewColumn("temple_id", "bigint"))
	offerings.AddColumn(dbml.NewColumn("kind", "varchar"))
	offerings.AddColumn(dbml.NewColumn("value", "numeric"))
	project.AddTable(offerings)

	registry, err := metadata.FromDBML(project)
	if err != nil {
		t.Fatalf("Failed to load DBML: %v", err)
	}

	god, err := metadata.FromStruct[God]("God", "gods")
	if err != nil {
		t.Fatalf("Failed to describe God: %v", err)
	}
	if err := registry.Register(god); err != nil {
		t.Fatalf("Failed to register God: %v", err)
	}
	return registry
}

// TestEngine creates an engine over a MemoryManager seeded with Gods.
func TestEngine(t testing.TB, opts ...repoql.Option) (*repoql.Engine, *MemoryManager) {
	t.Helper()
	mm := NewMemoryManager().Seed("gods", Gods()...)
	return repoql.New(mm, TestRegistry(t), opts...), mm
}

// AssertLeaf checks that c is a leaf on field with op and a literal value
// equal to want.
func AssertLeaf(t testing.TB, c *types.Condition, field string, op types.Operator, want any) {
	t.Helper()
	if c == nil {
		t.Fatalf("Expected condition on %s, got none", field)
		return
	}
	if c.Name != field || c.Operator != op {
		t.Errorf("Condition mismatch:\nExpected: %s %s\nActual:   %s %s", field, op, c.Name, c.Operator)
		return
	}
	lit, ok := c.Value.(types.Literal)
	if !ok {
		t.Errorf("Expected literal value on %s, got %T", field, c.Value)
		return
	}
	if lit.Value != want {
		t.Errorf("Value mismatch on %s: expected %v (%T), got %v (%T)", field, want, want, lit.Value, lit.Value)
	}
}

// AssertParams checks that the declared params match expected, in order.
func AssertParams(t testing.TB, expected, actual []string) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Errorf("Param count mismatch: expected %d, got %d\nExpected: %v\nActual: %v",
			len(expected), len(actual), expected, actual)
		return
	}
	for i := range expected {
		if expected[i] != actual[i] {
			t.Errorf("Param %d mismatch\nExpected: %v\nActual: %v", i, expected, actual)
			return
		}
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error but got nil")
	}
}

// AssertErrorAs checks that err wraps an error of type E and returns it.
func AssertErrorAs[E error](t testing.TB, err error) E {
	t.Helper()
	var target E
	if err == nil {
		t.Fatalf("Expected %T but got nil", target)
		return target
	}
	if !errors.As(err, &target) {
		t.Fatalf("Expected %T, got %T: %v", target, err, err)
	}
	return target
}

// AssertErrorContains checks that error message contains substr.
func AssertErrorContains(t testing.TB, err error, substr string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error containing %q but got nil", substr)
	}
	if !strings.Contains(err.Error(), substr) {
		t.Errorf("Expected error containing %q, got: %v", substr, err)
	}
}

// AssertPanicsWithMessage verifies that fn panics with a message containing substr.
func AssertPanicsWithMessage(t testing.TB, fn func(), substr string) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Errorf("Expected panic containing %q but function completed normally", substr)
			return
		}
		var msg string
		switch v := r.(type) {
		case error:
			msg = v.Error()
		case string:
			msg = v
		default:
			t.Errorf("Panic value is not string or error: %T", r)
			return
		}
		if !strings.Contains(msg, substr) {
			t.Errorf("Expected panic containing %q, got: %s", substr, msg)
		}
	}()
	fn()
}
