// Package benchmarks provides performance benchmarks for repoql.
package benchmarks

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/zoobzio/repoql"
	"github.com/zoobzio/repoql/internal/bind"
	"github.com/zoobzio/repoql/internal/derive"
	"github.com/zoobzio/repoql/internal/render"
	"github.com/zoobzio/repoql/internal/textql"
	"github.com/zoobzio/repoql/internal/types"
	"github.com/zoobzio/repoql/postgres"
	"github.com/zoobzio/repoql/sqlite"
	rqtest "github.com/zoobzio/repoql/testing"
)

const (
	derivedMethod = "findByRealmAndAgeGreaterThanOrNameInOrderByAgeDescNameAsc"
	textQuery     = "select id, name from God where realm = @realm and (age > @min or name in @names) order by age desc, name skip 10 limit 20"
)

// BenchmarkDeriveParse measures method-name parsing without the cache.
func BenchmarkDeriveParse(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		if _, err := derive.Parse(derivedMethod, "God"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDeriveParseCached measures the cached lookup used by the engine.
func BenchmarkDeriveParseCached(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		if _, err := repoql.ParseMethod(derivedMethod, "God"); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkTextParse measures text query parsing without the cache.
func BenchmarkTextParse(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		if _, err := textql.Parse(textQuery); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkTextParseCached measures the cached lookup used by the engine.
func BenchmarkTextParseCached(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		if _, err := repoql.ParseQuery(textQuery); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkBindPositional measures positional binding of a derived query.
func BenchmarkBindPositional(b *testing.B) {
	ast := derive.MustParse(derivedMethod, "God")
	args := []any{"sky", 100, []string{"Zeus", "Hera"}}

	b.ReportAllocs()
	for b.Loop() {
		if _, err := bind.Positional(ast, args, nil); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkBindNamed measures named binding through a parameter set.
func BenchmarkBindNamed(b *testing.B) {
	ast, err := textql.Parse(textQuery)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	for b.Loop() {
		set := bind.NewSet(ast.Params)
		_ = set.Bind("realm", "sky")
		_ = set.Bind("min", 100)
		_ = set.Bind("names", []string{"Zeus", "Hera"})
		if _, err := set.Apply(ast, nil); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkRenderSelect measures SQL rendering of a bound condition tree.
func BenchmarkRenderSelect(b *testing.B) {
	lit := func(v any) types.Literal { return types.Literal{Value: v, Stored: true} }
	where := types.Combine(types.OR,
		types.Combine(types.AND,
			types.Leaf("realm", types.EQ, lit("sky")),
			types.Leaf("age", types.GT, lit(100)),
		),
		types.Leaf("name", types.IN, types.List{lit("Zeus"), lit("Hera"), lit("Hades")}),
	)
	sorts := []types.Sort{{Name: "age", Direction: types.DESC}, {Name: "name", Direction: types.ASC}}
	dialect := postgres.Dialect{}

	b.ReportAllocs()
	for b.Loop() {
		if _, err := render.Select(dialect, "gods", []string{"id", "name"}, &where, sorts, 10, 20); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExecuteMemory measures a full derive, bind, execute and decode
// against the in-memory manager.
func BenchmarkExecuteMemory(b *testing.B) {
	engine, _ := rqtest.TestEngine(b)
	ctx := context.Background()

	b.ReportAllocs()
	for b.Loop() {
		stmt, err := engine.Derive("God", "findByRealmOrderByAge")
		if err != nil {
			b.Fatal(err)
		}
		stmt, err = stmt.WithArgs("sky")
		if err != nil {
			b.Fatal(err)
		}
		seq, err := stmt.Sequence()
		if err != nil {
			b.Fatal(err)
		}
		if _, err := repoql.List[rqtest.God](ctx, seq); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkExecuteSQLite measures the same query through sqlstore.
func BenchmarkExecuteSQLite(b *testing.B) {
	ctx := context.Background()
	store, err := sqlite.New(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()

	if _, err := store.DB().ExecContext(ctx,
		`CREATE TABLE gods (id TEXT PRIMARY KEY, name TEXT, age INTEGER, realm TEXT, alive INTEGER)`); err != nil {
		b.Fatal(err)
	}
	for _, rec := range rqtest.Gods() {
		if _, err := store.Insert(ctx, repoql.WriteCommand{Entity: "gods", Key: "id", Record: rec}); err != nil {
			b.Fatal(err)
		}
	}
	engine := repoql.New(store, rqtest.TestRegistry(b))

	b.ReportAllocs()
	for b.Loop() {
		stmt, err := engine.Prepare("select * from God where realm = @realm order by age")
		if err != nil {
			b.Fatal(err)
		}
		if err := stmt.Bind("realm", "sky"); err != nil {
			b.Fatal(err)
		}
		seq, err := stmt.Sequence()
		if err != nil {
			b.Fatal(err)
		}
		if _, err := repoql.List[rqtest.God](ctx, seq); err != nil {
			b.Fatal(err)
		}
	}
}
