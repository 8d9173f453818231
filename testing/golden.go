package testing

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/zoobzio/repoql/internal/render"
	"github.com/zoobzio/repoql/internal/types"
	"github.com/zoobzio/repoql/sqlstore"
)

func stored(v any) types.Literal { return types.Literal{Value: v, Stored: true} }

func where(c types.Condition) *types.Condition { return &c }

// dialectCases is the command set every dialect is checked against.
var dialectCases = []struct {
	name   string
	render func(d sqlstore.Dialect) (render.Statement, error)
}{
	{"select_all", func(d sqlstore.Dialect) (render.Statement, error) {
		return render.Select(d, "gods", nil, nil, nil, 0, 0)
	}},
	{"select_filtered", func(d sqlstore.Dialect) (render.Statement, error) {
		c := types.Combine(types.OR,
			types.Combine(types.AND,
				types.Leaf("realm", types.EQ, stored("sky")),
				types.Leaf("age", types.GT, stored(100)),
			),
			types.Negate(types.Leaf("name", types.IN, types.List{stored("Zeus"), stored("Hera")})),
		)
		sorts := []types.Sort{{Name: "age", Direction: types.DESC}, {Name: "name", Direction: types.ASC}}
		return render.Select(d, "gods", []string{"id", "name"}, where(c), sorts, 20, 10)
	}},
	{"select_between_like", func(d sqlstore.Dialect) (render.Statement, error) {
		c := types.Combine(types.AND,
			types.Leaf("age", types.BETWEEN, types.Range{Low: stored(10), High: stored(20)}),
			types.Leaf("name", types.LIKE, stored("H%")),
		)
		return render.Select(d, "gods", nil, where(c), []types.Sort{{Name: "id", Direction: types.ASC}}, 5, 0)
	}},
	{"select_first", func(d sqlstore.Dialect) (render.Statement, error) {
		return render.Select(d, "gods", nil, nil, []types.Sort{{Name: "name", Direction: types.ASC}}, 0, 1)
	}},
	{"count", func(d sqlstore.Dialect) (render.Statement, error) {
		return render.Count(d, "gods", where(types.Leaf("realm", types.EQ, stored("sky"))))
	}},
	{"delete", func(d sqlstore.Dialect) (render.Statement, error) {
		return render.Delete(d, "gods", where(types.Leaf("age", types.EQ, stored(12))))
	}},
	{"insert", func(d sqlstore.Dialect) (render.Statement, error) {
		return render.Insert(d, "gods", map[string]any{"id": "ares", "name": "Ares", "age": 20}, false)
	}},
	{"update", func(d sqlstore.Dialect) (render.Statement, error) {
		return render.Update(d, "gods", "id", map[string]any{"id": "zeus", "age": 3001, "alive": int64(1)})
	}},
}

// AssertDialectGolden renders the standard command set with d and compares
// each statement with testdata/golden/<case>.golden in the calling package.
func AssertDialectGolden(t *testing.T, d sqlstore.Dialect) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tc := range dialectCases {
		t.Run(tc.name, func(t *testing.T) {
			stmt, err := tc.render(d)
			if err != nil {
				t.Fatalf("Render %s: %v", tc.name, err)
			}
			out := fmt.Sprintf("%s\nargs: %v\n", stmt.SQL, stmt.Args)
			g.Assert(t, tc.name, []byte(out))
		})
	}
}
