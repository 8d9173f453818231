package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/repoql"
	"github.com/zoobzio/repoql/sqlstore"
	rqtest "github.com/zoobzio/repoql/testing"
)

var ctx = context.Background()

// reset recreates the fixture tables with ddl and seeds the gods.
func reset(t *testing.T, store *sqlstore.Store, ddl []string) {
	t.Helper()
	for _, stmt := range append([]string{`DROP TABLE IF EXISTS temples`, `DROP TABLE IF EXISTS gods`}, ddl...) {
		_, err := store.DB().ExecContext(ctx, stmt)
		require.NoError(t, err, "SQL: %s", stmt)
	}
	for _, rec := range rqtest.Gods() {
		_, err := store.Insert(ctx, repoql.WriteCommand{Entity: "gods", Key: "id", Record: rec})
		require.NoError(t, err)
	}
}

func names(gods []rqtest.God) []string {
	out := make([]string, len(gods))
	for i, g := range gods {
		out[i] = g.Name
	}
	return out
}

func derive(t *testing.T, engine *repoql.Engine, method string, args ...any) *repoql.Statement {
	t.Helper()
	stmt, err := engine.Derive("God", method)
	require.NoError(t, err)
	stmt, err = stmt.WithArgs(args...)
	require.NoError(t, err)
	return stmt
}

func list(t *testing.T, stmt *repoql.Statement) []string {
	t.Helper()
	seq, err := stmt.Sequence()
	require.NoError(t, err)
	gods, err := repoql.List[rqtest.God](ctx, seq)
	require.NoError(t, err)
	return names(gods)
}

// runSuite checks the engine end to end against store. Every subtest
// starts from freshly seeded tables.
func runSuite(t *testing.T, store *sqlstore.Store, ddl []string) {
	engine := repoql.New(store, rqtest.TestRegistry(t))

	t.Run("derived find", func(t *testing.T) {
		reset(t, store, ddl)
		assert.Equal(t, []string{"Zeus", "Hera"}, list(t, derive(t, engine, "findByRealmOrderByAgeDesc", "sky")))
		assert.Equal(t, []string{"Hades", "Kronos"}, list(t, derive(t, engine, "findByAgeGreaterThanOrderByAge", 3000)))
		assert.Equal(t, []string{"Hermes", "Kronos"}, list(t, derive(t, engine, "findByRealmInOrderByName", []string{"earth", "tartarus"})))
		assert.Equal(t, []string{"Hera", "Zeus"}, list(t, derive(t, engine, "findByAgeBetweenOrderByAge", 2990, 3000)))
	})

	t.Run("text conditions", func(t *testing.T) {
		reset(t, store, ddl)
		tests := []struct {
			query string
			want  []string
		}{
			{"select * from God where name like 'H%' order by name", []string{"Hades", "Hera", "Hermes"}},
			{"select * from God where realm = 'sky' or age < 100 order by age", []string{"Hermes", "Hera", "Zeus"}},
			{"select * from God where not realm = 'sky' and alive = true order by name", []string{"Hades", "Hermes"}},
			{"select * from God where realm not in ('sky', 'earth') order by age desc", []string{"Kronos", "Hades"}},
		}
		for _, tt := range tests {
			stmt, err := engine.Prepare(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, list(t, stmt), tt.query)
		}
	})

	t.Run("page next", func(t *testing.T) {
		reset(t, store, ddl)
		seq, err := derive(t, engine, "findByAliveOrderByAge", true).Sequence()
		require.NoError(t, err)

		page, err := repoql.FetchPage[rqtest.God](ctx, seq, repoql.Paginate(0, 2))
		require.NoError(t, err)
		assert.Equal(t, []string{"Hermes", "Hera"}, names(page.Content()))

		next, err := page.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Zeus", "Hades"}, names(next.Content()))
	})

	t.Run("first single exists count", func(t *testing.T) {
		reset(t, store, ddl)
		seq, err := derive(t, engine, "findByName", "Zeus").Sequence()
		require.NoError(t, err)
		zeus, found, err := repoql.Single[rqtest.God](ctx, seq)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 3000, zeus.Age)
		assert.True(t, zeus.Alive)

		seq, err = derive(t, engine, "findByRealm", "sky").Sequence()
		require.NoError(t, err)
		_, _, err = repoql.Single[rqtest.God](ctx, seq)
		var nonUnique *repoql.NonUniqueResultError
		assert.ErrorAs(t, err, &nonUnique)

		_, found, err = repoql.First[rqtest.God](ctx, seq)
		require.NoError(t, err)
		assert.True(t, found)

		result, err := derive(t, engine, "existsByName", "Kronos").Execute(ctx)
		require.NoError(t, err)
		assert.True(t, result.Exists)

		result, err = derive(t, engine, "countByRealm", "sky").Execute(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), result.Affected)
	})

	t.Run("delete update save", func(t *testing.T) {
		reset(t, store, ddl)
		result, err := derive(t, engine, "deleteByAlive", false).Execute(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Affected)

		n, err := engine.Update(ctx, "God", repoql.Record{"ID": "zeus", "age": 3001})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = engine.Save(ctx, "God", repoql.Record{"ID": "ares", "name": "Ares", "age": 20, "realm": "war", "alive": true})
		require.NoError(t, err)

		stmt, err := engine.Prepare("select * from God where age > 3000 or realm = 'war' order by age")
		require.NoError(t, err)
		assert.Equal(t, []string{"Ares", "Zeus", "Hades"}, list(t, stmt))
	})

	t.Run("publisher", func(t *testing.T) {
		reset(t, store, ddl)
		stmt, err := engine.Prepare("select * from God order by age")
		require.NoError(t, err)
		pub, err := repoql.Publish[rqtest.God](stmt)
		require.NoError(t, err)

		total, err := repoql.Collect(ctx, pub, 0, func(sum int, g rqtest.God) int { return sum + g.Age })
		require.NoError(t, err)
		assert.Equal(t, 3000+2990+3005+9000+12, total)
	})

	t.Run("async", func(t *testing.T) {
		reset(t, store, ddl)
		stmt, err := engine.Prepare("delete from God where realm = 'sky'")
		require.NoError(t, err)

		done := make(chan int64, 1)
		require.NoError(t, stmt.DeleteAsync(ctx, func(n int64, err error) {
			assert.NoError(t, err)
			done <- n
		}))
		assert.Equal(t, int64(2), <-done)
	})
}
