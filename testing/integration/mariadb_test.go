package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/repoql"
	rqtest "github.com/zoobzio/repoql/testing"
)

var mariadbDDL = []string{
	"CREATE TABLE gods (id VARCHAR(32) PRIMARY KEY, name VARCHAR(64) NOT NULL, age INTEGER, realm VARCHAR(32), alive TINYINT)",
	"CREATE TABLE temples (id BIGINT AUTO_INCREMENT PRIMARY KEY, god_id VARCHAR(32), city VARCHAR(64), built INTEGER)",
}

func TestMariaDB(t *testing.T) {
	db := getMariaDB(t)
	runSuite(t, db.store, mariadbDDL)
}

func TestMariaDB_InsertReturning(t *testing.T) {
	db := getMariaDB(t)
	reset(t, db.store, mariadbDDL)
	engine := repoql.New(db.store, rqtest.TestRegistry(t))

	rec, err := engine.Insert(ctx, "temples", repoql.Record{"god_id": "zeus", "city": "Olympia", "built": -460})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec["id"])
	assert.Equal(t, "Olympia", rec["city"])
}

func TestMariaDB_OffsetWithoutLimit(t *testing.T) {
	db := getMariaDB(t)
	reset(t, db.store, mariadbDDL)

	cursor, err := db.store.Select(ctx, repoql.SelectQuery{
		Entity: "gods",
		Sorts:  []repoql.Sort{repoql.Asc("age")},
		Skip:   3,
	})
	require.NoError(t, err)
	defer cursor.Close()

	var got []any
	for cursor.Next() {
		got = append(got, cursor.Record()["name"])
	}
	require.NoError(t, cursor.Err())
	assert.Equal(t, []any{"Hades", "Kronos"}, got)
}
