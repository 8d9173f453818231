package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/repoql"
	rqtest "github.com/zoobzio/repoql/testing"
)

var postgresDDL = []string{
	`CREATE TABLE gods (id VARCHAR(32) PRIMARY KEY, name VARCHAR(64) NOT NULL, age INTEGER, realm VARCHAR(32), alive SMALLINT)`,
	`CREATE TABLE temples (id BIGSERIAL PRIMARY KEY, god_id VARCHAR(32), city VARCHAR(64), built INTEGER)`,
}

func TestPostgres(t *testing.T) {
	db := getPostgres(t)
	runSuite(t, db.store, postgresDDL)
}

func TestPostgres_InsertReturning(t *testing.T) {
	db := getPostgres(t)
	reset(t, db.store, postgresDDL)
	engine := repoql.New(db.store, rqtest.TestRegistry(t))

	first, err := engine.Insert(ctx, "temples", repoql.Record{"god_id": "zeus", "city": "Olympia", "built": -460})
	require.NoError(t, err)
	second, err := engine.Insert(ctx, "temples", repoql.Record{"god_id": "hera", "city": "Samos", "built": -570})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first["id"])
	assert.Equal(t, int64(2), second["id"])
	assert.Equal(t, "Samos", second["city"])
}
