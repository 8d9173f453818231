package metadata

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/dbml"

	"github.com/zoobzio/repoql/internal/types"
)

func TestEntity_Column(t *testing.T) {
	e := NewEntity("God", "gods").
		AddField(Field{Name: "name", Column: "god_name"}).
		AddField(Field{Name: "address.city"})

	col, err := e.Column("name")
	require.NoError(t, err)
	assert.Equal(t, "god_name", col)

	col, err = e.Column("address.city")
	require.NoError(t, err)
	assert.Equal(t, "address_city", col)

	col, err = e.Column("power")
	require.NoError(t, err)
	assert.Equal(t, "power", col)

	assert.Equal(t, "name", e.Logical("god_name"))
	assert.Equal(t, "power", e.Logical("power"))
}

func TestEntity_StrictRejectsUnknownFields(t *testing.T) {
	e := NewEntity("God", "")
	e.Strict = true
	e.AddField(Field{Name: "name"})

	_, err := e.Column("power")
	var unknown *types.UnknownFieldError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "God", unknown.Entity)
	assert.Equal(t, "power", unknown.Field)
	assert.Equal(t, "God", e.Table)
}

func TestEntity_IDColumn(t *testing.T) {
	e := NewEntity("God", "gods")
	_, err := e.IDColumn()
	var missing *types.IdentifierMissingError
	require.True(t, errors.As(err, &missing))

	e.AddField(Field{Name: "key", Column: "god_key"}).WithID("key")
	col, err := e.IDColumn()
	require.NoError(t, err)
	assert.Equal(t, "god_key", col)
}

func TestEntity_Converters(t *testing.T) {
	upper := &Converter{
		ToStorage:   func(v any) (any, error) { return strings.ToUpper(v.(string)), nil },
		FromStorage: func(v any) (any, error) { return strings.ToLower(v.(string)), nil },
	}
	e := NewEntity("God", "gods").AddField(Field{Name: "name", Column: "god_name", Converter: upper})

	v, err := e.ToStorage("name", "zeus")
	require.NoError(t, err)
	assert.Equal(t, "ZEUS", v)

	v, err = e.FromStorage("god_name", "ZEUS")
	require.NoError(t, err)
	assert.Equal(t, "zeus", v)

	v, err = e.ToStorage("age", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	v, err = e.ToStorage("name", nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestBuiltinConverters(t *testing.T) {
	born := time.Date(1990, 1, 2, 3, 4, 5, 0, time.UTC)
	c, err := LookupConverter("unixtime")
	require.NoError(t, err)
	stored, err := c.ToStorage(born)
	require.NoError(t, err)
	assert.Equal(t, born.Unix(), stored)
	back, err := c.FromStorage(stored)
	require.NoError(t, err)
	assert.Equal(t, born, back)

	c, err = LookupConverter("json")
	require.NoError(t, err)
	stored, err = c.ToStorage(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, stored)
	back, err = c.FromStorage(stored)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, back)

	c, err = LookupConverter("boolint")
	require.NoError(t, err)
	stored, err = c.ToStorage(true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored)
	back, err = c.FromStorage(int64(0))
	require.NoError(t, err)
	assert.Equal(t, false, back)

	_, err = LookupConverter("rot13")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewEntity("God", "gods")))
	require.NoError(t, r.Register(NewEntity("Hero", "heroes")))
	assert.Error(t, r.Register(NewEntity("God", "gods")))
	assert.Error(t, r.Register(&Entity{}))

	e, ok := r.Lookup("God")
	require.True(t, ok)
	assert.Equal(t, "gods", e.Table)

	_, ok = r.Lookup("Titan")
	assert.False(t, ok)

	names := []string{}
	for _, e := range r.Entities() {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"God", "Hero"}, names)
}

func TestRegistry_ResolveFallsBack(t *testing.T) {
	var r *Registry
	e := r.Resolve("Titan")
	assert.Equal(t, "Titan", e.Table)
	assert.Equal(t, "id", e.ID)
	assert.False(t, e.Strict)
}

func TestFromDBML(t *testing.T) {
	project := dbml.NewProject("olympus")
	gods := dbml.NewTable("gods")
	gods.AddColumn(dbml.NewColumn("id", "bigint"))
	gods.AddColumn(dbml.NewColumn("name", "varchar"))
	project.AddTable(gods)

	logs := dbml.NewTable("logs")
	logs.AddColumn(dbml.NewColumn("message", "text"))
	project.AddTable(logs)

	r, err := FromDBML(project)
	require.NoError(t, err)

	e, ok := r.Lookup("gods")
	require.True(t, ok)
	assert.True(t, e.Strict)
	col, err := e.IDColumn()
	require.NoError(t, err)
	assert.Equal(t, "id", col)
	_, err = e.Column("power")
	assert.Error(t, err)

	e, ok = r.Lookup("logs")
	require.True(t, ok)
	_, err = e.IDColumn()
	assert.Error(t, err)

	_, err = FromDBML(nil)
	assert.Error(t, err)
}

const schemaYAML = `
entities:
  - name: God
    table: gods
    id: id
    strict: true
    fields:
      - name: id
      - name: name
        column: god_name
      - name: born
        converter: unixtime
`

func TestLoadYAML(t *testing.T) {
	r, err := LoadYAML(strings.NewReader(schemaYAML))
	require.NoError(t, err)

	e, ok := r.Lookup("God")
	require.True(t, ok)
	assert.Equal(t, "gods", e.Table)
	assert.Equal(t, "id", e.ID)

	col, err := e.Column("name")
	require.NoError(t, err)
	assert.Equal(t, "god_name", col)

	f, ok := e.Field("born")
	require.True(t, ok)
	assert.NotNil(t, f.Converter)
	assert.Len(t, e.Fields(), 3)
}

func TestLoadYAML_Errors(t *testing.T) {
	tests := map[string]string{
		"unknown key":       "entities:\n  - name: God\n    colour: red\n",
		"unknown converter": "entities:\n  - name: God\n    fields:\n      - name: a\n        converter: rot13\n",
		"unnamed entity":    "entities:\n  - table: gods\n",
		"duplicate entity":  "entities:\n  - name: God\n  - name: God\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadYAML(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadYAML_Empty(t *testing.T) {
	r, err := LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, r.Entities())
}

type god struct {
	ID        string    `db:"id,pk"`
	FirstName string    `db:"first_name"`
	Born      time.Time `db:"born" convert:"unixtime"`
	Ignored   string    `db:"-"`
	Untagged  string
	secret    string //nolint:unused // unexported fields are skipped
}

func TestFromStruct(t *testing.T) {
	e, err := FromStruct[god]("God", "gods")
	require.NoError(t, err)

	assert.Equal(t, "ID", e.ID)
	assert.True(t, e.Strict)

	col, err := e.Column("firstName")
	require.NoError(t, err)
	assert.Equal(t, "first_name", col)

	f, ok := e.Field("born")
	require.True(t, ok)
	assert.NotNil(t, f.Converter)
	assert.Equal(t, "time.Time", f.Type)

	assert.Len(t, e.Fields(), 3)

	_, err = FromStruct[int]("", "")
	assert.Error(t, err)
}

func TestFromStruct_DefaultsName(t *testing.T) {
	e, err := FromStruct[*god]("", "")
	require.NoError(t, err)
	assert.Equal(t, "god", e.Name)
	assert.Equal(t, "god", e.Table)
}

func TestEntity_EncodeDecode(t *testing.T) {
	e := NewEntity("God", "gods").
		AddField(Field{Name: "name", Column: "god_name"}).
		AddField(Field{Name: "active", Converter: BoolIntConverter()})

	stored, err := e.Encode(map[string]any{"name": "Zeus", "active": true, "god_name_alias": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"god_name": "Zeus", "active": int64(1), "god_name_alias": 1}, stored)

	stored, err = e.Encode(map[string]any{"god_name": "Hera"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"god_name": "Hera"}, stored)

	domain, err := e.Decode(map[string]any{"god_name": "Zeus", "active": int64(0)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"god_name": "Zeus", "active": false}, domain)

	e.Strict = true
	_, err = e.Encode(map[string]any{"power": 1})
	assert.Error(t, err)
}
