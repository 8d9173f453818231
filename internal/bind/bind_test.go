package bind

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/repoql/internal/derive"
	"github.com/zoobzio/repoql/internal/textql"
	"github.com/zoobzio/repoql/internal/types"
)

func TestPositional(t *testing.T) {
	ast := derive.MustParse("findByAgeGreaterThanOrNameIn", "God")

	bound, err := Positional(ast, []any{30, []string{"Diana", "Zeus"}}, nil)
	require.NoError(t, err)

	children := bound.Where.Children()
	require.Len(t, children, 2)
	assert.Equal(t, types.Literal{Value: 30}, children[0].Value)
	assert.Equal(t, types.Literal{Value: []string{"Diana", "Zeus"}}, children[1].Value)
	assert.Empty(t, bound.Params)

	// the source AST still carries its parameters
	assert.Equal(t, types.Param{Name: "age"}, ast.Where.Children()[0].Value)
	assert.Equal(t, []string{"age", "name"}, ast.Params)
}

func TestPositional_TooFew(t *testing.T) {
	ast := derive.MustParse("findByAgeBetweenAndName", "God")

	_, err := Positional(ast, []any{1}, nil)
	var unbound *types.UnboundParameterError
	require.True(t, errors.As(err, &unbound))
	assert.Equal(t, []string{"age_high", "name"}, unbound.Missing)
}

func TestPositional_TooMany(t *testing.T) {
	ast := derive.MustParse("findByName", "God")
	_, err := Positional(ast, []any{"a", "b"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 arguments supplied for 1 parameters")
}

func TestPositional_Converts(t *testing.T) {
	ast := derive.MustParse("findByNameAndAge", "God")
	convert := func(field string, v any) (any, error) {
		if field == "name" {
			return strings.ToUpper(v.(string)), nil
		}
		return v, nil
	}

	bound, err := Positional(ast, []any{"diana", 30}, convert)
	require.NoError(t, err)

	children := bound.Where.Children()
	assert.Equal(t, types.Literal{Value: "DIANA", Stored: true}, children[0].Value)
	assert.Equal(t, types.Literal{Value: 30, Stored: true}, children[1].Value)
}

func TestPositional_ConvertError(t *testing.T) {
	ast := derive.MustParse("findByName", "God")
	boom := errors.New("boom")
	_, err := Positional(ast, []any{"x"}, func(string, any) (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestPositional_CallArgumentsAreNotConverted(t *testing.T) {
	ast := textql.MustParse(`select * from God where born > convert(@when, date)`)
	called := false
	convert := func(string, any) (any, error) {
		called = true
		return nil, nil
	}

	bound, err := Positional(ast, []any{"2020-01-01"}, convert)
	require.NoError(t, err)
	assert.False(t, called)

	call := bound.Where.Value.(types.Call)
	assert.Equal(t, types.Literal{Value: "2020-01-01"}, call.Args[0])
}

func TestPositional_Payload(t *testing.T) {
	ast := textql.MustParse(`insert God (name = @name, age = 3)`)
	bound, err := Positional(ast, []any{"Diana"}, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Assignments{
		{Field: "name", Value: types.Literal{Value: "Diana"}},
		{Field: "age", Value: types.Literal{Value: int64(3)}},
	}, bound.Payload)
}

func TestSet_Bind(t *testing.T) {
	set := NewSet([]string{"age", "name"})
	assert.Equal(t, []string{"age", "name"}, set.Remaining())

	require.NoError(t, set.Bind("age", 10))
	require.NoError(t, set.Bind("age", 20))
	assert.Equal(t, []string{"name"}, set.Remaining())

	v, ok := set.Lookup("age")
	require.True(t, ok)
	assert.Equal(t, 20, v)
}

func TestSet_BindUnknown(t *testing.T) {
	set := NewSet([]string{"age"})
	err := set.Bind("power", 1)

	var unknown *types.UnknownParameterError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "power", unknown.Name)
	assert.Equal(t, []string{"age"}, unknown.Declared)
}

func TestSet_ApplyIsTotal(t *testing.T) {
	ast := textql.MustParse(`select * from God where age = @age and name = @name and power > @power`)
	set := NewSet(ast.Params)
	require.NoError(t, set.Bind("name", "Diana"))

	bound, err := set.Apply(ast, nil)
	assert.Nil(t, bound)

	var unbound *types.UnboundParameterError
	require.True(t, errors.As(err, &unbound))
	assert.Equal(t, []string{"age", "power"}, unbound.Missing)
}

func TestSet_ApplyLastWriteWins(t *testing.T) {
	ast := textql.MustParse(`select * from God where age = @age`)
	set := NewSet(ast.Params)
	require.NoError(t, set.Bind("age", 1))
	require.NoError(t, set.Bind("age", 2))

	bound, err := set.Apply(ast, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Literal{Value: 2}, bound.Where.Value)
}

func TestSet_Clone(t *testing.T) {
	set := NewSet([]string{"age"})
	require.NoError(t, set.Bind("age", 1))

	clone := set.Clone()
	require.NoError(t, clone.Bind("age", 2))

	v, _ := set.Lookup("age")
	assert.Equal(t, 1, v)
	v, _ = clone.Lookup("age")
	assert.Equal(t, 2, v)
}

func TestSet_RoundTrip(t *testing.T) {
	// parse, bind by name, render, reparse: the result equals a direct
	// parse of the query with the literal values inlined
	ast := textql.MustParse(`select * from God where name = @name or age between @lo and @hi`)
	set := NewSet(ast.Params)
	require.NoError(t, set.Bind("name", "Diana"))
	require.NoError(t, set.Bind("lo", int64(1)))
	require.NoError(t, set.Bind("hi", int64(5)))

	bound, err := set.Apply(ast, nil)
	require.NoError(t, err)

	want := textql.MustParse(`select * from God where name = "Diana" or age between 1 and 5`)
	reparsed, err := textql.Parse(bound.String())
	require.NoError(t, err)
	assert.Equal(t, want, reparsed)
}
