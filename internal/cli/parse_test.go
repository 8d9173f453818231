package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestParseText(t *testing.T) {
	out, _, err := run(t, "parse", "select * from God where age > @min and realm = 'sky' order by age desc")
	require.NoError(t, err)

	assert.Contains(t, out, "SELECT God")
	assert.Contains(t, out, "where:  age > @min and realm = \"sky\"")
	assert.Contains(t, out, "sort:   age DESC")
	assert.Contains(t, out, "params: @min")
}

func TestParseJSON(t *testing.T) {
	out, _, err := run(t, "--format", "json", "parse", "delete from God where realm in ('sky', 'sea')")
	require.NoError(t, err)

	var resp struct {
		Status string  `json:"status"`
		Data   ASTView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "DELETE", resp.Data.Operation)
	assert.Equal(t, "God", resp.Data.Entity)
	assert.Empty(t, resp.Data.Params)
}

func TestParseSyntaxError(t *testing.T) {
	_, errOut, err := run(t, "parse", "select * form God")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "SYNTAX_ERROR")
}

func TestDerive(t *testing.T) {
	out, _, err := run(t, "--format", "json", "derive", "God", "findByAgeBetweenOrderByNameDesc")
	require.NoError(t, err)

	var resp struct {
		Data ASTView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "SELECT", resp.Data.Operation)
	assert.Equal(t, []string{"age_low", "age_high"}, resp.Data.Params)
	assert.Equal(t, []string{"name DESC"}, resp.Data.Sorts)
}

func TestDeriveError(t *testing.T) {
	_, _, err := run(t, "derive", "God", "findByAgeOrderBy")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
