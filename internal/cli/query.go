package cli

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zoobzio/repoql"
)

// QueryOptions holds the flags of the query command.
type QueryOptions struct {
	Params []string
	Skip   int64
	Limit  int64
}

// QueryResult is the output of the query command.
type QueryResult struct {
	Operation string          `json:"operation"`
	Records   []repoql.Record `json:"records,omitempty"`
	Affected  int64           `json:"affected"`
}

func (r QueryResult) String() string {
	if r.Operation != string(repoql.OpSelect) {
		return fmt.Sprintf("%s: %d affected", r.Operation, r.Affected)
	}
	if len(r.Records) == 0 {
		return "(no records)"
	}

	var columns []string
	for _, rec := range r.Records {
		for col := range rec {
			if !slices.Contains(columns, col) {
				columns = append(columns, col)
			}
		}
	}
	slices.Sort(columns)

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))
	for _, rec := range r.Records {
		cells := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := rec[col]; ok && v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
	fmt.Fprintf(&sb, "(%d records)", len(r.Records))
	return sb.String()
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{}
	cmd := &cobra.Command{
		Use:   "query <query>",
		Short: "Run a text query against the configured store",
		Long: `Run a text query against the configured database.

Parameters are bound with --param name=value. Values are read as YAML
scalars or flow sequences, so 30 is a number, true a boolean and
[sky, sea] a list.`,
		Example: `  repoql query -c repoql.yaml "select * from God where age > @min order by age" -p min=100
  repoql query -c repoql.yaml "delete from God where realm = @realm" -p realm=tartarus`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), rootOpts, opts, args[0], cmd)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "bind a parameter (name=value), repeatable")
	cmd.Flags().Int64Var(&opts.Skip, "skip", 0, "records to skip")
	cmd.Flags().Int64Var(&opts.Limit, "limit", 0, "maximum records to return")
	return cmd
}

func runQuery(ctx context.Context, rootOpts *RootOptions, opts *QueryOptions, text string, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd)

	params, err := parseParams(opts.Params)
	if err != nil {
		return f.Fail(ExitCommandError, "INVALID_PARAM", err)
	}
	cfg, err := loadConfig(rootOpts)
	if err != nil {
		return f.Fail(ExitCommandError, "CONFIG_ERROR", err)
	}
	a, err := openApp(cfg, f)
	if err != nil {
		return f.Fail(ExitCommandError, "CONFIG_ERROR", err)
	}
	defer a.Close()

	stmt, err := a.engine.Prepare(text)
	if err != nil {
		return f.Fail(ExitCommandError, "SYNTAX_ERROR", err)
	}
	if err := stmt.BindAll(params); err != nil {
		return f.Fail(ExitCommandError, "BIND_ERROR", err)
	}
	if opts.Limit > 0 || opts.Skip > 0 {
		limit := opts.Limit
		if limit == 0 {
			limit = math.MaxInt64
		}
		p, err := repoql.TryPaginate(opts.Skip, limit)
		if err != nil {
			return f.Fail(ExitCommandError, "INVALID_PAGE", err)
		}
		stmt = stmt.WithPagination(p)
	}

	result, err := stmt.Execute(ctx)
	if err != nil {
		return f.Fail(ExitFailure, "QUERY_ERROR", err)
	}
	out := QueryResult{Operation: string(result.Operation), Affected: result.Affected}
	switch result.Operation {
	case repoql.OpSelect:
		for rec, err := range result.Records.All(ctx) {
			if err != nil {
				return f.Fail(ExitFailure, "QUERY_ERROR", err)
			}
			out.Records = append(out.Records, rec)
		}
		out.Affected = int64(len(out.Records))
	case repoql.OpInsert:
		out.Records = result.Inserted
	}
	return f.Success(out)
}

// parseParams reads name=value flags. Values are YAML so numbers, booleans
// and lists keep their type.
func parseParams(flags []string) (map[string]any, error) {
	params := make(map[string]any, len(flags))
	for _, flag := range flags {
		name, raw, ok := strings.Cut(flag, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q: want name=value", flag)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("invalid value for parameter %s: %w", name, err)
		}
		params[name] = v
	}
	return params, nil
}
