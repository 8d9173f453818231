package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zoobzio/repoql"
)

// ASTView is the printable form of a parsed query.
type ASTView struct {
	Operation string   `json:"operation"`
	Entity    string   `json:"entity"`
	Fields    []string `json:"fields,omitempty"`
	Where     string   `json:"where,omitempty"`
	Sorts     []string `json:"sorts,omitempty"`
	Params    []string `json:"params"`
	Skip      int64    `json:"skip,omitempty"`
	Limit     int64    `json:"limit,omitempty"`
	Canonical string   `json:"canonical"`
}

func newASTView(ast *repoql.AST) ASTView {
	view := ASTView{
		Operation: string(ast.Operation),
		Entity:    ast.Entity,
		Fields:    ast.Fields,
		Params:    append([]string{}, ast.Params...),
		Skip:      ast.Skip,
		Limit:     ast.Limit,
		Canonical: ast.String(),
	}
	if ast.Where != nil {
		view.Where = ast.Where.String()
	}
	for _, s := range ast.Sorts {
		view.Sorts = append(view.Sorts, s.Name+" "+string(s.Direction))
	}
	return view
}

func (v ASTView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", v.Operation, v.Entity)
	if v.Where != "" {
		fmt.Fprintf(&sb, "  where:  %s\n", v.Where)
	}
	if len(v.Sorts) > 0 {
		fmt.Fprintf(&sb, "  sort:   %s\n", strings.Join(v.Sorts, ", "))
	}
	if len(v.Params) > 0 {
		fmt.Fprintf(&sb, "  params: @%s\n", strings.Join(v.Params, ", @"))
	}
	fmt.Fprintf(&sb, "  query:  %s", v.Canonical)
	return sb.String()
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <query>",
		Short: "Parse a text query and print its structure",
		Example: `  repoql parse "select * from God where age > @min order by age desc"
  repoql parse --format json "delete from God where realm in ('sky', 'sea')"`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			ast, err := repoql.ParseQuery(args[0])
			if err != nil {
				return f.Fail(ExitCommandError, "SYNTAX_ERROR", err)
			}
			return f.Success(newASTView(ast))
		},
	}
}

// NewDeriveCommand creates the derive command.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "derive <entity> <method>",
		Short: "Parse a repository method name and print the derived query",
		Example: `  repoql derive God findByAgeGreaterThanOrderByNameDesc
  repoql derive God countByRealmIn`,
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			ast, err := repoql.ParseMethod(args[1], args[0])
			if err != nil {
				return f.Fail(ExitCommandError, "SYNTAX_ERROR", err)
			}
			return f.Success(newASTView(ast))
		},
	}
}
