// Package bind substitutes argument values for the named parameters of a
// query AST, either by position or by name.
package bind

import (
	"fmt"
	"slices"

	"github.com/zoobzio/repoql/internal/types"
)

// ConvertFunc maps a bound value to its storage form for the field it is
// compared against or assigned to.
type ConvertFunc func(field string, v any) (any, error)

// Positional binds args to ast.Params in declaration order. It returns a
// new AST; ast is left untouched.
func Positional(ast *types.AST, args []any, convert ConvertFunc) (*types.AST, error) {
	if len(args) < len(ast.Params) {
		return nil, &types.UnboundParameterError{Missing: append([]string(nil), ast.Params[len(args):]...)}
	}
	if len(args) > len(ast.Params) {
		return nil, fmt.Errorf("%d arguments supplied for %d parameters", len(args), len(ast.Params))
	}

	values := make(map[string]any, len(args))
	for i, name := range ast.Params {
		values[name] = args[i]
	}
	return substitute(ast, values, convert)
}

// Set collects named bindings for one execution.
type Set struct {
	declared []string
	values   map[string]any
}

// NewSet creates an empty set for the declared parameter names.
func NewSet(declared []string) *Set {
	return &Set{
		declared: append([]string(nil), declared...),
		values:   make(map[string]any, len(declared)),
	}
}

// Bind records a value. Binding the same name again replaces the value.
func (s *Set) Bind(name string, v any) error {
	if !slices.Contains(s.declared, name) {
		return &types.UnknownParameterError{Name: name, Declared: append([]string(nil), s.declared...)}
	}
	s.values[name] = v
	return nil
}

// Lookup returns the value bound to name.
func (s *Set) Lookup(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Declared returns the parameter names in declaration order.
func (s *Set) Declared() []string {
	return append([]string(nil), s.declared...)
}

// Remaining returns the declared names that have no value yet.
func (s *Set) Remaining() []string {
	var out []string
	for _, name := range s.declared {
		if _, ok := s.values[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Apply substitutes every binding into ast. It fails with an
// *types.UnboundParameterError naming every missing parameter and makes no
// partial substitution.
func (s *Set) Apply(ast *types.AST, convert ConvertFunc) (*types.AST, error) {
	if missing := s.Remaining(); len(missing) > 0 {
		return nil, &types.UnboundParameterError{Missing: missing}
	}
	return substitute(ast, s.values, convert)
}

// Clone returns an independent copy of the set.
func (s *Set) Clone() *Set {
	out := NewSet(s.declared)
	for k, v := range s.values {
		out.values[k] = v
	}
	return out
}

func substitute(ast *types.AST, values map[string]any, convert ConvertFunc) (*types.AST, error) {
	fn := func(field string, v types.Value) (types.Value, error) {
		param, ok := v.(types.Param)
		if !ok {
			return v, nil
		}
		raw, ok := values[param.Name]
		if !ok {
			return nil, &types.UnboundParameterError{Missing: []string{param.Name}}
		}
		if convert == nil || field == "" {
			return types.Literal{Value: raw}, nil
		}
		stored, err := convert(field, raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", param.Name, err)
		}
		return types.Literal{Value: stored, Stored: true}, nil
	}

	out := ast
	if ast.Where != nil {
		where, err := ast.Where.Rewrite(fn)
		if err != nil {
			return nil, err
		}
		out = out.WithWhere(&where)
	}
	if ast.Payload != nil {
		payload, err := types.RewriteValue("", ast.Payload, fn)
		if err != nil {
			return nil, err
		}
		out = out.WithPayload(payload)
	}
	if out == ast {
		out = ast.WithSorts()
	}
	out.Params = nil
	return out, nil
}
