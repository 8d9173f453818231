package repoql

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/zoobzio/repoql/internal/bind"
	"github.com/zoobzio/repoql/internal/types"
	"github.com/zoobzio/repoql/metadata"
)

// resolver turns a bound AST into storage commands for one entity: field
// names become columns, literals take their storage form and calls are
// evaluated.
type resolver struct {
	entity    *metadata.Entity
	functions map[string]Function
}

func (e *Engine) resolver(entity *metadata.Entity) *resolver {
	return &resolver{entity: entity, functions: e.functions}
}

// storageConverter is the binder's attribute converter for entity. Slices
// are converted element by element so IN lists keep their shape.
func storageConverter(entity *metadata.Entity) bind.ConvertFunc {
	return func(field string, v any) (any, error) {
		if items, ok := sliceItems(v); ok {
			out := make([]any, len(items))
			for i, item := range items {
				stored, err := entity.ToStorage(field, item)
				if err != nil {
					return nil, err
				}
				out[i] = stored
			}
			return out, nil
		}
		return entity.ToStorage(field, v)
	}
}

func (r *resolver) selectQuery(ast *types.AST) (SelectQuery, error) {
	q := SelectQuery{
		Entity: r.entity.Table,
		Limit:  ast.Limit,
		Skip:   ast.Skip,
	}
	for _, f := range ast.Fields {
		column, err := r.entity.Column(f)
		if err != nil {
			return SelectQuery{}, err
		}
		q.Fields = append(q.Fields, column)
	}
	where, err := r.where(ast.Where)
	if err != nil {
		return SelectQuery{}, err
	}
	q.Where = where
	for _, s := range ast.Sorts {
		column, err := r.entity.Column(s.Name)
		if err != nil {
			return SelectQuery{}, err
		}
		q.Sorts = append(q.Sorts, types.Sort{Name: column, Direction: s.Direction})
	}
	return q, nil
}

func (r *resolver) deleteQuery(ast *types.AST) (DeleteQuery, error) {
	where, err := r.where(ast.Where)
	if err != nil {
		return DeleteQuery{}, err
	}
	return DeleteQuery{Entity: r.entity.Table, Where: where}, nil
}

func (r *resolver) where(c *types.Condition) (*types.Condition, error) {
	if c == nil {
		return nil, nil
	}
	out, err := r.condition(*c)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *resolver) condition(c types.Condition) (types.Condition, error) {
	if c.Operator.IsCombinator() {
		children := c.Children()
		out := make(types.Conditions, len(children))
		for i := range children {
			child, err := r.condition(children[i])
			if err != nil {
				return types.Condition{}, err
			}
			out[i] = child
		}
		return types.Condition{Name: c.Name, Operator: c.Operator, Value: out}, nil
	}

	column, err := r.entity.Column(c.Name)
	if err != nil {
		return types.Condition{}, err
	}
	value, err := types.RewriteValue(c.Name, c.Value, r.value)
	if err != nil {
		return types.Condition{}, err
	}
	if c.Operator == types.IN {
		value = expandList(value)
	}
	return types.Leaf(column, c.Operator, value), nil
}

// value brings one value to its storage form. Call arguments (field "")
// are evaluated but never converted.
func (r *resolver) value(field string, v types.Value) (types.Value, error) {
	switch val := v.(type) {
	case types.Param:
		return nil, &types.UnboundParameterError{Missing: []string{val.Name}}
	case types.Literal:
		if val.Stored || field == "" {
			return val, nil
		}
		return r.stored(field, val.Value)
	case types.Document:
		plain := plainJSON(val.Value)
		if field == "" {
			return types.Literal{Value: plain}, nil
		}
		return r.stored(field, plain)
	case types.Call:
		result, err := r.call(val)
		if err != nil {
			return nil, err
		}
		if field == "" {
			return types.Literal{Value: result}, nil
		}
		return r.stored(field, result)
	}
	return v, nil
}

func (r *resolver) stored(field string, v any) (types.Value, error) {
	out, err := storageConverter(r.entity)(field, v)
	if err != nil {
		return nil, err
	}
	return types.Literal{Value: out, Stored: true}, nil
}

func (r *resolver) call(c types.Call) (any, error) {
	fn, ok := r.functions[c.Name]
	if !ok {
		return nil, &types.UnsupportedOperationError{Operation: "function " + c.Name, Reason: "no such function"}
	}
	args := make([]any, len(c.Args))
	for i, arg := range c.Args {
		lit, ok := arg.(types.Literal)
		if !ok {
			return nil, fmt.Errorf("function %s: argument %d is not a value", c.Name, i+1)
		}
		args[i] = lit.Value
	}
	out, err := fn(args)
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", c.Name, err)
	}
	return out, nil
}

// records turns an insert or update payload into storage records.
func (r *resolver) records(ast *types.AST) ([]Record, error) {
	switch payload := ast.Payload.(type) {
	case types.Assignments:
		rec := make(Record, len(payload))
		for _, as := range payload {
			column, err := r.entity.StorageKey(as.Field)
			if err != nil {
				return nil, err
			}
			value, err := types.RewriteValue(as.Field, as.Value, r.value)
			if err != nil {
				return nil, err
			}
			rec[column] = literalValue(value)
		}
		return []Record{rec}, nil

	case types.Document:
		var objects []map[string]any
		switch doc := plainJSON(payload.Value).(type) {
		case map[string]any:
			objects = append(objects, doc)
		case []any:
			for i, item := range doc {
				obj, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("payload element %d is not an object", i)
				}
				objects = append(objects, obj)
			}
		default:
			return nil, fmt.Errorf("payload must be an object or an array of objects")
		}
		out := make([]Record, len(objects))
		for i, obj := range objects {
			stored, err := r.entity.Encode(obj)
			if err != nil {
				return nil, err
			}
			out[i] = Record(stored)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s requires a payload", ast.Operation)
}

// expandList turns a slice-valued literal into a List of literals.
func expandList(v types.Value) types.Value {
	switch val := v.(type) {
	case types.Literal:
		items, ok := sliceItems(val.Value)
		if !ok {
			return v
		}
		out := make(types.List, len(items))
		for i, item := range items {
			out[i] = types.Literal{Value: item, Stored: val.Stored}
		}
		return out
	}
	return v
}

func literalValue(v types.Value) any {
	switch val := v.(type) {
	case types.Literal:
		return val.Value
	case types.List:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = literalValue(item)
		}
		return out
	}
	return nil
}

// sliceItems reports the elements of a slice or array value. Byte slices
// are scalar values.
func sliceItems(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if items, ok := v.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// plainJSON replaces json.Number with int64 or float64 throughout v.
func plainJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n
		}
		f, _ := val.Float64()
		return f
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = plainJSON(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plainJSON(item)
		}
		return out
	}
	return v
}
