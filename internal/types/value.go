package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Value is the payload of a condition leaf or a command.
// The set of implementations is closed.
type Value interface {
	isValue()
	String() string
}

// Literal is a concrete value. Stored marks a literal that has already been
// passed through the field's attribute converter.
type Literal struct {
	Value  any
	Stored bool
}

// Param is a named placeholder awaiting a binding.
type Param struct {
	Name string
}

// Range holds the two bounds of a BETWEEN comparison.
type Range struct {
	Low  Value
	High Value
}

// List holds the items of an IN comparison.
type List []Value

// Conditions is the ordered child list of a combinator.
type Conditions []Condition

// Document is a decoded JSON object or array literal.
type Document struct {
	Value any
}

// Call is an unevaluated function call literal, e.g. date("2020-01-01").
type Call struct {
	Name string
	Args []Value
}

// Assignment sets one field of an insert or update payload.
type Assignment struct {
	Field string
	Value Value
}

// Assignments is the ordered payload of `insert E (a = 1, b = 2)`.
type Assignments []Assignment

func (Literal) isValue()     {}
func (Param) isValue()       {}
func (Range) isValue()       {}
func (List) isValue()        {}
func (Conditions) isValue()  {}
func (Document) isValue()    {}
func (Call) isValue()        {}
func (Assignments) isValue() {}

func (l Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case json.Number:
		return v.String()
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return strconv.Quote(fmt.Sprint(v))
		}
		return string(data)
	}
}

func (p Param) String() string { return "@" + p.Name }

func (r Range) String() string {
	return valueString(r.Low) + " and " + valueString(r.High)
}

func (l List) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = valueString(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (c Conditions) String() string {
	parts := make([]string, len(c))
	for i := range c {
		parts[i] = c[i].String()
	}
	return "[" + strings.Join(parts, "; ") + "]"
}

func (d Document) String() string {
	data, err := json.Marshal(d.Value)
	if err != nil {
		return "null"
	}
	return string(data)
}

func (c Call) String() string {
	parts := make([]string, len(c.Args))
	for i, v := range c.Args {
		parts[i] = valueString(v)
	}
	return c.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (a Assignments) String() string {
	parts := make([]string, len(a))
	for i, as := range a {
		parts[i] = as.Field + " = " + valueString(as.Value)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func valueString(v Value) string {
	if v == nil {
		return "null"
	}
	return v.String()
}

// ValueFunc rewrites a single value. field is the condition or assignment
// field the value belongs to and is empty for function arguments.
type ValueFunc func(field string, v Value) (Value, error)

// RewriteValue rebuilds v bottom-up, passing every Literal, Param, Document
// and Call through fn. Call arguments are rewritten before the call itself.
func RewriteValue(field string, v Value, fn ValueFunc) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case Literal, Param, Document:
		return fn(field, val)
	case Call:
		args := make([]Value, len(val.Args))
		for i, arg := range val.Args {
			out, err := RewriteValue("", arg, fn)
			if err != nil {
				return nil, err
			}
			args[i] = out
		}
		return fn(field, Call{Name: val.Name, Args: args})
	case Range:
		low, err := RewriteValue(field, val.Low, fn)
		if err != nil {
			return nil, err
		}
		high, err := RewriteValue(field, val.High, fn)
		if err != nil {
			return nil, err
		}
		return Range{Low: low, High: high}, nil
	case List:
		out := make(List, len(val))
		for i, item := range val {
			rewritten, err := RewriteValue(field, item, fn)
			if err != nil {
				return nil, err
			}
			out[i] = rewritten
		}
		return out, nil
	case Conditions:
		out := make(Conditions, len(val))
		for i := range val {
			rewritten, err := val[i].Rewrite(fn)
			if err != nil {
				return nil, err
			}
			out[i] = rewritten
		}
		return out, nil
	case Assignments:
		out := make(Assignments, len(val))
		for i, as := range val {
			rewritten, err := RewriteValue(as.Field, as.Value, fn)
			if err != nil {
				return nil, err
			}
			out[i] = Assignment{Field: as.Field, Value: rewritten}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown value type %T", v)
	}
}

// collectParams appends parameter names found in v to names, skipping
// names already present in seen.
func collectParams(v Value, seen map[string]bool, names []string) []string {
	switch val := v.(type) {
	case Param:
		if !seen[val.Name] {
			seen[val.Name] = true
			names = append(names, val.Name)
		}
	case Range:
		names = collectParams(val.Low, seen, names)
		names = collectParams(val.High, seen, names)
	case List:
		for _, item := range val {
			names = collectParams(item, seen, names)
		}
	case Call:
		for _, arg := range val.Args {
			names = collectParams(arg, seen, names)
		}
	case Conditions:
		for i := range val {
			names = collectParams(val[i].Value, seen, names)
		}
	case Assignments:
		for _, as := range val {
			names = collectParams(as.Value, seen, names)
		}
	}
	return names
}

// ParamNames returns the parameter names referenced by v in left-to-right
// order, without duplicates.
func ParamNames(v Value) []string {
	return collectParams(v, make(map[string]bool), nil)
}
