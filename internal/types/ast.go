package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Operation represents the kind of query or command.
type Operation string

const (
	OpSelect Operation = "SELECT"
	OpDelete Operation = "DELETE"
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpCount  Operation = "COUNT"
	OpExists Operation = "EXISTS"
)

// Direction represents sort direction.
type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

// Sort is one entry of an ordering; earlier entries take precedence.
type Sort struct {
	Name      string
	Direction Direction
}

// AST is the parsed form of a derived method or a text query.
// An AST is never mutated after construction; the With* methods
// return modified copies.
type AST struct {
	Where     *Condition
	Payload   Value
	Operation Operation
	Entity    string
	Fields    []string
	Sorts     []Sort
	Params    []string
	Limit     int64
	Skip      int64
}

func (ast *AST) clone() *AST {
	out := *ast
	out.Fields = append([]string(nil), ast.Fields...)
	out.Sorts = append([]Sort(nil), ast.Sorts...)
	out.Params = append([]string(nil), ast.Params...)
	return &out
}

// WithSorts returns a copy with sorts appended after the existing ones.
func (ast *AST) WithSorts(sorts ...Sort) *AST {
	out := ast.clone()
	out.Sorts = append(out.Sorts, sorts...)
	return out
}

// WithPagination returns a copy with skip and limit replaced.
func (ast *AST) WithPagination(skip, limit int64) *AST {
	out := ast.clone()
	out.Skip = skip
	out.Limit = limit
	return out
}

// WithWhere returns a copy with the condition replaced.
func (ast *AST) WithWhere(where *Condition) *AST {
	out := ast.clone()
	out.Where = where
	return out
}

// WithPayload returns a copy with the payload replaced.
func (ast *AST) WithPayload(payload Value) *AST {
	out := ast.clone()
	out.Payload = payload
	return out
}

// CollectParams returns the parameter names referenced by the condition and
// payload in first-appearance order.
func (ast *AST) CollectParams() []string {
	seen := make(map[string]bool)
	var names []string
	if ast.Where != nil {
		names = collectParams(Conditions{*ast.Where}, seen, names)
	}
	if ast.Payload != nil {
		names = collectParams(ast.Payload, seen, names)
	}
	return names
}

// Validate performs basic validation on the AST.
func (ast *AST) Validate() error {
	if ast.Entity == "" {
		return fmt.Errorf("entity name is required")
	}
	if ast.Limit < 0 || ast.Skip < 0 {
		return fmt.Errorf("limit and skip cannot be negative")
	}
	if ast.Where != nil {
		if err := ast.Where.Validate(); err != nil {
			return err
		}
	}
	for _, s := range ast.Sorts {
		if s.Name == "" {
			return fmt.Errorf("sort requires a field name")
		}
		if s.Direction != ASC && s.Direction != DESC {
			return fmt.Errorf("invalid sort direction %q", s.Direction)
		}
	}

	switch ast.Operation {
	case OpSelect, OpCount, OpExists:
		if ast.Payload != nil {
			return fmt.Errorf("%s cannot carry a payload", ast.Operation)
		}
	case OpDelete:
		if len(ast.Sorts) > 0 || len(ast.Fields) > 0 {
			return fmt.Errorf("DELETE cannot have sorts or a projection")
		}
		if ast.Payload != nil {
			return fmt.Errorf("DELETE cannot carry a payload")
		}
	case OpInsert, OpUpdate:
		switch ast.Payload.(type) {
		case Assignments, Document:
		case nil:
			return fmt.Errorf("%s requires a payload", ast.Operation)
		default:
			return fmt.Errorf("%s payload must be assignments or a document, got %T", ast.Operation, ast.Payload)
		}
		if ast.Where != nil || len(ast.Sorts) > 0 {
			return fmt.Errorf("%s cannot have a condition or sorts", ast.Operation)
		}
	default:
		return fmt.Errorf("unsupported operation: %s", ast.Operation)
	}
	return nil
}

// String renders the AST in query text form. Count and exists render as
// the select they are executed with.
func (ast *AST) String() string {
	var sb strings.Builder
	switch ast.Operation {
	case OpInsert, OpUpdate:
		sb.WriteString(strings.ToLower(string(ast.Operation)))
		sb.WriteString(" ")
		sb.WriteString(ast.Entity)
		sb.WriteString(" ")
		sb.WriteString(valueString(ast.Payload))
		return sb.String()
	case OpDelete:
		sb.WriteString("delete from ")
		sb.WriteString(ast.Entity)
	default:
		sb.WriteString("select ")
		if len(ast.Fields) == 0 {
			sb.WriteString("*")
		} else {
			sb.WriteString(strings.Join(ast.Fields, ", "))
		}
		sb.WriteString(" from ")
		sb.WriteString(ast.Entity)
	}

	if ast.Where != nil {
		sb.WriteString(" where ")
		sb.WriteString(ast.Where.String())
	}
	if len(ast.Sorts) > 0 {
		parts := make([]string, len(ast.Sorts))
		for i, s := range ast.Sorts {
			parts[i] = s.Name + " " + strings.ToLower(string(s.Direction))
		}
		sb.WriteString(" order by ")
		sb.WriteString(strings.Join(parts, ", "))
	}
	if ast.Skip > 0 {
		sb.WriteString(" skip ")
		sb.WriteString(strconv.FormatInt(ast.Skip, 10))
	}
	if ast.Limit > 0 {
		sb.WriteString(" limit ")
		sb.WriteString(strconv.FormatInt(ast.Limit, 10))
	}
	return sb.String()
}
