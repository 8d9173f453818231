package types

import (
	"fmt"
	"strings"
	"time"
)

// QuerySyntaxError reports a malformed method name or query text.
// Line and Col are zero for method names.
type QuerySyntaxError struct {
	Input      string
	Fragment   string
	Message    string
	Suggestion string
	Pos        int
	Line       int
	Col        int
}

func (e *QuerySyntaxError) Error() string {
	var msg string
	if e.Line > 0 {
		msg = fmt.Sprintf("syntax error at line %d col %d near %q: %s", e.Line, e.Col, e.Fragment, e.Message)
	} else {
		msg = fmt.Sprintf("syntax error in %q near %q: %s", e.Input, e.Fragment, e.Message)
	}
	if e.Suggestion != "" {
		msg += " (" + e.Suggestion + ")"
	}
	return msg
}

// UnboundParameterError reports parameters left without a value at execution.
type UnboundParameterError struct {
	Missing []string
}

func (e *UnboundParameterError) Error() string {
	return "unbound parameters: " + strings.Join(e.Missing, ", ")
}

// UnknownParameterError reports a bind of a name the query does not declare.
type UnknownParameterError struct {
	Name     string
	Declared []string
}

func (e *UnknownParameterError) Error() string {
	if len(e.Declared) == 0 {
		return fmt.Sprintf("unknown parameter %q: query declares no parameters", e.Name)
	}
	return fmt.Sprintf("unknown parameter %q: declared parameters are %s", e.Name, strings.Join(e.Declared, ", "))
}

// NonUniqueResultError reports a single-result execution that produced more than one row.
type NonUniqueResultError struct {
	Entity string
}

func (e *NonUniqueResultError) Error() string {
	return fmt.Sprintf("query on %s returned more than one result", e.Entity)
}

// IdentifierMissingError reports an entity without a usable identifier.
type IdentifierMissingError struct {
	Entity string
	Reason string
}

func (e *IdentifierMissingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("entity %s: identifier missing: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("entity %s: identifier missing", e.Entity)
}

// TimeoutError reports a blocking execution that exceeded its deadline.
// The underlying work may still be running.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation timed out after %s", e.Timeout)
}

// UnsupportedOperationError reports a verb the storage manager does not implement.
type UnsupportedOperationError struct {
	Operation string
	Reason    string
}

func (e *UnsupportedOperationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s is not supported: %s", e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s is not supported", e.Operation)
}

// UnknownFieldError reports a field that the entity metadata does not map.
type UnknownFieldError struct {
	Entity string
	Field  string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("field %q not found in entity %s", e.Field, e.Entity)
}
