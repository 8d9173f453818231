package repoql

import (
	"fmt"
	"strings"
)

// TryP creates a named parameter reference, returning an error if the name
// could not be read back by the text parser.
func TryP(name string) (Param, error) {
	if !isValidParamName(name) {
		return Param{}, fmt.Errorf("invalid parameter name '%s': must be alphanumeric with underscores, starting with letter", name)
	}
	return Param{Name: name}, nil
}

// P creates a named parameter reference, bound later with Statement.Bind.
func P(name string) Param {
	p, err := TryP(name)
	if err != nil {
		panic(err)
	}
	return p
}

// V wraps a concrete value as a literal.
func V(v any) Literal {
	return Literal{Value: v}
}

// Only allows alphanumeric characters and underscores, must start with letter.
func isValidParamName(name string) bool {
	if name == "" {
		return false
	}

	first := name[0]
	if !((first >= 'a' && first <= 'z') ||
		(first >= 'A' && first <= 'Z')) {
		return false
	}

	for i := 1; i < len(name); i++ {
		ch := name[i]
		if !((ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '_') {
			return false
		}
	}

	// Keywords would lex as keywords after the @.
	switch strings.ToLower(name) {
	case "select", "from", "where", "delete", "insert", "update",
		"order", "by", "asc", "desc", "between", "and", "or", "not",
		"in", "like", "true", "false", "null":
		return false
	}
	return true
}
