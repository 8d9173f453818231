package repoql

import (
	"fmt"

	"github.com/zoobzio/repoql/internal/types"
)

// TryC creates a leaf condition, returning an error if invalid.
func TryC(field string, op Operator, v Value) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("condition field cannot be empty")
	}
	if op.IsCombinator() || !op.Valid() {
		return Condition{}, fmt.Errorf("invalid comparator %q", op)
	}
	if v == nil {
		return Condition{}, fmt.Errorf("condition on %s has no value", field)
	}
	c := types.Leaf(field, op, v)
	if err := c.Validate(); err != nil {
		return Condition{}, err
	}
	return c, nil
}

// C creates a leaf condition.
func C(field string, op Operator, v Value) Condition {
	c, err := TryC(field, op, v)
	if err != nil {
		panic(err)
	}
	return c
}

// Between creates a BETWEEN condition over two bounds.
func Between(field string, low, high Value) Condition {
	return C(field, BETWEEN, Range{Low: low, High: high})
}

// In creates an IN condition over items.
func In(field string, items ...Value) Condition {
	return C(field, IN, ValueList(items))
}

// Not negates c.
func Not(c Condition) Condition {
	return types.Negate(c)
}

// TryAnd creates an AND node, returning an error if invalid. A single
// condition is returned as is.
func TryAnd(conditions ...Condition) (Condition, error) {
	if len(conditions) == 0 {
		return Condition{}, fmt.Errorf("AND requires at least one condition")
	}
	if len(conditions) == 1 {
		return conditions[0], nil
	}
	return types.Combine(types.AND, conditions...), nil
}

// And creates an AND node.
func And(conditions ...Condition) Condition {
	c, err := TryAnd(conditions...)
	if err != nil {
		panic(err)
	}
	return c
}

// TryOr creates an OR node, returning an error if invalid.
func TryOr(conditions ...Condition) (Condition, error) {
	if len(conditions) == 0 {
		return Condition{}, fmt.Errorf("OR requires at least one condition")
	}
	if len(conditions) == 1 {
		return conditions[0], nil
	}
	return types.Combine(types.OR, conditions...), nil
}

// Or creates an OR node.
func Or(conditions ...Condition) Condition {
	c, err := TryOr(conditions...)
	if err != nil {
		panic(err)
	}
	return c
}

// Asc orders by field ascending.
func Asc(field string) Sort { return Sort{Name: field, Direction: ASC} }

// Desc orders by field descending.
func Desc(field string) Sort { return Sort{Name: field, Direction: DESC} }
