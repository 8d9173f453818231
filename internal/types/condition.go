package types

import (
	"fmt"
	"strings"
)

// Marker names carried by synthesized combinator nodes.
const (
	NotMarker = "_NOT"
	AndMarker = "_AND"
	OrMarker  = "_OR"
)

// Condition is a node of the condition tree. Leaves carry a field name and
// a Value. Combinators carry a marker name and a Conditions value.
type Condition struct {
	Name     string
	Operator Operator
	Value    Value
}

// Leaf creates a leaf condition.
func Leaf(name string, op Operator, value Value) Condition {
	return Condition{Name: name, Operator: op, Value: value}
}

// Negate wraps c in a NOT node.
func Negate(c Condition) Condition {
	return Condition{Name: NotMarker, Operator: NOT, Value: Conditions{c}}
}

// Combine creates an AND or OR node over children, in order.
func Combine(op Operator, children ...Condition) Condition {
	name := AndMarker
	if op == OR {
		name = OrMarker
	}
	list := make(Conditions, len(children))
	copy(list, children)
	return Condition{Name: name, Operator: op, Value: list}
}

// Append returns a copy of the combinator c with child added at the end.
func (c Condition) Append(child Condition) Condition {
	children := c.Children()
	list := make(Conditions, 0, len(children)+1)
	list = append(list, children...)
	list = append(list, child)
	return Condition{Name: c.Name, Operator: c.Operator, Value: list}
}

// Children returns the child conditions of a combinator, or nil for a leaf.
func (c Condition) Children() []Condition {
	if list, ok := c.Value.(Conditions); ok {
		return list
	}
	return nil
}

// Field returns the field a condition targets. For a NOT node this is the
// field of the negated child, which keeps the original name recoverable.
func (c Condition) Field() string {
	if c.Operator == NOT {
		if children := c.Children(); len(children) == 1 {
			return children[0].Field()
		}
	}
	return c.Name
}

// Params returns the parameter names referenced by the tree in
// left-to-right order.
func (c Condition) Params() []string {
	return collectParams(Conditions{c}, make(map[string]bool), nil)
}

// Rewrite returns a copy of the tree with every leaf value passed through fn.
func (c Condition) Rewrite(fn ValueFunc) (Condition, error) {
	if c.Operator.IsCombinator() {
		children := c.Children()
		out := make(Conditions, len(children))
		for i := range children {
			rewritten, err := children[i].Rewrite(fn)
			if err != nil {
				return Condition{}, err
			}
			out[i] = rewritten
		}
		return Condition{Name: c.Name, Operator: c.Operator, Value: out}, nil
	}
	value, err := RewriteValue(c.Name, c.Value, fn)
	if err != nil {
		return Condition{}, err
	}
	return Condition{Name: c.Name, Operator: c.Operator, Value: value}, nil
}

// Validate checks the structural invariants of the tree.
func (c Condition) Validate() error {
	if !c.Operator.Valid() {
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
	switch c.Operator {
	case NOT:
		children, ok := c.Value.(Conditions)
		if !ok || len(children) != 1 {
			return fmt.Errorf("NOT requires exactly one child condition")
		}
		return children[0].Validate()
	case AND, OR:
		children, ok := c.Value.(Conditions)
		if !ok || len(children) < 2 {
			return fmt.Errorf("%s requires at least two child conditions", c.Operator)
		}
		for i := range children {
			if err := children[i].Validate(); err != nil {
				return err
			}
		}
		return nil
	}

	if c.Name == "" {
		return fmt.Errorf("%s condition requires a field name", c.Operator)
	}
	switch v := c.Value.(type) {
	case nil:
		return fmt.Errorf("condition on %q has no value", c.Name)
	case Conditions:
		return fmt.Errorf("leaf condition on %q cannot hold child conditions", c.Name)
	case Range:
		if c.Operator != BETWEEN {
			return fmt.Errorf("range value on %q requires BETWEEN", c.Name)
		}
		if v.Low == nil || v.High == nil {
			return fmt.Errorf("BETWEEN on %q requires two bounds", c.Name)
		}
	default:
		if c.Operator == BETWEEN {
			return fmt.Errorf("BETWEEN on %q requires a range value", c.Name)
		}
	}
	return nil
}

// String renders the condition in query text form.
func (c Condition) String() string {
	switch c.Operator {
	case NOT:
		children := c.Children()
		if len(children) != 1 {
			return "not ()"
		}
		child := children[0]
		if child.Operator == AND || child.Operator == OR {
			return "not (" + child.String() + ")"
		}
		return "not " + child.String()
	case AND, OR:
		children := c.Children()
		parts := make([]string, len(children))
		for i := range children {
			part := children[i].String()
			if children[i].Operator == AND || children[i].Operator == OR {
				part = "(" + part + ")"
			}
			parts[i] = part
		}
		return strings.Join(parts, " "+c.Operator.Symbol()+" ")
	default:
		return c.Name + " " + c.Operator.Symbol() + " " + valueString(c.Value)
	}
}
