package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Operator Tests
// =============================================================================

func TestOperator_IsCombinator(t *testing.T) {
	for _, op := range []Operator{NOT, AND, OR} {
		if !op.IsCombinator() {
			t.Errorf("%s.IsCombinator() = false, want true", op)
		}
	}
	for _, op := range []Operator{EQ, GT, GE, LT, LE, LIKE, IN, BETWEEN} {
		if op.IsCombinator() {
			t.Errorf("%s.IsCombinator() = true, want false", op)
		}
	}
}

func TestOperator_Valid(t *testing.T) {
	if !EQ.Valid() {
		t.Error("EQ should be valid")
	}
	if Operator("NEAR").Valid() {
		t.Error("NEAR should not be valid")
	}
}

// =============================================================================
// Condition Tests
// =============================================================================

func TestNegate_KeepsFieldRecoverable(t *testing.T) {
	c := Negate(Leaf("age", GT, Param{Name: "age"}))

	if c.Name != NotMarker {
		t.Errorf("Name = %q, want %q", c.Name, NotMarker)
	}
	if c.Operator != NOT {
		t.Errorf("Operator = %q, want NOT", c.Operator)
	}
	if got := c.Field(); got != "age" {
		t.Errorf("Field() = %q, want %q", got, "age")
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestAppend_DoesNotMutateReceiver(t *testing.T) {
	a := Leaf("a", EQ, Param{Name: "a"})
	b := Leaf("b", EQ, Param{Name: "b"})
	c := Leaf("c", EQ, Param{Name: "c"})

	pair := Combine(AND, a, b)
	triple := pair.Append(c)

	if len(pair.Children()) != 2 {
		t.Errorf("receiver has %d children, want 2", len(pair.Children()))
	}
	if len(triple.Children()) != 3 {
		t.Errorf("result has %d children, want 3", len(triple.Children()))
	}
	if triple.Name != AndMarker {
		t.Errorf("Name = %q, want %q", triple.Name, AndMarker)
	}
}

func TestCondition_Validate(t *testing.T) {
	leaf := Leaf("a", EQ, Literal{Value: 1})

	tests := []struct {
		name    string
		cond    Condition
		wantErr bool
	}{
		{"leaf", leaf, false},
		{"empty leaf name", Leaf("", EQ, Literal{Value: 1}), true},
		{"nil value", Leaf("a", EQ, nil), true},
		{"between with range", Leaf("a", BETWEEN, Range{Low: Literal{Value: 1}, High: Literal{Value: 2}}), false},
		{"between without range", Leaf("a", BETWEEN, Literal{Value: 1}), true},
		{"range without between", Leaf("a", EQ, Range{Low: Literal{Value: 1}, High: Literal{Value: 2}}), true},
		{"and with one child", Condition{Name: AndMarker, Operator: AND, Value: Conditions{leaf}}, true},
		{"and with two children", Combine(AND, leaf, leaf), false},
		{"not with two children", Condition{Name: NotMarker, Operator: NOT, Value: Conditions{leaf, leaf}}, true},
		{"leaf holding conditions", Leaf("a", EQ, Conditions{leaf}), true},
		{"unknown operator", Leaf("a", Operator("NEAR"), Literal{Value: 1}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cond.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCondition_Params(t *testing.T) {
	c := Combine(OR,
		Leaf("age", BETWEEN, Range{Low: Param{Name: "age_low"}, High: Param{Name: "age_high"}}),
		Negate(Leaf("name", IN, List{Param{Name: "n1"}, Literal{Value: "x"}, Param{Name: "age_low"}})),
	)

	got := c.Params()
	want := []string{"age_low", "age_high", "n1"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Params() = %v, want %v", got, want)
	}
}

func TestCondition_Rewrite(t *testing.T) {
	c := Combine(AND,
		Leaf("age", EQ, Param{Name: "age"}),
		Leaf("born", GT, Call{Name: "date", Args: []Value{Param{Name: "day"}}}),
	)

	var fields []string
	out, err := c.Rewrite(func(field string, v Value) (Value, error) {
		fields = append(fields, field)
		if p, ok := v.(Param); ok {
			return Literal{Value: p.Name + "!"}, nil
		}
		return v, nil
	})
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}

	// age param, date arg (no field), date call (born).
	if got := strings.Join(fields, ","); got != "age,,born" {
		t.Errorf("visited fields = %q, want %q", got, "age,,born")
	}
	if got := out.Children()[0].Value; got != (Literal{Value: "age!"}) {
		t.Errorf("rewritten value = %#v", got)
	}
	if _, ok := c.Children()[0].Value.(Param); !ok {
		t.Error("Rewrite mutated the original condition")
	}
}

func TestCondition_String(t *testing.T) {
	c := Combine(OR,
		Combine(AND,
			Leaf("age", GT, Literal{Value: 10}),
			Leaf("name", LIKE, Literal{Value: "Di%"}),
		),
		Negate(Leaf("power", IN, List{Literal{Value: "sun"}, Param{Name: "p"}})),
	)

	want := `(age > 10 and name like "Di%") or not power in ("sun", @p)`
	if got := c.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

// =============================================================================
// AST Tests
// =============================================================================

func TestAST_WithSorts_CopyOnAppend(t *testing.T) {
	base := &AST{Operation: OpSelect, Entity: "God", Sorts: []Sort{{Name: "name", Direction: ASC}}}

	derived := base.WithSorts(Sort{Name: "age", Direction: DESC})

	if len(base.Sorts) != 1 {
		t.Errorf("base sorts = %v, want one entry", base.Sorts)
	}
	if len(derived.Sorts) != 2 || derived.Sorts[1].Name != "age" {
		t.Errorf("derived sorts = %v", derived.Sorts)
	}
}

func TestAST_WithPagination(t *testing.T) {
	base := &AST{Operation: OpSelect, Entity: "God"}
	paged := base.WithPagination(4, 2)

	if base.Skip != 0 || base.Limit != 0 {
		t.Error("WithPagination mutated the receiver")
	}
	if paged.Skip != 4 || paged.Limit != 2 {
		t.Errorf("paged = skip %d limit %d", paged.Skip, paged.Limit)
	}
}

func TestAST_Validate(t *testing.T) {
	where := Leaf("age", EQ, Param{Name: "age"})
	payload := Assignments{{Field: "name", Value: Literal{Value: "Diana"}}}

	tests := []struct {
		name    string
		ast     AST
		wantErr bool
	}{
		{"select all", AST{Operation: OpSelect, Entity: "God"}, false},
		{"missing entity", AST{Operation: OpSelect}, true},
		{"negative limit", AST{Operation: OpSelect, Entity: "God", Limit: -1}, true},
		{"bad direction", AST{Operation: OpSelect, Entity: "God", Sorts: []Sort{{Name: "a", Direction: "UP"}}}, true},
		{"delete with where", AST{Operation: OpDelete, Entity: "God", Where: &where}, false},
		{"delete with sorts", AST{Operation: OpDelete, Entity: "God", Sorts: []Sort{{Name: "a", Direction: ASC}}}, true},
		{"delete with fields", AST{Operation: OpDelete, Entity: "God", Fields: []string{"a"}}, true},
		{"insert", AST{Operation: OpInsert, Entity: "God", Payload: payload}, false},
		{"insert without payload", AST{Operation: OpInsert, Entity: "God"}, true},
		{"update with where", AST{Operation: OpUpdate, Entity: "God", Payload: payload, Where: &where}, true},
		{"select with payload", AST{Operation: OpSelect, Entity: "God", Payload: payload}, true},
		{"unknown operation", AST{Operation: "MERGE", Entity: "God"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ast.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAST_String(t *testing.T) {
	where := Leaf("age", GE, Param{Name: "age"})
	ast := &AST{
		Operation: OpSelect,
		Entity:    "God",
		Fields:    []string{"name", "age"},
		Where:     &where,
		Sorts:     []Sort{{Name: "name", Direction: DESC}},
		Skip:      2,
		Limit:     10,
	}

	want := "select name, age from God where age >= @age order by name desc skip 2 limit 10"
	if got := ast.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestAST_CollectParams(t *testing.T) {
	where := Leaf("id", EQ, Param{Name: "id"})
	ast := &AST{
		Operation: OpUpdate,
		Entity:    "God",
		Payload: Assignments{
			{Field: "name", Value: Param{Name: "name"}},
			{Field: "id", Value: Param{Name: "id"}},
		},
	}
	if got := strings.Join(ast.CollectParams(), ","); got != "name,id" {
		t.Errorf("CollectParams() = %q", got)
	}

	sel := &AST{Operation: OpSelect, Entity: "God", Where: &where}
	if got := strings.Join(sel.CollectParams(), ","); got != "id" {
		t.Errorf("CollectParams() = %q", got)
	}
}

// =============================================================================
// Error Tests
// =============================================================================

func TestErrors_Messages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&UnboundParameterError{Missing: []string{"age", "name"}}, "unbound parameters: age, name"},
		{&NonUniqueResultError{Entity: "God"}, "query on God returned more than one result"},
		{&IdentifierMissingError{Entity: "God"}, "entity God: identifier missing"},
		{&TimeoutError{Timeout: 2 * time.Second}, "operation timed out after 2s"},
		{&UnsupportedOperationError{Operation: "SelectAsync"}, "SelectAsync is not supported"},
		{&UnknownFieldError{Entity: "God", Field: "power"}, `field "power" not found in entity God`},
		{
			&QuerySyntaxError{Input: "findByAgeGreater", Fragment: "AgeGreater", Message: "incomplete comparator"},
			`syntax error in "findByAgeGreater" near "AgeGreater": incomplete comparator`,
		},
		{
			&QuerySyntaxError{Fragment: "selct", Message: "unexpected token", Line: 1, Col: 1, Suggestion: "did you mean 'select'?"},
			`syntax error at line 1 col 1 near "selct": unexpected token (did you mean 'select'?)`,
		},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestTimeoutError_As(t *testing.T) {
	var err error = fmt.Errorf("find: %w", &TimeoutError{Timeout: time.Second})
	var timeout *TimeoutError
	if !errors.As(err, &timeout) || timeout.Timeout != time.Second {
		t.Errorf("errors.As() = %v, want TimeoutError of 1s", timeout)
	}
}
