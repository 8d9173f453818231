package types

// Operator represents a condition comparator or combinator.
type Operator string

const (
	// Leaf comparators.
	EQ      Operator = "EQUALS"
	GT      Operator = "GREATER_THAN"
	GE      Operator = "GREATER_EQUALS_THAN"
	LT      Operator = "LESSER_THAN"
	LE      Operator = "LESSER_EQUALS_THAN"
	LIKE    Operator = "LIKE"
	IN      Operator = "IN"
	BETWEEN Operator = "BETWEEN"

	// Combinators.
	NOT Operator = "NOT"
	AND Operator = "AND"
	OR  Operator = "OR"
)

// IsCombinator reports whether the operator wraps child conditions.
func (o Operator) IsCombinator() bool {
	return o == NOT || o == AND || o == OR
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	switch o {
	case EQ, GT, GE, LT, LE, LIKE, IN, BETWEEN, NOT, AND, OR:
		return true
	}
	return false
}

// Symbol returns the textual form used when printing conditions.
func (o Operator) Symbol() string {
	switch o {
	case EQ:
		return "="
	case GT:
		return ">"
	case GE:
		return ">="
	case LT:
		return "<"
	case LE:
		return "<="
	case LIKE:
		return "like"
	case IN:
		return "in"
	case BETWEEN:
		return "between"
	case NOT:
		return "not"
	case AND:
		return "and"
	case OR:
		return "or"
	default:
		return string(o)
	}
}
