// Package derive parses repository method names such as
// findByAgeGreaterThanOrNameIn into query ASTs.
package derive

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zoobzio/repoql/internal/types"
)

var prefixes = []struct {
	text string
	op   types.Operation
}{
	{"findBy", types.OpSelect},
	{"deleteBy", types.OpDelete},
	{"countBy", types.OpCount},
	{"existsBy", types.OpExists},
}

// comparators are matched against the tail of a segment, longest first.
var comparators = []struct {
	words []string
	op    types.Operator
}{
	{[]string{"Greater", "Than", "Equal"}, types.GE},
	{[]string{"Less", "Than", "Equal"}, types.LE},
	{[]string{"Greater", "Than"}, types.GT},
	{[]string{"Less", "Than"}, types.LT},
	{[]string{"Between"}, types.BETWEEN},
	{[]string{"Equals"}, types.EQ},
	{[]string{"Like"}, types.LIKE},
	{[]string{"In"}, types.IN},
}

// partialComparators are words that only appear inside a comparator.
// Finding one in a field name means the comparator was misspelled.
var partialComparators = map[string]bool{
	"Greater": true,
	"Less":    true,
	"Than":    true,
	"Equal":   true,
}

// Parse derives the AST for method against entity. Field names are not
// checked against any metadata.
func Parse(method, entity string) (*types.AST, error) {
	p := &parser{input: method, names: make(map[string]int), taken: make(map[string]bool)}
	return p.parse(entity)
}

// MustParse is like Parse but panics on error.
func MustParse(method, entity string) *types.AST {
	ast, err := Parse(method, entity)
	if err != nil {
		panic(err)
	}
	return ast
}

type word struct {
	text string
	pos  int
}

type parser struct {
	input  string
	names  map[string]int
	taken  map[string]bool
	params []string
}

func (p *parser) parse(entity string) (*types.AST, error) {
	ast := &types.AST{Entity: entity}

	rest := ""
	found := false
	for _, prefix := range prefixes {
		if strings.HasPrefix(p.input, prefix.text) {
			ast.Operation = prefix.op
			rest = p.input[len(prefix.text):]
			found = true
			break
		}
	}
	if !found {
		return nil, p.errorAt(p.input, 0, "method name must start with findBy, deleteBy, countBy or existsBy")
	}
	offset := len(p.input) - len(rest)

	words := splitWords(rest, offset)
	condWords, sortWords, hasOrderBy := splitOrderBy(words)

	if len(condWords) > 0 {
		where, err := p.parseCondition(condWords)
		if err != nil {
			return nil, err
		}
		ast.Where = &where
	}

	if hasOrderBy {
		if ast.Operation == types.OpDelete {
			return nil, p.errorAt("OrderBy", len(p.input)-len(joinWords(sortWords))-len("OrderBy"), "deleteBy cannot declare an ordering")
		}
		sorts, err := p.parseSorts(sortWords)
		if err != nil {
			return nil, err
		}
		ast.Sorts = sorts
	}

	ast.Params = p.params
	return ast, nil
}

// parseCondition splits words into segments on And/Or and folds them left
// to right. Consecutive same-type combinators extend one n-ary node.
func (p *parser) parseCondition(words []word) (types.Condition, error) {
	var (
		segments [][]word
		ops      []types.Operator
		current  []word
	)
	for _, w := range words {
		switch w.text {
		case "And", "Or":
			if len(current) == 0 {
				return types.Condition{}, p.errorAt(w.text, w.pos, "missing field before "+w.text)
			}
			segments = append(segments, current)
			current = nil
			if w.text == "And" {
				ops = append(ops, types.AND)
			} else {
				ops = append(ops, types.OR)
			}
		default:
			current = append(current, w)
		}
	}
	if len(current) == 0 {
		last := words[len(words)-1]
		return types.Condition{}, p.errorAt(last.text, last.pos, "missing field after "+last.text)
	}
	segments = append(segments, current)

	var (
		result  types.Condition
		chainOp types.Operator
	)
	for i, segment := range segments {
		leaf, err := p.parseSegment(segment)
		if err != nil {
			return types.Condition{}, err
		}
		if i == 0 {
			result = leaf
			continue
		}
		op := ops[i-1]
		if op == chainOp {
			result = result.Append(leaf)
		} else {
			result = types.Combine(op, result, leaf)
			chainOp = op
		}
	}
	return result, nil
}

// parseSegment turns Field[Not][Comparator] into a leaf, wrapped in NOT
// when negated.
func (p *parser) parseSegment(words []word) (types.Condition, error) {
	op := types.EQ
	end := len(words)
	for _, cmp := range comparators {
		if hasSuffix(words, cmp.words) {
			op = cmp.op
			end -= len(cmp.words)
			break
		}
	}

	negate := false
	if end > 0 && words[end-1].text == "Not" {
		negate = true
		end--
	}

	fragment := joinWords(words)
	if end == 0 {
		return types.Condition{}, p.errorAt(fragment, words[0].pos, "missing field name before comparator")
	}
	for _, w := range words[:end] {
		if partialComparators[w.text] {
			return types.Condition{}, p.errorAt(w.text, w.pos, "unrecognized comparator in "+strconv.Quote(fragment))
		}
	}

	field, err := p.fieldName(words[:end])
	if err != nil {
		return types.Condition{}, err
	}

	var value types.Value
	if op == types.BETWEEN {
		base := paramBase(field)
		value = types.Range{
			Low:  types.Param{Name: p.declare(base + "_low")},
			High: types.Param{Name: p.declare(base + "_high")},
		}
	} else {
		value = types.Param{Name: p.declare(paramBase(field))}
	}

	leaf := types.Leaf(field, op, value)
	if negate {
		return types.Negate(leaf), nil
	}
	return leaf, nil
}

// parseSorts reads Field[Asc|Desc] pairs. A direction word closes the
// current field unless the next word is also a direction, in which case the
// longer match wins and the word belongs to the field.
func (p *parser) parseSorts(words []word) ([]types.Sort, error) {
	if len(words) == 0 {
		return nil, p.errorAt("OrderBy", len(p.input)-len("OrderBy"), "missing field after OrderBy")
	}

	var (
		sorts []types.Sort
		acc   []word
	)
	for i, w := range words {
		dir, isDir := direction(w.text)
		if isDir && len(acc) > 0 {
			nextIsDir := false
			if i+1 < len(words) {
				_, nextIsDir = direction(words[i+1].text)
			}
			if !nextIsDir {
				field, err := p.fieldName(acc)
				if err != nil {
					return nil, err
				}
				sorts = append(sorts, types.Sort{Name: field, Direction: dir})
				acc = nil
				continue
			}
		}
		acc = append(acc, w)
	}
	if len(acc) > 0 {
		field, err := p.fieldName(acc)
		if err != nil {
			return nil, err
		}
		sorts = append(sorts, types.Sort{Name: field, Direction: types.ASC})
	}
	return sorts, nil
}

// fieldName joins words into a property path. Underscores separate nested
// segments and each segment is decapitalized.
func (p *parser) fieldName(words []word) (string, error) {
	var (
		segments []string
		current  strings.Builder
	)
	for _, w := range words {
		if w.text == "_" {
			if current.Len() == 0 {
				return "", p.errorAt(joinWords(words), words[0].pos, "empty nested property segment")
			}
			segments = append(segments, decapitalize(current.String()))
			current.Reset()
			continue
		}
		current.WriteString(w.text)
	}
	if current.Len() == 0 {
		return "", p.errorAt(joinWords(words), words[0].pos, "empty nested property segment")
	}
	segments = append(segments, decapitalize(current.String()))
	return strings.Join(segments, "."), nil
}

// declare registers a parameter name. A name already taken, whether
// declared directly or generated for an earlier duplicate, gets the next
// free _<n> suffix.
func (p *parser) declare(base string) string {
	name := base
	n := p.names[base]
	for p.taken[name] {
		n++
		name = base + "_" + strconv.Itoa(n)
	}
	p.names[base] = n
	p.taken[name] = true
	p.params = append(p.params, name)
	return name
}

func (p *parser) errorAt(fragment string, pos int, msg string) error {
	return &types.QuerySyntaxError{
		Input:    p.input,
		Fragment: fragment,
		Message:  msg,
		Pos:      pos,
	}
}

// splitWords breaks s at upper-case runes. An underscore is a word of its own.
func splitWords(s string, offset int) []word {
	var words []word
	start := 0
	prev := rune(0)
	for i, r := range s {
		if i > 0 && (unicode.IsUpper(r) || r == '_' || prev == '_') {
			words = append(words, word{text: s[start:i], pos: offset + start})
			start = i
		}
		prev = r
	}
	if start < len(s) {
		words = append(words, word{text: s[start:], pos: offset + start})
	}
	return words
}

// splitOrderBy separates the condition words from the sort words at the
// first Order, By pair.
func splitOrderBy(words []word) (cond, sorts []word, found bool) {
	for i := 0; i+1 < len(words); i++ {
		if words[i].text == "Order" && words[i+1].text == "By" {
			return words[:i], words[i+2:], true
		}
	}
	return words, nil, false
}

func hasSuffix(words []word, suffix []string) bool {
	if len(words) < len(suffix) {
		return false
	}
	tail := words[len(words)-len(suffix):]
	for i, s := range suffix {
		if tail[i].text != s {
			return false
		}
	}
	return true
}

func direction(s string) (types.Direction, bool) {
	switch s {
	case "Asc":
		return types.ASC, true
	case "Desc":
		return types.DESC, true
	}
	return "", false
}

func joinWords(words []word) string {
	var sb strings.Builder
	for _, w := range words {
		sb.WriteString(w.text)
	}
	return sb.String()
}

// decapitalize lower-cases the first rune unless the first two runes are
// both upper case, so URL stays URL and Name becomes name.
func decapitalize(s string) string {
	first, size := utf8.DecodeRuneInString(s)
	if size == len(s) {
		return string(unicode.ToLower(first))
	}
	second, _ := utf8.DecodeRuneInString(s[size:])
	if unicode.IsUpper(first) && unicode.IsUpper(second) {
		return s
	}
	return string(unicode.ToLower(first)) + s[size:]
}

func paramBase(field string) string {
	return strings.ReplaceAll(field, ".", "_")
}
