package textql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/zoobzio/repoql/internal/types"
)

// Parse lexes and parses a single query into an AST. Any error is a
// *types.QuerySyntaxError and no partial AST is returned.
func Parse(input string) (*types.AST, error) {
	tokens, err := NewLexer(input).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(input, tokens).Parse()
}

// MustParse is like Parse but panics on error.
func MustParse(input string) *types.AST {
	ast, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return ast
}

// Parser implements a recursive descent parser over a token slice.
type Parser struct {
	input  string
	tokens []Token
	pos    int
}

// NewParser creates a parser from a token slice (typically from Lexer.Tokenize).
func NewParser(input string, tokens []Token) *Parser {
	return &Parser{input: input, tokens: tokens}
}

// Parse parses exactly one statement followed by end of input.
func (p *Parser) Parse() (*types.AST, error) {
	ast, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if !p.atEnd() {
		return nil, p.errorf(p.peek(), "unexpected %s after end of statement", p.peek().Type)
	}
	ast.Params = ast.CollectParams()
	if err := ast.Validate(); err != nil {
		return nil, p.errorf(p.tokens[0], "%v", err)
	}
	return ast, nil
}

// ── Token navigation ────────────────────────────────────────────────────────

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF, Pos: len(p.input)}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		return Token{Type: TokenEOF, Pos: len(p.input)}
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

func (p *Parser) atEnd() bool {
	return p.peek().Type == TokenEOF
}

func (p *Parser) check(t TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) match(kinds ...TokenType) (Token, bool) {
	for _, t := range kinds {
		if p.check(t) {
			return p.advance(), true
		}
	}
	return Token{}, false
}

func (p *Parser) expect(t TokenType) (Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	tok := p.peek()
	return tok, p.errorf(tok, "expected %s, got %s", t, tok.Type)
}

func (p *Parser) errorf(tok Token, format string, args ...any) *types.QuerySyntaxError {
	fragment := tok.Literal
	if tok.Type == TokenEOF {
		fragment = tailFragment(p.input)
	}
	return &types.QuerySyntaxError{
		Input:    p.input,
		Fragment: fragment,
		Message:  fmt.Sprintf(format, args...),
		Pos:      tok.Pos,
		Line:     tok.Line,
		Col:      tok.Col,
	}
}

// ── Statement parsing ───────────────────────────────────────────────────────

func (p *Parser) parseStatement() (*types.AST, error) {
	tok := p.peek()

	switch tok.Type {
	case TokenSelect:
		return p.parseSelect()
	case TokenDelete:
		return p.parseDelete()
	case TokenInsert:
		return p.parseWrite(types.OpInsert)
	case TokenUpdate:
		return p.parseWrite(types.OpUpdate)
	case TokenEOF:
		return nil, p.errorf(tok, "empty query")
	}

	err := p.errorf(tok, "expected select, delete, insert or update, got %q", tok.Literal)
	if tok.Type == TokenIdent {
		err.Suggestion = SuggestFrom(strings.ToLower(tok.Literal), statementKeywords, 2)
	}
	return nil, err
}

// parseSelect parses:
//
//	select (* | field, ...) from Entity [where cond] [order by ...] [skip n] [limit n]
//
// skip and limit may come in either order.
func (p *Parser) parseSelect() (*types.AST, error) {
	p.advance() // consume 'select'
	ast := &types.AST{Operation: types.OpSelect}

	if _, ok := p.match(TokenStar); !ok {
		for {
			field, err := p.field()
			if err != nil {
				return nil, err
			}
			ast.Fields = append(ast.Fields, field.Literal)
			if _, ok := p.match(TokenComma); !ok {
				break
			}
		}
	}

	if err := p.parseFrom(ast); err != nil {
		return nil, err
	}
	if err := p.parseWhere(ast); err != nil {
		return nil, err
	}
	if err := p.parseOrderBy(ast); err != nil {
		return nil, err
	}

	return ast, p.parseWindow(ast)
}

// parseWindow reads the skip and limit clauses, each at most once.
func (p *Parser) parseWindow(ast *types.AST) error {
	seen := make(map[TokenType]bool)
	for {
		tok, ok := p.match(TokenSkip, TokenLimit)
		if !ok {
			return nil
		}
		clause := strings.ToLower(tok.Literal)
		if seen[tok.Type] {
			return p.errorf(tok, "%s given twice", clause)
		}
		seen[tok.Type] = true
		n, err := p.parseCount(clause)
		if err != nil {
			return err
		}
		if tok.Type == TokenSkip {
			ast.Skip = n
		} else {
			ast.Limit = n
		}
	}
}

// parseDelete parses: delete from Entity [where cond]
func (p *Parser) parseDelete() (*types.AST, error) {
	p.advance() // consume 'delete'
	ast := &types.AST{Operation: types.OpDelete}
	if err := p.parseFrom(ast); err != nil {
		return nil, err
	}
	if err := p.parseWhere(ast); err != nil {
		return nil, err
	}
	return ast, nil
}

// parseWrite parses: (insert | update) Entity ((field = value, ...) | {json})
func (p *Parser) parseWrite(op types.Operation) (*types.AST, error) {
	p.advance() // consume verb
	entity, err := p.expect(TokenIdent)
	if err != nil {
		return nil, err
	}
	ast := &types.AST{Operation: op, Entity: entity.Literal}

	switch {
	case p.check(TokenJSON):
		tok := p.advance()
		doc, err := p.decodeJSON(tok)
		if err != nil {
			return nil, err
		}
		if _, ok := doc.Value.(map[string]any); !ok {
			if _, ok := doc.Value.([]any); !ok {
				return nil, p.errorf(tok, "%s payload must be a JSON object or array", strings.ToLower(string(op)))
			}
		}
		ast.Payload = doc
	case p.check(TokenLParen):
		assignments, err := p.parseAssignments()
		if err != nil {
			return nil, err
		}
		ast.Payload = assignments
	default:
		return nil, p.errorf(p.peek(), "expected ( or JSON object after %s", entity.Literal)
	}
	return ast, nil
}

func (p *Parser) parseAssignments() (types.Assignments, error) {
	p.advance() // consume '('
	var out types.Assignments
	seen := make(map[string]bool)
	for {
		field, err := p.field()
		if err != nil {
			return nil, err
		}
		if seen[field.Literal] {
			return nil, p.errorf(field, "field %q assigned twice", field.Literal)
		}
		seen[field.Literal] = true
		if _, err := p.expect(TokenEQ); err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, types.Assignment{Field: field.Literal, Value: value})
		if _, ok := p.match(TokenComma); !ok {
			break
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Parser) parseFrom(ast *types.AST) error {
	if _, err := p.expect(TokenFrom); err != nil {
		return err
	}
	entity, err := p.expect(TokenIdent)
	if err != nil {
		return err
	}
	ast.Entity = entity.Literal
	return nil
}

func (p *Parser) parseWhere(ast *types.AST) error {
	if _, ok := p.match(TokenWhere); !ok {
		return nil
	}
	cond, err := p.parseCondition()
	if err != nil {
		return err
	}
	ast.Where = &cond
	return nil
}

func (p *Parser) parseOrderBy(ast *types.AST) error {
	if _, ok := p.match(TokenOrder); !ok {
		return nil
	}
	if _, err := p.expect(TokenBy); err != nil {
		return err
	}
	for {
		field, err := p.field()
		if err != nil {
			return err
		}
		dir := types.ASC
		if tok, ok := p.match(TokenAsc, TokenDesc); ok && tok.Type == TokenDesc {
			dir = types.DESC
		}
		ast.Sorts = append(ast.Sorts, types.Sort{Name: field.Literal, Direction: dir})
		if _, ok := p.match(TokenComma); !ok {
			return nil
		}
	}
}

// field reads a field name. Keywords are accepted in field position, so
// a column named order or limit needs no quoting.
func (p *Parser) field() (Token, error) {
	if tok := p.peek(); tok.Type.IsKeyword() {
		return p.advance(), nil
	}
	return p.expect(TokenIdent)
}

func (p *Parser) parseCount(clause string) (int64, error) {
	tok, err := p.expect(TokenInt)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.ParseInt(tok.Literal, 10, 64)
	if convErr != nil || n < 0 {
		return 0, p.errorf(tok, "%s requires a non-negative integer", clause)
	}
	return n, nil
}

// ── Conditions ──────────────────────────────────────────────────────────────

// parseCondition folds unary conditions left to right. A run of the same
// combinator extends one node; a change of combinator wraps what came before.
func (p *Parser) parseCondition() (types.Condition, error) {
	left, err := p.parseUnary()
	if err != nil {
		return types.Condition{}, err
	}

	var chainOp types.Operator
	for {
		tok, ok := p.match(TokenAnd, TokenOr)
		if !ok {
			return left, nil
		}
		op := types.AND
		if tok.Type == TokenOr {
			op = types.OR
		}
		right, err := p.parseUnary()
		if err != nil {
			return types.Condition{}, err
		}
		if op == chainOp {
			left = left.Append(right)
		} else {
			left = types.Combine(op, left, right)
			chainOp = op
		}
	}
}

func (p *Parser) parseUnary() (types.Condition, error) {
	// A field named not is followed by a symbolic comparison.
	if p.check(TokenNot) && !isSymbolicComparison(p.peekAt(1).Type) {
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return types.Condition{}, err
		}
		return types.Negate(inner), nil
	}

	if _, ok := p.match(TokenLParen); ok {
		inner, err := p.parseCondition()
		if err != nil {
			return types.Condition{}, err
		}
		if _, err := p.expect(TokenRParen); err != nil {
			return types.Condition{}, err
		}
		return inner, nil
	}

	return p.parseComparison()
}

func (p *Parser) parseComparison() (types.Condition, error) {
	field, err := p.field()
	if err != nil {
		return types.Condition{}, err
	}

	// field not in (...), field not like x, field not between a and b
	negate := false
	if p.check(TokenNot) {
		switch p.peekAt(1).Type {
		case TokenIn, TokenLike, TokenBetween:
			p.advance()
			negate = true
		}
	}

	cond, err := p.parseOperator(field.Literal)
	if err != nil {
		return types.Condition{}, err
	}
	if negate {
		return types.Negate(cond), nil
	}
	return cond, nil
}

func isSymbolicComparison(t TokenType) bool {
	switch t {
	case TokenEQ, TokenNEQ, TokenGT, TokenGTE, TokenLT, TokenLTE:
		return true
	}
	return false
}

func (p *Parser) parseOperator(name string) (types.Condition, error) {
	tok := p.advance()
	switch tok.Type {
	case TokenEQ, TokenNEQ, TokenGT, TokenGTE, TokenLT, TokenLTE, TokenLike:
		value, err := p.parseValue()
		if err != nil {
			return types.Condition{}, err
		}
		switch tok.Type {
		case TokenEQ:
			return types.Leaf(name, types.EQ, value), nil
		case TokenNEQ:
			return types.Negate(types.Leaf(name, types.EQ, value)), nil
		case TokenGT:
			return types.Leaf(name, types.GT, value), nil
		case TokenGTE:
			return types.Leaf(name, types.GE, value), nil
		case TokenLT:
			return types.Leaf(name, types.LT, value), nil
		case TokenLTE:
			return types.Leaf(name, types.LE, value), nil
		default:
			return types.Leaf(name, types.LIKE, value), nil
		}

	case TokenIn:
		value, err := p.parseInValue()
		if err != nil {
			return types.Condition{}, err
		}
		return types.Leaf(name, types.IN, value), nil

	case TokenBetween:
		low, err := p.parseValue()
		if err != nil {
			return types.Condition{}, err
		}
		if _, err := p.expect(TokenAnd); err != nil {
			return types.Condition{}, err
		}
		high, err := p.parseValue()
		if err != nil {
			return types.Condition{}, err
		}
		return types.Leaf(name, types.BETWEEN, types.Range{Low: low, High: high}), nil
	}

	return types.Condition{}, p.errorf(tok, "expected comparison operator after %q, got %s", name, tok.Type)
}

func (p *Parser) parseInValue() (types.Value, error) {
	switch {
	case p.check(TokenParam):
		return types.Param{Name: p.advance().Literal}, nil
	case p.check(TokenJSON):
		tok := p.advance()
		doc, err := p.decodeJSON(tok)
		if err != nil {
			return nil, err
		}
		if _, ok := doc.Value.([]any); !ok {
			return nil, p.errorf(tok, "in requires a list, got a JSON object")
		}
		return doc, nil
	}

	if _, err := p.expect(TokenLParen); err != nil {
		return nil, err
	}
	var items types.List
	if !p.check(TokenRParen) {
		for {
			item, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			if _, ok := p.match(TokenComma); !ok {
				break
			}
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, p.errorf(p.tokens[p.pos-1], "in requires at least one value")
	}
	return items, nil
}

// ── Values ──────────────────────────────────────────────────────────────────

func (p *Parser) parseValue() (types.Value, error) {
	tok := p.peek()

	switch tok.Type {
	case TokenString:
		p.advance()
		return types.Literal{Value: tok.Literal}, nil
	case TokenInt:
		p.advance()
		n, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid integer %q", tok.Literal)
		}
		return types.Literal{Value: n}, nil
	case TokenFloat:
		p.advance()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, p.errorf(tok, "invalid number %q", tok.Literal)
		}
		return types.Literal{Value: f}, nil
	case TokenBool:
		p.advance()
		return types.Literal{Value: strings.EqualFold(tok.Literal, "true")}, nil
	case TokenNull:
		p.advance()
		return types.Literal{}, nil
	case TokenParam:
		p.advance()
		return types.Param{Name: tok.Literal}, nil
	case TokenJSON:
		p.advance()
		return p.decodeJSON(tok)
	case TokenIdent:
		if p.peekAt(1).Type == TokenLParen {
			return p.parseCall()
		}
	}

	return nil, p.errorf(tok, "expected a value, got %s", tok.Type)
}

// parseCall parses name(arg, ...). Bare identifiers are accepted as
// arguments and recorded as string literals, e.g. convert(@d, date).
func (p *Parser) parseCall() (types.Value, error) {
	name := p.advance()
	p.advance() // consume '('
	call := types.Call{Name: name.Literal}
	if _, ok := p.match(TokenRParen); ok {
		return call, nil
	}
	for {
		var (
			arg types.Value
			err error
		)
		if p.check(TokenIdent) && p.peekAt(1).Type != TokenLParen {
			arg = types.Literal{Value: p.advance().Literal}
		} else {
			arg, err = p.parseValue()
			if err != nil {
				return nil, err
			}
		}
		call.Args = append(call.Args, arg)
		if _, ok := p.match(TokenComma); !ok {
			break
		}
	}
	if _, err := p.expect(TokenRParen); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *Parser) decodeJSON(tok Token) (types.Document, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(tok.Literal)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return types.Document{}, p.errorf(tok, "invalid JSON literal: %v", err)
	}
	return types.Document{Value: v}, nil
}

// tailFragment returns the last few characters of input for end-of-input errors.
func tailFragment(input string) string {
	const n = 16
	input = strings.TrimSpace(input)
	if len(input) <= n {
		return input
	}
	tail := input[len(input)-n:]
	if input[len(input)-n-1] != ' ' {
		if i := strings.IndexByte(tail, ' '); i >= 0 {
			tail = tail[i+1:]
		}
	}
	return strings.TrimSpace(tail)
}
