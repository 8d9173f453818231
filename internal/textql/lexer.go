package textql

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zoobzio/repoql/internal/types"
)

// Lexer tokenizes query text.
type Lexer struct {
	input  string
	pos    int // current byte position
	line   int // 1-based
	col    int // 1-based
	tokens []Token
}

// NewLexer creates a lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
		col:   1,
	}
}

// Tokenize scans the entire input. It stops at the first lexical error.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			return l.tokens, nil
		}
	}
}

// peek returns the current rune without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// peekAt returns the rune at offset bytes from current position.
func (l *Lexer) peekAt(offset int) rune {
	p := l.pos + offset
	if p >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[p:])
	return r
}

// advance moves forward by one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r := l.peek()
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			l.advance()
		} else {
			break
		}
	}
}

func (l *Lexer) token(t TokenType, lit string, pos, line, col int) Token {
	return Token{Type: t, Literal: lit, Pos: pos, Line: line, Col: col}
}

func (l *Lexer) errorf(pos, line, col int, fragment, msg string) error {
	return &types.QuerySyntaxError{
		Input:    l.input,
		Fragment: fragment,
		Message:  msg,
		Pos:      pos,
		Line:     line,
		Col:      col,
	}
}

// next scans and returns the next token.
func (l *Lexer) next() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return l.token(TokenEOF, "", l.pos, l.line, l.col), nil
	}

	startPos, startLine, startCol := l.pos, l.line, l.col
	r := l.peek()

	switch {
	case r == '"' || r == '\'':
		return l.scanString(startPos, startLine, startCol)
	case r >= '0' && r <= '9', r == '-' && isDigit(l.peekAt(1)):
		return l.scanNumber(startPos, startLine, startCol), nil
	case r == '@':
		return l.scanParam(startPos, startLine, startCol)
	case r == '{' || r == '[':
		return l.scanJSON(startPos, startLine, startCol)
	case isIdentStart(r):
		return l.scanIdent(startPos, startLine, startCol), nil
	}

	// Two-character operators
	two := ""
	if l.pos+1 < len(l.input) {
		two = l.input[l.pos : l.pos+2]
	}
	switch two {
	case "!=", "<>":
		l.advance()
		l.advance()
		return l.token(TokenNEQ, two, startPos, startLine, startCol), nil
	case ">=":
		l.advance()
		l.advance()
		return l.token(TokenGTE, two, startPos, startLine, startCol), nil
	case "<=":
		l.advance()
		l.advance()
		return l.token(TokenLTE, two, startPos, startLine, startCol), nil
	}

	// Single-character operators
	l.advance()
	switch r {
	case '=':
		return l.token(TokenEQ, "=", startPos, startLine, startCol), nil
	case '>':
		return l.token(TokenGT, ">", startPos, startLine, startCol), nil
	case '<':
		return l.token(TokenLT, "<", startPos, startLine, startCol), nil
	case ',':
		return l.token(TokenComma, ",", startPos, startLine, startCol), nil
	case '*':
		return l.token(TokenStar, "*", startPos, startLine, startCol), nil
	case '(':
		return l.token(TokenLParen, "(", startPos, startLine, startCol), nil
	case ')':
		return l.token(TokenRParen, ")", startPos, startLine, startCol), nil
	}

	return Token{}, l.errorf(startPos, startLine, startCol, string(r), "unexpected character")
}

// scanString reads a quoted string literal.
func (l *Lexer) scanString(startPos, startLine, startCol int) (Token, error) {
	quote := l.advance()
	var b strings.Builder
	for l.pos < len(l.input) {
		r := l.advance()
		if r == quote {
			return l.token(TokenString, b.String(), startPos, startLine, startCol), nil
		}
		if r == '\\' {
			next := l.advance()
			switch next {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case '\'':
				b.WriteByte('\'')
			default:
				b.WriteByte('\\')
				b.WriteRune(next)
			}
			continue
		}
		b.WriteRune(r)
	}
	return Token{}, l.errorf(startPos, startLine, startCol, l.input[startPos:], "unterminated string")
}

// scanNumber reads an integer or float literal, with an optional sign and exponent.
func (l *Lexer) scanNumber(startPos, startLine, startCol int) Token {
	start := l.pos
	if l.peek() == '-' {
		l.advance()
	}
	isFloat := false
scan:
	for l.pos < len(l.input) {
		r := l.peek()
		switch {
		case isDigit(r):
			l.advance()
		case r == '.' && !isFloat && isDigit(l.peekAt(1)):
			isFloat = true
			l.advance()
		case (r == 'e' || r == 'E') && (isDigit(l.peekAt(1)) || ((l.peekAt(1) == '-' || l.peekAt(1) == '+') && isDigit(l.peekAt(2)))):
			isFloat = true
			l.advance()
			if p := l.peek(); p == '-' || p == '+' {
				l.advance()
			}
		default:
			break scan
		}
	}
	lit := l.input[start:l.pos]
	if isFloat {
		return l.token(TokenFloat, lit, startPos, startLine, startCol)
	}
	return l.token(TokenInt, lit, startPos, startLine, startCol)
}

// scanParam reads a named parameter, @identifier.
func (l *Lexer) scanParam(startPos, startLine, startCol int) (Token, error) {
	l.advance() // consume '@'
	if !isIdentStart(l.peek()) {
		return Token{}, l.errorf(startPos, startLine, startCol, "@", "parameter name expected after @")
	}
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.peek()) {
		l.advance()
	}
	return l.token(TokenParam, l.input[start:l.pos], startPos, startLine, startCol), nil
}

// scanJSON reads a balanced JSON object or array. Brackets inside strings
// are ignored. The literal is returned raw; the parser decodes it.
func (l *Lexer) scanJSON(startPos, startLine, startCol int) (Token, error) {
	depth := 0
	inString := false
	for l.pos < len(l.input) {
		r := l.advance()
		if inString {
			switch r {
			case '\\':
				l.advance()
			case '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return l.token(TokenJSON, l.input[startPos:l.pos], startPos, startLine, startCol), nil
			}
		}
	}
	return Token{}, l.errorf(startPos, startLine, startCol, l.input[startPos:], "unterminated JSON literal")
}

// scanIdent reads an identifier or keyword. Dots join path segments.
func (l *Lexer) scanIdent(startPos, startLine, startCol int) Token {
	start := l.pos
	for l.pos < len(l.input) {
		r := l.peek()
		if isIdentPart(r) || (r == '.' && isIdentStart(l.peekAt(1))) {
			l.advance()
		} else {
			break
		}
	}
	lit := l.input[start:l.pos]
	tokType := TokenIdent
	if !strings.Contains(lit, ".") {
		tokType = LookupKeyword(lit)
	}
	return l.token(tokType, lit, startPos, startLine, startCol)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
