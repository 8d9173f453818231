// Package textql implements the lexer and parser for the text query
// language: select, delete, insert and update statements with named
// parameters, JSON literals and function calls.
package textql

import "strings"

// TokenType identifies the kind of lexical token.
type TokenType int

const (
	// Literals and identifiers
	TokenEOF    TokenType = iota
	TokenIdent            // God, age, address.city
	TokenString           // "quoted" or 'quoted'
	TokenInt              // 123
	TokenFloat            // 1.23
	TokenBool             // true / false
	TokenNull             // null
	TokenParam            // @name
	TokenJSON             // {...} or [...], kept raw

	// Operators
	TokenEQ    // =
	TokenNEQ   // !=
	TokenGT    // >
	TokenLT    // <
	TokenGTE   // >=
	TokenLTE   // <=
	TokenComma // ,
	TokenStar  // *

	// Grouping
	TokenLParen // (
	TokenRParen // )

	// Keywords: statements
	TokenSelect
	TokenDelete
	TokenInsert
	TokenUpdate

	// Keywords: clauses
	TokenFrom
	TokenWhere
	TokenOrder
	TokenBy
	TokenAsc
	TokenDesc
	TokenSkip
	TokenLimit

	// Keywords: logical operators
	TokenAnd
	TokenOr
	TokenNot
	TokenIn
	TokenLike
	TokenBetween
)

// String returns a human-readable name for the token type.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of input"
	case TokenIdent:
		return "identifier"
	case TokenString:
		return "string"
	case TokenInt:
		return "integer"
	case TokenFloat:
		return "float"
	case TokenBool:
		return "boolean"
	case TokenNull:
		return "null"
	case TokenParam:
		return "parameter"
	case TokenJSON:
		return "JSON literal"
	case TokenEQ:
		return "="
	case TokenNEQ:
		return "!="
	case TokenGT:
		return ">"
	case TokenLT:
		return "<"
	case TokenGTE:
		return ">="
	case TokenLTE:
		return "<="
	case TokenComma:
		return ","
	case TokenStar:
		return "*"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenSelect:
		return "select"
	case TokenDelete:
		return "delete"
	case TokenInsert:
		return "insert"
	case TokenUpdate:
		return "update"
	case TokenFrom:
		return "from"
	case TokenWhere:
		return "where"
	case TokenOrder:
		return "order"
	case TokenBy:
		return "by"
	case TokenAsc:
		return "asc"
	case TokenDesc:
		return "desc"
	case TokenSkip:
		return "skip"
	case TokenLimit:
		return "limit"
	case TokenAnd:
		return "and"
	case TokenOr:
		return "or"
	case TokenNot:
		return "not"
	case TokenIn:
		return "in"
	case TokenLike:
		return "like"
	case TokenBetween:
		return "between"
	default:
		return "unknown"
	}
}

// Token represents a single lexical token.
type Token struct {
	Type    TokenType
	Literal string // raw text, unquoted for strings
	Pos     int    // byte offset in source
	Line    int    // 1-based line number
	Col     int    // 1-based column number
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"select":  TokenSelect,
	"delete":  TokenDelete,
	"insert":  TokenInsert,
	"update":  TokenUpdate,
	"from":    TokenFrom,
	"where":   TokenWhere,
	"order":   TokenOrder,
	"by":      TokenBy,
	"asc":     TokenAsc,
	"desc":    TokenDesc,
	"skip":    TokenSkip,
	"limit":   TokenLimit,
	"and":     TokenAnd,
	"or":      TokenOr,
	"not":     TokenNot,
	"in":      TokenIn,
	"like":    TokenLike,
	"between": TokenBetween,
	"true":    TokenBool,
	"false":   TokenBool,
	"null":    TokenNull,
}

// statementKeywords are offered as suggestions for a misspelled verb.
var statementKeywords = []string{"select", "delete", "insert", "update"}

// LookupKeyword returns the keyword token type for an identifier, or
// TokenIdent if the identifier is not a keyword. Lookup is case-insensitive.
func LookupKeyword(ident string) TokenType {
	if tok, ok := keywords[strings.ToLower(ident)]; ok {
		return tok
	}
	return TokenIdent
}

// IsKeyword reports whether the token type is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokenSelect && t <= TokenBetween
}
