package textql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/repoql/internal/types"
)

func tokenTypes(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func TestLexer_Select(t *testing.T) {
	tokens, err := NewLexer(`select name, age from God where age >= 10 order by name desc`).Tokenize()
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenSelect, TokenIdent, TokenComma, TokenIdent, TokenFrom, TokenIdent,
		TokenWhere, TokenIdent, TokenGTE, TokenInt,
		TokenOrder, TokenBy, TokenIdent, TokenDesc, TokenEOF,
	}, tokenTypes(tokens))
}

func TestLexer_KeywordsAreCaseInsensitive(t *testing.T) {
	tokens, err := NewLexer(`SELECT * FROM God WHERE Name LIKE "Z%"`).Tokenize()
	require.NoError(t, err)
	assert.Equal(t, TokenSelect, tokens[0].Type)
	assert.Equal(t, TokenStar, tokens[1].Type)
	assert.Equal(t, TokenFrom, tokens[2].Type)
	assert.Equal(t, TokenLike, tokens[6].Type)
}

func TestLexer_Operators(t *testing.T) {
	tokens, err := NewLexer(`= != <> > >= < <= , * ( )`).Tokenize()
	require.NoError(t, err)
	assert.Equal(t, []TokenType{
		TokenEQ, TokenNEQ, TokenNEQ, TokenGT, TokenGTE, TokenLT, TokenLTE,
		TokenComma, TokenStar, TokenLParen, TokenRParen, TokenEOF,
	}, tokenTypes(tokens))
}

func TestLexer_Literals(t *testing.T) {
	tests := []struct {
		input   string
		typ     TokenType
		literal string
	}{
		{`"Diana"`, TokenString, "Diana"},
		{`'Diana'`, TokenString, "Diana"},
		{`"say \"hi\""`, TokenString, `say "hi"`},
		{`42`, TokenInt, "42"},
		{`-7`, TokenInt, "-7"},
		{`3.14`, TokenFloat, "3.14"},
		{`1e6`, TokenFloat, "1e6"},
		{`2.5E-3`, TokenFloat, "2.5E-3"},
		{`true`, TokenBool, "true"},
		{`FALSE`, TokenBool, "FALSE"},
		{`null`, TokenNull, "null"},
		{`@name`, TokenParam, "name"},
		{`address.city`, TokenIdent, "address.city"},
		{`{"a": [1, {"b": "}"}]}`, TokenJSON, `{"a": [1, {"b": "}"}]}`},
		{`[1, 2, 3]`, TokenJSON, `[1, 2, 3]`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens, err := NewLexer(tt.input).Tokenize()
			require.NoError(t, err)
			require.Len(t, tokens, 2)
			assert.Equal(t, tt.typ, tokens[0].Type)
			assert.Equal(t, tt.literal, tokens[0].Literal)
		})
	}
}

func TestLexer_DottedKeywordIsIdent(t *testing.T) {
	tokens, err := NewLexer(`order.limit`).Tokenize()
	require.NoError(t, err)
	assert.Equal(t, TokenIdent, tokens[0].Type)
}

func TestLexer_Positions(t *testing.T) {
	tokens, err := NewLexer("select *\nfrom God").Tokenize()
	require.NoError(t, err)

	from := tokens[2]
	assert.Equal(t, TokenFrom, from.Type)
	assert.Equal(t, 2, from.Line)
	assert.Equal(t, 1, from.Col)
	assert.Equal(t, 9, from.Pos)
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		input    string
		fragment string
	}{
		{`"open`, `"open`},
		{`{"a": 1`, `{"a": 1`},
		{`@ x`, "@"},
		{`a # b`, "#"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := NewLexer(tt.input).Tokenize()
			var syntaxErr *types.QuerySyntaxError
			require.True(t, errors.As(err, &syntaxErr), "got %v", err)
			assert.Equal(t, tt.fragment, syntaxErr.Fragment)
			assert.Equal(t, 1, syntaxErr.Line)
		})
	}
}

func TestSuggestFrom(t *testing.T) {
	assert.Equal(t, "did you mean 'select'?", SuggestFrom("selct", statementKeywords, 2))
	assert.Equal(t, "did you mean 'delete'?", SuggestFrom("delet", statementKeywords, 2))
	assert.Equal(t, "", SuggestFrom("frobnicate", statementKeywords, 2))
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 0, Distance("abc", "abc"))
	assert.Equal(t, 3, Distance("", "abc"))
	assert.Equal(t, 1, Distance("select", "selct"))
	assert.Equal(t, 3, Distance("kitten", "sitting"))
}
