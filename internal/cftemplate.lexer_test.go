package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLexer_Tokenize_PlainText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "empty string",
			input: "",
			expected: []Token{
				{Type: TokenTypeEOF, Position: Position{Offset: 0, Line: 1, Column: 1}},
			},
		},
		{
			name:  "simple text",
			input: "Hello, world!",
			expected: []Token{
				{Type: TokenTypeText, Value: "Hello, world!", Position: Position{Offset: 0, Line: 1, Column: 1}},
				{Type: TokenTypeEOF, Position: Position{Offset: 13, Line: 1, Column: 14}},
			},
		},
		{
			name:  "multiline text",
			input: "Line 1\nLine 2\nLine 3",
			expected: []Token{
				{Type: TokenTypeText, Value: "Line 1\nLine 2\nLine 3", Position: Position{Offset: 0, Line: 1, Column: 1}},
				{Type: TokenTypeEOF, Position: Position{Offset: 20, Line: 3, Column: 7}},
			},
		},
		{
			name:  "single parentheses are text",
			input: "a (b) c)",
			expected: []Token{
				{Type: TokenTypeText, Value: "a (b) c)", Position: Position{Offset: 0, Line: 1, Column: 1}},
				{Type: TokenTypeEOF, Position: Position{Offset: 8, Line: 1, Column: 9}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexer := NewLexer(tt.input, zap.NewNop())
			tokens, err := lexer.Tokenize()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tokens)
		})
	}
}

func TestLexer_Tokenize_Directives(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "lone directive",
			input: "(( require x ))",
			expected: []Token{
				{Type: TokenTypeDirective, Value: " require x ", Position: Position{Offset: 0, Line: 1, Column: 1}},
				{Type: TokenTypeEOF, Position: Position{Offset: 15, Line: 1, Column: 16}},
			},
		},
		{
			name:  "directive between text",
			input: "Hello (( a )) there",
			expected: []Token{
				{Type: TokenTypeText, Value: "Hello ", Position: Position{Offset: 0, Line: 1, Column: 1}},
				{Type: TokenTypeDirective, Value: " a ", Position: Position{Offset: 6, Line: 1, Column: 7}},
				{Type: TokenTypeText, Value: " there", Position: Position{Offset: 13, Line: 1, Column: 14}},
				{Type: TokenTypeEOF, Position: Position{Offset: 19, Line: 1, Column: 20}},
			},
		},
		{
			name:  "directive on a later line",
			input: "one\n    ((x))",
			expected: []Token{
				{Type: TokenTypeText, Value: "one\n    ", Position: Position{Offset: 0, Line: 1, Column: 1}},
				{Type: TokenTypeDirective, Value: "x", Position: Position{Offset: 8, Line: 2, Column: 5}},
				{Type: TokenTypeEOF, Position: Position{Offset: 13, Line: 2, Column: 10}},
			},
		},
		{
			name:  "adjacent directives",
			input: "((a))((b))",
			expected: []Token{
				{Type: TokenTypeDirective, Value: "a", Position: Position{Offset: 0, Line: 1, Column: 1}},
				{Type: TokenTypeDirective, Value: "b", Position: Position{Offset: 5, Line: 1, Column: 6}},
				{Type: TokenTypeEOF, Position: Position{Offset: 10, Line: 1, Column: 11}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := NewLexer(tt.input, nil).Tokenize()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tokens)
		})
	}
}

func TestLexer_ColumnsCountCharacters(t *testing.T) {
	tokens, err := NewLexer("§§ ((x))", nil).Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, 4, tokens[1].Position.Column)
	assert.Equal(t, 5, tokens[1].Position.Offset)
}

func TestLexer_UnterminatedDirective(t *testing.T) {
	_, err := NewLexer("text\n  (( require x", nil).Tokenize()
	require.Error(t, err)

	var lexErr *LexerError
	require.True(t, errors.As(err, &lexErr))
	assert.Equal(t, ErrMsgUnterminatedTag, lexErr.Message)
	assert.Equal(t, 2, lexErr.Position.Line)
	assert.Equal(t, 3, lexErr.Position.Column)
	assert.Contains(t, err.Error(), "line 2, column 3")
}

func TestLexer_CustomDelimiters(t *testing.T) {
	lexer := NewLexerWithConfig("a [[ b ]] c", LexerConfig{OpenDelim: "[[", CloseDelim: "]]"}, nil)
	tokens, err := lexer.Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 4)
	assert.Equal(t, " b ", tokens[1].Value)
	assert.True(t, tokens[1].IsDirective())
	assert.True(t, tokens[3].IsEOF())
}
