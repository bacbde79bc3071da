package internal

import "fmt"

// Position represents a location in the source template
type Position struct {
	Offset int // Byte offset from start
	Line   int // 1-indexed line number
	Column int // 1-indexed column number
}

// String returns a human-readable position string
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Token represents a lexical token produced by the lexer.
// For directive tokens Value holds the raw text between the delimiters.
type Token struct {
	Type     TokenType
	Value    string
	Position Position
}

// String returns a human-readable representation of the token
func (t Token) String() string {
	if t.Value == "" {
		return fmt.Sprintf("Token{%s @ %s}", t.Type, t.Position)
	}
	return fmt.Sprintf("Token{%s: %q @ %s}", t.Type, t.Value, t.Position)
}

// IsEOF returns true if this is an end-of-file token
func (t Token) IsEOF() bool {
	return t.Type == TokenTypeEOF
}

// IsText returns true if this is a text token
func (t Token) IsText() bool {
	return t.Type == TokenTypeText
}

// IsDirective returns true if this is a directive token
func (t Token) IsDirective() bool {
	return t.Type == TokenTypeDirective
}

// NewEOFToken creates an EOF token at the given position
func NewEOFToken(pos Position) Token {
	return Token{
		Type:     TokenTypeEOF,
		Position: pos,
	}
}

// NewTextToken creates a text token with the given content
func NewTextToken(content string, pos Position) Token {
	return Token{
		Type:     TokenTypeText,
		Value:    content,
		Position: pos,
	}
}

// NewDirectiveToken creates a directive token; pos is the position of the open delimiter
func NewDirectiveToken(tag string, pos Position) Token {
	return Token{
		Type:     TokenTypeDirective,
		Value:    tag,
		Position: pos,
	}
}
