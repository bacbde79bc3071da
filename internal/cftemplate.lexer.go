package internal

import (
	"strings"

	"go.uber.org/zap"
)

// LexerConfig holds lexer configuration
type LexerConfig struct {
	OpenDelim  string // Opening delimiter (default: "((")
	CloseDelim string // Closing delimiter (default: "))")
}

// DefaultLexerConfig returns the default lexer configuration
func DefaultLexerConfig() LexerConfig {
	return LexerConfig{
		OpenDelim:  StrOpenDelim,
		CloseDelim: StrCloseDelim,
	}
}

// Lexer splits template source into text and directive tokens
type Lexer struct {
	source string
	config LexerConfig
	pos    int // Current byte position
	line   int // Current line (1-indexed)
	column int // Current column (1-indexed)
	logger *zap.Logger
}

// NewLexer creates a new lexer with default configuration
func NewLexer(source string, logger *zap.Logger) *Lexer {
	return NewLexerWithConfig(source, DefaultLexerConfig(), logger)
}

// NewLexerWithConfig creates a lexer with custom configuration
func NewLexerWithConfig(source string, config LexerConfig, logger *zap.Logger) *Lexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.OpenDelim == "" {
		config.OpenDelim = StrOpenDelim
	}
	if config.CloseDelim == "" {
		config.CloseDelim = StrCloseDelim
	}
	logger.Debug(LogMsgLexerCreated, zap.Int(LogFieldSource, len(source)))
	return &Lexer{
		source: source,
		config: config,
		pos:    0,
		line:   1,
		column: 1,
		logger: logger,
	}
}

// Tokenize processes the source and returns a token stream
func (l *Lexer) Tokenize() ([]Token, error) {
	l.logger.Debug(LogMsgTokenizerStart)
	var tokens []Token

	for !l.isAtEnd() {
		if l.matchStr(l.config.OpenDelim) {
			tok, err := l.scanDirective()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			continue
		}

		textToken := l.scanText()
		if textToken.Value != "" {
			tokens = append(tokens, textToken)
		}
	}

	tokens = append(tokens, NewEOFToken(l.currentPosition()))
	l.logger.Debug(LogMsgTokenizerEnd, zap.Int(LogFieldTokens, len(tokens)))
	return tokens, nil
}

// scanText scans text content until the next open delimiter
func (l *Lexer) scanText() Token {
	startPos := l.currentPosition()
	var sb strings.Builder

	for !l.isAtEnd() && !l.matchStr(l.config.OpenDelim) {
		sb.WriteByte(l.advance())
	}

	return NewTextToken(sb.String(), startPos)
}

// scanDirective consumes an open delimiter, the directive text and the
// close delimiter. The directive text is returned untrimmed.
func (l *Lexer) scanDirective() (Token, error) {
	startPos := l.currentPosition()
	l.advanceN(len(l.config.OpenDelim))

	var sb strings.Builder
	for !l.isAtEnd() {
		if l.matchStr(l.config.CloseDelim) {
			l.advanceN(len(l.config.CloseDelim))
			return NewDirectiveToken(sb.String(), startPos), nil
		}
		sb.WriteByte(l.advance())
	}

	return Token{}, &LexerError{
		Message:  ErrMsgUnterminatedTag,
		Position: startPos,
	}
}

// Helper methods

// currentPosition returns the current position
func (l *Lexer) currentPosition() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.column,
	}
}

// isAtEnd returns true if we've reached the end of source
func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.source)
}

// advance consumes and returns the current character
func (l *Lexer) advance() byte {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	l.pos++
	switch {
	case ch == CharNewline:
		l.line++
		l.column = 1
	case ch&utf8ContinuationMask != utf8ContinuationBits:
		// columns count characters, not bytes
		l.column++
	}
	return ch
}

// advanceN advances by n characters
func (l *Lexer) advanceN(n int) {
	for i := 0; i < n && !l.isAtEnd(); i++ {
		l.advance()
	}
}

// matchStr returns true if the remaining source starts with s
func (l *Lexer) matchStr(s string) bool {
	return strings.HasPrefix(l.source[l.pos:], s)
}

// LexerError represents a lexer error with position
type LexerError struct {
	Message  string
	Position Position
}

func (e *LexerError) Error() string {
	return e.Message + " at " + e.Position.String()
}
