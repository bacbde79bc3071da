package internal

// TokenType represents the type of a lexical token
type TokenType string

// Token type constants
const (
	TokenTypeText      TokenType = "TEXT"
	TokenTypeDirective TokenType = "DIRECTIVE"
	TokenTypeEOF       TokenType = "EOF"
)

// NodeType identifies AST node types
type NodeType int

// Node type constants
const (
	NodeTypeRoot NodeType = iota
	NodeTypeText
	NodeTypeDirective
	NodeTypeBlock
)

// Node type string names for debugging
const (
	NodeTypeNameRoot      = "ROOT"
	NodeTypeNameText      = "TEXT"
	NodeTypeNameDirective = "DIRECTIVE"
	NodeTypeNameBlock     = "BLOCK"
)

// String returns the string representation of the node type
func (n NodeType) String() string {
	switch n {
	case NodeTypeText:
		return NodeTypeNameText
	case NodeTypeDirective:
		return NodeTypeNameDirective
	case NodeTypeBlock:
		return NodeTypeNameBlock
	default:
		return NodeTypeNameRoot
	}
}

// Delimiters and block keywords of the directive grammar
const (
	StrOpenDelim  = "(("
	StrCloseDelim = "))"
	KeywordBegin  = "begin"
	KeywordEnd    = "end"
)

// Character constants
const (
	CharNewline = '\n'
	CharSpace   = ' '
)

// UTF-8 continuation bytes match 10xxxxxx
const (
	utf8ContinuationMask = 0xC0
	utf8ContinuationBits = 0x80
)

// Display limits for String() output
const (
	MaxStringDisplayLength = 40
	TruncatedStringLength  = 37
	TruncationSuffix       = "..."
)

// Log message constants
const (
	LogMsgLexerCreated   = "lexer created"
	LogMsgTokenizerStart = "starting tokenization"
	LogMsgTokenizerEnd   = "tokenization complete"
	LogMsgParserCreated  = "parser created"
	LogMsgParserStart    = "starting parse"
	LogMsgParserEnd      = "parse complete"
	LogMsgBlockOpened    = "block opened"
	LogMsgBlockClosed    = "block closed"
)

// Log field names
const (
	LogFieldSource = "source_length"
	LogFieldTokens = "token_count"
	LogFieldNodes  = "node_count"
	LogFieldTag    = "tag"
	LogFieldLine   = "line"
	LogFieldColumn = "column"
	LogFieldDepth  = "depth"
)

// Error message constants for the tokenizer and parser
const (
	ErrMsgUnterminatedTag = "unterminated directive"
	ErrMsgUnexpectedEnd   = "unexpected end directive"
	ErrMsgUnclosedBlock   = "unclosed block directive"
	ErrMsgUnexpectedToken = "unexpected token"
)
