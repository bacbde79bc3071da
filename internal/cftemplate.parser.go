package internal

import (
	"strings"

	"go.uber.org/zap"
)

// Parser produces an AST from a token stream
type Parser struct {
	tokens []Token
	pos    int
	logger *zap.Logger
}

// NewParser creates a new parser for the given token stream
func NewParser(tokens []Token, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug(LogMsgParserCreated, zap.Int(LogFieldTokens, len(tokens)))
	return &Parser{
		tokens: tokens,
		pos:    0,
		logger: logger,
	}
}

// Parse produces the AST root node from the token stream
func (p *Parser) Parse() (*RootNode, error) {
	p.logger.Debug(LogMsgParserStart)

	nodes, closer, err := p.parseNodes(0)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		return nil, &ParserError{Message: ErrMsgUnexpectedEnd, Position: closer.Position}
	}

	root := &RootNode{Children: nodes}
	p.logger.Debug(LogMsgParserEnd, zap.Int(LogFieldNodes, len(nodes)))
	return root, nil
}

// parseNodes parses nodes until EOF or an end directive. The end directive,
// when found, is consumed and returned so the caller can match it.
func (p *Parser) parseNodes(depth int) ([]Node, *Token, error) {
	var nodes []Node

	for !p.isAtEnd() {
		tok := p.advance()

		switch tok.Type {
		case TokenTypeText:
			nodes = append(nodes, NewTextNode(tok.Value, tok.Position))

		case TokenTypeDirective:
			tag := strings.TrimSpace(tok.Value)
			if tag == KeywordEnd {
				return nodes, &tok, nil
			}
			if blockTag, ok := splitBlockTag(tag); ok {
				block, err := p.parseBlock(blockTag, tok.Position, depth+1)
				if err != nil {
					return nil, nil, err
				}
				nodes = append(nodes, block)
				continue
			}
			nodes = append(nodes, NewDirectiveNode(tag, tok.Position))

		default:
			return nil, nil, &ParserError{Message: ErrMsgUnexpectedToken, Position: tok.Position}
		}
	}

	return nodes, nil, nil
}

// parseBlock parses a block body up to its matching end directive
func (p *Parser) parseBlock(tag string, pos Position, depth int) (*BlockNode, error) {
	p.logger.Debug(LogMsgBlockOpened,
		zap.String(LogFieldTag, tag),
		zap.Int(LogFieldLine, pos.Line),
		zap.Int(LogFieldColumn, pos.Column),
		zap.Int(LogFieldDepth, depth))

	children, closer, err := p.parseNodes(depth)
	if err != nil {
		return nil, err
	}
	if closer == nil {
		return nil, &ParserError{Message: ErrMsgUnclosedBlock, Position: pos}
	}

	p.logger.Debug(LogMsgBlockClosed, zap.String(LogFieldTag, tag), zap.Int(LogFieldDepth, depth))
	return NewBlockNode(tag, children, pos), nil
}

// splitBlockTag reports whether tag opens a block, i.e. its last word is
// the begin keyword, and returns the tag without that keyword.
func splitBlockTag(tag string) (string, bool) {
	if tag == KeywordBegin {
		return "", true
	}
	idx := strings.LastIndexAny(tag, " \t\r\n")
	if idx < 0 || tag[idx+1:] != KeywordBegin {
		return "", false
	}
	return strings.TrimSpace(tag[:idx]), true
}

// Helper methods

// isAtEnd returns true at the EOF token
func (p *Parser) isAtEnd() bool {
	return p.pos >= len(p.tokens) || p.tokens[p.pos].IsEOF()
}

// advance consumes and returns the current token
func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	p.pos++
	return tok
}

// ParserError represents a parser error with position
type ParserError struct {
	Message  string
	Position Position
}

func (e *ParserError) Error() string {
	return e.Message + " at " + e.Position.String()
}

// Parse tokenizes and parses source in one step.
func Parse(source string, logger *zap.Logger) (*RootNode, error) {
	tokens, err := NewLexer(source, logger).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewParser(tokens, logger).Parse()
}
