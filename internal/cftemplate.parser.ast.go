package internal

import (
	"fmt"
	"strings"
)

// Node is the interface all AST nodes implement
type Node interface {
	// Type returns the node type identifier
	Type() NodeType
	// Pos returns the source position of this node
	Pos() Position
	// String returns a human-readable representation
	String() string
}

// RootNode is the top-level container for an AST
type RootNode struct {
	Children []Node
}

// Type returns NodeTypeRoot
func (n *RootNode) Type() NodeType {
	return NodeTypeRoot
}

// Pos returns the start of the source
func (n *RootNode) Pos() Position {
	return Position{Offset: 0, Line: 1, Column: 1}
}

// String returns a string representation of the root node
func (n *RootNode) String() string {
	var sb strings.Builder
	sb.WriteString("RootNode{\n")
	for i, child := range n.Children {
		sb.WriteString(fmt.Sprintf("  [%d] %s\n", i, child.String()))
	}
	sb.WriteString("}")
	return sb.String()
}

// TextNode represents literal text content
type TextNode struct {
	pos     Position
	Content string
}

// Type returns NodeTypeText
func (n *TextNode) Type() NodeType {
	return NodeTypeText
}

// Pos returns the source position
func (n *TextNode) Pos() Position {
	return n.pos
}

// String returns a string representation
func (n *TextNode) String() string {
	return fmt.Sprintf("TextNode{%q @ %s}", truncate(n.Content), n.pos)
}

// NewTextNode creates a new text node
func NewTextNode(content string, pos Position) *TextNode {
	return &TextNode{
		pos:     pos,
		Content: content,
	}
}

// DirectiveNode is a single (( tag )) occurrence.
// Tag is the trimmed directive text.
type DirectiveNode struct {
	pos Position
	Tag string
}

// Type returns NodeTypeDirective
func (n *DirectiveNode) Type() NodeType {
	return NodeTypeDirective
}

// Pos returns the position of the open delimiter
func (n *DirectiveNode) Pos() Position {
	return n.pos
}

// String returns a string representation
func (n *DirectiveNode) String() string {
	return fmt.Sprintf("DirectiveNode{%q @ %s}", truncate(n.Tag), n.pos)
}

// NewDirectiveNode creates a new directive node
func NewDirectiveNode(tag string, pos Position) *DirectiveNode {
	return &DirectiveNode{
		pos: pos,
		Tag: tag,
	}
}

// BlockNode is a (( tag begin )) ... (( end )) pair.
// Tag excludes the begin keyword; Children is the tokenized body.
type BlockNode struct {
	pos      Position
	Tag      string
	Children []Node
}

// Type returns NodeTypeBlock
func (n *BlockNode) Type() NodeType {
	return NodeTypeBlock
}

// Pos returns the position of the opening directive
func (n *BlockNode) Pos() Position {
	return n.pos
}

// String returns a string representation
func (n *BlockNode) String() string {
	return fmt.Sprintf("BlockNode{%q children=%d @ %s}", truncate(n.Tag), len(n.Children), n.pos)
}

// NewBlockNode creates a new block node
func NewBlockNode(tag string, children []Node, pos Position) *BlockNode {
	return &BlockNode{
		pos:      pos,
		Tag:      tag,
		Children: children,
	}
}

func truncate(s string) string {
	if len(s) > MaxStringDisplayLength {
		return s[:TruncatedStringLength] + TruncationSuffix
	}
	return s
}
