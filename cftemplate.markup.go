package cftemplate

import (
	"strings"
)

// StringifyMarkup serializes a form to Common Form markup. Every block,
// including the first, is preceded by a blank line.
//
// A child begins with a marker at its parent's indentation: \\ without a
// heading, \Heading\ with one, followed by !! when the child is
// conspicuous. Later blocks of the child are indented four spaces deeper.
func StringifyMarkup(form *Form) string {
	var sb strings.Builder
	if form != nil {
		writeMarkupForm(&sb, form, 0, "")
	}
	return sb.String()
}

func writeMarkupForm(sb *strings.Builder, form *Form, depth int, marker string) {
	indent := strings.Repeat(markupIndent, depth)
	markerIndent := strings.Repeat(markupIndent, max(depth-1, 0))
	pending := marker
	content := form.Content

	for i := 0; i < len(content); {
		if content[i].IsInline() {
			j := i
			for j < len(content) && content[j].IsInline() {
				j++
			}
			sb.WriteString(markupBlockSeparator)
			if pending != "" {
				sb.WriteString(markerIndent)
				sb.WriteString(pending)
				sb.WriteByte(' ')
				pending = ""
			} else {
				sb.WriteString(indent)
			}
			writeMarkupInline(sb, content[i:j])
			i = j
			continue
		}

		if pending != "" {
			sb.WriteString(markupBlockSeparator)
			sb.WriteString(markerIndent)
			sb.WriteString(pending)
			pending = ""
		}
		child := content[i].Child
		writeMarkupForm(sb, child.Form, depth+1, childMarker(child))
		i++
	}

	if pending != "" {
		sb.WriteString(markupBlockSeparator)
		sb.WriteString(markerIndent)
		sb.WriteString(pending)
	}
}

func childMarker(child *Child) string {
	marker := string(markupChildMarker) + child.Heading + string(markupChildMarker)
	if child.Form.Conspicuous == ConspicuousYes {
		marker += markupConspicuousMark
	}
	return marker
}

func writeMarkupInline(sb *strings.Builder, elements []Element) {
	for i, el := range elements {
		switch el.Type {
		case ElementText:
			nextIsDefinition := i+1 < len(elements) && elements[i+1].Type == ElementDefinition
			sb.WriteString(escapeMarkupText(el.Value, nextIsDefinition))
		case ElementUse:
			sb.WriteByte(markupUseOpen)
			sb.WriteString(el.Value)
			sb.WriteByte(markupUseClose)
		case ElementDefinition:
			sb.WriteString(markupDefinitionDelim)
			sb.WriteString(el.Value)
			sb.WriteString(markupDefinitionDelim)
		case ElementReference:
			sb.WriteByte(markupReferenceOpen)
			sb.WriteString(el.Value)
			sb.WriteByte(markupReferenceClose)
		case ElementBlank:
			sb.WriteByte(markupBlankOpen)
			sb.WriteString(el.Value)
			sb.WriteByte(markupBlankClose)
		}
	}
}

func isMarkupEscapable(c byte) bool {
	switch c {
	case markupEscape, markupUseOpen, markupUseClose,
		markupReferenceOpen, markupReferenceClose,
		markupBlankOpen, markupBlankClose, '"':
		return true
	}
	return false
}

// escapeMarkupText escapes markup syntax characters. A quote is escaped
// only where it would otherwise pair with the next one into "".
func escapeMarkupText(s string, beforeDefinition bool) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			last := i == len(s)-1
			if last && beforeDefinition {
				sb.WriteByte(markupEscape)
			}
			sb.WriteByte(c)
			if !last && s[i+1] == '"' {
				sb.WriteByte(markupEscape)
			}
			continue
		}
		if isMarkupEscapable(c) {
			sb.WriteByte(markupEscape)
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// ParseMarkup parses Common Form markup into a form
func ParseMarkup(text string) (*Form, error) {
	root := &Form{}
	stack := []*Form{root}

	type openChild struct {
		form *Form
		pos  Position
	}
	var children []openChild

	offset := 0
	for i, raw := range strings.Split(text, "\n") {
		lineOffset := offset
		offset += len(raw) + 1

		line := strings.TrimRight(raw, " \t\r")
		if line == "" {
			continue
		}

		lineNo := i + 1
		spaces := len(line) - len(strings.TrimLeft(line, " "))
		pos := Position{Offset: lineOffset + spaces, Line: lineNo, Column: spaces + 1}
		if spaces%markupIndentWidth != 0 {
			return nil, NewMarkupError(ErrMsgInvalidIndentation, pos)
		}
		depth := spaces / markupIndentWidth
		rest := line[spaces:]

		if heading, after, ok := cutChildMarker(rest); ok {
			if depth >= len(stack) {
				return nil, NewMarkupError(ErrMsgUnexpectedIndent, pos)
			}
			child := &Form{}
			if strings.HasPrefix(after, markupConspicuousMark) {
				child.Conspicuous = ConspicuousYes
				after = after[len(markupConspicuousMark):]
			}
			after = strings.TrimPrefix(after, " ")

			parent := stack[depth]
			parent.Content = append(parent.Content, NewChild(heading, child))
			stack = append(stack[:depth+1], child)
			children = append(children, openChild{form: child, pos: pos})

			textPos := pos
			textPos.Column += len(rest) - len(after)
			textPos.Offset += len(rest) - len(after)
			elements, err := parseMarkupInline(after, textPos)
			if err != nil {
				return nil, err
			}
			child.appendInline(elements)
			continue
		}

		if depth >= len(stack) {
			return nil, NewMarkupError(ErrMsgUnexpectedIndent, pos)
		}
		stack = stack[:depth+1]
		elements, err := parseMarkupInline(rest, pos)
		if err != nil {
			return nil, err
		}
		stack[depth].appendInline(elements)
	}

	for _, c := range children {
		if len(c.form.Content) == 0 {
			return nil, NewMarkupError(ErrMsgEmptyChildForm, c.pos)
		}
	}
	return root, nil
}

// cutChildMarker recognizes \\ and \Heading\ at the start of a line. The
// marker must end the line or be followed by a space or !!.
func cutChildMarker(line string) (heading, rest string, ok bool) {
	if len(line) < 2 || line[0] != markupChildMarker {
		return "", "", false
	}
	for i := 1; i < len(line); i++ {
		c := line[i]
		if c == markupChildMarker {
			rest = line[i+1:]
			if rest != "" && rest[0] != ' ' && !strings.HasPrefix(rest, markupConspicuousMark) {
				return "", "", false
			}
			return line[1:i], rest, true
		}
		if isMarkupEscapable(c) {
			return "", "", false
		}
	}
	return "", "", false
}

func parseMarkupInline(s string, pos Position) ([]Element, error) {
	var elements []Element
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			elements = append(elements, Text(text.String()))
			text.Reset()
		}
	}
	errAt := func(msg string, i int) error {
		p := pos
		p.Column += i
		p.Offset += i
		return NewMarkupError(msg, p)
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == markupEscape && i+1 < len(s) && isMarkupEscapable(s[i+1]):
			text.WriteByte(s[i+1])
			i += 2

		case strings.HasPrefix(s[i:], markupDefinitionDelim):
			start := i + len(markupDefinitionDelim)
			end := strings.Index(s[start:], markupDefinitionDelim)
			if end < 0 {
				return nil, errAt(ErrMsgUnterminatedInline, i)
			}
			if end == 0 {
				return nil, errAt(ErrMsgEmptyInline, i)
			}
			flush()
			elements = append(elements, Definition(s[start:start+end]))
			i = start + end + len(markupDefinitionDelim)

		case c == markupUseOpen || c == markupReferenceOpen || c == markupBlankOpen:
			closer := inlineCloser(c)
			end := strings.IndexByte(s[i+1:], closer)
			if end < 0 {
				return nil, errAt(ErrMsgUnterminatedInline, i)
			}
			value := s[i+1 : i+1+end]
			if value == "" && c != markupBlankOpen {
				return nil, errAt(ErrMsgEmptyInline, i)
			}
			flush()
			elements = append(elements, inlineElement(c, value))
			i += end + 2

		default:
			text.WriteByte(c)
			i++
		}
	}
	flush()
	return elements, nil
}

func inlineCloser(open byte) byte {
	switch open {
	case markupUseOpen:
		return markupUseClose
	case markupReferenceOpen:
		return markupReferenceClose
	default:
		return markupBlankClose
	}
}

func inlineElement(open byte, value string) Element {
	switch open {
	case markupUseOpen:
		return Use(value)
	case markupReferenceOpen:
		return Reference(value)
	default:
		return Blank(value)
	}
}
