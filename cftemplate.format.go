package cftemplate

import "strings"

// Format renders form as markup for insertion at pos. The first line
// continues the line the directive sits on; every later non-blank line is
// indented by pos.Column-1 spaces so nested content lines up under the
// directive.
func Format(form *Form, pos Position) string {
	markup := strings.TrimPrefix(StringifyMarkup(form), markupBlockSeparator)
	return reindent(markup, pos.Column-1)
}

func reindent(text string, width int) string {
	if width <= 0 || !strings.Contains(text, "\n") {
		return text
	}
	pad := strings.Repeat(" ", width)
	lines := strings.Split(text, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}
