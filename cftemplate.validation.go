package cftemplate

import (
	"errors"
	"strings"
	"unicode"

	"github.com/itsatony/go-cftemplate/internal"
)

// ValidationSeverity ranks a validation finding
type ValidationSeverity int

// Validation severities
const (
	SeverityError ValidationSeverity = iota
	SeverityWarning
)

// Severity names
const (
	SeverityNameError   = "error"
	SeverityNameWarning = "warning"
)

// String returns the severity name
func (s ValidationSeverity) String() string {
	if s == SeverityWarning {
		return SeverityNameWarning
	}
	return SeverityNameError
}

// ValidationResult contains the results of template validation.
type ValidationResult struct {
	issues []ValidationIssue
}

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Severity  ValidationSeverity
	Message   string
	Position  Position
	Directive string
	Kind      DirectiveKind
}

// Issues returns all validation issues found.
func (r *ValidationResult) Issues() []ValidationIssue {
	return r.issues
}

// Errors returns only issues with error severity.
func (r *ValidationResult) Errors() []ValidationIssue {
	var errs []ValidationIssue
	for _, issue := range r.issues {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	return errs
}

// Warnings returns only issues with warning severity.
func (r *ValidationResult) Warnings() []ValidationIssue {
	var warnings []ValidationIssue
	for _, issue := range r.issues {
		if issue.Severity == SeverityWarning {
			warnings = append(warnings, issue)
		}
	}
	return warnings
}

// HasErrors returns true if there are any error-severity issues.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors()) > 0
}

// HasWarnings returns true if there are any warning-severity issues.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings()) > 0
}

// IsValid returns true if there are no error-severity issues.
func (r *ValidationResult) IsValid() bool {
	return !r.HasErrors()
}

func (r *ValidationResult) add(severity ValidationSeverity, msg string, d Directive, pos Position) {
	r.issues = append(r.issues, ValidationIssue{
		Severity:  severity,
		Message:   msg,
		Position:  pos,
		Directive: d.Text,
		Kind:      d.Kind,
	})
}

// Validate tokenizes a template and classifies every directive without
// touching files or the network. Grammar errors are reported as a single
// error-severity issue.
func (e *Engine) Validate(template string) (*ValidationResult, error) {
	result := &ValidationResult{
		issues: make([]ValidationIssue, 0),
	}

	root, err := e.parseRaw(template)
	if err != nil {
		msg, pos := syntaxIssue(err)
		result.issues = append(result.issues, ValidationIssue{
			Severity: SeverityError,
			Message:  ErrMsgTemplateSyntax + ": " + msg,
			Position: pos,
		})
		return result, nil
	}

	e.validateNodes(root.Children, result)
	return result, nil
}

// validateNodes recursively validates a slice of nodes.
func (e *Engine) validateNodes(nodes []internal.Node, result *ValidationResult) {
	for _, node := range nodes {
		switch n := node.(type) {
		case *internal.DirectiveNode:
			e.validateDirective(n.Tag, positionFromInternal(n.Pos()), false, result)
		case *internal.BlockNode:
			e.validateDirective(n.Tag, positionFromInternal(n.Pos()), true, result)
			e.validateNodes(n.Children, result)
		}
	}
}

func (e *Engine) validateDirective(tag string, pos Position, block bool, result *ValidationResult) {
	d := Classify(tag)

	switch {
	case d.Kind == DirectiveInvalid:
		result.add(SeverityError, ErrMsgInvalidDirective+" "+d.Text+keywordSuggestion(d.Text), d, pos)
		return
	case block && !d.Kind.IsConditional():
		result.add(SeverityError, ErrMsgBlockNotConditional, d, pos)
		return
	case !block && d.Kind.IsConditional():
		result.add(SeverityError, ErrMsgConditionalNoBlock, d, pos)
		return
	}

	switch d.Kind {
	case DirectiveRequire:
		if len(strings.Fields(d.Text)) > 2 {
			result.add(SeverityWarning, WarnMsgRequireExtraText, d, pos)
		}
	case DirectiveIf, DirectiveUnless:
		if strings.ContainsFunc(d.Variable, unicode.IsSpace) {
			result.add(SeverityWarning, WarnMsgVariableWhitespace, d, pos)
		}
	}
}

var directiveKeywords = []string{KeywordRequire, KeywordIf, KeywordUnless}

// keywordSuggestion hints at the keyword a misspelled directive was meant to use
func keywordSuggestion(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return internal.FormatSuggestions(internal.FindSimilarStrings(fields[0], directiveKeywords, SuggestionMaxCount))
}

// syntaxIssue splits a tokenizer or parser error into message and position
func syntaxIssue(err error) (string, Position) {
	var lexErr *internal.LexerError
	var parseErr *internal.ParserError
	switch {
	case errors.As(err, &lexErr):
		return lexErr.Message, positionFromInternal(lexErr.Position)
	case errors.As(err, &parseErr):
		return parseErr.Message, positionFromInternal(parseErr.Position)
	}
	return err.Error(), Position{}
}
