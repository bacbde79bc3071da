package cftemplate

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/itsatony/go-cftemplate/internal"
	"go.uber.org/zap"
)

// requireExtensions lists the file kinds a require target may name, in
// lookup order
var requireExtensions = []string{ExtTemplate, ExtMarkup, ExtJSON}

// directiveToken is one directive occurrence in a template
type directiveToken struct {
	tag   string
	pos   Position
	block bool
	body  []internal.Node
}

// resolveDirective classifies a directive and produces its replacement text
func (e *Engine) resolveDirective(ctx context.Context, tok directiveToken, s scope) (string, error) {
	d := Classify(tok.tag)

	e.logger.Debug(LogMsgDirectiveResolving,
		zap.String(LogFieldDirective, d.Text),
		zap.Stringer(LogFieldKind, d.Kind),
		zap.Int(LogFieldLine, tok.pos.Line),
		zap.Int(LogFieldColumn, tok.pos.Column),
		zap.Int(LogFieldDepth, s.depth))

	if d.Kind != DirectiveInvalid {
		if tok.block && !d.Kind.IsConditional() {
			return "", NewMisplacedDirectiveError(ErrMsgBlockNotConditional, d.Text, tok.pos)
		}
		if !tok.block && d.Kind.IsConditional() {
			return "", NewMisplacedDirectiveError(ErrMsgConditionalNoBlock, d.Text, tok.pos)
		}
	}

	switch d.Kind {
	case DirectiveDigest:
		return e.resolveDigest(ctx, d, tok.pos)
	case DirectivePublication:
		return e.resolvePublication(ctx, d, tok.pos)
	case DirectiveRequire:
		return e.resolveRequire(ctx, d, tok.pos, s)
	case DirectiveIf:
		return e.resolveConditional(ctx, d, tok, s, s.vars.Truthy(d.Variable))
	case DirectiveUnless:
		return e.resolveConditional(ctx, d, tok, s, !s.vars.Truthy(d.Variable))
	default:
		return "", NewInvalidDirectiveError(d.Text, tok.pos)
	}
}

func (e *Engine) resolveDigest(ctx context.Context, d Directive, pos Position) (string, error) {
	form, err := e.fetcher.FetchForm(ctx, d.Digest)
	if err != nil {
		return "", e.position(d.Text, pos, err)
	}
	e.logResolved(d, pos)
	return Format(form, pos), nil
}

func (e *Engine) resolvePublication(ctx context.Context, d Directive, pos Position) (string, error) {
	ref := d.Publication
	pub, err := e.fetcher.FetchPublication(ctx, ref.Publisher, ref.Project, ref.Edition)
	if err != nil {
		return "", NewPublicationLookupError(ref, pos, err)
	}
	form, err := e.fetcher.FetchForm(ctx, pub.Digest)
	if err != nil {
		return "", e.position(d.Text, pos, err)
	}
	e.logResolved(d, pos)
	return Format(form, pos), nil
}

// findRequire returns the first readable candidate for target under base
func (e *Engine) findRequire(target, base string) (path, ext string, ok bool) {
	for _, ext := range requireExtensions {
		candidate := filepath.Join(base, target+ext)
		e.logger.Debug(LogMsgRequireCandidate, zap.String(LogFieldPath, candidate))
		if e.files.Readable(candidate) {
			return candidate, ext, true
		}
	}
	return "", "", false
}

func (e *Engine) resolveRequire(ctx context.Context, d Directive, pos Position, s scope) (string, error) {
	path, ext, ok := e.findRequire(d.Target, s.base)
	if !ok {
		return "", NewCouldNotRequireError(requireDisplayTarget(d.Target), pos)
	}
	e.logger.Debug(LogMsgRequireFound, zap.String(LogFieldPath, path))

	var form *Form
	switch ext {
	case ExtTemplate:
		markup, err := e.expandRequired(ctx, d.Text, path, pos, s)
		if err != nil {
			return "", err
		}
		form, err = ParseMarkup(markup)
		if err != nil {
			return "", NewTemplateOutputError(path, err)
		}

	case ExtMarkup:
		data, err := e.files.ReadFile(path)
		if err != nil {
			return "", e.position(d.Text, pos, NewReadError(path, err))
		}
		form, err = ParseMarkup(string(data))
		if err != nil {
			return "", err
		}

	default:
		data, err := e.files.ReadFile(path)
		if err != nil {
			return "", e.position(d.Text, pos, NewReadError(path, err))
		}
		form, err = ParseFormJSON(data)
		if err != nil {
			return "", e.position(d.Text, pos, err)
		}
	}

	e.logResolved(d, pos)
	return Format(form, pos), nil
}

// expandRequired executes a required template one level deeper, with base
// set to the directory that contains it. directive is the requiring
// directive's text as written.
func (e *Engine) expandRequired(ctx context.Context, directive, path string, pos Position, s scope) (string, error) {
	if e.config.maxDepth > 0 && s.depth+1 > e.config.maxDepth {
		return "", NewMaxDepthExceededError(e.config.maxDepth, pos)
	}

	clean := cleanPath(path)
	if e.config.detectCycles && slices.Contains(s.chain, clean) {
		return "", NewCircularRequireError(clean, append(slices.Clone(s.chain), clean), pos)
	}

	data, err := e.files.ReadFile(path)
	if err != nil {
		return "", e.position(directive, pos, NewReadError(path, err))
	}

	e.logger.Debug(LogMsgRequireRecurse,
		zap.String(LogFieldPath, path),
		zap.Int(LogFieldDepth, s.depth+1))

	child := scope{
		base:  filepath.Dir(path),
		vars:  s.vars,
		chain: append(slices.Clone(s.chain), clean),
		depth: s.depth + 1,
	}
	return e.execute(ctx, string(data), child)
}

func (e *Engine) resolveConditional(ctx context.Context, d Directive, tok directiveToken, s scope, include bool) (string, error) {
	if !include {
		e.logger.Debug(LogMsgConditionSkipped,
			zap.String(LogFieldVariable, d.Variable),
			zap.Int(LogFieldLine, tok.pos.Line))
		return "", nil
	}
	return e.resolveNodes(ctx, tok.body, s)
}

// position attaches the directive position to err when positioned errors
// are enabled and err carries no position of its own
func (e *Engine) position(directive string, pos Position, err error) error {
	if !e.config.positionedErrors {
		return err
	}
	if _, ok := ErrorPosition(err); ok {
		return err
	}
	return NewPositionedError(directive, pos, err)
}

func (e *Engine) logResolved(d Directive, pos Position) {
	e.logger.Debug(LogMsgDirectiveResolved,
		zap.Stringer(LogFieldKind, d.Kind),
		zap.Int(LogFieldLine, pos.Line),
		zap.Int(LogFieldColumn, pos.Column))
}

// requireDisplayTarget renders a target relative to the requiring template
func requireDisplayTarget(target string) string {
	return "./" + target
}
