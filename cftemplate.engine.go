package cftemplate

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/itsatony/go-cftemplate/internal"
	"go.uber.org/zap"
)

// Engine resolves directive templates into Common Form markup.
// An Engine is immutable after New and safe for concurrent use.
type Engine struct {
	config  *engineConfig
	fetcher FormFetcher
	files   FileSystem
	logger  *zap.Logger
}

// scope is the state of one template expansion. It is passed by value so
// recursive calls never share mutable state.
type scope struct {
	base  string
	vars  Context
	chain []string
	depth int
}

// New creates an Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	config := defaultEngineConfig()
	for _, opt := range opts {
		opt(config)
	}

	if config.maxDepth < 0 {
		return nil, NewInvalidOptionError(ErrMsgNegativeMaxDepth)
	}

	logger := config.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fetcher := config.fetcher
	if fetcher == nil {
		httpFetcher, err := NewHTTPFetcher(HTTPConfig{Logger: logger})
		if err != nil {
			return nil, err
		}
		fetcher = httpFetcher
	}

	logger.Debug(LogMsgEngineCreated,
		zap.Int(LogFieldMaxDepth, config.maxDepth),
		zap.Bool(LogFieldPositionedErrors, config.positionedErrors),
		zap.Bool(LogFieldDetectCycles, config.detectCycles))

	return &Engine{
		config:  config,
		fetcher: fetcher,
		files:   config.files,
		logger:  logger,
	}, nil
}

// MustNew creates a new Engine and panics if there's an error.
func MustNew(opts ...Option) *Engine {
	engine, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return engine
}

// MaxDepth returns the configured maximum template nesting depth
func (e *Engine) MaxDepth() int {
	return e.config.maxDepth
}

// parse tokenizes template into directive and block nodes
func (e *Engine) parse(template string) (*internal.RootNode, error) {
	root, err := e.parseRaw(template)
	if err != nil {
		return nil, NewTemplateSyntaxError(err)
	}
	return root, nil
}

// parseRaw returns the tokenizer or parser error unwrapped
func (e *Engine) parseRaw(template string) (*internal.RootNode, error) {
	lexerConfig := internal.LexerConfig{
		OpenDelim:  e.config.openDelim,
		CloseDelim: e.config.closeDelim,
	}
	tokens, err := internal.NewLexerWithConfig(template, lexerConfig, e.logger).Tokenize()
	if err != nil {
		return nil, err
	}
	return internal.NewParser(tokens, e.logger).Parse()
}

// Execute resolves every directive in template and returns the resulting
// markup. Required files are looked up relative to base. vars decides
// conditional directives and is never modified.
func (e *Engine) Execute(ctx context.Context, template, base string, vars Context) (string, error) {
	return e.run(ctx, template, scope{base: base, vars: vars})
}

// ExecuteFile reads and executes the template at path, resolving requires
// relative to the directory containing it.
func (e *Engine) ExecuteFile(ctx context.Context, path string, vars Context) (string, error) {
	data, err := e.files.ReadFile(path)
	if err != nil {
		return "", NewReadError(path, err)
	}
	s := scope{
		base:  filepath.Dir(path),
		vars:  vars,
		chain: []string{cleanPath(path)},
	}
	return e.run(ctx, string(data), s)
}

// ExecuteForm executes template and parses the output as markup
func (e *Engine) ExecuteForm(ctx context.Context, template, base string, vars Context) (*Form, error) {
	out, err := e.Execute(ctx, template, base, vars)
	if err != nil {
		return nil, err
	}
	form, err := ParseMarkup(out)
	if err != nil {
		return nil, NewTemplateOutputError("", err)
	}
	return form, nil
}

func (e *Engine) run(ctx context.Context, template string, s scope) (string, error) {
	e.logger.Debug(LogMsgExecuteStart,
		zap.String(LogFieldBase, s.base),
		zap.Int(LogFieldLength, len(template)))

	out, err := e.execute(ctx, template, s)
	if err != nil {
		return "", err
	}

	e.logger.Debug(LogMsgExecuteEnd, zap.Int(LogFieldLength, len(out)))
	return out, nil
}

// execute tokenizes and resolves one template at the given scope
func (e *Engine) execute(ctx context.Context, template string, s scope) (string, error) {
	root, err := e.parse(template)
	if err != nil {
		return "", err
	}
	return e.resolveNodes(ctx, root.Children, s)
}

// resolveNodes concatenates text and resolved directives in document
// order. It serves top-level templates, required templates and
// conditional bodies alike. The first failure aborts with no output.
func (e *Engine) resolveNodes(ctx context.Context, nodes []internal.Node, s scope) (string, error) {
	var sb strings.Builder
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		switch n := node.(type) {
		case *internal.TextNode:
			sb.WriteString(n.Content)

		case *internal.DirectiveNode:
			out, err := e.resolveDirective(ctx, directiveToken{
				tag: n.Tag,
				pos: positionFromInternal(n.Pos()),
			}, s)
			if err != nil {
				return "", err
			}
			sb.WriteString(out)

		case *internal.BlockNode:
			out, err := e.resolveDirective(ctx, directiveToken{
				tag:   n.Tag,
				pos:   positionFromInternal(n.Pos()),
				block: true,
				body:  n.Children,
			}, s)
			if err != nil {
				return "", err
			}
			sb.WriteString(out)
		}
	}
	return sb.String(), nil
}
