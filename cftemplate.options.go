package cftemplate

import (
	"go.uber.org/zap"
)

// Option is a functional option for configuring the Engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an Engine.
type engineConfig struct {
	openDelim        string
	closeDelim       string
	fetcher          FormFetcher
	files            FileSystem
	maxDepth         int
	positionedErrors bool
	detectCycles     bool
	logger           *zap.Logger
}

// defaultEngineConfig returns the default engine configuration.
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		openDelim:  DirectiveOpenDelim,
		closeDelim: DirectiveCloseDelim,
		files:      OSFileSystem{},
		maxDepth:   DefaultMaxDepth,
	}
}

// WithDelimiters sets custom directive delimiters.
// Default: "((" and "))"
func WithDelimiters(open, close string) Option {
	return func(c *engineConfig) {
		if open != "" {
			c.openDelim = open
		}
		if close != "" {
			c.closeDelim = close
		}
	}
}

// WithFetcher sets the source of forms for digest and publication directives.
// Default: an HTTPFetcher for api.commonform.org
func WithFetcher(fetcher FormFetcher) Option {
	return func(c *engineConfig) {
		c.fetcher = fetcher
	}
}

// WithFileSystem sets the file access used by require directives.
// Default: OSFileSystem
func WithFileSystem(files FileSystem) Option {
	return func(c *engineConfig) {
		if files != nil {
			c.files = files
		}
	}
}

// WithMaxDepth bounds how deeply required templates may nest.
// Use 0 for unlimited depth.
// Default: 0 (unlimited)
func WithMaxDepth(depth int) Option {
	return func(c *engineConfig) {
		c.maxDepth = depth
	}
}

// WithPositionedErrors attaches the directive position to every resolution
// error, not only to invalid directives, failed requires and failed
// publication lookups.
// Default: false
func WithPositionedErrors(enabled bool) Option {
	return func(c *engineConfig) {
		c.positionedErrors = enabled
	}
}

// WithCycleDetection fails a require that re-enters a template already
// being expanded instead of recursing until the depth limit.
// Default: false
func WithCycleDetection(enabled bool) Option {
	return func(c *engineConfig) {
		c.detectCycles = enabled
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}
