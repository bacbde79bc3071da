package cftemplate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/itsatony/go-cuserr"
	"github.com/itsatony/go-cftemplate/internal"
)

// Position represents a location in a template or markup source
type Position struct {
	Offset int // Byte offset from start
	Line   int // 1-indexed line number
	Column int // 1-indexed column number
}

// String returns a human-readable position string
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// IsZero reports whether the position is unset
func (p Position) IsZero() bool {
	return p.Line == 0 && p.Column == 0
}

func positionFromInternal(p internal.Position) Position {
	return Position{Offset: p.Offset, Line: p.Line, Column: p.Column}
}

// newNotFoundError keeps msg as the error text and marks the error for IsNotFound
func newNotFoundError(msg string) *cuserr.CustomError {
	return cuserr.NewCustomError(cuserr.ErrNotFound, nil, msg).
		WithMetadata(MetaKeyNotFound, "true")
}

// positioned appends " at line N, column M" to msg
func positioned(msg string, pos Position) string {
	return msg + " at " + pos.String()
}

func withPosition(err *cuserr.CustomError, pos Position) *cuserr.CustomError {
	return err.
		WithMetadata(MetaKeyLine, strconv.Itoa(pos.Line)).
		WithMetadata(MetaKeyColumn, strconv.Itoa(pos.Column)).
		WithMetadata(MetaKeyOffset, strconv.Itoa(pos.Offset))
}

// NewInvalidDirectiveError creates an error naming unrecognized directive text
func NewInvalidDirectiveError(directive string, pos Position) error {
	msg := positioned(ErrMsgInvalidDirective+" "+directive, pos)
	return withPosition(cuserr.NewValidationError(ErrCodeDirective, msg), pos).
		WithMetadata(MetaKeyDirective, directive)
}

// NewMisplacedDirectiveError creates an error for a directive used with the
// wrong form: a conditional without a block, or a block on anything else.
func NewMisplacedDirectiveError(reason, directive string, pos Position) error {
	msg := positioned(ErrMsgInvalidDirective+" "+directive+": "+reason, pos)
	return withPosition(cuserr.NewValidationError(ErrCodeDirective, msg), pos).
		WithMetadata(MetaKeyDirective, directive)
}

// NewCouldNotRequireError creates an error for a require target with no matching file
func NewCouldNotRequireError(target string, pos Position) error {
	msg := positioned(ErrMsgCouldNotRequire+" "+target, pos)
	return withPosition(newNotFoundError(msg), pos).
		WithMetadata(MetaKeyTarget, target)
}

// NewCircularRequireError creates an error for a template that requires itself
func NewCircularRequireError(path string, chain []string, pos Position) error {
	msg := positioned(ErrMsgCircularRequire+" "+path, pos)
	return withPosition(cuserr.NewValidationError(ErrCodeRequire, msg), pos).
		WithMetadata(MetaKeyPath, path).
		WithMetadata(MetaKeyChain, strings.Join(chain, " -> "))
}

// NewMaxDepthExceededError creates an error for template nesting beyond the limit
func NewMaxDepthExceededError(maxDepth int, pos Position) error {
	msg := positioned(ErrMsgMaxDepthExceeded, pos)
	return withPosition(cuserr.NewValidationError(ErrCodeRequire, msg), pos).
		WithMetadata(MetaKeyMaxDepth, strconv.Itoa(maxDepth))
}

// NewReadError wraps a local I/O failure
func NewReadError(path string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeIO, ErrMsgReadFailed+" "+path).
		WithMetadata(MetaKeyPath, path)
}

// NewTemplateSyntaxError wraps a tokenizer or parser failure
func NewTemplateSyntaxError(cause error) error {
	var lexErr *internal.LexerError
	var parseErr *internal.ParserError
	switch {
	case errors.As(cause, &lexErr):
		return newSyntaxError(cause, lexErr.Message, positionFromInternal(lexErr.Position))
	case errors.As(cause, &parseErr):
		return newSyntaxError(cause, parseErr.Message, positionFromInternal(parseErr.Position))
	default:
		return cuserr.WrapStdError(cause, ErrCodeTemplate, ErrMsgTemplateSyntax)
	}
}

func newSyntaxError(cause error, detail string, pos Position) error {
	msg := positioned(ErrMsgTemplateSyntax+": "+detail, pos)
	return withPosition(cuserr.WrapStdError(cause, ErrCodeTemplate, msg), pos)
}

// NewTemplateOutputError wraps a failure to parse the markup a template
// produced. path is empty for a top-level template.
func NewTemplateOutputError(path string, cause error) error {
	msg := ErrMsgTemplateOutput
	if path != "" {
		msg += " " + path
	}
	err := cuserr.WrapStdError(cause, ErrCodeParse, msg)
	if path != "" {
		err = err.WithMetadata(MetaKeyPath, path)
	}
	return err
}

// NewInvalidOptionError creates an error for an unusable engine option
func NewInvalidOptionError(msg string) error {
	return cuserr.NewValidationError(ErrCodeTemplate, msg)
}

// NewPublicationLookupError annotates a publication lookup failure with the
// position of the directive that asked for it
func NewPublicationLookupError(ref PublicationRef, pos Position, cause error) error {
	msg := positioned(ErrMsgPublicationLookup+" "+ref.String()+": "+cause.Error(), pos)
	return withPosition(cuserr.WrapStdError(cause, ErrCodeFetch, msg), pos).
		WithMetadata(MetaKeyPublisher, ref.Publisher).
		WithMetadata(MetaKeyProject, ref.Project).
		WithMetadata(MetaKeyEdition, ref.Edition)
}

// NewPositionedError annotates any error with a directive position. Used
// when WithPositionedErrors is enabled.
func NewPositionedError(directive string, pos Position, cause error) error {
	msg := positioned(cause.Error(), pos)
	return withPosition(cuserr.WrapStdError(cause, ErrCodeDirective, msg), pos).
		WithMetadata(MetaKeyDirective, directive)
}

// NewFormNotFoundError creates an error for an unknown digest
func NewFormNotFoundError(digest string) error {
	return newNotFoundError(ErrMsgFormNotFound+" "+digest).
		WithMetadata(MetaKeyDigest, digest)
}

// NewPublicationNotFoundError creates an error for unknown publication coordinates
func NewPublicationNotFoundError(ref PublicationRef) error {
	return newNotFoundError(ErrMsgPublicationNotFound+" "+ref.String()).
		WithMetadata(MetaKeyPublisher, ref.Publisher).
		WithMetadata(MetaKeyProject, ref.Project).
		WithMetadata(MetaKeyEdition, ref.Edition)
}

// NewInvalidPublicationError creates an error for malformed publication coordinates
func NewInvalidPublicationError(ref PublicationRef) error {
	return cuserr.NewValidationError(ErrCodeFetch, ErrMsgInvalidPublication+" "+ref.String()).
		WithMetadata(MetaKeyPublisher, ref.Publisher).
		WithMetadata(MetaKeyProject, ref.Project).
		WithMetadata(MetaKeyEdition, ref.Edition)
}

// NewInvalidResponseError wraps a response or record that could not be decoded
func NewInvalidResponseError(url string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeFetch, ErrMsgInvalidResponse).
		WithMetadata(MetaKeyURL, url)
}

// NewInvalidFetcherSourceError creates an error for an unusable driver source
func NewInvalidFetcherSourceError(driver, source string) error {
	return cuserr.NewValidationError(ErrCodeRegistry, ErrMsgInvalidSource+" "+source).
		WithMetadata(MetaKeyDriverName, driver).
		WithMetadata(MetaKeySource, source)
}

// NewConnectionError wraps a database connection failure
func NewConnectionError(driver string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeRegistry, ErrMsgConnectionFailed).
		WithMetadata(MetaKeyDriverName, driver)
}

// NewMigrationError wraps a schema migration failure
func NewMigrationError(version int, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeRegistry, ErrMsgMigrationFailed).
		WithMetadata(MetaKeyVersion, strconv.Itoa(version))
}

// NewStoreError wraps a failure to write to a fetcher backend
func NewStoreError(msg string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeFetch, msg)
}

// NewFetchError wraps a transport or storage failure
func NewFetchError(url string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeFetch, ErrMsgFetchFailed).
		WithMetadata(MetaKeyURL, url)
}

// NewUnexpectedStatusError creates an error for a non-2xx response
func NewUnexpectedStatusError(url string, status int) error {
	return cuserr.NewValidationError(ErrCodeFetch, ErrMsgUnexpectedStatus+" "+strconv.Itoa(status)).
		WithMetadata(MetaKeyURL, url).
		WithMetadata(MetaKeyStatus, strconv.Itoa(status))
}

// NewInvalidDigestError creates an error for a malformed digest
func NewInvalidDigestError(digest string) error {
	return cuserr.NewValidationError(ErrCodeFetch, ErrMsgInvalidDigest).
		WithMetadata(MetaKeyDigest, digest)
}

// NewFetcherClosedError creates an error for use after Close
func NewFetcherClosedError() error {
	return cuserr.NewValidationError(ErrCodeFetch, ErrMsgFetcherClosed)
}

// NewFetcherDriverNotFoundError creates an error for an unregistered driver
func NewFetcherDriverNotFoundError(name string) error {
	return newNotFoundError(ErrMsgFetcherDriverNotFound+" "+name).
		WithMetadata(MetaKeyDriverName, name)
}

// NewMarkupError creates a markup parse error positioned inside the markup
func NewMarkupError(msg string, pos Position) error {
	return withPosition(cuserr.NewValidationError(ErrCodeParse, positioned(msg, pos)), pos)
}

// NewFormJSONError wraps a native JSON decoding failure
func NewFormJSONError(cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeParse, ErrMsgInvalidJSON)
}

// NewInvalidElementError creates an error for an unrecognized content element
func NewInvalidElementError(elementType string) error {
	return cuserr.NewValidationError(ErrCodeParse, ErrMsgInvalidElement).
		WithMetadata(MetaKeyElementType, elementType)
}

// ErrorPosition returns the position recorded on the outermost
// *cuserr.CustomError in err's chain, if it has one.
func ErrorPosition(err error) (Position, bool) {
	var custom *cuserr.CustomError
	if !errors.As(err, &custom) {
		return Position{}, false
	}
	return metadataPosition(custom)
}

// IsNotFound reports whether err says a form or publication does not exist,
// as opposed to the fetch itself failing.
func IsNotFound(err error) bool {
	var custom *cuserr.CustomError
	if !errors.As(err, &custom) {
		return false
	}
	_, ok := custom.GetMetadata(MetaKeyNotFound)
	return ok
}

func metadataPosition(err *cuserr.CustomError) (Position, bool) {
	lineStr, ok := err.GetMetadata(MetaKeyLine)
	if !ok {
		return Position{}, false
	}
	colStr, _ := err.GetMetadata(MetaKeyColumn)
	offStr, _ := err.GetMetadata(MetaKeyOffset)
	line, lineErr := strconv.Atoi(lineStr)
	col, colErr := strconv.Atoi(colStr)
	if lineErr != nil || colErr != nil {
		return Position{}, false
	}
	off, _ := strconv.Atoi(offStr)
	return Position{Offset: off, Line: line, Column: col}, true
}
