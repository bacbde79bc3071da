package cftemplate

import "time"

// Directive grammar
const (
	DirectiveOpenDelim  = "(("
	DirectiveCloseDelim = "))"
	DirectiveBegin      = "begin"
	DirectiveEnd        = "end"

	KeywordRequire = "require"
	KeywordIf      = "if"
	KeywordUnless  = "unless"
)

// Extensions tried for require targets, in lookup order
const (
	ExtTemplate = ".cftemplate"
	ExtMarkup   = ".cform"
	ExtJSON     = ".json"
)

// Engine defaults
const (
	DefaultMaxDepth = 0
	DefaultAPIHost  = "api.commonform.org"
	DefaultScheme   = "https"

	// EnvAPIHost overrides DefaultAPIHost for the CLI
	EnvAPIHost = "CFTEMPLATE_API_HOST"
)

// HTTP fetcher defaults
const (
	HTTPDefaultTimeout     = 30 * time.Second
	HTTPDefaultUserAgent   = "go-cftemplate"
	HTTPPathForms          = "/forms/"
	HTTPPathPublishers     = "/publishers/"
	HTTPPathProjects       = "/projects/"
	HTTPPathPublications   = "/publications/"
	HTTPHeaderAccept       = "Accept"
	HTTPHeaderUserAgent    = "User-Agent"
	HTTPContentTypeJSON    = "application/json"
	HTTPMaxResponseBytes   = 8 << 20
	HTTPStatusSuccessFloor = 200
	HTTPStatusSuccessCeil  = 300
)

// SQL fetcher defaults
const (
	SQLDefaultMaxOpenConns    = 10
	SQLDefaultMaxIdleConns    = 2
	SQLDefaultConnMaxLifetime = 5 * time.Minute
	SQLDefaultQueryTimeout    = 30 * time.Second
	SQLDefaultTablePrefix     = "cftemplate_"
)

// Filesystem fetcher layout
const (
	FilesystemFormsDir        = "forms"
	FilesystemPublicationsDir = "publications"
	FilesystemDirPermissions  = 0o755
	FilesystemFilePermissions = 0o644
)

// Fetcher driver names
const (
	FetcherDriverHTTP       = "http"
	FetcherDriverMemory     = "memory"
	FetcherDriverFilesystem = "filesystem"
	FetcherDriverPostgres   = "postgres"
	FetcherDriverSQLite     = "sqlite"
)

// Markup syntax
const (
	markupIndent          = "    "
	markupIndentWidth     = 4
	markupBlockSeparator  = "\n\n"
	markupChildMarker     = '\\'
	markupConspicuousMark = "!!"
	markupUseOpen         = '<'
	markupUseClose        = '>'
	markupReferenceOpen   = '{'
	markupReferenceClose  = '}'
	markupBlankOpen       = '['
	markupBlankClose      = ']'
	markupDefinitionDelim = `""`
	markupEscape          = '\\'
)

// ConspicuousYes is the only valid value of Form.Conspicuous
const ConspicuousYes = "yes"

// Error codes for categorization
const (
	ErrCodeDirective = "CFTEMPLATE_DIRECTIVE"
	ErrCodeRequire   = "CFTEMPLATE_REQUIRE"
	ErrCodeFetch     = "CFTEMPLATE_FETCH"
	ErrCodeIO        = "CFTEMPLATE_IO"
	ErrCodeParse     = "CFTEMPLATE_PARSE"
	ErrCodeTemplate  = "CFTEMPLATE_TEMPLATE"
	ErrCodeRegistry  = "CFTEMPLATE_REGISTRY"
)

// Error message constants
const (
	// Directive errors
	ErrMsgInvalidDirective    = "invalid directive"
	ErrMsgConditionalNoBlock  = "conditional directive requires begin and end"
	ErrMsgBlockNotConditional = "only if and unless directives take a block"

	// Require errors
	ErrMsgCouldNotRequire   = "could not require"
	ErrMsgCircularRequire   = "circular require"
	ErrMsgMaxDepthExceeded  = "maximum template depth exceeded"
	ErrMsgReadFailed        = "failed to read file"
	ErrMsgTemplateSyntax    = "template syntax error"
	ErrMsgTemplateOutput    = "required template did not produce valid markup"
	ErrMsgPublicationLookup = "publication lookup failed"
	ErrMsgNegativeMaxDepth  = "max depth must not be negative"

	// Fetch errors
	ErrMsgFormNotFound        = "form not found"
	ErrMsgPublicationNotFound = "publication not found"
	ErrMsgFetchFailed         = "fetch failed"
	ErrMsgUnexpectedStatus    = "unexpected response status"
	ErrMsgInvalidResponse     = "invalid response body"
	ErrMsgInvalidDigest       = "invalid form digest"
	ErrMsgFetcherClosed       = "fetcher is closed"
	ErrMsgStoreFailed         = "failed to store record"
	ErrMsgInvalidPublication  = "invalid publication reference"
	ErrMsgCreateMirrorDir     = "failed to create mirror directory"
	ErrMsgInvalidSource       = "invalid fetcher source"

	// Registry errors
	ErrMsgNilFetcherDriver        = "fetcher driver is nil"
	ErrMsgDriverAlreadyRegistered = "fetcher driver already registered"
	ErrMsgFetcherDriverNotFound   = "fetcher driver not found"
	ErrMsgEmptyConnString         = "connection string is empty"
	ErrMsgConnectionFailed        = "database connection failed"
	ErrMsgMigrationFailed         = "database migration failed"

	// Parse errors
	ErrMsgInvalidMarkup      = "invalid markup"
	ErrMsgInvalidIndentation = "indentation must be a multiple of four spaces"
	ErrMsgUnexpectedIndent   = "unexpected indentation"
	ErrMsgUnterminatedMarker = "unterminated child marker"
	ErrMsgUnterminatedInline = "unterminated inline element"
	ErrMsgEmptyInline        = "empty inline element"
	ErrMsgEmptyChildForm     = "child form has no content"
	ErrMsgInvalidJSON        = "invalid form JSON"
	ErrMsgInvalidElement     = "invalid content element"
	ErrMsgInvalidConspicuous = "invalid conspicuous value"
)

// Validation warning messages
const (
	WarnMsgRequireExtraText   = "text after the require target is ignored"
	WarnMsgVariableWhitespace = "variable name contains whitespace"
)

// Metadata keys for cuserr.WithMetadata
const (
	MetaKeyLine        = "line"
	MetaKeyColumn      = "column"
	MetaKeyOffset      = "offset"
	MetaKeyDirective   = "directive"
	MetaKeyTarget      = "target"
	MetaKeyPath        = "path"
	MetaKeyDigest      = "digest"
	MetaKeyPublisher   = "publisher"
	MetaKeyProject     = "project"
	MetaKeyEdition     = "edition"
	MetaKeyURL         = "url"
	MetaKeyStatus      = "status"
	MetaKeyDriverName  = "driver"
	MetaKeyMaxDepth    = "max_depth"
	MetaKeyChain       = "require_chain"
	MetaKeyElementType = "element_type"
	MetaKeySource      = "source"
	MetaKeyVersion     = "version"
	MetaKeyNotFound    = "not_found"
)

// SuggestionMaxCount limits "did you mean" hints per invalid directive
const SuggestionMaxCount = 2

// Fetch cache defaults
const (
	CacheDefaultTTL         = 5 * time.Minute
	CacheDefaultMaxEntries  = 1000
	CacheDefaultNegativeTTL = 30 * time.Second
)

// Log message constants
const (
	LogMsgEngineCreated      = "engine created"
	LogMsgExecuteStart       = "starting template execution"
	LogMsgExecuteEnd         = "template execution complete"
	LogMsgDirectiveResolving = "resolving directive"
	LogMsgDirectiveResolved  = "directive resolved"
	LogMsgConditionSkipped   = "conditional block skipped"
	LogMsgRequireCandidate   = "checking require candidate"
	LogMsgRequireFound       = "require target found"
	LogMsgRequireRecurse     = "expanding required template"
	LogMsgFetchForm          = "fetching form"
	LogMsgFetchPublication   = "fetching publication"
	LogMsgFetchComplete      = "fetch complete"
	LogMsgFetcherOpened      = "fetcher opened"
	LogMsgMigrationApplied   = "database migration applied"
)

// Log field names
const (
	LogFieldDirective   = "directive"
	LogFieldKind        = "kind"
	LogFieldLine        = "line"
	LogFieldColumn      = "column"
	LogFieldBase        = "base"
	LogFieldPath        = "path"
	LogFieldDepth       = "depth"
	LogFieldDigest      = "digest"
	LogFieldURL         = "url"
	LogFieldStatus      = "status"
	LogFieldDriver      = "driver"
	LogFieldLength      = "length"
	LogFieldVariable    = "variable"
	LogFieldPublication = "publication"
	LogFieldVersion     = "version"
	LogFieldTarget      = "target"
	LogFieldMaxDepth    = "max_depth"

	LogFieldPositionedErrors = "positioned_errors"
	LogFieldDetectCycles     = "detect_cycles"
)
