package main

import "time"

// Command names
const (
	CmdNameRender   = "render"
	CmdNameValidate = "validate"
	CmdNameVersion  = "version"
	CmdNameHelp     = "help"
)

// Flag names - long form
const (
	FlagTemplate         = "template"
	FlagBase             = "base"
	FlagContext          = "context"
	FlagContextFile      = "context-file"
	FlagSet              = "set"
	FlagOutput           = "output"
	FlagFormat           = "format"
	FlagFetcher          = "fetcher"
	FlagFetcherSource    = "fetcher-source"
	FlagAPI              = "api"
	FlagTimeout          = "timeout"
	FlagMaxDepth         = "max-depth"
	FlagPositionedErrors = "positioned-errors"
	FlagDetectCycles     = "detect-cycles"
	FlagCache            = "cache"
	FlagVerbose          = "verbose"
	FlagStrictMode       = "strict"
)

// Flag names - short form
const (
	FlagTemplateShort    = "t"
	FlagBaseShort        = "b"
	FlagContextShort     = "c"
	FlagContextFileShort = "f"
	FlagSetShort         = "s"
	FlagOutputShort      = "o"
	FlagFormatShort      = "F"
	FlagVerboseShort     = "v"
)

// Flag default values
const (
	FlagDefaultOutput       = "-" // stdout
	FlagDefaultRenderFormat = OutputFormatMarkup
	FlagDefaultFormat       = OutputFormatText
	FlagDefaultTimeout      = 30 * time.Second
)

// Output formats
const (
	OutputFormatText   = "text"
	OutputFormatJSON   = "json"
	OutputFormatMarkup = "markup"
)

// Exit codes
const (
	ExitCodeSuccess         = 0
	ExitCodeError           = 1
	ExitCodeUsageError      = 2
	ExitCodeValidationError = 3
	ExitCodeInputError      = 4
)

// Input source indicators
const (
	InputSourceStdin = "-"
	DefaultBase      = "."
)

// Context file extensions
const (
	ContextExtJSON  = ".json"
	ContextExtJSONC = ".jsonc"
	ContextExtYAML  = ".yaml"
	ContextExtYML   = ".yml"
)

// Separator between a variable name and its value in --set
const SetSeparator = "="

// Error messages - ALL must be constants
const (
	ErrMsgUnknownCommand      = "unknown command"
	ErrMsgMissingTemplate     = "template source required"
	ErrMsgInvalidArguments    = "invalid arguments"
	ErrMsgInvalidContext      = "invalid context data"
	ErrMsgInvalidSet          = "invalid --set value"
	ErrMsgReadFileFailed      = "failed to read file"
	ErrMsgWriteOutputFailed   = "failed to write output"
	ErrMsgParseTemplateFailed = "template parsing failed"
	ErrMsgExecuteFailed       = "template execution failed"
	ErrMsgInvalidFormat       = "invalid output format"
	ErrMsgOpenFetcherFailed   = "failed to open fetcher"
	ErrMsgEngineFailed        = "invalid engine configuration"
	ErrMsgJSONMarshalFailed   = "failed to marshal JSON"
)

// Help text templates
const (
	HelpMainUsage = `cftemplate - Common Form template resolver

Usage:
    cftemplate <command> [options]

Commands:
    render      Resolve a template into Common Form markup
    validate    Check a template without resolving it
    version     Show version information
    help        Show help for a command

Use "cftemplate help <command>" for more information about a command.`

	HelpRenderUsage = `Resolve a template into Common Form markup

Usage:
    cftemplate render [options]

Options:
    -t, --template <file>         Template file (use "-" for stdin)
    -b, --base <dir>              Directory for require lookups
                                  (default: the template's directory)
    -c, --context <json>          Context as a JSON object
    -f, --context-file <file>     Context file (.json, .jsonc, .yaml, .yml)
    -s, --set <name[=bool]>       Set a context variable (repeatable)
    -o, --output <file>           Output file (default: stdout)
    -F, --format <format>         Output format: markup, json (default: markup)
        --fetcher <driver>        Form source: http, filesystem, sqlite,
                                  postgres, memory (default: http)
        --fetcher-source <src>    Driver source: mirror directory or DSN
        --api <host>              Form service host (default: $CFTEMPLATE_API_HOST
                                  or api.commonform.org)
        --timeout <duration>      HTTP request timeout (default: 30s)
        --max-depth <n>           Maximum template nesting, 0 for unlimited
        --positioned-errors       Add directive positions to every error
        --detect-cycles           Fail on circular requires
        --cache                   Cache fetched forms for the run
    -v, --verbose                 Write debug logs to stderr

Examples:
    cftemplate render -t agreement.cftemplate
    cftemplate render -t agreement.cftemplate -s arbitration -s jury=false
    cftemplate render -t agreement.cftemplate -f deal.yaml -F json
    cftemplate render -t nda.cftemplate --fetcher filesystem --fetcher-source ./mirror
    cat agreement.cftemplate | cftemplate render -t - -b ./clauses`

	HelpValidateUsage = `Check a template without resolving it

Usage:
    cftemplate validate [options]

Options:
    -t, --template <file>   Template file (use "-" for stdin)
    -F, --format <format>   Output format: text, json (default: text)
        --strict            Treat warnings as errors

Examples:
    cftemplate validate -t agreement.cftemplate
    cftemplate validate -t agreement.cftemplate --strict
    cat agreement.cftemplate | cftemplate validate -t -`

	HelpVersionUsage = `Show version information

Usage:
    cftemplate version [options]

Options:
    -F, --format <format>   Output format: text, json (default: text)`

	HelpHelpUsage = `Show help for a command

Usage:
    cftemplate help [command]

Commands:
    render      Show help for render command
    validate    Show help for validate command
    version     Show help for version command`
)

// Version output format templates
const (
	VersionTextTemplate = "cftemplate version %s\nCommit: %s\nGo: %s"
	VersionUnknown      = "unknown"
	BuildSettingCommit  = "vcs.revision"
)

// Validation output format templates
const (
	ValidationTextSuccess      = "Template is valid"
	ValidationTextIssueHeader  = "Validation issues:"
	ValidationTextIssueFormat  = "  [%s] %s at line %d, column %d"
	ValidationTextErrorSummary = "%d error(s), %d warning(s)"
)

// Severity names for output
const (
	SeverityNameError   = "ERROR"
	SeverityNameWarning = "WARNING"
)

// CLI metadata
const (
	CLIName        = "cftemplate"
	CLIDescription = "Common Form template resolver"
)

// File permission constant
const (
	FilePermissions = 0644
)

// Format string constants
const (
	FmtErrorWithDetail = "%s: %s\n"
	FmtErrorWithCause  = "%s: %v\n"
	FmtNewline         = "\n"
)
