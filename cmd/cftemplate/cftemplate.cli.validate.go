package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/itsatony/go-cftemplate"
	"github.com/spf13/pflag"
)

// validateConfig holds parsed validate command configuration
type validateConfig struct {
	templatePath string
	format       string
	strict       bool
}

// validationOutput represents JSON output for validation
type validationOutput struct {
	Valid  bool                    `json:"valid"`
	Issues []validationIssueOutput `json:"issues,omitempty"`
}

type validationIssueOutput struct {
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	Directive string `json:"directive,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

func runValidate(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseValidateFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidArguments, err)
		return ExitCodeUsageError
	}

	templateSource, err := readInput(cfg.templatePath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	// Validate never touches the fetcher
	engine := cftemplate.MustNew(cftemplate.WithFetcher(cftemplate.NewMemoryFetcher()))
	result, err := engine.Validate(string(templateSource))
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgParseTemplateFailed, err)
		return ExitCodeError
	}

	if cfg.format == OutputFormatJSON {
		return outputValidationJSON(result, cfg.strict, stdout)
	}
	return outputValidationText(result, cfg.strict, stdout)
}

func parseValidateFlags(args []string) (*validateConfig, error) {
	fs := pflag.NewFlagSet(CmdNameValidate, pflag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &validateConfig{}

	fs.StringVarP(&cfg.templatePath, FlagTemplate, FlagTemplateShort, "", "")
	fs.StringVarP(&cfg.format, FlagFormat, FlagFormatShort, FlagDefaultFormat, "")
	fs.BoolVar(&cfg.strict, FlagStrictMode, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.templatePath == "" {
		return nil, errors.New(ErrMsgMissingTemplate)
	}

	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}

	return cfg, nil
}

func outputValidationText(result *cftemplate.ValidationResult, strict bool, stdout io.Writer) int {
	issues := result.Issues()
	errs := result.Errors()
	warnings := result.Warnings()

	if len(issues) == 0 {
		fmt.Fprintln(stdout, ValidationTextSuccess)
		return ExitCodeSuccess
	}

	fmt.Fprintln(stdout, ValidationTextIssueHeader)
	for _, issue := range issues {
		fmt.Fprintf(stdout, ValidationTextIssueFormat+FmtNewline,
			severityToName(issue.Severity), issue.Message, issue.Position.Line, issue.Position.Column)
	}

	fmt.Fprintf(stdout, ValidationTextErrorSummary+FmtNewline, len(errs), len(warnings))

	if len(errs) > 0 || (strict && len(warnings) > 0) {
		return ExitCodeValidationError
	}
	return ExitCodeSuccess
}

func outputValidationJSON(result *cftemplate.ValidationResult, strict bool, stdout io.Writer) int {
	issues := result.Issues()

	output := validationOutput{
		Valid:  result.IsValid() && (!strict || !result.HasWarnings()),
		Issues: make([]validationIssueOutput, 0, len(issues)),
	}

	for _, issue := range issues {
		out := validationIssueOutput{
			Severity:  severityToName(issue.Severity),
			Message:   issue.Message,
			Line:      issue.Position.Line,
			Column:    issue.Position.Column,
			Directive: issue.Directive,
		}
		if issue.Directive != "" {
			out.Kind = issue.Kind.String()
		}
		output.Issues = append(output.Issues, out)
	}

	jsonBytes, _ := json.MarshalIndent(output, "", "  ")
	fmt.Fprintln(stdout, string(jsonBytes))

	if !output.Valid {
		return ExitCodeValidationError
	}
	return ExitCodeSuccess
}

func severityToName(s cftemplate.ValidationSeverity) string {
	switch s {
	case cftemplate.SeverityWarning:
		return SeverityNameWarning
	default:
		return SeverityNameError
	}
}
