package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/itsatony/go-cftemplate"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// renderConfig holds parsed render command configuration
type renderConfig struct {
	templatePath     string
	base             string
	contextJSON      string
	contextFilePath  string
	sets             []string
	outputPath       string
	format           string
	fetcher          string
	fetcherSource    string
	apiHost          string
	timeout          time.Duration
	maxDepth         int
	positionedErrors bool
	detectCycles     bool
	cache            bool
	verbose          bool
}

func runRender(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseRenderFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidArguments, err)
		return ExitCodeUsageError
	}

	templateSource, err := readInput(cfg.templatePath, stdin)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgReadFileFailed, err)
		return ExitCodeInputError
	}

	vars, err := loadContext(cfg.contextJSON, cfg.contextFilePath, cfg.sets)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidContext, err)
		return ExitCodeInputError
	}

	logger := newLogger(cfg.verbose, stderr)
	defer func() { _ = logger.Sync() }()

	fetcher, err := openFetcher(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgOpenFetcherFailed, err)
		return ExitCodeInputError
	}
	if cfg.cache {
		fetcher = cftemplate.NewCachedFetcher(fetcher, cftemplate.DefaultCacheConfig())
	}
	defer fetcher.Close()

	engine, err := cftemplate.New(
		cftemplate.WithFetcher(fetcher),
		cftemplate.WithLogger(logger),
		cftemplate.WithMaxDepth(cfg.maxDepth),
		cftemplate.WithPositionedErrors(cfg.positionedErrors),
		cftemplate.WithCycleDetection(cfg.detectCycles),
	)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgEngineFailed, err)
		return ExitCodeUsageError
	}

	output, err := render(context.Background(), engine, cfg, string(templateSource), vars)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgExecuteFailed, err)
		return ExitCodeError
	}

	if err := writeOutput(cfg.outputPath, output, stdout); err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgWriteOutputFailed, err)
		return ExitCodeError
	}

	return ExitCodeSuccess
}

func render(ctx context.Context, engine *cftemplate.Engine, cfg *renderConfig, source string, vars cftemplate.Context) ([]byte, error) {
	base := renderBase(cfg)

	if cfg.format == OutputFormatJSON {
		form, err := engine.ExecuteForm(ctx, source, base, vars)
		if err != nil {
			return nil, err
		}
		data, err := form.CanonicalJSON()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgJSONMarshalFailed, err)
		}
		return append(data, FmtNewline...), nil
	}

	out, err := engine.Execute(ctx, source, base, vars)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// renderBase is the --base flag, else the template's directory, else the
// working directory for stdin
func renderBase(cfg *renderConfig) string {
	if cfg.base != "" {
		return cfg.base
	}
	if cfg.templatePath == InputSourceStdin {
		return DefaultBase
	}
	return filepath.Dir(cfg.templatePath)
}

// openFetcher builds the HTTP fetcher from --api and --timeout, or opens
// any other driver through the registry with --fetcher-source
func openFetcher(cfg *renderConfig, logger *zap.Logger) (cftemplate.FetcherCloser, error) {
	if cfg.fetcher != cftemplate.FetcherDriverHTTP {
		return cftemplate.OpenFetcher(cfg.fetcher, cfg.fetcherSource)
	}

	host := cfg.apiHost
	if host == "" {
		host = cfg.fetcherSource
	}
	if host == "" {
		host = os.Getenv(cftemplate.EnvAPIHost)
	}
	return cftemplate.NewHTTPFetcher(cftemplate.HTTPConfig{
		Host:    host,
		Timeout: cfg.timeout,
		Logger:  logger,
	})
}

func parseRenderFlags(args []string) (*renderConfig, error) {
	fs := pflag.NewFlagSet(CmdNameRender, pflag.ContinueOnError)
	fs.SetOutput(io.Discard) // Suppress default error messages

	cfg := &renderConfig{}

	fs.StringVarP(&cfg.templatePath, FlagTemplate, FlagTemplateShort, "", "")
	fs.StringVarP(&cfg.base, FlagBase, FlagBaseShort, "", "")
	fs.StringVarP(&cfg.contextJSON, FlagContext, FlagContextShort, "", "")
	fs.StringVarP(&cfg.contextFilePath, FlagContextFile, FlagContextFileShort, "", "")
	fs.StringArrayVarP(&cfg.sets, FlagSet, FlagSetShort, nil, "")
	fs.StringVarP(&cfg.outputPath, FlagOutput, FlagOutputShort, FlagDefaultOutput, "")
	fs.StringVarP(&cfg.format, FlagFormat, FlagFormatShort, FlagDefaultRenderFormat, "")
	fs.StringVar(&cfg.fetcher, FlagFetcher, cftemplate.FetcherDriverHTTP, "")
	fs.StringVar(&cfg.fetcherSource, FlagFetcherSource, "", "")
	fs.StringVar(&cfg.apiHost, FlagAPI, "", "")
	fs.DurationVar(&cfg.timeout, FlagTimeout, FlagDefaultTimeout, "")
	fs.IntVar(&cfg.maxDepth, FlagMaxDepth, cftemplate.DefaultMaxDepth, "")
	fs.BoolVar(&cfg.positionedErrors, FlagPositionedErrors, false, "")
	fs.BoolVar(&cfg.detectCycles, FlagDetectCycles, false, "")
	fs.BoolVar(&cfg.cache, FlagCache, false, "")
	fs.BoolVarP(&cfg.verbose, FlagVerbose, FlagVerboseShort, false, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.templatePath == "" {
		return nil, errors.New(ErrMsgMissingTemplate)
	}

	if cfg.format != OutputFormatMarkup && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}

	return cfg, nil
}
