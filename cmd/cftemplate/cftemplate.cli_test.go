package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/itsatony/go-cftemplate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test data constants
const (
	testTemplateContent = "Terms:\n\n\\\\ (( require clause ))\n\n(( if jury begin ))\\Jury\\ Trial by jury.(( end ))"
	testClauseContent   = "Payment is due in 30 days."
	testInvalidContent  = "(( if jury begin ))never closed"
)

// setupTestData creates a template, a required clause and context files
func setupTestData(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	files := map[string]string{
		"agreement.cftemplate": testTemplateContent,
		"clause.cform":         testClauseContent,
		"invalid.cftemplate":   testInvalidContent,
		"context.json":         `{"jury": true}`,
		"context.jsonc":        "{\n  // enable the jury clause\n  \"jury\": true,\n}",
		"context.yaml":         "jury: true\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), []byte(content), FilePermissions))
	}

	return tmpDir
}

func runCLI(args []string, stdin string) (int, string, string) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := run(args, strings.NewReader(stdin), stdout, stderr)
	return code, stdout.String(), stderr.String()
}

// ==================== run() dispatch tests ====================

func TestRun_NoArgs_ShowsHelp(t *testing.T) {
	code, stdout, _ := runCLI(nil, "")

	assert.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, stdout, CLIName)
	assert.Contains(t, stdout, CmdNameRender)
}

func TestRun_UnknownCommand(t *testing.T) {
	code, stdout, _ := runCLI([]string{"unknown"}, "")

	assert.Equal(t, ExitCodeUsageError, code)
	assert.Contains(t, stdout, ErrMsgUnknownCommand)
}

func TestRun_VersionCommand(t *testing.T) {
	code, stdout, _ := runCLI([]string{CmdNameVersion}, "")

	assert.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, stdout, CLIName)
	assert.Contains(t, stdout, cftemplate.Version)
}

func TestVersion_JSON(t *testing.T) {
	code, stdout, _ := runCLI([]string{CmdNameVersion, "-F", OutputFormatJSON}, "")
	require.Equal(t, ExitCodeSuccess, code)

	var out versionOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, cftemplate.Version, out.Version)
	assert.NotEmpty(t, out.GoVersion)
}

func TestVersion_InvalidFormat(t *testing.T) {
	code, _, stderr := runCLI([]string{CmdNameVersion, "--format", "xml"}, "")
	assert.Equal(t, ExitCodeUsageError, code)
	assert.Contains(t, stderr, ErrMsgInvalidFormat)
}

// ==================== Help command tests ====================

func TestHelp(t *testing.T) {
	tests := []struct {
		args     []string
		expected string
	}{
		{nil, HelpMainUsage},
		{[]string{CmdNameRender}, HelpRenderUsage},
		{[]string{CmdNameValidate}, HelpValidateUsage},
		{[]string{CmdNameVersion}, HelpVersionUsage},
		{[]string{CmdNameHelp}, HelpHelpUsage},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			stdout := &bytes.Buffer{}
			code := runHelp(tt.args, stdout)
			assert.Equal(t, ExitCodeSuccess, code)
			assert.Contains(t, stdout.String(), tt.expected)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		stdout := &bytes.Buffer{}
		code := runHelp([]string{"unknown"}, stdout)
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stdout.String(), ErrMsgUnknownCommand)
	})
}

// ==================== Render command tests ====================

func TestRender(t *testing.T) {
	dir := setupTestData(t)
	template := filepath.Join(dir, "agreement.cftemplate")
	withJury := "Terms:\n\n\\\\ Payment is due in 30 days.\n\n\\Jury\\ Trial by jury."
	withoutJury := "Terms:\n\n\\\\ Payment is due in 30 days.\n\n"

	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"no context", []string{"-t", template}, withoutJury},
		{"set flag", []string{"-t", template, "-s", "jury"}, withJury},
		{"set false", []string{"-t", template, "--set", "jury=false"}, withoutJury},
		{"inline context", []string{"-t", template, "-c", `{"jury": true}`}, withJury},
		{"json file", []string{"-t", template, "-f", filepath.Join(dir, "context.json")}, withJury},
		{"jsonc file", []string{"-t", template, "-f", filepath.Join(dir, "context.jsonc")}, withJury},
		{"yaml file", []string{"-t", template, "--context-file", filepath.Join(dir, "context.yaml")}, withJury},
		{"set overrides file", []string{"-t", template, "-f", filepath.Join(dir, "context.yaml"), "-s", "jury=0"}, withoutJury},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(append([]string{CmdNameRender, "--fetcher", cftemplate.FetcherDriverMemory}, tt.args...), "")
			require.Equal(t, ExitCodeSuccess, code, stderr)
			assert.Equal(t, tt.expected, stdout)
		})
	}
}

func TestRender_Stdin(t *testing.T) {
	dir := setupTestData(t)

	code, stdout, stderr := runCLI([]string{
		CmdNameRender, "-t", "-", "-b", dir, "--fetcher", cftemplate.FetcherDriverMemory,
	}, "Clause: (( require clause ))")

	require.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Equal(t, "Clause: Payment is due in 30 days.", stdout)
}

func TestRender_OutputFile(t *testing.T) {
	dir := setupTestData(t)
	out := filepath.Join(dir, "out.cform")

	code, stdout, stderr := runCLI([]string{
		CmdNameRender, "-t", filepath.Join(dir, "agreement.cftemplate"), "-s", "jury",
		"-o", out, "--fetcher", cftemplate.FetcherDriverMemory,
	}, "")
	require.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Trial by jury.")
}

func TestRender_JSONFormat(t *testing.T) {
	dir := setupTestData(t)

	code, stdout, stderr := runCLI([]string{
		CmdNameRender, "-t", filepath.Join(dir, "agreement.cftemplate"), "-s", "jury",
		"-F", OutputFormatJSON, "--fetcher", cftemplate.FetcherDriverMemory,
	}, "")
	require.Equal(t, ExitCodeSuccess, code, stderr)

	form, err := cftemplate.ParseFormJSON([]byte(stdout))
	require.NoError(t, err)
	require.Len(t, form.Content, 3)
	assert.Equal(t, cftemplate.Text("Terms:"), form.Content[0])
	assert.Equal(t, "Jury", form.Content[2].Child.Heading)
}

func TestRender_FilesystemFetcher(t *testing.T) {
	dir := setupTestData(t)
	mirror := filepath.Join(dir, "mirror")

	fetcher, err := cftemplate.NewFilesystemFetcher(mirror)
	require.NoError(t, err)
	digest, err := fetcher.PutForm(context.Background(), &cftemplate.Form{
		Content: []cftemplate.Element{cftemplate.Text("Mirrored.")},
	})
	require.NoError(t, err)
	require.NoError(t, fetcher.Close())

	code, stdout, stderr := runCLI([]string{
		CmdNameRender, "-t", "-", "--fetcher", cftemplate.FetcherDriverFilesystem, "--fetcher-source", mirror,
	}, "(( "+digest+" ))")
	require.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Equal(t, "Mirrored.", stdout)

	code, stdout, stderr = runCLI([]string{
		CmdNameRender, "-t", "-", "--cache", "--fetcher", cftemplate.FetcherDriverFilesystem, "--fetcher-source", mirror,
	}, "(( "+digest+" )) (( "+digest+" ))")
	require.Equal(t, ExitCodeSuccess, code, stderr)
	assert.Equal(t, "Mirrored. Mirrored.", stdout)
}

func TestRender_Errors(t *testing.T) {
	dir := setupTestData(t)
	template := filepath.Join(dir, "agreement.cftemplate")
	memory := []string{"--fetcher", cftemplate.FetcherDriverMemory}

	tests := []struct {
		name     string
		args     []string
		stdin    string
		code     int
		contains string
	}{
		{"missing template flag", []string{}, "", ExitCodeUsageError, ErrMsgMissingTemplate},
		{"unknown flag", []string{"-t", template, "--bogus"}, "", ExitCodeUsageError, ErrMsgInvalidArguments},
		{"invalid format", []string{"-t", template, "-F", "yaml"}, "", ExitCodeUsageError, ErrMsgInvalidFormat},
		{"negative depth", []string{"-t", template, "--max-depth", "-1"}, "", ExitCodeUsageError, ErrMsgEngineFailed},
		{"missing template file", []string{"-t", filepath.Join(dir, "none.cftemplate")}, "", ExitCodeInputError, ErrMsgReadFileFailed},
		{"bad context", []string{"-t", template, "-c", "{"}, "", ExitCodeInputError, ErrMsgInvalidContext},
		{"bad set", []string{"-t", template, "-s", "jury=maybe"}, "", ExitCodeInputError, ErrMsgInvalidSet},
		{"unknown fetcher", []string{"-t", template, "--fetcher", "ftp"}, "", ExitCodeInputError, ErrMsgOpenFetcherFailed},
		{"invalid directive", []string{"-t", "-"}, "(( nonsense ))", ExitCodeError, "nonsense"},
		{"syntax error", []string{"-t", filepath.Join(dir, "invalid.cftemplate")}, "", ExitCodeError, "unclosed block"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{CmdNameRender}, tt.args...)
			if tt.name != "unknown fetcher" {
				args = append(args, memory...)
			}
			code, _, stderr := runCLI(args, tt.stdin)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, stderr, tt.contains)
		})
	}
}

func TestRender_Verbose(t *testing.T) {
	code, _, stderr := runCLI([]string{
		CmdNameRender, "-t", "-", "-v", "--fetcher", cftemplate.FetcherDriverMemory,
	}, "(( if x begin ))y(( end ))")

	require.Equal(t, ExitCodeSuccess, code)
	assert.Contains(t, stderr, cftemplate.LogMsgDirectiveResolving)
}

func TestOpenFetcher_APIHost(t *testing.T) {
	t.Run("environment", func(t *testing.T) {
		t.Setenv(cftemplate.EnvAPIHost, "forms.example.com")
		fetcher, err := openFetcher(&renderConfig{fetcher: cftemplate.FetcherDriverHTTP}, newLogger(false, nil))
		require.NoError(t, err)
		defer fetcher.Close()

		httpFetcher, ok := fetcher.(*cftemplate.HTTPFetcher)
		require.True(t, ok)
		assert.Equal(t, "https://forms.example.com", httpFetcher.BaseURL())
	})

	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(cftemplate.EnvAPIHost, "forms.example.com")
		fetcher, err := openFetcher(&renderConfig{
			fetcher: cftemplate.FetcherDriverHTTP,
			apiHost: "http://localhost:9000",
		}, newLogger(false, nil))
		require.NoError(t, err)
		defer fetcher.Close()

		assert.Equal(t, "http://localhost:9000", fetcher.(*cftemplate.HTTPFetcher).BaseURL())
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv(cftemplate.EnvAPIHost, "")
		fetcher, err := openFetcher(&renderConfig{fetcher: cftemplate.FetcherDriverHTTP}, newLogger(false, nil))
		require.NoError(t, err)
		defer fetcher.Close()

		assert.Equal(t, "https://"+cftemplate.DefaultAPIHost, fetcher.(*cftemplate.HTTPFetcher).BaseURL())
	})
}

// ==================== Context loading tests ====================

func TestParseSet(t *testing.T) {
	tests := []struct {
		input   string
		name    string
		value   bool
		wantErr bool
	}{
		{"jury", "jury", true, false},
		{"jury=true", "jury", true, false},
		{"jury=false", "jury", false, false},
		{" jury = 1 ", "jury", true, false},
		{"jury=maybe", "", false, true},
		{"=true", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, value, err := parseSet(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestDecodeContext(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		vars, err := decodeContext([]byte("a: true\nb: 0\n"), ContextExtYAML)
		require.NoError(t, err)
		assert.Equal(t, true, vars["a"])
		assert.Equal(t, 0, vars["b"])
	})

	t.Run("jsonc", func(t *testing.T) {
		vars, err := decodeContext([]byte("/* c */ {\"a\": \"x\",}"), ContextExtJSONC)
		require.NoError(t, err)
		assert.Equal(t, "x", vars["a"])
	})

	t.Run("empty yaml", func(t *testing.T) {
		vars, err := decodeContext([]byte(""), ContextExtYML)
		require.NoError(t, err)
		assert.Empty(t, vars)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := decodeContext([]byte("[1, 2]"), ContextExtJSON)
		require.Error(t, err)
	})
}

// ==================== Validate command tests ====================

func TestValidate(t *testing.T) {
	dir := setupTestData(t)

	t.Run("valid", func(t *testing.T) {
		code, stdout, _ := runCLI([]string{CmdNameValidate, "-t", filepath.Join(dir, "agreement.cftemplate")}, "")
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, stdout, ValidationTextSuccess)
	})

	t.Run("invalid directive", func(t *testing.T) {
		code, stdout, _ := runCLI([]string{CmdNameValidate, "-t", "-"}, "text\n(( bogus ))")
		assert.Equal(t, ExitCodeValidationError, code)
		assert.Contains(t, stdout, ValidationTextIssueHeader)
		assert.Contains(t, stdout, "[ERROR] invalid directive bogus at line 2, column 1")
	})

	t.Run("syntax error", func(t *testing.T) {
		code, stdout, _ := runCLI([]string{CmdNameValidate, "-t", filepath.Join(dir, "invalid.cftemplate")}, "")
		assert.Equal(t, ExitCodeValidationError, code)
		assert.Contains(t, stdout, "unclosed block")
	})

	t.Run("warnings pass unless strict", func(t *testing.T) {
		code, stdout, _ := runCLI([]string{CmdNameValidate, "-t", "-"}, "(( require a b ))")
		assert.Equal(t, ExitCodeSuccess, code)
		assert.Contains(t, stdout, SeverityNameWarning)

		code, _, _ = runCLI([]string{CmdNameValidate, "-t", "-", "--strict"}, "(( require a b ))")
		assert.Equal(t, ExitCodeValidationError, code)
	})

	t.Run("json output", func(t *testing.T) {
		code, stdout, _ := runCLI([]string{CmdNameValidate, "-t", "-", "-F", OutputFormatJSON}, "(( if a ))")
		assert.Equal(t, ExitCodeValidationError, code)

		var out validationOutput
		require.NoError(t, json.Unmarshal([]byte(stdout), &out))
		assert.False(t, out.Valid)
		require.Len(t, out.Issues, 1)
		assert.Equal(t, SeverityNameError, out.Issues[0].Severity)
		assert.Equal(t, "if a", out.Issues[0].Directive)
		assert.Equal(t, "if", out.Issues[0].Kind)
	})

	t.Run("missing template", func(t *testing.T) {
		code, _, stderr := runCLI([]string{CmdNameValidate}, "")
		assert.Equal(t, ExitCodeUsageError, code)
		assert.Contains(t, stderr, ErrMsgMissingTemplate)
	})

	t.Run("unreadable template", func(t *testing.T) {
		code, _, stderr := runCLI([]string{CmdNameValidate, "-t", filepath.Join(dir, "none")}, "")
		assert.Equal(t, ExitCodeInputError, code)
		assert.Contains(t, stderr, ErrMsgReadFileFailed)
	})
}

// countingDriverName is a fetcher driver that counts FetchForm calls
const countingDriverName = "counting"

type countingFetcher struct {
	*cftemplate.MemoryFetcher
	calls *atomic.Int32
}

func (f countingFetcher) FetchForm(ctx context.Context, digest string) (*cftemplate.Form, error) {
	f.calls.Add(1)
	return f.MemoryFetcher.FetchForm(ctx, digest)
}

// Close leaves the shared store open for later runs
func (f countingFetcher) Close() error { return nil }

type countingDriver struct {
	fetcher countingFetcher
}

func (d countingDriver) Open(string) (cftemplate.FetcherCloser, error) {
	return d.fetcher, nil
}

var (
	countingCalls   atomic.Int32
	countingDigest  string
	countingOnce    sync.Once
	countingSetupErr error
)

func registerCountingDriver(t *testing.T) string {
	t.Helper()
	countingOnce.Do(func() {
		memory := cftemplate.NewMemoryFetcher()
		countingDigest, countingSetupErr = memory.AddForm(&cftemplate.Form{
			Content: []cftemplate.Element{cftemplate.Text("Counted.")},
		})
		cftemplate.RegisterFetcherDriver(countingDriverName, countingDriver{
			fetcher: countingFetcher{MemoryFetcher: memory, calls: &countingCalls},
		})
	})
	require.NoError(t, countingSetupErr)
	countingCalls.Store(0)
	return countingDigest
}

func TestRender_FetchCaching(t *testing.T) {
	digest := registerCountingDriver(t)
	template := "(( " + digest + " )) (( " + digest + " ))"

	t.Run("fetches every directive by default", func(t *testing.T) {
		countingCalls.Store(0)
		code, stdout, stderr := runCLI([]string{
			CmdNameRender, "-t", "-", "--fetcher", countingDriverName,
		}, template)
		require.Equal(t, ExitCodeSuccess, code, stderr)
		assert.Equal(t, "Counted. Counted.", stdout)
		assert.Equal(t, int32(2), countingCalls.Load())
	})

	t.Run("cache flag fetches once", func(t *testing.T) {
		countingCalls.Store(0)
		code, stdout, stderr := runCLI([]string{
			CmdNameRender, "-t", "-", "--cache", "--fetcher", countingDriverName,
		}, template)
		require.Equal(t, ExitCodeSuccess, code, stderr)
		assert.Equal(t, "Counted. Counted.", stdout)
		assert.Equal(t, int32(1), countingCalls.Load())
	})
}
