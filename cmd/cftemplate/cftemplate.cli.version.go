package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/itsatony/go-cftemplate"
	"github.com/spf13/pflag"
)

// versionConfig holds parsed version command configuration
type versionConfig struct {
	format string
}

// versionOutput represents JSON output for version
type versionOutput struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"go_version"`
}

func runVersion(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseVersionFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, FmtErrorWithCause, ErrMsgInvalidFormat, err)
		return ExitCodeUsageError
	}

	info := getVersionInfo()

	if cfg.format == OutputFormatJSON {
		jsonBytes, _ := json.MarshalIndent(info, "", "  ")
		fmt.Fprintln(stdout, string(jsonBytes))
		return ExitCodeSuccess
	}

	fmt.Fprintf(stdout, VersionTextTemplate+FmtNewline, info.Version, info.Commit, info.GoVersion)
	return ExitCodeSuccess
}

func parseVersionFlags(args []string) (*versionConfig, error) {
	fs := pflag.NewFlagSet(CmdNameVersion, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	cfg := &versionConfig{}
	fs.StringVarP(&cfg.format, FlagFormat, FlagFormatShort, FlagDefaultFormat, "")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.format != OutputFormatText && cfg.format != OutputFormatJSON {
		return nil, errors.New(ErrMsgInvalidFormat)
	}

	return cfg, nil
}

// getVersionInfo reports the library version and, when the binary was
// built from a checkout, the VCS revision
func getVersionInfo() *versionOutput {
	info := &versionOutput{
		Version:   cftemplate.Version,
		Commit:    VersionUnknown,
		GoVersion: runtime.Version(),
	}

	build, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, setting := range build.Settings {
		if setting.Key == BuildSettingCommit && setting.Value != "" {
			info.Commit = setting.Value
		}
	}
	return info
}
