package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/itsatony/go-cftemplate"
	"github.com/tidwall/jsonc"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// readInput reads content from a file or stdin
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == InputSourceStdin {
		return io.ReadAll(stdin)
	}

	return os.ReadFile(path)
}

// writeOutput writes content to a file or stdout
func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == FlagDefaultOutput {
		_, err := stdout.Write(data)
		return err
	}

	return os.WriteFile(path, data, FilePermissions)
}

// loadContext builds the conditional context. The context file is read
// first, then the inline JSON object, then each --set assignment; later
// sources override earlier ones.
func loadContext(inline, filePath string, sets []string) (cftemplate.Context, error) {
	vars := make(cftemplate.Context)

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		fileVars, err := decodeContext(data, filepath.Ext(filePath))
		if err != nil {
			return nil, err
		}
		mergeContext(vars, fileVars)
	}

	if inline != "" {
		inlineVars, err := decodeContext([]byte(inline), ContextExtJSONC)
		if err != nil {
			return nil, err
		}
		mergeContext(vars, inlineVars)
	}

	for _, set := range sets {
		name, value, err := parseSet(set)
		if err != nil {
			return nil, err
		}
		vars[name] = value
	}

	return vars, nil
}

// decodeContext decodes a context object by file extension. Anything not
// YAML is read as JSON with comments and trailing commas allowed.
func decodeContext(data []byte, ext string) (map[string]any, error) {
	var result map[string]any

	switch strings.ToLower(ext) {
	case ContextExtYAML, ContextExtYML:
		if err := yaml.Unmarshal(data, &result); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &result); err != nil {
			return nil, err
		}
	}

	if result == nil {
		result = make(map[string]any)
	}
	return result, nil
}

func mergeContext(dst cftemplate.Context, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

// parseSet reads name or name=bool
func parseSet(s string) (string, bool, error) {
	name, raw, hasValue := strings.Cut(s, SetSeparator)
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false, errors.New(ErrMsgInvalidSet + ": " + s)
	}
	if !hasValue {
		return name, true, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return "", false, errors.New(ErrMsgInvalidSet + ": " + s)
	}
	return name, value, nil
}

// newLogger returns a development logger on stderr when verbose, else a no-op
func newLogger(verbose bool, stderr io.Writer) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(stderr), zapcore.DebugLevel)
	return zap.New(core, zap.Development())
}
