package cftemplate

import (
	"errors"
	"os"
	"testing"

	"github.com/itsatony/go-cuserr"
	"github.com/itsatony/go-cftemplate/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosition_String(t *testing.T) {
	pos := Position{Offset: 10, Line: 2, Column: 7}
	assert.Equal(t, "line 2, column 7", pos.String())
	assert.False(t, pos.IsZero())
	assert.True(t, Position{}.IsZero())
}

func TestErrorConstructors(t *testing.T) {
	pos := Position{Offset: 4, Line: 3, Column: 5}

	tests := []struct {
		name       string
		err        error
		contains   []string
		positioned bool
	}{
		{
			name:       "invalid directive",
			err:        NewInvalidDirectiveError("nonsense", pos),
			contains:   []string{ErrMsgInvalidDirective, "nonsense", "line 3, column 5"},
			positioned: true,
		},
		{
			name:       "misplaced directive",
			err:        NewMisplacedDirectiveError(ErrMsgConditionalNoBlock, "if a", pos),
			contains:   []string{"if a", ErrMsgConditionalNoBlock},
			positioned: true,
		},
		{
			name:       "could not require",
			err:        NewCouldNotRequireError("./missing", pos),
			contains:   []string{"could not require ./missing"},
			positioned: true,
		},
		{
			name:       "circular require",
			err:        NewCircularRequireError("a.cftemplate", []string{"a.cftemplate", "b.cftemplate", "a.cftemplate"}, pos),
			contains:   []string{ErrMsgCircularRequire, "a.cftemplate"},
			positioned: true,
		},
		{
			name:       "max depth",
			err:        NewMaxDepthExceededError(4, pos),
			contains:   []string{ErrMsgMaxDepthExceeded},
			positioned: true,
		},
		{
			name:       "publication lookup",
			err:        NewPublicationLookupError(PublicationRef{"a", "b", "1e"}, pos, errors.New("offline")),
			contains:   []string{ErrMsgPublicationLookup, "a/b@1e", "offline"},
			positioned: true,
		},
		{
			name:     "form not found",
			err:      NewFormNotFoundError(testDigest),
			contains: []string{ErrMsgFormNotFound, testDigest},
		},
		{
			name:     "unexpected status",
			err:      NewUnexpectedStatusError("http://x/forms/y", 503),
			contains: []string{ErrMsgUnexpectedStatus, "503"},
		},
		{
			name:     "template output",
			err:      NewTemplateOutputError("sub/a.cftemplate", errors.New("bad")),
			contains: []string{ErrMsgTemplateOutput, "sub/a.cftemplate"},
		},
		{
			name:       "markup",
			err:        NewMarkupError(ErrMsgEmptyInline, pos),
			contains:   []string{ErrMsgEmptyInline, "line 3, column 5"},
			positioned: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			for _, s := range tt.contains {
				assert.Contains(t, tt.err.Error(), s)
			}

			got, ok := ErrorPosition(tt.err)
			assert.Equal(t, tt.positioned, ok)
			if tt.positioned {
				assert.Equal(t, pos, got)
			}
		})
	}
}

func TestNewCircularRequireError_Chain(t *testing.T) {
	err := NewCircularRequireError("a", []string{"a", "b", "a"}, Position{Line: 1, Column: 1})

	var custom *cuserr.CustomError
	require.True(t, errors.As(err, &custom))
	chain, ok := custom.GetMetadata(MetaKeyChain)
	require.True(t, ok)
	assert.Equal(t, "a -> b -> a", chain)
}

func TestNewTemplateSyntaxError(t *testing.T) {
	t.Run("lexer error", func(t *testing.T) {
		cause := &internal.LexerError{Message: "unterminated directive", Position: internal.Position{Line: 4, Column: 2}}
		err := NewTemplateSyntaxError(cause)
		assert.Contains(t, err.Error(), "template syntax error: unterminated directive at line 4, column 2")

		pos, ok := ErrorPosition(err)
		require.True(t, ok)
		assert.Equal(t, 4, pos.Line)
		assert.Equal(t, 2, pos.Column)
	})

	t.Run("parser error", func(t *testing.T) {
		cause := &internal.ParserError{Message: "unclosed block directive", Position: internal.Position{Line: 1, Column: 9}}
		err := NewTemplateSyntaxError(cause)
		assert.Contains(t, err.Error(), "unclosed block directive at line 1, column 9")
	})

	t.Run("other error", func(t *testing.T) {
		err := NewTemplateSyntaxError(errors.New("boom"))
		assert.Contains(t, err.Error(), ErrMsgTemplateSyntax)
		_, ok := ErrorPosition(err)
		assert.False(t, ok)
	})
}

func TestNewReadError(t *testing.T) {
	err := NewReadError("x.cform", os.ErrNotExist)
	assert.Contains(t, err.Error(), ErrMsgReadFailed)
	assert.Contains(t, err.Error(), "x.cform")
}

func TestErrorPosition_NonCustom(t *testing.T) {
	_, ok := ErrorPosition(errors.New("plain"))
	assert.False(t, ok)
	_, ok = ErrorPosition(nil)
	assert.False(t, ok)
}

func TestNotFoundErrors_KeepMessage(t *testing.T) {
	pos := Position{Offset: 0, Line: 1, Column: 1}

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "could not require",
			err:      NewCouldNotRequireError("./missing", pos),
			expected: "could not require ./missing at line 1, column 1",
		},
		{
			name:     "form not found",
			err:      NewFormNotFoundError(testDigest),
			expected: "form not found " + testDigest,
		},
		{
			name:     "publication not found",
			err:      NewPublicationNotFoundError(PublicationRef{Publisher: "acme", Project: "nda", Edition: "2e"}),
			expected: "publication not found acme/nda@2e",
		},
		{
			name:     "fetcher driver not found",
			err:      NewFetcherDriverNotFoundError("redis"),
			expected: "fetcher driver not found redis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.True(t, IsNotFound(tt.err))
			assert.ErrorIs(t, tt.err, cuserr.ErrNotFound)
		})
	}
}
