package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abdul-hamid-achik/postmaker/packages/assertions"
	"github.com/abdul-hamid-achik/postmaker/packages/curl"
	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"assertion failed", errAssertionFailed, ExitAssertionFailure},
		{"malformed curl", &curl.MalformedCommandError{Input: "curl", Reason: "no URL"}, ExitParseError},
		{"invalid assertion", fmt.Errorf("send: %w", &assertions.InvalidAssertionError{Input: "x", Reason: "no operator"}), ExitParseError},
		{"corrupt workspace", &workspace.CorruptWorkspaceError{Path: "w.json", Err: errors.New("bad")}, ExitConfigError},
		{"config", &ConfigError{Err: errors.New("bad timeout")}, ExitConfigError},
		{"transport", &http.TransportError{URL: "http://x", Err: errors.New("refused")}, ExitNetworkError},
		{"not found", fmt.Errorf("alias %q: %w", "me", workspace.ErrNotFound), ExitLookupError},
		{"duplicate", fmt.Errorf("alias %q %w", "me", workspace.ErrDuplicateAlias), ExitLookupError},
		{"usage", usageError(errors.New("bad flag")), ExitUsageError},
		{"cobra unknown command", errors.New(`unknown command "x" for "postmaker"`), ExitUsageError},
		{"cobra args", errors.New("accepts 1 arg(s), received 0"), ExitUsageError},
		{"cobra required flag", errors.New(`required flag(s) "alias" not set`), ExitUsageError},
		{"other", errors.New("boom"), ExitAssertionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestUsageErrorNil(t *testing.T) {
	assert.NoError(t, usageError(nil))
}
