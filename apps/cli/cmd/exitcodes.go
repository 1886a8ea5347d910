package cmd

import (
	"errors"
	"strings"

	"github.com/abdul-hamid-achik/postmaker/packages/assertions"
	"github.com/abdul-hamid-achik/postmaker/packages/curl"
	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
)

// Exit codes for the postmaker CLI
const (
	// ExitSuccess indicates the command completed and every assertion passed
	ExitSuccess = 0

	// ExitAssertionFailure indicates one or more assertions failed
	ExitAssertionFailure = 1

	// ExitParseError indicates a malformed cURL command or assertion
	ExitParseError = 2

	// ExitConfigError indicates a configuration or corrupt workspace error
	ExitConfigError = 3

	// ExitNetworkError indicates a connection, timeout or TLS failure
	ExitNetworkError = 4

	// ExitLookupError indicates a missing or duplicate name
	ExitLookupError = 5

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// errAssertionFailed is returned after results were already printed.
var errAssertionFailed = errors.New("assertion failed")

// UsageError marks bad arguments or flag values.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

func usageError(err error) error {
	if err == nil {
		return nil
	}
	return &UsageError{Err: err}
}

// ConfigError wraps a failure to load configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		malformed *curl.MalformedCommandError
		invalid   *assertions.InvalidAssertionError
		corrupt   *workspace.CorruptWorkspaceError
		cfgErr    *ConfigError
		transport *http.TransportError
		usage     *UsageError
	)

	switch {
	case errors.Is(err, errAssertionFailed):
		return ExitAssertionFailure
	case errors.As(err, &malformed), errors.As(err, &invalid):
		return ExitParseError
	case errors.As(err, &corrupt), errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.As(err, &transport):
		return ExitNetworkError
	case errors.Is(err, workspace.ErrNotFound), errors.Is(err, workspace.ErrDuplicateAlias):
		return ExitLookupError
	case errors.As(err, &usage), isCobraUsage(err):
		return ExitUsageError
	default:
		return ExitAssertionFailure
	}
}

// isCobraUsage recognizes the argument errors cobra itself produces.
func isCobraUsage(err error) bool {
	msg := err.Error()
	for _, prefix := range []string{"unknown command", "unknown flag", "unknown shorthand flag", "flag needs an argument", "invalid argument", "accepts ", "requires at least", "requires at most", "required flag"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
