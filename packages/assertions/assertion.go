package assertions

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type Kind int

const (
	KindStatus Kind = iota
	KindBodyContains
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindBodyContains:
		return "body_contains"
	default:
		return "unknown"
	}
}

// Assertion is a parsed `status=<int>` or `body_contains=<substring>`
// expectation with an optional `,<script id>` suffix. ScriptID is zero when
// no suffix was given.
type Assertion struct {
	Kind      Kind
	Status    int
	Substring string
	ScriptID  int
	Raw       string
}

// InvalidAssertionError reports an assertion string outside the grammar.
// It is distinct from an assertion that parsed and then failed.
type InvalidAssertionError struct {
	Input  string
	Reason string
}

func (e *InvalidAssertionError) Error() string {
	return fmt.Sprintf("invalid assertion %q: %s", e.Input, e.Reason)
}

var digits = regexp.MustCompile(`^[0-9]+$`)

// Parse parses an assertion string. The first comma after the operator
// always starts the script id suffix, so a body_contains operand cannot
// itself contain a comma. No whitespace is allowed around the comma.
func Parse(s string) (*Assertion, error) {
	invalid := func(reason string) error {
		return &InvalidAssertionError{Input: s, Reason: reason}
	}

	key, rest, ok := strings.Cut(s, "=")
	if !ok {
		return nil, invalid("expected status=<int> or body_contains=<text>")
	}

	a := &Assertion{Raw: s}

	operand, suffix, hasSuffix := strings.Cut(rest, ",")
	if hasSuffix {
		if !digits.MatchString(suffix) {
			return nil, invalid(fmt.Sprintf("script id %q is not an integer", suffix))
		}
		id, err := strconv.Atoi(suffix)
		if err != nil || id < 1 {
			return nil, invalid(fmt.Sprintf("script id %q must be a positive integer", suffix))
		}
		a.ScriptID = id
	}

	switch key {
	case "status":
		if !digits.MatchString(operand) {
			return nil, invalid(fmt.Sprintf("status %q is not an integer", operand))
		}
		code, err := strconv.Atoi(operand)
		if err != nil {
			return nil, invalid(err.Error())
		}
		a.Kind = KindStatus
		a.Status = code
	case "body_contains":
		if operand == "" {
			return nil, invalid("body_contains needs a substring")
		}
		a.Kind = KindBodyContains
		a.Substring = operand
	default:
		return nil, invalid(fmt.Sprintf("unknown assertion %q (use status or body_contains)", key))
	}

	return a, nil
}

// String renders the assertion back in its input grammar.
func (a *Assertion) String() string {
	var s string
	if a.Kind == KindStatus {
		s = fmt.Sprintf("status=%d", a.Status)
	} else {
		s = "body_contains=" + a.Substring
	}
	if a.ScriptID > 0 {
		s += fmt.Sprintf(",%d", a.ScriptID)
	}
	return s
}
