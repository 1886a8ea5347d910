package assertions

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/postmaker/packages/http"
)

type Result struct {
	Passed   bool
	Message  string
	Expected any
	Actual   any
	Subject  string
	Operator string
	// ScriptID is the script signalled after a pass, or zero.
	ScriptID int
}

// ScriptCommand is the message sent to the script runner after a passing
// assertion that carries a script id.
type ScriptCommand struct {
	ScriptID int
	Request  *http.Request
	Response *http.Response
}

// Dispatcher receives script commands. Dispatch must not block on the
// script's outcome; nothing it does feeds back into the Result.
type Dispatcher interface {
	Dispatch(cmd ScriptCommand)
}

// DispatcherFunc adapts a function to a Dispatcher.
type DispatcherFunc func(cmd ScriptCommand)

func (f DispatcherFunc) Dispatch(cmd ScriptCommand) {
	f(cmd)
}

type Evaluator struct {
	response   *http.Response
	request    *http.Request
	dispatcher Dispatcher
}

// EvaluatorOption is a functional option for configuring an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithRequest attaches the request that produced the response, forwarded
// to the script runner.
func WithRequest(req *http.Request) EvaluatorOption {
	return func(e *Evaluator) {
		e.request = req
	}
}

// WithDispatcher sets where script commands go after a pass.
func WithDispatcher(d Dispatcher) EvaluatorOption {
	return func(e *Evaluator) {
		e.dispatcher = d
	}
}

func NewEvaluator(resp *http.Response, opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{response: resp}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Evaluate(a *Assertion) *Result {
	result := &Result{
		Subject:  a.Kind.String(),
		Operator: "==",
	}

	switch a.Kind {
	case KindStatus:
		result.Expected = a.Status
		result.Actual = e.response.StatusCode
		result.Passed = e.response.StatusCode == a.Status
		if result.Passed {
			result.Message = fmt.Sprintf("status is %d", a.Status)
		} else {
			result.Message = fmt.Sprintf("expected status %d, got %d", a.Status, e.response.StatusCode)
		}
	case KindBodyContains:
		result.Operator = "contains"
		result.Expected = a.Substring
		result.Actual = truncate(e.response.Body, 80)
		result.Passed = strings.Contains(e.response.Body, a.Substring)
		if result.Passed {
			result.Message = fmt.Sprintf("body contains %q", a.Substring)
		} else {
			result.Message = fmt.Sprintf("expected body to contain %q, got %q", a.Substring, result.Actual)
		}
	default:
		result.Message = fmt.Sprintf("unknown assertion kind %d", a.Kind)
		return result
	}

	if result.Passed && a.ScriptID > 0 && e.dispatcher != nil {
		e.dispatcher.Dispatch(ScriptCommand{
			ScriptID: a.ScriptID,
			Request:  e.request,
			Response: e.response,
		})
		result.ScriptID = a.ScriptID
	}

	return result
}

// Check parses text and evaluates it in one step. Malformed text returns
// *InvalidAssertionError and no Result.
func (e *Evaluator) Check(text string) (*Result, error) {
	a, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(a), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
