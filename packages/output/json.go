package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/postmaker/packages/assertions"
	"github.com/abdul-hamid-achik/postmaker/packages/core/runner"
	"github.com/abdul-hamid-achik/postmaker/packages/http"
)

// JSONResult is the machine-readable form of one send.
type JSONResult struct {
	Label      string         `json:"label,omitempty"`
	Request    *http.Request  `json:"request,omitempty"`
	Response   *JSONResponse  `json:"response,omitempty"`
	Assertion  *JSONAssertion `json:"assertion,omitempty"`
	History    *int           `json:"history,omitempty"`
	Unresolved []string       `json:"unresolved,omitempty"`
	DryRun     bool           `json:"dryRun,omitempty"`
	Passed     bool           `json:"passed"`
	Error      string         `json:"error,omitempty"`
	Time       string         `json:"time"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body"`
	Duration   float64           `json:"duration"`
	Size       int               `json:"size"`
}

// JSONAssertion represents an assertion result
type JSONAssertion struct {
	Subject  string `json:"subject"`
	Operator string `json:"operator"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
	ScriptID int    `json:"scriptId,omitempty"`
}

// JSONFormatter writes one JSON object per line for every result, so
// batches, repeats and chains stream as NDJSON.
type JSONFormatter struct {
	writer io.Writer
	now    func() time.Time
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithJSONWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

// ToJSONResult converts a send outcome. err is the send error, if any.
func ToJSONResult(label string, r *runner.Result, err error) *JSONResult {
	out := &JSONResult{Label: label}
	if err != nil {
		out.Error = err.Error()
	}
	if r == nil {
		return out
	}

	out.Request = r.Request
	out.Unresolved = r.Unresolved
	out.DryRun = r.DryRun
	out.Passed = err == nil && r.Passed()
	if r.Response != nil {
		out.Response = &JSONResponse{
			StatusCode: r.Response.StatusCode,
			Status:     r.Response.Status,
			Headers:    r.Response.Headers,
			Body:       r.Response.Body,
			Duration:   float64(r.Response.Duration.Milliseconds()),
			Size:       r.Response.Size,
		}
	}
	if r.Assertion != nil {
		out.Assertion = toJSONAssertion(r.Assertion)
	}
	if r.History != nil {
		idx := r.History.Index
		out.History = &idx
	}
	return out
}

func toJSONAssertion(a *assertions.Result) *JSONAssertion {
	return &JSONAssertion{
		Subject:  a.Subject,
		Operator: a.Operator,
		Expected: a.Expected,
		Actual:   a.Actual,
		Passed:   a.Passed,
		Message:  a.Message,
		ScriptID: a.ScriptID,
	}
}

func (f *JSONFormatter) write(v *JSONResult) error {
	v.Time = f.now().UTC().Format(time.RFC3339)
	enc := json.NewEncoder(f.writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (f *JSONFormatter) FormatResult(r *runner.Result, err error) error {
	return f.write(ToJSONResult("", r, err))
}

func (f *JSONFormatter) FormatBatch(items []*runner.BatchItem) error {
	for _, item := range items {
		if err := f.write(ToJSONResult(item.URL, item.Result, item.Err)); err != nil {
			return err
		}
	}
	return nil
}

func (f *JSONFormatter) FormatChainStep(sr *runner.StepResult) error {
	return f.write(ToJSONResult(sr.Step.Label(), sr.Result, sr.Err))
}
