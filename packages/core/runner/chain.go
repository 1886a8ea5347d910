package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/abdul-hamid-achik/postmaker/packages/http"
)

// ChainStep is one entry of a chain file. A step either names a saved
// alias or spells out the request inline.
type ChainStep struct {
	Name      string       `json:"name,omitempty"`
	Alias     string       `json:"alias,omitempty"`
	Method    string       `json:"method,omitempty"`
	URL       string       `json:"url,omitempty"`
	Headers   http.Headers `json:"headers,omitempty"`
	Body      *http.Body   `json:"body,omitempty"`
	Data      *http.Body   `json:"data,omitempty"` // older spelling of body
	Auth      string       `json:"auth,omitempty"` // "bearer TOKEN" or "basic USER:PASS"
	Assertion string       `json:"assertion,omitempty"`
	Only      string       `json:"only,omitempty"`
	Output    string       `json:"output_file,omitempty"`
}

// Label names the step in reports.
func (s *ChainStep) Label() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Alias != "":
		return s.Alias
	default:
		return s.Method + " " + s.URL
	}
}

// StepResult is the outcome of one chain step.
type StepResult struct {
	Index  int
	Step   *ChainStep
	Result *Result
	Err    error
}

// Passed reports whether the step ran and its assertion, if any, held.
func (s *StepResult) Passed() bool {
	return s.Err == nil && s.Result.Passed()
}

// LoadChain reads a JSON array of steps.
func LoadChain(path string) ([]*ChainStep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain file: %w", err)
	}
	return ParseChain(data)
}

func ParseChain(data []byte) ([]*ChainStep, error) {
	var steps []*ChainStep
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("invalid chain file: %w", err)
	}
	for i, s := range steps {
		if s == nil {
			return nil, fmt.Errorf("chain step %d is empty", i+1)
		}
		if s.Alias == "" && s.URL == "" {
			return nil, fmt.Errorf("chain step %d needs an alias or a url", i+1)
		}
	}
	return steps, nil
}

// request builds the step's request, looking up aliases in the store.
// Inline fields override the alias they extend.
func (r *Runner) request(s *ChainStep) (*http.Request, error) {
	var req *http.Request
	if s.Alias != "" {
		if r.store == nil {
			return nil, fmt.Errorf("alias %q: no workspace", s.Alias)
		}
		found, _, err := r.store.FindAlias(s.Alias)
		if err != nil {
			return nil, err
		}
		req = found
	} else {
		req = http.NewRequest("GET", "")
	}

	if s.Method != "" {
		req.Method = s.Method
	}
	if s.URL != "" {
		req.URL = s.URL
	}
	for _, h := range s.Headers {
		req.Headers.Set(h.Key, h.Value)
	}
	switch {
	case s.Body != nil:
		req.Body = s.Body
	case s.Data != nil:
		req.Body = s.Data
	}
	if s.Auth != "" {
		auth, err := http.ParseAuth(s.Auth)
		if err != nil {
			return nil, err
		}
		req.Auth = auth
	}
	return req, nil
}

// RunChain runs every step in order. A failing step is reported and the
// chain continues with the next one. onStep, when set, is called after each
// step so callers can report progressively.
func (r *Runner) RunChain(ctx context.Context, steps []*ChainStep, opts *SendOptions, onStep func(*StepResult)) []*StepResult {
	if opts == nil {
		opts = &SendOptions{}
	}

	results := make([]*StepResult, 0, len(steps))
	for i, step := range steps {
		if ctx.Err() != nil {
			break
		}

		sr := &StepResult{Index: i, Step: step}
		req, err := r.request(step)
		if err != nil {
			sr.Err = err
		} else {
			stepOpts := *opts
			stepOpts.Assertion = step.Assertion
			sr.Result, sr.Err = r.Send(ctx, req, &stepOpts)
			opts.Answers = stepOpts.Answers
		}

		if sr.Err != nil {
			r.logger.Warn("chain step failed", "step", i+1, "label", step.Label(), "error", sr.Err)
		}
		results = append(results, sr)
		if onStep != nil {
			onStep(sr)
		}
	}
	return results
}
