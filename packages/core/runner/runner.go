package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abdul-hamid-achik/postmaker/packages/assertions"
	"github.com/abdul-hamid-achik/postmaker/packages/core/env"
	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
)

// Prompter supplies a value for a placeholder the variable store cannot
// resolve.
type Prompter interface {
	Prompt(name string) (string, error)
}

// PromptFunc adapts a function to a Prompter.
type PromptFunc func(name string) (string, error)

func (f PromptFunc) Prompt(name string) (string, error) {
	return f(name)
}

type Runner struct {
	client   *http.Client
	store    *workspace.Store
	scripts  assertions.Dispatcher
	prompter Prompter
	logger   *slog.Logger
}

// Option is a functional option for configuring a Runner.
type Option func(*Runner)

// WithDispatcher sets where passing assertions with a script id are sent.
func WithDispatcher(d assertions.Dispatcher) Option {
	return func(r *Runner) {
		r.scripts = d
	}
}

// WithPrompter sets how missing placeholders are asked for when
// SendOptions.FillVars is set.
func WithPrompter(p Prompter) Option {
	return func(r *Runner) {
		r.prompter = p
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

func New(client *http.Client, store *workspace.Store, opts ...Option) *Runner {
	r := &Runner{
		client: client,
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SendOptions controls a single send.
type SendOptions struct {
	// Assertion is checked against the response, e.g. "status=200,1".
	Assertion string
	// FillVars prompts for every placeholder the variable store lacks.
	FillVars bool
	// Answers are values used for this send only, ahead of stored
	// variables. Prompted values are added here so a batch asks once.
	Answers map[string]string
	// DryRun resolves and validates the request without sending it.
	DryRun bool
	// NoHistory skips recording the exchange.
	NoHistory bool
}

// Prepared is a resolved request ready to execute.
type Prepared struct {
	Request    *http.Request
	Assertion  *assertions.Assertion
	Unresolved []string
}

type Result struct {
	Request    *http.Request
	Response   *http.Response
	Assertion  *assertions.Result
	History    *workspace.HistoryEntry
	Unresolved []string
	DryRun     bool
}

// Passed reports whether the send produced a response and any assertion
// held.
func (r *Result) Passed() bool {
	if r == nil || (r.Response == nil && !r.DryRun) {
		return false
	}
	return r.Assertion == nil || r.Assertion.Passed
}

// Prepare parses the assertion, resolves placeholders and validates the
// result. Nothing is sent. A malformed assertion fails here, before any
// network traffic.
func (r *Runner) Prepare(raw *http.Request, opts *SendOptions) (*Prepared, error) {
	if opts == nil {
		opts = &SendOptions{}
	}

	p := &Prepared{}
	if opts.Assertion != "" {
		a, err := assertions.Parse(opts.Assertion)
		if err != nil {
			return nil, err
		}
		p.Assertion = a
	}

	resolver, err := r.resolver(raw, opts)
	if err != nil {
		return nil, err
	}

	p.Request = raw.Resolve(resolver)
	if err := p.Request.Validate(); err != nil {
		return nil, err
	}
	p.Unresolved = p.Request.Placeholders()
	return p, nil
}

func (r *Runner) resolver(raw *http.Request, opts *SendOptions) (*env.Resolver, error) {
	vars := map[string]string{}
	if r.store != nil {
		vars = r.store.Variables()
	}
	for k, v := range opts.Answers {
		vars[k] = v
	}

	if opts.FillVars {
		for _, name := range raw.Placeholders() {
			if _, ok := vars[name]; ok {
				continue
			}
			if r.prompter == nil {
				return nil, fmt.Errorf("no value for variable %q and no prompt available", name)
			}
			value, err := r.prompter.Prompt(name)
			if err != nil {
				return nil, fmt.Errorf("reading value for %q: %w", name, err)
			}
			vars[name] = value
			if opts.Answers == nil {
				opts.Answers = map[string]string{}
			}
			opts.Answers[name] = value
		}
	}

	resolver := env.NewResolver(vars)
	resolver.SetWarnFunc(func(format string, args ...any) {
		r.logger.Warn(fmt.Sprintf(format, args...))
	})
	return resolver, nil
}

// Execute sends a prepared request, records it in history and evaluates
// the assertion. A transport failure returns *http.TransportError and
// records nothing.
func (r *Runner) Execute(ctx context.Context, p *Prepared, opts *SendOptions) (*Result, error) {
	if opts == nil {
		opts = &SendOptions{}
	}
	result := &Result{Request: p.Request, Unresolved: p.Unresolved}

	r.logger.Debug("sending request", "method", p.Request.Method, "url", p.Request.URL)
	resp, err := r.client.Do(ctx, p.Request)
	if err != nil {
		r.logger.Debug("request failed", "url", p.Request.URL, "error", err)
		return result, err
	}
	result.Response = resp
	r.logger.Debug("response received", "status", resp.StatusCode, "elapsed", resp.Duration)

	if !opts.NoHistory && r.store != nil {
		entry, err := r.store.AppendHistory(p.Request, resp)
		if err != nil {
			r.logger.Warn("failed to record history", "error", err)
		} else {
			result.History = entry
			r.logger.Debug("history recorded", "index", entry.Index, "id", entry.ID)
		}
	}

	if p.Assertion != nil {
		evalOpts := []assertions.EvaluatorOption{assertions.WithRequest(p.Request)}
		if r.scripts != nil {
			evalOpts = append(evalOpts, assertions.WithDispatcher(r.scripts))
		}
		result.Assertion = assertions.NewEvaluator(resp, evalOpts...).Evaluate(p.Assertion)
	}

	return result, nil
}

// Send prepares and executes raw. With DryRun the resolved request is
// returned without being sent.
func (r *Runner) Send(ctx context.Context, raw *http.Request, opts *SendOptions) (*Result, error) {
	p, err := r.Prepare(raw, opts)
	if err != nil {
		return nil, err
	}
	if opts != nil && opts.DryRun {
		return &Result{Request: p.Request, Unresolved: p.Unresolved, DryRun: true}, nil
	}
	return r.Execute(ctx, p, opts)
}
