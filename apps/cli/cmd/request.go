package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/postmaker/packages/core/runner"
	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/abdul-hamid-achik/postmaker/packages/output"
)

var requestCmd = &cobra.Command{
	Use:   "request [url]",
	Short: "Make an HTTP request",
	Long: `Make an HTTP request. Placeholders like {{token}} are filled from stored
variables before sending, and every exchange is recorded in history.

When --url names an existing file, each non-empty line is sent as its
own request with the same method, headers and body.

Examples:
  postmaker request https://api.example.com/users
  postmaker request -X POST -u {{base}}/users -H "Content-Type: application/json" -d '{"name":"ada"}'
  postmaker request -u https://api.example.com/me --auth "bearer {{token}}" -a status=200
  postmaker request -u urls.txt --only status
  postmaker request -u https://api.example.com/health --repeat 10 --interval 500ms`,
	Args: usageArgs(cobra.MaximumNArgs(1)),
	RunE: requestCommand,
}

var (
	requestReq  requestFlags
	requestSend sendFlags
)

func init() {
	requestReq.register(requestCmd)
	requestSend.register(requestCmd, "a")
}

// requestFlags builds a Request from the command line.
type requestFlags struct {
	method      string
	url         string
	header      []string
	headersJSON string
	data        string
	auth        string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.method, "method", "X", "GET", "HTTP method")
	cmd.Flags().StringVarP(&f.url, "url", "u", "", "Request URL, or a file with one URL per line")
	cmd.Flags().StringArrayVarP(&f.header, "header", "H", nil, `Header as "Name: value" (repeatable)`)
	cmd.Flags().StringVar(&f.headersJSON, "headers", "", "Headers as a JSON object or @file.json")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "Request body, or @file to read it from a file")
	cmd.Flags().StringVar(&f.auth, "auth", "", `Authentication helper: "bearer TOKEN" or "basic USER:PASS"`)
}

func (f *requestFlags) build() (*http.Request, error) {
	if strings.TrimSpace(f.url) == "" {
		return nil, usageError(fmt.Errorf("a URL is required (--url or first argument)"))
	}
	method := f.method
	if method == "" {
		method = "GET"
	}
	req := http.NewRequest(method, f.url)

	if f.headersJSON != "" {
		raw, err := readArgFile(f.headersJSON)
		if err != nil {
			return nil, err
		}
		var headers http.Headers
		if err := json.Unmarshal([]byte(raw), &headers); err != nil {
			return nil, usageError(fmt.Errorf("invalid --headers: %w", err))
		}
		for _, h := range headers {
			req.SetHeader(h.Key, h.Value)
		}
	}

	for _, line := range f.header {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, usageError(fmt.Errorf("invalid header %q (use \"Name: value\")", line))
		}
		req.SetHeader(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	if f.data != "" {
		body, err := readArgFile(f.data)
		if err != nil {
			return nil, err
		}
		req.SetBody(body)
	}

	if f.auth != "" {
		auth, err := http.ParseAuth(f.auth)
		if err != nil {
			return nil, usageError(err)
		}
		req.Auth = auth
	}
	return req, nil
}

// sendFlags control how a request is sent and reported.
type sendFlags struct {
	assertion string
	only      string
	output    string
	fillVars  bool
	preview   bool
	dryRun    bool
	noHistory bool
	jsonOut   bool
	repeat    int
	interval  time.Duration
}

func (f *sendFlags) register(cmd *cobra.Command, assertShort string) {
	cmd.Flags().StringVarP(&f.assertion, "assert", assertShort, "", "Assertion: status=CODE or body_contains=TEXT, optionally ,SCRIPT_ID")
	cmd.Flags().StringVar(&f.only, "only", "", "Print only this part of the response: body, headers or status")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write the response report to a file")
	cmd.Flags().BoolVar(&f.fillVars, "fill-vars", false, "Prompt for placeholders with no stored variable")
	cmd.Flags().BoolVarP(&f.preview, "preview", "p", false, "Show the resolved request and ask before sending")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Show what would be sent without sending it")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "Do not record this request in history")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Print results as JSON, one object per line")
	cmd.Flags().IntVarP(&f.repeat, "repeat", "r", 1, "Send the request N times and summarize latency")
	cmd.Flags().DurationVarP(&f.interval, "interval", "i", 0, "Minimum time between repeated requests, e.g. 500ms")
}

func (f *sendFlags) validate() error {
	if !output.ValidOnly(f.only) {
		return usageError(fmt.Errorf("invalid --only %q (use body, headers or status)", f.only))
	}
	if f.repeat < 1 {
		return usageError(fmt.Errorf("--repeat must be at least 1, got %d", f.repeat))
	}
	if f.interval < 0 {
		return usageError(fmt.Errorf("--interval must not be negative"))
	}
	return nil
}

func (f *sendFlags) options() *runner.SendOptions {
	return &runner.SendOptions{
		Assertion: f.assertion,
		FillVars:  f.fillVars,
		DryRun:    f.dryRun,
		NoHistory: f.noHistory,
	}
}

func requestCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		if requestReq.url != "" {
			return usageError(fmt.Errorf("give the URL either as an argument or with --url, not both"))
		}
		requestReq.url = args[0]
	}
	if err := requestSend.validate(); err != nil {
		return err
	}

	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	req, err := requestReq.build()
	if err != nil {
		return err
	}

	if runner.IsURLFile(req.URL) {
		return sendBatch(cmd.Context(), a, req, &requestSend)
	}
	return sendRequest(cmd.Context(), a, req, &requestSend)
}

// sendRequest is the shared path of request, send, replay and template use.
func sendRequest(ctx context.Context, a *app, req *http.Request, f *sendFlags) error {
	if err := f.validate(); err != nil {
		return err
	}
	r, err := a.Runner()
	if err != nil {
		return err
	}
	opts := f.options()

	if f.repeat > 1 && !f.dryRun {
		return sendRepeat(ctx, a, r, req, f, opts)
	}

	if !f.preview || f.dryRun {
		result, err := r.Send(ctx, req, opts)
		return reportResult(a, result, err, f)
	}

	p, err := r.Prepare(req, opts)
	if err != nil {
		return err
	}
	a.console.FormatUnresolved(p.Unresolved)
	a.console.FormatPreview(p.Request)
	if !a.confirm("Send this request?") {
		a.console.FormatWarning("Cancelled.")
		return nil
	}
	result, err := r.Execute(ctx, p, opts)
	return reportResult(a, result, err, f)
}

func reportResult(a *app, result *runner.Result, err error, f *sendFlags) error {
	if f.jsonOut {
		if jerr := output.NewJSONFormatter(output.WithJSONWriter(a.out)).FormatResult(result, err); jerr != nil {
			return jerr
		}
	} else if result != nil {
		a.console.FormatResult(result, f.only)
	}
	if err != nil {
		return err
	}

	if err := writeReport(a, result, f); err != nil {
		return err
	}
	if !result.Passed() {
		return errAssertionFailed
	}
	return nil
}

func writeReport(a *app, result *runner.Result, f *sendFlags) error {
	if f.output == "" || result == nil || result.Response == nil {
		return nil
	}
	if err := output.WriteResponseFile(f.output, result.Request, result.Response); err != nil {
		return err
	}
	if !f.jsonOut {
		a.console.FormatSuccess(fmt.Sprintf("Response written to %s", f.output))
	}
	return nil
}

func sendBatch(ctx context.Context, a *app, base *http.Request, f *sendFlags) error {
	urls, err := runner.LoadURLFile(base.URL)
	if err != nil {
		return usageError(err)
	}
	r, err := a.Runner()
	if err != nil {
		return err
	}

	items := r.SendBatch(ctx, base, urls, f.options())
	if f.jsonOut {
		if err := output.NewJSONFormatter(output.WithJSONWriter(a.out)).FormatBatch(items); err != nil {
			return err
		}
	} else {
		a.console.FormatBatch(items)
	}

	failed := len(items) < len(urls)
	for _, item := range items {
		if item.Err != nil || !item.Result.Passed() {
			failed = true
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed {
		return errAssertionFailed
	}
	return nil
}

func sendRepeat(ctx context.Context, a *app, r *runner.Runner, req *http.Request, f *sendFlags, opts *runner.SendOptions) error {
	summary, err := r.Repeat(ctx, req, runner.RepeatOptions{Count: f.repeat, Interval: f.interval}, opts)
	if summary == nil {
		return err
	}

	if f.jsonOut {
		jf := output.NewJSONFormatter(output.WithJSONWriter(a.out))
		for _, result := range summary.Results {
			if jerr := jf.FormatResult(result, nil); jerr != nil {
				return jerr
			}
		}
		for _, e := range summary.Errors {
			if jerr := jf.FormatResult(nil, e); jerr != nil {
				return jerr
			}
		}
	} else {
		if n := len(summary.Results); n > 0 {
			a.console.FormatResult(summary.Results[n-1], f.only)
		}
		a.console.FormatRepeat(summary)
	}
	if err != nil {
		return err
	}

	if n := len(summary.Results); n > 0 {
		if err := writeReport(a, summary.Results[n-1], f); err != nil {
			return err
		}
	}
	if summary.Failed > 0 || summary.Passed < summary.Total {
		return errAssertionFailed
	}
	return nil
}
