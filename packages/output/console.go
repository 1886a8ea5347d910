package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/abdul-hamid-achik/postmaker/packages/assertions"
	"github.com/abdul-hamid-achik/postmaker/packages/core/env"
	"github.com/abdul-hamid-achik/postmaker/packages/core/runner"
	"github.com/abdul-hamid-achik/postmaker/packages/diff"
	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
)

// Parts of a response that --only can select.
const (
	OnlyBody    = "body"
	OnlyHeaders = "headers"
	OnlyStatus  = "status"
)

// ValidOnly reports whether s is an accepted --only value; empty means all.
func ValidOnly(s string) bool {
	switch s {
	case "", OnlyBody, OnlyHeaders, OnlyStatus:
		return true
	}
	return false
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

var (
	green   = color.New(color.FgGreen).SprintFunc()
	red     = color.New(color.FgRed).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	cyan    = color.New(color.FgCyan).SprintFunc()
	magenta = color.New(color.FgMagenta, color.Bold).SprintFunc()
	blue    = color.New(color.FgBlue, color.Bold).SprintFunc()
	bold    = color.New(color.Bold).SprintFunc()
)

// statusColor follows the usual status classes: 2xx green, 3xx cyan,
// 4xx yellow, 5xx red.
func statusColor(code int) func(a ...any) string {
	switch {
	case code >= 200 && code < 300:
		return color.New(color.FgGreen, color.Bold).SprintFunc()
	case code >= 300 && code < 400:
		return color.New(color.FgCyan, color.Bold).SprintFunc()
	case code >= 400 && code < 500:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case code >= 500 && code < 600:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	default:
		return fmt.Sprint
	}
}

// FormatSize renders a byte count the way the status line shows it.
func FormatSize(n int) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f TB", size)
}

// prettyBody indents JSON bodies and leaves everything else untouched.
func (f *ConsoleFormatter) prettyBody(body string) string {
	if !gjson.Valid(body) {
		return body
	}
	out := pretty.Pretty([]byte(body))
	if !color.NoColor {
		out = pretty.Color(out, nil)
	}
	return strings.TrimRight(string(out), "\n")
}

func (f *ConsoleFormatter) statusLine(resp *http.Response) {
	status := statusColor(resp.StatusCode)(fmt.Sprintf("%d %s", resp.StatusCode, resp.Status))
	fmt.Fprintf(f.writer, "%s %.2f ms  %s %s  %s %s\n",
		blue("Time:"), float64(resp.Duration.Microseconds())/1000,
		blue("Size:"), FormatSize(resp.Size),
		blue("Status:"), status)
}

func (f *ConsoleFormatter) headers(resp *http.Response) {
	fmt.Fprintf(f.writer, "%s\n", magenta("Headers"))
	for _, name := range resp.HeaderNames() {
		fmt.Fprintf(f.writer, "  %s: %s\n", cyan(name), resp.Headers[name])
	}
}

func (f *ConsoleFormatter) body(resp *http.Response) {
	title := "Body"
	if resp.IsHTML() {
		title = "Body (HTML)"
	}
	fmt.Fprintf(f.writer, "%s\n", magenta(title))
	if resp.Body != "" {
		fmt.Fprintln(f.writer, f.prettyBody(resp.Body))
	}
}

// FormatResponse prints a response. only selects a single part: "status",
// "headers" or "body"; empty prints all three.
func (f *ConsoleFormatter) FormatResponse(resp *http.Response, only string) {
	switch only {
	case OnlyStatus:
		f.statusLine(resp)
	case OnlyHeaders:
		f.headers(resp)
	case OnlyBody:
		f.body(resp)
	default:
		f.statusLine(resp)
		f.headers(resp)
		f.body(resp)
	}
}

// FormatPreview prints a resolved request as it would go on the wire.
func (f *ConsoleFormatter) FormatPreview(req *http.Request) {
	fmt.Fprintf(f.writer, "%s\n", magenta("REQUEST PREVIEW"))
	fmt.Fprintf(f.writer, "%s %s\n", bold("Method:"), green(req.Method))
	fmt.Fprintf(f.writer, "%s %s\n", bold("URL:"), yellow(req.URL))

	headers, err := req.EffectiveHeaders()
	if err != nil {
		headers = req.Headers
	}
	fmt.Fprintf(f.writer, "%s\n", bold("Headers:"))
	for _, h := range headers {
		fmt.Fprintf(f.writer, "  %s: %s\n", cyan(h.Key), h.Value)
	}

	if req.Body == nil {
		fmt.Fprintf(f.writer, "%s none\n", bold("Body:"))
		return
	}
	fmt.Fprintf(f.writer, "%s\n%s\n", bold("Body:"), f.prettyBody(req.Body.Raw))
}

// FormatDryRun notes that nothing was sent.
func (f *ConsoleFormatter) FormatDryRun() {
	fmt.Fprintf(f.writer, "%s\n", yellow("[DRY RUN] No request sent."))
}

// FormatUnresolved warns about placeholders left in a resolved request.
func (f *ConsoleFormatter) FormatUnresolved(names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintf(f.writer, "%s unresolved placeholders: %s\n", yellow("Warning:"), strings.Join(names, ", "))
}

func (f *ConsoleFormatter) FormatAssertion(r *assertions.Result) {
	if r == nil {
		return
	}
	if r.Passed {
		fmt.Fprintf(f.writer, "%s %s\n", green("✓ Assertion passed:"), r.Message)
		if r.ScriptID > 0 {
			fmt.Fprintf(f.writer, "  %s\n", cyan(fmt.Sprintf("running script %d", r.ScriptID)))
		}
		return
	}
	fmt.Fprintf(f.writer, "%s %s\n", red("✗ Assertion failed:"), r.Message)
	if f.verbose {
		fmt.Fprintf(f.writer, "    %s %s\n", r.Subject, r.Operator)
		fmt.Fprintf(f.writer, "      Expected: %v\n", r.Expected)
		fmt.Fprintf(f.writer, "      Actual:   %v\n", r.Actual)
	}
}

// FormatResult prints everything a single send produced.
func (f *ConsoleFormatter) FormatResult(r *runner.Result, only string) {
	f.FormatUnresolved(r.Unresolved)
	if r.DryRun {
		f.FormatPreview(r.Request)
		f.FormatDryRun()
		return
	}
	if f.verbose {
		f.FormatPreview(r.Request)
	}
	if r.Response != nil {
		f.FormatResponse(r.Response, only)
	}
	f.FormatAssertion(r.Assertion)
	if f.verbose && r.History != nil {
		fmt.Fprintf(f.writer, "%s\n", cyan(fmt.Sprintf("(history #%d)", r.History.Index)))
	}
}

func (f *ConsoleFormatter) FormatBatch(items []*runner.BatchItem) {
	passed, failed := 0, 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("x"), item.URL, red(fmt.Sprintf("(%v)", item.Err)))
			continue
		}
		if item.Result.Passed() {
			passed++
		} else {
			failed++
		}
		f.batchLine(item.Result)
	}
	f.totals(passed, failed)
}

func (f *ConsoleFormatter) batchLine(r *runner.Result) {
	symbol := green("✓")
	if !r.Passed() {
		symbol = red("✗")
	}
	if r.DryRun {
		fmt.Fprintf(f.writer, "  %s %s %s\n", yellow("-"), r.Request.Method, r.Request.URL)
		return
	}
	code := r.Response.StatusCode
	fmt.Fprintf(f.writer, "  %s %s %s %s %s\n", symbol, r.Request.Method, r.Request.URL,
		statusColor(code)(code), cyan(fmt.Sprintf("(%dms)", r.Response.DurationMs())))
	if r.Assertion != nil && !r.Assertion.Passed {
		fmt.Fprintf(f.writer, "    %s %s\n", red("→"), r.Assertion.Message)
	}
}

func (f *ConsoleFormatter) totals(passed, failed int) {
	fmt.Fprintf(f.writer, "\nRequests: ")
	if passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", passed)))
	}
	if failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", failed)))
	}
	fmt.Fprintf(f.writer, "%d total\n", passed+failed)
}

func (f *ConsoleFormatter) FormatRepeat(s *runner.RepeatSummary) {
	fmt.Fprintf(f.writer, "\n%s\n", magenta("Repeat Summary"))
	fmt.Fprintf(f.writer, "  Requests:  %d (%s, %s)\n", s.Total,
		green(fmt.Sprintf("%d ok", s.Succeeded)), red(fmt.Sprintf("%d failed", s.Failed)))
	if s.Passed != s.Succeeded {
		fmt.Fprintf(f.writer, "  Assertions: %d of %d passed\n", s.Passed, s.Succeeded)
	}
	for _, code := range sortedInts(s.StatusCounts) {
		fmt.Fprintf(f.writer, "  Status %s: %d\n", statusColor(code)(code), s.StatusCounts[code])
	}
	if s.Succeeded > 0 {
		fmt.Fprintf(f.writer, "  Latency:   min %v  mean %v  max %v\n", s.Min, s.Mean, s.Max)
		fmt.Fprintf(f.writer, "             p50 %v  p95 %v  p99 %v\n", s.P50, s.P95, s.P99)
	}
	fmt.Fprintf(f.writer, "  Duration:  %v\n", s.Duration.Round(time.Millisecond))
	for _, err := range s.Errors {
		fmt.Fprintf(f.writer, "  %s %v\n", red("x"), err)
	}
}

// FormatChainStep prints one step as it completes.
func (f *ConsoleFormatter) FormatChainStep(sr *runner.StepResult) {
	fmt.Fprintf(f.writer, "%s\n", cyan(fmt.Sprintf("[%d] %s", sr.Index+1, sr.Step.Label())))
	if sr.Err != nil {
		fmt.Fprintf(f.writer, "  %s %v\n", red("x"), sr.Err)
		return
	}
	f.FormatResult(sr.Result, sr.Step.Only)
}

func (f *ConsoleFormatter) FormatChainSummary(results []*runner.StepResult) {
	passed := 0
	for _, sr := range results {
		if sr.Passed() {
			passed++
		}
	}
	f.totals(passed, len(results)-passed)
}

// FormatDiff prints a diff with unified-style prefixes.
func (f *ConsoleFormatter) FormatDiff(r *diff.Result) {
	fmt.Fprintf(f.writer, "%s\n%s\n", red("--- "+r.Left.Label), green("+++ "+r.Right.Label))
	if r.Left.HasMeta && r.Right.HasMeta && r.Left.Status != r.Right.Status {
		fmt.Fprintf(f.writer, "%s %s -> %s\n", bold("Status:"),
			statusColor(r.Left.Status)(r.Left.Status), statusColor(r.Right.Status)(r.Right.Status))
	}
	for _, line := range r.Lines {
		text := line.Op.Prefix() + line.Text
		switch line.Op {
		case diff.Added:
			fmt.Fprintln(f.writer, green(text))
		case diff.Removed:
			fmt.Fprintln(f.writer, red(text))
		default:
			fmt.Fprintln(f.writer, text)
		}
	}
	if r.Identical() {
		fmt.Fprintf(f.writer, "%s\n", green("No differences."))
		return
	}
	fmt.Fprintf(f.writer, "%s, %s\n",
		green(fmt.Sprintf("%d added", r.Added)), red(fmt.Sprintf("%d removed", r.Removed)))
}

func (f *ConsoleFormatter) FormatHistory(entries []*workspace.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintf(f.writer, "%s\n", yellow("No history."))
		return
	}
	for _, e := range entries {
		status := "-"
		elapsed := ""
		if e.Response != nil {
			status = statusColor(e.Response.StatusCode)(e.Response.StatusCode)
			elapsed = cyan(fmt.Sprintf("(%dms)", e.Response.DurationMs()))
		}
		fmt.Fprintf(f.writer, "%s %s %s %s %s %s\n",
			bold(fmt.Sprintf("[%d]", e.Index)),
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			green(e.Request.Method), yellow(e.Request.URL), status, elapsed)
	}
}

// FormatRequest prints a saved request under name.
func (f *ConsoleFormatter) FormatRequest(name string, req *http.Request) {
	fmt.Fprintf(f.writer, "  %s %s\n", cyan("Alias:"), name)
	f.requestFields(req)
}

func (f *ConsoleFormatter) requestFields(req *http.Request) {
	fmt.Fprintf(f.writer, "    Method: %s\n", green(req.Method))
	fmt.Fprintf(f.writer, "    URL: %s\n", yellow(req.URL))
	if len(req.Headers) > 0 {
		data, _ := req.Headers.MarshalJSON()
		fmt.Fprintf(f.writer, "    Headers: %s\n", data)
	}
	if req.Body != nil {
		fmt.Fprintf(f.writer, "    Body: %s\n", req.Body.Raw)
	}
	if req.Auth != nil {
		fmt.Fprintf(f.writer, "    Auth: %s\n", req.Auth.Scheme)
	}
}

// FormatCollection prints one collection with its aliases in name order.
func (f *ConsoleFormatter) FormatCollection(name string, c workspace.Collection) {
	fmt.Fprintf(f.writer, "\n%s\n", magenta("Collection: "+name))
	if len(c) == 0 {
		fmt.Fprintf(f.writer, "  %s\n", yellow("(empty)"))
		return
	}
	for _, alias := range c.Names() {
		f.FormatRequest(alias, c[alias])
	}
}

func (f *ConsoleFormatter) FormatCollections(list []workspace.CollectionInfo) {
	if len(list) == 0 {
		fmt.Fprintf(f.writer, "%s\n", yellow("No collections saved."))
		return
	}
	for _, c := range list {
		fmt.Fprintf(f.writer, "%s %s\n", magenta(c.Name), cyan(fmt.Sprintf("(%d)", len(c.Aliases))))
		for _, alias := range c.Aliases {
			fmt.Fprintf(f.writer, "  %s\n", alias)
		}
	}
}

func (f *ConsoleFormatter) FormatGlobalAliases(c workspace.Collection) {
	if len(c) == 0 {
		fmt.Fprintf(f.writer, "%s\n", yellow("No global aliases saved."))
		return
	}
	fmt.Fprintf(f.writer, "%s\n", magenta("Global Aliases:"))
	for _, name := range c.Names() {
		f.FormatRequest(name, c[name])
	}
}

func (f *ConsoleFormatter) FormatVariables(vars map[string]string) {
	if len(vars) == 0 {
		fmt.Fprintf(f.writer, "%s\n", yellow("No variables set."))
		return
	}
	for _, name := range env.SortedNames(vars) {
		fmt.Fprintf(f.writer, "%s = %s\n", cyan(name), vars[name])
	}
}

func (f *ConsoleFormatter) FormatTemplates(list []*workspace.Template) {
	if len(list) == 0 {
		fmt.Fprintf(f.writer, "%s\n", yellow("No templates saved."))
		return
	}
	fmt.Fprintf(f.writer, "%s\n", magenta("Templates:"))
	for _, t := range list {
		fmt.Fprintf(f.writer, "  %s %s\n", cyan("Name:"), t.Name)
		f.requestFields(t.Request)
		if len(t.Placeholders) > 0 {
			fmt.Fprintf(f.writer, "    Placeholders: %s\n", strings.Join(t.Placeholders, ", "))
		}
		if t.Options.Assertion != "" {
			fmt.Fprintf(f.writer, "    Assertion: %s\n", t.Options.Assertion)
		}
	}
}

// FormatCurl prints an encoded command on its own line so it can be copied.
func (f *ConsoleFormatter) FormatCurl(cmd string) {
	fmt.Fprintln(f.writer, cmd)
}

func (f *ConsoleFormatter) FormatSuccess(msg string) {
	fmt.Fprintf(f.writer, "%s\n", green(msg))
}

func (f *ConsoleFormatter) FormatWarning(msg string) {
	fmt.Fprintf(f.writer, "%s\n", yellow(msg))
}

func (f *ConsoleFormatter) FormatError(err error) {
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	fmt.Fprintf(f.writer, "%s %s\n", bold("postmaker"), version)
}

func sortedInts(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
