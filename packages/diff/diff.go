package diff

import (
	"fmt"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

type Op int

const (
	Equal Op = iota
	Added
	Removed
)

func (o Op) String() string {
	switch o {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "equal"
	}
}

// Prefix is the one-character marker used when printing a line.
func (o Op) Prefix() string {
	switch o {
	case Added:
		return "+"
	case Removed:
		return "-"
	default:
		return " "
	}
}

type Line struct {
	Op   Op
	Text string
}

type Result struct {
	Left    Source
	Right   Source
	Lines   []Line
	Added   int
	Removed int
}

// Identical reports whether the two bodies canonicalize to the same text.
func (r *Result) Identical() bool {
	return r.Added == 0 && r.Removed == 0
}

// Source is one side of a comparison. File contents carry no status or
// headers.
type Source struct {
	Label   string
	Status  int
	Headers map[string]string
	Body    string
	HasMeta bool
}

// FromResponse wraps a stored response.
func FromResponse(label string, resp *http.Response) Source {
	return Source{
		Label:   label,
		Status:  resp.StatusCode,
		Headers: resp.Headers,
		Body:    resp.Body,
		HasMeta: true,
	}
}

// FromFile reads path as an opaque body.
func FromFile(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Source{Label: path, Body: string(data)}, nil
}

var canonicalOptions = &pretty.Options{
	Width:    80,
	Prefix:   "",
	Indent:   "  ",
	SortKeys: true,
}

// Canonical renders body as key-sorted indented JSON when it parses as
// JSON, and returns it unchanged otherwise.
func Canonical(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || !gjson.Valid(trimmed) {
		return body
	}
	return string(pretty.PrettyOptions([]byte(trimmed), canonicalOptions))
}

// Compare diffs the canonical bodies of left and right line by line.
func Compare(left, right Source) *Result {
	lines := Lines(Canonical(left.Body), Canonical(right.Body))
	r := &Result{Left: left, Right: right, Lines: lines}
	for _, l := range lines {
		switch l.Op {
		case Added:
			r.Added++
		case Removed:
			r.Removed++
		}
	}
	return r
}

// maxTableCells bounds the LCS table (8 bytes per cell). Past it the changed
// middle is reported as all removed then all added.
var maxTableCells = 1 << 22

// Lines computes a longest-common-subsequence diff of a and b split into
// lines. Lines only in b are Added and lines only in a are Removed. Very
// large changed regions get a coarser diff that is still correct but not
// minimal.
func Lines(a, b string) []Line {
	x := splitLines(a)
	y := splitLines(b)

	// Trim the common prefix and suffix so the table only covers the
	// changed middle.
	start := 0
	for start < len(x) && start < len(y) && x[start] == y[start] {
		start++
	}
	endX, endY := len(x), len(y)
	for endX > start && endY > start && x[endX-1] == y[endY-1] {
		endX--
		endY--
	}

	out := make([]Line, 0, len(x)+len(y))
	for _, s := range x[:start] {
		out = append(out, Line{Op: Equal, Text: s})
	}
	midX, midY := x[start:endX], y[start:endY]
	if (len(midX)+1)*(len(midY)+1) > maxTableCells {
		out = append(out, replace(midX, midY)...)
	} else {
		out = append(out, lcs(midX, midY)...)
	}
	for _, s := range x[endX:] {
		out = append(out, Line{Op: Equal, Text: s})
	}
	return out
}

func replace(x, y []string) []Line {
	out := make([]Line, 0, len(x)+len(y))
	for _, s := range x {
		out = append(out, Line{Op: Removed, Text: s})
	}
	for _, s := range y {
		out = append(out, Line{Op: Added, Text: s})
	}
	return out
}

func lcs(x, y []string) []Line {
	n, m := len(x), len(y)
	// table[i][j] is the LCS length of x[i:] and y[j:]
	table := make([][]int, n+1)
	for i := range table {
		table[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if x[i] == y[j] {
				table[i][j] = table[i+1][j+1] + 1
			} else if table[i+1][j] >= table[i][j+1] {
				table[i][j] = table[i+1][j]
			} else {
				table[i][j] = table[i][j+1]
			}
		}
	}

	out := make([]Line, 0, n+m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case x[i] == y[j]:
			out = append(out, Line{Op: Equal, Text: x[i]})
			i++
			j++
		case table[i+1][j] >= table[i][j+1]:
			out = append(out, Line{Op: Removed, Text: x[i]})
			i++
		default:
			out = append(out, Line{Op: Added, Text: y[j]})
			j++
		}
	}
	for ; i < n; i++ {
		out = append(out, Line{Op: Removed, Text: x[i]})
	}
	for ; j < m; j++ {
		out = append(out, Line{Op: Added, Text: y[j]})
	}
	return out
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
