package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/abdul-hamid-achik/postmaker/packages/http"
)

const reportRule = "============================"

// ResponseReport renders the plain-text report written by -o. It never
// contains color codes.
func ResponseReport(req *http.Request, resp *http.Response) string {
	headers, _ := json.MarshalIndent(resp.Headers, "", "  ")

	body := resp.Body
	if gjson.Valid(body) {
		body = strings.TrimRight(string(pretty.Pretty([]byte(body))), "\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Request Method: %s\n", req.Method)
	fmt.Fprintf(&b, "Request URL: %s\n", req.URL)
	fmt.Fprintf(&b, "Status: %d %s\n", resp.StatusCode, resp.Status)
	fmt.Fprintf(&b, "Time: %d ms\n", resp.DurationMs())
	fmt.Fprintf(&b, "Size: %s\n", FormatSize(resp.Size))
	b.WriteString(reportRule + "\n")
	fmt.Fprintf(&b, "Headers:\n%s\n", headers)
	b.WriteString(reportRule + "\n")
	fmt.Fprintf(&b, "Body:\n%s\n", body)
	return b.String()
}

// WriteResponseFile writes ResponseReport to path.
func WriteResponseFile(path string, req *http.Request, resp *http.Response) error {
	if err := os.WriteFile(path, []byte(ResponseReport(req, resp)), 0o644); err != nil {
		return fmt.Errorf("failed to write output file %q: %w", path, err)
	}
	return nil
}
