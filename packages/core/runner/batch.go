package runner

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/postmaker/packages/http"
)

// BatchItem is the outcome for one URL of a batch. Exactly one of Result
// and Err describes it, except for transport failures where Result still
// carries the resolved request.
type BatchItem struct {
	URL    string
	Result *Result
	Err    error
}

// LoadURLFile reads one URL per line, skipping blank lines and # comments.
func LoadURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open URL file: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL file: %w", err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("URL file %s contains no URLs", path)
	}
	return urls, nil
}

// IsURLFile reports whether target names an existing regular file rather
// than a URL.
func IsURLFile(target string) bool {
	info, err := os.Stat(target)
	return err == nil && info.Mode().IsRegular()
}

// SendBatch sends base once per URL, in order. A failure on one URL is
// recorded on its item and the batch continues; only a cancelled context
// stops it early.
func (r *Runner) SendBatch(ctx context.Context, base *http.Request, urls []string, opts *SendOptions) []*BatchItem {
	if opts == nil {
		opts = &SendOptions{}
	}

	items := make([]*BatchItem, 0, len(urls))
	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}

		req := base.Clone()
		req.URL = u
		result, err := r.Send(ctx, req, opts)
		if err != nil {
			r.logger.Warn("batch request failed", "url", u, "error", err)
		}
		items = append(items, &BatchItem{URL: u, Result: result, Err: err})
	}
	return items
}
