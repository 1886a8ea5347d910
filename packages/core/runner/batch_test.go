package runner

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadURLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := "https://a\n\n  # comment\n  https://b  \nhttps://c\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	urls, err := LoadURLFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a", "https://b", "https://c"}, urls)
	assert.True(t, IsURLFile(path))
	assert.False(t, IsURLFile("https://a"))
	assert.False(t, IsURLFile(t.TempDir()))
}

func TestLoadURLFile_Errors(t *testing.T) {
	_, err := LoadURLFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n# only comments\n"), 0o600))
	_, err = LoadURLFile(empty)
	assert.ErrorContains(t, err, "no URLs")
}

func TestRunner_SendBatchContinuesAfterFailure(t *testing.T) {
	var hits atomic.Int32
	server := echoServer(t, &hits)

	down := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {}))
	downURL := down.URL
	down.Close()

	store := newStore(t, map[string]string{"host": server.URL})
	r := New(http.NewClient(), store, WithLogger(quietLogger()))

	urls := []string{"{{host}}/one", downURL, "{{host}}/missing", "{{host}}/two"}
	items := r.SendBatch(context.Background(), http.NewRequest("GET", ""), urls, &SendOptions{Assertion: "status=200"})
	require.Len(t, items, 4)

	assert.NoError(t, items[0].Err)
	assert.True(t, items[0].Result.Passed())

	var terr *http.TransportError
	assert.True(t, errors.As(items[1].Err, &terr))
	assert.Equal(t, downURL, items[1].URL)

	assert.NoError(t, items[2].Err)
	assert.False(t, items[2].Result.Passed())
	assert.Equal(t, 404, items[2].Result.Response.StatusCode)

	assert.NoError(t, items[3].Err)
	assert.Equal(t, "GET /two ", items[3].Result.Response.Body)

	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 3, store.HistoryLen())
}

func TestRunner_SendBatchStopsOnCancel(t *testing.T) {
	var hits atomic.Int32
	server := echoServer(t, &hits)
	r := New(http.NewClient(), newStore(t, nil), WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := r.SendBatch(ctx, http.NewRequest("GET", ""), []string{server.URL, server.URL}, nil)
	assert.Empty(t, items)
	assert.Zero(t, hits.Load())
}

func TestRunner_Repeat(t *testing.T) {
	var hits atomic.Int32
	server := echoServer(t, &hits)
	store := newStore(t, nil)
	r := New(http.NewClient(), store, WithLogger(quietLogger()))

	summary, err := r.Repeat(context.Background(), http.NewRequest("GET", server.URL+"/r"),
		RepeatOptions{Count: 3, Interval: 20 * time.Millisecond},
		&SendOptions{Assertion: "status=200"})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 3, summary.Passed)
	assert.Zero(t, summary.Failed)
	assert.Equal(t, map[int]int{200: 3}, summary.StatusCounts)
	assert.Len(t, summary.Results, 3)
	assert.GreaterOrEqual(t, summary.Duration, 40*time.Millisecond)
	assert.Positive(t, summary.P50)
	assert.LessOrEqual(t, summary.Min, summary.P50)
	assert.LessOrEqual(t, summary.P50, summary.P99)
	assert.LessOrEqual(t, summary.P99, summary.Max)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 3, store.HistoryLen())
}

func TestRunner_RepeatPromptsOnce(t *testing.T) {
	var hits atomic.Int32
	server := echoServer(t, &hits)

	var prompts int
	r := New(http.NewClient(), newStore(t, map[string]string{"host": server.URL}),
		WithLogger(quietLogger()),
		WithPrompter(PromptFunc(func(string) (string, error) {
			prompts++
			return "p", nil
		})),
	)

	summary, err := r.Repeat(context.Background(), http.NewRequest("GET", "{{host}}/{{x}}"),
		RepeatOptions{Count: 2}, &SendOptions{FillVars: true})
	require.NoError(t, err)
	assert.Equal(t, 1, prompts)
	assert.Equal(t, 2, summary.Succeeded)
}

func TestRunner_RepeatErrors(t *testing.T) {
	r := New(http.NewClient(), newStore(t, nil), WithLogger(quietLogger()))

	_, err := r.Repeat(context.Background(), http.NewRequest("GET", "https://x"), RepeatOptions{Count: 0}, nil)
	assert.ErrorContains(t, err, "at least 1")

	down := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {}))
	downURL := down.URL
	down.Close()

	summary, err := r.Repeat(context.Background(), http.NewRequest("GET", downURL), RepeatOptions{Count: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)
	assert.Len(t, summary.Errors, 2)
	assert.Zero(t, summary.P50)
}
