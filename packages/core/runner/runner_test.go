package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/abdul-hamid-achik/postmaker/packages/assertions"
	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T, vars map[string]string) *workspace.Store {
	t.Helper()
	s, err := workspace.Open(workspace.NewMemoryBackend())
	require.NoError(t, err)
	if len(vars) > 0 {
		require.NoError(t, s.SetVariables(vars))
	}
	return s
}

// echoServer replies with "METHOD PATH body" and counts hits.
func echoServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Token", r.Header.Get("Authorization"))
		if r.URL.Path == "/missing" {
			w.WriteHeader(nethttp.StatusNotFound)
		}
		fmt.Fprintf(w, "%s %s %s", r.Method, r.URL.Path, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunner_SendResolvesFromStore(t *testing.T) {
	var hits atomic.Int32
	server := echoServer(t, &hits)
	store := newStore(t, map[string]string{"host": server.URL, "id": "42", "token": "abc"})
	r := New(http.NewClient(), store, WithLogger(quietLogger()))

	req := http.NewRequest("POST", "{{host}}/users/{{id}}").SetBody(`{"id":"{{id}}"}`)
	req.Auth = &http.Auth{Scheme: http.AuthBearer, Credential: "{{token}}"}

	result, err := r.Send(context.Background(), req, nil)
	require.NoError(t, err)

	assert.Equal(t, server.URL+"/users/42", result.Request.URL)
	assert.Equal(t, `POST /users/42 {"id":"42"}`, result.Response.Body)
	assert.Equal(t, "Bearer abc", result.Response.Header("X-Token"))
	assert.Empty(t, result.Unresolved)
	assert.True(t, result.Passed())

	require.NotNil(t, result.History)
	assert.Equal(t, 0, result.History.Index)
	assert.Equal(t, 1, store.HistoryLen())
	entry, err := store.HistoryEntry(0)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/users/42", entry.Request.URL)
}

func TestRunner_SendNoHistory(t *testing.T) {
	var hits atomic.Int32
	server := echoServer(t, &hits)
	store := newStore(t, nil)
	r := New(http.NewClient(), store, WithLogger(quietLogger()))

	result, err := r.Send(context.Background(), http.NewRequest("GET", server.URL), &SendOptions{NoHistory: true})
	require.NoError(t, err)
	assert.Nil(t, result.History)
	assert.Zero(t, store.HistoryLen())
}

func TestRunner_DryRunNeverSends(t *testing.T) {
	var hits atomic.Int32
	server := echoServer(t, &hits)
	store := newStore(t, map[string]string{"host": server.URL})
	r := New(http.NewClient(), store, WithLogger(quietLogger()))

	result, err := r.Send(context.Background(), http.NewRequest("GET", "{{host}}/x"), &SendOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, server.URL+"/x", result.Request.URL)
	assert.Nil(t, result.Response)
	assert.Zero(t, hits.Load())
	assert.Zero(t, store.HistoryLen())
}

func TestRunner_InvalidAssertionFailsBeforeSending(t *testing.T) {
	var hits atomic.Int32
	server := echoServer(t, &hits)
	r := New(http.NewClient(), newStore(t, nil), WithLogger(quietLogger()))

	_, err := r.Send(context.Background(), http.NewRequest("GET", server.URL), &SendOptions{Assertion: "status=abc"})
	require.Error(t, err)

	var invalid *assertions.InvalidAssertionError
	assert.True(t, errors.As(err, &invalid))
	assert.Zero(t, hits.Load())
}

func TestRunner_AssertionsAndScripts(t *testing.T) {
	var hits atomic.Int32
	server := echoServer(t, &hits)

	tests := []struct {
		name       string
		path       string
		assertion  string
		wantPassed bool
		wantScript int
	}{
		{"status pass with script", "/ok", "status=200,2", true, 2},
		{"status fail skips script", "/missing", "status=200,2", false, 0},
		{"body contains pass", "/ok", "body_contains=GET /ok", true, 0},
		{"body contains fail", "/ok", "body_contains=nope,1", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dispatched []assertions.ScriptCommand
			r := New(http.NewClient(), newStore(t, nil),
				WithLogger(quietLogger()),
				WithDispatcher(assertions.DispatcherFunc(func(cmd assertions.ScriptCommand) {
					dispatched = append(dispatched, cmd)
				})),
			)

			result, err := r.Send(context.Background(), http.NewRequest("GET", server.URL+tt.path), &SendOptions{Assertion: tt.assertion})
			require.NoError(t, err)
			require.NotNil(t, result.Assertion)
			assert.Equal(t, tt.wantPassed, result.Assertion.Passed)
			assert.Equal(t, tt.wantPassed, result.Passed())

			if tt.wantScript == 0 {
				assert.Empty(t, dispatched)
				return
			}
			require.Len(t, dispatched, 1)
			assert.Equal(t, tt.wantScript, dispatched[0].ScriptID)
			assert.Equal(t, server.URL+tt.path, dispatched[0].Request.URL)
			assert.Equal(t, 200, dispatched[0].Response.StatusCode)
		})
	}
}

func TestRunner_FillVarsPrompts(t *testing.T) {
	var hits atomic.Int32
	server := echoServer(t, &hits)
	store := newStore(t, map[string]string{"host": server.URL})

	var asked []string
	r := New(http.NewClient(), store,
		WithLogger(quietLogger()),
		WithPrompter(PromptFunc(func(name string) (string, error) {
			asked = append(asked, name)
			return "v-" + name, nil
		})),
	)

	opts := &SendOptions{FillVars: true}
	result, err := r.Send(context.Background(), http.NewRequest("GET", "{{host}}/{{a}}/{{b}}/{{a}}"), opts)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, asked)
	assert.Equal(t, server.URL+"/v-a/v-b/v-a", result.Request.URL)
	assert.Equal(t, map[string]string{"a": "v-a", "b": "v-b"}, opts.Answers)

	_, stored := store.GetVariable("a")
	assert.False(t, stored)
}

func TestRunner_FillVarsWithoutPrompter(t *testing.T) {
	r := New(http.NewClient(), newStore(t, nil), WithLogger(quietLogger()))
	_, err := r.Send(context.Background(), http.NewRequest("GET", "https://x/{{a}}"), &SendOptions{FillVars: true, DryRun: true})
	assert.ErrorContains(t, err, `"a"`)
}

func TestRunner_FillVarsPromptError(t *testing.T) {
	r := New(http.NewClient(), newStore(t, nil),
		WithLogger(quietLogger()),
		WithPrompter(PromptFunc(func(string) (string, error) { return "", io.EOF })),
	)
	_, err := r.Send(context.Background(), http.NewRequest("GET", "https://x/{{a}}"), &SendOptions{FillVars: true, DryRun: true})
	assert.ErrorIs(t, err, io.EOF)
}

func TestRunner_UnresolvedPlaceholdersAreKept(t *testing.T) {
	r := New(http.NewClient(), newStore(t, nil), WithLogger(quietLogger()))
	result, err := r.Send(context.Background(), http.NewRequest("GET", "https://x/{{missing}}"), &SendOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "https://x/{{missing}}", result.Request.URL)
	assert.Equal(t, []string{"missing"}, result.Unresolved)
}

func TestRunner_TransportFailure(t *testing.T) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {}))
	addr := server.URL
	server.Close()

	store := newStore(t, nil)
	r := New(http.NewClient(), store, WithLogger(quietLogger()))

	result, err := r.Send(context.Background(), http.NewRequest("GET", addr), nil)
	require.Error(t, err)

	var terr *http.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.ConnectionError, terr.Kind)
	assert.False(t, result.Passed())
	assert.Zero(t, store.HistoryLen())
}
