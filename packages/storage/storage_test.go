package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]func(dir string) workspace.Backend {
	t.Helper()
	return map[string]func(dir string) workspace.Backend{
		"json": func(dir string) workspace.Backend {
			b, err := Open(KindJSON, dir)
			require.NoError(t, err)
			return b
		},
		"sqlite": func(dir string) workspace.Backend {
			b, err := Open(KindSQLite, dir)
			require.NoError(t, err)
			return b
		},
	}
}

func sampleSnapshot() *workspace.Snapshot {
	s := workspace.NewSnapshot()
	req := http.NewRequest("POST", "https://x/{{id}}").
		SetHeader("Z", "1").
		SetHeader("A", "2").
		SetBody(`{"k":"<v>"}`)
	req.Auth = &http.Auth{Scheme: http.AuthBasic, Credential: "u:p"}
	s.Collections["c"] = workspace.Collection{"a": req}
	s.Collections["empty"] = workspace.Collection{}
	s.GlobalAliases["g"] = http.NewRequest("GET", "https://g")
	s.Variables["id"] = "7"
	s.Templates["t"] = workspace.NewTemplate("t", req, workspace.TemplateOptions{Output: "out.txt"})
	return s
}

func TestBackends_EmptyWorkspace(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := open(t.TempDir())
			defer b.Close()

			snap, err := b.LoadSnapshot()
			require.NoError(t, err)
			assert.Equal(t, workspace.NewSnapshot(), snap)

			history, err := b.LoadHistory()
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}
}

func TestBackends_SnapshotRoundTrip(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			b := open(dir)
			require.NoError(t, b.SaveSnapshot(sampleSnapshot()))
			require.NoError(t, b.Close())

			reopened := open(dir)
			defer reopened.Close()

			got, err := reopened.LoadSnapshot()
			require.NoError(t, err)

			want := sampleSnapshot()
			assert.Equal(t, want.Variables, got.Variables)
			assert.Equal(t, want.GlobalAliases, got.GlobalAliases)
			assert.Contains(t, got.Collections, "empty")

			a := got.Collections["c"]["a"]
			require.NotNil(t, a)
			assert.Equal(t, want.Collections["c"]["a"].Headers, a.Headers)
			assert.Equal(t, `{"k":"<v>"}`, a.Body.Raw)
			assert.Equal(t, "out.txt", got.Templates["t"].Options.Output)
		})
	}
}

func TestBackends_History(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			b := open(dir)

			ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			for i := 0; i < 3; i++ {
				require.NoError(t, b.AppendHistory(&workspace.HistoryEntry{
					Index:     i,
					ID:        "id-" + string(rune('a'+i)),
					Timestamp: ts,
					Request:   http.NewRequest("GET", "https://x").SetHeader("K", "v"),
					Response: &http.Response{
						StatusCode: 200 + i,
						Headers:    map[string]string{"Content-Type": "text/plain"},
						Body:       "body",
						Duration:   150 * time.Millisecond,
					},
				}))
			}
			require.NoError(t, b.Close())

			b = open(dir)
			defer b.Close()

			entries, err := b.LoadHistory()
			require.NoError(t, err)
			require.Len(t, entries, 3)
			assert.Equal(t, 2, entries[2].Index)
			assert.Equal(t, "id-c", entries[2].ID)
			assert.True(t, ts.Equal(entries[0].Timestamp))
			assert.Equal(t, 202, entries[2].Response.StatusCode)
			assert.Equal(t, 150*time.Millisecond, entries[0].Response.Duration)
			assert.Equal(t, http.Headers{{Key: "K", Value: "v"}}, entries[0].Request.Headers)

			require.NoError(t, b.ClearHistory())
			entries, err = b.LoadHistory()
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestBackends_WithStore(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			s, err := workspace.Open(open(dir))
			require.NoError(t, err)

			require.NoError(t, s.SaveAlias("x", http.NewRequest("GET", "https://x"), "", false))
			_, err = s.AppendHistory(http.NewRequest("GET", "https://x"), &http.Response{StatusCode: 200})
			require.NoError(t, err)
			require.NoError(t, s.Close())

			s, err = workspace.Open(open(dir))
			require.NoError(t, err)
			defer s.Close()

			_, _, err = s.FindAlias("x")
			assert.NoError(t, err)
			assert.Equal(t, 1, s.HistoryLen())
		})
	}
}

func TestJSONBackend_CorruptWorkspace(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, workspaceFile), []byte(`{"variables": [`), 0o600))

	_, err := NewJSONBackend(dir).LoadSnapshot()
	require.Error(t, err)

	var cerr *workspace.CorruptWorkspaceError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, filepath.Join(dir, workspaceFile), cerr.Path)
	assert.Contains(t, err.Error(), "postmaker import")

	_, err = workspace.Open(NewJSONBackend(dir))
	assert.True(t, errors.As(err, &cerr))
}

func TestJSONBackend_CorruptHistory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, historyFile), []byte(`not json`), 0o600))

	_, err := NewJSONBackend(dir).LoadHistory()
	var cerr *workspace.CorruptWorkspaceError
	assert.True(t, errors.As(err, &cerr))
}

func TestJSONBackend_FilePermissionsAndNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	b := NewJSONBackend(dir)
	require.NoError(t, b.SaveSnapshot(sampleSnapshot()))
	require.NoError(t, b.SaveSnapshot(workspace.NewSnapshot()))

	info, err := os.Stat(filepath.Join(dir, workspaceFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(secureFileMode), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, workspaceFile, entries[0].Name())
}

func TestSQLiteBackend_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, sqliteFile), []byte(strings.Repeat("not a database ", 300)), 0o600))

	_, err := Open(KindSQLite, dir)
	var cerr *workspace.CorruptWorkspaceError
	assert.True(t, errors.As(err, &cerr))
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open("bolt", t.TempDir())
	assert.ErrorContains(t, err, "unknown storage backend")
}
