package runner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abdul-hamid-achik/postmaker/packages/assertions"
	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptRunner_EnsureScripts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scripts")
	s := NewScriptRunner(dir, 3, quietLogger())

	created, err := s.EnsureScripts()
	require.NoError(t, err)
	assert.Equal(t, []string{s.Path(1), s.Path(2), s.Path(3)}, created)

	content, err := os.ReadFile(s.Path(2))
	require.NoError(t, err)
	assert.Contains(t, string(content), "# 2.sh")
	assert.Contains(t, string(content), `",2"`)

	require.NoError(t, os.WriteFile(s.Path(1), []byte("echo mine\n"), 0o700))
	created, err = s.EnsureScripts()
	require.NoError(t, err)
	assert.Empty(t, created)

	content, err = os.ReadFile(s.Path(1))
	require.NoError(t, err)
	assert.Equal(t, "echo mine\n", string(content))
}

func TestScriptRunner_DispatchRunsScript(t *testing.T) {
	dir := t.TempDir()
	s := NewScriptRunner(dir, 2, quietLogger())

	script := "cat > received.json\necho \"$POSTMAKER_SCRIPT_ID $POSTMAKER_METHOD $POSTMAKER_STATUS\" > env.txt\n"
	require.NoError(t, os.WriteFile(s.Path(2), []byte(script), 0o700))

	s.Dispatch(assertions.ScriptCommand{
		ScriptID: 2,
		Request:  http.NewRequest("POST", "https://x/items"),
		Response: &http.Response{StatusCode: 201, Body: "created"},
	})
	s.Wait()

	env, err := os.ReadFile(filepath.Join(dir, "env.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2 POST 201", strings.TrimSpace(string(env)))

	raw, err := os.ReadFile(filepath.Join(dir, "received.json"))
	require.NoError(t, err)
	var payload struct {
		ScriptID int `json:"script_id"`
		Request  struct {
			Method string `json:"method"`
			URL    string `json:"url"`
		} `json:"request"`
		Response struct {
			Status int    `json:"status"`
			Body   string `json:"body"`
		} `json:"response"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, 2, payload.ScriptID)
	assert.Equal(t, "https://x/items", payload.Request.URL)
	assert.Equal(t, 201, payload.Response.Status)
	assert.Equal(t, "created", payload.Response.Body)
}

func TestScriptRunner_IgnoresOutOfRangeAndMissing(t *testing.T) {
	dir := t.TempDir()
	s := NewScriptRunner(dir, 1, quietLogger())

	marker := "touch ran.txt\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.sh"), []byte(marker), 0o700))

	s.Dispatch(assertions.ScriptCommand{ScriptID: 0})
	s.Dispatch(assertions.ScriptCommand{ScriptID: 2})
	s.Dispatch(assertions.ScriptCommand{ScriptID: 1}) // in range but not installed
	s.Wait()

	_, err := os.Stat(filepath.Join(dir, "ran.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestScriptEnv(t *testing.T) {
	assert.Equal(t, []string{"POSTMAKER_SCRIPT_ID=3"}, scriptEnv(assertions.ScriptCommand{ScriptID: 3}))
}
