package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the data dir at temp dirs and moves into an empty
// working directory so no real config file is picked up.
func isolate(t *testing.T) (home, dataDir, cwd string) {
	t.Helper()
	home = t.TempDir()
	dataDir = filepath.Join(home, "data")
	cwd = t.TempDir()
	require.NoError(t, os.MkdirAll(dataDir, 0o700))
	t.Setenv("HOME", home)
	t.Setenv("POSTMAKER_DATA_DIR", dataDir)
	chdir(t, cwd)
	return home, dataDir, cwd
}

func TestLoad_Defaults(t *testing.T) {
	_, dataDir, _ := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "scripts"), cfg.ScriptsDir)
	assert.Equal(t, "json", cfg.Storage)
	assert.Equal(t, 30*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, 10, cfg.MaxRedirects)
	assert.Equal(t, 5, cfg.ScriptCount)
	assert.True(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.False(t, cfg.GetNoColor())
	assert.False(t, cfg.GetVerbose())
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Empty(t, cfg.File)
}

func TestLoad_DefaultDataDirExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".postmaker"), cfg.DataDir)
}

func TestLoad_FileInWorkingDirectory(t *testing.T) {
	_, _, cwd := isolate(t)
	content := `
storage: sqlite
timeout: 1500
follow_redirects: false
headers:
  X-Api-Key: secret
`
	require.NoError(t, os.WriteFile(filepath.Join(cwd, ".postmaker.yaml"), []byte(content), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage)
	assert.Equal(t, 1500, cfg.Timeout)
	assert.False(t, cfg.GetFollowRedirects())
	assert.Equal(t, "secret", cfg.Headers["x-api-key"])
	assert.Contains(t, cfg.File, ".postmaker.yaml")
}

func TestLoad_FileInDataDir(t *testing.T) {
	_, dataDir, _ := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, ".postmaker.json"), []byte(`{"script_count": 9}`), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.ScriptCount)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	_, _, cwd := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(cwd, ".postmaker.yml"), []byte("timeout: 1500\n"), 0o600))
	t.Setenv("POSTMAKER_TIMEOUT", "2500")
	t.Setenv("POSTMAKER_NO_COLOR", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 2500, cfg.Timeout)
	assert.True(t, cfg.GetNoColor())
}

func TestLoad_ExplicitPath(t *testing.T) {
	_, _, _ = isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scripts_dir: /opt/hooks\nlog_level: DEBUG\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/hooks", cfg.ScriptsDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, _, _ = isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"storage", "storage: bolt\n", "invalid storage"},
		{"timeout", "timeout: 0\n", "invalid timeout"},
		{"log level", "log_level: loud\n", "invalid log_level"},
		{"script count", "script_count: -1\n", "invalid script_count"},
		{"malformed", "timeout: [\n", "failed to read config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, cwd := isolate(t)
			require.NoError(t, os.WriteFile(filepath.Join(cwd, ".postmaker.yaml"), []byte(tt.content), 0o600))

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"a": "1"}

	merged := base.Merge(&Config{
		Timeout:         5000,
		FollowRedirects: BoolPtr(false),
		Headers:         map[string]string{"b": "2"},
	})

	assert.Equal(t, 5000, merged.Timeout)
	assert.False(t, merged.GetFollowRedirects())
	assert.True(t, merged.GetValidateSSL())
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, merged.Headers)
	assert.Equal(t, map[string]string{"a": "1"}, base.Headers)
	assert.Same(t, base, base.Merge(nil))
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
