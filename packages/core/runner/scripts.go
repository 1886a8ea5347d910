package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/postmaker/packages/assertions"
	"github.com/abdul-hamid-achik/postmaker/packages/http"
)

// DefaultScriptTimeout bounds a single script run.
const DefaultScriptTimeout = time.Minute

// ScriptRunner executes the numbered user scripts signalled by passing
// assertions. Each script runs out of process as "sh <dir>/<id>.sh" with the
// exchange as JSON on stdin. Its outcome is only logged.
type ScriptRunner struct {
	dir     string
	count   int
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewScriptRunner(dir string, count int, logger *slog.Logger) *ScriptRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScriptRunner{
		dir:     dir,
		count:   count,
		timeout: DefaultScriptTimeout,
		logger:  logger,
	}
}

// Path returns where script id lives.
func (s *ScriptRunner) Path(id int) string {
	return filepath.Join(s.dir, strconv.Itoa(id)+".sh")
}

// Dispatch starts the script in the background. Ids outside 1..count are
// logged and ignored.
func (s *ScriptRunner) Dispatch(cmd assertions.ScriptCommand) {
	if cmd.ScriptID < 1 || cmd.ScriptID > s.count {
		s.logger.Warn("ignoring script id outside installed range", "id", cmd.ScriptID, "installed", s.count)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.run(cmd); err != nil {
			s.logger.Warn("script failed", "id", cmd.ScriptID, "error", err)
		}
	}()
}

// Wait blocks until every dispatched script has finished.
func (s *ScriptRunner) Wait() {
	s.wg.Wait()
}

type scriptPayload struct {
	ScriptID int            `json:"script_id"`
	Request  *http.Request  `json:"request"`
	Response *http.Response `json:"response"`
}

func (s *ScriptRunner) run(cmd assertions.ScriptCommand) error {
	path := s.Path(cmd.ScriptID)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("script %d not found: %w", cmd.ScriptID, err)
	}

	payload, err := json.Marshal(scriptPayload{
		ScriptID: cmd.ScriptID,
		Request:  cmd.Request,
		Response: cmd.Response,
	})
	if err != nil {
		return fmt.Errorf("encoding script input: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	c := exec.CommandContext(ctx, "sh", path)
	c.Dir = s.dir
	c.Env = append(os.Environ(), scriptEnv(cmd)...)
	c.Stdin = bytes.NewReader(payload)

	s.logger.Debug("running script", "id", cmd.ScriptID, "path", path)
	output, err := c.CombinedOutput()
	if len(output) > 0 {
		s.logger.Info("script output", "id", cmd.ScriptID, "output", string(bytes.TrimSpace(output)))
	}
	if err != nil {
		return fmt.Errorf("command %q failed: %w", path, err)
	}
	return nil
}

func scriptEnv(cmd assertions.ScriptCommand) []string {
	vars := []string{"POSTMAKER_SCRIPT_ID=" + strconv.Itoa(cmd.ScriptID)}
	if cmd.Request != nil {
		vars = append(vars,
			"POSTMAKER_METHOD="+cmd.Request.Method,
			"POSTMAKER_URL="+cmd.Request.URL,
		)
	}
	if cmd.Response != nil {
		vars = append(vars,
			"POSTMAKER_STATUS="+strconv.Itoa(cmd.Response.StatusCode),
			"POSTMAKER_ELAPSED_MS="+strconv.FormatInt(cmd.Response.DurationMs(), 10),
		)
	}
	return vars
}

// EnsureScripts creates the scripts directory and a placeholder for every
// missing script id. Existing scripts are left alone. It returns the paths
// it created.
func (s *ScriptRunner) EnsureScripts() ([]string, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create scripts directory: %w", err)
	}

	var created []string
	for id := 1; id <= s.count; id++ {
		path := s.Path(id)
		_, err := os.Stat(path)
		if err == nil {
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return created, err
		}

		content := fmt.Sprintf(scriptStub, id)
		if err := os.WriteFile(path, []byte(content), 0o700); err != nil {
			return created, fmt.Errorf("failed to write %s: %w", path, err)
		}
		created = append(created, path)
	}
	return created, nil
}

const scriptStub = `#!/bin/sh
# %[1]d.sh - runs after a passing assertion ending in ",%[1]d".
# The request and response arrive as JSON on stdin; POSTMAKER_METHOD,
# POSTMAKER_URL and POSTMAKER_STATUS are set in the environment.
echo "Script %[1]d ran: $POSTMAKER_METHOD $POSTMAKER_URL -> $POSTMAKER_STATUS"
`
