package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/postmaker/packages/core/config"
	"github.com/abdul-hamid-achik/postmaker/packages/core/runner"
	"github.com/abdul-hamid-achik/postmaker/packages/http"
	"github.com/abdul-hamid-achik/postmaker/packages/mock"
	"github.com/abdul-hamid-achik/postmaker/packages/output"
	"github.com/abdul-hamid-achik/postmaker/packages/storage"
	"github.com/abdul-hamid-achik/postmaker/packages/workspace"
)

// app holds everything a command needs. The workspace is opened on first
// use so commands like version and completion never touch the data dir.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	console *output.ConsoleFormatter
	in      *bufio.Reader
	out     io.Writer

	store   *workspace.Store
	scripts *runner.ScriptRunner
	runner  *runner.Runner
}

var current *app

// loadApp reads configuration and applies global flag overrides.
func loadApp(cmd *cobra.Command) (*app, error) {
	if current != nil {
		return current, nil
	}
	if cmd.Flags().Changed("mock") && !mock.ValidStatus(mockFlag) {
		return nil, usageError(fmt.Errorf("invalid --mock status %d: must be between 100 and 599", mockFlag))
	}

	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	cfg = cfg.Merge(flagOverrides(cmd))
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}

	level := slog.LevelWarn
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)}
	}
	if cfg.GetVerbose() && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	current = &app{
		cfg:    cfg,
		logger: logger,
		console: output.NewConsoleFormatter(
			output.WithWriter(cmd.OutOrStdout()),
			output.WithVerbose(cfg.GetVerbose()),
			output.WithNoColor(cfg.GetNoColor()),
		),
		in:  bufio.NewReader(cmd.InOrStdin()),
		out: cmd.OutOrStdout(),
	}
	if cfg.File != "" {
		logger.Debug("loaded config", "file", cfg.File)
	}
	return current, nil
}

// flagOverrides turns explicitly set global flags into a config layer.
func flagOverrides(cmd *cobra.Command) *config.Config {
	flags := cmd.Flags()
	o := &config.Config{}
	if flags.Changed("no-color") {
		o.NoColor = config.BoolPtr(noColorFlag)
	}
	if flags.Changed("verbose") {
		o.Verbose = config.BoolPtr(verboseFlag)
	}
	if flags.Changed("insecure") && insecureFlag {
		o.ValidateSSL = config.BoolPtr(false)
	}
	if flags.Changed("proxy") {
		o.Proxy = proxyFlag
	}
	if flags.Changed("timeout") {
		o.Timeout = int(timeoutFlag.Milliseconds())
	}
	if flags.Changed("storage") {
		o.Storage = strings.ToLower(storageFlag)
	}
	return o
}

// Store opens the workspace with the configured backend.
func (a *app) Store() (*workspace.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	backend, err := storage.Open(storage.Kind(a.cfg.Storage), a.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	store, err := workspace.Open(backend)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	a.logger.Debug("opened workspace", "dir", a.cfg.DataDir, "storage", a.cfg.Storage)
	a.store = store
	return store, nil
}

// Runner builds the request runner over the workspace.
func (a *app) Runner() (*runner.Runner, error) {
	if a.runner != nil {
		return a.runner, nil
	}
	store, err := a.Store()
	if err != nil {
		return nil, err
	}

	clientOpts := []http.Option{
		http.WithTimeout(a.cfg.TimeoutDuration()),
		http.WithFollowRedirects(a.cfg.GetFollowRedirects()),
		http.WithMaxRedirects(a.cfg.MaxRedirects),
		http.WithValidateSSL(a.cfg.GetValidateSSL()),
		http.WithDefaultHeaders(a.cfg.Headers),
	}
	if a.cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(a.cfg.Proxy))
	}
	if mockFlag != 0 {
		a.logger.Debug("answering requests with mock responses", "status", mockFlag)
		clientOpts = append(clientOpts, http.WithTransport(mock.NewTransport(mockFlag, mock.WithDelay(mockDelayFlag))))
	}

	a.scripts = runner.NewScriptRunner(a.cfg.ScriptsDir, a.cfg.ScriptCount, a.logger)
	a.runner = runner.New(http.NewClient(clientOpts...), store,
		runner.WithDispatcher(a.scripts),
		runner.WithPrompter(runner.PromptFunc(a.promptVariable)),
		runner.WithLogger(a.logger),
	)
	return a.runner, nil
}

// close waits for running scripts and releases the workspace.
func (a *app) close() {
	if a.scripts != nil {
		a.scripts.Wait()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close workspace", "error", err)
		}
	}
}

func (a *app) readLine() (string, error) {
	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) promptVariable(name string) (string, error) {
	fmt.Fprintf(a.out, "Enter value for '%s': ", name)
	value, err := a.readLine()
	if err != nil {
		return "", fmt.Errorf("no value for %q: %w", name, err)
	}
	return value, nil
}

// confirm asks a y/N question. --yes answers it.
func (a *app) confirm(question string) bool {
	if yesFlag {
		return true
	}
	fmt.Fprintf(a.out, "%s (y/N): ", question)
	answer, err := a.readLine()
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}

// readArgFile returns s, or the contents of the file it names when it
// starts with "@".
func readArgFile(s string) (string, error) {
	if !strings.HasPrefix(s, "@") {
		return s, nil
	}
	data, err := os.ReadFile(strings.TrimPrefix(s, "@"))
	if err != nil {
		return "", usageError(fmt.Errorf("failed to read %s: %w", strings.TrimPrefix(s, "@"), err))
	}
	return string(data), nil
}
