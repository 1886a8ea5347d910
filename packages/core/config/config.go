package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every config key when read from the environment,
// e.g. POSTMAKER_TIMEOUT or POSTMAKER_DATA_DIR.
const EnvPrefix = "POSTMAKER"

// ConfigName is the base name searched for in the working directory and
// then in the data directory. Any extension viper understands is accepted.
const ConfigName = ".postmaker"

// Config represents the postmaker configuration
type Config struct {
	DataDir         string            `mapstructure:"data_dir" json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	Storage         string            `mapstructure:"storage" json:"storage,omitempty" yaml:"storage,omitempty"`
	Timeout         int               `mapstructure:"timeout" json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	FollowRedirects *bool             `mapstructure:"follow_redirects" json:"follow_redirects,omitempty" yaml:"follow_redirects,omitempty"`
	MaxRedirects    int               `mapstructure:"max_redirects" json:"max_redirects,omitempty" yaml:"max_redirects,omitempty"`
	ValidateSSL     *bool             `mapstructure:"validate_ssl" json:"validate_ssl,omitempty" yaml:"validate_ssl,omitempty"`
	Proxy           string            `mapstructure:"proxy" json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Headers         map[string]string `mapstructure:"headers" json:"headers,omitempty" yaml:"headers,omitempty"` // Default headers for all requests
	ScriptsDir      string            `mapstructure:"scripts_dir" json:"scripts_dir,omitempty" yaml:"scripts_dir,omitempty"`
	ScriptCount     int               `mapstructure:"script_count" json:"script_count,omitempty" yaml:"script_count,omitempty"`
	NoColor         *bool             `mapstructure:"no_color" json:"no_color,omitempty" yaml:"no_color,omitempty"`
	Verbose         *bool             `mapstructure:"verbose" json:"verbose,omitempty" yaml:"verbose,omitempty"`
	LogLevel        string            `mapstructure:"log_level" json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" json:"-" yaml:"-"`
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// TimeoutDuration converts the millisecond timeout.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// Load builds the configuration from defaults, an optional config file and
// POSTMAKER_* environment variables, in increasing order of precedence.
// When path is empty the working directory and then the data directory are
// searched for a .postmaker.{yaml,yml,json} file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		expanded, err := expandTilde(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(expanded)
	} else {
		dataDir, err := expandTilde(v.GetString("data_dir"))
		if err != nil {
			return nil, err
		}
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")
		v.AddConfigPath(dataDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finalize expands paths, derives the scripts directory and checks ranges.
func (c *Config) finalize() error {
	var err error
	if c.DataDir, err = expandTilde(c.DataDir); err != nil {
		return err
	}
	if c.ScriptsDir == "" {
		c.ScriptsDir = filepath.Join(c.DataDir, "scripts")
	} else if c.ScriptsDir, err = expandTilde(c.ScriptsDir); err != nil {
		return err
	}

	c.Storage = strings.ToLower(c.Storage)
	c.LogLevel = strings.ToLower(c.LogLevel)
	return c.Validate()
}

// Validate reports values no command could work with.
func (c *Config) Validate() error {
	switch c.Storage {
	case "json", "sqlite":
	default:
		return fmt.Errorf("invalid storage %q: expected json or sqlite", c.Storage)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %d: must be positive milliseconds", c.Timeout)
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("invalid max_redirects %d", c.MaxRedirects)
	}
	if c.ScriptCount < 0 {
		return fmt.Errorf("invalid script_count %d", c.ScriptCount)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.DataDir != "" {
		result.DataDir = other.DataDir
	}
	if other.Storage != "" {
		result.Storage = other.Storage
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.ScriptsDir != "" {
		result.ScriptsDir = other.ScriptsDir
	}
	if other.ScriptCount > 0 {
		result.ScriptCount = other.ScriptCount
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	// Merge headers
	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	return &result
}

func expandTilde(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
