package config

import (
	"github.com/spf13/viper"
)

const (
	DefaultDataDir      = "~/.postmaker"
	DefaultStorage      = "json"
	DefaultTimeout      = 30000 // 30 seconds
	DefaultMaxRedirects = 10
	DefaultScriptCount  = 5
	DefaultLogLevel     = "warn"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DataDir:         DefaultDataDir,
		Storage:         DefaultStorage,
		Timeout:         DefaultTimeout,
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    DefaultMaxRedirects,
		ValidateSSL:     BoolPtr(true),
		ScriptCount:     DefaultScriptCount,
		NoColor:         BoolPtr(false),
		Verbose:         BoolPtr(false),
		LogLevel:        DefaultLogLevel,
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("storage", d.Storage)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("follow_redirects", *d.FollowRedirects)
	v.SetDefault("max_redirects", d.MaxRedirects)
	v.SetDefault("validate_ssl", *d.ValidateSSL)
	v.SetDefault("proxy", "")
	v.SetDefault("headers", map[string]string{})
	v.SetDefault("scripts_dir", "")
	v.SetDefault("script_count", d.ScriptCount)
	v.SetDefault("no_color", *d.NoColor)
	v.SetDefault("verbose", *d.Verbose)
	v.SetDefault("log_level", d.LogLevel)
}
