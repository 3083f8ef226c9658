// File: internal/config/config.go
// Brief: Optional user configuration (.jake.yaml) loaded through viper.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config carries user-level defaults for the CLI. Flags always win over
// config values; config values win over built-in defaults.
type Config struct {
	// Jobs is the default worker count. 0 means one worker per CPU.
	Jobs int `mapstructure:"jobs"`
	// Color is "auto", "always", or "never".
	Color string `mapstructure:"color"`
	// Shell overrides the platform shell, e.g. "bash -eu -o pipefail -c".
	Shell string `mapstructure:"shell"`
	// LogLevel is debug, info, warn, or error.
	LogLevel string `mapstructure:"log_level"`
}

func Default() *Config {
	return &Config{
		Jobs:     0,
		Color:    "auto",
		Shell:    "",
		LogLevel: "info",
	}
}

// Load reads .jake.yaml from the working directory, then the user config
// directory, with JAKE_* environment overrides. A missing file is not an
// error.
func Load(workDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".jake")
	v.SetConfigType("yaml")
	if strings.TrimSpace(workDir) != "" {
		v.AddConfigPath(workDir)
	}
	v.AddConfigPath(".")
	v.AddConfigPath(ConfigDir())
	v.SetEnvPrefix("JAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := Default()
	v.SetDefault("jobs", defaults.Jobs)
	v.SetDefault("color", defaults.Color)
	v.SetDefault("shell", defaults.Shell)
	v.SetDefault("log_level", defaults.LogLevel)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigDir returns the user config directory for jake, honoring
// XDG_CONFIG_HOME.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "jake")
	}
	home, err := homedir.Dir()
	if err != nil {
		return ".jake"
	}
	return filepath.Join(home, ".config", "jake")
}
