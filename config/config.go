// Package config loads the sqltags configuration using Viper.
//
// Configuration sources, lowest to highest precedence:
// system config, user config, project config found by walking up from the
// working directory, then SQLTAGS_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/tagworks/sqltags/errors"
)

// Config represents the sqltags configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Find     FindConfig     `mapstructure:"find"`
	Editor   string         `mapstructure:"editor"`
}

// DatabaseConfig configures the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// FindConfig configures find output.
type FindConfig struct {
	Format string `mapstructure:"format"`
}

// DefaultFindFormat is the default output format for find results,
// expanded against each entity's format namespace.
const DefaultFindFormat = "{entity.isotime} {headline} {tags}"

// DefaultDatabasePath is the default SQLite database location.
// A leading ~ is expanded against the user's home directory.
const DefaultDatabasePath = "~/var/sqltags.sqlite"

var (
	globalConfig  *Config
	viperInstance *viper.Viper
)

// Load reads the sqltags configuration.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	globalConfig = &config
	return globalConfig, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config from %s", configPath)
	}

	return &config, nil
}

// Reset clears the cached configuration (useful for testing).
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// initViper initializes Viper with configuration sources and defaults.
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	v.SetEnvPrefix("SQLTAGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("find.format", DefaultFindFormat)
	v.SetDefault("editor", "")
}

// findProjectConfig searches for sqltags.toml by walking up the directory
// tree. Returns the first config file found, or empty string if none.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(dir, "sqltags.toml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// mergeConfigFiles merges configuration files in precedence order:
// system < user < project < env vars.
func mergeConfigFiles(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()

	configPaths := []string{
		"/etc/sqltags/config.toml",
		filepath.Join(homeDir, ".sqltags", "config.toml"),
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		configPaths = append(configPaths, projectConfig)
	}

	for _, configPath := range configPaths {
		if _, err := os.Stat(configPath); err != nil {
			continue
		}
		tempViper := viper.New()
		tempViper.SetConfigFile(configPath)
		tempViper.SetConfigType("toml")

		if err := tempViper.ReadInConfig(); err == nil {
			for key, value := range tempViper.AllSettings() {
				v.Set(key, value)
			}
		}
	}
}

// GetDatabasePath returns the configured database path with a leading ~
// expanded to the user's home directory.
func GetDatabasePath() (string, error) {
	config, err := Load()
	if err != nil {
		return "", err
	}
	return ExpandPath(config.Database.Path), nil
}

// GetFindFormat returns the configured find output format.
func (c *Config) GetFindFormat() string {
	if c.Find.Format == "" {
		return DefaultFindFormat
	}
	return c.Find.Format
}

// GetEditor returns the editor command, falling back to $EDITOR then vi.
func (c *Config) GetEditor() string {
	if c.Editor != "" {
		return c.Editor
	}
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor
	}
	return "vi"
}

// ExpandPath expands a leading ~ or ~/ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
