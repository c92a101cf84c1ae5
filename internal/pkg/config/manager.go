package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// ConfigLoadTimeout is the timeout for loading configuration.
	ConfigLoadTimeout = 100 * time.Millisecond
)

const (
	// DefaultConfigDir is the per-user directory holding the config and token files.
	DefaultConfigDir = ".release_tagger"
	// DefaultConfigFileExt is the default config file extension.
	DefaultConfigFileExt = "yaml"
	// ConfigPathEnv overrides the config file location.
	ConfigPathEnv = "RELEASE_TAGGER_CONFIG"
	// EnvPrefix prefixes every environment variable override.
	EnvPrefix = "RELEASE_TAGGER"
)

// ViperManager implements the Manager interface using Viper.
type ViperManager struct {
	v          *viper.Viper
	configPath string
}

// DefaultConfigPath returns $RELEASE_TAGGER_CONFIG or ~/.release_tagger/config.yaml.
func DefaultConfigPath() (string, error) {
	if p := os.Getenv(ConfigPathEnv); p != "" {
		return p, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DefaultConfigDir, "config."+DefaultConfigFileExt), nil
}

// NewManager creates a new configuration manager.
// If configPath is empty, DefaultConfigPath is used.
func NewManager(configPath string) (*ViperManager, error) {
	v := viper.New()

	v.SetConfigType(DefaultConfigFileExt)

	if configPath == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	v.SetConfigFile(configPath)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults first (required for env binding to work with nested keys)
	setDefaults(v)

	bindEnvVars(v)

	return &ViperManager{
		v:          v,
		configPath: configPath,
	}, nil
}

// envKeys lists every config key that can be overridden from the environment.
var envKeys = []string{
	"git.remote",
	"git.primary_branch",
	"git.tag_pattern",

	"release.production_suffix",
	"release.qa_suffix",
	"release.sentinel_version",

	"registry.base_url",
	"registry.account",
	"registry.repo",
	"registry.package_type",
	"registry.distro",
	"registry.distro_version",
	"registry.archs",
	"registry.per_page",
	"registry.package_prefix",
	"registry.timeout_seconds",

	"credentials.host_token_file",
	"credentials.user_token_file",
	"credentials.token_env",

	"ui.color_enabled",
	"ui.non_interactive",

	"log.verbose",
}

// EnvVarName returns the environment variable bound to a config key.
func EnvVarName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// bindEnvVars explicitly binds environment variables for all config keys.
// Viper's AutomaticEnv alone does not resolve nested keys during Unmarshal.
func bindEnvVars(v *viper.Viper) {
	for _, key := range envKeys {
		_ = v.BindEnv(key, EnvVarName(key))
	}
}

// setDefaults sets the default configuration values.
func setDefaults(v *viper.Viper) {
	// Git defaults
	v.SetDefault("git.remote", "origin")
	v.SetDefault("git.primary_branch", "master")
	v.SetDefault("git.tag_pattern", "[0-9]*.[0-9]*.[0-9]*")

	// Release defaults
	v.SetDefault("release.production_suffix", "-production")
	v.SetDefault("release.qa_suffix", "-qa")
	v.SetDefault("release.sentinel_version", "1.0.0")

	// Registry defaults
	v.SetDefault("registry.base_url", "https://packagecloud.io")
	v.SetDefault("registry.account", "lostmyname")
	v.SetDefault("registry.repo", "qa")
	v.SetDefault("registry.package_type", "rpm")
	v.SetDefault("registry.distro", "el")
	v.SetDefault("registry.distro_version", "7")
	v.SetDefault("registry.archs", []string{"noarch", "x86_64"})
	v.SetDefault("registry.per_page", 1000)
	v.SetDefault("registry.package_prefix", "")
	v.SetDefault("registry.timeout_seconds", 30)

	// Credentials defaults
	v.SetDefault("credentials.host_token_file", "/etc/release_tagger/packagecloud_token")
	v.SetDefault("credentials.user_token_file", "~/"+DefaultConfigDir+"/packagecloud_token")
	v.SetDefault("credentials.token_env", "PACKAGECLOUD_API_TOKEN")

	// UI defaults
	v.SetDefault("ui.color_enabled", strings.Contains(os.Getenv("TERM"), "color"))
	v.SetDefault("ui.non_interactive", false)

	// Log defaults
	v.SetDefault("log.verbose", false)
}

// GetConfigPath returns the path to the configuration file.
func (m *ViperManager) GetConfigPath() string {
	return m.configPath
}

// Load loads the configuration from file, environment, and defaults.
// Priority: env > file > defaults
func (m *ViperManager) Load() (*Config, error) {
	if err := m.readConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// readConfig reads the config file; a missing file is not an error.
func (m *ViperManager) readConfig() error {
	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}
	return nil
}

// LoadWithTimeout loads the configuration with a timeout.
// Returns an error if loading takes longer than ConfigLoadTimeout.
func (m *ViperManager) LoadWithTimeout(ctx context.Context) (*Config, error) {
	ctx, cancel := context.WithTimeout(ctx, ConfigLoadTimeout)
	defer cancel()

	type result struct {
		cfg *Config
		err error
	}
	ch := make(chan result, 1)

	go func() {
		cfg, err := m.Load()
		ch <- result{cfg, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("config loading timed out after %v", ConfigLoadTimeout)
	case r := <-ch:
		return r.cfg, r.err
	}
}

// Init creates a new configuration file with default values.
// Sets file permissions to 0600.
func (m *ViperManager) Init() error {
	if _, err := os.Stat(m.configPath); err == nil {
		return fmt.Errorf("config file already exists at %s", m.configPath)
	}

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := m.v.WriteConfigAs(m.configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if err := os.Chmod(m.configPath, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	return nil
}

// Save saves the configuration to file, creating it if needed.
func (m *ViperManager) Save(config *Config) error {
	for key, value := range settings(config) {
		m.v.Set(key, value)
	}

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := m.v.WriteConfigAs(m.configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Chmod(m.configPath, 0600)
}

// settings flattens a Config into dotted keys so the YAML file uses the
// mapstructure names.
func settings(c *Config) map[string]interface{} {
	return map[string]interface{}{
		"git.remote":         c.Git.Remote,
		"git.primary_branch": c.Git.PrimaryBranch,
		"git.tag_pattern":    c.Git.TagPattern,

		"release.production_suffix": c.Release.ProductionSuffix,
		"release.qa_suffix":         c.Release.QASuffix,
		"release.sentinel_version":  c.Release.SentinelVersion,

		"registry.base_url":        c.Registry.BaseURL,
		"registry.account":         c.Registry.Account,
		"registry.repo":            c.Registry.Repo,
		"registry.package_type":    c.Registry.PackageType,
		"registry.distro":          c.Registry.Distro,
		"registry.distro_version":  c.Registry.DistroVersion,
		"registry.archs":           c.Registry.Archs,
		"registry.per_page":        c.Registry.PerPage,
		"registry.package_prefix":  c.Registry.PackagePrefix,
		"registry.timeout_seconds": c.Registry.TimeoutSeconds,

		"credentials.host_token_file": c.Credentials.HostTokenFile,
		"credentials.user_token_file": c.Credentials.UserTokenFile,
		"credentials.token_env":       c.Credentials.TokenEnv,

		"ui.color_enabled":   c.UI.ColorEnabled,
		"ui.non_interactive": c.UI.NonInteractive,

		"log.verbose": c.Log.Verbose,
	}
}

// Set sets a configuration value by key and writes the file.
// Supports nested keys using dot notation (e.g., "git.primary_branch").
func (m *ViperManager) Set(key string, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key: %s", key)
	}

	if err := m.readConfig(); err != nil {
		return err
	}

	existingValue := m.v.Get(key)
	convertedValue, err := convertValue(value, existingValue)
	if err != nil {
		return fmt.Errorf("failed to convert value for key %s: %w", key, err)
	}

	m.v.Set(key, convertedValue)

	if err := m.v.WriteConfigAs(m.configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsKnownKey reports whether key is a recognised config key.
func IsKnownKey(key string) bool {
	for _, k := range envKeys {
		if k == key {
			return true
		}
	}
	return false
}

// convertValue converts a string value to the appropriate type based on the existing value type.
func convertValue(value string, existingValue interface{}) (interface{}, error) {
	if existingValue == nil {
		return value, nil
	}

	switch existingValue.(type) {
	case bool:
		return strconv.ParseBool(value)
	case int, int64:
		return strconv.Atoi(value)
	case float32, float64:
		return strconv.ParseFloat(value, 64)
	case []interface{}, []string:
		// For arrays, split by comma
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	default:
		return value, nil
	}
}

// Get retrieves a configuration value by key.
func (m *ViperManager) Get(key string) (string, error) {
	if err := m.readConfig(); err != nil {
		return "", err
	}

	value := m.v.Get(key)
	if value == nil {
		return "", fmt.Errorf("key not found: %s", key)
	}

	return fmt.Sprintf("%v", value), nil
}

// List returns all configuration values as a map.
func (m *ViperManager) List() map[string]interface{} {
	// Ignore errors, fall back to defaults
	_ = m.readConfig()

	return m.v.AllSettings()
}

// ConfigExists checks if the configuration file exists.
func (m *ViperManager) ConfigExists() bool {
	_, err := os.Stat(m.configPath)
	return err == nil
}
