// Package config provides configuration management for release-tagger.
package config

import (
	"fmt"
	"time"

	apperrors "github.com/Lostmyname/release-tagger/internal/pkg/errors"
	"github.com/Lostmyname/release-tagger/internal/pkg/version"
)

// Config represents the complete release-tagger configuration.
type Config struct {
	Git         GitConfig         `mapstructure:"git"`
	Release     ReleaseConfig     `mapstructure:"release"`
	Registry    RegistryConfig    `mapstructure:"registry"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	UI          UIConfig          `mapstructure:"ui"`
	Log         LogConfig         `mapstructure:"log"`
}

// GitConfig contains Git-related settings.
type GitConfig struct {
	Remote        string `mapstructure:"remote"`
	PrimaryBranch string `mapstructure:"primary_branch"`
	TagPattern    string `mapstructure:"tag_pattern"`
}

// ReleaseConfig contains tag naming settings.
type ReleaseConfig struct {
	ProductionSuffix string `mapstructure:"production_suffix"`
	QASuffix         string `mapstructure:"qa_suffix"`
	SentinelVersion  string `mapstructure:"sentinel_version"`
}

// RegistryConfig contains packagecloud settings.
type RegistryConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	Account        string   `mapstructure:"account"`
	Repo           string   `mapstructure:"repo"`
	PackageType    string   `mapstructure:"package_type"`
	Distro         string   `mapstructure:"distro"`
	DistroVersion  string   `mapstructure:"distro_version"`
	Archs          []string `mapstructure:"archs"`
	PerPage        int      `mapstructure:"per_page"`
	PackagePrefix  string   `mapstructure:"package_prefix"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// Timeout returns the per-request registry timeout.
func (r RegistryConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// CredentialsConfig lists where the registry token is looked up.
type CredentialsConfig struct {
	HostTokenFile string `mapstructure:"host_token_file"`
	UserTokenFile string `mapstructure:"user_token_file"`
	TokenEnv      string `mapstructure:"token_env"`
}

// UIConfig contains UI-related settings.
type UIConfig struct {
	ColorEnabled   bool `mapstructure:"color_enabled"`
	NonInteractive bool `mapstructure:"non_interactive"`
}

// LogConfig contains diagnostic logging settings.
type LogConfig struct {
	Verbose bool `mapstructure:"verbose"`
}

// Validate checks the values the release workflow depends on.
func (c *Config) Validate() error {
	switch {
	case c.Git.Remote == "":
		return apperrors.NewInvalidConfigError("git.remote must not be empty")
	case c.Git.PrimaryBranch == "":
		return apperrors.NewInvalidConfigError("git.primary_branch must not be empty")
	case c.Git.TagPattern == "":
		return apperrors.NewInvalidConfigError("git.tag_pattern must not be empty")
	case c.Release.ProductionSuffix == c.Release.QASuffix:
		return apperrors.NewInvalidConfigError("release.production_suffix and release.qa_suffix must differ")
	case c.Registry.BaseURL == "":
		return apperrors.NewInvalidConfigError("registry.base_url must not be empty")
	case len(c.Registry.Archs) == 0:
		return apperrors.NewInvalidConfigError("registry.archs must list at least one architecture")
	case c.Registry.PerPage <= 0:
		return apperrors.NewInvalidConfigError("registry.per_page must be positive")
	case c.Registry.TimeoutSeconds <= 0:
		return apperrors.NewInvalidConfigError("registry.timeout_seconds must be positive")
	}

	if _, err := version.Parse(c.Release.SentinelVersion); err != nil {
		return apperrors.NewInvalidConfigError(fmt.Sprintf("release.sentinel_version: %v", err))
	}

	return nil
}

// Manager defines the interface for configuration management.
type Manager interface {
	Load() (*Config, error)
	Save(config *Config) error
	Set(key string, value string) error
	Get(key string) (string, error)
	Init() error
	List() map[string]interface{}
	GetConfigPath() string
}
