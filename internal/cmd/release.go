package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lostmyname/release-tagger/internal/app"
	"github.com/Lostmyname/release-tagger/internal/pkg/config"
	apperrors "github.com/Lostmyname/release-tagger/internal/pkg/errors"
	"github.com/Lostmyname/release-tagger/internal/pkg/git"
	"github.com/Lostmyname/release-tagger/internal/pkg/registry"
	"github.com/Lostmyname/release-tagger/internal/pkg/security"
	"github.com/Lostmyname/release-tagger/internal/pkg/ui"
	"github.com/spf13/cobra"
)

// ReleaseTimeout bounds a whole release run.
const ReleaseTimeout = 5 * time.Minute

// runRelease wires the collaborators from configuration and runs the workflow.
// Any failure is shown to the user here and returned as already reported.
func runRelease(cmd *cobra.Command, kindArg string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, ReleaseTimeout)
	defer cancel()

	verbose, _ := cmd.Flags().GetBool("verbose")
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Log.Verbose = true
	}
	apperrors.SetVerbose(cfg.Log.Verbose)

	uiMgr := newUIManager(cmd, cfg)

	service, err := newReleaseService(cfg, uiMgr)
	if err != nil {
		return err
	}

	rc, err := service.Release(ctx, kindArg)
	if err != nil {
		uiMgr.ShowError(err)
		return apperrors.Reported(err)
	}

	apperrors.Debug("Released %s of %s (previous tag %q)", rc.TagName, rc.PackageName, rc.PreviousTag)
	return nil
}

// loadConfig reads and validates the configuration.
func loadConfig(ctx context.Context, configPath string) (*config.Config, error) {
	cfgMgr, err := config.NewManager(configPath)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidConfig, "failed to create config manager")
	}
	if configPath != "" {
		apperrors.Debug("Using custom config path: %s", configPath)
	}

	cfg, err := cfgMgr.LoadWithTimeout(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidConfig, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newUIManager picks the UI for the configured interactivity.
func newUIManager(cmd *cobra.Command, cfg *config.Config) ui.Manager {
	if cfg.UI.NonInteractive {
		return ui.NewNonInteractiveManagerWithIO(cmd.OutOrStdout(), cmd.ErrOrStderr())
	}
	return ui.NewDefaultManagerWithIO(cfg.UI.ColorEnabled, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// newReleaseService builds the git, registry and credential collaborators.
func newReleaseService(cfg *config.Config, uiMgr ui.Manager) (*app.ReleaseService, error) {
	tokens := security.NewFileTokenResolver(security.TokenLocations{
		HostFile: cfg.Credentials.HostTokenFile,
		UserFile: cfg.Credentials.UserTokenFile,
		EnvVar:   cfg.Credentials.TokenEnv,
	})

	registryClient, err := registry.NewPackagecloudClient(registryOptions(cfg), tokens)
	if err != nil {
		return nil, err
	}

	return app.NewReleaseService(git.NewClient(), registryClient, uiMgr, cfg), nil
}

func registryOptions(cfg *config.Config) registry.Options {
	return registry.Options{
		BaseURL:       cfg.Registry.BaseURL,
		Account:       cfg.Registry.Account,
		Repo:          cfg.Registry.Repo,
		PackageType:   cfg.Registry.PackageType,
		Distro:        cfg.Registry.Distro,
		DistroVersion: cfg.Registry.DistroVersion,
		Archs:         cfg.Registry.Archs,
		PerPage:       cfg.Registry.PerPage,
		Timeout:       cfg.Registry.Timeout(),
		Sentinel:      cfg.Release.SentinelVersion,
	}
}
