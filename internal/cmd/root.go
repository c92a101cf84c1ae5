// Package cmd contains the CLI command definitions for release-tagger.
package cmd

import (
	"fmt"
	"strings"

	apperrors "github.com/Lostmyname/release-tagger/internal/pkg/errors"
	"github.com/Lostmyname/release-tagger/internal/pkg/version"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for the release-tagger CLI.
func NewRootCmd(buildVersion, commitHash, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "release-tagger (major|minor|patch)",
		Short: "Tag and push a new release of the current repository",
		Long: `release-tagger creates a release of the repository in the current directory.

It checks that the branch is up to date with its upstream and that no tracked
file has uncommitted changes, looks up the latest published version of the
package on packagecloud, bumps it, and then commits, tags and pushes the
release with a changelog of every commit since the previous release.

Releases from the primary branch are tagged with the production suffix;
releases from any other branch get the QA suffix.

Examples:
  release-tagger patch    # 1.2.3 -> 1.2.4
  release-tagger minor    # 1.2.3 -> 1.3.0
  release-tagger major    # 1.2.3 -> 2.0.0`,
		Version:       buildVersion,
		Args:          validateReleaseArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelease(cmd, args[0])
		},
	}

	rootCmd.SetVersionTemplate(`release-tagger {{.Version}}
Commit: ` + commitHash + `
Built:  ` + date + "\n")

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default: ~/.release_tagger/config.yaml)")

	rootCmd.AddCommand(NewConfigCmd())

	return rootCmd
}

// validateReleaseArgs accepts exactly one bump kind.
func validateReleaseArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return apperrors.NewUsageError(fmt.Sprintf("expected 1 argument, got %d", len(args)))
	}
	if _, err := version.ParseBumpKind(args[0]); err != nil {
		kinds := make([]string, len(version.BumpKinds))
		for i, k := range version.BumpKinds {
			kinds[i] = string(k)
		}
		return apperrors.NewUsageError(fmt.Sprintf("unknown bump kind %q, want one of %s", args[0], strings.Join(kinds, ", ")))
	}
	return nil
}
