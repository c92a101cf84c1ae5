// Package main is the entry point for the release-tagger CLI.
// release-tagger bumps the version of the current repository's package,
// then commits, tags and pushes the release.
package main

import (
	"fmt"
	"os"

	"github.com/Lostmyname/release-tagger/internal/cmd"
	apperrors "github.com/Lostmyname/release-tagger/internal/pkg/errors"
)

// Version information - set via ldflags during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := cmd.NewRootCmd(version, commit, date)
	if err := rootCmd.Execute(); err != nil {
		if !apperrors.IsReported(err) {
			fmt.Fprintln(os.Stderr, apperrors.FormatError(err))
		}
		os.Exit(apperrors.GetExitCode(err))
	}
}
