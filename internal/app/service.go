// Package app contains the application layer with release orchestration logic.
package app

import (
	"context"
	"fmt"

	"github.com/Lostmyname/release-tagger/internal/pkg/config"
	apperrors "github.com/Lostmyname/release-tagger/internal/pkg/errors"
	"github.com/Lostmyname/release-tagger/internal/pkg/git"
	"github.com/Lostmyname/release-tagger/internal/pkg/message"
	"github.com/Lostmyname/release-tagger/internal/pkg/registry"
	"github.com/Lostmyname/release-tagger/internal/pkg/ui"
	"github.com/Lostmyname/release-tagger/internal/pkg/version"
)

// ReleaseContext describes one release as it is assembled.
type ReleaseContext struct {
	Kind         version.BumpKind
	PackageName  string
	OldVersion   version.Version
	FromRegistry bool // false when OldVersion is the sentinel
	NewVersion   version.Version
	Branch       string
	TagKind      message.TagKind
	Suffix       string
	TagName      string
	PreviousTag  string
	Changelog    string
	Message      string
}

// ReleaseService orchestrates the release workflow.
type ReleaseService struct {
	gitClient      git.Client
	registryClient registry.Client
	uiManager      ui.Manager
	config         *config.Config
}

// NewReleaseService creates a new ReleaseService with the given dependencies.
func NewReleaseService(
	gitClient git.Client,
	registryClient registry.Client,
	uiManager ui.Manager,
	cfg *config.Config,
) *ReleaseService {
	return &ReleaseService{
		gitClient:      gitClient,
		registryClient: registryClient,
		uiManager:      uiManager,
		config:         cfg,
	}
}

// ConfirmPrompt is the question asked before anything is written.
func ConfirmPrompt(tagName string) string {
	return fmt.Sprintf("This will release version %s. Are you sure? [y/N]: ", tagName)
}

// SentinelPrompt is the question asked when the registry has no versions.
func SentinelPrompt(packageName, sentinel string) string {
	return fmt.Sprintf("No published versions of %s were found. Release based on %s? [y/N]: ", packageName, sentinel)
}

// Release runs the workflow for the given bump kind:
// validate → sync check → clean check → baseline → bump → tag kind →
// changelog → confirm → commit → tag → push.
// The first failing step aborts the rest; nothing already done is undone.
func (s *ReleaseService) Release(ctx context.Context, kindArg string) (*ReleaseContext, error) {
	rc := &ReleaseContext{}

	// Step 1: Validate the bump kind
	kind, err := version.ParseBumpKind(kindArg)
	if err != nil {
		return nil, fmt.Errorf("validate arguments: %w", err)
	}
	rc.Kind = kind

	// Step 2: Make sure the branch has everything its upstream has
	if err := s.checkRemoteSync(ctx, rc); err != nil {
		return nil, fmt.Errorf("check remote sync: %w", err)
	}

	// Step 3: Refuse to release over uncommitted tracked changes
	changes, err := s.gitClient.TrackedChanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("check working tree: %w", err)
	}
	if len(changes) > 0 {
		return nil, fmt.Errorf("check working tree: %w", apperrors.NewDirtyWorkingTreeError(changes))
	}

	// Step 4: Find the version to bump from
	if err := s.resolveBaseline(ctx, rc); err != nil {
		return nil, fmt.Errorf("resolve baseline: %w", err)
	}

	// Step 5: Compute the new version
	rc.NewVersion, err = rc.OldVersion.Bump(kind)
	if err != nil {
		return nil, fmt.Errorf("compute version: %w", err)
	}

	// Step 6: Production or QA
	rc.TagKind = message.KindForBranch(rc.Branch, s.config.Git.PrimaryBranch)
	rc.Suffix = s.suffixes().For(rc.TagKind)
	rc.TagName = message.TagName(rc.NewVersion, rc.Suffix)

	// Step 7: Changelog since the previous release
	if err := s.assembleChangelog(ctx, rc); err != nil {
		return nil, fmt.Errorf("assemble changelog: %w", err)
	}

	// Step 8: Last chance to back out
	s.uiManager.DisplayRelease(rc.TagName, rc.Message)
	if err := s.confirm(ConfirmPrompt(rc.TagName), true); err != nil {
		return nil, fmt.Errorf("confirm release: %w", err)
	}

	// Step 9: Release commit
	s.uiManager.ShowStep("Creating release commit")
	if _, err := s.gitClient.CommitAllowEmpty(ctx, rc.Message); err != nil {
		return nil, fmt.Errorf("create release commit: %w", err)
	}

	// Step 10: Annotated tag
	s.uiManager.ShowStep("Adding release tag")
	if _, err := s.gitClient.CreateAnnotatedTag(ctx, rc.TagName, rc.Message); err != nil {
		return nil, fmt.Errorf("add release tag: %w", err)
	}

	// Step 11: Push branch, then tags
	remote := s.config.Git.Remote
	s.uiManager.ShowStep(fmt.Sprintf("Pushing release to %s", remote))
	err = s.withSpinner(fmt.Sprintf("Pushing to %s...", remote), func() error {
		if _, err := s.gitClient.PushBranch(ctx, remote); err != nil {
			return err
		}
		_, err := s.gitClient.PushTags(ctx, remote)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("push release: %w", err)
	}

	s.uiManager.ShowSuccess(fmt.Sprintf("Released %s", rc.TagName))
	return rc, nil
}

// checkRemoteSync fetches the remote and fails if the upstream is ahead.
func (s *ReleaseService) checkRemoteSync(ctx context.Context, rc *ReleaseContext) error {
	branch, err := s.gitClient.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	rc.Branch = branch

	remote := s.config.Git.Remote
	err = s.withSpinner(fmt.Sprintf("Fetching %s...", remote), func() error {
		return s.gitClient.Fetch(ctx, remote)
	})
	if err != nil {
		return err
	}

	stat, err := s.gitClient.DiffStatUpstream(ctx)
	if err != nil {
		return err
	}
	if stat != "" {
		return apperrors.NewBehindOriginError(fmt.Sprintf("%s/%s", remote, branch), stat)
	}
	return nil
}

// resolveBaseline asks the registry for the latest published version,
// falling back to the sentinel only if the user agrees.
func (s *ReleaseService) resolveBaseline(ctx context.Context, rc *ReleaseContext) error {
	repoName, err := s.gitClient.RepositoryName(ctx)
	if err != nil {
		return err
	}
	rc.PackageName = s.config.Registry.PackagePrefix + repoName

	var lookup *registry.Lookup
	err = s.withSpinner(fmt.Sprintf("Looking up %s on packagecloud...", rc.PackageName), func() error {
		var lookupErr error
		lookup, lookupErr = s.registryClient.LatestVersion(ctx, rc.PackageName)
		return lookupErr
	})
	if err != nil {
		return err
	}

	if !lookup.Found {
		// Unattended runs never start from the sentinel.
		if err := s.confirm(SentinelPrompt(rc.PackageName, lookup.Version), false); err != nil {
			return err
		}
	}

	old, err := version.Parse(lookup.Version)
	if err != nil {
		return err
	}
	rc.OldVersion = old
	rc.FromRegistry = lookup.Found

	s.uiManager.ShowInfo(fmt.Sprintf("Latest version of %s is %s", rc.PackageName, old))
	return nil
}

// assembleChangelog builds the changelog from commits since the previous
// semantic tag. Without a previous tag the changelog is empty.
func (s *ReleaseService) assembleChangelog(ctx context.Context, rc *ReleaseContext) error {
	prev, err := s.gitClient.LatestTag(ctx, s.config.Git.TagPattern)
	if err != nil {
		return err
	}
	rc.PreviousTag = prev

	summaries, err := s.gitClient.CommitSummaries(ctx, prev, "HEAD")
	if err != nil {
		return err
	}

	rc.Changelog = message.FormatChangelog(summaries)
	rc.Message = message.Build(rc.NewVersion, rc.Suffix, rc.Changelog)
	return nil
}

// confirm asks a yes/no question; anything but a yes is UserDeclined.
// unattended is the answer used in non-interactive mode.
func (s *ReleaseService) confirm(prompt string, unattended bool) error {
	ok, err := s.uiManager.PromptConfirm(prompt, unattended)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewUserDeclinedError(prompt)
	}
	return nil
}

func (s *ReleaseService) suffixes() message.Suffixes {
	return message.Suffixes{
		Production: s.config.Release.ProductionSuffix,
		QA:         s.config.Release.QASuffix,
	}
}

func (s *ReleaseService) withSpinner(text string, fn func() error) error {
	spinner := s.uiManager.ShowSpinner(text)
	spinner.Start()
	defer spinner.Stop()
	return fn()
}
