// Package git provides the Git operations used by a release.
package git

import (
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/Lostmyname/release-tagger/internal/pkg/errors"
	"github.com/Masterminds/semver/v3"
)

const (
	// GitCommandTimeout is the default timeout for local git commands.
	GitCommandTimeout = 10 * time.Second
	// GitNetworkTimeout is the timeout for commands that talk to a remote.
	GitNetworkTimeout = 60 * time.Second
)

// CommandResult captures one finished git invocation.
type CommandResult struct {
	Args     []string
	Output   string // combined stdout and stderr
	ExitCode int
	Duration time.Duration
}

// Client defines the interface for Git operations.
type Client interface {
	CurrentBranch(ctx context.Context) (string, error)
	RepositoryName(ctx context.Context) (string, error)
	Fetch(ctx context.Context, remote string) error
	DiffStatUpstream(ctx context.Context) (string, error)
	TrackedChanges(ctx context.Context) ([]string, error)
	LatestTag(ctx context.Context, pattern string) (string, error)
	CommitSummaries(ctx context.Context, from, to string) ([]string, error)
	CommitAllowEmpty(ctx context.Context, message string) (*CommandResult, error)
	CreateAnnotatedTag(ctx context.Context, name, message string) (*CommandResult, error)
	PushBranch(ctx context.Context, remote string) (*CommandResult, error)
	PushTags(ctx context.Context, remote string) (*CommandResult, error)
}

// DefaultClient implements the Client interface using exec.CommandContext.
type DefaultClient struct {
	// workDir is the working directory for git commands.
	// If empty, uses the current directory.
	workDir string
}

// NewClient creates a new DefaultClient.
func NewClient() *DefaultClient {
	return &DefaultClient{}
}

// NewClientWithWorkDir creates a new DefaultClient with a specific working directory.
func NewClientWithWorkDir(workDir string) *DefaultClient {
	return &DefaultClient{workDir: workDir}
}

// run executes git with the given timeout. A non-zero exit becomes a
// GitCommandFailed error carrying the combined output verbatim.
func (c *DefaultClient) run(ctx context.Context, timeout time.Duration, args ...string) (*CommandResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	if c.workDir != "" {
		cmd.Dir = c.workDir
	}

	start := time.Now()
	output, err := cmd.CombinedOutput()
	result := &CommandResult{
		Args:     args,
		Output:   string(output),
		Duration: time.Since(start),
	}

	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		apperrors.LogGitCommand(args, result.ExitCode, result.Duration)

		if ctx.Err() == context.DeadlineExceeded {
			return result, apperrors.NewTimeoutError(ctx.Err())
		}
		return result, apperrors.NewGitError(err, result.Output).
			WithContext("command", "git "+strings.Join(args, " "))
	}

	apperrors.LogGitCommand(args, 0, result.Duration)
	return result, nil
}

// CurrentBranch returns the name of the current branch.
func (c *DefaultClient) CurrentBranch(ctx context.Context) (string, error) {
	result, err := c.run(ctx, GitCommandTimeout, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Output), nil
}

// RepositoryName returns the base name of the repository top-level directory.
func (c *DefaultClient) RepositoryName(ctx context.Context) (string, error) {
	result, err := c.run(ctx, GitCommandTimeout, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return filepath.Base(strings.TrimSpace(result.Output)), nil
}

// Fetch updates remote-tracking refs from the given remote.
func (c *DefaultClient) Fetch(ctx context.Context, remote string) error {
	_, err := c.run(ctx, GitNetworkTimeout, "fetch", remote)
	return err
}

// DiffStatUpstream returns `git diff --stat HEAD...@{u}`, empty when HEAD
// has everything its upstream has.
func (c *DefaultClient) DiffStatUpstream(ctx context.Context) (string, error) {
	result, err := c.run(ctx, GitCommandTimeout, "diff", "--stat", "HEAD...@{u}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Output), nil
}

// TrackedChanges returns the porcelain status lines of modified tracked files.
// Untracked (??) and ignored (!!) entries are left out.
func (c *DefaultClient) TrackedChanges(ctx context.Context) ([]string, error) {
	result, err := c.run(ctx, GitCommandTimeout, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parsePorcelain(result.Output), nil
}

// parsePorcelain keeps the status entries that refer to tracked files.
func parsePorcelain(output string) []string {
	var changes []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "??") || strings.HasPrefix(line, "!!") {
			continue
		}
		changes = append(changes, line)
	}
	return changes
}

// LatestTag returns the most recently created tag reachable from HEAD that
// matches pattern and is a semantic version, or "" if there is none.
func (c *DefaultClient) LatestTag(ctx context.Context, pattern string) (string, error) {
	args := []string{"tag", "--list", "--merged", "HEAD", "--sort=-v:refname", "--sort=-creatordate"}
	if pattern != "" {
		args = append(args, pattern)
	}

	result, err := c.run(ctx, GitCommandTimeout, args...)
	if err != nil {
		return "", err
	}

	for _, tag := range strings.Split(result.Output, "\n") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if IsSemanticTag(tag) {
			return tag, nil
		}
		apperrors.Debug("Skipping tag %q: not a semantic version", tag)
	}
	return "", nil
}

// IsSemanticTag reports whether tag is a strict semantic version such as
// "1.2.0" or "1.2.0-qa".
func IsSemanticTag(tag string) bool {
	_, err := semver.StrictNewVersion(tag)
	return err == nil
}

// CommitSummaries returns the subject line of every commit in from..to,
// newest first. An empty from yields no summaries.
func (c *DefaultClient) CommitSummaries(ctx context.Context, from, to string) ([]string, error) {
	if from == "" {
		return nil, nil
	}
	if to == "" {
		to = "HEAD"
	}

	result, err := c.run(ctx, GitCommandTimeout, "log", "--pretty=format:%s", from+".."+to)
	if err != nil {
		return nil, err
	}

	var summaries []string
	for _, line := range strings.Split(result.Output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			summaries = append(summaries, line)
		}
	}
	return summaries, nil
}

// CommitAllowEmpty records a commit with the given message even if nothing is staged.
func (c *DefaultClient) CommitAllowEmpty(ctx context.Context, message string) (*CommandResult, error) {
	return c.run(ctx, GitCommandTimeout, "commit", "--allow-empty", "-m", message)
}

// CreateAnnotatedTag tags HEAD with an annotated tag.
func (c *DefaultClient) CreateAnnotatedTag(ctx context.Context, name, message string) (*CommandResult, error) {
	return c.run(ctx, GitCommandTimeout, "tag", "-a", name, "-m", message)
}

// PushBranch pushes the current branch to remote.
func (c *DefaultClient) PushBranch(ctx context.Context, remote string) (*CommandResult, error) {
	return c.run(ctx, GitNetworkTimeout, "push", remote, "HEAD")
}

// PushTags pushes all tags to remote.
func (c *DefaultClient) PushTags(ctx context.Context, remote string) (*CommandResult, error) {
	return c.run(ctx, GitNetworkTimeout, "push", remote, "--tags")
}
