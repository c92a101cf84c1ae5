package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/Lostmyname/release-tagger/internal/pkg/errors"
)

// setupTestRepo creates a temporary git repository on branch master with one commit.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	tmpDir := filepath.Join(t.TempDir(), "lmn-app")
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		t.Fatalf("failed to create repo dir: %v", err)
	}

	runGit(t, tmpDir, "init")
	runGit(t, tmpDir, "symbolic-ref", "HEAD", "refs/heads/master")
	runGit(t, tmpDir, "config", "user.email", "test@example.com")
	runGit(t, tmpDir, "config", "user.name", "Test User")
	runGit(t, tmpDir, "config", "tag.gpgSign", "false")
	runGit(t, tmpDir, "config", "commit.gpgSign", "false")

	writeFile(t, tmpDir, "README.md", "# Test")
	runGit(t, tmpDir, "add", ".")
	runGit(t, tmpDir, "commit", "-m", "initial commit")

	return tmpDir
}

// setupRepoWithRemote creates a work repo tracking a bare "origin" remote.
func setupRepoWithRemote(t *testing.T) (workDir, remoteDir string) {
	t.Helper()

	workDir = setupTestRepo(t)
	remoteDir = filepath.Join(t.TempDir(), "origin.git")
	runGit(t, filepath.Dir(remoteDir), "init", "--bare", remoteDir)
	runGit(t, remoteDir, "symbolic-ref", "HEAD", "refs/heads/master")
	runGit(t, workDir, "remote", "add", "origin", remoteDir)
	runGit(t, workDir, "push", "-u", "origin", "master")

	return workDir, remoteDir
}

// runGit runs a git command in the specified directory.
func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\nOutput: %s", args, err, output)
	}
	return string(output)
}

// writeFile creates a file with the given content.
func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directories: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

func commitFile(t *testing.T, dir, name, content, msg string) {
	t.Helper()
	writeFile(t, dir, name, content)
	runGit(t, dir, "add", name)
	runGit(t, dir, "commit", "-m", msg)
}

func TestCurrentBranch(t *testing.T) {
	tmpDir := setupTestRepo(t)
	client := NewClientWithWorkDir(tmpDir)

	branch, err := client.CurrentBranch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if branch != "master" {
		t.Errorf("expected 'master', got %q", branch)
	}

	runGit(t, tmpDir, "checkout", "-b", "feature-x")
	branch, err = client.CurrentBranch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if branch != "feature-x" {
		t.Errorf("expected 'feature-x', got %q", branch)
	}
}

func TestRepositoryName(t *testing.T) {
	tmpDir := setupTestRepo(t)
	writeFile(t, tmpDir, "sub/dir/file.txt", "x")

	client := NewClientWithWorkDir(filepath.Join(tmpDir, "sub", "dir"))
	name, err := client.RepositoryName(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "lmn-app" {
		t.Errorf("expected 'lmn-app', got %q", name)
	}
}

func TestDiffStatUpstream(t *testing.T) {
	workDir, remoteDir := setupRepoWithRemote(t)
	client := NewClientWithWorkDir(workDir)
	ctx := context.Background()

	if err := client.Fetch(ctx, "origin"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	stat, err := client.DiffStatUpstream(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stat != "" {
		t.Errorf("freshly pushed branch should have an empty diff stat, got %q", stat)
	}

	// Someone else pushes a commit
	otherDir := filepath.Join(t.TempDir(), "other")
	runGit(t, filepath.Dir(otherDir), "clone", "-b", "master", remoteDir, otherDir)
	runGit(t, otherDir, "config", "user.email", "other@example.com")
	runGit(t, otherDir, "config", "user.name", "Other User")
	commitFile(t, otherDir, "other.txt", "hello", "Other change")
	runGit(t, otherDir, "push", "origin", "HEAD:master")

	if err := client.Fetch(ctx, "origin"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	stat, err = client.DiffStatUpstream(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stat, "other.txt") {
		t.Errorf("diff stat should mention other.txt, got %q", stat)
	}
}

func TestDiffStatUpstream_NoUpstream(t *testing.T) {
	tmpDir := setupTestRepo(t)

	_, err := NewClientWithWorkDir(tmpDir).DiffStatUpstream(context.Background())
	if err == nil {
		t.Fatal("expected error without an upstream branch")
	}
	if !apperrors.HasCode(err, apperrors.ErrGitCommandFailed) {
		t.Errorf("expected GitCommandFailed, got %v", err)
	}
}

func TestTrackedChanges(t *testing.T) {
	tmpDir := setupTestRepo(t)
	client := NewClientWithWorkDir(tmpDir)
	ctx := context.Background()

	// Untracked files are tolerated
	writeFile(t, tmpDir, "scratch.txt", "notes")
	changes, err := client.TrackedChanges(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("untracked file should not make the tree dirty, got %q", changes)
	}

	// Modified tracked file
	writeFile(t, tmpDir, "README.md", "# Changed")
	changes, err = client.TrackedChanges(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changes) != 1 || changes[0] != " M README.md" {
		t.Errorf("expected [\" M README.md\"], got %q", changes)
	}

	// Staged new file
	writeFile(t, tmpDir, "new.txt", "new")
	runGit(t, tmpDir, "add", "new.txt")
	changes, err = client.TrackedChanges(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(changes) != 2 {
		t.Errorf("expected 2 tracked changes, got %q", changes)
	}
}

func TestParsePorcelain(t *testing.T) {
	output := " M README.md\nM  main.go\nA  new.go\n D gone.go\nR  a.go -> b.go\n?? scratch.txt\n!! build/\n\n"

	got := parsePorcelain(output)
	want := []string{" M README.md", "M  main.go", "A  new.go", " D gone.go", "R  a.go -> b.go"}

	if len(got) != len(want) {
		t.Fatalf("parsePorcelain() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("parsePorcelain()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLatestTag(t *testing.T) {
	tmpDir := setupTestRepo(t)
	client := NewClientWithWorkDir(tmpDir)
	ctx := context.Background()
	pattern := "[0-9]*.[0-9]*.[0-9]*"

	tag, err := client.LatestTag(ctx, pattern)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag != "" {
		t.Errorf("expected no tag, got %q", tag)
	}

	runGit(t, tmpDir, "tag", "-a", "1.0.0-production", "-m", "Release 1.0.0-production")
	commitFile(t, tmpDir, "a.txt", "a", "Add a")
	runGit(t, tmpDir, "tag", "-a", "1.1.0-qa", "-m", "Release 1.1.0-qa")
	runGit(t, tmpDir, "tag", "deploy-marker")
	runGit(t, tmpDir, "tag", "1.2.3.4")

	// A tag on an unmerged branch is not reachable from HEAD
	runGit(t, tmpDir, "checkout", "-b", "side")
	commitFile(t, tmpDir, "side.txt", "s", "Side work")
	runGit(t, tmpDir, "tag", "-a", "9.9.9-qa", "-m", "Release 9.9.9-qa")
	runGit(t, tmpDir, "checkout", "master")

	tag, err = client.LatestTag(ctx, pattern)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tag != "1.1.0-qa" {
		t.Errorf("expected '1.1.0-qa', got %q", tag)
	}
}

func TestIsSemanticTag(t *testing.T) {
	tests := []struct {
		tag  string
		want bool
	}{
		{"1.2.0", true},
		{"1.2.0-qa", true},
		{"1.2.0-production", true},
		{"v1.2.0", false},
		{"1.2", false},
		{"1.2.3.4", false},
		{"release", false},
	}

	for _, tt := range tests {
		if got := IsSemanticTag(tt.tag); got != tt.want {
			t.Errorf("IsSemanticTag(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}

func TestCommitSummaries(t *testing.T) {
	tmpDir := setupTestRepo(t)
	client := NewClientWithWorkDir(tmpDir)
	ctx := context.Background()

	runGit(t, tmpDir, "tag", "-a", "1.0.0-qa", "-m", "Release 1.0.0-qa")
	commitFile(t, tmpDir, "a.txt", "a", "Fix login")
	commitFile(t, tmpDir, "b.txt", "b", `Handle "quoted" input`)

	summaries, err := client.CommitSummaries(ctx, "1.0.0-qa", "HEAD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{`Handle "quoted" input`, "Fix login"}
	if len(summaries) != len(want) {
		t.Fatalf("CommitSummaries() = %q, want %q", summaries, want)
	}
	for i := range want {
		if summaries[i] != want[i] {
			t.Errorf("CommitSummaries()[%d] = %q, want %q", i, summaries[i], want[i])
		}
	}

	none, err := client.CommitSummaries(ctx, "", "HEAD")
	if err != nil || none != nil {
		t.Errorf("empty from should return nil, nil; got %q, %v", none, err)
	}
}

func TestCommitAllowEmptyAndAnnotatedTag(t *testing.T) {
	tmpDir := setupTestRepo(t)
	client := NewClientWithWorkDir(tmpDir)
	ctx := context.Background()

	msg := "Release 1.3.0-production\n\n* Fix \"login\"\n* Don't crash"

	result, err := client.CommitAllowEmpty(ctx, msg)
	if err != nil {
		t.Fatalf("CommitAllowEmpty() error = %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", result.ExitCode)
	}

	body := runGit(t, tmpDir, "log", "-1", "--pretty=%B")
	if strings.TrimSpace(body) != msg {
		t.Errorf("commit message = %q, want %q", strings.TrimSpace(body), msg)
	}

	if _, err := client.CreateAnnotatedTag(ctx, "1.3.0-production", msg); err != nil {
		t.Fatalf("CreateAnnotatedTag() error = %v", err)
	}
	if kind := strings.TrimSpace(runGit(t, tmpDir, "cat-file", "-t", "1.3.0-production")); kind != "tag" {
		t.Errorf("expected an annotated tag object, got %q", kind)
	}
	tagMsg := runGit(t, tmpDir, "tag", "-l", "--format=%(contents:subject)", "1.3.0-production")
	if strings.TrimSpace(tagMsg) != "Release 1.3.0-production" {
		t.Errorf("tag subject = %q", strings.TrimSpace(tagMsg))
	}

	// Creating the same tag again fails with git's output attached
	_, err = client.CreateAnnotatedTag(ctx, "1.3.0-production", msg)
	if err == nil {
		t.Fatal("expected error for duplicate tag")
	}
	appErr := apperrors.GetAppError(err)
	if appErr == nil || appErr.Code != apperrors.ErrGitCommandFailed {
		t.Fatalf("expected GitCommandFailed, got %v", err)
	}
	if !strings.Contains(appErr.Output, "already exists") {
		t.Errorf("expected git output in error, got %q", appErr.Output)
	}
}

func TestPushBranchAndTags(t *testing.T) {
	workDir, remoteDir := setupRepoWithRemote(t)
	client := NewClientWithWorkDir(workDir)
	ctx := context.Background()

	if _, err := client.CommitAllowEmpty(ctx, "Release 1.0.1-qa\n\n"); err != nil {
		t.Fatalf("CommitAllowEmpty() error = %v", err)
	}
	if _, err := client.CreateAnnotatedTag(ctx, "1.0.1-qa", "Release 1.0.1-qa\n\n"); err != nil {
		t.Fatalf("CreateAnnotatedTag() error = %v", err)
	}

	if _, err := client.PushBranch(ctx, "origin"); err != nil {
		t.Fatalf("PushBranch() error = %v", err)
	}
	if _, err := client.PushTags(ctx, "origin"); err != nil {
		t.Fatalf("PushTags() error = %v", err)
	}

	remoteHead := strings.TrimSpace(runGit(t, remoteDir, "rev-parse", "master"))
	localHead := strings.TrimSpace(runGit(t, workDir, "rev-parse", "HEAD"))
	if remoteHead != localHead {
		t.Errorf("remote master = %s, want %s", remoteHead, localHead)
	}
	if tags := runGit(t, remoteDir, "tag", "--list"); !strings.Contains(tags, "1.0.1-qa") {
		t.Errorf("remote tags = %q, want 1.0.1-qa", tags)
	}
}

func TestPushTags_UnknownRemote(t *testing.T) {
	tmpDir := setupTestRepo(t)

	result, err := NewClientWithWorkDir(tmpDir).PushTags(context.Background(), "nowhere")
	if err == nil {
		t.Fatal("expected push to an unknown remote to fail")
	}
	if result == nil || result.ExitCode == 0 {
		t.Errorf("expected a non-zero exit code, got %+v", result)
	}
	appErr := apperrors.GetAppError(err)
	if appErr == nil || !strings.Contains(appErr.Output, "nowhere") {
		t.Errorf("expected git output to mention the remote, got %v", err)
	}
}
