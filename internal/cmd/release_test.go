package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	apperrors "github.com/Lostmyname/release-tagger/internal/pkg/errors"
	"github.com/Lostmyname/release-tagger/internal/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTokenEnv = "RELEASE_TAGGER_TEST_PACKAGECLOUD_TOKEN"

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

func commitFile(t *testing.T, dir, name, content, msg string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	runGit(t, dir, "add", name)
	runGit(t, dir, "commit", "-m", msg)
}

// setupReleaseRepo creates lmn-app with a previous release tag, one commit
// after it, and a bare origin it is in sync with.
func setupReleaseRepo(t *testing.T) (workDir, remoteDir string) {
	t.Helper()

	workDir = filepath.Join(t.TempDir(), "lmn-app")
	require.NoError(t, os.MkdirAll(workDir, 0755))

	runGit(t, workDir, "init")
	runGit(t, workDir, "symbolic-ref", "HEAD", "refs/heads/master")
	runGit(t, workDir, "config", "user.email", "test@example.com")
	runGit(t, workDir, "config", "user.name", "Test User")
	runGit(t, workDir, "config", "tag.gpgSign", "false")
	runGit(t, workDir, "config", "commit.gpgSign", "false")

	commitFile(t, workDir, "README.md", "# lmn-app\n", "Initial commit")
	runGit(t, workDir, "tag", "-a", "1.2.3-production", "-m", "Release 1.2.3-production")
	commitFile(t, workDir, "login.rb", "puts 'hi'\n", `Fix "remember me" on login`)

	remoteDir = filepath.Join(t.TempDir(), "origin.git")
	runGit(t, filepath.Dir(remoteDir), "init", "--bare", remoteDir)
	runGit(t, remoteDir, "symbolic-ref", "HEAD", "refs/heads/master")
	runGit(t, workDir, "remote", "add", "origin", remoteDir)
	runGit(t, workDir, "push", "-u", "origin", "master")

	return workDir, remoteDir
}

// packagecloudStub serves the same entries for every architecture.
func packagecloudStub(t *testing.T, entries []registry.Entry, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if user, _, ok := r.BasicAuth(); !ok || user != "s3cr3t" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(entries)
	}))
	t.Cleanup(server.Close)
	return server
}

// writeReleaseConfig points the registry at baseURL and reads the token
// only from testTokenEnv.
func writeReleaseConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`registry:
  base_url: %s
credentials:
  host_token_file: %s
  user_token_file: %s
  token_env: %s
ui:
  non_interactive: true
  color_enabled: false
`, baseURL, filepath.Join(dir, "host_token"), filepath.Join(dir, "user_token"), testTokenEnv)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRelease_EndToEnd(t *testing.T) {
	workDir, remoteDir := setupReleaseRepo(t)

	var hits int32
	server := packagecloudStub(t, []registry.Entry{
		{Name: "lmn-app", Version: "1.2.3"},
		{Name: "lmn-app", Version: "1.1.0"},
	}, &hits)
	cfgPath := writeReleaseConfig(t, server.URL)

	t.Setenv(testTokenEnv, "s3cr3t")
	t.Chdir(workDir)

	stdout, stderr, err := execute(t, "--config", cfgPath, "patch")
	require.NoError(t, err, "stderr: %s", stderr)

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "one request per architecture")
	assert.Contains(t, stdout, "Creating release commit")
	assert.Contains(t, stdout, "Adding release tag")
	assert.Contains(t, stdout, "Pushing release to origin")
	assert.Contains(t, stderr, "This will release version 1.2.4-production. Are you sure? [y/N]: y")

	tagMessage := runGit(t, workDir, "tag", "-l", "--format=%(contents)", "1.2.4-production")
	assert.Equal(t, "Release 1.2.4-production\n\n* Fix \"remember me\" on login", strings.TrimSpace(tagMessage))

	subject := runGit(t, workDir, "log", "-1", "--pretty=format:%s")
	assert.Equal(t, "Release 1.2.4-production", subject)

	assert.Contains(t, runGit(t, remoteDir, "tag", "--list"), "1.2.4-production")
	local := strings.TrimSpace(runGit(t, workDir, "rev-parse", "HEAD"))
	remote := strings.TrimSpace(runGit(t, remoteDir, "rev-parse", "master"))
	assert.Equal(t, local, remote, "release commit pushed")
}

func TestRelease_DirtyTreeStopsBeforeRegistry(t *testing.T) {
	workDir, _ := setupReleaseRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "README.md"), []byte("changed\n"), 0644))

	var hits int32
	server := packagecloudStub(t, nil, &hits)
	cfgPath := writeReleaseConfig(t, server.URL)

	t.Setenv(testTokenEnv, "s3cr3t")
	t.Chdir(workDir)

	_, stderr, err := execute(t, "--config", cfgPath, "minor")
	require.Error(t, err)

	assert.True(t, apperrors.IsReported(err))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDirtyWorkingTree))
	assert.Contains(t, stderr, "uncommitted changes")
	assert.Contains(t, stderr, "README.md")
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
	assert.NotContains(t, runGit(t, workDir, "tag", "--list"), "1.3.0")
}

func TestRelease_NonInteractiveDeclinesSentinel(t *testing.T) {
	workDir, remoteDir := setupReleaseRepo(t)

	var hits int32
	server := packagecloudStub(t, nil, &hits)
	cfgPath := writeReleaseConfig(t, server.URL)

	t.Setenv(testTokenEnv, "s3cr3t")
	t.Chdir(workDir)

	_, stderr, err := execute(t, "--config", cfgPath, "patch")
	require.Error(t, err)

	assert.True(t, apperrors.IsDeclined(err))
	assert.True(t, apperrors.IsReported(err))
	assert.Contains(t, stderr, "No published versions of lmn-app were found. Release based on 1.0.0? [y/N]: N")
	assert.Contains(t, stderr, "Exiting.")
	assert.NotContains(t, stderr, "Are you sure?")
	assert.NotContains(t, runGit(t, workDir, "tag", "--list"), "1.0.1")
	assert.NotContains(t, runGit(t, remoteDir, "tag", "--list"), "1.0.1")
}

func TestRelease_MissingToken(t *testing.T) {
	workDir, _ := setupReleaseRepo(t)

	var hits int32
	server := packagecloudStub(t, nil, &hits)
	cfgPath := writeReleaseConfig(t, server.URL)

	t.Setenv(testTokenEnv, "")
	t.Chdir(workDir)

	_, stderr, err := execute(t, "--config", cfgPath, "patch")
	require.Error(t, err)

	assert.True(t, apperrors.HasCode(err, apperrors.ErrMissingToken))
	assert.Contains(t, stderr, testTokenEnv)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestRelease_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("release:\n  qa_suffix: -production\n"), 0600))

	_, _, err := execute(t, "--config", path, "patch")
	require.Error(t, err)

	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidConfig))
	assert.False(t, apperrors.IsReported(err))
}
