// Package security provides credential lookup and masking for release-tagger.
package security

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/Lostmyname/release-tagger/internal/pkg/errors"
)

// readFile and getenv are variables to allow mocking in tests.
var (
	readFile = os.ReadFile
	getenv   = os.Getenv
	homeDir  = os.UserHomeDir
)

// TokenSource supplies the registry API token on demand.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource returning a fixed value.
type StaticToken string

// Token returns the fixed token, or a MissingToken error if it is empty.
func (s StaticToken) Token() (string, error) {
	if s == "" {
		return "", apperrors.NewMissingTokenError("", "", "")
	}
	return string(s), nil
}

// TokenLocations lists where the token is looked up, in priority order.
type TokenLocations struct {
	HostFile string // per-host token file
	UserFile string // per-user token file, "~/" is expanded
	EnvVar   string // environment variable name
}

// FileTokenResolver resolves the token from the host file, then the user
// file, then the environment. File contents are whitespace trimmed and empty
// files are skipped.
type FileTokenResolver struct {
	locations TokenLocations
}

// NewFileTokenResolver creates a resolver for the given locations.
func NewFileTokenResolver(locations TokenLocations) *FileTokenResolver {
	return &FileTokenResolver{locations: locations}
}

// Token implements TokenSource.
func (r *FileTokenResolver) Token() (string, error) {
	for _, path := range []string{r.locations.HostFile, r.locations.UserFile} {
		if path == "" {
			continue
		}
		token, err := readTokenFile(ExpandHome(path))
		if err != nil {
			return "", err
		}
		if token != "" {
			apperrors.Debug("Using packagecloud token from %s", path)
			return token, nil
		}
	}

	if r.locations.EnvVar != "" {
		if token := strings.TrimSpace(getenv(r.locations.EnvVar)); token != "" {
			apperrors.Debug("Using packagecloud token from $%s", r.locations.EnvVar)
			return token, nil
		}
	}

	return "", apperrors.NewMissingTokenError(r.locations.HostFile, r.locations.UserFile, r.locations.EnvVar)
}

// readTokenFile returns the trimmed file contents, or "" if the file does not exist.
func readTokenFile(path string) (string, error) {
	data, err := readFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", apperrors.Wrap(err, apperrors.ErrInvalidConfig, "failed to read token file "+path)
	}
	return strings.TrimSpace(string(data)), nil
}

// ExpandHome replaces a leading "~/" with the current user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := homeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// MaskToken masks a token, showing only the last 4 characters.
// This should be used when logging or displaying tokens.
func MaskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}

// userinfoPattern matches credentials embedded in an URL.
var userinfoPattern = regexp.MustCompile(`(https?://)[^/@\s]+@`)

// SanitizeForLogging masks URL credentials and every given secret in s.
func SanitizeForLogging(s string, secrets ...string) string {
	result := userinfoPattern.ReplaceAllString(s, "${1}****@")
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		result = strings.ReplaceAll(result, secret, MaskToken(secret))
	}
	return result
}
