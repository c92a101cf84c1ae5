// Package registry looks up published package versions on packagecloud.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/Lostmyname/release-tagger/internal/pkg/errors"
	"github.com/Lostmyname/release-tagger/internal/pkg/security"
	"github.com/Lostmyname/release-tagger/internal/pkg/version"
)

const (
	// DefaultBaseURL is the packagecloud API host.
	DefaultBaseURL = "https://packagecloud.io"

	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultSentinelVersion is the baseline used when nothing has been published.
	DefaultSentinelVersion = "1.0.0"

	// maxErrorBody bounds the response excerpt kept on a failed request.
	maxErrorBody = 512
)

// Entry is one published package record as returned by packagecloud.
type Entry struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Release  string `json:"release,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Lookup is the result of a latest-version query.
type Lookup struct {
	PackageName string
	Version     string
	// Found is false when no entry matched and Version is the sentinel.
	Found bool
}

// Client defines the interface for registry queries.
type Client interface {
	LatestVersion(ctx context.Context, packageName string) (*Lookup, error)
}

// Options configures a PackagecloudClient.
type Options struct {
	BaseURL       string
	Account       string
	Repo          string
	PackageType   string
	Distro        string
	DistroVersion string
	Archs         []string
	PerPage       int
	Timeout       time.Duration
	Sentinel      string
}

// PackagecloudClient implements Client against the packagecloud versions API.
type PackagecloudClient struct {
	httpClient *http.Client
	opts       Options
	tokens     security.TokenSource
}

// NewPackagecloudClient creates a client. The token is read from tokens on
// every lookup, not here.
func NewPackagecloudClient(opts Options, tokens security.TokenSource) (*PackagecloudClient, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(opts.BaseURL, "https://") && !strings.HasPrefix(opts.BaseURL, "http://") {
		return nil, apperrors.NewInvalidConfigError("registry.base_url must start with http:// or https://")
	}
	if len(opts.Archs) == 0 {
		return nil, apperrors.NewInvalidConfigError("registry.archs must list at least one architecture")
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 1000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Sentinel == "" {
		opts.Sentinel = DefaultSentinelVersion
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}

	return &PackagecloudClient{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:   opts,
		tokens: tokens,
	}, nil
}

// VersionsURL returns the versions endpoint for a package and architecture.
func (c *PackagecloudClient) VersionsURL(packageName, arch string) string {
	return fmt.Sprintf("%s/api/v1/repos/%s/%s/package/%s/%s/%s/%s/%s/versions.json?per_page=%d",
		c.opts.BaseURL,
		url.PathEscape(c.opts.Account),
		url.PathEscape(c.opts.Repo),
		url.PathEscape(c.opts.PackageType),
		url.PathEscape(c.opts.Distro),
		url.PathEscape(c.opts.DistroVersion),
		url.PathEscape(packageName),
		url.PathEscape(arch),
		c.opts.PerPage,
	)
}

// LatestVersion queries every configured architecture and returns the
// highest version published under exactly packageName. When nothing matches
// it returns the sentinel with Found set to false.
func (c *PackagecloudClient) LatestVersion(ctx context.Context, packageName string) (*Lookup, error) {
	if packageName == "" {
		return nil, apperrors.New(apperrors.ErrInvalidArguments, "package name must not be empty")
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, arch := range c.opts.Archs {
		archEntries, err := c.fetch(ctx, packageName, arch, token)
		if err != nil {
			return nil, err
		}
		entries = append(entries, archEntries...)
	}

	latest, ok := SelectLatest(entries, packageName)
	if !ok {
		apperrors.Debug("No published versions of %s, using sentinel %s", packageName, c.opts.Sentinel)
		return &Lookup{PackageName: packageName, Version: c.opts.Sentinel, Found: false}, nil
	}

	return &Lookup{PackageName: packageName, Version: latest, Found: true}, nil
}

// fetch performs one authenticated GET of the versions endpoint.
func (c *PackagecloudClient) fetch(ctx context.Context, packageName, arch, token string) ([]Entry, error) {
	endpoint := c.VersionsURL(packageName, arch)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(token, "")
	req.Header.Set("Accept", "application/json")

	apperrors.LogRegistryRequest(packageName, endpoint)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apperrors.LogRegistryResponse(packageName, resp.StatusCode, 0, time.Since(start))
		return nil, apperrors.NewRegistryError(packageName, resp.StatusCode, excerpt(body, token))
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, apperrors.NewRegistryDecodeError(packageName, err)
	}

	apperrors.LogRegistryResponse(packageName, resp.StatusCode, len(entries), time.Since(start))
	return entries, nil
}

// SelectLatest returns the maximum version among entries named exactly name.
// Entries whose version is not a plain major.minor.patch are skipped.
func SelectLatest(entries []Entry, name string) (string, bool) {
	var best version.Version
	found := false

	for _, e := range entries {
		if e.Name != name {
			continue
		}
		v, err := version.Parse(e.Version)
		if err != nil {
			apperrors.Debug("Skipping %s entry with version %q: %v", e.Name, e.Version, err)
			continue
		}
		if !found || v.Compare(best) > 0 {
			best = v
			found = true
		}
	}

	if !found {
		return "", false
	}
	return best.String(), true
}

// wrapTransportError classifies a failed HTTP exchange.
func wrapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewTimeoutError(err)
	}
	return apperrors.NewNetworkError(err)
}

// excerpt trims a response body for error output and masks the token.
func excerpt(body []byte, token string) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return security.SanitizeForLogging(s, token)
}
