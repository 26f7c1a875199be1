package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cli/oauth"
	"github.com/cli/oauth/api"
	"github.com/cli/oauth/device"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
)

const (
	// DefaultGitHubHost is the web host that serves the device flow.
	DefaultGitHubHost = "https://github.com"

	// DefaultScopes is the scope needed to open issues in private repositories.
	DefaultScopes = "repo"
)

// OAuthConfig holds the device flow settings.
type OAuthConfig struct {
	ClientID    string
	Scopes      []string
	HostURL     string       // Web host, e.g. https://github.example.com; API URLs are accepted
	HTTPClient  *http.Client // Defaults to http.DefaultClient
	OpenBrowser bool         // Open the verification page instead of only printing it
}

// DeviceAuth runs the OAuth device flow. The one-time code and verification
// page are written to out; the call blocks until the user approves the
// request in the browser or the code expires.
func DeviceAuth(ctx context.Context, cfg OAuthConfig, out io.Writer) (*api.AccessToken, error) {
	if cfg.ClientID == "" {
		return nil, intakeerrors.NewConfigError("github.client_id", "client_id is required for OAuth device flow")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	host, err := oauth.NewGitHubHost(webHost(cfg.HostURL))
	if err != nil {
		return nil, intakeerrors.NewConfigErrorWithCause("github.base_url", "invalid GitHub host URL", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScopes}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	flow := &oauth.Flow{
		Host:       host,
		ClientID:   cfg.ClientID,
		Scopes:     scopes,
		HTTPClient: httpClient,
		Stdout:     out,
		DisplayCode: func(code, verificationURL string) error {
			fmt.Fprintf(out, "To let intake file issues, open %s\nand enter the code %s\n", verificationURL, code)
			return nil
		},
	}
	if !cfg.OpenBrowser {
		flow.BrowseURL = func(string) error { return nil }
	}

	token, err := flow.DeviceFlow()
	if err != nil {
		if intakeerrors.Is(err, device.ErrUnsupported) {
			return nil, intakeerrors.NewConfigErrorWithCause("github.client_id",
				"the OAuth app does not allow the device flow; enable it in the app settings", err)
		}
		return nil, intakeerrors.NewTrackerErrorWithCause(TrackerName, "DeviceAuth", "device flow failed", err)
	}

	return token, nil
}

// webHost turns a configured base URL into the web host the device flow
// runs on. Enterprise API URLs (https://host/api/v3) and api.github.com map
// back to their web host.
func webHost(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return DefaultGitHubHost
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return baseURL
	}
	if u.Host == "api.github.com" {
		return DefaultGitHubHost
	}
	return u.Scheme + "://" + u.Host
}
