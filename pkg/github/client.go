package github

import (
	"context"
	"io"
	"log/slog"
	"os"

	"golang.org/x/oauth2"

	"thoreinstein.com/intake/pkg/config"
	intakeerrors "thoreinstein.com/intake/pkg/errors"
)

// Token sources reported by ResolveToken.
const (
	SourceEnvGitHub = "GITHUB_TOKEN"
	SourceEnvIntake = "INTAKE_GITHUB_TOKEN"
	SourceConfig    = "config"
	SourceCache     = "token cache"
	SourceDevice    = "device flow"
)

// NewTracker creates a GitHub tracker from configuration.
// Device flow is only offered when prompt is non-nil.
func NewTracker(ctx context.Context, cfg *config.GitHubConfig, cache TokenCache, prompt io.Writer, verbose bool, opts ...APIClientOption) (*APIClient, error) {
	if cfg == nil {
		return nil, intakeerrors.NewConfigError("github", "github config is required")
	}

	repo, err := ParseRepository(cfg.Repository)
	if err != nil {
		return nil, err
	}

	token, source, err := ResolveToken(ctx, cfg, cache, prompt)
	if err != nil {
		return nil, err
	}
	if verbose {
		slog.Debug("resolved GitHub token", "source", source)
	}

	opts = append([]APIClientOption{WithBaseURL(cfg.BaseURL)}, opts...)
	return NewAPIClient(token, repo, verbose, opts...)
}

// ResolveToken finds a GitHub token.
//
// Token resolution order:
//  1. GITHUB_TOKEN environment variable
//  2. INTAKE_GITHUB_TOKEN environment variable
//  3. Token from config file (github.token), unless auth_method is keyring
//  4. Cached token (keychain or file)
//  5. OAuth device flow (auth_method oauth, client_id configured, prompt set)
func ResolveToken(ctx context.Context, cfg *config.GitHubConfig, cache TokenCache, prompt io.Writer) (token, source string, err error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token, SourceEnvGitHub, nil
	}
	if token := os.Getenv("INTAKE_GITHUB_TOKEN"); token != "" {
		return token, SourceEnvIntake, nil
	}

	method := AuthMethod(cfg.AuthMethod)
	if method != AuthKeyring && cfg.Token != "" {
		return cfg.Token, SourceConfig, nil
	}

	if cache != nil {
		cached, cacheErr := cache.Get()
		if cacheErr != nil {
			// Log but don't fail - we can try device flow
			slog.Debug("failed to read cached token", "error", cacheErr)
		}
		if cached != nil && cached.Valid() {
			return cached.AccessToken, SourceCache, nil
		}
	}

	if method != AuthOAuth {
		return "", "", intakeerrors.NewConfigError("github.token",
			"no GitHub token found; set GITHUB_TOKEN or INTAKE_GITHUB_TOKEN, or run 'intake auth login'")
	}
	if cfg.ClientID == "" {
		return "", "", intakeerrors.NewConfigError("github.client_id",
			"oauth auth requires github.client_id in config; alternatively use token auth")
	}
	if prompt == nil {
		return "", "", intakeerrors.NewConfigError("github.token",
			"no cached OAuth token; run 'intake auth login --device' first")
	}

	oauthToken, err := LoginWithDevice(ctx, cfg, cache, prompt)
	if err != nil {
		return "", "", err
	}
	return oauthToken.AccessToken, SourceDevice, nil
}

// LoginWithDevice runs the OAuth device flow and caches the token.
func LoginWithDevice(ctx context.Context, cfg *config.GitHubConfig, cache TokenCache, prompt io.Writer) (*oauth2.Token, error) {
	oauthCfg := OAuthConfig{
		ClientID:    cfg.ClientID,
		Scopes:      []string{DefaultScopes},
		HostURL:     cfg.BaseURL,
		OpenBrowser: true,
	}

	apiToken, err := DeviceAuth(ctx, oauthCfg, prompt)
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{
		AccessToken: apiToken.Token,
		TokenType:   apiToken.Type,
	}

	if cache != nil {
		if cacheErr := cache.Set(token); cacheErr != nil {
			// Log but don't fail - auth succeeded
			slog.Debug("failed to cache token", "error", cacheErr)
		}
	}

	return token, nil
}
