package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"thoreinstein.com/intake/pkg/config"
	intakeerrors "thoreinstein.com/intake/pkg/errors"
	"thoreinstein.com/intake/pkg/github"
	"thoreinstein.com/intake/pkg/ui"
)

// AuthLoginOptions holds flags for auth login.
type AuthLoginOptions struct {
	Device   bool
	NoVerify bool
}

var authLoginOptions AuthLoginOptions

// authCmd groups GitHub credential management.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage GitHub credentials",
	Long: `Manage the GitHub token used to file issues.

Tokens are stored in the OS keyring when one is available, otherwise in
~/.config/intake/github-token.json. GITHUB_TOKEN and INTAKE_GITHUB_TOKEN
always take precedence over a stored token.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a GitHub token",
	Long: `Store a GitHub token for filing issues.

By default you are asked to paste a personal access token with the repo
scope. With --device the OAuth device flow is used instead; it requires
github.client_id in the configuration.

Examples:
  intake auth login            # Paste a personal access token
  intake auth login --device   # Authorize in the browser`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runAuthLogin(cmd.Context(), authLoginOptions, &cfg.GitHub, github.NewTokenCache(cfg.GitHub.BaseURL), os.Stdin, os.Stderr)
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored GitHub token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runAuthLogout(github.NewTokenCache(cfg.GitHub.BaseURL), os.Stdout)
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the GitHub token comes from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runAuthStatus(cmd.Context(), &cfg.GitHub, github.NewTokenCache(cfg.GitHub.BaseURL), os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)

	authLoginCmd.Flags().BoolVar(&authLoginOptions.Device, "device", false, "Use the OAuth device flow")
	authLoginCmd.Flags().BoolVar(&authLoginOptions.NoVerify, "no-verify", false, "Store the token without checking it against GitHub")
}

func runAuthLogin(ctx context.Context, opts AuthLoginOptions, cfg *config.GitHubConfig, cache github.TokenCache, in io.Reader, out io.Writer) error {
	if opts.Device {
		if _, err := github.LoginWithDevice(ctx, cfg, cache, out); err != nil {
			fmt.Fprintln(out, intakeerrors.FormatUserError(err))
			return err
		}
		fmt.Fprintf(out, "Logged in. Token stored in %s\n", cache.Location())
		return nil
	}

	token, err := ui.NewTerminal(in, out).Prompt("GitHub token:", "", true)
	if err != nil {
		return intakeerrors.NewConfigErrorWithCause("github.token", "failed to read token", err)
	}
	if token == "" {
		return intakeerrors.NewConfigError("github.token", "no token entered")
	}

	if !opts.NoVerify && cfg.Repository != "" {
		login, err := verifyToken(ctx, cfg, token)
		if err != nil {
			fmt.Fprintln(out, intakeerrors.FormatUserError(err))
			return err
		}
		fmt.Fprintf(out, "Authenticated as %s\n", login)
	}

	if err := cache.Set(&oauth2.Token{AccessToken: token, TokenType: "bearer"}); err != nil {
		return intakeerrors.NewConfigErrorWithCause("github.token", "failed to store token", err)
	}

	fmt.Fprintf(out, "Token stored in %s\n", cache.Location())
	return nil
}

func verifyToken(ctx context.Context, cfg *config.GitHubConfig, token string) (string, error) {
	repo, err := github.ParseRepository(cfg.Repository)
	if err != nil {
		return "", err
	}
	client, err := github.NewAPIClient(token, repo, verbose, github.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return "", err
	}
	return client.CurrentUser(ctx)
}

func runAuthLogout(cache github.TokenCache, out io.Writer) error {
	if err := cache.Clear(); err != nil {
		return intakeerrors.NewConfigErrorWithCause("github.token", "failed to remove stored token", err)
	}
	fmt.Fprintf(out, "Removed stored token from %s\n", cache.Location())
	return nil
}

func runAuthStatus(ctx context.Context, cfg *config.GitHubConfig, cache github.TokenCache, out io.Writer) error {
	_, source, err := github.ResolveToken(ctx, cfg, cache, nil)
	if err != nil {
		fmt.Fprintln(out, "Not authenticated")
		fmt.Fprintln(out, intakeerrors.FormatUserError(err))
		return err
	}

	fmt.Fprintf(out, "Authenticated via %s\n", source)
	if source == github.SourceCache {
		fmt.Fprintf(out, "Token stored in %s\n", cache.Location())
	}
	return nil
}
