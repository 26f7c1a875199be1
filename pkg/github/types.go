// Package github files confirmed reports as GitHub issues.
//
// APIClient implements tracker.Tracker on top of the GitHub REST API. Tokens
// come from the environment, the config file, the OS keyring, or the OAuth
// device flow, in that order.
package github

import (
	"strings"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
)

// TrackerName is the tracker name used in logs and errors.
const TrackerName = "github"

// AuthMethod represents the authentication method for GitHub.
type AuthMethod string

const (
	// AuthToken uses a personal access token from the environment or config.
	AuthToken AuthMethod = "token"
	// AuthOAuth uses a token obtained through the OAuth device flow.
	AuthOAuth AuthMethod = "oauth"
	// AuthKeyring uses a token stored with 'intake auth login'.
	AuthKeyring AuthMethod = "keyring"
)

// Repository identifies the repository issues are filed in.
type Repository struct {
	Owner string
	Name  string
}

// String returns "owner/name".
func (r Repository) String() string {
	return r.Owner + "/" + r.Name
}

// ParseRepository accepts "owner/repo" as well as HTTPS and SSH clone URLs.
func ParseRepository(s string) (Repository, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Repository{}, intakeerrors.NewConfigError("github.repository", "repository is required (owner/repo)")
	}

	// Handle SSH format: git@github.com:owner/repo.git
	if strings.HasPrefix(s, "git@") {
		parts := strings.Split(s, ":")
		if len(parts) != 2 {
			return Repository{}, intakeerrors.NewConfigError("github.repository", "invalid SSH URL format")
		}
		s = parts[1]
	}

	// Handle HTTPS format: https://github.com/owner/repo.git
	if strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://") {
		s = strings.TrimPrefix(s, "https://")
		s = strings.TrimPrefix(s, "http://")
		if idx := strings.Index(s, "/"); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = ""
		}
	}

	s = strings.TrimSuffix(strings.TrimSuffix(s, "/"), ".git")
	segments := strings.Split(s, "/")
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return Repository{}, intakeerrors.NewConfigError("github.repository", "invalid repository path, expected owner/repo")
	}

	return Repository{Owner: segments[0], Name: segments[1]}, nil
}
