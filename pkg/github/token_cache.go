package github

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
)

const (
	// KeyringService is the keyring service intake stores GitHub tokens under.
	// Each GitHub host is a separate account.
	KeyringService = "intake-github"

	// TokenCacheDir is the directory for the token file, relative to $HOME.
	TokenCacheDir = ".config/intake" //nolint:gosec // Not a credential, just a directory name
	// TokenCacheFile holds tokens for every host when no keyring is available.
	TokenCacheFile = "github-token.json" //nolint:gosec // Not a credential, just a filename
)

// TokenCache stores the GitHub token for one host.
type TokenCache interface {
	Get() (*oauth2.Token, error)
	Set(token *oauth2.Token) error
	Clear() error
	Location() string
}

// storedToken is the persisted form of a token.
type storedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	Expiry      time.Time `json:"expiry,omitzero"`
	SavedAt     time.Time `json:"saved_at"`
}

func newStoredToken(t *oauth2.Token) storedToken {
	return storedToken{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		Expiry:      t.Expiry,
		SavedAt:     time.Now().UTC(),
	}
}

func (s storedToken) token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: s.AccessToken,
		TokenType:   s.TokenType,
		Expiry:      s.Expiry,
	}
}

// TokenHost returns the cache key for a configured API base URL, e.g.
// "github.com" or "github.example.com".
func TokenHost(baseURL string) string {
	host := webHost(baseURL)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimSuffix(host, "/")
}

// NewTokenCache returns the cache for the host behind baseURL. The OS keyring
// is used when it accepts writes; otherwise tokens go to
// ~/.config/intake/github-token.json.
func NewTokenCache(baseURL string) TokenCache {
	host := TokenHost(baseURL)

	probe := KeyringService + "-probe"
	if err := keyring.Set(probe, host, "ok"); err == nil {
		_ = keyring.Delete(probe, host)
		return &KeyringTokenCache{service: KeyringService, host: host}
	}

	return NewFileTokenCache(tokenCachePath(), host)
}

// KeyringTokenCache keeps the token in the OS keyring (macOS Keychain, Secret
// Service, Windows Credential Manager).
type KeyringTokenCache struct {
	service string
	host    string
}

// Get returns the stored token, or nil when none is stored.
func (k *KeyringTokenCache) Get() (*oauth2.Token, error) {
	data, err := keyring.Get(k.service, k.host)
	if err == keyring.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, intakeerrors.Wrapf(err, "failed to read %s token from keyring", k.host)
	}

	var stored storedToken
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, intakeerrors.Wrap(err, "keyring entry is not a stored token")
	}
	return stored.token(), nil
}

// Set replaces the stored token.
func (k *KeyringTokenCache) Set(token *oauth2.Token) error {
	data, err := json.Marshal(newStoredToken(token))
	if err != nil {
		return intakeerrors.Wrap(err, "failed to encode token")
	}
	if err := keyring.Set(k.service, k.host, string(data)); err != nil {
		return intakeerrors.Wrapf(err, "failed to store %s token in keyring", k.host)
	}
	return nil
}

// Clear removes the stored token. Clearing an empty cache is not an error.
func (k *KeyringTokenCache) Clear() error {
	if err := keyring.Delete(k.service, k.host); err != nil && err != keyring.ErrNotFound {
		return intakeerrors.Wrapf(err, "failed to remove %s token from keyring", k.host)
	}
	return nil
}

// Location describes where the token lives.
func (k *KeyringTokenCache) Location() string {
	return "system keyring (" + k.service + "/" + k.host + ")"
}

// FileTokenCache keeps tokens for all hosts in one JSON file, keyed by host.
// The file is written with owner-only permissions.
type FileTokenCache struct {
	mu   sync.Mutex
	path string
	host string
}

// NewFileTokenCache creates a cache for host backed by the file at path.
func NewFileTokenCache(path, host string) *FileTokenCache {
	return &FileTokenCache{path: path, host: host}
}

// Get returns the token stored for the cache's host, or nil.
func (f *FileTokenCache) Get() (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tokens, err := f.read()
	if err != nil {
		return nil, err
	}
	stored, ok := tokens[f.host]
	if !ok || stored.AccessToken == "" {
		return nil, nil
	}
	return stored.token(), nil
}

// Set stores token for the cache's host, keeping other hosts' tokens.
func (f *FileTokenCache) Set(token *oauth2.Token) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tokens, err := f.read()
	if err != nil {
		return err
	}
	tokens[f.host] = newStoredToken(token)
	return f.write(tokens)
}

// Clear removes the host's token. The file is deleted once it holds no
// tokens.
func (f *FileTokenCache) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tokens, err := f.read()
	if err != nil {
		return err
	}
	delete(tokens, f.host)

	if len(tokens) == 0 {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return intakeerrors.Wrap(err, "failed to remove token file")
		}
		return nil
	}
	return f.write(tokens)
}

// Location describes where the token lives.
func (f *FileTokenCache) Location() string {
	return f.path + " (" + f.host + ")"
}

// Hosts lists the hosts with a stored token.
func (f *FileTokenCache) Hosts() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tokens, err := f.read()
	if err != nil {
		return nil, err
	}
	hosts := make([]string, 0, len(tokens))
	for host := range tokens {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts, nil
}

func (f *FileTokenCache) read() (map[string]storedToken, error) {
	tokens := make(map[string]storedToken)

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return tokens, nil
	}
	if err != nil {
		return nil, intakeerrors.Wrap(err, "failed to read token file")
	}

	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, intakeerrors.Wrapf(err, "token file %s is corrupt; remove it and log in again", f.path)
	}
	return tokens, nil
}

func (f *FileTokenCache) write(tokens map[string]storedToken) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return intakeerrors.Wrap(err, "failed to create token directory")
	}

	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return intakeerrors.Wrap(err, "failed to encode tokens")
	}

	// Write then rename so a crash never leaves a truncated file.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return intakeerrors.Wrap(err, "failed to write token file")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return intakeerrors.Wrap(err, "failed to replace token file")
	}
	return nil
}

func tokenCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, TokenCacheDir, TokenCacheFile)
}
