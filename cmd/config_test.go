package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thoreinstein.com/intake/pkg/config"
)

func TestRunConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	var out bytes.Buffer

	require.NoError(t, runConfigInit(ConfigInitOptions{Path: path}, &out))
	assert.Contains(t, out.String(), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var written config.Config
	require.NoError(t, toml.Unmarshal(data, &written))
	assert.Equal(t, "github", written.Tracker.Kind)
	assert.Equal(t, "Story", written.Jira.FeatureIssueType)

	t.Run("refuses to overwrite", func(t *testing.T) {
		err := runConfigInit(ConfigInitOptions{Path: path}, &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("force overwrites", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("junk"), 0o600))
		require.NoError(t, runConfigInit(ConfigInitOptions{Path: path, Force: true}, &out))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotEqual(t, "junk", string(data))
	})
}

func TestRunConfigInit_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	var out bytes.Buffer

	require.NoError(t, runConfigInit(ConfigInitOptions{}, &out))
	assert.FileExists(t, filepath.Join(home, ".config", "intake", "config.toml"))
}

func TestRunConfigShow(t *testing.T) {
	cfg := config.Default()
	cfg.GitHub.Repository = "acme/web"
	cfg.GitHub.Token = "ghp_secret"
	cfg.Notify.Slack.BotToken = "xoxb-secret"

	t.Run("masks secrets", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runConfigShow(cfg, false, &out))

		assert.Contains(t, out.String(), "acme/web")
		assert.NotContains(t, out.String(), "ghp_secret")
		assert.NotContains(t, out.String(), "xoxb-secret")
	})

	t.Run("shows secrets on request", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runConfigShow(cfg, true, &out))

		assert.Contains(t, out.String(), "ghp_secret")
		assert.Contains(t, out.String(), "xoxb-secret")
	})

	assert.Equal(t, "ghp_secret", cfg.GitHub.Token, "masking must not modify the config")
}
