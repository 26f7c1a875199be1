package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

// redacted replaces secrets in rendered configuration.
const redacted = "********"

// Marshal renders cfg as TOML. Secrets are masked unless showSecrets is set.
func Marshal(cfg *Config, showSecrets bool) ([]byte, error) {
	out := *cfg
	if !showSecrets {
		out.GitHub.Token = mask(out.GitHub.Token)
		out.Jira.Token = mask(out.Jira.Token)
		out.Notify.Slack.BotToken = mask(out.Notify.Slack.BotToken)
		out.Notify.Discord.BotToken = mask(out.Notify.Discord.BotToken)
	}

	data, err := toml.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode config")
	}
	return data, nil
}

// WriteDefault writes the default configuration to path. An existing file is
// only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.Newf("config file %s already exists (use --force to overwrite)", path)
		}
	}

	data, err := Marshal(Default(), true)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return redacted
}
