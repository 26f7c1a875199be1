package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Tracker.Kind != "github" {
		t.Errorf("Tracker.Kind = %q, want github", cfg.Tracker.Kind)
	}
	if cfg.GitHub.AuthMethod != "token" {
		t.Errorf("GitHub.AuthMethod = %q, want token", cfg.GitHub.AuthMethod)
	}
	if cfg.Jira.BugIssueType != "Bug" || cfg.Jira.FeatureIssueType != "Story" {
		t.Errorf("Jira issue types = %q/%q", cfg.Jira.BugIssueType, cfg.Jira.FeatureIssueType)
	}
	if cfg.Intake.TitleMaxLength != 80 {
		t.Errorf("Intake.TitleMaxLength = %d, want 80", cfg.Intake.TitleMaxLength)
	}
	if !cfg.Notify.Log {
		t.Error("Notify.Log should default to true")
	}
	if cfg.Notify.WebSocket.Path != "/display" {
		t.Errorf("Notify.WebSocket.Path = %q, want /display", cfg.Notify.WebSocket.Path)
	}
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[tracker]
kind = "jira"

[jira]
base_url = "https://example.atlassian.net"
project = "OPS"

[intake]
loom_guidance_url = "https://example.com/loom"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tracker.Kind != "jira" || cfg.Jira.Project != "OPS" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Jira.BugIssueType != "Bug" {
		t.Errorf("unset keys should keep defaults, got %q", cfg.Jira.BugIssueType)
	}
	if cfg.Intake.LoomGuidanceURL != "https://example.com/loom" {
		t.Errorf("LoomGuidanceURL = %q", cfg.Intake.LoomGuidanceURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "unknown tracker", mutate: func(c *Config) { c.Tracker.Kind = "linear" }, wantErr: true},
		{name: "memory tracker", mutate: func(c *Config) { c.Tracker.Kind = "memory" }},
		{name: "unknown auth method", mutate: func(c *Config) { c.GitHub.AuthMethod = "gh_cli" }, wantErr: true},
		{name: "keyring auth", mutate: func(c *Config) { c.GitHub.AuthMethod = "keyring" }},
		{name: "repository owner/repo", mutate: func(c *Config) { c.GitHub.Repository = "acme/web" }},
		{name: "repository missing owner", mutate: func(c *Config) { c.GitHub.Repository = "/web" }, wantErr: true},
		{name: "repository too many parts", mutate: func(c *Config) { c.GitHub.Repository = "a/b/c" }, wantErr: true},
		{name: "negative title length", mutate: func(c *Config) { c.Intake.TitleMaxLength = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckSecurityWarnings(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("INTAKE_GITHUB_TOKEN", "")
	t.Setenv("JIRA_TOKEN", "")
	t.Setenv("INTAKE_JIRA_TOKEN", "")
	t.Setenv("INTAKE_NOTIFY_SLACK_BOT_TOKEN", "")
	t.Setenv("INTAKE_NOTIFY_DISCORD_BOT_TOKEN", "")

	cfg := Default()
	if got := CheckSecurityWarnings(cfg); len(got) != 0 {
		t.Errorf("default config warnings = %v, want none", got)
	}

	cfg.GitHub.Token = "ghp_x"
	cfg.Jira.Token = "jira"
	cfg.Notify.Slack.BotToken = "xoxb"
	got := CheckSecurityWarnings(cfg)
	if len(got) != 3 {
		t.Fatalf("warnings = %v, want 3", got)
	}
	if got[0].Field != "github.token" {
		t.Errorf("first warning field = %q, want github.token", got[0].Field)
	}

	t.Setenv("INTAKE_GITHUB_TOKEN", "from-env")
	if got := CheckSecurityWarnings(cfg); len(got) != 2 {
		t.Errorf("warnings with env token = %v, want 2", got)
	}
}

func TestMarshal_MasksSecrets(t *testing.T) {
	cfg := Default()
	cfg.GitHub.Token = "ghp_secret"
	cfg.Notify.Discord.BotToken = "discord-secret"

	data, err := Marshal(cfg, false)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out := string(data)
	if strings.Contains(out, "ghp_secret") || strings.Contains(out, "discord-secret") {
		t.Errorf("secrets leaked:\n%s", out)
	}
	if !strings.Contains(out, redacted) {
		t.Errorf("masked marker missing:\n%s", out)
	}
	if cfg.GitHub.Token != "ghp_secret" {
		t.Error("Marshal() must not modify its input")
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intake", "config.toml")

	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("written file is not valid TOML: %v", err)
	}
	if decoded.Tracker.Kind != "github" || decoded.Intake.TitleMaxLength != 80 {
		t.Errorf("decoded = %+v", decoded)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("permissions = %o, want 0600", info.Mode().Perm())
	}

	if err := WriteDefault(path, false); err == nil {
		t.Error("WriteDefault() should refuse to overwrite without force")
	}
	if err := WriteDefault(path, true); err != nil {
		t.Errorf("WriteDefault(force) error = %v", err)
	}
}
