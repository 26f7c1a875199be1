package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Tracker TrackerConfig `mapstructure:"tracker" toml:"tracker"`
	GitHub  GitHubConfig  `mapstructure:"github" toml:"github"`
	Jira    JiraConfig    `mapstructure:"jira" toml:"jira"`
	Intake  IntakeConfig  `mapstructure:"intake" toml:"intake"`
	Notify  NotifyConfig  `mapstructure:"notify" toml:"notify"`
}

// TrackerConfig selects where confirmed reports are filed
type TrackerConfig struct {
	Kind string `mapstructure:"kind" toml:"kind"` // "github", "jira" or "memory"
}

// GitHubConfig holds GitHub integration configuration
type GitHubConfig struct {
	Repository string `mapstructure:"repository" toml:"repository"`   // "owner/repo"
	AuthMethod string `mapstructure:"auth_method" toml:"auth_method"` // "token", "oauth", "keyring"
	Token      string `mapstructure:"token" toml:"token"`             // INTAKE_GITHUB_TOKEN / GITHUB_TOKEN take precedence
	ClientID   string `mapstructure:"client_id" toml:"client_id"`     // OAuth app client ID (for device flow)
	BaseURL    string `mapstructure:"base_url" toml:"base_url"`       // GitHub Enterprise API URL; empty for github.com
}

// JiraConfig holds Jira integration configuration
type JiraConfig struct {
	BaseURL          string `mapstructure:"base_url" toml:"base_url"` // e.g., "https://your-domain.atlassian.net"
	Email            string `mapstructure:"email" toml:"email"`       // User email for Basic Auth
	Token            string `mapstructure:"token" toml:"token"`       // API token (JIRA_TOKEN env var takes precedence)
	Project          string `mapstructure:"project" toml:"project"`   // Project key, e.g. "OPS"
	BugIssueType     string `mapstructure:"bug_issue_type" toml:"bug_issue_type"`
	FeatureIssueType string `mapstructure:"feature_issue_type" toml:"feature_issue_type"`
}

// IntakeConfig holds report session settings
type IntakeConfig struct {
	LoomGuidanceURL string `mapstructure:"loom_guidance_url" toml:"loom_guidance_url"`
	TitleMaxLength  int    `mapstructure:"title_max_length" toml:"title_max_length"`
}

// NotifyConfig holds display channel configuration. Every configured channel
// receives every notification.
type NotifyConfig struct {
	Log       bool            `mapstructure:"log" toml:"log"`
	Slack     SlackConfig     `mapstructure:"slack" toml:"slack"`
	Discord   DiscordConfig   `mapstructure:"discord" toml:"discord"`
	WebSocket WebSocketConfig `mapstructure:"websocket" toml:"websocket"`
}

// SlackConfig holds Slack display channel configuration
type SlackConfig struct {
	BotToken string `mapstructure:"bot_token" toml:"bot_token"` // xoxb-...
	Channel  string `mapstructure:"channel" toml:"channel"`
}

// Enabled reports whether the Slack channel is configured.
func (c SlackConfig) Enabled() bool {
	return c.BotToken != "" && c.Channel != ""
}

// DiscordConfig holds Discord display channel configuration
type DiscordConfig struct {
	BotToken string `mapstructure:"bot_token" toml:"bot_token"`
	Channel  string `mapstructure:"channel" toml:"channel"`
}

// Enabled reports whether the Discord channel is configured.
func (c DiscordConfig) Enabled() bool {
	return c.BotToken != "" && c.Channel != ""
}

// WebSocketConfig holds the display hub listener configuration
type WebSocketConfig struct {
	Addr string `mapstructure:"addr" toml:"addr"` // e.g. "127.0.0.1:8765"; empty disables the hub
	Path string `mapstructure:"path" toml:"path"`
}

// SecurityWarning represents a configuration security issue
type SecurityWarning struct {
	Field   string
	Message string
}

// Valid enum values.
var (
	ValidTrackerKinds = []string{"github", "jira", "memory"}
	ValidAuthMethods  = []string{"token", "oauth", "keyring"}
)

// Load loads the configuration from file and environment variables
func Load() (*Config, error) {
	config := &Config{}

	// Set defaults
	setDefaults()

	// Unmarshal the config
	if err := viper.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return config, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Tracker: TrackerConfig{Kind: "github"},
		GitHub:  GitHubConfig{AuthMethod: "token"},
		Jira: JiraConfig{
			BugIssueType:     "Bug",
			FeatureIssueType: "Story",
		},
		Intake: IntakeConfig{TitleMaxLength: 80},
		Notify: NotifyConfig{
			Log:       true,
			WebSocket: WebSocketConfig{Addr: "", Path: "/display"},
		},
	}
}

// CheckSecurityWarnings returns warnings for insecure configuration practices.
// Call this when loading config to warn users about tokens stored in config files.
func CheckSecurityWarnings(config *Config) []SecurityWarning {
	var warnings []SecurityWarning

	if config.GitHub.Token != "" && os.Getenv("INTAKE_GITHUB_TOKEN") == "" && os.Getenv("GITHUB_TOKEN") == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "github.token",
			Message: "GitHub token is set in config file. For security, use INTAKE_GITHUB_TOKEN environment variable or 'intake auth login' instead.",
		})
	}

	if config.Jira.Token != "" && os.Getenv("INTAKE_JIRA_TOKEN") == "" && os.Getenv("JIRA_TOKEN") == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "jira.token",
			Message: "Jira token is set in config file. For security, use INTAKE_JIRA_TOKEN or JIRA_TOKEN environment variable instead.",
		})
	}

	if config.Notify.Slack.BotToken != "" && os.Getenv("INTAKE_NOTIFY_SLACK_BOT_TOKEN") == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "notify.slack.bot_token",
			Message: "Slack bot token is set in config file. For security, use INTAKE_NOTIFY_SLACK_BOT_TOKEN environment variable instead.",
		})
	}

	if config.Notify.Discord.BotToken != "" && os.Getenv("INTAKE_NOTIFY_DISCORD_BOT_TOKEN") == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "notify.discord.bot_token",
			Message: "Discord bot token is set in config file. For security, use INTAKE_NOTIFY_DISCORD_BOT_TOKEN environment variable instead.",
		})
	}

	return warnings
}

// Validate validates the configuration and returns any validation errors.
func (c *Config) Validate() error {
	if err := validateEnum(c.Tracker.Kind, ValidTrackerKinds); err != nil {
		return errors.Wrap(err, "tracker.kind")
	}
	if err := validateEnum(c.GitHub.AuthMethod, ValidAuthMethods); err != nil {
		return errors.Wrap(err, "github.auth_method")
	}
	if c.GitHub.Repository != "" {
		if parts := strings.Split(c.GitHub.Repository, "/"); len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return errors.Newf("github.repository: %q must be in owner/repo form", c.GitHub.Repository)
		}
	}
	if c.Intake.TitleMaxLength < 0 {
		return errors.Newf("intake.title_max_length: must not be negative, got %d", c.Intake.TitleMaxLength)
	}
	return nil
}

func validateEnum(value string, valid []string) error {
	if value == "" {
		return nil // Empty is allowed, will use default
	}
	for _, v := range valid {
		if value == v {
			return nil
		}
	}
	return errors.Newf("invalid value %q: must be one of: %s", value, strings.Join(valid, ", "))
}

// setDefaults sets default configuration values
func setDefaults() {
	d := Default()

	viper.SetDefault("tracker.kind", d.Tracker.Kind)

	// GitHub defaults
	viper.SetDefault("github.repository", "")
	viper.SetDefault("github.auth_method", d.GitHub.AuthMethod)
	viper.SetDefault("github.token", "")
	viper.SetDefault("github.client_id", "") // OAuth app client ID for device flow
	viper.SetDefault("github.base_url", "")

	// Jira defaults
	viper.SetDefault("jira.base_url", "")
	viper.SetDefault("jira.email", "")
	viper.SetDefault("jira.token", "")
	viper.SetDefault("jira.project", "")
	viper.SetDefault("jira.bug_issue_type", d.Jira.BugIssueType)
	viper.SetDefault("jira.feature_issue_type", d.Jira.FeatureIssueType)

	// Session defaults
	viper.SetDefault("intake.loom_guidance_url", "")
	viper.SetDefault("intake.title_max_length", d.Intake.TitleMaxLength)

	// Display channel defaults
	viper.SetDefault("notify.log", d.Notify.Log)
	viper.SetDefault("notify.slack.bot_token", "")
	viper.SetDefault("notify.slack.channel", "")
	viper.SetDefault("notify.discord.bot_token", "")
	viper.SetDefault("notify.discord.channel", "")
	viper.SetDefault("notify.websocket.addr", d.Notify.WebSocket.Addr)
	viper.SetDefault("notify.websocket.path", d.Notify.WebSocket.Path)
}

// DefaultConfigDir returns ~/.config/intake.
func DefaultConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fall back to current directory if home dir can't be determined
		homeDir = "."
	}
	return filepath.Join(homeDir, ".config", "intake")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.toml")
}
