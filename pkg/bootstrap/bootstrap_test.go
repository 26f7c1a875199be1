package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	intakeerrors "thoreinstein.com/intake/pkg/errors"
)

func TestPreParseGlobalFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantConfig  string
		wantVerbose bool
	}{
		{name: "none", args: []string{"intake", "serve"}},
		{name: "long config", args: []string{"intake", "--config", "/tmp/c.toml", "serve"}, wantConfig: "/tmp/c.toml"},
		{name: "equals config", args: []string{"intake", "--config=/tmp/c.toml"}, wantConfig: "/tmp/c.toml"},
		{name: "short attached", args: []string{"intake", "-C/tmp/c.toml"}, wantConfig: "/tmp/c.toml"},
		{name: "verbose", args: []string{"intake", "-v", "serve"}, wantVerbose: true},
		{name: "stops at subcommand", args: []string{"intake", "file", "--config", "x.toml"}},
		{name: "stops at marker", args: []string{"intake", "--", "-v"}},
		{name: "short equals", args: []string{"intake", "-C=/tmp/c.toml", "-v"}, wantConfig: "/tmp/c.toml", wantVerbose: true},
		{name: "dangling config", args: []string{"intake", "-v", "--config"}, wantVerbose: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PreParseGlobalFlags(tt.args)
			if got.ConfigFile != tt.wantConfig {
				t.Errorf("ConfigFile = %q, want %q", got.ConfigFile, tt.wantConfig)
			}
			if got.Verbose != tt.wantVerbose {
				t.Errorf("Verbose = %v, want %v", got.Verbose, tt.wantVerbose)
			}
		})
	}
}

func TestInitConfig_FileEnvAndDotenv(t *testing.T) {
	t.Setenv("GO_TEST", "true")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("INTAKE_JIRA_PROJECT", "")
	t.Setenv("INTAKE_INTAKE_LOOM_GUIDANCE_URL", "")
	Reset()

	dir := t.TempDir()
	t.Chdir(dir)

	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("[tracker]\nkind = \"jira\"\n\n[jira]\nproject = \"FILE\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(".env", []byte("INTAKE_JIRA_PROJECT=DOTENV\nINTAKE_INTAKE_LOOM_GUIDANCE_URL=https://env/loom\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(".env.local", []byte("INTAKE_JIRA_PROJECT=LOCAL\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// Restored by t.Setenv; unset so godotenv can populate them.
	_ = os.Unsetenv("INTAKE_JIRA_PROJECT")
	_ = os.Unsetenv("INTAKE_INTAKE_LOOM_GUIDANCE_URL")

	cfg, _, err := InitConfig(cfgPath, false)
	if err != nil {
		t.Fatalf("InitConfig() error = %v", err)
	}

	if cfg.Tracker.Kind != "jira" {
		t.Errorf("Tracker.Kind = %q, want jira from file", cfg.Tracker.Kind)
	}
	if cfg.Jira.Project != "LOCAL" {
		t.Errorf("Jira.Project = %q, want LOCAL (.env.local wins over .env and file)", cfg.Jira.Project)
	}
	if cfg.Intake.LoomGuidanceURL != "https://env/loom" {
		t.Errorf("LoomGuidanceURL = %q, want value from .env", cfg.Intake.LoomGuidanceURL)
	}
}

func TestInitConfig_LocalOverride(t *testing.T) {
	t.Setenv("GO_TEST", "true")
	t.Setenv("HOME", t.TempDir())
	Reset()

	dir := t.TempDir()
	t.Chdir(dir)

	if err := os.WriteFile(LocalConfigFile, []byte("[github]\nrepository = \"acme/web\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := InitConfig("", false)
	if err != nil {
		t.Fatalf("InitConfig() error = %v", err)
	}
	if cfg.GitHub.Repository != "acme/web" {
		t.Errorf("GitHub.Repository = %q, want acme/web", cfg.GitHub.Repository)
	}
}

func TestInitConfig_InvalidTracker(t *testing.T) {
	t.Setenv("GO_TEST", "true")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("INTAKE_TRACKER_KIND", "linear")
	Reset()
	t.Chdir(t.TempDir())

	if _, _, err := InitConfig("", false); err == nil {
		t.Error("InitConfig() should reject an unknown tracker kind")
	}
}

func TestInitConfig_ExplicitFileMustExist(t *testing.T) {
	t.Setenv("GO_TEST", "true")
	t.Setenv("HOME", t.TempDir())
	Reset()
	t.Chdir(t.TempDir())

	_, _, err := InitConfig(filepath.Join(t.TempDir(), "missing.toml"), false)
	if err == nil {
		t.Fatal("InitConfig() should fail when --config names a missing file")
	}
	if !intakeerrors.IsConfigError(err) {
		t.Errorf("expected ConfigError, got %T", err)
	}
}

func TestInitConfig_MalformedDefaultFile(t *testing.T) {
	t.Setenv("GO_TEST", "true")
	home := t.TempDir()
	t.Setenv("HOME", home)
	Reset()
	t.Chdir(t.TempDir())

	dir := filepath.Join(home, ".config", "intake")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[tracker\nkind ="), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, _, err := InitConfig("", false); err == nil {
		t.Error("InitConfig() should report a config file that does not parse")
	}
}

func TestInitConfig_NoConfigFile(t *testing.T) {
	t.Setenv("GO_TEST", "true")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("INTAKE_TRACKER_KIND", "")
	Reset()
	t.Chdir(t.TempDir())

	cfg, _, err := InitConfig("", false)
	if err != nil {
		t.Fatalf("InitConfig() error = %v", err)
	}
	if cfg.Tracker.Kind != "github" {
		t.Errorf("Tracker.Kind = %q, want default github", cfg.Tracker.Kind)
	}
}
