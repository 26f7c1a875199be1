package cmd

import (
	"os"
	"testing"

	"github.com/zalando/go-keyring"
)

// TestMain disables the config cache in bootstrap and keeps tests away from
// real GitHub credentials and the OS keyring.
func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Setenv("GO_TEST", "true")
	os.Unsetenv("GITHUB_TOKEN")
	os.Unsetenv("INTAKE_GITHUB_TOKEN")
	os.Unsetenv("JIRA_TOKEN")

	code := m.Run()

	os.Unsetenv("GO_TEST")

	os.Exit(code)
}
