package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"thoreinstein.com/intake/pkg/bootstrap"
	"thoreinstein.com/intake/pkg/config"
	intakeerrors "thoreinstein.com/intake/pkg/errors"
)

// Version is set at build time.
var Version = "dev"

var cfgFile string
var verbose bool
var appConfig *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Intake - voice-driven bug and feature intake",
	Long: `Intake turns a conversation with a client into a filed ticket.

A dialogue agent collects the report field by field through the tools served
by 'intake serve', reads a summary back for confirmation, and files the
confirmed report in GitHub Issues or Jira. Drafts written by hand can be
filed with 'intake file'.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Logging and config must be ready before cobra runs.
	flags := bootstrap.PreParseGlobalFlags(os.Args)
	cfgFile, verbose = flags.ConfigFile, flags.Verbose
	setupLogging(verbose)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		_ = initConfig()
	})

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "C", "", "config file (default is $HOME/.config/intake/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	var err error
	appConfig, verbose, err = bootstrap.InitConfig(cfgFile, verbose)
	return err
}

// loadConfig returns the loaded configuration, loading it if needed.
func loadConfig() (*config.Config, error) {
	cfg, _, err := bootstrap.InitConfig(cfgFile, verbose)
	if err != nil {
		return nil, intakeerrors.NewConfigErrorWithCause("", "failed to load configuration", err)
	}
	return cfg, nil
}

// resetConfig clears the cached configuration.
// This is primarily used in tests to ensure each test starts with a fresh config.
func resetConfig() {
	appConfig = nil
	bootstrap.Reset()
	viper.Reset()
}
