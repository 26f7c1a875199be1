package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"thoreinstein.com/intake/pkg/config"
)

// ConfigInitOptions holds flags for config init.
type ConfigInitOptions struct {
	Path  string
	Force bool
}

var (
	configInitOptions ConfigInitOptions
	configShowSecrets bool
)

// configCmd groups configuration helpers.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and create configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write the default configuration to ~/.config/intake/config.toml.

Examples:
  intake config init                    # Write the default file
  intake config init --path ./cfg.toml  # Write somewhere else
  intake config init --force            # Replace an existing file`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigInit(configInitOptions, os.Stdout)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after files, .env and environment variables
are applied. Tokens are masked unless --show-secrets is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runConfigShow(cfg, configShowSecrets, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVar(&configInitOptions.Path, "path", "", "Where to write the file (defaults to ~/.config/intake/config.toml)")
	configInitCmd.Flags().BoolVar(&configInitOptions.Force, "force", false, "Overwrite an existing file")
	configShowCmd.Flags().BoolVar(&configShowSecrets, "show-secrets", false, "Print tokens in clear text")
}

func runConfigInit(opts ConfigInitOptions, out io.Writer) error {
	path := opts.Path
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if err := config.WriteDefault(path, opts.Force); err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}

func runConfigShow(cfg *config.Config, showSecrets bool, out io.Writer) error {
	data, err := config.Marshal(cfg, showSecrets)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
