package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"redditsaver/pkg/auth"
	"redditsaver/pkg/config"
	"redditsaver/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage redditsaver configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables (REDDIT_*, REDDITSAVER_*)
  - .env files (./.env, ~/.redditsaver.env)
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	Long: `Write the default configuration to .redditsaver.yaml in the current
directory, or to the path given with --config. The file is created with
0600 permissions because it may later hold credentials.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Show the configuration after merging all sources. Secrets are masked.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".redditsaver.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Configuration file already exists", path)
		return fmt.Errorf("%s already exists", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "1. Store credentials with 'redditsaver auth login' or add them to the file")
	fmt.Fprintln(ui.Output, "2. Run 'redditsaver config validate' to check the configuration")
	fmt.Fprintln(ui.Output, "3. Start downloading with 'redditsaver download'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	display := *cfg
	masked := (&auth.Account{ClientSecret: cfg.Reddit.ClientSecret, Password: cfg.Reddit.Password}).Masked()
	if display.Reddit.ClientSecret != "" {
		display.Reddit.ClientSecret = masked.ClientSecret
	}
	if display.Reddit.Password != "" {
		display.Reddit.Password = masked.Password
	}

	data, err := yaml.Marshal(&display)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		return err
	}

	ui.PrintInfo("Configuration", sourceLabel())
	fmt.Fprintln(ui.Output)
	fmt.Fprint(ui.Output, string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	ui.PrintInfo("Validating configuration", sourceLabel())

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		return err
	}

	if !cfg.HasCredentials() {
		ui.PrintWarning("Reddit credentials are not fully configured", "a stored account will be needed")
	}

	if err := os.MkdirAll(cfg.Output.BaseDirectory, cfg.DirMode()); err != nil {
		ui.PrintError("Cannot create output directory", err.Error())
		return err
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			ui.PrintError("Cannot create log directory", err.Error())
			return err
		}
	}

	ui.PrintSuccess("Configuration is valid")
	fmt.Fprintln(ui.Output, "\nConfiguration summary:")
	fmt.Fprintf(ui.Output, "  Output directory: %s\n", cfg.Output.BaseDirectory)
	fmt.Fprintf(ui.Output, "  Limit: %d (page size %d)\n", cfg.Download.Limit, cfg.Download.PageSize)
	fmt.Fprintf(ui.Output, "  Exhausted policy: %s\n", cfg.Download.ExhaustedPolicy)
	fmt.Fprintf(ui.Output, "  Continue on error: %t\n", cfg.Download.ContinueOnError)
	fmt.Fprintf(ui.Output, "  Timeout: %s\n", cfg.Download.Timeout)
	fmt.Fprintf(ui.Output, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}

func sourceLabel() string {
	if configFile != "" {
		return configFile
	}
	return "(default locations)"
}
