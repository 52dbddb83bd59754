package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/scour/pkg/scour/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage scour configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/scour/config.yaml (if set)
  2. ~/.config/scour/config.yaml

Environment variables can override config file settings using the SCOUR_ prefix:
  SCOUR_POLICY_MIN_AGE=2w
  SCOUR_POLICY_MAX_FILES=500
  SCOUR_HISTORY_ENABLED=false`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a commented default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// configEnvVars lists the keys shown in the override section of config show.
var configEnvVars = []string{
	"targets",
	"policy.min_age",
	"policy.recursive",
	"policy.remove_empty_dirs",
	"policy.extensions",
	"policy.max_files",
	"policy.exclude",
	"monitor.interval",
	"monitor.rank",
	"monitor.limit",
	"monitor.disk_path",
	"history.enabled",
	"history.path",
	"history.retention_days",
	"backup.enabled",
	"backup.path",
	"logging.level",
	"logging.path",
}

// envName returns the environment variable that overrides key.
func envName(key string) string {
	return "SCOUR_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// runConfigShow displays the current configuration.
func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		if _, statErr := os.Stat(configFile); statErr == nil {
			fmt.Printf("Config file: %s\n\n", configFile)
		} else {
			fmt.Printf("Config file: (using defaults, no file found)\n\n")
		}
	} else {
		fmt.Printf("Config file: (using defaults, no file found)\n\n")
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("targets:                   %v\n", cfg.Targets)
	for _, c := range cfg.CustomTargets {
		fmt.Printf("custom_targets:            %s = %s\n", c.Name, c.Path)
	}
	fmt.Printf("policy.min_age:            %s\n", cfg.Policy.MinAge)
	fmt.Printf("policy.recursive:          %t\n", cfg.Policy.Recursive)
	fmt.Printf("policy.remove_empty_dirs:  %t\n", cfg.Policy.RemoveEmptyDirs)
	fmt.Printf("policy.extensions:         %v\n", cfg.Policy.Extensions)
	fmt.Printf("policy.max_files:          %d\n", cfg.Policy.MaxFiles)
	fmt.Printf("policy.exclude:            %v\n", cfg.Policy.Exclude)
	fmt.Printf("monitor.interval:          %s\n", cfg.Monitor.Interval)
	fmt.Printf("monitor.rank:              %s\n", cfg.Monitor.Rank)
	fmt.Printf("monitor.limit:             %d\n", cfg.Monitor.Limit)
	fmt.Printf("monitor.disk_path:         %s\n", cfg.Monitor.DiskPath)
	fmt.Printf("history.enabled:           %t\n", cfg.History.Enabled)
	fmt.Printf("history.path:              %s\n", cfg.History.Path)
	fmt.Printf("history.retention:         %d days\n", cfg.History.RetentionDays)
	fmt.Printf("backup.enabled:            %t\n", cfg.Backup.Enabled)
	fmt.Printf("backup.path:               %s\n", cfg.Backup.Path)
	fmt.Printf("logging.level:             %s\n", cfg.Logging.Level)
	fmt.Printf("logging.path:              %s\n", cfg.Logging.Path)

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	anyOverrides := false
	for _, key := range configEnvVars {
		name := envName(key)
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}
	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(_ *cobra.Command, _ []string) error {
	configPath, _, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}
	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(_ *cobra.Command, _ []string) error {
	configPath, created, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if !created {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'scour config edit' to modify it.")
		return nil
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(_ *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if cfgFile != "" {
		configPath = cfgFile
	}

	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}
	return nil
}
