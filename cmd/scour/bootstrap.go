package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/scour/pkg/scour/config"
	"github.com/jamesainslie/scour/pkg/scour/logging"
)

// tuiCommands own the terminal, so console logging is disabled for them.
var tuiCommands = map[string]bool{
	"monitor": true,
}

// initializeLogging is the root PersistentPreRunE hook. It creates the
// data directory and starts file logging from the loaded config.
func initializeLogging(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(config.DataDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	logCfg, err := cfg.Logging.Build()
	if err != nil {
		return err
	}
	logCfg.ConsoleLevel = consoleLevel()
	if cmd != nil && tuiCommands[cmd.Name()] && !monitorOnce {
		logCfg.TUIMode = true
	}

	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// consoleLevel mirrors log output to stderr only with --verbose.
func consoleLevel() string {
	if getVerbose() && !getQuiet() {
		return "debug"
	}
	return ""
}
