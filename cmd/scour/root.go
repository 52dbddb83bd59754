package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/scour/pkg/scour/config"
)

var (
	cfgFile string

	// configErr holds a config read failure until a command needs the config.
	configErr error

	rootCmd = &cobra.Command{
		Use:   "scour",
		Short: "Clean temporary files and caches",
		Long: `Scour removes stale files from temporary directories and application
caches, and shows what your machine is spending its CPU, memory and disk on.

Examples:
  scour clean                    # Clean the configured targets
  scour clean '*-cache' -n       # Preview cleaning every browser cache
  scour clean user-temp --min-age 2w --ext tmp,log
  scour targets                  # List targets and where they resolve
  scour monitor                  # Live resource monitor
  scour history                  # View past runs`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/scour/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	v := viper.GetViper()
	if err := config.Setup(v, cfgFile); err != nil {
		configErr = err
		return
	}
	configErr = config.Read(v)
}

// loadConfig decodes the global viper, flag overrides included.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	return config.Decode(viper.GetViper())
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	return err
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...any) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...any) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
