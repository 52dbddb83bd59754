package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jamesainslie/scour/pkg/scour/filter"
	"github.com/jamesainslie/scour/pkg/scour/logging"
)

// CustomTarget is a user-defined directory to clean.
type CustomTarget struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

// PolicyConfig is the configured cleaning policy.
type PolicyConfig struct {
	MinAge          string   `mapstructure:"min_age"`
	Recursive       bool     `mapstructure:"recursive"`
	RemoveEmptyDirs bool     `mapstructure:"remove_empty_dirs"`
	Extensions      []string `mapstructure:"extensions"`
	MaxFiles        int      `mapstructure:"max_files"`
	Exclude         []string `mapstructure:"exclude"`
}

// MonitorConfig configures the resource monitor.
type MonitorConfig struct {
	Interval string `mapstructure:"interval"`
	Rank     string `mapstructure:"rank"`
	Limit    int    `mapstructure:"limit"`
	DiskPath string `mapstructure:"disk_path"`
}

// HistoryConfig configures the run history manifest.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// BackupConfig configures the change record store.
type BackupConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// Config represents the application configuration.
type Config struct {
	Targets       []string       `mapstructure:"targets"`
	CustomTargets []CustomTarget `mapstructure:"custom_targets"`
	Policy        PolicyConfig   `mapstructure:"policy"`
	Monitor       MonitorConfig  `mapstructure:"monitor"`
	History       HistoryConfig  `mapstructure:"history"`
	Backup        BackupConfig   `mapstructure:"backup"`
	Logging       LoggingConfig  `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/scour/config.yaml
//   - $HOME/.config/scour/config.yaml
//
// Environment variables are prefixed with SCOUR_ (e.g., SCOUR_POLICY_MIN_AGE).
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches
// the default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	if err := Setup(v, path); err != nil {
		return nil, err
	}
	if err := Read(v); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Setup registers config paths, environment binding and defaults on v.
func Setup(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "scour"))
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", "scour"))
	}

	v.SetEnvPrefix("SCOUR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return nil
}

// SetDefaults sets the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("targets", DefaultTargets)
	v.SetDefault("custom_targets", []map[string]string{})

	v.SetDefault("policy.min_age", DefaultMinAge)
	v.SetDefault("policy.recursive", true)
	v.SetDefault("policy.remove_empty_dirs", true)
	v.SetDefault("policy.extensions", []string{})
	v.SetDefault("policy.max_files", DefaultMaxFiles)
	v.SetDefault("policy.exclude", DefaultExclusions)

	v.SetDefault("monitor.interval", DefaultMonitorInterval)
	v.SetDefault("monitor.rank", DefaultMonitorRank)
	v.SetDefault("monitor.limit", DefaultMonitorLimit)
	v.SetDefault("monitor.disk_path", "") // Empty means the system drive

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", DefaultHistoryPath())
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("backup.enabled", false)
	v.SetDefault("backup.path", DefaultBackupPath())

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.compress", true)
	v.SetDefault("logging.components", map[string]string{
		"engine":  "info",
		"sampler": "warn",
		"runner":  "info",
	})
}

// Read reads the config file into v. A missing file is not an error.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// Decode unmarshals v into a Config and expands ~ in paths.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var err error
	if cfg.History.Path, err = ExpandPath(cfg.History.Path); err != nil {
		return nil, err
	}
	if cfg.Backup.Path, err = ExpandPath(cfg.Backup.Path); err != nil {
		return nil, err
	}
	if cfg.Logging.Path, err = ExpandPath(cfg.Logging.Path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Build converts the configured policy into a filter.Policy.
func (p PolicyConfig) Build() (filter.Policy, error) {
	age, err := filter.ParseDuration(p.MinAge)
	if err != nil {
		return filter.Policy{}, fmt.Errorf("invalid policy.min_age %q: %w", p.MinAge, err)
	}
	if p.MaxFiles < 0 {
		return filter.Policy{}, fmt.Errorf("%w: policy.max_files must not be negative", filter.ErrInvalidPolicy)
	}

	policy := filter.New(
		filter.WithMinFileAge(age),
		filter.WithRecursive(p.Recursive),
		filter.WithRemoveEmptyDirs(p.RemoveEmptyDirs),
		filter.WithExtensions(p.Extensions...),
		filter.WithMaxFiles(p.MaxFiles),
		filter.WithExclude(p.Exclude...),
	)
	if err := policy.Validate(); err != nil {
		return filter.Policy{}, err
	}
	return policy, nil
}

// IntervalDuration parses the monitor interval.
func (m MonitorConfig) IntervalDuration() (time.Duration, error) {
	d, err := filter.ParseDuration(m.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid monitor.interval %q: %w", m.Interval, err)
	}
	if d < 100*time.Millisecond {
		return 0, fmt.Errorf("invalid monitor.interval %q: must be at least 100ms", m.Interval)
	}
	return d, nil
}

// Build converts the logging section into a logging.Config.
func (l LoggingConfig) Build() (logging.Config, error) {
	rot := logging.DefaultRotationConfig()
	if l.Rotation.MaxSize != "" {
		n, err := humanize.ParseBytes(l.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("invalid logging.rotation.max_size %q: %w", l.Rotation.MaxSize, err)
		}
		rot.MaxSizeMB = max(1, int((n+(1<<19))>>20))
	}
	rot.MaxAgeDays = l.Rotation.MaxAge
	rot.MaxBackups = l.Rotation.MaxBackups
	rot.Compress = l.Rotation.Compress

	return logging.Config{
		Level:      l.Level,
		Path:       l.Path,
		Rotation:   rot,
		Components: l.Components,
	}, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "scour"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "scour"), nil
}

// ConfigPath returns the path of the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/scour/ for history and backup records.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "scour")
}

// DefaultHistoryPath returns the default history directory.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultBackupPath returns the default backup database directory.
func DefaultBackupPath() string {
	return filepath.Join(DataDir(), "backup")
}
