package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultConfigTemplate = `# scour configuration

# Targets cleaned when none are named on the command line.
# Run "scour targets" to list the available kinds. Patterns such as
# "*-cache" and "all" are accepted.
targets:
%[1]s
# Extra directories to clean, addressed by name.
custom_targets: []
#  - name: build-cache
#    path: ~/projects/build/tmp

# Which files a clean run may delete
policy:
  # Minimum age since last modification (e.g. 12h, 7d, 2w, 1mo)
  min_age: %[2]s
  # Descend into subdirectories
  recursive: true
  # Remove directories emptied by the run (only when recursive)
  remove_empty_dirs: true
  # Only delete these extensions; empty means any. Groups: @temp, @log,
  # @dump, @cache, @update
  extensions: []
  # Stop after this many deletions (0 = unbounded)
  max_files: %[3]d
  # Glob patterns for files and directories that are never touched
  exclude:
%[4]s
# Resource monitor
monitor:
  interval: %[5]s
  # Order processes by memory or cpu
  rank: %[6]s
  # Number of processes shown
  limit: %[7]d
  # Disk to report (empty means the system drive)
  disk_path: ""

# Run history
history:
  enabled: true
  path: %[8]s
  retention_days: %[9]d

# Change records written before each target is modified
backup:
  enabled: false
  path: %[10]s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/scour/scour.log)
  path: ""
  rotation:
    max_size: %[11]s
    max_age: 30       # days
    max_backups: 5
    compress: true
  # Per-component log levels
  components:
    engine: info
    sampler: warn
    runner: info
`

// DefaultYAML renders the commented default config file.
func DefaultYAML() string {
	return fmt.Sprintf(defaultConfigTemplate,
		yamlList(DefaultTargets, 2),
		DefaultMinAge,
		DefaultMaxFiles,
		yamlList(DefaultExclusions, 4),
		DefaultMonitorInterval,
		DefaultMonitorRank,
		DefaultMonitorLimit,
		DefaultHistoryPath(),
		DefaultRetentionDays,
		DefaultBackupPath(),
		DefaultLogMaxSize,
	)
}

func yamlList(items []string, indent int) string {
	var sb strings.Builder
	for _, item := range items {
		fmt.Fprintf(&sb, "%s- %q\n", strings.Repeat(" ", indent), item)
	}
	return sb.String()
}

// WriteDefault writes the default config file if none exists. It returns
// the file path and whether the file was created.
func WriteDefault() (string, bool, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", false, err
	}

	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !os.IsNotExist(err) {
		return "", false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(DefaultYAML()), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write default config: %w", err)
	}
	return path, true, nil
}
