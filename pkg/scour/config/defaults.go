// Package config provides configuration management for scour.
package config

// Default configuration values.
const (
	// DefaultMinAge is the minimum age of files a clean run may delete.
	DefaultMinAge = "7d"

	// DefaultMaxFiles bounds deletions per run. 0 is unbounded.
	DefaultMaxFiles = 0

	// DefaultMonitorInterval is the refresh interval of the monitor.
	DefaultMonitorInterval = "2s"

	// DefaultMonitorRank orders the monitor's process table.
	DefaultMonitorRank = "memory"

	// DefaultMonitorLimit is the number of processes the monitor shows.
	DefaultMonitorLimit = 5

	// DefaultRetentionDays is how long history and backup records are kept.
	DefaultRetentionDays = 30

	// DefaultLogMaxSize is the log size at which the file is rotated.
	DefaultLogMaxSize = "10MB"
)

// DefaultTargets are cleaned when no target is named.
var DefaultTargets = []string{"user-temp", "system-temp"}

// DefaultExclusions are never deleted and never descended into.
var DefaultExclusions = []string{
	"desktop.ini",
	"*.lock",
}
