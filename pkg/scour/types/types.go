// Package types provides the core data types shared by the scour cleaning
// engine, the path resolver and the reporting layer. It includes scan targets,
// run summaries, per-item errors and the error taxonomy used to classify
// filesystem failures.
package types

import (
	"time"
)

// ScanTarget is a resolved directory the engine may clean.
type ScanTarget struct {
	// Root is the absolute path of the directory to clean.
	Root string `json:"root" yaml:"root"`

	// Label is a human-readable name, e.g. "Chrome cache".
	Label string `json:"label" yaml:"label"`

	// Kind is the logical target kind this root was resolved from.
	Kind string `json:"kind" yaml:"kind"`
}

// TargetSummary holds the counters for a single target within a run.
type TargetSummary struct {
	Target       ScanTarget `json:"target" yaml:"target"`
	DeletedFiles int64      `json:"deleted_files" yaml:"deleted_files"`
	DeletedBytes int64      `json:"deleted_bytes" yaml:"deleted_bytes"`
	SkippedFiles int64      `json:"skipped_files" yaml:"skipped_files"`
	RemovedDirs  int64      `json:"removed_dirs" yaml:"removed_dirs"`
	Errors       int        `json:"errors" yaml:"errors"`
}

// SkippedTarget records a target that could not be used in a run.
type SkippedTarget struct {
	Target ScanTarget `json:"target" yaml:"target"`
	Reason string     `json:"reason" yaml:"reason"`
}

// Summary is the result of a cleaning run. It is produced once per run
// and is not modified after the engine returns it.
type Summary struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id" yaml:"run_id"`

	// StartedAt and FinishedAt bracket the run.
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	// DeletedFiles is the number of files removed.
	DeletedFiles int64 `json:"deleted_files" yaml:"deleted_files"`

	// DeletedBytes is the sum of the sizes of removed files.
	DeletedBytes int64 `json:"deleted_bytes" yaml:"deleted_bytes"`

	// SkippedFiles is the number of files that did not satisfy the policy.
	SkippedFiles int64 `json:"skipped_files" yaml:"skipped_files"`

	// RemovedDirs is the number of emptied directories pruned.
	RemovedDirs int64 `json:"removed_dirs" yaml:"removed_dirs"`

	// Errors lists per-item failures in the order they occurred.
	Errors []ItemError `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Targets holds per-target counters in run order.
	Targets []TargetSummary `json:"targets,omitempty" yaml:"targets,omitempty"`

	// SkippedTargets lists targets that were unusable at run time.
	SkippedTargets []SkippedTarget `json:"skipped_targets,omitempty" yaml:"skipped_targets,omitempty"`

	// RestoreTokens are the tokens issued by the backup collaborator.
	RestoreTokens []string `json:"restore_tokens,omitempty" yaml:"restore_tokens,omitempty"`

	// Cancelled is set when the run stopped because its context ended.
	Cancelled bool `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`

	// LimitReached is set when the run stopped at the max-files bound.
	LimitReached bool `json:"limit_reached,omitempty" yaml:"limit_reached,omitempty"`
}

// Elapsed returns the wall time of the run.
func (s *Summary) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() || s.StartedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// HasErrors reports whether any per-item error was recorded.
func (s *Summary) HasErrors() bool {
	return len(s.Errors) > 0
}
