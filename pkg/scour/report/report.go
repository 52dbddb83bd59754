// Package report turns run summaries and resource snapshots into reports
// and renders them in several output formats.
//
// Build is a pure transformation. Rendering goes through a formatter
// registry so the CLI can select a format at runtime:
//
//	f, err := report.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := f.Format(&buf, report.Build(sum, before, after)); err != nil {
//	    return err
//	}
package report

import (
	"fmt"
	"time"

	"github.com/jamesainslie/scour/pkg/scour/engine"
	"github.com/jamesainslie/scour/pkg/scour/sampler"
	"github.com/jamesainslie/scour/pkg/scour/types"
)

// Outcome classifies a run for display.
type Outcome string

const (
	OutcomeNothingToClean    Outcome = "nothing_to_clean"
	OutcomeCleaned           Outcome = "cleaned"
	OutcomeCleanedWithErrors Outcome = "cleaned_with_errors"
	OutcomeCancelled         Outcome = "cancelled"
	OutcomeDryRun            Outcome = "dry_run"
)

// TargetLine is the per-target part of a report.
type TargetLine struct {
	Label       string `json:"label" yaml:"label"`
	Root        string `json:"root" yaml:"root"`
	Files       int64  `json:"files" yaml:"files"`
	Bytes       int64  `json:"bytes" yaml:"bytes"`
	Size        string `json:"size" yaml:"size"`
	Skipped     int64  `json:"skipped" yaml:"skipped"`
	RemovedDirs int64  `json:"removed_dirs,omitempty" yaml:"removed_dirs,omitempty"`
	Errors      int    `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// SkippedLine names a target that could not be cleaned.
type SkippedLine struct {
	Label  string `json:"label" yaml:"label"`
	Root   string `json:"root,omitempty" yaml:"root,omitempty"`
	Reason string `json:"reason" yaml:"reason"`
}

// ErrorLine is one per-item failure.
type ErrorLine struct {
	Path    string `json:"path" yaml:"path"`
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

// ResourceLine compares one metric before and after a run. Either side is
// "-" when that snapshot is missing.
type ResourceLine struct {
	Name   string `json:"name" yaml:"name"`
	Before string `json:"before" yaml:"before"`
	After  string `json:"after" yaml:"after"`
}

// Report is the display form of a run.
type Report struct {
	RunID          string         `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Outcome        Outcome        `json:"outcome" yaml:"outcome"`
	Headline       string         `json:"headline" yaml:"headline"`
	StartedAt      time.Time      `json:"started_at,omitzero" yaml:"started_at,omitempty"`
	Elapsed        string         `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
	DeletedFiles   int64          `json:"deleted_files" yaml:"deleted_files"`
	DeletedBytes   int64          `json:"deleted_bytes" yaml:"deleted_bytes"`
	DeletedSize    string         `json:"deleted_size" yaml:"deleted_size"`
	SkippedFiles   int64          `json:"skipped_files" yaml:"skipped_files"`
	RemovedDirs    int64          `json:"removed_dirs" yaml:"removed_dirs"`
	LimitReached   bool           `json:"limit_reached,omitempty" yaml:"limit_reached,omitempty"`
	Targets        []TargetLine   `json:"targets" yaml:"targets"`
	SkippedTargets []SkippedLine  `json:"skipped_targets,omitempty" yaml:"skipped_targets,omitempty"`
	Errors         []ErrorLine    `json:"errors,omitempty" yaml:"errors,omitempty"`
	Resources      []ResourceLine `json:"resources,omitempty" yaml:"resources,omitempty"`
	RestoreTokens  []string       `json:"restore_tokens,omitempty" yaml:"restore_tokens,omitempty"`
}

// Build converts a summary and optional before/after snapshots into a
// Report. A nil summary yields a "nothing to clean" report.
func Build(sum *types.Summary, before, after *sampler.Snapshot) Report {
	r := Report{Targets: []TargetLine{}}
	if sum == nil {
		r.Outcome = OutcomeNothingToClean
		r.Headline = headline(r.Outcome, 0, 0, 0)
		r.DeletedSize = FormatSize(0)
		r.Resources = resources(before, after)
		return r
	}

	r.RunID = sum.RunID
	r.StartedAt = sum.StartedAt
	if !sum.FinishedAt.IsZero() {
		r.Elapsed = FormatElapsed(sum.Elapsed())
	}
	r.DeletedFiles = sum.DeletedFiles
	r.DeletedBytes = sum.DeletedBytes
	r.DeletedSize = FormatSize(sum.DeletedBytes)
	r.SkippedFiles = sum.SkippedFiles
	r.RemovedDirs = sum.RemovedDirs
	r.LimitReached = sum.LimitReached
	r.RestoreTokens = sum.RestoreTokens

	for _, t := range sum.Targets {
		r.Targets = append(r.Targets, TargetLine{
			Label:       t.Target.Label,
			Root:        t.Target.Root,
			Files:       t.DeletedFiles,
			Bytes:       t.DeletedBytes,
			Size:        FormatSize(t.DeletedBytes),
			Skipped:     t.SkippedFiles,
			RemovedDirs: t.RemovedDirs,
			Errors:      t.Errors,
		})
	}
	r.SkippedTargets = skippedLines(sum.SkippedTargets)
	for _, e := range sum.Errors {
		r.Errors = append(r.Errors, ErrorLine{Path: e.Path, Kind: e.Kind.String(), Message: e.Message})
	}

	switch {
	case sum.Cancelled:
		r.Outcome = OutcomeCancelled
	case len(sum.Targets) == 0:
		r.Outcome = OutcomeNothingToClean
	case len(sum.Errors) > 0:
		r.Outcome = OutcomeCleanedWithErrors
	case sum.DeletedFiles == 0 && sum.RemovedDirs == 0:
		r.Outcome = OutcomeNothingToClean
	default:
		r.Outcome = OutcomeCleaned
	}
	r.Headline = headline(r.Outcome, sum.DeletedFiles, sum.DeletedBytes, len(sum.Errors))
	r.Resources = resources(before, after)
	return r
}

// BuildEstimate converts a dry-run estimate into a Report.
func BuildEstimate(est *engine.Estimate) Report {
	r := Report{Outcome: OutcomeDryRun, Targets: []TargetLine{}}
	if est == nil {
		r.DeletedSize = FormatSize(0)
		r.Headline = headline(r.Outcome, 0, 0, 0)
		return r
	}

	r.DeletedFiles = est.Files
	r.DeletedBytes = est.Bytes
	r.DeletedSize = FormatSize(est.Bytes)
	r.SkippedFiles = est.SkippedFiles
	r.LimitReached = est.LimitReached
	for _, t := range est.Targets {
		r.Targets = append(r.Targets, TargetLine{
			Label:   t.Target.Label,
			Root:    t.Target.Root,
			Files:   t.Files,
			Bytes:   t.Bytes,
			Size:    FormatSize(t.Bytes),
			Skipped: t.SkippedFiles,
		})
	}
	r.SkippedTargets = skippedLines(est.SkippedTargets)
	for _, e := range est.Errors {
		r.Errors = append(r.Errors, ErrorLine{Path: e.Path, Kind: e.Kind.String(), Message: e.Message})
	}
	r.Headline = headline(r.Outcome, est.Files, est.Bytes, len(est.Errors))
	return r
}

func skippedLines(skipped []types.SkippedTarget) []SkippedLine {
	var out []SkippedLine
	for _, s := range skipped {
		label := s.Target.Label
		if label == "" {
			label = s.Target.Kind
		}
		out = append(out, SkippedLine{Label: label, Root: s.Target.Root, Reason: s.Reason})
	}
	return out
}

func headline(o Outcome, files, bytes int64, errs int) string {
	switch o {
	case OutcomeNothingToClean:
		return "Nothing to clean"
	case OutcomeCancelled:
		return fmt.Sprintf("Cancelled after %s (%s)", plural(files, "file"), FormatSize(bytes))
	case OutcomeCleanedWithErrors:
		return fmt.Sprintf("Cleaned %s (%s) with %s",
			plural(files, "file"), FormatSize(bytes), plural(int64(errs), "error"))
	case OutcomeDryRun:
		return fmt.Sprintf("Would delete %s (%s)", plural(files, "file"), FormatSize(bytes))
	default:
		return fmt.Sprintf("Cleaned %s (%s)", plural(files, "file"), FormatSize(bytes))
	}
}

func plural(n int64, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func resources(before, after *sampler.Snapshot) []ResourceLine {
	if before == nil && after == nil {
		return nil
	}

	side := func(s *sampler.Snapshot, fn func(*sampler.Snapshot) string) string {
		if s == nil {
			return "-"
		}
		return fn(s)
	}
	line := func(name string, fn func(*sampler.Snapshot) string) ResourceLine {
		return ResourceLine{Name: name, Before: side(before, fn), After: side(after, fn)}
	}

	return []ResourceLine{
		line("cpu", func(s *sampler.Snapshot) string { return FormatPercent(s.CPU) }),
		line("memory", func(s *sampler.Snapshot) string {
			return fmt.Sprintf("%s / %s (%s)", FormatSize(int64(s.MemoryUsed)),
				FormatSize(int64(s.MemoryTotal)), FormatPercent(s.MemoryFraction()))
		}),
		line("disk", func(s *sampler.Snapshot) string {
			return fmt.Sprintf("%s / %s (%s)", FormatSize(int64(s.DiskUsed)),
				FormatSize(int64(s.DiskTotal)), FormatPercent(s.DiskFraction()))
		}),
	}
}
