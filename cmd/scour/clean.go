package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/scour/pkg/scour/backup"
	"github.com/jamesainslie/scour/pkg/scour/config"
	"github.com/jamesainslie/scour/pkg/scour/engine"
	"github.com/jamesainslie/scour/pkg/scour/filter"
	"github.com/jamesainslie/scour/pkg/scour/history"
	"github.com/jamesainslie/scour/pkg/scour/logging"
	"github.com/jamesainslie/scour/pkg/scour/report"
	"github.com/jamesainslie/scour/pkg/scour/runner"
	"github.com/jamesainslie/scour/pkg/scour/sampler"
	"github.com/jamesainslie/scour/pkg/scour/targets"
	"github.com/jamesainslie/scour/pkg/scour/types"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [targets...]",
	Short: "Delete stale files from cleaning targets",
	Long: `Delete files older than the minimum age from the selected targets.

Targets are catalog kinds (see "scour targets"), wildcard patterns such as
"*-cache", names of custom targets from the config file, or "all". With no
arguments the targets listed in the config file are cleaned.

Press Ctrl+C to stop a run; the files deleted so far are still reported.

Examples:
  scour clean                          # Clean the configured targets
  scour clean user-temp chrome-cache   # Clean two targets
  scour clean all --dry-run            # Preview everything
  scour clean --min-age 2w --ext @log  # Only log files older than two weeks
  scour clean -o json --sample         # JSON report with resource usage`,
	RunE: runClean,
}

func init() {
	f := cleanCmd.Flags()
	f.String("min-age", "", "minimum file age (e.g. 12h, 7d, 2w, 1mo)")
	f.StringSlice("ext", nil, "only delete these extensions (comma-separated, groups like @temp)")
	f.Int("max-files", 0, "stop after deleting this many files (0 = unbounded)")
	f.Bool("recursive", true, "descend into subdirectories")
	f.Bool("remove-empty-dirs", true, "remove directories emptied by the run")
	f.StringSliceP("exclude", "e", nil, "glob patterns for paths that are never touched")
	f.BoolP("dry-run", "n", false, "report what would be deleted without deleting")
	f.StringP("output", "o", "pretty", "output format (pretty, text, json, yaml)")
	f.Bool("sample", false, "sample CPU, memory and disk before and after the run")

	_ = viper.BindPFlag("policy.min_age", f.Lookup("min-age"))
	_ = viper.BindPFlag("policy.extensions", f.Lookup("ext"))
	_ = viper.BindPFlag("policy.max_files", f.Lookup("max-files"))
	_ = viper.BindPFlag("policy.recursive", f.Lookup("recursive"))
	_ = viper.BindPFlag("policy.remove_empty_dirs", f.Lookup("remove-empty-dirs"))
	_ = viper.BindPFlag("policy.exclude", f.Lookup("exclude"))
	_ = viper.BindPFlag("dry_run", f.Lookup("dry-run"))
	_ = viper.BindPFlag("output", f.Lookup("output"))
	_ = viper.BindPFlag("sample", f.Lookup("sample"))

	rootCmd.AddCommand(cleanCmd)
}

// runClean is the clean command handler.
func runClean(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logging.Get("cli")

	policy, err := cfg.Policy.Build()
	if err != nil {
		return err
	}

	formatter, err := report.Get(viper.GetString("output"))
	if err != nil {
		return fmt.Errorf("%w: available formats are %v", err, report.Available())
	}

	sel, err := selectTargets(targetPatterns(args, cfg.Targets), cfg.CustomTargets)
	if err != nil {
		return err
	}
	tgts, skipped := resolveSelection(targets.NewResolver(), sel)
	for _, s := range skipped {
		printVerbose("Skipping %s: %s", s.Target.Label, s.Reason)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if viper.GetBool("dry_run") {
		return runDryRun(ctx, cfg, formatter, tgts, skipped, policy)
	}

	if len(tgts) == 0 {
		sum := &types.Summary{SkippedTargets: skipped}
		if err := render(formatter, report.Build(sum, nil, nil)); err != nil {
			return err
		}
		return &types.EnvironmentError{Failures: skipped}
	}

	var opts []engine.Option

	var recorder *history.Recorder
	if cfg.History.Enabled {
		recorder = history.NewRecorder()
		opts = append(opts, engine.WithOnDeleted(recorder.Add))
	}

	var store *backup.Store
	if cfg.Backup.Enabled {
		store, err = backup.Open(cfg.Backup.Path)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := store.Close(); cerr != nil {
				log.Warn("closing backup store", "error", cerr)
			}
		}()
		opts = append(opts, engine.WithBackup(store))
	}

	var smp *sampler.Sampler
	var before, after *sampler.Snapshot
	if viper.GetBool("sample") {
		smp = sampler.New(sampler.WithDiskPath(cfg.Monitor.DiskPath), sampler.WithLimit(cfg.Monitor.Limit))
		before = sampleOrWarn(ctx, smp)
	}

	r := runner.New()
	results, err := r.StartClean(ctx, engine.New(opts...), tgts, policy)
	if err != nil {
		return err
	}

	// Handle interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		if _, ok := <-sigChan; ok {
			printInfo("\nInterrupted, stopping run...")
			r.Cancel()
		}
	}()

	if !getQuiet() {
		printInfo("Cleaning %d %s older than %s...", len(tgts), pluralize(len(tgts), "target", "targets"),
			filter.FormatDuration(policy.MinFileAge))
	}

	res := <-results
	if res.Summary == nil {
		return fmt.Errorf("clean failed: %w", res.Err)
	}
	sum := res.Summary
	sum.SkippedTargets = slices.Concat(skipped, sum.SkippedTargets)

	runErr := res.Err
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	if smp != nil {
		// A fresh context so an interrupted run still gets its after sample.
		after = sampleOrWarn(context.Background(), smp)
	}

	if cfg.History.Enabled {
		recordHistory(cfg, sum, recorder)
	}
	if store != nil {
		pruneBackups(store, cfg.History.RetentionDays)
	}

	if err := render(formatter, report.Build(sum, before, after)); err != nil {
		return err
	}
	return runErr
}

// runDryRun estimates the run without deleting anything.
func runDryRun(ctx context.Context, cfg *config.Config, formatter report.Formatter, tgts []types.ScanTarget, skipped []types.SkippedTarget, policy filter.Policy) error {
	est := &engine.Estimate{}
	if len(tgts) > 0 {
		var err error
		est, err = engine.New().Estimate(ctx, tgts, policy)
		if err != nil && est == nil {
			return fmt.Errorf("dry run failed: %w", err)
		}
	}
	est.SkippedTargets = slices.Concat(skipped, est.SkippedTargets)

	if cfg.History.Enabled {
		h, err := history.New(cfg.History.Path)
		if err == nil {
			_, err = h.RecordEstimate(est)
		}
		if err != nil {
			printVerbose("Failed to record dry run: %v", err)
		}
	}

	if err := render(formatter, report.BuildEstimate(est)); err != nil {
		return err
	}
	if len(tgts) == 0 {
		return &types.EnvironmentError{Failures: est.SkippedTargets}
	}
	return nil
}

// render formats rep and writes it to stdout.
func render(formatter report.Formatter, rep report.Report) error {
	var buf bytes.Buffer
	if err := formatter.Format(&buf, &rep); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())
	return nil
}

func sampleOrWarn(ctx context.Context, smp *sampler.Sampler) *sampler.Snapshot {
	snap, err := smp.Sample(ctx)
	if err != nil {
		printVerbose("Failed to sample resources: %v", err)
		return nil
	}
	return snap
}

// recordHistory writes the run to history and applies retention. Failures
// are logged; they never fail the run.
func recordHistory(cfg *config.Config, sum *types.Summary, recorder *history.Recorder) {
	log := logging.Get("cli")

	h, err := history.New(cfg.History.Path)
	if err != nil {
		log.Warn("history unavailable", "error", err)
		return
	}
	var files []history.FileRecord
	if recorder != nil {
		files = recorder.Files()
	}
	entry, err := h.Record(sum, files)
	if err != nil {
		log.Warn("recording history", "error", err)
		printVerbose("Failed to record history: %v", err)
		return
	}
	printVerbose("Recorded run %s", entry.ID)

	if n, err := h.Cleanup(cfg.History.RetentionDays); err != nil {
		log.Warn("history cleanup", "error", err)
	} else if n > 0 {
		printVerbose("Removed %d old history %s", n, pluralize(n, "entry", "entries"))
	}
}

func pruneBackups(store *backup.Store, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	n, err := store.Prune(cutoff)
	if err != nil {
		logging.Get("cli").Warn("pruning backup records", "error", err)
		return
	}
	if n > 0 {
		printVerbose("Pruned %d backup %s", n, pluralize(n, "record", "records"))
	}
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
