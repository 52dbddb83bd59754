package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/scour/pkg/scour/backup"
	"github.com/jamesainslie/scour/pkg/scour/config"
	"github.com/jamesainslie/scour/pkg/scour/history"
	"github.com/jamesainslie/scour/pkg/scour/report"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	Long: `View the history of clean and dry-run operations.

Each run records which targets were cleaned, the files deleted and the
restore tokens issued for them.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Long:  `Display detailed information about a run by its ID or a unique ID prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries and backup records older than the retention period.`,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
	showAllFiles bool
)

// maxShownFiles bounds the file list of history show without --all.
const maxShownFiles = 50

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")
	historyShowCmd.Flags().BoolVarP(&showAllFiles, "all", "a", false, "list every deleted file")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getHistory returns a History using the configured directory.
func getHistory() (*history.History, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	h, err := history.New(cfg.History.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize history: %w", err)
	}
	return h, cfg, nil
}

// runHistory lists recent runs.
func runHistory(_ *cobra.Command, _ []string) error {
	h, _, err := getHistory()
	if err != nil {
		return err
	}

	all, err := h.List(0)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(all) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'scour clean' to clean the configured targets.")
		return nil
	}

	entries := all
	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}

	fmt.Printf("\n%-10s  %-16s  %-8s  %-10s  %-12s  %s\n", "ID", "WHEN", "TYPE", "FILES", "SIZE", "TARGETS")
	fmt.Println(strings.Repeat("-", 80))

	for _, entry := range entries {
		fmt.Printf("%-10s  %-16s  %-8s  %-10s  %-12s  %s\n",
			truncateString(entry.ID, 10),
			humanize.Time(entry.Timestamp),
			entry.Operation,
			humanize.Comma(entry.Summary.DeletedFiles),
			report.FormatSize(entry.Summary.DeletedBytes),
			truncateString(strings.Join(entry.Targets, ", "), 24),
		)
	}

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("\nShowing %d of %d entries. Use --limit to see more.\n", len(entries), len(all))
	fmt.Println("Use 'scour history show <id>' for details on a specific entry.")
	return nil
}

// runHistoryShow displays details of a specific run.
func runHistoryShow(_ *cobra.Command, args []string) error {
	h, cfg, err := getHistory()
	if err != nil {
		return err
	}

	entry, err := h.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	fmt.Println("\nRun Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:         %s\n", entry.ID)
	fmt.Printf("Timestamp:  %s (%s)\n", entry.Timestamp.Local().Format("2006-01-02 15:04:05 MST"), humanize.Time(entry.Timestamp))
	fmt.Printf("Operation:  %s\n", entry.Operation)
	if entry.Cancelled {
		fmt.Printf("Status:     cancelled\n")
	}
	fmt.Printf("Targets:    %s\n", strings.Join(entry.Targets, ", "))
	fmt.Printf("Files:      %s\n", humanize.Comma(entry.Summary.DeletedFiles))
	fmt.Printf("Total Size: %s\n", report.FormatSize(entry.Summary.DeletedBytes))
	fmt.Printf("Skipped:    %s\n", humanize.Comma(entry.Summary.SkippedFiles))
	fmt.Printf("Dirs:       %d removed\n", entry.Summary.RemovedDirs)
	fmt.Printf("Errors:     %d\n", entry.Summary.Errors)

	if len(entry.Errors) > 0 {
		fmt.Println("\nErrors:")
		fmt.Println(strings.Repeat("-", 60))
		for _, e := range entry.Errors {
			fmt.Printf("  %s\n", e)
		}
	}

	if len(entry.RestoreTokens) > 0 {
		fmt.Println("\nRestore tokens:")
		fmt.Println(strings.Repeat("-", 60))
		for _, line := range restoreLines(cfg, entry) {
			fmt.Printf("  %s\n", line)
		}
	}

	if len(entry.Files) > 0 {
		fmt.Println("\nFiles:")
		fmt.Println(strings.Repeat("-", 60))
		fmt.Printf("%-12s  %s\n", "SIZE", "PATH")
		fmt.Println(strings.Repeat("-", 60))

		limit := len(entry.Files)
		if !showAllFiles {
			limit = min(limit, maxShownFiles)
		}
		for _, file := range entry.Files[:limit] {
			fmt.Printf("%-12s  %s\n", report.FormatSize(file.Size), file.Path)
		}
		if len(entry.Files) > limit {
			fmt.Printf("\n... and %d more files (use --all to list them)\n", len(entry.Files)-limit)
		}
	}
	return nil
}

// restoreLines describes each restore token of entry, using the backup
// store when it is enabled and readable.
func restoreLines(cfg *config.Config, entry *history.Entry) []string {
	lines := make([]string, 0, len(entry.RestoreTokens))
	byToken := map[string]backup.Record{}

	if cfg.Backup.Enabled {
		store, err := backup.Open(cfg.Backup.Path)
		if err != nil {
			printVerbose("Backup store unavailable: %v", err)
		} else {
			defer store.Close()
			records, err := store.ListRun(entry.ID)
			if err != nil {
				printVerbose("Failed to read backup records: %v", err)
			}
			for _, rec := range records {
				byToken[rec.Token] = rec
			}
		}
	}

	for _, token := range entry.RestoreTokens {
		if rec, ok := byToken[token]; ok {
			lines = append(lines, fmt.Sprintf("%s  %s (%s)", token, rec.Target.Label, rec.Target.Root))
		} else {
			lines = append(lines, token)
		}
	}
	return lines
}

// runHistoryClean removes old history entries and backup records.
func runHistoryClean(_ *cobra.Command, _ []string) error {
	h, cfg, err := getHistory()
	if err != nil {
		return err
	}

	retentionDays := cfg.History.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	n, err := h.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	if cfg.Backup.Enabled {
		store, err := backup.Open(cfg.Backup.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		pruned, err := store.Prune(time.Now().AddDate(0, 0, -retentionDays))
		if err != nil {
			return fmt.Errorf("failed to prune backup records: %w", err)
		}
		printInfo("Pruned %d backup %s.", pruned, pluralize(pruned, "record", "records"))
	}

	printInfo("Removed %d history %s.", n, pluralize(n, "entry", "entries"))
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
