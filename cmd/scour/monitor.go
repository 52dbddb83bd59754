package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/scour/cmd/scour/tui"
	"github.com/jamesainslie/scour/pkg/scour/logging"
	"github.com/jamesainslie/scour/pkg/scour/report"
	"github.com/jamesainslie/scour/pkg/scour/sampler"
)

var monitorOnce bool

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Show live CPU, memory, disk and process usage",
	Long: `Show live CPU, memory and disk usage together with the processes using
the most memory or CPU.

Keys: s toggles CPU/memory ordering, p pauses, r refreshes, q quits.

With --once a single snapshot is printed instead. Process CPU shares need
two samples, so --once waits one interval before printing.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	f := monitorCmd.Flags()
	f.BoolVar(&monitorOnce, "once", false, "print one snapshot and exit")
	f.String("interval", "", "refresh interval (e.g. 1s, 500ms)")
	f.String("rank", "", "order processes by memory or cpu")
	f.IntP("limit", "l", 0, "number of processes shown")
	f.String("disk", "", "disk to report (default: system drive)")

	_ = viper.BindPFlag("monitor.interval", f.Lookup("interval"))
	_ = viper.BindPFlag("monitor.rank", f.Lookup("rank"))
	_ = viper.BindPFlag("monitor.limit", f.Lookup("limit"))
	_ = viper.BindPFlag("monitor.disk_path", f.Lookup("disk"))

	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	interval, err := cfg.Monitor.IntervalDuration()
	if err != nil {
		return err
	}
	rank, err := sampler.ParseRank(cfg.Monitor.Rank)
	if err != nil {
		return err
	}

	smp := sampler.New(
		sampler.WithRank(rank),
		sampler.WithLimit(cfg.Monitor.Limit),
		sampler.WithDiskPath(cfg.Monitor.DiskPath),
	)

	if monitorOnce {
		return printSnapshotOnce(smp, interval)
	}
	return tui.Run(tui.Options{Sampler: smp, Interval: interval, Logs: logging.TUIBuffer()})
}

// printSnapshotOnce samples twice, one interval apart, and prints the second
// snapshot.
func printSnapshotOnce(smp *sampler.Sampler, interval time.Duration) error {
	ctx := context.Background()
	if _, err := smp.Sample(ctx); err != nil {
		return fmt.Errorf("sampling failed: %w", err)
	}
	printVerbose("Waiting %s for process CPU shares", interval)
	time.Sleep(interval)

	snap, err := smp.Sample(ctx)
	if err != nil {
		return fmt.Errorf("sampling failed: %w", err)
	}
	writeSnapshot(os.Stdout, snap)
	return nil
}

// writeSnapshot prints snap as plain text.
func writeSnapshot(w io.Writer, snap *sampler.Snapshot) {
	fmt.Fprintf(w, "%-8s %7s  %d cores\n", "cpu", report.FormatPercent(snap.CPU), snap.NumCPU)
	fmt.Fprintf(w, "%-8s %7s  %s / %s\n", "memory", report.FormatPercent(snap.MemoryFraction()),
		humanize.IBytes(snap.MemoryUsed), humanize.IBytes(snap.MemoryTotal))
	if snap.DiskTotal > 0 {
		fmt.Fprintf(w, "%-8s %7s  %s / %s  %s\n", "disk", report.FormatPercent(snap.DiskFraction()),
			humanize.IBytes(snap.DiskUsed), humanize.IBytes(snap.DiskTotal), snap.DiskPath)
	} else {
		fmt.Fprintf(w, "%-8s %7s  unavailable\n", "disk", "-")
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-8s  %-32s  %7s  %10s\n", "PID", "NAME", "CPU", "MEMORY")
	fmt.Fprintln(w, strings.Repeat("-", 64))
	for _, p := range snap.Processes {
		cpu := "-"
		if snap.ProcessCPUReady {
			cpu = report.FormatPercent(p.CPU)
		}
		fmt.Fprintf(w, "%-8d  %-32s  %7s  %10s\n", p.PID, truncateString(p.Name, 32), cpu, humanize.IBytes(p.Memory))
	}
}
