package report

import (
	"bytes"
	"fmt"
	"text/tabwriter"
)

// TextFormatter writes plain aligned text without colors, suitable for
// logs and piping.
type TextFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TextFormatter) Format(w *bytes.Buffer, r *Report) error {
	fmt.Fprintln(w, r.Headline)
	if r.Elapsed != "" {
		fmt.Fprintf(w, "elapsed: %s\n", r.Elapsed)
	}
	fmt.Fprintf(w, "deleted: %d files, %s\n", r.DeletedFiles, r.DeletedSize)
	fmt.Fprintf(w, "skipped: %d files\n", r.SkippedFiles)
	if r.RemovedDirs > 0 {
		fmt.Fprintf(w, "removed dirs: %d\n", r.RemovedDirs)
	}
	if r.LimitReached {
		fmt.Fprintln(w, "max files reached")
	}

	if len(r.Targets) > 0 {
		w.WriteString("\n")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TARGET\tFILES\tSIZE\tSKIPPED\tERRORS\tROOT")
		for _, t := range r.Targets {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%d\t%s\n", t.Label, t.Files, t.Size, t.Skipped, t.Errors, t.Root)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(r.SkippedTargets) > 0 {
		w.WriteString("\nskipped targets:\n")
		for _, s := range r.SkippedTargets {
			fmt.Fprintf(w, "  %s: %s\n", s.Label, s.Reason)
		}
	}

	if len(r.Errors) > 0 {
		w.WriteString("\nerrors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  [%s] %s: %s\n", e.Kind, e.Path, e.Message)
		}
	}

	if len(r.Resources) > 0 {
		w.WriteString("\n")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RESOURCE\tBEFORE\tAFTER")
		for _, l := range r.Resources {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Name, l.Before, l.After)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	for _, tok := range r.RestoreTokens {
		fmt.Fprintf(w, "restore token: %s\n", tok)
	}
	return nil
}
