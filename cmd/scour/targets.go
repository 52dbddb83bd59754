package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/scour/pkg/scour/config"
	"github.com/jamesainslie/scour/pkg/scour/targets"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List cleaning targets and where they resolve",
	Long: `List every known cleaning target with the directories it resolves to
on this machine. Unresolved targets show why they cannot be cleaned.

Custom targets from the config file are listed after the catalog.`,
	Args: cobra.NoArgs,
	RunE: runTargets,
}

func init() {
	rootCmd.AddCommand(targetsCmd)
}

// targetRow is one line of the targets listing.
type targetRow struct {
	Name     string
	Category string
	Label    string
	Status   string
	Roots    []string
}

func runTargets(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rows := targetRows(targets.NewResolver(), cfg.CustomTargets, cfg.Targets)

	fmt.Printf("%-16s %-8s %-16s %s\n", "NAME", "CATEGORY", "LABEL", "STATUS")
	fmt.Println(strings.Repeat("-", 72))
	for _, row := range rows {
		fmt.Printf("%-16s %-8s %-16s %s\n", row.Name, row.Category, truncateString(row.Label, 16), row.Status)
		for _, root := range row.Roots {
			fmt.Printf("%-16s %s\n", "", root)
		}
	}
	fmt.Println()
	fmt.Printf("* cleaned by default. Select targets with \"scour clean <name|pattern>\".\n")
	return nil
}

// targetRows resolves every catalog kind and custom target.
func targetRows(r *targets.Resolver, custom []config.CustomTarget, defaults []string) []targetRow {
	isDefault := make(map[string]bool, len(defaults))
	for _, d := range defaults {
		isDefault[strings.ToLower(d)] = true
	}

	var rows []targetRow
	for _, def := range targets.Definitions() {
		row := targetRow{
			Name:     string(def.Kind),
			Category: string(def.Category),
			Label:    def.Label,
		}
		if isDefault[row.Name] {
			row.Name += "*"
		}

		tgts, failures := r.ResolveAll([]targets.Kind{def.Kind})
		switch {
		case len(failures) > 0:
			row.Status = "unavailable: " + failures[0].Err.Error()
		default:
			row.Status = fmt.Sprintf("%d %s", len(tgts), pluralize(len(tgts), "root", "roots"))
			if def.RequiresAdmin {
				row.Status += " (may need admin)"
			}
			for _, t := range tgts {
				row.Roots = append(row.Roots, t.Root)
			}
		}
		rows = append(rows, row)
	}

	for _, c := range custom {
		row := targetRow{Name: c.Name, Category: string(targets.Custom), Label: c.Name}
		if isDefault[strings.ToLower(row.Name)] {
			row.Name += "*"
		}
		t, err := r.ResolvePath(c.Name, c.Path)
		if err != nil {
			row.Status = "unavailable: " + err.Error()
		} else {
			row.Status = "1 root"
			row.Roots = []string{t.Root}
		}
		rows = append(rows, row)
	}
	return rows
}
