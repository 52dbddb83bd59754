package main

import (
	"strings"

	"github.com/IGLOU-EU/go-wildcard"

	"github.com/jamesainslie/scour/pkg/scour/config"
	"github.com/jamesainslie/scour/pkg/scour/targets"
	"github.com/jamesainslie/scour/pkg/scour/types"
)

// parseCommaSeparated splits a comma-separated string into trimmed, non-empty parts.
func parseCommaSeparated(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// targetPatterns flattens command arguments, each of which may itself be a
// comma-separated list. With no arguments the configured targets are used.
func targetPatterns(args []string, configured []string) []string {
	var patterns []string
	for _, arg := range args {
		patterns = append(patterns, parseCommaSeparated(arg)...)
	}
	if len(patterns) == 0 {
		for _, c := range configured {
			patterns = append(patterns, parseCommaSeparated(c)...)
		}
	}
	return patterns
}

// selection is the outcome of matching patterns against the catalog and
// the configured custom targets.
type selection struct {
	Kinds  []targets.Kind
	Custom []config.CustomTarget
}

// selectTargets splits patterns into catalog kinds and custom targets.
// "all" selects every kind and every custom target. A custom target is
// matched by name; a pattern matching neither is an error.
func selectTargets(patterns []string, custom []config.CustomTarget) (selection, error) {
	var sel selection
	var catalogPatterns []string

	for _, pattern := range patterns {
		name := strings.ToLower(strings.TrimSpace(pattern))
		if name == "all" {
			catalogPatterns = append(catalogPatterns, name)
			sel.addCustom(custom...)
			continue
		}

		matched := false
		for _, c := range custom {
			if wildcard.Match(name, strings.ToLower(c.Name)) {
				sel.addCustom(c)
				matched = true
			}
		}
		if !matched {
			catalogPatterns = append(catalogPatterns, name)
		}
	}

	if len(catalogPatterns) > 0 {
		kinds, err := targets.Select(catalogPatterns)
		if err != nil {
			return selection{}, err
		}
		sel.Kinds = kinds
	}
	return sel, nil
}

func (s *selection) addCustom(cs ...config.CustomTarget) {
	for _, c := range cs {
		dup := false
		for _, have := range s.Custom {
			if have.Name == c.Name {
				dup = true
				break
			}
		}
		if !dup {
			s.Custom = append(s.Custom, c)
		}
	}
}

// resolveSelection resolves sel into usable targets. Kinds and custom
// targets that produce no root are returned as skipped targets.
func resolveSelection(r *targets.Resolver, sel selection) ([]types.ScanTarget, []types.SkippedTarget) {
	tgts, failures := r.ResolveAll(sel.Kinds)

	var skipped []types.SkippedTarget
	for _, f := range failures {
		skipped = append(skipped, types.SkippedTarget{
			Target: types.ScanTarget{Label: f.Label, Kind: string(f.Kind)},
			Reason: f.Err.Error(),
		})
	}

	for _, c := range sel.Custom {
		t, err := r.ResolvePath(c.Name, c.Path)
		if err != nil {
			skipped = append(skipped, types.SkippedTarget{
				Target: types.ScanTarget{Root: c.Path, Label: c.Name, Kind: string(targets.Custom)},
				Reason: err.Error(),
			})
			continue
		}
		tgts = appendUnique(tgts, t)
	}
	return tgts, skipped
}

func appendUnique(tgts []types.ScanTarget, t types.ScanTarget) []types.ScanTarget {
	for _, have := range tgts {
		if have.Root == t.Root {
			return tgts
		}
	}
	return append(tgts, t)
}
