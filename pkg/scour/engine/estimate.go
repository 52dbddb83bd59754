package engine

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/scour/pkg/scour/filter"
	"github.com/jamesainslie/scour/pkg/scour/types"
)

// TargetEstimate previews what a Run would delete in one target.
type TargetEstimate struct {
	Target       types.ScanTarget `json:"target" yaml:"target"`
	Files        int64            `json:"files" yaml:"files"`
	Bytes        int64            `json:"bytes" yaml:"bytes"`
	SkippedFiles int64            `json:"skipped_files" yaml:"skipped_files"`
}

// Estimate is the result of a dry run.
type Estimate struct {
	Targets        []TargetEstimate      `json:"targets" yaml:"targets"`
	Files          int64                 `json:"files" yaml:"files"`
	Bytes          int64                 `json:"bytes" yaml:"bytes"`
	SkippedFiles   int64                 `json:"skipped_files" yaml:"skipped_files"`
	SkippedTargets []types.SkippedTarget `json:"skipped_targets,omitempty" yaml:"skipped_targets,omitempty"`
	Errors         []types.ItemError     `json:"errors,omitempty" yaml:"errors,omitempty"`
	LimitReached   bool                  `json:"limit_reached,omitempty" yaml:"limit_reached,omitempty"`
}

type candidate struct {
	rel  string
	size int64
}

// Estimate walks each target with parallel workers and reports the files p would make
// eligible, without deleting anything. When p.MaxFiles is set the count is
// capped using the same visiting order as Run.
func (e *Engine) Estimate(ctx context.Context, tgts []types.ScanTarget, p filter.Policy) (*Estimate, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.Clone()

	est := &Estimate{}
	now := e.now()
	budget := int64(p.MaxFiles)

	usable := 0
	for _, t := range tgts {
		if err := ctx.Err(); err != nil {
			return est, err
		}
		if err := checkRoot(t.Root); err != nil {
			est.SkippedTargets = append(est.SkippedTargets, types.SkippedTarget{Target: t, Reason: err.Error()})
			continue
		}
		usable++

		found, skipped, errs, err := e.walkEligible(ctx, t.Root, p, now)
		est.Errors = append(est.Errors, errs...)
		if err != nil {
			return est, err
		}

		if p.MaxFiles > 0 {
			slices.SortFunc(found, func(a, b candidate) int { return visitOrder(a.rel, b.rel) })
			if int64(len(found)) >= budget {
				found = found[:budget]
				est.LimitReached = true
				// Run stops at the last deletion; later files are never examined.
				last := found[len(found)-1].rel
				skipped = slices.DeleteFunc(skipped, func(rel string) bool { return visitOrder(rel, last) > 0 })
			}
			budget -= int64(len(found))
		}

		te := TargetEstimate{Target: t, SkippedFiles: int64(len(skipped))}
		for _, c := range found {
			te.Files++
			te.Bytes += c.size
		}

		est.Targets = append(est.Targets, te)
		est.Files += te.Files
		est.Bytes += te.Bytes
		est.SkippedFiles += te.SkippedFiles

		if est.LimitReached {
			break
		}
	}

	if usable == 0 {
		return est, &types.EnvironmentError{Failures: est.SkippedTargets}
	}
	return est, nil
}

// walkEligible collects the eligible leaves under root with fastwalk,
// along with the root-relative paths of the ineligible ones.
func (e *Engine) walkEligible(ctx context.Context, root string, p filter.Policy, now time.Time) ([]candidate, []string, []types.ItemError, error) {
	var (
		mu      sync.Mutex
		found   []candidate
		skipped []string
		errs    []types.ItemError
	)

	conf := fastwalk.Config{Follow: false}
	if !p.Recursive {
		conf.MaxDepth = 1
	}

	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			mu.Lock()
			errs = append(errs, types.NewItemError(path, err))
			mu.Unlock()
			return nil
		}
		if path == root {
			return nil
		}

		typ := d.Type()
		switch {
		case typ.IsDir():
			if !p.Recursive || p.Excludes(path) {
				return fastwalk.SkipDir
			}
			return nil
		case typ.IsRegular(), typ&fs.ModeSymlink != 0:
		default:
			return nil
		}

		info, err := d.Info()
		if err != nil {
			mu.Lock()
			errs = append(errs, types.NewItemError(path, err))
			mu.Unlock()
			return nil
		}

		meta := filter.FileMeta{Path: path, Size: info.Size(), ModTime: info.ModTime()}
		rel, _ := filepath.Rel(root, path)

		mu.Lock()
		defer mu.Unlock()
		if filter.IsEligible(meta, p, now) {
			found = append(found, candidate{rel: rel, size: meta.Size})
		} else {
			skipped = append(skipped, rel)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fastwalk.ErrSkipFiles) {
		return found, skipped, errs, err
	}
	return found, skipped, errs, nil
}

// visitOrder compares two root-relative paths in the order Run visits
// them: entries of a directory lexically, with a directory's own files
// before the contents of any of its subdirectories.
func visitOrder(a, b string) int {
	pa := strings.Split(filepath.ToSlash(a), "/")
	pb := strings.Split(filepath.ToSlash(b), "/")

	for i := 0; i < len(pa) && i < len(pb); i++ {
		if pa[i] == pb[i] {
			continue
		}
		aLeaf := i == len(pa)-1
		bLeaf := i == len(pb)-1
		switch {
		case aLeaf && !bLeaf:
			return -1
		case !aLeaf && bLeaf:
			return 1
		default:
			return strings.Compare(pa[i], pb[i])
		}
	}
	return len(pa) - len(pb)
}
