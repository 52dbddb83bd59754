package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/jamesainslie/scour/pkg/scour/filter"
	"github.com/jamesainslie/scour/pkg/scour/types"
)

// run holds the mutable state of a single Run.
type run struct {
	engine *Engine
	policy filter.Policy
	sum    *types.Summary
	now    time.Time

	// roots of every usable target; never pruned, even when nested
	roots map[string]struct{}

	// per-target state, reset by cleanTarget
	target   *types.TargetSummary
	prepared bool
	blocked  bool
}

// cleanTarget walks one target root with an explicit stack. Entries in a
// directory are handled in lexical order and subdirectories are visited
// after the files of their parent.
func (r *run) cleanTarget(ctx context.Context, t types.ScanTarget) {
	r.sum.Targets = append(r.sum.Targets, types.TargetSummary{Target: t})
	r.target = &r.sum.Targets[len(r.sum.Targets)-1]
	r.prepared = false
	r.blocked = false

	log := r.engine.log.With("target", t.Label)
	log.Debug("cleaning target", "root", t.Root)

	var visited []string
	stack := []string{t.Root}

walk:
	for len(stack) > 0 {
		if ctx.Err() != nil {
			return
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			r.fail(dir, err)
			continue
		}

		var subdirs []string
		for _, ent := range entries {
			if ctx.Err() != nil {
				return
			}

			path := filepath.Join(dir, ent.Name())
			typ := ent.Type()

			switch {
			case typ.IsDir():
				if r.policy.Recursive && !r.policy.Excludes(path) {
					subdirs = append(subdirs, path)
				}
			case typ.IsRegular(), typ&fs.ModeSymlink != 0:
				if stop := r.visitFile(ctx, t, path, ent); stop {
					break walk
				}
			default:
				// devices, sockets, pipes and other irregular entries
			}
		}

		visited = append(visited, subdirs...)
		for _, sub := range slices.Backward(subdirs) {
			stack = append(stack, sub)
		}
	}

	if r.policy.PruneEnabled() && !r.blocked && ctx.Err() == nil {
		r.prune(ctx, t, visited)
	}
}

// visitFile evaluates and possibly deletes one leaf. It reports whether
// the walk of the current target must stop.
func (r *run) visitFile(ctx context.Context, t types.ScanTarget, path string, ent fs.DirEntry) bool {
	info, err := ent.Info()
	if err != nil {
		r.fail(path, err)
		return false
	}

	meta := filter.FileMeta{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if !filter.IsEligible(meta, r.policy, r.now) {
		r.sum.SkippedFiles++
		r.target.SkippedFiles++
		return false
	}

	if !r.prepare(ctx, t) {
		return true
	}

	if err := r.engine.remove(path); err != nil {
		r.fail(path, err)
		return false
	}

	r.sum.DeletedFiles++
	r.sum.DeletedBytes += meta.Size
	r.target.DeletedFiles++
	r.target.DeletedBytes += meta.Size
	r.engine.log.Debug("deleted", "path", path, "size", meta.Size)

	if r.engine.onDeleted != nil {
		r.engine.onDeleted(DeletedFile{Path: path, Size: meta.Size, ModTime: meta.ModTime, Target: t})
	}

	if r.policy.LimitReached(r.sum.DeletedFiles) {
		r.sum.LimitReached = true
		r.engine.log.Info("max files reached", "max_files", r.policy.MaxFiles)
		return true
	}
	return false
}

// prepare calls the backup collaborator once per target. It reports
// whether deletions in the target may proceed.
func (r *run) prepare(ctx context.Context, t types.ScanTarget) bool {
	if r.blocked {
		return false
	}
	if r.prepared || r.engine.backup == nil {
		return true
	}

	token, err := r.engine.backup.Prepare(ctx, Change{
		RunID:     r.sum.RunID,
		Target:    t,
		Policy:    r.policy,
		CreatedAt: r.engine.now(),
	})
	if err != nil {
		r.blocked = true
		r.fail(t.Root, err)
		r.engine.log.Error("backup failed, target skipped", "root", t.Root, "error", err)
		return false
	}

	r.prepared = true
	if token != "" {
		r.sum.RestoreTokens = append(r.sum.RestoreTokens, token)
	}
	return true
}

// prune removes empty directories deepest first. dirs is in discovery
// order, so every directory appears after its parent.
func (r *run) prune(ctx context.Context, t types.ScanTarget, dirs []string) {
	for _, dir := range slices.Backward(dirs) {
		if ctx.Err() != nil {
			return
		}
		if _, ok := r.roots[filepath.Clean(dir)]; ok {
			continue
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				r.fail(dir, err)
			}
			continue
		}
		if len(entries) > 0 {
			continue
		}
		if !r.prepare(ctx, t) {
			return
		}

		if err := r.engine.remove(dir); err != nil {
			r.fail(dir, err)
			continue
		}
		r.sum.RemovedDirs++
		r.target.RemovedDirs++
		r.engine.log.Debug("removed empty directory", "path", dir)
	}
}

// fail records a per-item error.
func (r *run) fail(path string, err error) {
	r.sum.Errors = append(r.sum.Errors, types.NewItemError(path, err))
	r.target.Errors++
	r.engine.log.Warn("item failed", "path", path, "error", err)
}
