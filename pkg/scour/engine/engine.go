// Package engine runs cleaning passes over resolved targets. For each target
// root it walks the tree according to a filter.Policy, deletes eligible
// files, prunes emptied directories and accumulates a types.Summary.
//
// Per-item failures never abort a run. They are recorded as ItemErrors and
// the walk continues. The only run-level failure is having no usable
// target at all, reported as a *types.EnvironmentError.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/scour/pkg/scour/filter"
	"github.com/jamesainslie/scour/pkg/scour/logging"
	"github.com/jamesainslie/scour/pkg/scour/targets"
	"github.com/jamesainslie/scour/pkg/scour/types"
)

// Change describes a target the engine is about to modify.
type Change struct {
	RunID     string           `json:"run_id"`
	Target    types.ScanTarget `json:"target"`
	Policy    filter.Policy    `json:"policy"`
	CreatedAt time.Time        `json:"created_at"`
}

// Backup is consulted before the first deletion in each target. The
// returned token is recorded in the run summary.
type Backup interface {
	Prepare(ctx context.Context, change Change) (token string, err error)
}

// DeletedFile describes a file removed by a run.
type DeletedFile struct {
	Path    string
	Size    int64
	ModTime time.Time
	Target  types.ScanTarget
}

// Resolver resolves target kinds to roots. *targets.Resolver implements it.
type Resolver interface {
	ResolveAll(kinds []targets.Kind) ([]types.ScanTarget, []targets.ResolveFailure)
}

// Engine deletes files according to a policy. An Engine holds no per-run
// state and may be reused, but each Run is single-threaded.
type Engine struct {
	backup    Backup
	onDeleted func(DeletedFile)
	now       func() time.Time
	newID     func() string
	remove    func(string) error
	log       *logging.Logger
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithBackup sets the backup collaborator.
func WithBackup(b Backup) Option {
	return func(e *Engine) {
		e.backup = b
	}
}

// WithOnDeleted sets a callback invoked after every successful deletion.
// It runs on the engine's goroutine.
func WithOnDeleted(fn func(DeletedFile)) Option {
	return func(e *Engine) {
		e.onDeleted = fn
	}
}

// WithClock sets the time source used for file ages and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		now:    time.Now,
		newID:  uuid.NewString,
		remove: os.Remove,
		log:    logging.Get("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run cleans each target in order under policy p.
//
// Targets whose root is missing or not a directory are recorded in
// SkippedTargets. If no target is usable the returned summary is empty
// and the error is a *types.EnvironmentError. If ctx is cancelled the
// partial summary is returned with Cancelled set, together with ctx.Err().
func (e *Engine) Run(ctx context.Context, tgts []types.ScanTarget, p filter.Policy) (*types.Summary, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.Clone()

	sum := &types.Summary{
		RunID:     e.newID(),
		StartedAt: e.now(),
	}

	usable := make([]types.ScanTarget, 0, len(tgts))
	for _, t := range tgts {
		if err := checkRoot(t.Root); err != nil {
			e.log.Warn("target skipped", "target", t.Label, "root", t.Root, "error", err)
			sum.SkippedTargets = append(sum.SkippedTargets, types.SkippedTarget{Target: t, Reason: err.Error()})
			continue
		}
		usable = append(usable, t)
	}

	if len(usable) == 0 {
		env := &types.EnvironmentError{Failures: sum.SkippedTargets}
		sum.FinishedAt = e.now()
		e.log.Error("no usable targets", "requested", len(tgts))
		return sum, env
	}

	e.log.Info("run started", "run", sum.RunID, "targets", len(usable),
		"min_age", p.MinFileAge, "recursive", p.Recursive, "max_files", p.MaxFiles)

	r := &run{
		engine: e,
		policy: p,
		sum:    sum,
		now:    sum.StartedAt,
		roots:  make(map[string]struct{}, len(usable)),
	}
	for _, t := range usable {
		r.roots[filepath.Clean(t.Root)] = struct{}{}
	}
	for _, t := range usable {
		if ctx.Err() != nil || sum.LimitReached {
			break
		}
		r.cleanTarget(ctx, t)
	}

	sum.FinishedAt = e.now()

	if err := ctx.Err(); err != nil {
		sum.Cancelled = true
		e.log.Warn("run cancelled", "run", sum.RunID, "deleted", sum.DeletedFiles)
		return sum, err
	}

	e.log.Info("run finished", "run", sum.RunID, "deleted", sum.DeletedFiles,
		"bytes", sum.DeletedBytes, "skipped", sum.SkippedFiles, "errors", len(sum.Errors),
		"elapsed", sum.Elapsed())
	return sum, nil
}

// CleanKinds resolves kinds with resolver and runs the resolved targets.
// Kinds that fail to resolve are recorded in SkippedTargets.
func (e *Engine) CleanKinds(ctx context.Context, resolver Resolver, kinds []targets.Kind, p filter.Policy) (*types.Summary, error) {
	tgts, failures := resolver.ResolveAll(kinds)
	skipped := resolveFailures(failures)

	if len(tgts) == 0 {
		return &types.Summary{SkippedTargets: skipped}, &types.EnvironmentError{Failures: skipped}
	}

	sum, err := e.Run(ctx, tgts, p)
	if sum == nil {
		return nil, err
	}
	sum.SkippedTargets = slices.Concat(skipped, sum.SkippedTargets)

	var envErr *types.EnvironmentError
	if errors.As(err, &envErr) {
		envErr.Failures = sum.SkippedTargets
	}
	return sum, err
}

// resolveFailures converts resolver failures into skipped targets.
func resolveFailures(failures []targets.ResolveFailure) []types.SkippedTarget {
	out := make([]types.SkippedTarget, 0, len(failures))
	for _, f := range failures {
		out = append(out, types.SkippedTarget{
			Target: types.ScanTarget{Label: f.Label, Kind: string(f.Kind)},
			Reason: f.Err.Error(),
		})
	}
	return out
}

// checkRoot verifies that root is an existing directory.
func checkRoot(root string) error {
	if root == "" {
		return fmt.Errorf("%w: empty root", types.ErrNotFound)
	}
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", types.ErrNotFound, root)
	}
	return nil
}
