// Package runner executes at most one cleaning run at a time on a
// background goroutine and delivers its terminal result on a channel.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jamesainslie/scour/pkg/scour/engine"
	"github.com/jamesainslie/scour/pkg/scour/filter"
	"github.com/jamesainslie/scour/pkg/scour/logging"
	"github.com/jamesainslie/scour/pkg/scour/types"
)

// ErrBusy is returned by Start while a run is active.
var ErrBusy = errors.New("a cleaning run is already in progress")

// Job is the work executed by a run.
type Job func(ctx context.Context) (*types.Summary, error)

// Result is the terminal outcome of a run. Summary may be non-nil even when
// Err is set, e.g. after cancellation.
type Result struct {
	Summary *types.Summary
	Err     error
}

// Runner guards a single active run.
type Runner struct {
	running sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc

	log *logging.Logger
}

// New creates an idle Runner.
func New() *Runner {
	return &Runner{log: logging.Get("runner")}
}

// Start runs job on a new goroutine. The returned channel receives exactly
// one Result and is then closed. If a run is already active Start returns
// ErrBusy and does not run job.
func (r *Runner) Start(ctx context.Context, job Job) (<-chan Result, error) {
	if !r.running.TryLock() {
		r.log.Debug("start rejected, run active")
		return nil, ErrBusy
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	results := make(chan Result, 1)
	go func() {
		defer close(results)

		res := r.execute(runCtx, job)

		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
		cancel()
		r.running.Unlock()

		results <- res
	}()
	return results, nil
}

// execute runs job, turning a panic into an error result.
func (r *Runner) execute(ctx context.Context, job Job) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("run panicked", "panic", p)
			res = Result{Err: fmt.Errorf("cleaning run panicked: %v", p)}
		}
	}()
	sum, err := job(ctx)
	return Result{Summary: sum, Err: err}
}

// StartClean starts an engine run over tgts with policy p.
func (r *Runner) StartClean(ctx context.Context, e *engine.Engine, tgts []types.ScanTarget, p filter.Policy) (<-chan Result, error) {
	return r.Start(ctx, func(ctx context.Context) (*types.Summary, error) {
		return e.Run(ctx, tgts, p)
	})
}

// Cancel cancels the active run, if any. It reports whether a run was
// active.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return false
	}
	r.log.Info("run cancellation requested")
	r.cancel()
	return true
}

// Active reports whether a run is in progress.
func (r *Runner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}
