package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/scour/pkg/scour/engine"
	"github.com/jamesainslie/scour/pkg/scour/filter"
	"github.com/jamesainslie/scour/pkg/scour/types"
)

func wait(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res, ok := <-ch:
		require.True(t, ok, "channel closed without a result")
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for result")
		return Result{}
	}
}

func TestStart_DeliversOneResult(t *testing.T) {
	r := New()
	want := &types.Summary{DeletedFiles: 3}

	ch, err := r.Start(context.Background(), func(context.Context) (*types.Summary, error) {
		return want, nil
	})
	require.NoError(t, err)

	res := wait(t, ch)
	assert.Same(t, want, res.Summary)
	assert.NoError(t, res.Err)

	_, ok := <-ch
	assert.False(t, ok, "channel is closed after the single result")
	assert.False(t, r.Active())
}

func TestStart_RejectsWhileBusy(t *testing.T) {
	r := New()
	release := make(chan struct{})
	started := make(chan struct{})

	ch, err := r.Start(context.Background(), func(context.Context) (*types.Summary, error) {
		close(started)
		<-release
		return &types.Summary{}, nil
	})
	require.NoError(t, err)
	<-started

	assert.True(t, r.Active())
	_, err = r.Start(context.Background(), func(context.Context) (*types.Summary, error) {
		t.Error("second job must not run")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	wait(t, ch)

	ch, err = r.Start(context.Background(), func(context.Context) (*types.Summary, error) {
		return &types.Summary{}, nil
	})
	require.NoError(t, err, "runner accepts a new run once the previous one finished")
	wait(t, ch)
}

func TestCancel(t *testing.T) {
	r := New()
	assert.False(t, r.Cancel(), "nothing to cancel")

	started := make(chan struct{})
	ch, err := r.Start(context.Background(), func(ctx context.Context) (*types.Summary, error) {
		close(started)
		<-ctx.Done()
		return &types.Summary{Cancelled: true}, ctx.Err()
	})
	require.NoError(t, err)
	<-started

	assert.True(t, r.Cancel())
	res := wait(t, ch)
	assert.ErrorIs(t, res.Err, context.Canceled)
	require.NotNil(t, res.Summary)
	assert.True(t, res.Summary.Cancelled)
}

func TestStart_PanicBecomesError(t *testing.T) {
	r := New()
	ch, err := r.Start(context.Background(), func(context.Context) (*types.Summary, error) {
		panic("boom")
	})
	require.NoError(t, err)

	res := wait(t, ch)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "boom")
	assert.False(t, r.Active())
}

func TestStartClean(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "old.tmp")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	r := New()
	ch, err := r.StartClean(context.Background(), engine.New(),
		[]types.ScanTarget{{Root: root, Label: "tmp"}},
		filter.New(filter.WithMinFileAge(24*time.Hour)))
	require.NoError(t, err)

	res := wait(t, ch)
	require.NoError(t, res.Err)
	assert.Equal(t, int64(1), res.Summary.DeletedFiles)
	assert.NoFileExists(t, path)
}

func TestStartClean_EnvironmentFailure(t *testing.T) {
	r := New()
	ch, err := r.StartClean(context.Background(), engine.New(),
		[]types.ScanTarget{{Root: filepath.Join(t.TempDir(), "missing")}}, filter.New())
	require.NoError(t, err)

	res := wait(t, ch)
	assert.True(t, errors.Is(res.Err, types.ErrEnvironment))
}
