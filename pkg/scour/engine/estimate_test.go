package engine

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/scour/pkg/scour/filter"
	"github.com/jamesainslie/scour/pkg/scour/types"
)

func TestEstimate_DeletesNothing(t *testing.T) {
	root := exampleTree(t)

	est, err := New().Estimate(context.Background(), []types.ScanTarget{target(root)}, examplePolicy())
	require.NoError(t, err)

	assert.Equal(t, int64(2), est.Files)
	assert.Equal(t, int64(300), est.Bytes)
	assert.Equal(t, int64(1), est.SkippedFiles)
	require.Len(t, est.Targets, 1)
	assert.Equal(t, root, est.Targets[0].Target.Root)

	assert.FileExists(t, filepath.Join(root, "a.tmp"))
	assert.FileExists(t, filepath.Join(root, "c.tmp"))
}

func TestEstimate_MatchesRun(t *testing.T) {
	build := func() string {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "b.tmp"), 1, 30*day)
		writeFile(t, filepath.Join(root, "a", "x.tmp"), 2, 30*day)
		writeFile(t, filepath.Join(root, "a", "y", "z.tmp"), 4, 30*day)
		writeFile(t, filepath.Join(root, "c", "w.tmp"), 8, 30*day)
		writeFile(t, filepath.Join(root, "skip", "new.tmp"), 16, 0)
		return root
	}

	for _, maxFiles := range []int{0, 1, 2, 3, 4} {
		p := filter.New(filter.WithMinFileAge(7*day), filter.WithMaxFiles(maxFiles))

		estRoot := build()
		est, err := New().Estimate(context.Background(), []types.ScanTarget{target(estRoot)}, p)
		require.NoError(t, err)

		runRoot := build()
		sum, err := New().Run(context.Background(), []types.ScanTarget{target(runRoot)}, p)
		require.NoError(t, err)

		assert.Equal(t, sum.DeletedFiles, est.Files, "max files %d", maxFiles)
		assert.Equal(t, sum.DeletedBytes, est.Bytes, "max files %d", maxFiles)
		assert.Equal(t, sum.LimitReached, est.LimitReached, "max files %d", maxFiles)
		assert.Equal(t, sum.SkippedFiles, est.SkippedFiles, "max files %d", maxFiles)
	}
}

func TestEstimate_SkippedStopsAtLimit(t *testing.T) {
	for _, tt := range []struct {
		maxFiles int
		skipped  int64
	}{
		{0, 1},
		{1, 0},
		{2, 1},
	} {
		root := exampleTree(t)
		p := filter.New(filter.WithMinFileAge(7*day), filter.WithMaxFiles(tt.maxFiles))

		est, err := New().Estimate(context.Background(), []types.ScanTarget{target(root)}, p)
		require.NoError(t, err)
		assert.Equal(t, tt.skipped, est.SkippedFiles, "max files %d", tt.maxFiles)

		sum, err := New().Run(context.Background(), []types.ScanTarget{target(root)}, p)
		require.NoError(t, err)
		assert.Equal(t, sum.SkippedFiles, est.SkippedFiles, "max files %d", tt.maxFiles)
	}
}

func TestEstimate_NonRecursive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "top.tmp"), 5, 30*day)
	writeFile(t, filepath.Join(root, "sub", "deep.tmp"), 7, 30*day)

	est, err := New().Estimate(context.Background(), []types.ScanTarget{target(root)}, filter.New(filter.WithRecursive(false)))
	require.NoError(t, err)
	assert.Equal(t, int64(1), est.Files)
	assert.Equal(t, int64(5), est.Bytes)
}

func TestEstimate_NoUsableTargets(t *testing.T) {
	_, err := New().Estimate(context.Background(),
		[]types.ScanTarget{target(filepath.Join(t.TempDir(), "gone"))}, filter.New())
	assert.ErrorIs(t, err, types.ErrEnvironment)
}

func TestEstimate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Estimate(ctx, []types.ScanTarget{target(t.TempDir())}, filter.New())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVisitOrder(t *testing.T) {
	paths := []string{
		filepath.Join("c", "w.tmp"),
		filepath.Join("a", "y", "z.tmp"),
		"b.tmp",
		filepath.Join("a", "x.tmp"),
		"a.tmp",
	}
	slices.SortFunc(paths, visitOrder)

	assert.Equal(t, []string{
		"a.tmp",
		"b.tmp",
		filepath.Join("a", "x.tmp"),
		filepath.Join("a", "y", "z.tmp"),
		filepath.Join("c", "w.tmp"),
	}, paths)
}
