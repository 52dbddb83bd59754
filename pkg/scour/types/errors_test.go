package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"not exist", fs.ErrNotExist, KindNotFound},
		{"wrapped not exist", fmt.Errorf("remove: %w", fs.ErrNotExist), KindNotFound},
		{"sentinel not found", fmt.Errorf("chrome: %w", ErrNotFound), KindNotFound},
		{"permission", &fs.PathError{Op: "remove", Path: "/x", Err: fs.ErrPermission}, KindAccessDenied},
		{"environment", &EnvironmentError{}, KindEnvironmentFailure},
		{"other", errors.New("disk on fire"), KindIOError},
		{"nil", nil, KindIOError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassify_RealFilesystem(t *testing.T) {
	_, err := os.Lstat(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, KindNotFound, Classify(err))
}

func TestEnvironmentError_Is(t *testing.T) {
	err := fmt.Errorf("clean: %w", &EnvironmentError{
		Failures: []SkippedTarget{{Target: ScanTarget{Kind: "prefetch"}, Reason: "not found"}},
	})

	assert.ErrorIs(t, err, ErrEnvironment)
	assert.Contains(t, err.Error(), "prefetch: not found")

	var envErr *EnvironmentError
	require.ErrorAs(t, err, &envErr)
	assert.Len(t, envErr.Failures, 1)
}

func TestErrorKind_JSON(t *testing.T) {
	data, err := json.Marshal(ItemError{Path: "/tmp/a", Kind: KindAccessDenied, Message: "busy"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"/tmp/a","kind":"access_denied","message":"busy"}`, string(data))

	var back ItemError
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, KindAccessDenied, back.Kind)

	var k ErrorKind
	assert.Error(t, k.UnmarshalText([]byte("bogus")))
}

func TestSummary_Elapsed(t *testing.T) {
	var s Summary
	if s.Elapsed() != 0 {
		t.Errorf("Elapsed() of zero summary = %v, want 0", s.Elapsed())
	}
	if s.HasErrors() {
		t.Error("HasErrors() = true for empty summary")
	}
}
