package targets

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/scour/pkg/scour/types"
)

func mapEnv(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func newLinuxResolver(t *testing.T, dirs ...string) *Resolver {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, d := range dirs {
		require.NoError(t, fs.MkdirAll(d, 0o755))
	}
	return NewResolver(
		WithFs(fs),
		WithOS("linux"),
		WithHome("/home/ada"),
		WithCacheHome("/home/ada/.cache"),
		WithEnv(mapEnv(map[string]string{"TMPDIR": "/scratch"})),
	)
}

func newWindowsResolver(t *testing.T, dirs ...string) *Resolver {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, d := range dirs {
		require.NoError(t, fs.MkdirAll(d, 0o755))
	}
	return NewResolver(
		WithFs(fs),
		WithOS("windows"),
		WithHome("/users/ada"),
		WithEnv(mapEnv(map[string]string{
			"WINDIR":       "/win",
			"TEMP":         "/users/ada/local/Temp",
			"LOCALAPPDATA": "/users/ada/local",
			"PROGRAMDATA":  "/progdata",
			"SYSTEMDRIVE":  "C:",
		})),
	)
}

func TestResolve(t *testing.T) {
	r := newLinuxResolver(t, "/scratch", "/var/tmp")

	got, err := r.Resolve(UserTemp)
	require.NoError(t, err)
	assert.Equal(t, "/scratch", got.Root)
	assert.Equal(t, "User temp", got.Label)
	assert.Equal(t, string(UserTemp), got.Kind)

	got, err = r.Resolve(SystemTemp)
	require.NoError(t, err)
	assert.Equal(t, "/var/tmp", got.Root)
}

func TestResolve_FallsBackToNextCandidate(t *testing.T) {
	r := newLinuxResolver(t, "/tmp")

	got, err := r.Resolve(UserTemp)
	require.NoError(t, err)
	assert.Equal(t, "/tmp", got.Root, "TMPDIR is missing so /tmp is used")
}

func TestResolve_NotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/var/tmp", []byte("not a dir"), 0o644))
	r := NewResolver(WithFs(fs), WithOS("linux"), WithEnv(mapEnv(nil)), WithCacheHome("/c"))

	tests := []struct {
		name string
		kind Kind
	}{
		{name: "unknown kind", kind: Kind("floppy-cache")},
		{name: "missing root", kind: UserTemp},
		{name: "not a directory", kind: SystemTemp},
		{name: "windows only kind", kind: Prefetch},
		{name: "windows only update cache", kind: UpdateCache},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.kind)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrNotFound), "error %v should wrap ErrNotFound", err)
		})
	}
}

func TestResolve_ProtectedRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/usr", 0o755))
	r := NewResolver(WithFs(fs), WithOS("linux"), WithEnv(mapEnv(map[string]string{"TMPDIR": "/usr"})))

	_, err := r.Resolve(UserTemp)
	require.ErrorIs(t, err, types.ErrNotFound)
	assert.Contains(t, err.Error(), "protected")
}

func TestResolve_NeverCreatesDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewResolver(WithFs(fs), WithOS("linux"), WithEnv(mapEnv(nil)), WithCacheHome("/c"))

	for _, k := range Kinds() {
		_, _ = r.Resolve(k)
	}
	_, _ = r.ResolveAll(Kinds())

	exists, err := afero.Exists(fs, "/tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestResolveAll_BrowserCaches(t *testing.T) {
	r := newLinuxResolver(t,
		"/home/ada/.cache/google-chrome/Default/Cache",
		"/home/ada/.cache/google-chrome/Default/GPUCache",
		"/home/ada/.cache/mozilla/firefox/abc.default/cache2",
		"/home/ada/.cache/mozilla/firefox/xyz.work/cache2",
	)

	got, failures := r.ResolveAll([]Kind{ChromeCache, FirefoxCache, EdgeCache})

	roots := make([]string, 0, len(got))
	for _, tgt := range got {
		roots = append(roots, tgt.Root)
	}
	assert.Equal(t, []string{
		"/home/ada/.cache/google-chrome/Default/Cache",
		"/home/ada/.cache/google-chrome/Default/GPUCache",
		"/home/ada/.cache/mozilla/firefox/abc.default/cache2",
		"/home/ada/.cache/mozilla/firefox/xyz.work/cache2",
	}, roots)

	require.Len(t, failures, 1)
	assert.Equal(t, EdgeCache, failures[0].Kind)
	assert.ErrorIs(t, failures[0].Err, types.ErrNotFound)
}

func TestResolveAll_WindowsDeduplicatesTemp(t *testing.T) {
	r := newWindowsResolver(t,
		"/users/ada/local/Temp",
		"/win/Temp",
		"/win/Prefetch",
		"/win/SoftwareDistribution/Download",
	)

	got, failures := r.ResolveAll([]Kind{UserTemp, SystemTemp, Prefetch, UpdateCache})
	assert.Empty(t, failures)

	roots := make([]string, 0, len(got))
	for _, tgt := range got {
		roots = append(roots, tgt.Root)
	}
	assert.Equal(t, []string{
		"/users/ada/local/Temp",
		"/win/Temp",
		"/win/Prefetch",
		filepath.Join("/win", "SoftwareDistribution", "Download"),
	}, roots, "TEMP and LOCALAPPDATA/Temp collapse into one root")
}

func TestResolvePath(t *testing.T) {
	r := newWindowsResolver(t, "/users/ada/local/Builds")

	got, err := r.ResolvePath("builds", "%LOCALAPPDATA%/Builds")
	require.NoError(t, err)
	assert.Equal(t, "/users/ada/local/Builds", got.Root)
	assert.Equal(t, string(Custom), got.Kind)
	assert.Equal(t, "builds", got.Label)

	got, err = r.ResolvePath("", "$LOCALAPPDATA/Builds")
	require.NoError(t, err)
	assert.Equal(t, "Builds", got.Label)

	_, err = r.ResolvePath("gone", "%LOCALAPPDATA%/Nope")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = r.ResolvePath("empty", "  ")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestResolvePath_HomeExpansion(t *testing.T) {
	r := newLinuxResolver(t, "/home/ada/Downloads/tmp")

	got, err := r.ResolvePath("dl", "~/Downloads/tmp")
	require.NoError(t, err)
	assert.Equal(t, "/home/ada/Downloads/tmp", got.Root)

	_, err = r.ResolvePath("home", "~")
	assert.ErrorIs(t, err, types.ErrNotFound, "home directory is protected")
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		want     []Kind
		wantErr  bool
	}{
		{name: "exact", patterns: []string{"prefetch"}, want: []Kind{Prefetch}},
		{name: "wildcard", patterns: []string{"*-temp"}, want: []Kind{UserTemp, SystemTemp}},
		{name: "catalog order", patterns: []string{"system-temp", "user-temp"}, want: []Kind{UserTemp, SystemTemp}},
		{name: "dedup", patterns: []string{"chrome-cache", "*-cache"}, want: []Kind{UpdateCache, ChromeCache, EdgeCache, BraveCache, FirefoxCache, ThumbnailCache}},
		{name: "all", patterns: []string{"all"}, want: Kinds()},
		{name: "case insensitive", patterns: []string{"User-Temp"}, want: []Kind{UserTemp}},
		{name: "no match", patterns: []string{"floppy"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tt.patterns)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandPercent(t *testing.T) {
	getenv := mapEnv(map[string]string{"WINDIR": `C:\Windows`})

	assert.Equal(t, `C:\Windows\Temp`, expandPercent(`%WINDIR%\Temp`, getenv))
	assert.Equal(t, `%NOPE%\x`, expandPercent(`%NOPE%\x`, getenv))
	assert.Equal(t, `100%`, expandPercent(`100%`, getenv))
}

func TestDefinitions(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, len(Kinds()))
	for _, d := range defs {
		assert.NotEmpty(t, d.Label, d.Kind)
		assert.NotNil(t, d.candidates, d.Kind)
	}

	_, ok := Lookup(ChromeCache)
	assert.True(t, ok)
	assert.Equal(t, []Kind{UserTemp, SystemTemp}, DefaultKinds())
}
