package targets

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/IGLOU-EU/go-wildcard"
	"github.com/adrg/xdg"
	"github.com/spf13/afero"

	"github.com/jamesainslie/scour/pkg/scour/logging"
	"github.com/jamesainslie/scour/pkg/scour/types"
)

// ResolveFailure records why a kind or custom target produced no root.
type ResolveFailure struct {
	Kind  Kind
	Label string
	Err   error
}

// Resolver maps target kinds to directories.
type Resolver struct {
	fs  afero.Fs
	env env
}

// Option is a functional option for configuring a Resolver.
type Option func(*Resolver)

// WithFs sets the filesystem used to probe candidate roots.
func WithFs(fs afero.Fs) Option {
	return func(r *Resolver) {
		r.fs = fs
	}
}

// WithEnv sets the environment lookup function.
func WithEnv(getenv func(string) string) Option {
	return func(r *Resolver) {
		r.env.getenv = getenv
	}
}

// WithOS sets the platform whose catalog is used (a runtime.GOOS value).
func WithOS(goos string) Option {
	return func(r *Resolver) {
		r.env.goos = goos
	}
}

// WithHome sets the user's home directory.
func WithHome(home string) Option {
	return func(r *Resolver) {
		r.env.home = home
	}
}

// WithCacheHome sets the per-user cache directory used on Unix platforms.
func WithCacheHome(dir string) Option {
	return func(r *Resolver) {
		r.env.cacheHome = dir
	}
}

// NewResolver creates a Resolver for the current machine, adjusted by opts.
func NewResolver(opts ...Option) *Resolver {
	home, _ := os.UserHomeDir()
	r := &Resolver{
		fs: afero.NewOsFs(),
		env: env{
			goos:      runtime.GOOS,
			home:      home,
			cacheHome: xdg.CacheHome,
			getenv:    os.Getenv,
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the first usable root for kind. The error wraps
// types.ErrNotFound for unknown kinds, missing roots, non-directories
// and protected system directories.
func (r *Resolver) Resolve(kind Kind) (types.ScanTarget, error) {
	def, ok := Lookup(kind)
	if !ok {
		return types.ScanTarget{}, fmt.Errorf("%w: unknown target %q", types.ErrNotFound, kind)
	}

	var firstErr error
	for _, root := range r.expand(def) {
		if err := r.check(root); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return types.ScanTarget{Root: root, Label: def.Label, Kind: string(kind)}, nil
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("%w: %s has no candidate directory on %s", types.ErrNotFound, kind, r.env.goos)
	}
	return types.ScanTarget{}, fmt.Errorf("resolving %s: %w", kind, firstErr)
}

// ResolveAll resolves every existing root of every kind. Browser caches
// contribute several roots and Firefox profiles are globbed. Roots that
// appear under more than one kind or candidate are returned once, in the
// position of their first occurrence.
func (r *Resolver) ResolveAll(kinds []Kind) ([]types.ScanTarget, []ResolveFailure) {
	log := logging.Get("targets")

	var (
		out      []types.ScanTarget
		failures []ResolveFailure
		seen     = make(map[string]struct{})
	)

	for _, kind := range kinds {
		def, ok := Lookup(kind)
		if !ok {
			failures = append(failures, ResolveFailure{
				Kind: kind,
				Err:  fmt.Errorf("%w: unknown target %q", types.ErrNotFound, kind),
			})
			continue
		}

		found := 0
		var firstErr error
		for _, root := range r.expand(def) {
			if err := r.check(root); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			found++
			k := r.env.key(root)
			if _, dup := seen[k]; dup {
				log.Debug("duplicate root skipped", "kind", kind, "root", root)
				continue
			}
			seen[k] = struct{}{}
			out = append(out, types.ScanTarget{Root: root, Label: def.Label, Kind: string(kind)})
		}

		if found == 0 {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: %s has no candidate directory on %s", types.ErrNotFound, kind, r.env.goos)
			}
			log.Debug("target unresolved", "kind", kind, "error", firstErr)
			failures = append(failures, ResolveFailure{Kind: kind, Label: def.Label, Err: firstErr})
		}
	}
	return out, failures
}

// ResolvePath validates a user-defined root. Environment variables and a
// leading "~" are expanded.
func (r *Resolver) ResolvePath(label, path string) (types.ScanTarget, error) {
	expanded := r.expandPath(path)
	if expanded == "" {
		return types.ScanTarget{}, fmt.Errorf("resolving %s: %w: empty path", label, types.ErrNotFound)
	}
	if !filepath.IsAbs(expanded) {
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return types.ScanTarget{}, fmt.Errorf("resolving %s: %w", label, err)
		}
		expanded = abs
	}
	if err := r.check(expanded); err != nil {
		return types.ScanTarget{}, fmt.Errorf("resolving %s: %w", label, err)
	}
	if label == "" {
		label = filepath.Base(expanded)
	}
	return types.ScanTarget{Root: expanded, Label: label, Kind: string(Custom)}, nil
}

// Select returns the kinds matching any of the wildcard patterns, in
// catalog order. "all" selects everything. A pattern that matches nothing
// is an error wrapping types.ErrNotFound.
func Select(patterns []string) ([]Kind, error) {
	var selected []Kind
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "all" {
			pattern = "*"
		}
		matched := false
		for _, k := range Kinds() {
			if wildcard.Match(pattern, string(k)) {
				matched = true
				if !slices.Contains(selected, k) {
					selected = append(selected, k)
				}
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w: no target matches %q", types.ErrNotFound, pattern)
		}
	}

	slices.SortStableFunc(selected, func(a, b Kind) int {
		return slices.Index(Kinds(), a) - slices.Index(Kinds(), b)
	})
	return selected, nil
}

// expand returns the cleaned candidate roots of def with globs expanded.
func (r *Resolver) expand(def Definition) []string {
	var out []string
	for _, c := range def.candidates(&r.env) {
		if c == "" {
			continue
		}
		if !strings.ContainsAny(c, "*?[") {
			out = append(out, filepath.Clean(c))
			continue
		}
		matches, err := afero.Glob(r.fs, c)
		if err != nil {
			continue
		}
		slices.Sort(matches)
		for _, m := range matches {
			out = append(out, filepath.Clean(m))
		}
	}
	return out
}

// check verifies that root exists, is a directory and is not protected.
func (r *Resolver) check(root string) error {
	if r.env.isProtected(root) {
		return fmt.Errorf("%w: %s is a protected system directory", types.ErrNotFound, root)
	}
	ok, err := afero.DirExists(r.fs, root)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", types.ErrNotFound, root, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s is not an existing directory", types.ErrNotFound, root)
	}
	return nil
}

func (r *Resolver) expandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		path = r.env.home + path[1:]
	}
	path = os.Expand(path, r.env.getenv)
	if r.env.windows() {
		path = expandPercent(path, r.env.getenv)
	}
	return path
}

// expandPercent expands %VAR% references. Unknown variables are left as is.
func expandPercent(s string, getenv func(string) string) string {
	var b strings.Builder
	for {
		start := strings.IndexByte(s, '%')
		if start < 0 {
			break
		}
		end := strings.IndexByte(s[start+1:], '%')
		if end < 0 {
			break
		}
		name := s[start+1 : start+1+end]
		b.WriteString(s[:start])
		if v := getenv(name); name != "" && v != "" {
			b.WriteString(v)
		} else {
			b.WriteString(s[start : start+end+2])
		}
		s = s[start+end+2:]
	}
	b.WriteString(s)
	return b.String()
}
