// Package filter decides which files a cleaning run may delete. A Policy is
// an immutable value built once per run; IsEligible evaluates it against a
// single file without touching the filesystem.
package filter

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

// ErrInvalidPolicy indicates that a policy field holds an unusable value.
var ErrInvalidPolicy = errors.New("invalid policy")

// Policy describes which files a run may delete.
//
// The zero value matches every regular file regardless of age, does not
// descend into subdirectories and deletes without bound.
type Policy struct {
	// MinFileAge is the minimum time since last modification.
	// Files modified more recently are never eligible.
	MinFileAge time.Duration

	// Recursive enables descending into subdirectories.
	Recursive bool

	// RemoveEmptyDirs prunes directories left empty after deletion.
	// It only has an effect when Recursive is set.
	RemoveEmptyDirs bool

	// Extensions restricts eligibility to these lower-case extensions
	// without the leading dot. Empty means no restriction.
	Extensions []string

	// MaxFiles bounds the number of files deleted in one run. 0 is unbounded.
	MaxFiles int

	// Exclude holds glob patterns matched against the slash-separated full
	// path and the base name. Matching files are never eligible and
	// matching directories are not entered.
	Exclude []string

	excludes []glob.Glob
}

// Option is a functional option for configuring a Policy.
type Option func(*Policy)

// New creates a Policy with the given options applied.
// Defaults:
//   - MinFileAge: 0
//   - Recursive: true
//   - RemoveEmptyDirs: true
//   - MaxFiles: 0 (unbounded)
func New(opts ...Option) Policy {
	p := Policy{
		Recursive:       true,
		RemoveEmptyDirs: true,
	}
	for _, opt := range opts {
		opt(&p)
	}
	p.excludes = compilePatterns(p.Exclude)
	return p
}

// WithMinFileAge sets the minimum file age. Negative values become 0.
func WithMinFileAge(d time.Duration) Option {
	return func(p *Policy) {
		p.MinFileAge = max(d, 0)
	}
}

// WithRecursive sets whether subdirectories are descended.
func WithRecursive(recursive bool) Option {
	return func(p *Policy) {
		p.Recursive = recursive
	}
}

// WithRemoveEmptyDirs sets whether emptied directories are pruned.
func WithRemoveEmptyDirs(remove bool) Option {
	return func(p *Policy) {
		p.RemoveEmptyDirs = remove
	}
}

// WithExtensions sets the allowed extensions. Entries may be group names
// from ExtensionGroups. Extensions are normalized to lower case without
// the leading dot and deduplicated.
func WithExtensions(extensions ...string) Option {
	return func(p *Policy) {
		p.Extensions = NormalizeExtensions(extensions)
	}
}

// WithMaxFiles sets the deletion bound. Negative values become 0.
func WithMaxFiles(n int) Option {
	return func(p *Policy) {
		p.MaxFiles = max(n, 0)
	}
}

// WithExclude sets the exclude glob patterns.
func WithExclude(patterns ...string) Option {
	return func(p *Policy) {
		p.Exclude = slices.Clone(patterns)
	}
}

// NormalizeExtensions lower-cases, strips dots, expands group names and
// removes duplicates and empty entries.
func NormalizeExtensions(extensions []string) []string {
	out := make([]string, 0, len(extensions))
	add := func(ext string) {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext != "" && !slices.Contains(out, ext) {
			out = append(out, ext)
		}
	}
	for _, ext := range extensions {
		if group, ok := ExtensionGroups[strings.ToLower(ext)]; ok {
			for _, g := range group {
				add(g)
			}
			continue
		}
		add(ext)
	}
	return out
}

// Validate checks that the policy's fields are usable.
func (p Policy) Validate() error {
	if p.MinFileAge < 0 {
		return fmt.Errorf("%w: negative min file age %v", ErrInvalidPolicy, p.MinFileAge)
	}
	if p.MaxFiles < 0 {
		return fmt.Errorf("%w: negative max files %d", ErrInvalidPolicy, p.MaxFiles)
	}
	for _, pattern := range p.Exclude {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("%w: exclude pattern %q: %w", ErrInvalidPolicy, pattern, err)
		}
	}
	return nil
}

// Clone returns a copy of p that shares no slices with it. Run and
// Estimate work on a clone, so the caller may reuse its slices.
func (p Policy) Clone() Policy {
	p.Extensions = slices.Clone(p.Extensions)
	p.Exclude = slices.Clone(p.Exclude)
	p.excludes = compilePatterns(p.Exclude)
	return p
}

// PruneEnabled reports whether emptied directories should be removed.
func (p Policy) PruneEnabled() bool {
	return p.Recursive && p.RemoveEmptyDirs
}

// LimitReached reports whether deleted files have hit MaxFiles.
func (p Policy) LimitReached(deleted int64) bool {
	return p.MaxFiles > 0 && deleted >= int64(p.MaxFiles)
}

// IsEligible reports whether the file described by meta may be deleted
// under p at time now. Directories are never eligible.
func IsEligible(meta FileMeta, p Policy, now time.Time) bool {
	if meta.IsDir {
		return false
	}
	if !p.matchAge(meta, now) {
		return false
	}
	if !p.matchExtension(meta) {
		return false
	}
	return !p.Excludes(meta.Path)
}

// matchAge checks that the file is at least MinFileAge old.
func (p Policy) matchAge(meta FileMeta, now time.Time) bool {
	return now.Sub(meta.ModTime) >= p.MinFileAge
}

// matchExtension checks the file extension against the allowed set.
func (p Policy) matchExtension(meta FileMeta) bool {
	if len(p.Extensions) == 0 {
		return true
	}
	return slices.Contains(p.Extensions, meta.Ext())
}

// Excludes reports whether path matches any exclude pattern.
func (p Policy) Excludes(path string) bool {
	if len(p.Exclude) == 0 {
		return false
	}
	patterns := p.excludes
	if len(patterns) != len(p.Exclude) {
		patterns = compilePatterns(p.Exclude)
	}
	slashed := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, g := range patterns {
		if g.Match(slashed) || g.Match(base) {
			return true
		}
	}
	return false
}

// compilePatterns compiles glob patterns, skipping invalid ones.
func compilePatterns(patterns []string) []glob.Glob {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			continue
		}
		compiled = append(compiled, g)
	}
	return compiled
}
