// Package history keeps a manifest of past cleaning runs on disk, one JSON
// file per run.
package history

import "time"

// Operation is the kind of run an entry describes.
type Operation string

const (
	// OpClean is a run that deleted files.
	OpClean Operation = "clean"
	// OpDryRun is an estimate that deleted nothing.
	OpDryRun Operation = "dry-run"
)

// Entry is one recorded run.
type Entry struct {
	ID            string       `json:"id"`
	Timestamp     time.Time    `json:"timestamp"`
	Operation     Operation    `json:"operation"`
	Targets       []string     `json:"targets"`
	Files         []FileRecord `json:"files,omitempty"`
	Summary       Summary      `json:"summary"`
	Errors        []string     `json:"errors,omitempty"`
	RestoreTokens []string     `json:"restore_tokens,omitempty"`
	Cancelled     bool         `json:"cancelled,omitempty"`
}

// FileRecord is a deleted file.
type FileRecord struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"mod_time"`
	Target    string    `json:"target,omitempty"`
	DeletedAt time.Time `json:"deleted_at,omitzero"`
}

// Summary holds the totals of a run.
type Summary struct {
	DeletedFiles int64 `json:"deleted_files"`
	DeletedBytes int64 `json:"deleted_bytes"`
	SkippedFiles int64 `json:"skipped_files"`
	RemovedDirs  int64 `json:"removed_dirs"`
	Errors       int   `json:"errors"`
}
