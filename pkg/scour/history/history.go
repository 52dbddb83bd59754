package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/scour/pkg/scour/engine"
	"github.com/jamesainslie/scour/pkg/scour/types"
)

// ErrNotFound is returned by Get when no entry matches.
var ErrNotFound = errors.New("history entry not found")

// ErrAmbiguous is returned by Get when an ID prefix matches several entries.
var ErrAmbiguous = errors.New("ambiguous history entry id")

// History reads and writes run entries in a directory.
type History struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// New creates a History rooted at dir. The directory is created on the
// first write.
func New(dir string) (*History, error) {
	if dir == "" {
		return nil, errors.New("history directory cannot be empty")
	}
	return &History{dir: dir, now: time.Now}, nil
}

// Dir returns the history directory.
func (h *History) Dir() string {
	return h.dir
}

// EnsureDir creates the history directory if it does not exist.
func (h *History) EnsureDir() error {
	return os.MkdirAll(h.dir, 0o755)
}

// Record stores an entry for a finished run. files are the deletions
// observed during the run.
func (h *History) Record(sum *types.Summary, files []FileRecord) (*Entry, error) {
	if sum == nil {
		return nil, errors.New("cannot record a nil summary")
	}

	entry := &Entry{
		ID:            sum.RunID,
		Timestamp:     sum.StartedAt.UTC(),
		Operation:     OpClean,
		Files:         files,
		RestoreTokens: sum.RestoreTokens,
		Cancelled:     sum.Cancelled,
		Summary: Summary{
			DeletedFiles: sum.DeletedFiles,
			DeletedBytes: sum.DeletedBytes,
			SkippedFiles: sum.SkippedFiles,
			RemovedDirs:  sum.RemovedDirs,
			Errors:       len(sum.Errors),
		},
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = h.now().UTC()
	}
	for _, t := range sum.Targets {
		entry.Targets = append(entry.Targets, t.Target.Label)
	}
	for _, e := range sum.Errors {
		entry.Errors = append(entry.Errors, e.Error())
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.EnsureDir(); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	if err := h.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("writing history entry: %w", err)
	}
	return entry, nil
}

// RecordEstimate stores an entry for a dry run.
func (h *History) RecordEstimate(est *engine.Estimate) (*Entry, error) {
	if est == nil {
		return nil, errors.New("cannot record a nil estimate")
	}

	entry := &Entry{
		ID:        uuid.NewString(),
		Timestamp: h.now().UTC(),
		Operation: OpDryRun,
		Summary: Summary{
			DeletedFiles: est.Files,
			DeletedBytes: est.Bytes,
			SkippedFiles: est.SkippedFiles,
			Errors:       len(est.Errors),
		},
	}
	for _, t := range est.Targets {
		entry.Targets = append(entry.Targets, t.Target.Label)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.EnsureDir(); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	if err := h.writeEntry(entry); err != nil {
		return nil, fmt.Errorf("writing history entry: %w", err)
	}
	return entry, nil
}

// writeEntry writes entry atomically through a temp file and rename.
func (h *History) writeEntry(entry *Entry) error {
	path := filepath.Join(h.dir, entryFilename(entry))

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// entryFilename sorts lexically by time.
func entryFilename(entry *Entry) string {
	return fmt.Sprintf("%s-%s.json", entry.Timestamp.Format("20060102T150405Z"), entry.ID)
}

// List returns entries newest first. If limit is 0 or negative all entries
// are returned. Unreadable files are skipped.
func (h *History) List(limit int) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.readAll()
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry whose ID equals or starts with id.
func (h *History) Get(id string) (*Entry, error) {
	if id == "" {
		return nil, errors.New("entry ID cannot be empty")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.readAll()
	if err != nil {
		return nil, err
	}

	var match *Entry
	for i := range entries {
		switch {
		case entries[i].ID == id:
			return &entries[i], nil
		case strings.HasPrefix(entries[i].ID, id):
			if match != nil {
				return nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
			}
			match = &entries[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}

// Cleanup removes entries older than retentionDays and returns how many
// were removed. A retention of 0 or less keeps everything.
func (h *History) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := h.now().AddDate(0, 0, -retentionDays)

	files, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading history directory: %w", err)
	}

	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		entry, err := h.readEntryFile(f.Name())
		if err != nil {
			continue
		}
		if entry.Timestamp.Before(cutoff) {
			if err := os.Remove(filepath.Join(h.dir, f.Name())); err != nil {
				continue
			}
			removed++
		}
	}
	return removed, nil
}

func (h *History) readAll() ([]Entry, error) {
	files, err := os.ReadDir(h.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("reading history directory: %w", err)
	}

	entries := []Entry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		entry, err := h.readEntryFile(f.Name())
		if err != nil {
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (h *History) readEntryFile(name string) (*Entry, error) {
	data, err := os.ReadFile(filepath.Join(h.dir, name))
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return &entry, nil
}

// Recorder collects deleted files from an engine callback.
type Recorder struct {
	mu    sync.Mutex
	files []FileRecord
	now   func() time.Time
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Add records one deletion. It has the signature engine.WithOnDeleted
// expects.
func (r *Recorder) Add(f engine.DeletedFile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, FileRecord{
		Path:      f.Path,
		Size:      f.Size,
		ModTime:   f.ModTime,
		Target:    f.Target.Label,
		DeletedAt: r.now().UTC(),
	})
}

// Files returns a copy of the recorded deletions.
func (r *Recorder) Files() []FileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.files)
}
