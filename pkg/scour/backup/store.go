// Package backup records a description of every target a cleaning run is
// about to modify. Each description is stored in Badger under a fresh
// token that the run summary carries. Restoring is not supported; the
// records are an audit trail.
package backup

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/jamesainslie/scour/pkg/scour/engine"
	"github.com/jamesainslie/scour/pkg/scour/logging"
)

// ErrNotFound is returned when no record exists for a token.
var ErrNotFound = errors.New("backup record not found")

// Store wraps Badger for change records.
type Store struct {
	db    *badger.DB
	newID func() string
	log   *logging.Logger
}

var _ engine.Backup = (*Store)(nil)

// Open opens or creates a store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening backup store %s: %w", path, err)
	}
	return newStore(db), nil
}

// OpenInMemory opens a store that is discarded on Close.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory backup store: %w", err)
	}
	return newStore(db), nil
}

func newStore(db *badger.DB) *Store {
	return &Store{
		db:    db,
		newID: uuid.NewString,
		log:   logging.Get("backup"),
	}
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Prepare stores a description of change and returns its token.
func (s *Store) Prepare(ctx context.Context, change engine.Change) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rec := &Record{
		Version:   recordVersion,
		Token:     s.newID(),
		RunID:     change.RunID,
		Target:    change.Target,
		Policy:    change.Policy,
		CreatedAt: change.CreatedAt,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	value, err := rec.Encode()
	if err != nil {
		return "", fmt.Errorf("encoding backup record: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(makeKey(rec.Token), value)
	})
	if err != nil {
		return "", fmt.Errorf("writing backup record: %w", err)
	}

	s.log.Debug("change recorded", "token", rec.Token, "run", rec.RunID, "root", rec.Target.Root)
	return rec.Token, nil
}

// Get returns the record for token.
func (s *Store) Get(token string) (*Record, error) {
	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(rec.Decode)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns all records, oldest first.
func (s *Store) List() ([]Record, error) {
	var recs []Record
	prefix := []byte(keyPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			if err := it.Item().Value(rec.Decode); err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(recs, func(a, b Record) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return recs, nil
}

// ListRun returns the records of one run, oldest first.
func (s *Store) ListRun(runID string) ([]Record, error) {
	recs, err := s.List()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(recs, func(r Record) bool { return r.RunID != runID }), nil
}

// Prune deletes records created before cutoff and returns how many were
// removed.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	prefix := []byte(keyPrefix)
	removed := 0

	err := s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec Record
			if err := it.Item().Value(rec.Decode); err != nil {
				return err
			}
			if rec.CreatedAt.Before(cutoff) {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info("pruned backup records", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}
