package filesystem

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"targetsync/internal/catalog"
)

// ErrNotFound is returned by Store.Delete for an unknown relationship id.
var ErrNotFound = errors.New("target not found")

// Store edits the targets file for the targets CLI. Stored entries carry no
// explicit version stamp, so the content stamp changes with every edit.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// All returns the targets in file order. A missing file holds no targets.
func (s *Store) All(context.Context) ([]catalog.TargetDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() ([]catalog.TargetDescriptor, error) {
	targets, err := ReadFile(s.path)
	if errors.Is(err, catalog.ErrSourceUnavailable) {
		return nil, nil
	}
	return targets, err
}

// Upsert replaces the entry with the same relationship id, or appends one.
// The returned descriptor carries the derived stamp.
func (s *Store) Upsert(_ context.Context, t catalog.TargetDescriptor) (catalog.TargetDescriptor, error) {
	if t.RelationshipID == "" {
		return t, errors.New("relationship id is required")
	}
	if !t.PermittedSynchronization.Valid() {
		return t, fmt.Errorf("unknown permitted synchronization %q", t.PermittedSynchronization)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	targets, err := s.read()
	if err != nil {
		return t, err
	}

	stored := t.Clone()
	stored.VersionStamp = ""
	replaced := false
	for i := range targets {
		if targets[i].RelationshipID == t.RelationshipID {
			targets[i] = stored
			replaced = true
			break
		}
	}
	if !replaced {
		targets = append(targets, stored)
	}

	if t.VersionStamp, err = catalog.ContentStamp(stored); err != nil {
		return t, err
	}
	return t, s.write(targets)
}

// Delete removes the entry with the given relationship id.
func (s *Store) Delete(_ context.Context, relationshipID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets, err := s.read()
	if err != nil {
		return err
	}
	kept := make([]catalog.TargetDescriptor, 0, len(targets))
	for _, d := range targets {
		if d.RelationshipID != relationshipID {
			kept = append(kept, d)
		}
	}
	if len(kept) == len(targets) {
		return fmt.Errorf("target %q: %w", relationshipID, ErrNotFound)
	}
	return s.write(kept)
}

// write drops stamps that Parse would derive anyway, keeping explicit ones.
func (s *Store) write(targets []catalog.TargetDescriptor) error {
	for i := range targets {
		if targets[i].VersionStamp == "" {
			continue
		}
		if stamp, err := catalog.ContentStamp(targets[i]); err == nil && stamp == targets[i].VersionStamp {
			targets[i].VersionStamp = ""
		}
	}
	return WriteFile(s.path, targets)
}
