package dedup

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrStoreCorrupt is returned by Store.Load when a snapshot exists but
	// cannot be decoded.
	ErrStoreCorrupt = errors.New("dedup snapshot corrupt")

	// ErrPersist wraps any failure to write a snapshot during a commit or
	// reset. The in-memory state is left as it was before the call.
	ErrPersist = errors.New("dedup snapshot write failed")

	// ErrInvalidDigest is returned when committing an empty digest.
	ErrInvalidDigest = errors.New("invalid digest")
)

// Store persists whole snapshots of the dedup mapping.
// Implementations can be in-memory, file-based, or database-backed; the Index
// serializes all calls so implementations need not be concurrency-safe with
// respect to one Index.
type Store interface {
	// Load returns the last saved snapshot. A store that has never been
	// written returns an empty snapshot and no error. An undecodable snapshot
	// yields an error wrapping ErrStoreCorrupt.
	Load(ctx context.Context) (Snapshot, error)

	// Save atomically replaces the persisted snapshot with snap. A failed
	// Save must leave the previous snapshot readable. Save must not retain
	// snap after returning.
	Save(ctx context.Context, snap Snapshot) error

	// Close releases any resources held by the store.
	Close() error
}

// InMemoryStore keeps the snapshot in process memory. It is used in tests
// and for the "memory" backend.
type InMemoryStore struct {
	mu      sync.Mutex
	snap    Snapshot
	saveErr error
	saves   int
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{snap: Snapshot{}}
}

// Load implements Store.Load.
func (s *InMemoryStore) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone(), nil
}

// Save implements Store.Save.
func (s *InMemoryStore) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snap = snap.Clone()
	s.saves++
	return nil
}

// Close implements Store.Close.
func (s *InMemoryStore) Close() error { return nil }

// FailSaves makes every subsequent Save return err; nil restores normal saves.
func (s *InMemoryStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// Saves returns the number of successful saves.
func (s *InMemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
