package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"video-dedup/internal/fingerprint"
	"video-dedup/internal/sender"
)

// Index is the concurrency-safe digest -> first submitter mapping. It keeps
// the mapping in memory and writes the whole of it through to a Store on
// every change. CommitIfAbsent is the single place where a race between two
// submissions of the same content is decided.
type Index struct {
	mu      sync.Mutex
	store   Store
	entries Snapshot
	log     *slog.Logger
}

// NewIndex returns an empty index backed by store. Call Load to pick up a
// previously persisted snapshot.
func NewIndex(store Store, log *slog.Logger) *Index {
	if log == nil {
		log = slog.Default()
	}
	return &Index{store: store, entries: Snapshot{}, log: log}
}

// Load replaces the in-memory mapping with the persisted snapshot and returns
// the number of entries loaded. A missing, unreadable or corrupt snapshot is
// logged and leaves the index empty; it never fails startup.
func (x *Index) Load(ctx context.Context) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	snap, err := x.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrStoreCorrupt) {
			x.log.Error("dedup snapshot corrupt, starting empty", slog.String("error", err.Error()))
		} else {
			x.log.Error("dedup snapshot unreadable, starting empty", slog.String("error", err.Error()))
		}
		x.entries = Snapshot{}
		return 0
	}

	x.entries = snap
	x.log.Info("dedup snapshot loaded", slog.Int("entries", len(snap)))
	return len(snap)
}

// Lookup returns the entry for d, if any.
func (x *Index) Lookup(d fingerprint.Digest) (Entry, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	who, ok := x.entries[d]
	if !ok {
		return Entry{}, false
	}
	return Entry{Digest: d, FirstSubmitter: who}, true
}

// CommitIfAbsent records submitter as the first submitter of d unless d is
// already known. A new entry is persisted before Committed is returned; if
// persisting fails the entry is dropped again and an error wrapping
// ErrPersist is returned.
func (x *Index) CommitIfAbsent(ctx context.Context, d fingerprint.Digest, submitter sender.Identity) (Commit, error) {
	if d == "" {
		return Commit{}, ErrInvalidDigest
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if who, ok := x.entries[d]; ok {
		return Commit{Outcome: AlreadyPresent, Entry: Entry{Digest: d, FirstSubmitter: who}}, nil
	}

	x.entries[d] = submitter
	if err := x.store.Save(ctx, x.entries); err != nil {
		delete(x.entries, d)
		return Commit{}, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	return Commit{Outcome: Committed, Entry: Entry{Digest: d, FirstSubmitter: submitter}}, nil
}

// Reset persists an empty snapshot and then clears the mapping. If the write
// fails, the mapping is kept and an error wrapping ErrPersist is returned.
func (x *Index) Reset(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.store.Save(ctx, Snapshot{}); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	x.entries = Snapshot{}
	x.log.Info("dedup index reset")
	return nil
}

// Len returns the number of known digests.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.entries)
}
