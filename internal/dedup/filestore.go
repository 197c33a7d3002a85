package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/gofrs/flock"

	"video-dedup/internal/fingerprint"
	"video-dedup/internal/sender"
)

const snapshotVersion = 1

type snapshotFile struct {
	Version int                        `json:"version"`
	Entries map[string]sender.Identity `json:"entries"`
}

// FileStore persists the snapshot as one JSON document. Saves go through a
// temporary file in the same directory followed by a rename, so a reader
// never observes a half-written snapshot. A writable FileStore holds an
// OS-level lock on "<path>.lock" from open until Close.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore returns a store writing to path, creating its directory. It
// fails with ErrStoreInUse if another writer has the same path open, unless
// opened ReadOnly.
func NewFileStore(path string, opts ...StoreOption) (*FileStore, error) {
	o := applyStoreOptions(opts)
	if path == "" {
		return nil, errors.New("dedup: snapshot path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve snapshot path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	if o.readOnly {
		return &FileStore{path: abs}, nil
	}
	lock, err := lockStore(abs)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: abs, lock: lock}, nil
}

// Path returns the absolute snapshot path.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Store.Load.
func (s *FileStore) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var doc snapshotFile
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreCorrupt, s.path, err)
	}
	if doc.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: %s: unknown version %d", ErrStoreCorrupt, s.path, doc.Version)
	}

	snap := make(Snapshot, len(doc.Entries))
	for key, who := range doc.Entries {
		d, err := fingerprint.ParseDigest(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
		}
		snap[d] = who
	}
	return snap, nil
}

// Save implements Store.Save.
func (s *FileStore) Save(ctx context.Context, snap Snapshot) error {
	if s.lock == nil {
		return ErrReadOnly
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := snapshotFile{Version: snapshotVersion, Entries: make(map[string]sender.Identity, len(snap))}
	for d, who := range snap {
		doc.Entries[d.String()] = who
	}
	b, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	return writeFileAtomic(s.path, b)
}

// Close implements Store.Close and releases the writer lock.
func (s *FileStore) Close() error {
	return unlockStore(s.lock)
}

func writeFileAtomic(path string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	name := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(name)
	}

	if _, err := tmp.Write(b); err != nil {
		cleanup()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	if err := syncDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("sync snapshot dir: %w", err)
	}
	return nil
}

// syncDir flushes a directory entry change such as a rename. Windows cannot
// fsync a directory handle, so the error is dropped there.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil && runtime.GOOS != "windows" {
		return err
	}
	return nil
}
