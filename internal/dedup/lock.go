package dedup

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

const lockFileSuffix = ".lock"

var (
	// ErrStoreInUse is returned when another process already holds the store
	// open for writing.
	ErrStoreInUse = errors.New("dedup store in use")

	// ErrReadOnly is returned by Save on a store opened with ReadOnly.
	ErrReadOnly = errors.New("dedup store opened read-only")
)

// StoreOption configures NewFileStore, OpenSQLiteStore and OpenStore.
type StoreOption func(*storeOptions)

type storeOptions struct {
	readOnly bool
}

// ReadOnly opens a store without taking its writer lock. Load works while
// another process owns the store; Save fails with ErrReadOnly.
func ReadOnly() StoreOption {
	return func(o *storeOptions) { o.readOnly = true }
}

func applyStoreOptions(opts []StoreOption) storeOptions {
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// lockStore takes the exclusive "<path>.lock" for the lifetime of a writable
// store. Each Index keeps its mapping in memory and rewrites the whole
// snapshot on commit, so two writers on one store would undo each other.
func lockStore(path string) (*flock.Flock, error) {
	fl := flock.New(path + lockFileSuffix)
	locked, err := fl.TryLock()
	if err != nil {
		fl.Close()
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !locked {
		fl.Close()
		return nil, fmt.Errorf("%w: %s is locked by another process", ErrStoreInUse, path)
	}
	return fl, nil
}

func unlockStore(fl *flock.Flock) error {
	if fl == nil {
		return nil
	}
	return fl.Close()
}
