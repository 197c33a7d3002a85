package dedup

import (
	"fmt"
	"strings"
)

// Backend names accepted by OpenStore.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// OpenStore returns the Store for backend. path is ignored for the memory
// backend.
func OpenStore(backend, path string, opts ...StoreOption) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendJSON:
		return NewFileStore(path, opts...)
	case BackendSQLite:
		return OpenSQLiteStore(path, opts...)
	case BackendMemory:
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
