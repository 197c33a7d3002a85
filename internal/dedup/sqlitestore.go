package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"video-dedup/internal/fingerprint"
	"video-dedup/internal/sender"
)

// SQLiteStore persists the snapshot in a SQLite table. Every Save rewrites
// the table inside a single transaction. Like FileStore, a writable store
// holds "<path>.lock" until Close.
type SQLiteStore struct {
	db   *sql.DB
	lock *flock.Flock
}

// OpenSQLiteStore opens (or creates) the database at path. It fails with
// ErrStoreInUse if another writer has the same database open, unless opened
// ReadOnly.
func OpenSQLiteStore(path string, opts ...StoreOption) (*SQLiteStore, error) {
	var lock *flock.Flock
	if o := applyStoreOptions(opts); !o.readOnly {
		var err error
		if lock, err = lockStore(path); err != nil {
			return nil, err
		}
	}
	store, err := openSQLite(path)
	if err != nil {
		unlockStore(lock)
		return nil, err
	}
	store.lock = lock
	return store, nil
}

func openSQLite(path string) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS dedup_entries (
  digest       TEXT PRIMARY KEY,
  sender_id    TEXT NOT NULL,
  display_name TEXT NOT NULL DEFAULT '',
  handle       TEXT NOT NULL DEFAULT ''
);`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Load implements Store.Load.
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT digest, sender_id, display_name, handle FROM dedup_entries`)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	snap := Snapshot{}
	for rows.Next() {
		var key string
		var who sender.Identity
		if err := rows.Scan(&key, &who.ID, &who.DisplayName, &who.Handle); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
		}
		d, err := fingerprint.ParseDigest(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreCorrupt, err)
		}
		snap[d] = who
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return snap, nil
}

// Save implements Store.Save.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) (err error) {
	if s.lock == nil {
		return ErrReadOnly
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM dedup_entries`); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO dedup_entries(digest, sender_id, display_name, handle) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for d, who := range snap {
		if _, err = stmt.ExecContext(ctx, d.String(), who.ID, who.DisplayName, who.Handle); err != nil {
			return fmt.Errorf("insert %s: %w", d, err)
		}
	}
	return tx.Commit()
}

// Close implements Store.Close.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return errors.Join(s.db.Close(), unlockStore(s.lock))
}
