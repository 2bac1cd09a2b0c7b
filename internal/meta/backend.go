package meta

import (
	"context"
	"errors"
	"time"
)

// ErrNotExist indicates a key that was expected to exist does not.
var ErrNotExist = errors.New("meta: does not exist in store")

// Entry is a single stored record plus the bookkeeping fields the sync
// protocol compares to decide whether a mirror is stale.
type Entry struct {
	Key     string
	Data    []byte // TOML-encoded record body
	ModTime time.Time
	Hash    uint64 // xxhash of Data
}

// Backend is the primitive storage operations one physical medium
// (a directory of TOML files, a SQLite table) must provide. Grounded on
// the capability-interface shape of the teacher's storage.Backend
// (Get/Update/Keys), retargeted at TOML+SQLite dual-backing instead of
// the teacher's single Git-ref-backed store.
type Backend interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]Entry, error)
	Close() error
}
