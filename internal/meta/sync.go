package meta

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

func hashOf(data []byte) uint64 { return xxhash.Sum64(data) }

// SyncStore composes a TOMLBackend (source of truth) with a
// SQLiteBackend (query mirror), keeping them consistent with the sync
// protocol described in spec §4.1:
//
//  1. Write: upsert the mirror first, then persist to TOML, then record
//     the file's resulting mtime and hash in the mirror.
//  2. Read: consult the mirror and also read and hash the file; if the
//     mirror's hash matches the file's and its mtime is not older,
//     return the mirror's copy. Otherwise refresh the mirror from the
//     file and return the fresh copy.
//  3. List: always re-derived from the TOML tree (the directory listing
//     is itself the authoritative enumeration), refreshing any stale
//     mirror rows found along the way.
//
// This mirrors the teacher's storage.SyncBackend composition pattern
// (a Backend that wraps another Backend and adds a cross-cutting
// concern) but targets a two-medium sync instead of mutex locking.
type SyncStore struct {
	toml   *TOMLBackend
	mirror *SQLiteBackend
}

// NewSyncStore composes the two backends into one synchronized view.
func NewSyncStore(toml *TOMLBackend, mirror *SQLiteBackend) *SyncStore {
	return &SyncStore{toml: toml, mirror: mirror}
}

func (s *SyncStore) Get(ctx context.Context, key string) (Entry, error) {
	mirrored, mirrErr := s.mirror.Get(ctx, key)
	fileEntry, fileErr := s.toml.Get(ctx, key)

	switch {
	case fileErr == ErrNotExist:
		if mirrErr == nil {
			// Mirror has a row the file no longer backs; the file is
			// authoritative, so drop the stale mirror row.
			_ = s.mirror.Delete(ctx, key)
		}
		return Entry{}, ErrNotExist
	case fileErr != nil:
		return Entry{}, fmt.Errorf("read source of truth: %w", fileErr)
	}

	if mirrErr == nil && mirrored.Hash == fileEntry.Hash && !mirrored.ModTime.Before(fileEntry.ModTime) {
		return mirrored, nil
	}

	// Mirror missing or stale: refresh it from the file and serve the
	// fresh copy.
	if err := s.mirror.putEntry(ctx, fileEntry); err != nil {
		return Entry{}, fmt.Errorf("refresh mirror: %w", err)
	}
	return fileEntry, nil
}

// Put writes to the snapshot first, then re-emits the text file and
// records the new last-seen (mtime, hash) pair in the snapshot (spec
// §4.1 step "Writes always go through the snapshot first, then re-emit
// the text file and record new last-seen").
func (s *SyncStore) Put(ctx context.Context, key string, data []byte) error {
	if err := s.mirror.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := s.toml.Put(ctx, key, data); err != nil {
		return fmt.Errorf("re-emit source of truth: %w", err)
	}
	fileEntry, err := s.toml.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("reread after write: %w", err)
	}
	if err := s.mirror.putEntry(ctx, fileEntry); err != nil {
		return fmt.Errorf("record last-seen mtime/hash: %w", err)
	}
	return nil
}

// HealFromMirror recovers key from the relational snapshot when the
// text file is present but fails to parse, and rewrites the text file
// from the snapshot's copy (spec §4.1 step "If the text file is newer
// but invalid: overwrite it from the snapshot ... return snapshot
// data").
func (s *SyncStore) HealFromMirror(ctx context.Context, key string) (Entry, error) {
	mirrored, err := s.mirror.Get(ctx, key)
	if err != nil {
		return Entry{}, err
	}
	if err := s.toml.Put(ctx, key, mirrored.Data); err != nil {
		return Entry{}, fmt.Errorf("rewrite text file from snapshot: %w", err)
	}
	return mirrored, nil
}

func (s *SyncStore) Delete(ctx context.Context, key string) error {
	if err := s.toml.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete source of truth: %w", err)
	}
	if err := s.mirror.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete mirror: %w", err)
	}
	return nil
}

func (s *SyncStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	entries, err := s.toml.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list source of truth: %w", err)
	}
	for _, e := range entries {
		mirrored, mirrErr := s.mirror.Get(ctx, e.Key)
		if mirrErr == nil && mirrored.Hash == e.Hash && !mirrored.ModTime.Before(e.ModTime) {
			continue
		}
		if err := s.mirror.putEntry(ctx, e); err != nil {
			return nil, fmt.Errorf("refresh mirror for %s: %w", e.Key, err)
		}
	}
	return entries, nil
}

func (s *SyncStore) Close() error {
	tErr := s.toml.Close()
	mErr := s.mirror.Close()
	if tErr != nil {
		return tErr
	}
	return mErr
}
