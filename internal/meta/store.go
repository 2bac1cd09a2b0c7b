package meta

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

const (
	branchDir    = "branch"
	workspaceDir = "workspace"
)

// Store is the high-level, typed API over a SyncStore: the thing the
// rest of the engine actually depends on.
type Store struct {
	sync *SyncStore
}

// Open opens (creating if necessary) the dual-backed metadata store
// under gitDir's "gitbutler" directory (gitDir is typically
// "<repo>/.git").
func Open(gitDir string) (*Store, error) {
	root := filepath.Join(gitDir, "gitbutler")
	toml, err := NewTOMLBackend(filepath.Join(root, "meta"))
	if err != nil {
		return nil, fmt.Errorf("open toml backend: %w", err)
	}
	mirror, err := NewSQLiteBackend(filepath.Join(root, "meta.sqlite"))
	if err != nil {
		return nil, fmt.Errorf("open sqlite backend: %w", err)
	}
	return &Store{sync: NewSyncStore(toml, mirror)}, nil
}

// Close releases the store's underlying file and database handles.
func (s *Store) Close() error { return s.sync.Close() }

func branchKey(name string) string {
	return branchDir + "/" + strings.ReplaceAll(name, "/", "__")
}

func workspaceKey(id uuid.UUID) string {
	return workspaceDir + "/" + id.String()
}

// GetBranch returns the metadata recorded for a branch, or ErrNotExist.
func (s *Store) GetBranch(ctx context.Context, name string) (BranchRecord, error) {
	var rec BranchRecord
	e, err := s.sync.Get(ctx, branchKey(name))
	if err != nil {
		return rec, err
	}
	if _, decodeErr := toml.Decode(string(e.Data), &rec); decodeErr != nil {
		return s.healBranch(ctx, name, decodeErr)
	}
	return rec, nil
}

// healBranch recovers from a text file that failed to parse by falling
// back to the relational snapshot and re-emitting the text file from it
// (spec §4.1 "unparseable ... text file ⇒ overwrite it from the
// snapshot").
func (s *Store) healBranch(ctx context.Context, name string, cause error) (BranchRecord, error) {
	var rec BranchRecord
	healed, healErr := s.sync.HealFromMirror(ctx, branchKey(name))
	if healErr != nil {
		return rec, fmt.Errorf("decode branch record %s: %w", name, cause)
	}
	if _, err := toml.Decode(string(healed.Data), &rec); err != nil {
		return rec, fmt.Errorf("decode branch record %s (snapshot also invalid): %w", name, err)
	}
	return rec, nil
}

// SetBranch persists a branch's metadata.
func (s *Store) SetBranch(ctx context.Context, rec BranchRecord) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("encode branch record %s: %w", rec.Name, err)
	}
	return s.sync.Put(ctx, branchKey(rec.Name), buf.Bytes())
}

// DeleteBranch removes a branch's metadata.
func (s *Store) DeleteBranch(ctx context.Context, name string) error {
	return s.sync.Delete(ctx, branchKey(name))
}

// IterBranchesInStack returns every branch record belonging to the
// given stack, ordered by BranchRecord.Order.
func (s *Store) IterBranchesInStack(ctx context.Context, stackID uuid.UUID) ([]BranchRecord, error) {
	entries, err := s.sync.List(ctx, branchDir)
	if err != nil {
		return nil, err
	}

	var out []BranchRecord
	for _, e := range entries {
		var rec BranchRecord
		if _, err := toml.Decode(string(e.Data), &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Key, err)
		}
		if rec.StackID == stackID {
			out = append(out, rec)
		}
	}

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].Order > out[j].Order; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out, nil
}

// GetWorkspace returns the metadata recorded for a workspace, or
// ErrNotExist.
func (s *Store) GetWorkspace(ctx context.Context, id uuid.UUID) (WorkspaceRecord, error) {
	var rec WorkspaceRecord
	e, err := s.sync.Get(ctx, workspaceKey(id))
	if err != nil {
		return rec, err
	}
	if _, decodeErr := toml.Decode(string(e.Data), &rec); decodeErr != nil {
		healed, healErr := s.sync.HealFromMirror(ctx, workspaceKey(id))
		if healErr != nil {
			return rec, fmt.Errorf("decode workspace record %s: %w", id, decodeErr)
		}
		if _, err := toml.Decode(string(healed.Data), &rec); err != nil {
			return rec, fmt.Errorf("decode workspace record %s (snapshot also invalid): %w", id, err)
		}
	}
	return rec, nil
}

// SetWorkspace persists a workspace's metadata.
func (s *Store) SetWorkspace(ctx context.Context, rec WorkspaceRecord) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("encode workspace record %s: %w", rec.ID, err)
	}
	return s.sync.Put(ctx, workspaceKey(rec.ID), buf.Bytes())
}

// IterWorkspaces returns every known workspace record.
func (s *Store) IterWorkspaces(ctx context.Context) ([]WorkspaceRecord, error) {
	entries, err := s.sync.List(ctx, workspaceDir)
	if err != nil {
		return nil, err
	}

	out := make([]WorkspaceRecord, 0, len(entries))
	for _, e := range entries {
		var rec WorkspaceRecord
		if _, err := toml.Decode(string(e.Data), &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Key, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
