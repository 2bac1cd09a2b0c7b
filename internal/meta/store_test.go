package meta_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/meta"
)

func TestStoreBranchRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := meta.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	stackID := uuid.New()
	rec := meta.BranchRecord{Name: "feature/x", StackID: stackID, Order: 1}
	require.NoError(t, store.SetBranch(ctx, rec))

	got, err := store.GetBranch(ctx, "feature/x")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// A second read should be served from the sqlite mirror, not the
	// TOML file, but must still observe the same value.
	got2, err := store.GetBranch(ctx, "feature/x")
	require.NoError(t, err)
	assert.Equal(t, got, got2)

	_, err = store.GetBranch(ctx, "does-not-exist")
	assert.ErrorIs(t, err, meta.ErrNotExist)
}

func TestStoreIterBranchesInStackOrdered(t *testing.T) {
	ctx := context.Background()
	store, err := meta.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	stackID := uuid.New()
	require.NoError(t, store.SetBranch(ctx, meta.BranchRecord{Name: "b", StackID: stackID, Order: 2}))
	require.NoError(t, store.SetBranch(ctx, meta.BranchRecord{Name: "a", StackID: stackID, Order: 1}))
	require.NoError(t, store.SetBranch(ctx, meta.BranchRecord{Name: "other", StackID: uuid.New(), Order: 0}))

	branches, err := store.IterBranchesInStack(ctx, stackID)
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "a", branches[0].Name)
	assert.Equal(t, "b", branches[1].Name)
}

func TestStoreWorkspaceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := meta.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	id := uuid.New()
	rec := meta.WorkspaceRecord{ID: id, TargetRef: "refs/heads/main", StackIDs: []uuid.UUID{uuid.New()}}
	require.NoError(t, store.SetWorkspace(ctx, rec))

	got, err := store.GetWorkspace(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	all, err := store.IterWorkspaces(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
