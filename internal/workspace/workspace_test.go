package workspace_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/git/gittest"
	"go.gitbutler.dev/core/internal/meta"
	"go.gitbutler.dev/core/internal/workspace"
)

func TestLoadManagedMergesStackTips(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)

	base := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n"}, "base")
	gittest.Branch(t, repo, "main", base)

	aTip := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n2\n"}, "a1")
	gittest.Branch(t, repo, "feature-a", aTip)

	bTip := gittest.Commit(t, repo, map[string]string{"b.txt": "1\n"}, "b1")
	gittest.Branch(t, repo, "feature-b", bTip)

	store, err := meta.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	stackA, stackB := uuid.New(), uuid.New()
	require.NoError(t, store.SetBranch(ctx, meta.BranchRecord{Name: "feature-a", StackID: stackA, Order: 0}))
	require.NoError(t, store.SetBranch(ctx, meta.BranchRecord{Name: "feature-b", StackID: stackB, Order: 0}))

	wsID := uuid.New()
	require.NoError(t, store.SetWorkspace(ctx, meta.WorkspaceRecord{
		ID:        wsID,
		TargetRef: "refs/heads/main",
		StackIDs:  []uuid.UUID{stackA, stackB},
	}))

	ws, err := workspace.LoadManaged(ctx, repo, store, wsID, workspace.Options{})
	require.NoError(t, err)

	assert.True(t, ws.Managed)
	require.Len(t, ws.Stacks, 2)

	entrypoint := ws.Graph.Segment(ws.EntrypointSegment)
	assert.True(t, entrypoint.IsWorkspaceSegment)
	assert.Len(t, entrypoint.MergeParents, 1)

	for _, stack := range ws.Stacks {
		tip, ok := stack.Tip()
		require.True(t, ok)
		assert.NotEqual(t, uuid.Nil.String(), stack.ID.String())
		assert.NotEmpty(t, tip.Name)
	}
}

func TestLoadAdHocSingleBranch(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)

	base := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n"}, "base")
	top := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n2\n"}, "top")
	gittest.Branch(t, repo, "main", base)
	gittest.Branch(t, repo, "feature", top)

	ws, err := workspace.LoadAdHoc(ctx, repo, "feature", "refs/heads/main", workspace.Options{})
	require.NoError(t, err)

	assert.False(t, ws.Managed)
	require.Len(t, ws.Stacks, 1)
	tip, ok := ws.Stacks[0].Tip()
	require.True(t, ok)
	assert.Equal(t, "feature", tip.Name)
	assert.Equal(t, workspace.CompletelyUnpushed, tip.PushStatus)
}
