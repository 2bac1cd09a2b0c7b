package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/engine"
	"go.gitbutler.dev/core/internal/git"
)

func TestMoveCommitRelocatesToTargetBranch(t *testing.T) {
	ctx := context.Background()
	f := newEmptyWorkspaceFixture(t)
	f.createStack(t, "feat-a")
	f.createStack(t, "feat-b")

	f.writeFile(t, "a.txt", "add A\n")
	created, err := f.eng.CreateCommit(ctx, engine.CreateCommitRequest{
		WorkspaceID: f.ws, Branch: "feat-a",
		Specs: []engine.DiffSpec{{Path: "a.txt"}}, Message: "add A",
	})
	require.NoError(t, err)

	out, err := f.eng.MoveCommit(ctx, engine.MoveCommitRequest{
		WorkspaceID:  f.ws,
		Commit:       created.NewCommit,
		TargetBranch: "feat-b",
	})
	require.NoError(t, err)

	tip, err := f.repo.PeelToCommit(ctx, "refs/heads/feat-b")
	require.NoError(t, err)
	assert.Equal(t, out.NewCommit, git.Hash(tip))

	info, err := f.repo.ReadCommit(ctx, string(tip))
	require.NoError(t, err)
	assert.Equal(t, "add A", info.Message.Subject)

	aTip, err := f.repo.PeelToCommit(ctx, "refs/heads/feat-a")
	require.NoError(t, err)
	mainTip, err := f.repo.PeelToCommit(ctx, "refs/heads/main")
	require.NoError(t, err)
	assert.Equal(t, mainTip, aTip)
}

func TestMoveCommitRejectsMergeCommit(t *testing.T) {
	ctx := context.Background()
	f := newEmptyWorkspaceFixture(t)
	f.createStack(t, "feat-a")
	f.createStack(t, "feat-b")

	mainTip, err := f.repo.PeelToCommit(ctx, "refs/heads/main")
	require.NoError(t, err)
	aTip, err := f.repo.PeelToCommit(ctx, "refs/heads/feat-a")
	require.NoError(t, err)
	tree, err := f.repo.PeelToTree(ctx, string(aTip))
	require.NoError(t, err)
	merge, err := f.repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree: tree, Message: "merge", Parents: []git.Hash{aTip, mainTip},
	})
	require.NoError(t, err)
	require.NoError(t, f.repo.SetRef(ctx, git.SetRefRequest{Ref: "refs/heads/feat-a", Hash: merge}))

	_, err = f.eng.MoveCommit(ctx, engine.MoveCommitRequest{
		WorkspaceID:  f.ws,
		Commit:       merge,
		TargetBranch: "feat-b",
	})
	assert.Error(t, err)
}

func TestUnapplyStackLeavesBranchIntact(t *testing.T) {
	ctx := context.Background()
	f := newEmptyWorkspaceFixture(t)
	f.createStack(t, "feat-a")
	stackB := f.createStack(t, "feat-b")

	f.writeFile(t, "b.txt", "add B\n")
	created, err := f.eng.CreateCommit(ctx, engine.CreateCommitRequest{
		WorkspaceID: f.ws, Branch: "feat-b",
		Specs: []engine.DiffSpec{{Path: "b.txt"}}, Message: "add B",
	})
	require.NoError(t, err)

	out, err := f.eng.UnapplyStack(ctx, engine.UnapplyStackRequest{WorkspaceID: f.ws, StackID: stackB})
	require.NoError(t, err)

	_, ok := out.Workspace.Graph.Lookup("refs/heads/feat-b")
	assert.False(t, ok, "unapplied stack's branch should not project into the workspace graph")

	tip, err := f.repo.PeelToCommit(ctx, "refs/heads/feat-b")
	require.NoError(t, err)
	assert.Equal(t, created.NewCommit, git.Hash(tip), "the branch ref itself must survive unapply untouched")
}

func TestUnapplyStackRejectsLastStack(t *testing.T) {
	ctx := context.Background()
	f := newEmptyWorkspaceFixture(t)
	stackA := f.createStack(t, "feat-a")

	_, err := f.eng.UnapplyStack(ctx, engine.UnapplyStackRequest{WorkspaceID: f.ws, StackID: stackA})
	assert.Error(t, err)
}

func TestCreateReferenceAboveAnchor(t *testing.T) {
	ctx := context.Background()
	f := newEmptyWorkspaceFixture(t)
	f.createStack(t, "feat-a")

	f.writeFile(t, "a.txt", "add A\n")
	created, err := f.eng.CreateCommit(ctx, engine.CreateCommitRequest{
		WorkspaceID: f.ws, Branch: "feat-a",
		Specs: []engine.DiffSpec{{Path: "a.txt"}}, Message: "add A",
	})
	require.NoError(t, err)

	out, err := f.eng.CreateReference(ctx, engine.CreateReferenceRequest{
		WorkspaceID: f.ws,
		Name:        "feat-a-marker",
		Anchor:      engine.Anchor{Commit: created.NewCommit, Above: true},
	})
	require.NoError(t, err)

	tip, err := f.repo.PeelToCommit(ctx, "refs/heads/feat-a-marker")
	require.NoError(t, err)
	assert.Equal(t, created.NewCommit, git.Hash(tip))

	_, ok := out.Workspace.Graph.Lookup("refs/heads/feat-a-marker")
	assert.True(t, ok)
}

func TestCreateReferenceBelowRootCommitRejected(t *testing.T) {
	ctx := context.Background()
	f := newEmptyWorkspaceFixture(t)
	f.createStack(t, "feat-a")

	mainTip, err := f.repo.PeelToCommit(ctx, "refs/heads/main")
	require.NoError(t, err)

	_, err = f.eng.CreateReference(ctx, engine.CreateReferenceRequest{
		WorkspaceID: f.ws,
		Name:        "too-low",
		Anchor:      engine.Anchor{Commit: git.Hash(mainTip), Above: false},
	})
	assert.Error(t, err)
}
