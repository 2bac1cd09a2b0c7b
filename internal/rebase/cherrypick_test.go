package rebase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/git/gittest"
	"go.gitbutler.dev/core/internal/rebase"
)

func TestCherryPickClean(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)

	gittest.Commit(t, repo, map[string]string{"base.txt": "a\n"}, "base")
	target := gittest.Commit(t, repo, map[string]string{"target.txt": "t\n"}, "target")
	gittest.Branch(t, repo, "main", target)

	onto := gittest.Commit(t, repo, map[string]string{"other.txt": "o\n"}, "onto")

	outcome, err := rebase.CherryPick(ctx, repo, git.Hash(target), []git.Hash{git.Hash(onto)})
	require.NoError(t, err)
	assert.Equal(t, rebase.OutcomeCommit, outcome.Kind)
	assert.NotEqual(t, git.Hash(target), outcome.Hash)
}

func TestCherryPickIdentity(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)

	first := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n"}, "first")
	second := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n2\n"}, "second")

	outcome, err := rebase.CherryPick(ctx, repo, git.Hash(second), []git.Hash{git.Hash(first)})
	require.NoError(t, err)
	assert.Equal(t, rebase.OutcomeIdentity, outcome.Kind)
	assert.Equal(t, git.Hash(second), outcome.Hash)
}

func TestCherryPickConflict(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)

	gittest.Commit(t, repo, map[string]string{"a.txt": "base\n"}, "base")
	target := gittest.Commit(t, repo, map[string]string{"a.txt": "target change\n"}, "target")
	onto := gittest.Commit(t, repo, map[string]string{"a.txt": "onto change\n"}, "onto")

	outcome, err := rebase.CherryPick(ctx, repo, git.Hash(target), []git.Hash{git.Hash(onto)})
	require.NoError(t, err)
	assert.Equal(t, rebase.OutcomeConflictedCommit, outcome.Kind)

	entries, err := repo.ListTree(ctx, mustTree(t, ctx, repo, outcome.Hash), git.ListTreeOptions{})
	require.NoError(t, err)

	var names []string
	for e, err := range entries {
		require.NoError(t, err)
		names = append(names, e.Name)
	}
	assert.Contains(t, names, rebase.AutoResolutionDir)
	assert.Contains(t, names, rebase.ConflictFilesPath)
	assert.Contains(t, names, rebase.ReadmePath)
	assert.Contains(t, names, rebase.ConflictSideDir(0))
	assert.Contains(t, names, rebase.ConflictSideDir(1))
}

// TestCherryPickConflictedCommitCarriesMarker checks that a conflicted
// outcome's commit header carries the conflicted trailer alongside its
// change-id, per spec §4.4 "Commit headers carry a conflicted marker
// and the change id".
func TestCherryPickConflictedCommitCarriesMarker(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)

	gittest.Commit(t, repo, map[string]string{"a.txt": "base\n"}, "base")
	target := gittest.Commit(t, repo, map[string]string{"a.txt": "target change\n"}, "target")
	onto := gittest.Commit(t, repo, map[string]string{"a.txt": "onto change\n"}, "onto")

	outcome, err := rebase.CherryPick(ctx, repo, git.Hash(target), []git.Hash{git.Hash(onto)})
	require.NoError(t, err)
	require.Equal(t, rebase.OutcomeConflictedCommit, outcome.Kind)

	info, err := repo.ReadCommit(ctx, string(outcome.Hash))
	require.NoError(t, err)
	assert.True(t, git.IsConflicted(info.Message.String()))
}

// TestCherryPickThroughConflictedCommitUsesAutoResolution covers the
// chained case spec §4.4 requires: cherry-picking a further commit onto
// an already-conflicted one must use that commit's .auto-resolution
// subtree as the merge input, not its reserved tree layout, so the
// result doesn't carry the .conflict-*/.auto-resolution entries forward
// as ordinary tree content.
func TestCherryPickThroughConflictedCommitUsesAutoResolution(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)

	gittest.Commit(t, repo, map[string]string{"a.txt": "base\n"}, "base")
	target := gittest.Commit(t, repo, map[string]string{"a.txt": "target change\n"}, "target")
	onto := gittest.Commit(t, repo, map[string]string{"a.txt": "onto change\n"}, "onto")

	conflicted, err := rebase.CherryPick(ctx, repo, git.Hash(target), []git.Hash{git.Hash(onto)})
	require.NoError(t, err)
	require.Equal(t, rebase.OutcomeConflictedCommit, conflicted.Kind)

	next := gittest.Commit(t, repo, map[string]string{"b.txt": "next\n"}, "next")

	outcome, err := rebase.CherryPick(ctx, repo, git.Hash(next), []git.Hash{conflicted.Hash})
	require.NoError(t, err)

	entries, err := repo.ListTree(ctx, mustTree(t, ctx, repo, outcome.Hash), git.ListTreeOptions{})
	require.NoError(t, err)
	for e, err := range entries {
		require.NoError(t, err)
		assert.NotEqual(t, rebase.AutoResolutionDir, e.Name)
		assert.NotEqual(t, rebase.ConflictSideDir(0), e.Name)
		assert.NotEqual(t, rebase.ConflictSideDir(1), e.Name)
		assert.NotEqual(t, rebase.ConflictFilesPath, e.Name)
	}
}

func mustTree(t *testing.T, ctx context.Context, repo *git.Repository, commit git.Hash) git.Hash {
	t.Helper()
	tree, err := repo.PeelToTree(ctx, string(commit))
	require.NoError(t, err)
	return tree
}
