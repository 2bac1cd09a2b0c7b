package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/git/gittest"
	"go.gitbutler.dev/core/internal/graph"
)

func TestProjectLinearHistory(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)

	gittest.Commit(t, repo, map[string]string{"a.txt": "1\n"}, "base")
	second := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n2\n"}, "second")
	gittest.Branch(t, repo, "feature", second)

	g, err := graph.Project(ctx, repo, graph.ProjectOptions{Entrypoint: "feature"})
	require.NoError(t, err)

	id, ok := g.Lookup("refs/heads/feature")
	require.True(t, ok)
	seg := g.Segment(id)
	assert.Len(t, seg.Commits, 2)
	assert.Equal(t, "second", seg.Commits[0].Message.Subject)
	assert.Equal(t, "base", seg.Commits[1].Message.Subject)
	assert.True(t, seg.IsEntrypoint)
}

func TestProjectStopsAtRefBoundary(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)

	base := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n"}, "base")
	top := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n2\n"}, "top")
	gittest.Branch(t, repo, "main", base)
	gittest.Branch(t, repo, "feature", top)

	g, err := graph.Project(ctx, repo, graph.ProjectOptions{Entrypoint: "feature"})
	require.NoError(t, err)

	featureID, ok := g.Lookup("refs/heads/feature")
	require.True(t, ok)
	featureSeg := g.Segment(featureID)
	require.Len(t, featureSeg.Commits, 1)
	assert.Equal(t, "top", featureSeg.Commits[0].Message.Subject)
	require.NotEqual(t, graph.NoID, featureSeg.BaseSegment)

	mainSeg := g.Segment(featureSeg.BaseSegment)
	assert.Equal(t, "refs/heads/main", mainSeg.RefName)
	require.Len(t, mainSeg.Commits, 1)
	assert.Equal(t, "base", mainSeg.Commits[0].Message.Subject)
}

func TestProjectClassifiesIntegratedCommits(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)

	gittest.Commit(t, repo, map[string]string{"a.txt": "1\n"}, "base")
	landed := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n2\n"}, "landed")
	gittest.Branch(t, repo, "main", landed)
	gittest.Branch(t, repo, "feature", landed)

	g, err := graph.Project(ctx, repo, graph.ProjectOptions{
		Entrypoint: "feature",
		Target:     "main",
	})
	require.NoError(t, err)

	id, ok := g.Lookup("refs/heads/feature")
	require.True(t, ok)
	seg := g.Segment(id)
	require.NotEmpty(t, seg.Commits)
	assert.Equal(t, graph.Integrated, seg.Commits[0].State.Kind)
}

// TestProjectClassifiesIntegratedByChangeID covers the rewritten-commit
// case (spec §8 scenario S5): a commit reaches the target under a
// different hash, but the same change-id, e.g. after a squash merge.
func TestProjectClassifiesIntegratedByChangeID(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)

	base := git.Hash(gittest.Commit(t, repo, map[string]string{"a.txt": "1\n"}, "base"))

	changeID := git.NewChangeID()
	aTreeSrc := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n2\n"}, "a-tree")
	aTree, err := repo.PeelToTree(ctx, aTreeSrc)
	require.NoError(t, err)

	a1, err := repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree: aTree, Parents: []git.Hash{base},
		Message: git.WithChangeIDTrailer("add A", changeID),
	})
	require.NoError(t, err)
	require.NoError(t, repo.SetRef(ctx, git.SetRefRequest{Ref: "refs/heads/feature", Hash: a1}))

	// Simulate a squash-merge landing the same change under a new hash,
	// with a different tree (as a real squash merge commonly produces).
	landedTreeSrc := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n2\n", "b.txt": "x\n"}, "landed-tree")
	landedTree, err := repo.PeelToTree(ctx, landedTreeSrc)
	require.NoError(t, err)
	landed, err := repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree: landedTree, Parents: []git.Hash{base},
		Message: git.WithChangeIDTrailer("add A (squashed)", changeID),
	})
	require.NoError(t, err)
	require.NoError(t, repo.SetRef(ctx, git.SetRefRequest{Ref: "refs/heads/main", Hash: landed}))

	g, err := graph.Project(ctx, repo, graph.ProjectOptions{
		Entrypoint: "feature",
		Target:     "main",
	})
	require.NoError(t, err)

	id, ok := g.Lookup("refs/heads/feature")
	require.True(t, ok)
	seg := g.Segment(id)
	require.NotEmpty(t, seg.Commits)
	assert.Equal(t, graph.Integrated, seg.Commits[0].State.Kind)
	assert.Equal(t, landed, seg.Commits[0].State.ContainerCommit)
}
