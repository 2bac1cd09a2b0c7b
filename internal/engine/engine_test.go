package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/assign"
	"go.gitbutler.dev/core/internal/engine"
	"go.gitbutler.dev/core/internal/forge"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/git/gittest"
	"go.gitbutler.dev/core/internal/graph"
	"go.gitbutler.dev/core/internal/meta"
	"go.gitbutler.dev/core/internal/workspace"
)

// fixture builds a repository with a one-branch stack ("feature",
// stacked one commit above "main") registered as a managed workspace,
// and an Engine bound to it.
type fixture struct {
	repo    *git.Repository
	eng     *engine.Engine
	store   *meta.Store
	ws      uuid.UUID
	stack   uuid.UUID
	base    git.Hash
	featTip git.Hash
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	repo := gittest.NewRepo(t)
	base := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n"}, "base")
	featTip := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n2\n"}, "feat1")
	gittest.Branch(t, repo, "main", base)
	gittest.Branch(t, repo, "feature", featTip)

	store, err := meta.Open(repo.GitDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	stackID := uuid.New()
	require.NoError(t, store.SetBranch(ctx, meta.BranchRecord{Name: "feature", StackID: stackID, Order: 0}))

	wsID := uuid.New()
	require.NoError(t, store.SetWorkspace(ctx, meta.WorkspaceRecord{
		ID:        wsID,
		TargetRef: "refs/heads/main",
		StackIDs:  []uuid.UUID{stackID},
	}))

	assigns := assign.Open(repo.GitDir())
	eng := engine.New(repo, store, assigns, forge.NewMemStore(), engine.Options{})

	return &fixture{
		repo: repo, eng: eng, store: store,
		ws: wsID, stack: stackID,
		base: git.Hash(base), featTip: git.Hash(featTip),
	}
}

func (f *fixture) writeFile(t *testing.T, path, content string) {
	t.Helper()
	full := filepath.Join(f.repo.RootDir(), path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestCreateCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.writeFile(t, "a.txt", "1\n2\n3\n")

	out, err := f.eng.CreateCommit(ctx, engine.CreateCommitRequest{
		WorkspaceID: f.ws,
		Branch:      "feature",
		Specs:       []engine.DiffSpec{{Path: "a.txt"}},
		Message:     "add line 3",
	})
	require.NoError(t, err)
	assert.Empty(t, out.Rejections)
	assert.NotEqual(t, git.ZeroHash, out.NewCommit)

	content, err := f.repo.ReadObjectString(ctx, git.BlobType,
		mustHashAt(t, ctx, f.repo, out.NewCommit, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", content)

	seg, ok := mustFindBranch(t, f)
	require.True(t, ok)
	assert.Equal(t, out.NewCommit, seg.TipHash())
}

func TestAmend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.writeFile(t, "a.txt", "1\n2\namended\n")

	out, err := f.eng.Amend(ctx, engine.AmendRequest{
		WorkspaceID: f.ws,
		Commit:      f.featTip,
		Specs:       []engine.DiffSpec{{Path: "a.txt"}},
	})
	require.NoError(t, err)
	assert.Empty(t, out.Rejections)

	info, err := f.repo.ReadCommit(ctx, string(out.NewCommit))
	require.NoError(t, err)
	assert.Equal(t, "feat1", info.Message.String())

	content, err := f.repo.ReadObjectString(ctx, git.BlobType,
		mustHashAt(t, ctx, f.repo, out.NewCommit, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1\n2\namended\n", content)
}

func TestReword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.eng.Reword(ctx, engine.RewordRequest{
		WorkspaceID: f.ws,
		Commit:      f.featTip,
		Message:     "a better message",
	})
	require.NoError(t, err)

	info, err := f.repo.ReadCommit(ctx, string(out.NewCommit))
	require.NoError(t, err)
	assert.Contains(t, info.Message.String(), "a better message")

	tree, err := f.repo.PeelToTree(ctx, string(out.NewCommit))
	require.NoError(t, err)
	origTree, err := f.repo.PeelToTree(ctx, string(f.featTip))
	require.NoError(t, err)
	assert.Equal(t, origTree, tree)
}

func TestUndoCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.eng.UndoCommit(ctx, engine.UndoCommitRequest{
		WorkspaceID: f.ws,
		Branch:      "feature",
	})
	require.NoError(t, err)
	assert.Contains(t, out.RestoredPaths, "a.txt")

	content, err := os.ReadFile(filepath.Join(f.repo.RootDir(), "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n", string(content))

	newTip, err := f.repo.PeelToCommit(ctx, "refs/heads/feature")
	require.NoError(t, err)
	assert.Equal(t, f.base, newTip)
}

// newTwoCommitFixture builds a stack with two commits on "feature",
// using gittest's linear-HEAD-then-rewind trick: all commits are made
// before any branch is pointed backwards, since gittest.Commit always
// parents off whatever "main" (the checked-out branch) currently is.
func newTwoCommitFixture(t *testing.T) (*fixture, git.Hash) {
	t.Helper()
	ctx := context.Background()

	repo := gittest.NewRepo(t)
	base := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n"}, "base")
	feat1 := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n2\n"}, "feat1")
	feat2 := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n2\n3\n"}, "feat2")
	gittest.Branch(t, repo, "main", base)
	gittest.Branch(t, repo, "feature", feat2)

	store, err := meta.Open(repo.GitDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	stackID := uuid.New()
	require.NoError(t, store.SetBranch(ctx, meta.BranchRecord{Name: "feature", StackID: stackID, Order: 0}))

	wsID := uuid.New()
	require.NoError(t, store.SetWorkspace(ctx, meta.WorkspaceRecord{
		ID:        wsID,
		TargetRef: "refs/heads/main",
		StackIDs:  []uuid.UUID{stackID},
	}))

	assigns := assign.Open(repo.GitDir())
	eng := engine.New(repo, store, assigns, forge.NewMemStore(), engine.Options{})

	f := &fixture{
		repo: repo, eng: eng, store: store,
		ws: wsID, stack: stackID,
		base: git.Hash(base), featTip: git.Hash(feat1),
	}
	return f, git.Hash(feat2)
}

func TestSquashIntoTwoCommitStack(t *testing.T) {
	ctx := context.Background()
	f, feat2 := newTwoCommitFixture(t)

	out, err := f.eng.Squash(ctx, engine.SquashRequest{
		WorkspaceID: f.ws,
		Sources:     []git.Hash{f.featTip},
		Destination: feat2,
		Message:     "combined",
	})
	require.NoError(t, err)

	info, err := f.repo.ReadCommit(ctx, string(out.NewCommit))
	require.NoError(t, err)
	assert.Len(t, info.Parents, 1)
	assert.Equal(t, f.base, info.Parents[0])
	assert.Contains(t, info.Message.String(), "combined")

	content, err := f.repo.ReadObjectString(ctx, git.BlobType,
		mustHashAt(t, ctx, f.repo, out.NewCommit, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1\n2\n3\n", content)
}

func TestReorderSwapsTwoCommits(t *testing.T) {
	ctx := context.Background()
	f, feat2 := newTwoCommitFixture(t)

	out, err := f.eng.Reorder(ctx, engine.ReorderRequest{
		WorkspaceID: f.ws,
		Branch:      "feature",
		NewOrder:    []git.Hash{f.featTip, feat2}, // tip-first: feat1 now on top
	})
	require.NoError(t, err)
	assert.NotEqual(t, git.ZeroHash, out.NewTip)

	info, err := f.repo.ReadCommit(ctx, string(out.NewTip))
	require.NoError(t, err)
	assert.Contains(t, info.Message.String(), "feat1")

	parentInfo, err := f.repo.ReadCommit(ctx, string(info.Parents[0]))
	require.NoError(t, err)
	assert.Contains(t, parentInfo.Message.String(), "feat2")
	assert.Equal(t, f.base, parentInfo.Parents[0])
}

func mustHashAt(t *testing.T, ctx context.Context, repo *git.Repository, commit git.Hash, path string) git.Hash {
	t.Helper()
	h, err := repo.HashAt(ctx, string(commit), path)
	require.NoError(t, err)
	return h
}

func mustFindBranch(t *testing.T, f *fixture) (*graph.Segment, bool) {
	t.Helper()
	ctx := context.Background()
	ws, err := workspace.LoadManaged(ctx, f.repo, f.store, f.ws, workspace.Options{})
	require.NoError(t, err)
	for _, stack := range ws.Stacks {
		for _, b := range stack.Branches {
			if b.Name == "feature" && b.SegmentID != graph.NoID {
				return ws.Graph.Segment(b.SegmentID), true
			}
		}
	}
	return nil, false
}
