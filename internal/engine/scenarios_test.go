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
)

// emptyWorkspaceFixture builds a repository with nothing applied yet: a
// trunk "main" at M1, and a metadata store/engine bound to a managed
// workspace targeting it (spec §8 scenario S1's starting state).
type emptyWorkspaceFixture struct {
	repo  *git.Repository
	eng   *engine.Engine
	store *meta.Store
	ws    uuid.UUID
}

func newEmptyWorkspaceFixture(t *testing.T) *emptyWorkspaceFixture {
	t.Helper()
	ctx := context.Background()

	repo := gittest.NewRepo(t)
	gittest.Commit(t, repo, map[string]string{"README.md": "hello\n"}, "M1")

	store, err := meta.Open(repo.GitDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	wsID := uuid.New()
	require.NoError(t, store.SetWorkspace(ctx, meta.WorkspaceRecord{
		ID:        wsID,
		TargetRef: "refs/heads/main",
	}))

	assigns := assign.Open(repo.GitDir())
	eng := engine.New(repo, store, assigns, forge.NewMemStore(), engine.Options{})

	return &emptyWorkspaceFixture{repo: repo, eng: eng, store: store, ws: wsID}
}

// createStack registers a new branch as its own single-branch stack and
// applies it to the workspace, returning the stack id.
func (f *emptyWorkspaceFixture) createStack(t *testing.T, branch string) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	main, err := f.repo.PeelToCommit(ctx, "refs/heads/main")
	require.NoError(t, err)
	require.NoError(t, f.repo.SetRef(ctx, git.SetRefRequest{Ref: "refs/heads/" + branch, Hash: main}))

	stackID := uuid.New()
	require.NoError(t, f.store.SetBranch(ctx, meta.BranchRecord{Name: branch, StackID: stackID, Order: 0}))

	_, err = f.eng.ApplyStack(ctx, engine.ApplyStackRequest{WorkspaceID: f.ws, StackID: stackID})
	require.NoError(t, err)
	return stackID
}

func (f *emptyWorkspaceFixture) writeFile(t *testing.T, path, content string) {
	t.Helper()
	full := filepath.Join(f.repo.RootDir(), path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

// TestScenarioCleanStackedCommit is spec §8 scenario S1.
func TestScenarioCleanStackedCommit(t *testing.T) {
	ctx := context.Background()
	f := newEmptyWorkspaceFixture(t)
	f.createStack(t, "feat-a")

	f.writeFile(t, "a.txt", "add A\n")
	out, err := f.eng.CreateCommit(ctx, engine.CreateCommitRequest{
		WorkspaceID: f.ws,
		Branch:      "feat-a",
		Specs:       []engine.DiffSpec{{Path: "a.txt"}},
		Message:     "add A",
	})
	require.NoError(t, err)
	assert.Empty(t, out.Rejections)

	tip, err := f.repo.PeelToCommit(ctx, "refs/heads/feat-a")
	require.NoError(t, err)
	assert.Equal(t, out.NewCommit, git.Hash(tip))

	seg := out.Workspace.Graph.Segment(out.Workspace.EntrypointSegment)
	require.NotEmpty(t, seg.Commits)
	assert.Equal(t, graph.LocalOnly, seg.Commits[0].State.Kind)
}

// TestScenarioTwoStacksCleanMerge is spec §8 scenario S2.
func TestScenarioTwoStacksCleanMerge(t *testing.T) {
	ctx := context.Background()
	f := newEmptyWorkspaceFixture(t)
	f.createStack(t, "feat-a")
	f.createStack(t, "feat-b")

	f.writeFile(t, "a.txt", "add A\n")
	_, err := f.eng.CreateCommit(ctx, engine.CreateCommitRequest{
		WorkspaceID: f.ws, Branch: "feat-a",
		Specs: []engine.DiffSpec{{Path: "a.txt"}}, Message: "add A",
	})
	require.NoError(t, err)

	f.writeFile(t, "b.txt", "add B\n")
	out, err := f.eng.CreateCommit(ctx, engine.CreateCommitRequest{
		WorkspaceID: f.ws, Branch: "feat-b",
		Specs: []engine.DiffSpec{{Path: "b.txt"}}, Message: "add B",
	})
	require.NoError(t, err)
	assert.Empty(t, out.Rejections)

	entrypointTip := out.Workspace.Graph.Segment(out.Workspace.EntrypointSegment).TipHash()
	entrypointTree, err := f.repo.PeelToTree(ctx, string(entrypointTip))
	require.NoError(t, err)

	aContent, err := f.repo.ReadObjectString(ctx, git.BlobType, mustHashAt(t, ctx, f.repo, entrypointTree, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "add A\n", aContent)

	bContent, err := f.repo.ReadObjectString(ctx, git.BlobType, mustHashAt(t, ctx, f.repo, entrypointTree, "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "add B\n", bContent)
}

// TestScenarioTwoStacksTreeConflict is spec §8 scenario S3.
func TestScenarioTwoStacksTreeConflict(t *testing.T) {
	ctx := context.Background()
	f := newEmptyWorkspaceFixture(t)
	stackA := f.createStack(t, "feat-a")

	f.writeFile(t, "shared.txt", "from A\n")
	_, err := f.eng.CreateCommit(ctx, engine.CreateCommitRequest{
		WorkspaceID: f.ws, Branch: "feat-a",
		Specs: []engine.DiffSpec{{Path: "shared.txt"}}, Message: "add A",
	})
	require.NoError(t, err)

	// feat-c is built directly off main (not through the workspace) so
	// that its own commit touches the same file with conflicting bytes,
	// then it is applied and should come back as RelationUnmergedTree.
	cTip := gittest.Commit(t, f.repo, map[string]string{"shared.txt": "from C\n"}, "add C")
	require.NoError(t, f.repo.SetRef(ctx, git.SetRefRequest{Ref: "refs/heads/feat-c", Hash: cTip}))

	stackC := uuid.New()
	require.NoError(t, f.store.SetBranch(ctx, meta.BranchRecord{Name: "feat-c", StackID: stackC, Order: 0}))

	out, err := f.eng.ApplyStack(ctx, engine.ApplyStackRequest{WorkspaceID: f.ws, StackID: stackC})
	require.NoError(t, err)
	assert.Equal(t, engine.RelationUnmergedTree, out.Relation)
	assert.Contains(t, out.ConflictingWith, stackA)
}

// TestScenarioAmendHunkMismatch is spec §8 scenario S4.
func TestScenarioAmendHunkMismatch(t *testing.T) {
	ctx := context.Background()
	f := newEmptyWorkspaceFixture(t)
	f.createStack(t, "feat-a")

	f.writeFile(t, "a.txt", "add A\n")
	created, err := f.eng.CreateCommit(ctx, engine.CreateCommitRequest{
		WorkspaceID: f.ws, Branch: "feat-a",
		Specs: []engine.DiffSpec{{Path: "a.txt"}}, Message: "add A",
	})
	require.NoError(t, err)

	f.writeFile(t, "a.txt", "add A\nextra\n")
	badHeader := git.HunkHeader{OldStart: 999, OldLines: 1, NewStart: 999, NewLines: 1}
	out, err := f.eng.Amend(ctx, engine.AmendRequest{
		WorkspaceID: f.ws,
		Commit:      created.NewCommit,
		Specs:       []engine.DiffSpec{{Path: "a.txt", HunkHeaders: []git.HunkHeader{badHeader}}},
	})
	require.NoError(t, err)
	require.Len(t, out.Rejections, 1)
	assert.Equal(t, "a.txt", out.Rejections[0].Spec.Path)
	assert.Equal(t, git.ZeroHash, out.NewCommit)

	tip, err := f.repo.PeelToCommit(ctx, "refs/heads/feat-a")
	require.NoError(t, err)
	assert.Equal(t, created.NewCommit, git.Hash(tip))
}
