package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/coreerr"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/oplog"
	"go.gitbutler.dev/core/internal/workspace"
)

// AmendRequest is the input to Amend (spec §4.4 "Amend").
type AmendRequest struct {
	WorkspaceID uuid.UUID
	Commit      git.Hash
	Specs       []DiffSpec
}

// AmendOutcome is the result of a successful Amend call.
type AmendOutcome struct {
	Workspace  *workspace.Workspace
	NewCommit  git.Hash
	Rejections []Rejection
}

// Amend folds new worktree content into an existing commit, preserving
// its message and parents, and rebases every descendant on top
// (spec §4.4 "the new tree is (target_commit's parent tree) +
// (target_commit's changes) + (spec); all descendants rebased").
func (e *Engine) Amend(ctx context.Context, req AmendRequest) (*AmendOutcome, error) {
	t, err := e.begin(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	defer t.end()

	seg, idx, ok := findCommit(t.ws, req.Commit)
	if !ok {
		return nil, coreerr.New(coreerr.KindNotFound, fmt.Sprintf("commit %s not found in workspace", req.Commit.Short()))
	}

	info, err := e.repo.ReadCommit(ctx, string(req.Commit))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "read target commit", err)
	}

	// The commit's own current tree already is "parent tree + target's
	// changes"; applying the new specs on top of it gives exactly the
	// composition spec §4.4 describes.
	baseTree, err := e.repo.PeelToTree(ctx, string(req.Commit))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "resolve target tree", err)
	}

	tree, rejections, err := applySpecs(ctx, e.repo, e.repo.RootDir(), baseTree, req.Specs)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "apply worktree changes", err)
	}

	// Every spec was rejected and nothing else changed: leave the
	// commit and every ref untouched (spec §4.4, scenario S4).
	if tree == baseTree {
		return &AmendOutcome{Workspace: t.ws, NewCommit: git.ZeroHash, Rejections: rejections}, nil
	}

	newCommit, err := e.repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree: tree, Message: info.Message.String(), Parents: info.Parents,
		Author: &info.Author, Committer: &info.Committer,
	})
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "commit-tree", err)
	}

	steps := descendantSteps(seg, idx)
	newTip, err := rebaseOnto(ctx, e.repo, seg, steps, newCommit)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindCommitConflict, "rebase descendants onto amended commit", err)
	}

	if _, err := oplog.Append(ctx, e.repo, "", "amend", req.Commit, newTip); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "append oplog entry", err)
	}

	for _, spec := range req.Specs {
		_ = e.assigns.Forget(ctx, spec.Path)
	}

	ws, err := t.reproject(ctx)
	if err != nil {
		return nil, err
	}
	return &AmendOutcome{Workspace: ws, NewCommit: newCommit, Rejections: rejections}, nil
}
