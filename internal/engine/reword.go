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

// RewordRequest is the input to Reword (spec §4.4 "Reword").
type RewordRequest struct {
	WorkspaceID uuid.UUID
	Commit      git.Hash
	Message     string
}

// RewordOutcome is the result of a successful Reword call.
type RewordOutcome struct {
	Workspace *workspace.Workspace
	NewCommit git.Hash
}

// Reword rewrites a commit's message, preserving its tree and parents,
// and rebases every descendant on top (spec §4.4 "Reword": "their tree
// may be identical, their commit id changes").
func (e *Engine) Reword(ctx context.Context, req RewordRequest) (*RewordOutcome, error) {
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

	tree, err := e.repo.PeelToTree(ctx, string(req.Commit))
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "resolve target tree", err)
	}

	message := req.Message
	if changeID := git.ChangeIDOf(info.Message.String()); changeID != "" {
		message = git.WithChangeIDTrailer(message, changeID)
	}

	newCommit, err := e.repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree: tree, Message: message, Parents: info.Parents,
		Author: &info.Author, Committer: &info.Committer,
	})
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "commit-tree", err)
	}

	steps := descendantSteps(seg, idx)
	newTip, err := rebaseOnto(ctx, e.repo, seg, steps, newCommit)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindCommitConflict, "rebase descendants onto reworded commit", err)
	}

	if _, err := oplog.Append(ctx, e.repo, "", "reword", req.Commit, newTip); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "append oplog entry", err)
	}

	ws, err := t.reproject(ctx)
	if err != nil {
		return nil, err
	}
	return &RewordOutcome{Workspace: ws, NewCommit: newCommit}, nil
}
