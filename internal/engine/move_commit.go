package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/coreerr"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/oplog"
	"go.gitbutler.dev/core/internal/rebase"
	"go.gitbutler.dev/core/internal/workspace"
)

// MoveCommitRequest is the input to MoveCommit (spec §4.4 "Move
// commit").
type MoveCommitRequest struct {
	WorkspaceID uuid.UUID
	Commit      git.Hash

	// TargetBranch is the branch whose tip the commit is cherry-picked
	// onto.
	TargetBranch string
}

// MoveCommitOutcome is the result of a successful MoveCommit call.
type MoveCommitOutcome struct {
	Workspace *workspace.Workspace
	NewCommit git.Hash
}

// MoveCommit relocates a commit from its current stack to the tip of
// another (spec §4.4 "Move commit"). Only the merge-commit check from
// the spec's full legality rule is enforced here; full cross-stack
// dependency analysis ("or if it depends on a commit still in the
// source stack that is not in the target") is not implemented (see
// DESIGN.md).
func (e *Engine) MoveCommit(ctx context.Context, req MoveCommitRequest) (*MoveCommitOutcome, error) {
	t, err := e.begin(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	defer t.end()

	srcSeg, idx, ok := findCommit(t.ws, req.Commit)
	if !ok {
		return nil, coreerr.New(coreerr.KindNotFound, fmt.Sprintf("commit %s not found in workspace", req.Commit.Short()))
	}
	moved := srcSeg.Commits[idx]
	if len(moved.Parents) > 1 {
		return nil, coreerr.New(coreerr.KindValidationFailed, "cannot move a merge commit")
	}

	_, targetSeg, ok := findBranch(t.ws, req.TargetBranch)
	if !ok {
		return nil, coreerr.New(coreerr.KindNotFound, fmt.Sprintf("target branch %q not applied in workspace", req.TargetBranch))
	}
	targetTip := targetSeg.TipHash()
	if targetTip == "" {
		targetTip = targetSeg.Base
	}

	outcome, err := rebase.CherryPick(ctx, e.repo, req.Commit, []git.Hash{targetTip})
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindCommitConflict, "cherry-pick commit onto target branch", err)
	}
	if err := updateSegRef(ctx, e.repo, targetSeg, outcome.Hash); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "update target branch ref", err)
	}

	// Rebase the source segment's remaining commits onto the moved
	// commit's own former parent, dropping the moved commit itself.
	newSourceBase := srcSeg.Base
	if len(moved.Parents) == 1 {
		newSourceBase = moved.Parents[0]
	}
	steps := descendantSteps(srcSeg, idx)
	if _, err := rebaseOnto(ctx, e.repo, srcSeg, steps, newSourceBase); err != nil {
		return nil, coreerr.Wrap(coreerr.KindCommitConflict, "rebase source stack past moved commit", err)
	}

	if _, err := oplog.Append(ctx, e.repo, "", "move_commit", req.Commit, outcome.Hash); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "append oplog entry", err)
	}

	ws, err := t.reproject(ctx)
	if err != nil {
		return nil, err
	}
	return &MoveCommitOutcome{Workspace: ws, NewCommit: outcome.Hash}, nil
}
