package engine

import (
	"context"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/assign"
	"go.gitbutler.dev/core/internal/coreerr"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/workspace"
)

// ListAssignments reconciles the recorded worktree assignments against
// the current worktree diff and returns the resolved assignment for
// every hunk present in the workspace's worktree (spec §4.5 "list
// assignments for current worktree (after reconciling against actual
// diff)"). It is a read: unlike the mutation operations it does not
// take the worktree lock.
func (e *Engine) ListAssignments(ctx context.Context, workspaceID uuid.UUID) ([]assign.Assignment, error) {
	ws, err := workspace.LoadManaged(ctx, e.repo, e.store, workspaceID, workspace.Options{RemotePrefix: e.remotePrefix})
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindIntegrityFault, "load workspace", err)
	}

	record, err := e.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNotFound, "load workspace record", err)
	}

	recorded, err := e.assigns.List(ctx)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "load recorded assignments", err)
	}

	tip := ws.Graph.Segment(ws.EntrypointSegment).TipHash()
	diffs, err := e.repo.WorktreeDiff(ctx, string(tip), git.DiffWorktreeOptions{})
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "diff worktree", err)
	}

	fallback := record.SelectedForChanges
	if fallback == uuid.Nil && len(record.StackIDs) == 1 {
		fallback = record.StackIDs[0]
	}

	return assign.Resolve(recorded, diffs, fallback), nil
}

// SelectForChanges marks stackID as the fallback destination for
// worktree changes that have no recorded or positional assignment
// (spec §4.5 "the stack marked selected-for-changes"). Passing the zero
// UUID clears the selection.
func (e *Engine) SelectForChanges(ctx context.Context, workspaceID, stackID uuid.UUID) error {
	record, err := e.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return coreerr.Wrap(coreerr.KindNotFound, "load workspace record", err)
	}
	record.SelectedForChanges = stackID
	if err := e.store.SetWorkspace(ctx, record); err != nil {
		return coreerr.Wrap(coreerr.KindExternalFailure, "persist workspace record", err)
	}
	return nil
}
