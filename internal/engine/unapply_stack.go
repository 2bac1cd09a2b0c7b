package engine

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/coreerr"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/oplog"
	"go.gitbutler.dev/core/internal/workspace"
)

// UnapplyStackRequest is the input to UnapplyStack.
type UnapplyStackRequest struct {
	WorkspaceID uuid.UUID
	StackID     uuid.UUID
}

// UnapplyStackOutcome is the result of a successful UnapplyStack call.
type UnapplyStackOutcome struct {
	Workspace *workspace.Workspace
}

// UnapplyStack removes a stack from a managed workspace, leaving its
// branches and commits untouched (spec §4.4 "Unapply stack").
func (e *Engine) UnapplyStack(ctx context.Context, req UnapplyStackRequest) (*UnapplyStackOutcome, error) {
	t, err := e.begin(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	defer t.end()

	record, err := e.store.GetWorkspace(ctx, req.WorkspaceID)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNotFound, "load workspace record", err)
	}

	idx := slices.Index(record.StackIDs, req.StackID)
	if idx < 0 {
		return nil, coreerr.New(coreerr.KindPreconditionViolated, "stack is not applied to this workspace")
	}
	if len(record.StackIDs) == 1 {
		return nil, coreerr.New(coreerr.KindPreconditionViolated, "cannot unapply the last stack of a workspace")
	}
	before := t.ws.Graph.Segment(t.ws.EntrypointSegment).TipHash()
	record.StackIDs = slices.Delete(record.StackIDs, idx, idx+1)

	if err := e.store.SetWorkspace(ctx, record); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "persist workspace record", err)
	}

	ws, err := t.reproject(ctx)
	if err != nil {
		return nil, err
	}

	after := ws.Graph.Segment(ws.EntrypointSegment).TipHash()
	if before == git.ZeroHash {
		before = after
	}
	if _, err := oplog.Append(ctx, e.repo, "", "unapply_stack", before, after); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "append oplog entry", err)
	}

	return &UnapplyStackOutcome{Workspace: ws}, nil
}
