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

// ReorderRequest is the input to Reorder (spec §4.4 "Reorder").
type ReorderRequest struct {
	WorkspaceID uuid.UUID
	Branch      string

	// NewOrder lists every commit currently in Branch's segment, tip
	// first, in its desired new order.
	NewOrder []git.Hash
}

// ReorderOutcome is the result of a successful Reorder call.
type ReorderOutcome struct {
	Workspace *workspace.Workspace
	NewTip    git.Hash
}

// Reorder replays a stack's commits in a new order by cherry-picking
// them, oldest first, back onto the stack's base (spec §4.4 "Reorder":
// "new ordering of commit ids within a stack").
func (e *Engine) Reorder(ctx context.Context, req ReorderRequest) (*ReorderOutcome, error) {
	t, err := e.begin(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	defer t.end()

	_, seg, ok := findBranch(t.ws, req.Branch)
	if !ok {
		return nil, coreerr.New(coreerr.KindNotFound, fmt.Sprintf("branch %q not applied in workspace", req.Branch))
	}

	if len(req.NewOrder) != len(seg.Commits) {
		return nil, coreerr.New(coreerr.KindValidationFailed, "new order must list every commit in the stack exactly once")
	}
	present := make(map[git.Hash]bool, len(seg.Commits))
	for _, c := range seg.Commits {
		present[c.Hash] = true
	}
	seen := make(map[git.Hash]bool, len(req.NewOrder))
	for _, h := range req.NewOrder {
		if !present[h] {
			return nil, coreerr.New(coreerr.KindValidationFailed, fmt.Sprintf("commit %s is not in this stack", h.Short()))
		}
		if seen[h] {
			return nil, coreerr.New(coreerr.KindValidationFailed, fmt.Sprintf("commit %s is listed more than once", h.Short()))
		}
		seen[h] = true
		if len(h) > 0 {
			if info, err := e.repo.ReadCommit(ctx, string(h)); err == nil && len(info.Parents) > 1 {
				return nil, coreerr.New(coreerr.KindValidationFailed, "cannot reorder a merge commit")
			}
		}
	}

	steps := make([]rebase.Step, len(req.NewOrder))
	for i, h := range req.NewOrder {
		steps[len(req.NewOrder)-1-i] = rebase.Step{Hash: h}
	}

	before := seg.TipHash()
	newTip, err := rebaseOnto(ctx, e.repo, seg, steps, seg.Base)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindCommitConflict, "replay reordered commits", err)
	}

	if _, err := oplog.Append(ctx, e.repo, "", "reorder", before, newTip); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "append oplog entry", err)
	}

	ws, err := t.reproject(ctx)
	if err != nil {
		return nil, err
	}
	return &ReorderOutcome{Workspace: ws, NewTip: newTip}, nil
}
