package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/coreerr"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/oplog"
	"go.gitbutler.dev/core/internal/workspace"
)

// StackRelation reports how a freshly applied stack's tree relates to
// the rest of the workspace (spec §4.4 "Apply stack").
type StackRelation int

const (
	// RelationMerged means the stack's tip merged cleanly into the
	// workspace's synthetic commit.
	RelationMerged StackRelation = iota

	// RelationUnmergedTree means applying the stack produced a tree
	// conflict with an already-applied stack. The stack stays
	// registered as applied rather than being dropped (spec §4.4
	// "the unmerged stack remains registered ... rather than being
	// dropped").
	RelationUnmergedTree
)

// ApplyStackRequest is the input to ApplyStack.
type ApplyStackRequest struct {
	WorkspaceID uuid.UUID
	StackID     uuid.UUID
}

// ApplyStackOutcome is the result of a successful ApplyStack call.
type ApplyStackOutcome struct {
	Workspace *workspace.Workspace
	Relation  StackRelation
	// ConflictingWith lists every already-applied stack when the newly
	// applied stack's tip conflicts with the current workspace tip,
	// populated only when Relation == RelationUnmergedTree. The
	// individual stacks that conflict are not singled out.
	ConflictingWith []uuid.UUID
}

// ApplyStack adds a stack to a managed workspace (spec §4.4 "Apply
// stack").
func (e *Engine) ApplyStack(ctx context.Context, req ApplyStackRequest) (*ApplyStackOutcome, error) {
	t, err := e.begin(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	defer t.end()

	record, err := e.store.GetWorkspace(ctx, req.WorkspaceID)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindNotFound, "load workspace record", err)
	}
	for _, id := range record.StackIDs {
		if id == req.StackID {
			return nil, coreerr.New(coreerr.KindPreconditionViolated, "stack is already applied")
		}
	}

	branches, err := e.store.IterBranchesInStack(ctx, req.StackID)
	if err != nil || len(branches) == 0 {
		return nil, coreerr.New(coreerr.KindNotFound, fmt.Sprintf("stack %s has no branches", req.StackID))
	}
	newTip, err := e.repo.PeelToCommit(ctx, "refs/heads/"+branches[len(branches)-1].Name)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "resolve new stack tip", err)
	}

	relation := RelationMerged
	var conflicting []uuid.UUID
	if len(record.StackIDs) > 0 {
		existingTip := t.ws.Graph.Segment(t.ws.EntrypointSegment).TipHash()
		if existingTip != "" {
			var conflictErr *git.MergeTreeConflictError
			_, mergeErr := e.repo.MergeTree(ctx, git.MergeTreeRequest{Ours: string(existingTip), Theirs: string(newTip)})
			if mergeErr != nil && errors.As(mergeErr, &conflictErr) {
				relation = RelationUnmergedTree
				conflicting = append(conflicting, record.StackIDs...)
			} else if mergeErr != nil {
				return nil, coreerr.Wrap(coreerr.KindExternalFailure, "probe merge of new stack tip", mergeErr)
			}
		}
	}

	record.StackIDs = append(record.StackIDs, req.StackID)
	if err := e.store.SetWorkspace(ctx, record); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "persist workspace record", err)
	}

	if _, err := oplog.Append(ctx, e.repo, "", "apply_stack", git.ZeroHash, newTip); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "append oplog entry", err)
	}

	ws, err := t.reproject(ctx)
	if err != nil {
		return nil, err
	}
	return &ApplyStackOutcome{Workspace: ws, Relation: relation, ConflictingWith: conflicting}, nil
}
