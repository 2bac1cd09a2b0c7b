package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/coreerr"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/graph"
	"go.gitbutler.dev/core/internal/meta"
	"go.gitbutler.dev/core/internal/oplog"
	"go.gitbutler.dev/core/internal/workspace"
)

// Anchor selects where a new reference is created relative to an
// existing commit (spec §4.4 "Create reference": "anchor (commit id +
// above/below ...)").
type Anchor struct {
	Commit git.Hash
	Above  bool // false means Below
}

// CreateReferenceRequest is the input to CreateReference.
type CreateReferenceRequest struct {
	WorkspaceID uuid.UUID
	Name        string
	Anchor      Anchor
}

// CreateReferenceOutcome is the result of a successful CreateReference
// call.
type CreateReferenceOutcome struct {
	Workspace *workspace.Workspace
}

// CreateReference adds a new branch name within an existing stack,
// anchored above or below a given commit (spec §4.4 "Create
// reference"). "Below" resolves to the anchor commit's own parent;
// creating below the stack's base is forbidden.
func (e *Engine) CreateReference(ctx context.Context, req CreateReferenceRequest) (*CreateReferenceOutcome, error) {
	t, err := e.begin(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	defer t.end()

	if err := e.refs.ValidateName(ctx, req.Name, t.ws.TargetRef); err != nil {
		return nil, err
	}

	seg, idx, ok := findCommit(t.ws, req.Anchor.Commit)
	if !ok {
		return nil, coreerr.New(coreerr.KindNotFound, fmt.Sprintf("anchor commit %s not found in workspace", req.Anchor.Commit.Short()))
	}
	anchorCommit := seg.Commits[idx]

	var stackID uuid.UUID
	var order int
	for _, stack := range t.ws.Stacks {
		for _, b := range stack.Branches {
			if b.SegmentID == seg.ID() {
				stackID = stack.ID
				order = len(stack.Branches)
			}
		}
	}
	if stackID == uuid.Nil {
		return nil, coreerr.New(coreerr.KindIntegrityFault, "anchor commit's segment is not owned by any stack")
	}

	var target git.Hash
	var base string
	if req.Anchor.Above {
		target = anchorCommit.Hash
		base = ""
	} else {
		if len(anchorCommit.Parents) == 0 {
			return nil, coreerr.New(coreerr.KindValidationFailed, "cannot create a reference below a root commit")
		}
		if idx == len(seg.Commits)-1 && seg.BaseSegment == graph.NoID {
			return nil, coreerr.New(coreerr.KindValidationFailed, "cannot create a reference below the stack base")
		}
		target = anchorCommit.Parents[0]
	}

	if err := e.repo.SetRef(ctx, git.SetRefRequest{Ref: "refs/heads/" + req.Name, Hash: target}); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "create branch ref", err)
	}

	if err := e.store.SetBranch(ctx, meta.BranchRecord{Name: req.Name, StackID: stackID, Base: base, Order: order}); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "persist branch record", err)
	}

	if _, err := oplog.Append(ctx, e.repo, "", "create_reference", git.ZeroHash, target); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "append oplog entry", err)
	}

	ws, err := t.reproject(ctx)
	if err != nil {
		return nil, err
	}
	return &CreateReferenceOutcome{Workspace: ws}, nil
}
