package engine

import (
	"context"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/coreerr"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/graph"
	"go.gitbutler.dev/core/internal/oplog"
	"go.gitbutler.dev/core/internal/rebase"
	"go.gitbutler.dev/core/internal/workspace"
)

// IntegrationStatus classifies a stack's relationship to the
// integration target once it has advanced (spec §4.4 "Integrate
// upstream").
type IntegrationStatus int

const (
	// StatusEmpty means the stack has no commits of its own.
	StatusEmpty IntegrationStatus = iota
	// StatusIntegrated means every commit in the stack has already
	// landed on the target.
	StatusIntegrated
	// StatusSafelyUpdatable means the stack's remaining commits
	// replayed onto the new target without conflict.
	StatusSafelyUpdatable
	// StatusConflictingButUpdatable means the stack's remaining commits
	// replayed onto the new target, but one or more landed as a
	// conflicted commit.
	StatusConflictingButUpdatable
)

func (s IntegrationStatus) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusIntegrated:
		return "integrated"
	case StatusSafelyUpdatable:
		return "safely-updatable"
	case StatusConflictingButUpdatable:
		return "conflicting-but-updatable"
	default:
		return "unknown"
	}
}

// StackIntegrationResult is one stack's outcome within an
// IntegrationOutcome.
type StackIntegrationResult struct {
	StackID uuid.UUID
	Status  IntegrationStatus
	NewTip  git.Hash
}

// IntegrationOutcome is the structured result of IntegrateUpstream
// (spec §4.4 "Produce a structured IntegrationOutcome listing per-stack
// results").
type IntegrationOutcome struct {
	Workspace *workspace.Workspace
	Stacks    []StackIntegrationResult
}

// IntegrateUpstreamRequest is the input to IntegrateUpstream.
type IntegrateUpstreamRequest struct {
	WorkspaceID uuid.UUID
}

// IntegrateUpstream rebases every applied stack onto the workspace's
// (advanced) integration target, dropping commits already landed there
// (spec §4.4 "Integrate upstream"). Stacks are assumed to consist of a
// single branch/segment; a stack split across multiple branches is
// integrated only through its topmost segment (see DESIGN.md).
func (e *Engine) IntegrateUpstream(ctx context.Context, req IntegrateUpstreamRequest) (*IntegrationOutcome, error) {
	t, err := e.begin(ctx, req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	defer t.end()

	if t.ws.TargetRef == "" {
		return nil, coreerr.New(coreerr.KindPreconditionViolated, "workspace has no integration target configured")
	}
	newTarget, err := e.repo.PeelToCommit(ctx, t.ws.TargetRef)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "resolve integration target", err)
	}

	results := make([]StackIntegrationResult, 0, len(t.ws.Stacks))
	for _, stack := range t.ws.Stacks {
		tipBranch, ok := stack.Tip()
		if !ok || tipBranch.SegmentID == graph.NoID {
			continue
		}
		seg := t.ws.Graph.Segment(tipBranch.SegmentID)

		if len(seg.Commits) == 0 {
			results = append(results, StackIntegrationResult{StackID: stack.ID, Status: StatusEmpty})
			continue
		}

		remaining := make([]git.Hash, 0, len(seg.Commits))
		for i := len(seg.Commits) - 1; i >= 0; i-- {
			c := seg.Commits[i]
			if c.State.Kind == graph.Integrated {
				continue
			}
			remaining = append(remaining, c.Hash)
		}

		if len(remaining) == 0 {
			results = append(results, StackIntegrationResult{StackID: stack.ID, Status: StatusIntegrated, NewTip: newTarget})
			if err := updateSegRef(ctx, e.repo, seg, newTarget); err != nil {
				return nil, coreerr.Wrap(coreerr.KindExternalFailure, "fast-forward fully integrated stack", err)
			}
			continue
		}

		steps := make([]rebase.Step, len(remaining))
		for i, h := range remaining {
			steps[i] = rebase.Step{Hash: h}
		}
		stepResults, err := rebase.Sequence(ctx, e.repo, steps, newTarget)
		if err != nil {
			return nil, coreerr.Wrap(coreerr.KindCommitConflict, "rebase stack onto new target", err)
		}

		status := StatusSafelyUpdatable
		for _, r := range stepResults {
			if r.Kind == rebase.OutcomeConflictedCommit {
				status = StatusConflictingButUpdatable
			}
		}
		newTip := stepResults[len(stepResults)-1].New
		if err := updateSegRef(ctx, e.repo, seg, newTip); err != nil {
			return nil, coreerr.Wrap(coreerr.KindExternalFailure, "update stack ref after integration", err)
		}

		results = append(results, StackIntegrationResult{StackID: stack.ID, Status: status, NewTip: newTip})
	}

	if _, err := oplog.Append(ctx, e.repo, "", "integrate_upstream", git.ZeroHash, newTarget); err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "append oplog entry", err)
	}

	ws, err := t.reproject(ctx)
	if err != nil {
		return nil, err
	}
	return &IntegrationOutcome{Workspace: ws, Stacks: results}, nil
}
