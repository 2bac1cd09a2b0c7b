// Package workspace implements the workspace projection (spec §4.3,
// C3): the view of one or more stacks applied together, synthesized
// into a single "workspace commit" so downstream tooling — builds,
// tests, diff views — sees one coherent tree, plus the push-status
// derivation that tells a caller what, if anything, needs to go to the
// remote for a given branch.
package workspace

import (
	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/graph"
)

// PushStatus summarizes a branch's relationship to its remote-tracking
// branch (spec §3, §4.3).
type PushStatus int

// Recognized push statuses.
const (
	// NothingToPush means every local commit already exists, unchanged,
	// on the remote branch.
	NothingToPush PushStatus = iota

	// UnpushedCommits means the branch has commits beyond its remote
	// counterpart that can be pushed with a fast-forward.
	UnpushedCommits

	// CompletelyUnpushed means the branch has no remote-tracking branch
	// at all yet.
	CompletelyUnpushed

	// Integrated means the branch's commits have already landed on the
	// integration target, whether or not they were ever pushed under
	// this branch's own name.
	Integrated

	// UnpushedCommitsRequiringForce means the branch's commits diverge
	// from its remote counterpart (e.g. after a local rebase): a plain
	// push would be rejected.
	UnpushedCommitsRequiringForce
)

func (p PushStatus) String() string {
	switch p {
	case NothingToPush:
		return "nothing-to-push"
	case UnpushedCommits:
		return "unpushed-commits"
	case CompletelyUnpushed:
		return "completely-unpushed"
	case Integrated:
		return "integrated"
	case UnpushedCommitsRequiringForce:
		return "unpushed-commits-requiring-force"
	default:
		return "unknown"
	}
}

// StackBranch is one branch within a stack, resolved against the
// commit-graph projection.
type StackBranch struct {
	Name       string
	SegmentID  graph.ID
	ReviewURL  string
	PushStatus PushStatus
}

// Stack is an ordered sequence of branches sharing one base, applied
// (or not) to a workspace.
type Stack struct {
	ID       uuid.UUID
	Branches []StackBranch // bottom of the stack first
}

// Tip returns the stack's topmost branch, or a zero value if the stack
// has no branches (which the builder never produces, but callers
// shouldn't assume).
func (s Stack) Tip() (StackBranch, bool) {
	if len(s.Branches) == 0 {
		return StackBranch{}, false
	}
	return s.Branches[len(s.Branches)-1], true
}

// Workspace is a projected, classified view of one or more stacks
// plus (if managed) the synthetic commit that merges them.
type Workspace struct {
	ID uuid.UUID

	// Managed reports whether this workspace is backed by a metadata
	// record (spec §4.3 "managed vs ad-hoc workspace"). An ad-hoc
	// workspace is a single checked-out branch with no workspace
	// record: every operation still works, but there is no synthetic
	// merge commit and no multi-stack application.
	Managed bool

	TargetRef string
	Stacks    []Stack

	// Graph is the commit-graph projection the workspace was computed
	// against.
	Graph *graph.Graph

	// EntrypointSegment is the segment the projection was rooted at:
	// the synthetic workspace-commit segment for a managed workspace
	// with more than one applied stack, the stack's tip segment for a
	// managed workspace with one (no synthetic commit is made), or the
	// single applied branch's segment for an ad-hoc one.
	EntrypointSegment graph.ID
}

// AppliedStackIDs returns the IDs of every stack currently applied to
// the workspace, in application order.
func (w Workspace) AppliedStackIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(w.Stacks))
	for _, s := range w.Stacks {
		ids = append(ids, s.ID)
	}
	return ids
}
